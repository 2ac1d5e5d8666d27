package ledger

import (
	apperrors "github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/models"
)

const DefaultHistoryLimit = 100

// History is the list of analysed videos, most recent first.
type History struct {
	list *List[models.HistoryEntry]
}

func NewHistory(opts Options) *History {
	if opts.Limit <= 0 {
		opts.Limit = DefaultHistoryLimit
	}
	return &History{list: NewList[models.HistoryEntry](opts)}
}

func (h *History) All() []models.HistoryEntry {
	return h.list.Load()
}

func (h *History) Find(id string) (models.HistoryEntry, bool) {
	for _, entry := range h.list.Load() {
		if entry.ID == id {
			return entry, true
		}
	}
	return models.HistoryEntry{}, false
}

// AddOrReplace overwrites the entry with the same id in place, or inserts
// entry at the front when the id is new.
func (h *History) AddOrReplace(entry models.HistoryEntry) []models.HistoryEntry {
	return h.list.Update(func(items []models.HistoryEntry) []models.HistoryEntry {
		for i := range items {
			if items[i].ID == entry.ID {
				items[i] = entry
				return items
			}
		}
		return append([]models.HistoryEntry{entry}, items...)
	})
}

// SetArticle stores article on the entry with the given id.
func (h *History) SetArticle(id, article string, cost float64) (models.HistoryEntry, error) {
	const op = "History.SetArticle"

	var (
		updated models.HistoryEntry
		found   bool
	)
	h.list.Update(func(items []models.HistoryEntry) []models.HistoryEntry {
		for i := range items {
			if items[i].ID == id {
				items[i].Article = article
				if cost > 0 {
					items[i].ArticleCost = cost
				}
				updated = items[i]
				found = true
				break
			}
		}
		return items
	})

	if !found {
		return models.HistoryEntry{}, apperrors.NotFound(op, nil, "Video not found in history")
	}
	return updated, nil
}

func (h *History) Remove(id string) bool {
	removed := false
	h.list.Update(func(items []models.HistoryEntry) []models.HistoryEntry {
		for i := range items {
			if items[i].ID == id {
				removed = true
				return append(items[:i], items[i+1:]...)
			}
		}
		return items
	})
	return removed
}

func (h *History) Path() string {
	return h.list.Path()
}
