package ledger

import (
	"sort"

	"github.com/nijaru/yt-digest/models"
)

const DefaultCostsLimit = 1000

// Costs is the append-only spend ledger, most recent first.
type Costs struct {
	list *List[models.CostEntry]
}

func NewCosts(opts Options) *Costs {
	if opts.Limit <= 0 {
		opts.Limit = DefaultCostsLimit
	}
	return &Costs{list: NewList[models.CostEntry](opts)}
}

func (c *Costs) All() []models.CostEntry {
	return c.list.Load()
}

func (c *Costs) Append(entry models.CostEntry) []models.CostEntry {
	return c.list.Update(func(items []models.CostEntry) []models.CostEntry {
		return append([]models.CostEntry{entry}, items...)
	})
}

func (c *Costs) Path() string {
	return c.list.Path()
}

type DayTotal struct {
	Date    string  `json:"date"`
	Entries int     `json:"entries"`
	Whisper float64 `json:"whisper"`
	GPT     float64 `json:"gpt"`
	Total   float64 `json:"total"`
}

type Totals struct {
	Days    []DayTotal `json:"days"`
	Whisper float64    `json:"whisper"`
	GPT     float64    `json:"gpt"`
	Total   float64    `json:"total"`
}

// Totals sums the ledger per day, newest day first.
func (c *Costs) Totals() Totals {
	byDay := make(map[string]*DayTotal)
	var totals Totals

	for _, entry := range c.list.Load() {
		day, ok := byDay[entry.Date]
		if !ok {
			day = &DayTotal{Date: entry.Date}
			byDay[entry.Date] = day
		}
		day.Entries++
		day.Whisper += entry.WhisperCost
		day.GPT += entry.GPTCost
		day.Total += entry.TotalCost

		totals.Whisper += entry.WhisperCost
		totals.GPT += entry.GPTCost
		totals.Total += entry.TotalCost
	}

	totals.Days = make([]DayTotal, 0, len(byDay))
	for _, day := range byDay {
		totals.Days = append(totals.Days, *day)
	}
	sort.Slice(totals.Days, func(i, j int) bool {
		return totals.Days[i].Date > totals.Days[j].Date
	})
	return totals
}
