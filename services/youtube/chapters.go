package youtube

import (
	"regexp"
	"strings"

	"github.com/nijaru/yt-digest/models"
	"github.com/nijaru/yt-digest/utils"
)

var chapterLine = regexp.MustCompile(`^\s*[\(\[]?((?:\d{1,2}:)?\d{1,2}:\d{2})[\)\]]?\s*[-–:|]?\s*(.+?)\s*$`)

// ParseChapters reads "0:00 Intro" style lines from a video description.
// A chapter ends where the next one starts; the last one ends at duration.
// YouTube only honours chapter lists that start at 0:00, and so do we.
func ParseChapters(description string, duration float64) []models.Chapter {
	chapters := []models.Chapter{}
	for _, line := range strings.Split(description, "\n") {
		m := chapterLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		start, ok := utils.ParseClock(m[1])
		if !ok {
			continue
		}
		if n := len(chapters); n > 0 && start <= chapters[n-1].StartTime {
			continue
		}
		chapters = append(chapters, models.Chapter{Title: m[2], StartTime: start})
	}

	if len(chapters) < 2 || chapters[0].StartTime != 0 {
		return []models.Chapter{}
	}

	for i := range chapters {
		if i+1 < len(chapters) {
			chapters[i].EndTime = chapters[i+1].StartTime
		} else {
			chapters[i].EndTime = duration
		}
	}
	return chapters
}
