package transcript

import (
	"encoding/json"
	"strings"

	"github.com/nijaru/yt-digest/models"
	"github.com/pkg/errors"
)

type json3File struct {
	Events []struct {
		StartMs    float64 `json:"tStartMs"`
		DurationMs float64 `json:"dDurationMs"`
		Segs       []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// ParseJSON3 converts a YouTube json3 subtitle file into segments.
// Events without text, such as the line-break events of auto captions, are
// dropped.
func ParseJSON3(data []byte) ([]models.Segment, error) {
	var file json3File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "decode json3 subtitles")
	}

	segments := make([]models.Segment, 0, len(file.Events))
	for _, ev := range file.Events {
		if len(ev.Segs) == 0 {
			continue
		}
		var b strings.Builder
		for _, seg := range ev.Segs {
			b.WriteString(seg.UTF8)
		}
		text := strings.Join(strings.Fields(b.String()), " ")
		if text == "" {
			continue
		}
		start := ev.StartMs / 1000
		segments = append(segments, models.Segment{
			Start: start,
			End:   start + ev.DurationMs/1000,
			Text:  text,
		})
	}
	return segments, nil
}
