// Package view builds the canonical VideoView from history records of any
// vintage. Every field is resolved from the top-level record first, then
// from the nested metadata, then from a default. Nothing here fails.
package view

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/nijaru/yt-digest/models"
)

const (
	// WhisperPricePerMinute is the transcription API price in USD.
	WhisperPricePerMinute = 0.006

	DefaultTitle = "Unknown Title"
)

// Normalize projects a loosely shaped record onto a VideoView.
func Normalize(record map[string]any) models.VideoView {
	if record == nil {
		record = map[string]any{}
	}
	meta, _ := object(value(record, "metadata"))
	if meta == nil {
		meta = map[string]any{}
	}
	basicMeta, _ := object(value(meta, "basic"))
	if basicMeta == nil {
		basicMeta = map[string]any{}
	}

	videoID := firstString(value(record, "id"), value(record, "videoId"), value(basicMeta, "videoId"))
	title := firstString(value(record, "title"), value(basicMeta, "title"))
	if title == "" {
		title = DefaultTitle
	}
	duration := firstDuration(value(record, "duration"), value(basicMeta, "duration"))
	method := firstString(value(record, "method"))

	basic := models.BasicInfo{
		Title:       title,
		VideoID:     videoID,
		Duration:    duration,
		Channel:     firstString(value(record, "channel"), value(basicMeta, "channel")),
		ViewCount:   toInt64(firstNumber(value(record, "viewCount"), value(basicMeta, "viewCount"))),
		Likes:       toInt64(firstNumber(value(record, "likes"), value(basicMeta, "likes"))),
		UploadDate:  firstString(value(record, "uploadDate"), value(basicMeta, "uploadDate")),
		PublishDate: firstString(value(record, "publishDate"), value(basicMeta, "publishDate")),
		Category:    firstString(value(record, "category"), value(basicMeta, "category")),
		Description: firstString(value(record, "description"), value(basicMeta, "description")),
		Thumbnail:   resolveThumbnail(record, basicMeta, videoID),
	}

	costs := resolveCosts(record, method, duration)

	return models.VideoView{
		Basic:              basic,
		ThumbnailFallbacks: ThumbnailFallbacks(videoID),
		Chapters: decodeList[models.Chapter](
			firstList(value(record, "chapters"), value(meta, "chapters")),
		),
		Captions: decodeList[models.Caption](
			firstList(value(record, "captions"), value(meta, "captions")),
		),
		Stats:      resolveStats(record, meta),
		Transcript: firstString(value(record, "transcript"), value(meta, "transcript")),
		Summary:    CoerceSummary(value(record, "summary")),
		TimestampedSegments: decodeList[models.Segment](
			firstList(value(record, "timestampedSegments"), value(meta, "timestampedSegments")),
		),
		TranscriptSource: firstString(
			value(record, "transcriptSource"),
			method,
			value(meta, "transcriptSource"),
		),
		Costs:        costs,
		AnalysisTime: resolveAnalysisTime(record, meta),
	}
}

// FromEntry normalizes a typed history entry.
func FromEntry(entry models.HistoryEntry) models.VideoView {
	return Normalize(entry.Record())
}

// FromJSON normalizes raw JSON. Anything that is not a JSON object is
// treated as an empty record.
func FromJSON(data []byte) models.VideoView {
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		record = map[string]any{}
	}
	return Normalize(record)
}

// CoerceSummary always yields a string: the summary's content field, the
// summary itself when it is a string, or "".
func CoerceSummary(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case map[string]any:
		content, ok := s["content"]
		if !ok || content == nil {
			return ""
		}
		if str, ok := content.(string); ok {
			return str
		}
		data, err := json.Marshal(content)
		if err != nil {
			return fmt.Sprint(content)
		}
		return string(data)
	default:
		return ""
	}
}

// TranscriptionCost bills every started minute.
func TranscriptionCost(durationSeconds float64) float64 {
	if durationSeconds <= 0 {
		return 0
	}
	return math.Ceil(durationSeconds/60) * WhisperPricePerMinute
}

func resolveCosts(record map[string]any, method string, duration float64) models.ViewCosts {
	var costs models.ViewCosts

	if method == models.MethodWhisper && duration > 0 {
		costs.Transcription = TranscriptionCost(duration)
	}

	if summaryCost, ok := lookup(record, "summary", "cost"); ok {
		costs.Summary, _ = asNumber(summaryCost)
	} else if method == models.MethodWhisper {
		// Entries written before summaries carried their own cost kept the
		// LLM spend in the top-level cost field.
		costs.Summary = firstNumber(value(record, "cost"))
	}

	costs.Article = firstNumber(value(record, "articleCost"), nested(record, "costs", "article"))
	costs.Total = costs.Transcription + costs.Summary + costs.Article
	if !finite(costs.Total) {
		costs.Total = 0
	}
	return costs
}

func resolveStats(record, meta map[string]any) models.Stats {
	stats := models.Stats{Keywords: []string{}}

	src, ok := object(value(record, "stats"))
	if !ok {
		src, ok = object(value(meta, "stats"))
	}
	if !ok {
		return stats
	}

	stats.FormatCount = int(min(max(firstNumber(value(src, "formatCount")), 0), math.MaxInt32))
	if has, ok := value(src, "hasSubtitles").(bool); ok {
		stats.HasSubtitles = has
	}
	if keywords, ok := value(src, "keywords").([]any); ok {
		stats.Keywords = stringList(keywords)
	}
	return stats
}

func resolveAnalysisTime(record, meta map[string]any) string {
	for _, candidate := range []any{
		value(record, "analysisTime"),
		value(record, "timestamp"),
		value(meta, "analysisTime"),
	} {
		switch t := candidate.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			if t > 0 && finite(t) {
				return time.UnixMilli(toInt64(t)).UTC().Format(time.RFC3339)
			}
		}
	}
	return ""
}
