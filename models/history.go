package models

import "encoding/json"

// Transcription methods recorded on history and cost entries.
const (
	MethodCaptions = "captions"
	MethodWhisper  = "whisper"
	MethodPDF      = "pdf"
)

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// SummaryResult is the structured form of HistoryEntry.Summary. Older
// entries store the summary as a bare string.
type SummaryResult struct {
	Content string  `json:"content"`
	Cost    float64 `json:"cost"`
	Model   string  `json:"model,omitempty"`
}

// HistoryEntry is one analysed video or document. ID is the video id, or a
// content-derived id for uploaded files.
type HistoryEntry struct {
	ID                  string         `json:"id"`
	Title               string         `json:"title"`
	URL                 string         `json:"url"`
	Transcript          string         `json:"transcript"`
	Method              string         `json:"method"`
	Language            string         `json:"language"`
	GPTModel            string         `json:"gptModel"`
	Cost                float64        `json:"cost"`
	Metadata            map[string]any `json:"metadata,omitempty"`
	Summary             any            `json:"summary,omitempty"`
	TimestampedSegments []Segment      `json:"timestampedSegments"`
	Tags                []string       `json:"tags"`
	MainTags            []string       `json:"mainTags"`
	Article             string         `json:"article,omitempty"`
	ArticleCost         float64        `json:"articleCost,omitempty"`
	Timestamp           string         `json:"timestamp"`
}

// Record returns the entry as a loosely typed JSON object.
func (e HistoryEntry) Record() map[string]any {
	data, err := json.Marshal(e)
	if err != nil {
		return map[string]any{}
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return map[string]any{}
	}
	return record
}

// AsRecord converts a typed value into the map form stored in
// HistoryEntry.Metadata.
func AsRecord(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return nil
	}
	return record
}
