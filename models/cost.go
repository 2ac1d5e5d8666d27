package models

import "time"

type CostEntry struct {
	VideoID     string  `json:"videoId"`
	Title       string  `json:"title"`
	Method      string  `json:"method"`
	Language    string  `json:"language"`
	GPTModel    string  `json:"gptModel"`
	WhisperCost float64 `json:"whisperCost"`
	GPTCost     float64 `json:"gptCost"`
	TotalCost   float64 `json:"totalCost"`
	Timestamp   string  `json:"timestamp"`
	Date        string  `json:"date"`
}

// NewCostEntry stamps the entry with at and fills the total.
func NewCostEntry(at time.Time, videoID, title, method, language, model string, whisper, gpt float64) CostEntry {
	at = at.UTC()
	return CostEntry{
		VideoID:     videoID,
		Title:       title,
		Method:      method,
		Language:    language,
		GPTModel:    model,
		WhisperCost: whisper,
		GPTCost:     gpt,
		TotalCost:   whisper + gpt,
		Timestamp:   at.Format(time.RFC3339),
		Date:        at.Format("2006-01-02"),
	}
}

// SessionCosts is the running spend of one session.
type SessionCosts struct {
	Whisper   float64 `json:"whisper"`
	GPT       float64 `json:"gpt"`
	Total     float64 `json:"total"`
	Server    string  `json:"server"`
	Timestamp string  `json:"timestamp"`
}
