package models

type BasicInfo struct {
	Title       string  `json:"title"`
	VideoID     string  `json:"videoId"`
	Duration    float64 `json:"duration"`
	Channel     string  `json:"channel"`
	ViewCount   int64   `json:"viewCount"`
	Likes       int64   `json:"likes"`
	UploadDate  string  `json:"uploadDate"`
	PublishDate string  `json:"publishDate"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Thumbnail   string  `json:"thumbnail"`
}

type Chapter struct {
	Title     string  `json:"title"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}

type Caption struct {
	Language      string `json:"language"`
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	AutoGenerated bool   `json:"autoGenerated"`
}

type Stats struct {
	FormatCount  int      `json:"formatCount"`
	HasSubtitles bool     `json:"hasSubtitles"`
	Keywords     []string `json:"keywords"`
}

// VideoMetadata is what the metadata client stores under
// HistoryEntry.Metadata.
type VideoMetadata struct {
	Basic    BasicInfo `json:"basic"`
	Chapters []Chapter `json:"chapters"`
	Captions []Caption `json:"captions"`
	Stats    Stats     `json:"stats"`
}

type ViewCosts struct {
	Transcription float64 `json:"transcription"`
	Summary       float64 `json:"summary"`
	Article       float64 `json:"article"`
	Total         float64 `json:"total"`
}

// VideoView is the read projection served to the UI. It is never
// persisted.
type VideoView struct {
	Basic               BasicInfo `json:"basic"`
	ThumbnailFallbacks  []string  `json:"thumbnailFallbacks"`
	Chapters            []Chapter `json:"chapters"`
	Captions            []Caption `json:"captions"`
	Stats               Stats     `json:"stats"`
	Transcript          string    `json:"transcript"`
	Summary             string    `json:"summary"`
	TimestampedSegments []Segment `json:"timestampedSegments"`
	TranscriptSource    string    `json:"transcriptSource"`
	Costs               ViewCosts `json:"costs"`
	AnalysisTime        string    `json:"analysisTime"`
}
