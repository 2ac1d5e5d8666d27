package analysis

import (
	"context"
	"io"

	"github.com/nijaru/yt-digest/models"
	"github.com/nijaru/yt-digest/services/transcript"
	"github.com/nijaru/yt-digest/session"
)

type Service interface {
	// Analyze transcribes a YouTube video and records the result
	Analyze(ctx context.Context, sess *session.Session, req Request) (*Result, error)

	// AnalyzeFile transcribes an uploaded audio file or PDF
	AnalyzeFile(ctx context.Context, sess *session.Session, upload Upload) (*Result, error)

	GenerateArticle(ctx context.Context, sess *session.Session, videoID string) (*ArticleResult, error)
	SaveArticle(videoID, article string) (models.HistoryEntry, error)
	LoadFromHistory(sess *session.Session, videoID string) (models.HistoryEntry, error)
}

// Transcripts is the part of the transcript service used here.
type Transcripts interface {
	FromVideo(ctx context.Context, videoID string, opts transcript.Options) (*transcript.Result, error)
	FromFile(ctx context.Context, name string, r io.Reader, language string) (*transcript.Result, error)
}

type Request struct {
	URL             string `json:"url"`
	Method          string `json:"method"`
	Language        string `json:"language"`
	Summarize       bool   `json:"summarize"`
	GenerateArticle bool   `json:"generateArticle"`
}

type Upload struct {
	Name      string
	Reader    io.Reader
	Size      int64
	Language  string
	Summarize bool
}

type Result struct {
	Entry models.HistoryEntry `json:"entry"`
	View  models.VideoView    `json:"view"`
}

type ArticleResult struct {
	Article string  `json:"article"`
	Cost    float64 `json:"cost"`
}
