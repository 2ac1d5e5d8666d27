package summary

import (
	"context"

	"github.com/nijaru/yt-digest/prompts"
)

type Service interface {
	Summarize(ctx context.Context, in Input) (*Summary, error)
	Article(ctx context.Context, in Input) (*Article, error)
	Model() string
}

// Generator sends one prompt to a language model.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*Generation, error)
}

// Renderer fills a stored prompt template.
type Renderer interface {
	Render(t prompts.Type, data prompts.Data) (string, error)
}

type Generation struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

type Config struct {
	Model              string
	InputPricePerMTok  float64
	OutputPricePerMTok float64
	MaxTags            int
	MaxMainTags        int
}

type Input struct {
	Title      string
	Language   string
	Transcript string
	Summary    string
}

type Summary struct {
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	MainTags []string `json:"mainTags"`
	Cost     float64  `json:"cost"`
	Model    string   `json:"model"`
}

type Article struct {
	Content string  `json:"content"`
	Cost    float64 `json:"cost"`
	Model   string  `json:"model"`
}
