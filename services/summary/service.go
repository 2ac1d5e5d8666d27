// Package summary writes summaries and articles for transcripts with a
// large language model.
package summary

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nijaru/yt-digest/cache"
	"github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/prompts"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const summaryFormat = `

Respond with a single JSON object and nothing else:
{"summary": "<the summary in Markdown>", "tags": ["<topic>", ...], "mainTags": ["<the 3 most important topics>"]}`

type service struct {
	generator Generator
	prompts   Renderer
	config    Config
	logger    *logrus.Logger
}

func NewService(generator Generator, renderer Renderer, config Config, logger *logrus.Logger) Service {
	if config.MaxTags <= 0 {
		config.MaxTags = 15
	}
	if config.MaxMainTags <= 0 {
		config.MaxMainTags = 3
	}
	return &service{
		generator: generator,
		prompts:   renderer,
		config:    config,
		logger:    logger,
	}
}

func (s *service) Model() string {
	return s.config.Model
}

func (s *service) Summarize(ctx context.Context, in Input) (*Summary, error) {
	const op = "SummaryService.Summarize"

	gen, err := s.generate(ctx, op, prompts.TypeSummary, in, summaryFormat)
	if err != nil {
		return nil, err
	}

	parsed := parseSummary(gen.Text)
	result := &Summary{
		Content:  parsed.Summary,
		Tags:     normalizeTags(parsed.Tags, s.config.MaxTags),
		MainTags: s.mainTags(parsed.MainTags),
		Cost:     s.cost(gen),
		Model:    s.config.Model,
	}

	s.logger.WithFields(logrus.Fields{
		"model":         s.config.Model,
		"input_tokens":  gen.InputTokens,
		"output_tokens": gen.OutputTokens,
		"tags":          len(result.Tags),
	}).Info("Summary generated")

	return result, nil
}

func (s *service) Article(ctx context.Context, in Input) (*Article, error) {
	const op = "SummaryService.Article"

	gen, err := s.generate(ctx, op, prompts.TypeArticle, in, "")
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"model":         s.config.Model,
		"input_tokens":  gen.InputTokens,
		"output_tokens": gen.OutputTokens,
	}).Info("Article generated")

	return &Article{
		Content: strings.TrimSpace(gen.Text),
		Cost:    s.cost(gen),
		Model:   s.config.Model,
	}, nil
}

func (s *service) generate(ctx context.Context, op string, t prompts.Type, in Input, suffix string) (*Generation, error) {
	if strings.TrimSpace(in.Transcript) == "" {
		return nil, errors.InvalidInput(op, nil, "Transcript is empty")
	}
	if s.generator == nil {
		return nil, errors.InvalidInput(op, nil, "Language model is not configured")
	}

	prompt, err := s.prompts.Render(t, prompts.Data{
		Title:      in.Title,
		Language:   in.Language,
		Transcript: in.Transcript,
		Summary:    in.Summary,
	})
	if err != nil {
		return nil, err
	}

	gen, err := s.generator.Generate(ctx, prompt+suffix)
	if err != nil {
		return nil, cache.ClassifyError(op, err)
	}
	if strings.TrimSpace(gen.Text) == "" {
		return nil, errors.External(op, errors.KindUpstream, nil, "Empty response from language model")
	}
	return gen, nil
}

// cost prices the token usage of gen.
func (s *service) cost(gen *Generation) float64 {
	return float64(gen.InputTokens)*s.config.InputPricePerMTok/1e6 +
		float64(gen.OutputTokens)*s.config.OutputPricePerMTok/1e6
}

type summaryResponse struct {
	Summary  string   `json:"summary"`
	Tags     []string `json:"tags"`
	MainTags []string `json:"mainTags"`
}

// parseSummary extracts the JSON object from a model response. Responses
// that are not JSON are taken as the summary text itself.
func parseSummary(text string) summaryResponse {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		var resp summaryResponse
		if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err == nil && resp.Summary != "" {
			resp.Summary = strings.TrimSpace(resp.Summary)
			return resp
		}
	}
	return summaryResponse{Summary: strings.TrimSpace(stripFences(text))}
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if i := strings.Index(text, "\n"); i >= 0 {
		text = text[i+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(text), "```")
}

// normalizeTags lowercases, trims and de-duplicates tags, keeping order.
func normalizeTags(tags []string, limit int) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.Join(strings.Fields(tag), " "))
		tag = strings.TrimPrefix(tag, "#")
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
		if len(out) == limit {
			break
		}
	}
	return out
}

func (s *service) mainTags(tags []string) []string {
	normalized := normalizeTags(tags, s.config.MaxMainTags)
	title := cases.Title(language.Und)
	for i, tag := range normalized {
		normalized[i] = title.String(tag)
	}
	return normalized
}
