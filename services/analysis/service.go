// Package analysis runs one analysis end to end: metadata, transcript,
// optional summary and article, then the history and cost ledgers, the
// caller's session and the run log.
package analysis

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/ledger"
	"github.com/nijaru/yt-digest/models"
	"github.com/nijaru/yt-digest/repository"
	"github.com/nijaru/yt-digest/services/summary"
	"github.com/nijaru/yt-digest/services/transcript"
	"github.com/nijaru/yt-digest/services/youtube"
	"github.com/nijaru/yt-digest/session"
	"github.com/nijaru/yt-digest/validation"
	"github.com/nijaru/yt-digest/view"
	"github.com/sirupsen/logrus"
)

const (
	SourceYouTube = "youtube"
	SourceUpload  = "upload"
)

type Deps struct {
	Metadata    youtube.MetadataClient
	Transcripts Transcripts
	Summaries   summary.Service
	History     *ledger.History
	Costs       *ledger.Costs
	Runs        repository.RunRepository
	Validator   *validation.Validator
	Logger      *logrus.Logger
}

type service struct {
	metadata    youtube.MetadataClient
	transcripts Transcripts
	summaries   summary.Service
	history     *ledger.History
	costs       *ledger.Costs
	runs        repository.RunRepository
	validator   *validation.Validator
	logger      *logrus.Logger
	now         func() time.Time
}

func NewService(deps Deps) Service {
	return &service{
		metadata:    deps.Metadata,
		transcripts: deps.Transcripts,
		summaries:   deps.Summaries,
		history:     deps.History,
		costs:       deps.Costs,
		runs:        deps.Runs,
		validator:   deps.Validator,
		logger:      deps.Logger,
		now:         time.Now,
	}
}

func (s *service) Analyze(ctx context.Context, sess *session.Session, req Request) (*Result, error) {
	const op = "AnalysisService.Analyze"

	videoID, err := s.validator.ExtractVideoID(req.URL)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateMethod(req.Method); err != nil {
		return nil, err
	}

	logger := s.logger.WithFields(logrus.Fields{
		"operation":  op,
		"video_id":   videoID,
		"method":     req.Method,
		"session_id": sess.ID,
	})
	logger.Info("Starting analysis")

	run := s.startRun(ctx, videoID, SourceYouTube, req.Method)

	meta, err := s.metadata.Metadata(ctx, videoID)
	if err != nil {
		s.finishRun(ctx, run, err)
		return nil, err
	}

	tr, err := s.transcripts.FromVideo(ctx, videoID, transcript.Options{
		Method:   req.Method,
		Language: req.Language,
	})
	if err != nil {
		s.finishRun(ctx, run, err)
		return nil, err
	}
	if meta.Basic.Duration <= 0 {
		meta.Basic.Duration = tr.Duration
	}

	entry := models.HistoryEntry{
		ID:       videoID,
		Title:    meta.Basic.Title,
		URL:      "https://www.youtube.com/watch?v=" + videoID,
		Metadata: models.AsRecord(meta),
	}

	result, err := s.complete(ctx, sess, entry, tr, req.Summarize, req.GenerateArticle)
	s.finishRun(ctx, run, err)
	if err != nil {
		return nil, err
	}

	logger.WithField("transcript_method", tr.Method).Info("Analysis completed")
	return result, nil
}

func (s *service) AnalyzeFile(ctx context.Context, sess *session.Session, upload Upload) (*Result, error) {
	const op = "AnalysisService.AnalyzeFile"

	if upload.Name == "" || upload.Reader == nil {
		return nil, errors.InvalidInput(op, nil, "File is required")
	}
	if err := s.validator.ValidateUploadSize(upload.Size); err != nil {
		return nil, err
	}

	run := s.startRun(ctx, upload.Name, SourceUpload, "")

	tr, err := s.transcripts.FromFile(ctx, upload.Name, upload.Reader, upload.Language)
	if err != nil {
		s.finishRun(ctx, run, err)
		return nil, err
	}

	id := fileID(tr.ContentHash)
	title := strings.TrimSuffix(filepath.Base(upload.Name), filepath.Ext(upload.Name))
	meta := models.VideoMetadata{
		Basic:    models.BasicInfo{Title: title, VideoID: id, Duration: tr.Duration},
		Chapters: []models.Chapter{},
		Captions: []models.Caption{},
		Stats:    models.Stats{Keywords: []string{}},
	}

	entry := models.HistoryEntry{
		ID:       id,
		Title:    title,
		Metadata: models.AsRecord(meta),
	}

	result, err := s.complete(ctx, sess, entry, tr, upload.Summarize, false)
	s.finishRun(ctx, run, err)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"operation":  op,
		"id":         id,
		"method":     tr.Method,
		"session_id": sess.ID,
	}).Info("File analysis completed")
	return result, nil
}

// complete fills entry from the transcript, runs the optional model steps and
// records everything.
func (s *service) complete(
	ctx context.Context,
	sess *session.Session,
	entry models.HistoryEntry,
	tr *transcript.Result,
	summarize, article bool,
) (*Result, error) {
	entry.Transcript = tr.Text
	entry.Method = tr.Method
	entry.Language = tr.Language
	entry.TimestampedSegments = tr.Segments
	entry.Tags = []string{}
	entry.MainTags = []string{}

	whisperCost := tr.WhisperCost
	if tr.Cached {
		whisperCost = 0
	}

	// Keep earlier model output when this run does not replace it.
	if prev, ok := s.history.Find(entry.ID); ok {
		entry.Summary = prev.Summary
		entry.Tags = nonNil(prev.Tags)
		entry.MainTags = nonNil(prev.MainTags)
		entry.GPTModel = prev.GPTModel
		entry.Article = prev.Article
		entry.ArticleCost = prev.ArticleCost
	}

	var gptCost float64
	input := summary.Input{Title: entry.Title, Language: entry.Language, Transcript: entry.Transcript}

	if summarize {
		sum, err := s.summaries.Summarize(ctx, input)
		if err != nil {
			return nil, err
		}
		entry.Summary = models.SummaryResult{Content: sum.Content, Cost: sum.Cost, Model: sum.Model}
		entry.Tags = sum.Tags
		entry.MainTags = sum.MainTags
		entry.GPTModel = sum.Model
		gptCost += sum.Cost
		input.Summary = sum.Content
	}

	if article {
		art, err := s.summaries.Article(ctx, input)
		if err != nil {
			return nil, err
		}
		entry.Article = art.Content
		entry.ArticleCost = art.Cost
		entry.GPTModel = art.Model
		gptCost += art.Cost
	}

	now := s.now()
	// Transcription spend is derived from the duration when the entry is
	// viewed; the stored cost is LLM spend only.
	entry.Cost = gptCost
	entry.Timestamp = now.UTC().Format(time.RFC3339)

	s.history.AddOrReplace(entry)
	s.costs.Append(models.NewCostEntry(now, entry.ID, entry.Title, entry.Method, entry.Language,
		entry.GPTModel, whisperCost, gptCost))

	summaryText := view.CoerceSummary(entry.Summary)
	sess.SetCurrent(session.FromEntry(entry, summaryText))
	sess.AddCosts(whisperCost, gptCost)

	return &Result{Entry: entry, View: view.FromEntry(entry)}, nil
}

func (s *service) GenerateArticle(ctx context.Context, sess *session.Session, videoID string) (*ArticleResult, error) {
	const op = "AnalysisService.GenerateArticle"

	if videoID == "" {
		return nil, errors.InvalidInput(op, nil, "videoId is required")
	}
	entry, ok := s.history.Find(videoID)
	if !ok {
		return nil, errors.NotFound(op, nil, "Video not found in history")
	}
	if strings.TrimSpace(entry.Transcript) == "" {
		return nil, errors.InvalidInput(op, nil, "Video has no transcript")
	}

	art, err := s.summaries.Article(ctx, summary.Input{
		Title:      entry.Title,
		Language:   entry.Language,
		Transcript: entry.Transcript,
		Summary:    view.CoerceSummary(entry.Summary),
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.history.SetArticle(videoID, art.Content, art.Cost); err != nil {
		return nil, err
	}
	s.costs.Append(models.NewCostEntry(s.now(), entry.ID, entry.Title, entry.Method, entry.Language,
		art.Model, 0, art.Cost))
	sess.AddCosts(0, art.Cost)

	s.logger.WithFields(logrus.Fields{
		"operation":  op,
		"video_id":   videoID,
		"session_id": sess.ID,
		"cost":       art.Cost,
	}).Info("Article generated")

	return &ArticleResult{Article: art.Content, Cost: art.Cost}, nil
}

func (s *service) SaveArticle(videoID, article string) (models.HistoryEntry, error) {
	const op = "AnalysisService.SaveArticle"

	if videoID == "" || strings.TrimSpace(article) == "" {
		return models.HistoryEntry{}, errors.InvalidInput(op, nil, "videoId and article are required")
	}
	return s.history.SetArticle(videoID, article, 0)
}

func (s *service) LoadFromHistory(sess *session.Session, videoID string) (models.HistoryEntry, error) {
	const op = "AnalysisService.LoadFromHistory"

	if videoID == "" {
		return models.HistoryEntry{}, errors.InvalidInput(op, nil, "videoId is required")
	}
	entry, ok := s.history.Find(videoID)
	if !ok {
		return models.HistoryEntry{}, errors.NotFound(op, nil, "Video not found in history")
	}

	sess.SetCurrent(session.FromEntry(entry, view.CoerceSummary(entry.Summary)))
	return entry, nil
}

// startRun records the attempt. The run log is advisory, so failures are
// logged and the analysis continues.
func (s *service) startRun(ctx context.Context, videoID, source, method string) *models.Run {
	if s.runs == nil {
		return nil
	}
	if method == "" {
		method = transcript.MethodAuto
	}
	run := &models.Run{VideoID: videoID, Source: source, Method: method}
	if err := s.runs.Start(ctx, run); err != nil {
		s.logger.WithError(err).WithField("video_id", videoID).Warn("Failed to record run start")
		return nil
	}
	return run
}

func (s *service) finishRun(ctx context.Context, run *models.Run, runErr error) {
	if run == nil {
		return
	}
	status, message := models.RunCompleted, ""
	if runErr != nil {
		status, message = models.RunFailed, runErr.Error()
	}
	if err := s.runs.Finish(context.WithoutCancel(ctx), run.ID, status, message); err != nil {
		s.logger.WithError(err).WithField("run_id", run.ID).Warn("Failed to record run result")
	}
}

// fileID derives a stable history id from the upload's content hash.
func fileID(hash string) string {
	if len(hash) > 12 {
		hash = hash[:12]
	}
	return "file-" + hash
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
