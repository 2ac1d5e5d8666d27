package analysis

import (
	"context"
	"io"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/ledger"
	"github.com/nijaru/yt-digest/logger"
	"github.com/nijaru/yt-digest/models"
	"github.com/nijaru/yt-digest/services/summary"
	"github.com/nijaru/yt-digest/services/transcript"
	"github.com/nijaru/yt-digest/session"
	"github.com/nijaru/yt-digest/validation"
	"github.com/nijaru/yt-digest/view"
)

type fakeMetadata struct {
	err error
}

func (f *fakeMetadata) Metadata(ctx context.Context, videoID string) (models.VideoMetadata, error) {
	if f.err != nil {
		return models.VideoMetadata{}, f.err
	}
	return models.VideoMetadata{
		Basic:    models.BasicInfo{VideoID: videoID, Title: "Test Video", Duration: 125},
		Chapters: []models.Chapter{},
		Captions: []models.Caption{},
		Stats:    models.Stats{Keywords: []string{}},
	}, nil
}

type fakeTranscripts struct {
	result *transcript.Result
	err    error
	opts   transcript.Options
}

func (f *fakeTranscripts) FromVideo(ctx context.Context, videoID string, opts transcript.Options) (*transcript.Result, error) {
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	return &res, nil
}

func (f *fakeTranscripts) FromFile(ctx context.Context, name string, r io.Reader, language string) (*transcript.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	io.Copy(io.Discard, r)
	res := *f.result
	res.ContentHash = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	return &res, nil
}

type fakeSummaries struct {
	summaryCalls int
	articleCalls int
}

func (f *fakeSummaries) Summarize(ctx context.Context, in summary.Input) (*summary.Summary, error) {
	f.summaryCalls++
	return &summary.Summary{
		Content:  "A summary of " + in.Title,
		Tags:     []string{"go", "testing"},
		MainTags: []string{"Go"},
		Cost:     0.002,
		Model:    "gemini-2.5-flash",
	}, nil
}

func (f *fakeSummaries) Article(ctx context.Context, in summary.Input) (*summary.Article, error) {
	f.articleCalls++
	return &summary.Article{Content: "# " + in.Title, Cost: 0.01, Model: "gemini-2.5-flash"}, nil
}

func (f *fakeSummaries) Model() string { return "gemini-2.5-flash" }

type fakeRuns struct {
	mu       sync.Mutex
	runs     map[string]*models.Run
	statuses map[string]models.RunStatus
}

func newFakeRuns() *fakeRuns {
	return &fakeRuns{runs: map[string]*models.Run{}, statuses: map[string]models.RunStatus{}}
}

func (f *fakeRuns) Start(ctx context.Context, run *models.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run.ID = "run-" + run.VideoID
	run.Status = models.RunProcessing
	f.runs[run.ID] = run
	f.statuses[run.ID] = run.Status
	return nil
}

func (f *fakeRuns) Finish(ctx context.Context, id string, status models.RunStatus, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = status
	return nil
}

func (f *fakeRuns) Recent(ctx context.Context, limit int) ([]*models.Run, error) { return nil, nil }

func (f *fakeRuns) Latest(ctx context.Context, videoID string) (*models.Run, error) {
	return nil, errors.NotFound("fakeRuns.Latest", nil, "no runs")
}

type fixture struct {
	svc         Service
	history     *ledger.History
	costs       *ledger.Costs
	runs        *fakeRuns
	metadata    *fakeMetadata
	transcripts *fakeTranscripts
	summaries   *fakeSummaries
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		history:  ledger.NewHistory(ledger.Options{Path: filepath.Join(dir, "history.json"), Logger: logger.Discard()}),
		costs:    ledger.NewCosts(ledger.Options{Path: filepath.Join(dir, "costs.json"), Logger: logger.Discard()}),
		runs:     newFakeRuns(),
		metadata: &fakeMetadata{},
		transcripts: &fakeTranscripts{result: &transcript.Result{
			Text:        "hello world",
			Segments:    []models.Segment{{Start: 0, End: 2, Text: "hello world"}},
			Method:      models.MethodWhisper,
			Language:    "en",
			Duration:    125,
			WhisperCost: 0.018,
		}},
		summaries: &fakeSummaries{},
	}
	f.svc = NewService(Deps{
		Metadata:    f.metadata,
		Transcripts: f.transcripts,
		Summaries:   f.summaries,
		History:     f.history,
		Costs:       f.costs,
		Runs:        f.runs,
		Validator:   validation.NewValidator(1024),
		Logger:      logger.Discard(),
	})
	return f
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAnalyze(t *testing.T) {
	f := newFixture(t)
	sess := &session.Session{ID: "s1"}

	res, err := f.svc.Analyze(context.Background(), sess, Request{
		URL:       "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Method:    "whisper",
		Language:  "en",
		Summarize: true,
	})
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}

	if res.Entry.ID != "dQw4w9WgXcQ" || res.Entry.Title != "Test Video" {
		t.Errorf("unexpected entry %+v", res.Entry)
	}
	if res.View.Summary != "A summary of Test Video" {
		t.Errorf("unexpected view summary %q", res.View.Summary)
	}
	if !almostEqual(res.View.Costs.Transcription, 0.018) || !almostEqual(res.View.Costs.Summary, 0.002) {
		t.Errorf("unexpected view costs %+v", res.View.Costs)
	}
	if f.transcripts.opts.Method != "whisper" || f.transcripts.opts.Language != "en" {
		t.Errorf("options not passed through: %+v", f.transcripts.opts)
	}

	if _, ok := f.history.Find("dQw4w9WgXcQ"); !ok {
		t.Error("expected entry in history")
	}
	costs := f.costs.All()
	if len(costs) != 1 || !almostEqual(costs[0].WhisperCost, 0.018) || !almostEqual(costs[0].GPTCost, 0.002) {
		t.Errorf("unexpected cost ledger %+v", costs)
	}

	cur, ok := sess.Current()
	if !ok || cur.VideoID != "dQw4w9WgXcQ" || cur.Summary != "A summary of Test Video" {
		t.Errorf("unexpected session current %+v", cur)
	}
	if sc := sess.Costs("host", time.Now()); !almostEqual(sc.Total, 0.02) {
		t.Errorf("unexpected session total %v", sc.Total)
	}
	if f.runs.statuses["run-dQw4w9WgXcQ"] != models.RunCompleted {
		t.Errorf("expected completed run, got %v", f.runs.statuses)
	}
}

func TestAnalyzeWhisperWithoutSummaryCountsTranscriptionOnce(t *testing.T) {
	f := newFixture(t)
	sess := &session.Session{ID: "s1"}

	res, err := f.svc.Analyze(context.Background(), sess, Request{URL: "dQw4w9WgXcQ", Method: "whisper"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Entry.Cost != 0 {
		t.Errorf("expected no LLM cost on the entry, got %v", res.Entry.Cost)
	}

	entry, ok := f.history.Find("dQw4w9WgXcQ")
	if !ok {
		t.Fatal("expected entry in history")
	}
	for name, v := range map[string]models.VideoView{"response": res.View, "history": view.FromEntry(entry)} {
		if !almostEqual(v.Costs.Transcription, 0.018) || v.Costs.Summary != 0 || !almostEqual(v.Costs.Total, 0.018) {
			t.Errorf("%s: unexpected costs %+v", name, v.Costs)
		}
	}
}

func TestAnalyzeCachedTranscriptIsFree(t *testing.T) {
	f := newFixture(t)
	f.transcripts.result.Cached = true
	sess := &session.Session{ID: "s1"}

	if _, err := f.svc.Analyze(context.Background(), sess, Request{URL: "dQw4w9WgXcQ"}); err != nil {
		t.Fatal(err)
	}
	if c := f.costs.All()[0]; c.WhisperCost != 0 || c.TotalCost != 0 {
		t.Errorf("expected no spend for a cached transcript, got %+v", c)
	}
}

func TestAnalyzeInvalidInput(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		req  Request
	}{
		{"empty url", Request{}},
		{"not youtube", Request{URL: "https://vimeo.com/123"}},
		{"bad method", Request{URL: "dQw4w9WgXcQ", Method: "telepathy"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Analyze(context.Background(), &session.Session{}, tt.req)
			if code := errors.StatusCode(err); code != 400 {
				t.Errorf("expected 400, got %d (%v)", code, err)
			}
		})
	}
	if len(f.runs.runs) != 0 {
		t.Errorf("invalid requests should not start runs")
	}
}

func TestAnalyzeUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.metadata.err = errors.External("test", errors.KindQuotaExceeded, nil, "Upstream quota exceeded")
	sess := &session.Session{ID: "s1"}

	_, err := f.svc.Analyze(context.Background(), sess, Request{URL: "https://youtu.be/dQw4w9WgXcQ"})
	if !errors.IsKind(err, errors.KindQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if f.runs.statuses["run-dQw4w9WgXcQ"] != models.RunFailed {
		t.Errorf("expected failed run")
	}
	if len(f.history.All()) != 0 || len(f.costs.All()) != 0 {
		t.Errorf("failed analysis must not touch the ledgers")
	}
	if _, ok := sess.Current(); ok {
		t.Errorf("failed analysis must not change the session")
	}
}

func TestReanalysisKeepsSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := &session.Session{ID: "s1"}

	if _, err := f.svc.Analyze(ctx, sess, Request{URL: "dQw4w9WgXcQ", Summarize: true}); err != nil {
		t.Fatal(err)
	}
	res, err := f.svc.Analyze(ctx, sess, Request{URL: "dQw4w9WgXcQ"})
	if err != nil {
		t.Fatal(err)
	}
	if res.View.Summary != "A summary of Test Video" {
		t.Errorf("expected earlier summary to survive, got %q", res.View.Summary)
	}
	if len(f.history.All()) != 1 {
		t.Errorf("expected one history entry, got %d", len(f.history.All()))
	}
	if f.summaries.summaryCalls != 1 {
		t.Errorf("expected one summary call, got %d", f.summaries.summaryCalls)
	}
}

func TestGenerateArticle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := &session.Session{ID: "s1"}

	if _, err := f.svc.GenerateArticle(ctx, sess, "unknown"); !errors.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}

	if _, err := f.svc.Analyze(ctx, sess, Request{URL: "dQw4w9WgXcQ"}); err != nil {
		t.Fatal(err)
	}
	res, err := f.svc.GenerateArticle(ctx, sess, "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("GenerateArticle() error: %v", err)
	}
	if res.Article != "# Test Video" || !almostEqual(res.Cost, 0.01) {
		t.Errorf("unexpected article %+v", res)
	}

	entry, _ := f.history.Find("dQw4w9WgXcQ")
	if entry.Article != "# Test Video" || !almostEqual(entry.ArticleCost, 0.01) {
		t.Errorf("article not stored: %+v", entry)
	}
	if len(f.costs.All()) != 2 {
		t.Errorf("expected article spend in the cost ledger")
	}
}

func TestLoadFromHistory(t *testing.T) {
	f := newFixture(t)
	f.history.AddOrReplace(models.HistoryEntry{
		ID:         "abc",
		Title:      "Stored",
		Transcript: "stored words",
		Summary:    "legacy summary",
	})
	sess := &session.Session{ID: "s1"}

	if _, err := f.svc.LoadFromHistory(sess, ""); errors.StatusCode(err) != 400 {
		t.Errorf("expected 400 for missing id, got %v", err)
	}
	if _, err := f.svc.LoadFromHistory(sess, "missing"); !errors.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}

	entry, err := f.svc.LoadFromHistory(sess, "abc")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Title != "Stored" {
		t.Errorf("unexpected entry %+v", entry)
	}
	cur, ok := sess.Current()
	if !ok || cur.Transcript != "stored words" || cur.Summary != "legacy summary" {
		t.Errorf("unexpected session current %+v", cur)
	}
}

func TestSaveArticle(t *testing.T) {
	f := newFixture(t)
	f.history.AddOrReplace(models.HistoryEntry{ID: "abc"})

	if _, err := f.svc.SaveArticle("abc", "  "); errors.StatusCode(err) != 400 {
		t.Errorf("expected 400, got %v", err)
	}
	if _, err := f.svc.SaveArticle("missing", "text"); !errors.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	entry, err := f.svc.SaveArticle("abc", "edited")
	if err != nil || entry.Article != "edited" {
		t.Errorf("unexpected result %+v, %v", entry, err)
	}
}

func TestAnalyzeFile(t *testing.T) {
	f := newFixture(t)
	sess := &session.Session{ID: "s1"}

	res, err := f.svc.AnalyzeFile(context.Background(), sess, Upload{
		Name:   "lecture notes.mp3",
		Reader: strings.NewReader("ID3"),
		Size:   3,
	})
	if err != nil {
		t.Fatalf("AnalyzeFile() error: %v", err)
	}
	if res.Entry.ID != "file-0123456789ab" || res.Entry.Title != "lecture notes" {
		t.Errorf("unexpected entry %+v", res.Entry)
	}
	if res.View.Basic.Title != "lecture notes" {
		t.Errorf("unexpected view title %q", res.View.Basic.Title)
	}

	_, err = f.svc.AnalyzeFile(context.Background(), sess, Upload{Name: "big.mp3", Reader: strings.NewReader(""), Size: 4096})
	if errors.StatusCode(err) != 400 {
		t.Errorf("expected 400 for oversized upload, got %v", err)
	}
}
