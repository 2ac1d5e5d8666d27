// Package transcript produces transcripts for YouTube videos and uploaded
// files. Captions come from yt-dlp, speech from a Whisper endpoint and PDF
// text from pdftotext.
package transcript

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nijaru/yt-digest/cache"
	apperrors "github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/models"
	"github.com/nijaru/yt-digest/scripts"
	"github.com/nijaru/yt-digest/utils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	MethodAuto = "auto"
)

var ErrNoCaptions = errors.New("no caption track available")

var audioExtensions = map[string]bool{
	".mp3": true, ".m4a": true, ".wav": true, ".webm": true, ".mp4": true,
	".mpeg": true, ".mpga": true, ".ogg": true, ".oga": true, ".flac": true,
}

// CommandRunner runs an external tool and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

type Config struct {
	YTDLPPath       string
	PDFToTextPath   string
	AudioDir        string
	TempDir         string
	DefaultLanguage string
	PricePerMinute  float64
	MaxUploadBytes  int64
}

type Options struct {
	Method   string
	Language string
}

// Result is a finished transcript. Cached is set when the transcript came
// from the cache, in which case no transcription spend occurred.
type Result struct {
	Text        string           `json:"text"`
	Segments    []models.Segment `json:"segments"`
	Method      string           `json:"method"`
	Language    string           `json:"language"`
	Duration    float64          `json:"duration"`
	WhisperCost float64          `json:"whisperCost"`
	ContentHash string           `json:"contentHash,omitempty"`
	Cached      bool             `json:"-"`
}

type Service struct {
	config  Config
	runner  CommandRunner
	whisper Transcriber
	fetcher *cache.Fetcher
	logger  *logrus.Logger

	locks sync.Map
}

// NewService wires the transcript sources. whisper may be nil when no API
// key is configured.
func NewService(cfg Config, runner CommandRunner, whisper Transcriber, fetcher *cache.Fetcher, logger *logrus.Logger) *Service {
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	return &Service{
		config:  cfg,
		runner:  runner,
		whisper: whisper,
		fetcher: fetcher,
		logger:  logger,
	}
}

func (s *Service) lock(key string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// FromVideo returns the transcript of a YouTube video.
func (s *Service) FromVideo(ctx context.Context, videoID string, opts Options) (*Result, error) {
	const op = "TranscriptService.FromVideo"

	method := opts.Method
	if method == "" {
		method = MethodAuto
	}
	language := opts.Language
	if language == "" {
		language = s.config.DefaultLanguage
	}
	if method == models.MethodWhisper && s.whisper == nil {
		return nil, apperrors.InvalidInput(op, nil, "Whisper transcription is not configured")
	}

	mu := s.lock(videoID)
	mu.Lock()
	defer mu.Unlock()

	fetched := false
	key := videoID + "|" + method + "|" + language
	result, err := cache.FetchWithCache(ctx, s.fetcher, cache.KindTranscript, key, cache.KindTranscript.TTL(),
		func(ctx context.Context) (*Result, error) {
			fetched = true
			return s.transcribeVideo(ctx, videoID, method, language)
		})
	if err != nil {
		return nil, err
	}
	result.Cached = !fetched

	s.logger.WithFields(logrus.Fields{
		"video_id": videoID,
		"method":   result.Method,
		"cached":   result.Cached,
		"segments": len(result.Segments),
	}).Info("Transcript ready")

	return result, nil
}

func (s *Service) transcribeVideo(ctx context.Context, videoID, method, language string) (*Result, error) {
	const op = "TranscriptService.transcribeVideo"

	switch method {
	case models.MethodCaptions:
		res, err := s.captions(ctx, videoID, language)
		if errors.Is(err, ErrNoCaptions) {
			return nil, apperrors.NotFound(op, err, "No captions available for this video")
		}
		return res, err

	case models.MethodWhisper:
		return s.whisperVideo(ctx, videoID, language)

	default:
		res, err := s.captions(ctx, videoID, language)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrNoCaptions) {
			return nil, err
		}
		if s.whisper == nil {
			return nil, apperrors.NotFound(op, err, "No captions available and Whisper is not configured")
		}
		s.logger.WithField("video_id", videoID).Info("No captions, falling back to Whisper")
		return s.whisperVideo(ctx, videoID, language)
	}
}

func (s *Service) captions(ctx context.Context, videoID, language string) (*Result, error) {
	const op = "TranscriptService.captions"

	dir, err := os.MkdirTemp(s.config.TempDir, "subs-")
	if err != nil {
		return nil, apperrors.Internal(op, err, "failed to create temp directory")
	}
	defer os.RemoveAll(dir)

	_, err = s.runner.Run(ctx, dir, s.config.YTDLPPath,
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", language+".*,"+language,
		"--sub-format", "json3",
		"-o", filepath.Join(dir, "%(id)s.%(ext)s"),
		watchURL(videoID),
	)
	if err != nil {
		return nil, classifyScriptError(op, err)
	}

	path, lang, err := pickSubtitle(dir, language)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Internal(op, err, "failed to read subtitles")
	}
	segments, err := ParseJSON3(data)
	if err != nil {
		return nil, apperrors.Internal(op, err, "failed to parse subtitles")
	}
	if len(segments) == 0 {
		return nil, ErrNoCaptions
	}

	return &Result{
		Text:     utils.SegmentsText(segments),
		Segments: segments,
		Method:   models.MethodCaptions,
		Language: lang,
		Duration: segments[len(segments)-1].End,
	}, nil
}

// pickSubtitle prefers the exact language over regional variants.
func pickSubtitle(dir, language string) (string, string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json3"))
	if err != nil || len(matches) == 0 {
		return "", "", ErrNoCaptions
	}

	best, bestLang := matches[0], subtitleLanguage(matches[0])
	for _, m := range matches {
		if lang := subtitleLanguage(m); lang == language {
			best, bestLang = m, lang
			break
		}
	}
	return best, bestLang, nil
}

// subtitleLanguage extracts "en-US" from "<id>.en-US.json3".
func subtitleLanguage(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), ".json3")
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return ""
}

func (s *Service) whisperVideo(ctx context.Context, videoID, language string) (*Result, error) {
	audioPath, err := s.audio(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return s.transcribeAudio(ctx, audioPath, language)
}

// audio downloads the audio track, reusing a cached download while the file
// still exists.
func (s *Service) audio(ctx context.Context, videoID string) (string, error) {
	download := func(ctx context.Context) (string, error) {
		return s.downloadAudio(ctx, videoID)
	}

	path, err := cache.FetchWithCache(ctx, s.fetcher, cache.KindAudio, videoID, cache.KindAudio.TTL(), download)
	if err != nil {
		return "", err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		return path, nil
	}

	s.logger.WithField("video_id", videoID).Debug("Cached audio file is gone, downloading again")
	if err := s.fetcher.Store().Delete(cache.KindAudio, videoID); err != nil {
		s.logger.WithError(err).Warn("Failed to drop stale audio entry")
	}
	return cache.FetchWithCache(ctx, s.fetcher, cache.KindAudio, videoID, cache.KindAudio.TTL(), download)
}

func (s *Service) downloadAudio(ctx context.Context, videoID string) (string, error) {
	const op = "TranscriptService.downloadAudio"

	if err := os.MkdirAll(s.config.AudioDir, 0755); err != nil {
		return "", apperrors.Internal(op, err, "failed to create audio directory")
	}

	_, err := s.runner.Run(ctx, s.config.AudioDir, s.config.YTDLPPath,
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "5",
		"--no-playlist",
		"-o", filepath.Join(s.config.AudioDir, "%(id)s.%(ext)s"),
		watchURL(videoID),
	)
	if err != nil {
		return "", classifyScriptError(op, err)
	}

	path := filepath.Join(s.config.AudioDir, videoID+".mp3")
	if _, err := os.Stat(path); err != nil {
		return "", apperrors.Internal(op, err, "audio download produced no file")
	}
	return path, nil
}

func (s *Service) transcribeAudio(ctx context.Context, audioPath, language string) (*Result, error) {
	const op = "TranscriptService.transcribeAudio"

	if s.whisper == nil {
		return nil, apperrors.InvalidInput(op, nil, "Whisper transcription is not configured")
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, apperrors.Internal(op, err, "failed to stat audio file")
	}
	if s.config.MaxUploadBytes > 0 && info.Size() > s.config.MaxUploadBytes {
		return nil, apperrors.InvalidInput(op, nil, "Audio file exceeds the transcription size limit")
	}

	wr, err := s.whisper.Transcribe(ctx, audioPath, language)
	if err != nil {
		return nil, err
	}

	duration := wr.Duration
	if duration <= 0 && len(wr.Segments) > 0 {
		duration = wr.Segments[len(wr.Segments)-1].End
	}
	lang := wr.Language
	if lang == "" {
		lang = language
	}

	return &Result{
		Text:        strings.TrimSpace(wr.Text),
		Segments:    wr.Segments,
		Method:      models.MethodWhisper,
		Language:    lang,
		Duration:    duration,
		WhisperCost: s.Cost(duration),
	}, nil
}

// Cost is the Whisper charge for duration seconds, billed per started
// minute.
func (s *Service) Cost(durationSeconds float64) float64 {
	if durationSeconds <= 0 {
		return 0
	}
	return math.Ceil(durationSeconds/60) * s.config.PricePerMinute
}

// FromFile transcribes an uploaded audio file or extracts the text of a PDF.
func (s *Service) FromFile(ctx context.Context, name string, r io.Reader, language string) (*Result, error) {
	const op = "TranscriptService.FromFile"

	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".pdf" && !audioExtensions[ext] {
		return nil, apperrors.InvalidInput(op, nil, "Unsupported file type: "+ext)
	}
	if language == "" {
		language = s.config.DefaultLanguage
	}

	path, hash, err := s.saveUpload(r, ext)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	var result *Result
	if ext == ".pdf" {
		result, err = s.pdfText(ctx, path, language)
	} else {
		result, err = s.transcribeAudio(ctx, path, language)
	}
	if err != nil {
		return nil, err
	}
	result.ContentHash = hash
	return result, nil
}

func (s *Service) saveUpload(r io.Reader, ext string) (string, string, error) {
	const op = "TranscriptService.saveUpload"

	if err := os.MkdirAll(s.config.TempDir, 0755); err != nil {
		return "", "", apperrors.Internal(op, err, "failed to create temp directory")
	}
	f, err := os.CreateTemp(s.config.TempDir, "upload-*"+ext)
	if err != nil {
		return "", "", apperrors.Internal(op, err, "failed to create upload file")
	}
	defer f.Close()

	hasher := sha256.New()
	src := r
	if s.config.MaxUploadBytes > 0 {
		src = io.LimitReader(r, s.config.MaxUploadBytes+1)
	}
	n, err := io.Copy(io.MultiWriter(f, hasher), src)
	if err != nil {
		os.Remove(f.Name())
		return "", "", apperrors.Internal(op, err, "failed to store upload")
	}
	if s.config.MaxUploadBytes > 0 && n > s.config.MaxUploadBytes {
		os.Remove(f.Name())
		return "", "", apperrors.InvalidInput(op, nil, "File exceeds the upload size limit")
	}

	return f.Name(), hex.EncodeToString(hasher.Sum(nil)), nil
}

func (s *Service) pdfText(ctx context.Context, path, language string) (*Result, error) {
	const op = "TranscriptService.pdfText"

	out, err := s.runner.Run(ctx, filepath.Dir(path), s.config.PDFToTextPath, "-layout", path, "-")
	if err != nil {
		return nil, apperrors.Internal(op, err, "failed to extract PDF text")
	}
	text := strings.TrimSpace(string(out))
	if text == "" {
		return nil, apperrors.InvalidInput(op, nil, "PDF contains no extractable text")
	}

	return &Result{
		Text:     text,
		Segments: []models.Segment{},
		Method:   models.MethodPDF,
		Language: language,
	}, nil
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// classifyScriptError maps yt-dlp failures onto the upstream error kinds.
func classifyScriptError(op string, err error) error {
	var scriptErr *scripts.ScriptError
	if !errors.As(err, &scriptErr) {
		return cache.ClassifyError(op, err)
	}

	stderr := scriptErr.Stderr
	switch {
	case strings.Contains(stderr, "HTTP Error 429"):
		return cache.ClassifyStatus(op, err, 429, stderr)
	case strings.Contains(stderr, "HTTP Error 403"):
		return cache.ClassifyStatus(op, err, 403, stderr)
	case strings.Contains(stderr, "Video unavailable"), strings.Contains(stderr, "Private video"):
		return apperrors.NotFound(op, err, "Video unavailable")
	default:
		return cache.ClassifyError(op, err)
	}
}
