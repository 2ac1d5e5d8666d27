package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/nijaru/yt-digest/cache"
	"github.com/nijaru/yt-digest/models"
	"github.com/pkg/errors"
)

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (*WhisperResult, error)
}

type WhisperResult struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
	Segments []models.Segment `json:"segments"`
}

type WhisperConfig struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// WhisperClient talks to an OpenAI-compatible transcription endpoint.
type WhisperClient struct {
	config WhisperConfig
	client *http.Client
}

func NewWhisperClient(cfg WhisperConfig) *WhisperClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &WhisperClient{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *WhisperClient) Transcribe(ctx context.Context, audioPath, language string) (*WhisperResult, error) {
	const op = "WhisperClient.Transcribe"

	body, contentType, err := c.buildForm(audioPath, language)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, body)
	if err != nil {
		return nil, errors.Wrap(err, "build whisper request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, cache.ClassifyError(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, cache.ClassifyError(op, err)
	}

	if resp.StatusCode != http.StatusOK {
		message := errorMessage(data)
		return nil, cache.ClassifyStatus(op,
			fmt.Errorf("whisper returned %d: %s", resp.StatusCode, message),
			resp.StatusCode, message)
	}

	var result WhisperResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, cache.ClassifyError(op, errors.Wrap(err, "decode whisper response"))
	}
	if result.Segments == nil {
		result.Segments = []models.Segment{}
	}
	return &result, nil
}

func (c *WhisperClient) buildForm(audioPath, language string) (io.Reader, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", errors.Wrap(err, "open audio file")
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", errors.Wrap(err, "create form file")
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", errors.Wrap(err, "copy audio file")
	}

	fields := map[string]string{
		"model":           c.config.Model,
		"response_format": "verbose_json",
	}
	if language != "" {
		fields["language"] = language
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", errors.Wrap(err, "write form field")
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "close form")
	}
	return &buf, w.FormDataContentType(), nil
}

func errorMessage(data []byte) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return string(bytes.TrimSpace(data))
}
