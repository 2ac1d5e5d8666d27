package validation

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/nijaru/yt-digest/errors"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

var youtubeHosts = []string{
	"youtube.com",
	"www.youtube.com",
	"m.youtube.com",
	"music.youtube.com",
	"youtu.be",
	"www.youtube-nocookie.com",
}

// Transcription methods accepted by the analyze endpoint.
var methods = []string{"", "auto", "captions", "whisper"}

type Validator struct {
	maxUploadBytes int64
}

func NewValidator(maxUploadBytes int64) *Validator {
	return &Validator{maxUploadBytes: maxUploadBytes}
}

// ValidateURL accepts only http(s) URLs on YouTube hosts.
func (v *Validator) ValidateURL(urlStr string) error {
	const op = "Validator.ValidateURL"

	urlStr = strings.TrimSpace(urlStr)
	if urlStr == "" {
		return errors.InvalidInput(op, nil, "URL is required")
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return errors.InvalidInput(op, err, "Invalid URL format")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.InvalidInput(op, nil, "URL must use HTTP or HTTPS")
	}

	if !slices.Contains(youtubeHosts, strings.ToLower(parsedURL.Hostname())) {
		return errors.InvalidInput(op, nil, "Only YouTube URLs are supported")
	}

	return nil
}

// ExtractVideoID returns the 11 character video id from a YouTube URL. A
// bare id is accepted as well.
func (v *Validator) ExtractVideoID(urlStr string) (string, error) {
	const op = "Validator.ExtractVideoID"

	urlStr = strings.TrimSpace(urlStr)
	if videoIDPattern.MatchString(urlStr) {
		return urlStr, nil
	}

	if err := v.ValidateURL(urlStr); err != nil {
		return "", err
	}

	parsedURL, _ := url.Parse(urlStr)
	host := strings.ToLower(parsedURL.Hostname())
	segments := strings.Split(strings.Trim(parsedURL.Path, "/"), "/")

	var id string
	switch {
	case host == "youtu.be":
		id = segments[0]
	case parsedURL.Query().Get("v") != "":
		id = parsedURL.Query().Get("v")
	case len(segments) >= 2 && slices.Contains([]string{"shorts", "embed", "live", "v"}, segments[0]):
		id = segments[1]
	}

	if !videoIDPattern.MatchString(id) {
		return "", errors.InvalidInput(op, nil, "URL does not contain a valid YouTube video ID")
	}
	return id, nil
}

// ValidateVideoID checks an id taken from a request body.
func (v *Validator) ValidateVideoID(id string) error {
	const op = "Validator.ValidateVideoID"

	if strings.TrimSpace(id) == "" {
		return errors.InvalidInput(op, nil, "videoId is required")
	}
	if len(id) > 128 {
		return errors.InvalidInput(op, nil, "videoId is too long")
	}
	return nil
}

func (v *Validator) ValidateMethod(method string) error {
	const op = "Validator.ValidateMethod"

	if !slices.Contains(methods, method) {
		return errors.InvalidInput(op, nil, fmt.Sprintf("Unsupported transcription method: %s", method))
	}
	return nil
}

func (v *Validator) ValidateUploadSize(size int64) error {
	const op = "Validator.ValidateUploadSize"

	if size <= 0 {
		return errors.InvalidInput(op, nil, "Uploaded file is empty")
	}
	if v.maxUploadBytes > 0 && size > v.maxUploadBytes {
		return errors.InvalidInput(op, nil, fmt.Sprintf("File exceeds the %d MB upload limit", v.maxUploadBytes/(1024*1024)))
	}
	return nil
}

// RequestValidationOpts holds options for request validation
type RequestValidationOpts struct {
	MaxContentLength int64
	RequireJSON      bool
}

// ValidateRequest validates HTTP requests
func (v *Validator) ValidateRequest(r *http.Request, opts RequestValidationOpts) error {
	const op = "Validator.ValidateRequest"

	if opts.RequireJSON {
		if contentType := r.Header.Get("Content-Type"); !strings.Contains(contentType, "application/json") {
			return errors.InvalidInput(op, nil, "Content-Type must be application/json")
		}
	}

	if opts.MaxContentLength > 0 && r.ContentLength > opts.MaxContentLength {
		return errors.InvalidInput(op, nil, "Request body too large")
	}

	return nil
}
