package validation

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestValidateURL(t *testing.T) {
	validator := NewValidator(0)

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "Empty URL", url: "", wantErr: true},
		{name: "JavaScript URL", url: "javascript:alert(1)", wantErr: true},
		{name: "Invalid URL format", url: "not-a-url", wantErr: true},
		{name: "Non-HTTP scheme", url: "ftp://youtube.com/watch?v=dQw4w9WgXcQ", wantErr: true},
		{name: "Other host", url: "https://vimeo.com/12345", wantErr: true},
		{name: "Lookalike host", url: "https://youtube.com.evil.example/watch?v=dQw4w9WgXcQ", wantErr: true},
		{name: "Watch URL", url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", wantErr: false},
		{name: "Short URL", url: "https://youtu.be/dQw4w9WgXcQ", wantErr: false},
		{name: "Mobile URL", url: "https://m.youtube.com/watch?v=dQw4w9WgXcQ", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExtractVideoID(t *testing.T) {
	validator := NewValidator(0)

	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s&list=PL123", "dQw4w9WgXcQ", false},
		{"https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/live/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"  dQw4w9WgXcQ  ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/watch?v=short", "", true},
		{"https://www.youtube.com/channel/UC123", "", true},
		{"https://example.com/watch?v=dQw4w9WgXcQ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := validator.ExtractVideoID(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractVideoID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractVideoID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateMethodAndID(t *testing.T) {
	validator := NewValidator(0)

	for _, m := range []string{"", "auto", "captions", "whisper"} {
		if err := validator.ValidateMethod(m); err != nil {
			t.Errorf("method %q should be valid: %v", m, err)
		}
	}
	if err := validator.ValidateMethod("magic"); err == nil {
		t.Errorf("expected error for unknown method")
	}

	if err := validator.ValidateVideoID(""); err == nil {
		t.Errorf("expected error for empty id")
	}
	if err := validator.ValidateVideoID(strings.Repeat("x", 200)); err == nil {
		t.Errorf("expected error for oversized id")
	}
	if err := validator.ValidateVideoID("dQw4w9WgXcQ"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateUploadSize(t *testing.T) {
	validator := NewValidator(25 * 1024 * 1024)

	if err := validator.ValidateUploadSize(0); err == nil {
		t.Errorf("expected error for empty upload")
	}
	if err := validator.ValidateUploadSize(26 * 1024 * 1024); err == nil {
		t.Errorf("expected error for oversized upload")
	}
	if err := validator.ValidateUploadSize(1024); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateRequest(t *testing.T) {
	validator := NewValidator(0)

	req := httptest.NewRequest("POST", "/save-article", strings.NewReader("{}"))
	if err := validator.ValidateRequest(req, RequestValidationOpts{RequireJSON: true}); err == nil {
		t.Errorf("expected error without JSON content type")
	}

	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if err := validator.ValidateRequest(req, RequestValidationOpts{RequireJSON: true, MaxContentLength: 1}); err == nil {
		t.Errorf("expected error for oversized body")
	}
	if err := validator.ValidateRequest(req, RequestValidationOpts{RequireJSON: true}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
