package cache

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	apperrors "github.com/nijaru/yt-digest/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind apperrors.Kind
		code int
	}{
		{
			name: "youtube quota reason",
			err: &googleapi.Error{
				Code:   http.StatusForbidden,
				Errors: []googleapi.ErrorItem{{Reason: "quotaExceeded"}},
			},
			kind: apperrors.KindQuotaExceeded,
			code: http.StatusServiceUnavailable,
		},
		{
			name: "quota in message",
			err:  &googleapi.Error{Code: http.StatusForbidden, Message: "Daily Quota exceeded"},
			kind: apperrors.KindQuotaExceeded,
			code: http.StatusServiceUnavailable,
		},
		{
			name: "youtube rate limit reason",
			err: &googleapi.Error{
				Code:   http.StatusForbidden,
				Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}},
			},
			kind: apperrors.KindRateLimited,
			code: http.StatusServiceUnavailable,
		},
		{
			name: "too many requests",
			err:  &googleapi.Error{Code: http.StatusTooManyRequests},
			kind: apperrors.KindRateLimited,
			code: http.StatusServiceUnavailable,
		},
		{
			name: "bad key",
			err:  &googleapi.Error{Code: http.StatusForbidden, Message: "API key not valid"},
			kind: apperrors.KindUnauthorized,
			code: http.StatusBadGateway,
		},
		{
			name: "gemini resource exhausted",
			err:  genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"},
			kind: apperrors.KindQuotaExceeded,
			code: http.StatusServiceUnavailable,
		},
		{
			name: "wrapped server error",
			err:  fmt.Errorf("videos.list: %w", &googleapi.Error{Code: http.StatusInternalServerError}),
			kind: apperrors.KindUpstream,
			code: http.StatusBadGateway,
		},
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			kind: apperrors.KindUpstream,
			code: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyError("test", tt.err)
			if !apperrors.IsKind(err, tt.kind) {
				t.Errorf("expected kind %s, got %v", tt.kind, err)
			}
			if code := apperrors.StatusCode(err); code != tt.code {
				t.Errorf("expected status %d, got %d", tt.code, code)
			}
		})
	}
}

func TestClassifyErrorPassesAppErrorsThrough(t *testing.T) {
	original := apperrors.NotFound("test", nil, "no captions")
	if got := ClassifyError("other", original); got != original {
		t.Errorf("expected AppError to pass through unchanged, got %v", got)
	}
	if ClassifyError("test", nil) != nil {
		t.Errorf("expected nil for nil error")
	}
}

func TestClassifyStatus(t *testing.T) {
	err := ClassifyStatus("whisper", fmt.Errorf("status 429"), http.StatusTooManyRequests, "Rate limit reached")
	if !apperrors.IsKind(err, apperrors.KindRateLimited) {
		t.Errorf("expected rate limited, got %v", err)
	}
	err = ClassifyStatus("whisper", fmt.Errorf("status 429"), http.StatusTooManyRequests, "You exceeded your current quota")
	if !apperrors.IsKind(err, apperrors.KindQuotaExceeded) {
		t.Errorf("expected quota exceeded, got %v", err)
	}
}
