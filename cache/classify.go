package cache

import (
	"context"
	"strings"

	apperrors "github.com/nijaru/yt-digest/errors"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// ClassifyError turns an upstream failure into an AppError carrying a Kind.
// Errors that are already AppErrors pass through unchanged.
func ClassifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.External(op, apperrors.KindUpstream, err, "Upstream request timed out")
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.Internal(op, err, "Request cancelled")
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		reasons := make([]string, 0, len(gerr.Errors))
		for _, item := range gerr.Errors {
			reasons = append(reasons, item.Reason)
		}
		return classify(op, err, gerr.Code, gerr.Message, reasons...)
	}

	var aerr genai.APIError
	if errors.As(err, &aerr) {
		return classify(op, err, aerr.Code, aerr.Message, aerr.Status)
	}

	return apperrors.External(op, apperrors.KindUpstream, err, "Upstream request failed")
}

// ClassifyStatus classifies a plain HTTP failure from a hand-rolled client.
func ClassifyStatus(op string, err error, status int, message string) error {
	return classify(op, err, status, message)
}

func classify(op string, err error, code int, message string, reasons ...string) error {
	lower := strings.ToLower(message)

	for _, reason := range reasons {
		switch reason {
		case "quotaExceeded", "dailyLimitExceeded", "RESOURCE_EXHAUSTED", "insufficient_quota":
			return apperrors.External(op, apperrors.KindQuotaExceeded, err, "Upstream quota exceeded")
		case "rateLimitExceeded", "userRateLimitExceeded":
			return apperrors.External(op, apperrors.KindRateLimited, err, "Upstream rate limit reached")
		}
	}

	switch {
	case strings.Contains(lower, "quota"):
		return apperrors.External(op, apperrors.KindQuotaExceeded, err, "Upstream quota exceeded")
	case code == 429:
		return apperrors.External(op, apperrors.KindRateLimited, err, "Upstream rate limit reached")
	case code == 401 || code == 403:
		return apperrors.External(op, apperrors.KindUnauthorized, err, "Upstream rejected credentials")
	default:
		return apperrors.External(op, apperrors.KindUpstream, err, "Upstream request failed")
	}
}
