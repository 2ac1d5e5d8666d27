package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Internal("Ledger.Save", cause, "failed to save ledger")

	expected := "failed to save ledger: disk full"
	if err.Error() != expected {
		t.Errorf("expected '%s', got '%s'", expected, err.Error())
	}
	if err.Unwrap() != cause {
		t.Errorf("expected unwrap to return cause")
	}
}

func TestConstructorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code int
	}{
		{"invalid input", InvalidInput("op", nil, "bad"), http.StatusBadRequest},
		{"not found", NotFound("op", nil, "missing"), http.StatusNotFound},
		{"internal", Internal("op", nil, "boom"), http.StatusInternalServerError},
		{"quota", External("op", KindQuotaExceeded, nil, "quota"), http.StatusServiceUnavailable},
		{"rate limited", External("op", KindRateLimited, nil, "slow down"), http.StatusServiceUnavailable},
		{"unauthorized", External("op", KindUnauthorized, nil, "denied"), http.StatusBadGateway},
		{"upstream", External("op", KindUpstream, nil, "down"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected code %d, got %d", tt.code, tt.err.Code)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "not found error",
			err:      NotFound("op", nil, "not found"),
			expected: true,
		},
		{
			name:     "wrapped not found error",
			err:      fmt.Errorf("lookup: %w", NotFound("op", nil, "not found")),
			expected: true,
		},
		{
			name:     "other error",
			err:      InvalidInput("op", nil, "bad request"),
			expected: false,
		},
		{
			name:     "plain error",
			err:      fmt.Errorf("plain"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.expected {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsKindAndStatusCode(t *testing.T) {
	err := fmt.Errorf("fetch: %w", External("op", KindQuotaExceeded, nil, "quota exceeded"))

	if !IsKind(err, KindQuotaExceeded) {
		t.Errorf("expected quota kind to be detected through wrapping")
	}
	if IsKind(err, KindRateLimited) {
		t.Errorf("did not expect rate limited kind")
	}
	if code := StatusCode(err); code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, code)
	}
	if code := StatusCode(fmt.Errorf("plain")); code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, code)
	}
}
