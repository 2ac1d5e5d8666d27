package api

import (
	"encoding/json"
	"net/http"

	"github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/middleware"
	"github.com/nijaru/yt-digest/session"
	"github.com/sirupsen/logrus"
)

func respondJSON(w http.ResponseWriter, r *http.Request, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		middleware.GetLogger(r.Context()).WithError(err).Error("Failed to encode response")
	}
}

// respondError writes {"error": message} with the status of the AppError.
// Upstream failures also carry their kind as "type". Anything that is not
// an AppError is reported as a generic 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	logger := middleware.GetLogger(r.Context()).WithError(err)

	appErr, ok := errors.As(err)
	if !ok {
		logger.Error("Unhandled error")
		respondJSON(w, r, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	logger = logger.WithFields(logrus.Fields{
		"operation": appErr.Op,
		"status":    appErr.Code,
	})
	if appErr.Kind != "" {
		logger = logger.WithField("kind", appErr.Kind)
	}
	if appErr.Code >= http.StatusInternalServerError {
		logger.Error("Request failed")
	} else {
		logger.Debug("Request rejected")
	}

	respondJSON(w, r, errors.StatusCode(err), appErr)
}

func readJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.InvalidInput("readJSON", err, "Invalid JSON format")
	}
	return nil
}

// currentSession returns the session attached by the session middleware.
func currentSession(r *http.Request) (*session.Session, error) {
	sess, ok := middleware.SessionFrom(r.Context())
	if !ok {
		return nil, errors.Internal("currentSession", nil, "Session is not available")
	}
	return sess, nil
}

func success(message string) map[string]any {
	return map[string]any{"success": true, "message": message}
}
