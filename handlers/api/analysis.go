package api

import (
	"net/http"
	"strconv"

	"github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/middleware"
	"github.com/nijaru/yt-digest/models"
	"github.com/nijaru/yt-digest/services/analysis"
	"github.com/nijaru/yt-digest/utils"
	"github.com/nijaru/yt-digest/validation"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	defaultMaxUploadBytes = 25 << 20
	multipartOverhead     = 1 << 20
	multipartMemory       = 8 << 20
	maxJSONBody           = 1 << 20
)

type AnalysisHandler struct {
	service        analysis.Service
	validator      *validation.Validator
	maxUploadBytes int64
}

func NewAnalysisHandler(service analysis.Service, validator *validation.Validator, maxUploadBytes int64) *AnalysisHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &AnalysisHandler{
		service:        service,
		validator:      validator,
		maxUploadBytes: maxUploadBytes,
	}
}

type videoRequest struct {
	VideoID string `json:"videoId"`
	Article string `json:"article"`
}

// HandleAnalyze handles POST /analyze
func (h *AnalysisHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := h.validator.ValidateRequest(r, validation.RequestValidationOpts{MaxContentLength: maxJSONBody}); err != nil {
		respondError(w, r, err)
		return
	}
	sess, err := currentSession(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req analysis.Request
	if err := readJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	middleware.GetLogger(r.Context()).WithFields(logrus.Fields{
		"url":    req.URL,
		"method": req.Method,
	}).Info("Received analysis request")

	result, err := h.service.Analyze(r.Context(), sess, req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"entry":   result.Entry,
		"view":    result.View,
	})
}

// HandleTranscribeFile handles POST /transcribe-file
func (h *AnalysisHandler) HandleTranscribeFile(w http.ResponseWriter, r *http.Request) {
	const op = "AnalysisHandler.HandleTranscribeFile"

	sess, err := currentSession(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if pkgerrors.As(err, &tooLarge) {
			respondError(w, r, errors.InvalidInput(op, err, "Uploaded file is too large"))
			return
		}
		respondError(w, r, errors.InvalidInput(op, err, "Invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, errors.InvalidInput(op, err, "File is required"))
		return
	}
	defer file.Close()

	summarize, _ := strconv.ParseBool(r.FormValue("summarize"))

	result, err := h.service.AnalyzeFile(r.Context(), sess, analysis.Upload{
		Name:      header.Filename,
		Reader:    file,
		Size:      header.Size,
		Language:  r.FormValue("language"),
		Summarize: summarize,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"entry":   result.Entry,
		"view":    result.View,
	})
}

// HandleGenerateArticle handles POST /generate-article
func (h *AnalysisHandler) HandleGenerateArticle(w http.ResponseWriter, r *http.Request) {
	sess, err := currentSession(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req videoRequest
	if err := readJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.validator.ValidateVideoID(req.VideoID); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.service.GenerateArticle(r.Context(), sess, req.VideoID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"article": result.Article,
		"cost":    result.Cost,
	})
}

// HandleTranscript handles GET /transcript for the caller's session.
func (h *AnalysisHandler) HandleTranscript(w http.ResponseWriter, r *http.Request) {
	const op = "AnalysisHandler.HandleTranscript"

	sess, err := currentSession(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	current, ok := sess.Current()
	if !ok {
		respondError(w, r, errors.NotFound(op, nil, "No transcript available"))
		return
	}

	segments := current.Segments
	if segments == nil {
		segments = []models.Segment{}
	}

	respondJSON(w, r, http.StatusOK, map[string]any{
		"transcript":            current.Transcript,
		"timestampedTranscript": utils.TimestampedHTML(segments),
		"timestampedSegments":   segments,
	})
}

// HandleLoadFromHistory handles POST /load-from-history
func (h *AnalysisHandler) HandleLoadFromHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := currentSession(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req videoRequest
	if err := readJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.validator.ValidateVideoID(req.VideoID); err != nil {
		respondError(w, r, err)
		return
	}

	entry, err := h.service.LoadFromHistory(sess, req.VideoID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"entry":   entry,
	})
}

// HandleSaveArticle handles POST /save-article
func (h *AnalysisHandler) HandleSaveArticle(w http.ResponseWriter, r *http.Request) {
	var req videoRequest
	if err := readJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.validator.ValidateVideoID(req.VideoID); err != nil {
		respondError(w, r, err)
		return
	}

	if _, err := h.service.SaveArticle(req.VideoID, req.Article); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, success("Article saved"))
}
