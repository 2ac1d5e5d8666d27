package api

import (
	"net/http"

	"github.com/nijaru/yt-digest/prompts"
)

type PromptsHandler struct {
	store *prompts.Store
}

func NewPromptsHandler(store *prompts.Store) *PromptsHandler {
	return &PromptsHandler{store: store}
}

type savePromptRequest struct {
	Type     prompts.Type `json:"type"`
	Template string       `json:"template"`
}

// HandleList handles GET /prompts
func (h *PromptsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, h.store.All())
}

// HandleSave handles POST /prompts/save
func (h *PromptsHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	var req savePromptRequest
	if err := readJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.store.Save(req.Type, req.Template); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, success("Prompt saved"))
}
