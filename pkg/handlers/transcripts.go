package handlers

import (
	"net/http"
	"strconv"
	"time"

	"arena-breakout-backend/pkg/models"
	"arena-breakout-backend/pkg/services"
	"arena-breakout-backend/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

// TranscriptHandler 字幕处理器
type TranscriptHandler struct {
	transcripts *services.TranscriptService
}

// NewTranscriptHandler 创建字幕处理器
func NewTranscriptHandler(transcripts *services.TranscriptService) *TranscriptHandler {
	return &TranscriptHandler{transcripts: transcripts}
}

// parseBefore accepts milliseconds since epoch or RFC3339.
func parseBefore(v string) (*time.Time, bool) {
	if v == "" {
		return nil, true
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		t := time.UnixMilli(ms).UTC()
		return &t, true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, true
	}
	return nil, false
}

// GET /api/transcripts/{roomId}?limit=&before=
func (h *TranscriptHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := requireCaller(w, r)
	if !ok {
		return
	}
	before, ok := parseBefore(r.URL.Query().Get("before"))
	if !ok {
		utils.WriteValidationErrorResponse(w, "Invalid before", "use milliseconds since epoch or RFC3339")
		return
	}

	lines, err := h.transcripts.List(r.Context(), user, chiRoute.URLParam(r, "roomId"), before, utils.GetIntQueryParam(r, "limit", 0))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]any{"transcripts": lines})
}

// POST /api/transcripts/{roomId}
func (h *TranscriptHandler) Add(w http.ResponseWriter, r *http.Request) {
	user, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req models.AddTranscriptRequest
	if !decodeBody(w, r, &req) {
		return
	}
	line, err := h.transcripts.Add(r.Context(), user, chiRoute.URLParam(r, "roomId"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, line)
}

// POST /api/transcripts/{roomId}/archive
func (h *TranscriptHandler) Archive(w http.ResponseWriter, r *http.Request) {
	user, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req models.ArchiveTranscriptsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := h.transcripts.Archive(r.Context(), user, chiRoute.URLParam(r, "roomId"), req.Kind)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]any{"archived_count": n})
}
