package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/LeventeLantos/reels-scheduler/internal/model"
	"github.com/LeventeLantos/reels-scheduler/internal/repo"
	"github.com/LeventeLantos/reels-scheduler/internal/scheduler"
)

type Handler struct {
	dispatch *scheduler.Loop
	repo     repo.ReelRepository
}

func NewHandler(dispatch *scheduler.Loop, r repo.ReelRepository) *Handler {
	return &Handler{dispatch: dispatch, repo: r}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"running": h.dispatch.IsRunning()})
}

func (h *Handler) SchedulerStart(w http.ResponseWriter, r *http.Request) {
	h.dispatch.Start()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.dispatch.IsRunning()})
}

func (h *Handler) SchedulerStop(w http.ResponseWriter, r *http.Request) {
	h.dispatch.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.dispatch.IsRunning()})
}

type createReelRequest struct {
	VideoURL      string     `json:"videoUrl"`
	Caption       string     `json:"caption"`
	ScheduledTime *time.Time `json:"scheduledTime,omitempty"`
}

func (h *Handler) CreateReel(w http.ResponseWriter, r *http.Request) {
	var req createReelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.VideoURL == "" || req.Caption == "" {
		writeError(w, http.StatusBadRequest, "videoUrl and caption are required")
		return
	}

	reel, err := h.repo.Create(r.Context(), req.VideoURL, req.Caption, req.ScheduledTime)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, toReelResponse(reel))
}

func (h *Handler) ListReels(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	offset := parseInt(r.URL.Query().Get("offset"), 0)

	reels, err := h.repo.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	items := make([]reelResponse, 0, len(reels))
	for _, reel := range reels {
		items = append(items, toReelResponse(reel))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) GetReel(w http.ResponseWriter, r *http.Request) {
	reel, err := h.repo.GetByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "reel not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toReelResponse(reel))
}

func (h *Handler) DeleteReel(w http.ResponseWriter, r *http.Request) {
	err := h.repo.DeletePending(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "reel not found")
	case errors.Is(err, repo.ErrNotPending):
		writeError(w, http.StatusConflict, "only pending reels can be deleted")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	}
}

type reelResponse struct {
	ID               string     `json:"id"`
	VideoURL         string     `json:"videoUrl"`
	Caption          string     `json:"caption"`
	ScheduledTime    *time.Time `json:"scheduledTime,omitempty"`
	Status           string     `json:"status"`
	InstagramMediaID *string    `json:"instagramMediaId,omitempty"`
	Error            *string    `json:"error,omitempty"`
	PublishedAt      *time.Time `json:"publishedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func toReelResponse(m model.Reel) reelResponse {
	return reelResponse{
		ID:               m.ID,
		VideoURL:         m.VideoURL,
		Caption:          m.Caption,
		ScheduledTime:    m.ScheduledAt,
		Status:           string(m.Status),
		InstagramMediaID: m.InstagramMediaID,
		Error:            m.LastError,
		PublishedAt:      m.PublishedAt,
		CreatedAt:        m.CreatedAt,
	}
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
