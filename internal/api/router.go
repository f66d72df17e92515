package api

import "net/http"

func Router(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", h.Health)

	mux.HandleFunc("GET /v1/scheduler/status", h.SchedulerStatus)
	mux.HandleFunc("POST /v1/scheduler/start", h.SchedulerStart)
	mux.HandleFunc("POST /v1/scheduler/stop", h.SchedulerStop)

	mux.HandleFunc("POST /v1/reels", h.CreateReel)
	mux.HandleFunc("GET /v1/reels", h.ListReels)
	mux.HandleFunc("GET /v1/reels/{id}", h.GetReel)
	mux.HandleFunc("DELETE /v1/reels/{id}", h.DeleteReel)

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("reels-scheduler"))
	})

	return mux
}
