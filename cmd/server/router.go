package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"ranchdesk/internal/platform/metrics"
	"ranchdesk/pkg/platform/httputil"
	"ranchdesk/pkg/platform/middleware/request"
	"ranchdesk/pkg/platform/middleware/requesttime"
)

func newRouter(a *app, log *slog.Logger) http.Handler {
	m := metrics.New()

	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(request.Logger(log))
	r.Use(requesttime.Middleware)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(m.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		backends := a.health(r.Context())
		status := http.StatusOK
		for _, v := range backends {
			if v != "ok" {
				status = http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, status, map[string]any{"status": http.StatusText(status), "backends": backends})
	})
	r.Handle("/metrics", metrics.Handler())

	a.contracts.Register(r)
	return r
}
