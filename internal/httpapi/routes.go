package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func SetupRoutes(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/champions", s.ListChampions)

		r.Post("/drafts", s.CreateDraft)
		r.Get("/drafts", s.GetDraft)
		r.Patch("/drafts", s.PatchDraft)
		r.Get("/drafts/{id}", s.GetDraft)
		r.Post("/drafts/{id}/join", s.JoinDraft)
		r.Post("/drafts/{id}/ready", s.SetReady)
		r.Post("/drafts/{id}/select", s.SelectChampion)
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
