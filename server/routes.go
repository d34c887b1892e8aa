package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"field_uploader/attendance"
	"field_uploader/upload"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

type Submitter interface {
	SubmitTestImage(ctx context.Context, req upload.Request) upload.Outcome
	SubmitHabitatImage(ctx context.Context, req upload.Request) upload.Outcome
}

type ClockIn interface {
	ClockIn(ctx context.Context, p attendance.Punch) attendance.Outcome
}

type Server struct {
	HTTPServer *http.Server
	Ctx        context.Context
	Router     *chi.Mux
	uploads    Submitter
	attendance ClockIn

	maxUploadBytes int64
}

func NewServer(ctx context.Context, uploads Submitter, clockIn ClockIn, metricsHandler http.Handler, addr string) *Server {
	s := &Server{
		Router:     chi.NewRouter(),
		Ctx:        ctx,
		uploads:    uploads,
		attendance: clockIn,

		maxUploadBytes: defaultMaxUploadBytes,
	}

	setupRoutes(s, metricsHandler)

	s.HTTPServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("server created", "address", addr)
	return s
}

func setupRoutes(s *Server, metricsHandler http.Handler) {
	s.Router.Use(middleware.RequestID)
	s.Router.Use(middleware.Recoverer)

	s.Router.Get("/", s.Index)
	s.Router.Get("/clock-in", s.ClockInPage)
	s.Router.Post("/record-attendance", s.RecordAttendance)
	s.Router.Post("/submit", s.Submit)
	s.Router.Post("/upload_habitat_image", s.UploadHabitatImage)
	s.Router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if metricsHandler != nil {
		s.Router.Handle("/metrics", metricsHandler)
	}
}
