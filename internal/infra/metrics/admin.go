package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// AdminServer exposes /metrics and /healthz for the long-running worker
// mode. One-shot CLI runs never start it.
type AdminServer struct {
	srv *http.Server
	log *zerolog.Logger
}

func NewAdminServer(port int, logger *zerolog.Logger) *AdminServer {
	l := logger.With().Str("component", "AdminServer").Logger()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &AdminServer{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: &l,
	}
}

func (s *AdminServer) Start() error {
	MustRegister()
	s.log.Info().Str("addr", s.srv.Addr).Msg("admin server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *AdminServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
