// Package httpapi exposes the document transformation service over HTTP:
// an authenticated API for running operations and managing artifacts,
// plus public share links addressed by token.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dmogilev/docmill/internal/logging"
	"github.com/dmogilev/docmill/internal/server/models"
	"github.com/dmogilev/docmill/internal/server/notify"
	"github.com/dmogilev/docmill/internal/server/pipeline"
)

// Transformer runs one operation end to end.
type Transformer interface {
	Transform(ctx context.Context, req pipeline.TransformRequest) (*pipeline.TransformResponse, error)
}

// ArtifactService covers the artifact operations the API surfaces.
type ArtifactService interface {
	Resolve(ctx context.Context, token string) (*models.Artifact, io.ReadCloser, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Artifact, error)
	Delete(ctx context.Context, userID, token string) error
}

// Server is the HTTP transport for the service.
type Server struct {
	transformer   Transformer
	artifacts     ArtifactService
	notifier      notify.Notifier
	secretKey     []byte
	publicBaseURL string
	addr          string
	log           logging.Logger
}

func NewServer(addr, publicBaseURL string, secretKey []byte, t Transformer, a ArtifactService, n notify.Notifier, log logging.Logger) *Server {
	return &Server{
		transformer:   t,
		artifacts:     a,
		notifier:      n,
		secretKey:     secretKey,
		publicBaseURL: publicBaseURL,
		addr:          addr,
		log:           log,
	}
}

// Router assembles the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Public share links.
	r.Get("/share/{token}", s.handleShare(false))
	r.Get("/share/{token}/download", s.handleShare(true))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/transform", s.handleTransform)
		r.Get("/artifacts", s.handleListArtifacts)
		r.Delete("/artifacts/{token}", s.handleDeleteArtifact)
		r.Post("/artifacts/{token}/send", s.handleSendArtifact)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) shareURL(token string) string {
	return s.publicBaseURL + "/share/" + token
}
