package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/chatlog/internal/dataset"
	"github.com/MikeSquared-Agency/chatlog/internal/pipeline"
)

// Server exposes the last written dataset and its run report read-only.
type Server struct {
	router     *chi.Mux
	port       int
	output     string
	reportPath string
}

func NewServer(port int, output, reportPath string) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	if reportPath == "" && output != "" {
		reportPath = output + ".report.json"
	}

	s := &Server{
		router:     router,
		port:       port,
		output:     output,
		reportPath: reportPath,
	}

	router.Get("/health", s.health)
	router.Route("/api/v1/chatlog", func(r chi.Router) {
		r.Get("/status", s.status)
		r.Get("/dataset", s.dataset)
		r.Get("/conversations", s.conversations)
	})

	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", "addr", httpSrv.Addr, "output", s.output)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("API server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, os.ErrNotExist) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no dataset has been written yet"})
		return
	}
	slog.Error("api request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	rep, err := pipeline.LoadReport(s.reportPath)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) dataset(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(s.output)
	if err != nil {
		writeError(w, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) conversations(w http.ResponseWriter, r *http.Request) {
	ds, err := dataset.ReadFile(s.output)
	if err != nil {
		writeError(w, err)
		return
	}
	if owner := r.URL.Query().Get("owner"); owner != "" {
		ds.Owner = owner
	}
	writeJSON(w, http.StatusOK, ds.Counts())
}
