package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"selectcms/domain/core"
	"selectcms/domain/run"
	"selectcms/domain/stats"
	"selectcms/internal"
	apperrors "selectcms/internal/errors"
	"selectcms/ports"
)

// Server exposes stored runs read-only over HTTP
type Server struct {
	runs   ports.RunReader
	router *chi.Mux
	logger *internal.Logger
}

// NewServer builds the router over runs
func NewServer(runs ports.RunReader, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{runs: runs, router: chi.NewRouter(), logger: logger}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(s.logRequests)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/runs", s.handleListRuns)
	s.router.Get("/runs/{runID}", s.handleGetRun)
	s.router.Get("/runs/{runID}/loci", s.handleListLoci)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving runs API on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("%s %s %d %v", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	if runs == nil {
		runs = []run.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseRunID(chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rn, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rn)
}

func (s *Server) handleListLoci(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseRunID(chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	loci, err := s.runs.ListLoci(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	out := make([]Locus, len(loci))
	for i, rec := range loci {
		out[i] = NewLocus(rec)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	if apperrors.GetCode(err) == apperrors.CodeNotFound {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Failure(apperrors.GetCode(err), err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ============================================================================
// RESPONSE TYPES
// ============================================================================

// Locus is the JSON form of a significant locus. Missing values are omitted.
type Locus struct {
	SNPID    string             `json:"snp_id"`
	Position int                `json:"position"`
	Window   int                `json:"window"`
	Scores   map[string]float64 `json:"scores,omitempty"`
	DAF      *float64           `json:"daf,omitempty"`
	UnstdPoP *float64           `json:"unstd_pop,omitempty"`
	UnstdMoP *float64           `json:"unstd_mop,omitempty"`
	StdPoP   *float64           `json:"std_pop,omitempty"`
	StdMoP   *float64           `json:"std_mop,omitempty"`
}

// NewLocus converts a record, dropping NaN values
func NewLocus(rec stats.CompositeRecord) Locus {
	l := Locus{
		SNPID:    rec.SNP.ID,
		Position: rec.SNP.Position,
		Window:   rec.Window,
		DAF:      finite(rec.DAF),
		UnstdPoP: finite(rec.UnstdPoP),
		UnstdMoP: finite(rec.UnstdMoP),
		StdPoP:   finite(rec.StdPoP),
		StdMoP:   finite(rec.StdMoP),
	}
	for _, spec := range stats.AllTests {
		if v := finite(rec.RawScore(spec.Kind)); v != nil {
			if l.Scores == nil {
				l.Scores = make(map[string]float64, len(stats.AllTests))
			}
			l.Scores[string(spec.Kind)] = *v
		}
	}
	return l
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
