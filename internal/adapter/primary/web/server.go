package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"countdown/internal/adapter/secondary/export"
	"countdown/internal/codec"
	"countdown/internal/domain"
	"countdown/internal/logging"
	"countdown/internal/usecase"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 16

// Server is a primary adapter that exposes the timer use cases over HTTP.
type Server struct {
	usecase usecase.TimerUseCase
	server  *http.Server
}

// NewServer creates the HTTP server bound to addr.
func NewServer(uc usecase.TimerUseCase, addr string) *Server {
	srv := &Server{usecase: uc}
	srv.server = &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv
}

// Handler returns the routed handler, wrapped with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/timers", s.handleListTimers)
	mux.HandleFunc("POST /api/timers", s.handleCreateTimer)
	mux.HandleFunc("DELETE /api/timers/{id}", s.handleDeleteTimer)
	mux.HandleFunc("POST /api/timers/start-all", s.handleBulk(s.usecase.StartAll))
	mux.HandleFunc("POST /api/timers/pause-all", s.handleBulk(s.usecase.PauseAll))
	mux.HandleFunc("POST /api/timers/{id}/{action}", s.handleTimerAction)
	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleAddCategory)
	mux.HandleFunc("POST /api/categories/{name}/{action}", s.handleCategoryAction)
	mux.HandleFunc("GET /api/groups", s.handleGroups)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("GET /api/theme", s.handleGetTheme)
	mux.HandleFunc("PUT /api/theme", s.handleSetTheme)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	return loggingMiddleware(mux)
}

// Start blocks and serves HTTP traffic.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleListTimers(w http.ResponseWriter, r *http.Request) {
	filter := usecase.TimerFilter{Category: r.URL.Query().Get("category")}
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := domain.ParseStatus(raw)
		if !ok {
			respondError(w, http.StatusBadRequest, fmt.Errorf("unknown status %q", raw))
			return
		}
		filter.Status = &st
	}
	respondJSON(w, http.StatusOK, codec.Records(s.usecase.Timers(filter)))
}

type createPayload struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	Duration   int    `json:"duration"`
	MidTrigger int    `json:"mid_trigger"`
}

func (s *Server) handleCreateTimer(w http.ResponseWriter, r *http.Request) {
	var req createPayload
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := s.usecase.CreateTimer(domain.TimerDraft{
		Name:       req.Name,
		Category:   req.Category,
		Duration:   req.Duration,
		MidTrigger: req.MidTrigger,
	})
	if err != nil {
		respondUseCaseError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, codec.FromTimer(t))
}

func (s *Server) handleDeleteTimer(w http.ResponseWriter, r *http.Request) {
	if err := s.usecase.Delete(r.PathValue("id")); err != nil {
		respondUseCaseError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTimerAction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var action func(string) error
	switch r.PathValue("action") {
	case "start":
		action = s.usecase.Start
	case "pause":
		action = s.usecase.Pause
	case "resume":
		action = s.usecase.Resume
	case "reset":
		action = s.usecase.Reset
	default:
		http.NotFound(w, r)
		return
	}
	if err := action(id); err != nil {
		respondUseCaseError(w, err)
		return
	}
	for _, t := range s.usecase.Timers(usecase.TimerFilter{}) {
		if t.ID == id {
			respondJSON(w, http.StatusOK, codec.FromTimer(t))
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBulk(fn func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(); err != nil {
			respondUseCaseError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"running": s.usecase.Running()})
	}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.usecase.Categories())
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.usecase.AddCategory(req.Name); err != nil {
		respondUseCaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.usecase.Categories())
}

func (s *Server) handleCategoryAction(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var err error
	switch r.PathValue("action") {
	case "start":
		err = s.usecase.StartCategory(name)
	case "pause":
		err = s.usecase.PauseCategory(name)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		respondUseCaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"running": s.usecase.Running()})
}

type groupView struct {
	Name      string              `json:"name"`
	Timers    []codec.TimerRecord `json:"timers"`
	Duration  int                 `json:"duration"`
	Remaining int                 `json:"remaining"`
	Running   int                 `json:"running"`
	Completed int                 `json:"completed"`
	Progress  float64             `json:"progress"`
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	groups := s.usecase.Groups()
	views := make([]groupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, groupView{
			Name:      g.Name,
			Timers:    codec.Records(g.Timers),
			Duration:  g.Duration,
			Remaining: g.Remaining,
			Running:   g.Running,
			Completed: g.Completed,
			Progress:  g.Progress(),
		})
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, codec.Records(s.usecase.History()))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.FileName()))
	if err := export.Write(w, f, s.usecase.Timers(usecase.TimerFilter{})); err != nil {
		logging.Errorf("export %s: %v", f, err)
	}
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"theme": string(s.usecase.Theme(r.Context()))})
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme string `json:"theme"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.usecase.SetTheme(r.Context(), domain.Theme(req.Theme)); err != nil {
		respondUseCaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"theme": req.Theme})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return false
	}
	return true
}

// statusFor maps use case errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrTimerNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyRunning), errors.Is(err, domain.ErrTimerCompleted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNameRequired),
		errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrCategoryRequired),
		errors.Is(err, domain.ErrUnknownCategory),
		errors.Is(err, domain.ErrInvalidMidTrigger),
		errors.Is(err, domain.ErrInvalidTheme):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondUseCaseError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.Errorf("api: %v", err)
	}
	respondError(w, status, err)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Warnf("encode JSON: %v", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.Infof("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
