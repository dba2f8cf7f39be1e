// Package server is the HTTP + WebSocket API surface: scan initiation,
// result polling, wipe-on-demand, takedown drafting and live scan streams.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/veilscan/veilscan/internal/interfaces"
	"github.com/veilscan/veilscan/internal/probe"
	"github.com/veilscan/veilscan/internal/scan"
	"github.com/veilscan/veilscan/internal/store"
	"github.com/veilscan/veilscan/internal/takedown"
)

const version = "1.0.0"

// Server wires the orchestrator, store and takedown generator to the router.
type Server struct {
	cfg          Config
	orchestrator *scan.Orchestrator
	store        store.Store
	generator    *takedown.Generator
	router       chi.Router
	upgrader     websocket.Upgrader
	logger       interfaces.Logger
}

// NewServer creates a Server over an existing orchestrator and store.
func NewServer(cfg Config, orch *scan.Orchestrator, st store.Store, gen *takedown.Generator, logger interfaces.Logger) (*Server, error) {
	if orch == nil {
		return nil, errors.New("server: nil orchestrator provided")
	}
	if st == nil {
		return nil, errors.New("server: nil store provided")
	}
	if gen == nil {
		return nil, errors.New("server: nil takedown generator provided")
	}
	if logger == nil {
		return nil, errors.New("server: nil logger provided")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultConfig().Addr
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = DefaultConfig().AllowedOrigins
	}

	s := &Server{
		cfg:          cfg,
		orchestrator: orch,
		store:        st,
		generator:    gen,
		router:       chi.NewRouter(),
		logger:       logger.With(interfaces.Field{Key: "component", Value: "server"}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: tighten for production
				return true
			},
		},
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Post("/search", s.handleSearch)
	r.Get("/results/{taskID}", s.handleGetResults)
	r.Delete("/results/{taskID}", s.handleWipeResults)
	r.Post("/takedown", s.handleTakedown)

	r.Get("/ws/scans/{taskID}", s.handleScanWS)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []interfaces.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if r.Body != nil && r.Method == http.MethodPost {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, interfaces.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// --- HTTP handlers ---

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "VeilScan Privacy Dashboard",
		"version": version,
		"status":  "operational",
		"endpoints": map[string]string{
			"search":   "POST /search",
			"results":  "GET /results/{task_id}",
			"wipe":     "DELETE /results/{task_id}",
			"takedown": "POST /takedown",
			"stream":   "GET /ws/scans/{task_id}",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "healthy",
		"model_configured":  s.cfg.ModelConfigured,
		"hibp_configured":   s.cfg.HIBPConfigured,
		"shodan_configured": s.cfg.ShodanConfigured,
		"data_ttl_hours":    s.cfg.RetentionTTL.Hours(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	task, err := s.orchestrator.StartScan(r.Context(), body.Query, probe.QueryType(body.QueryType))
	if err != nil {
		if errors.Is(err, scan.ErrEmptyQuery) || errors.Is(err, scan.ErrInvalidQueryType) ||
			errors.Is(err, scan.ErrInvalidEmail) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("starting scan", interfaces.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("scan initiated", interfaces.Field{Key: "task_id", Value: task.ID})
	writeJSON(w, http.StatusAccepted, SearchResponse{
		TaskID:  task.ID,
		Status:  string(task.Status),
		Message: "Scan initiated. Use GET /results/{task_id} to poll for results.",
	})
}

func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	view, err := s.orchestrator.GetScan(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "scan task not found")
			return
		}
		s.logger.Error("fetching results", interfaces.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resultsResponse(view))
}

func (s *Server) handleWipeResults(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	deleted, err := s.orchestrator.WipeScan(r.Context(), taskID)
	if err != nil {
		s.logger.Error("wiping scan", interfaces.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "scan task not found")
		return
	}

	writeJSON(w, http.StatusOK, WipeResponse{TaskID: taskID, Deleted: true})
}

func (s *Server) handleTakedown(w http.ResponseWriter, r *http.Request) {
	var body TakedownAPIRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.TaskID == "" || body.Platform == "" {
		writeError(w, http.StatusBadRequest, "task_id and platform are required")
		return
	}
	if body.UserName == "" {
		body.UserName = "[Your Full Name]"
	}
	if body.UserEmail == "" {
		body.UserEmail = "[Your Email]"
	}

	if _, err := s.store.GetTask(r.Context(), body.TaskID); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "scan task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var findings map[string]any
	finding, err := s.store.GetFinding(r.Context(), body.TaskID, body.Platform)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if finding != nil && finding.Found {
		findings = finding.Data
	}

	email := s.generator.Draft(r.Context(), takedown.Request{
		Platform:  body.Platform,
		UserName:  body.UserName,
		UserEmail: body.UserEmail,
		Findings:  findings,
	})

	s.logger.Info("takedown email drafted",
		interfaces.Field{Key: "task_id", Value: body.TaskID},
		interfaces.Field{Key: "platform", Value: body.Platform})
	writeJSON(w, http.StatusOK, email)
}

func (s *Server) handleScanWS(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	events := s.orchestrator.Events(taskID)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", interfaces.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	// Send the current snapshot first so late subscribers see the state
	// they missed.
	view, err := s.orchestrator.GetScan(r.Context(), taskID)
	if err != nil {
		_ = conn.WriteJSON(ErrorResponse{Error: "scan task not found"})
		return
	}
	_ = conn.WriteJSON(resultsResponse(view))

	if events == nil {
		// Scan already reached a terminal state; the snapshot is all
		// there is.
		return
	}

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			// Client went away; the scan keeps running.
			return
		}
	}
}

func resultsResponse(view *scan.ScanView) ResultsResponse {
	task := view.Task

	findings := make([]FindingOut, 0, len(view.Findings))
	for _, f := range view.Findings {
		findings = append(findings, FindingOut{
			Platform:  f.Platform,
			URL:       f.URL,
			Found:     f.Found,
			DataFound: f.Data,
			Category:  f.Category,
			Score:     f.Score,
			Error:     f.Error,
		})
	}

	createdAt := task.CreatedAt
	return ResultsResponse{
		TaskID:       task.ID,
		Status:       string(task.Status),
		Progress:     task.Progress,
		Query:        task.Query,
		QueryType:    task.QueryType,
		CreatedAt:    &createdAt,
		CompletedAt:  task.CompletedAt,
		Findings:     findings,
		ThreatReport: view.Report,
	}
}
