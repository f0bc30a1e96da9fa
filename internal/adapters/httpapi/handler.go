package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/avelhao/parley/internal/service"
	"github.com/avelhao/parley/pkg/domain"
)

// Handler serves the REST API.
type Handler struct {
	workflows *service.WorkflowService
	runs      *service.RunService
	logger    *slog.Logger
	metrics   http.Handler
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithMetricsHandler mounts a handler at /metrics.
func WithMetricsHandler(handler http.Handler) HandlerOption {
	return func(h *Handler) {
		h.metrics = handler
	}
}

// NewHandler wires the API over the two services.
func NewHandler(workflows *service.WorkflowService, runs *service.RunService, opts ...HandlerOption) *Handler {
	h := &Handler{
		workflows: workflows,
		runs:      runs,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router builds the route tree.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/workflows", func(r chi.Router) {
		r.Get("/", h.listWorkflows)
		r.Post("/", h.createWorkflow)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getWorkflow)
			r.Put("/", h.updateWorkflow)
			r.Delete("/", h.deleteWorkflow)
		})
	})

	r.Route("/runs", func(r chi.Router) {
		r.Post("/", h.startRun)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getRun)
			r.Get("/steps", h.listRunSteps)
			r.Post("/step", h.stepRun)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listWorkflows(w http.ResponseWriter, r *http.Request) {
	all, err := h.workflows.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workflows": all})
}

func (h *Handler) createWorkflow(w http.ResponseWriter, r *http.Request) {
	var wf domain.Workflow
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		h.badRequest(w, "invalid workflow payload: "+err.Error())
		return
	}

	created, err := h.workflows.Create(r.Context(), &wf)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) getWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.workflows.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

func (h *Handler) updateWorkflow(w http.ResponseWriter, r *http.Request) {
	var wf domain.Workflow
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		h.badRequest(w, "invalid workflow payload: "+err.Error())
		return
	}
	wf.ID = chi.URLParam(r, "id")

	updated, err := h.workflows.Update(r.Context(), &wf)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := h.workflows.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type startRunRequest struct {
	WorkflowID string `json:"workflow_id"`
	Input      string `json:"input"`
}

type stepRunRequest struct {
	Input string `json:"input"`
}

type runResponse struct {
	Run   *domain.Run               `json:"run"`
	State *domain.ConversationState `json:"state"`
}

func (h *Handler) startRun(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid run payload: "+err.Error())
		return
	}
	if req.WorkflowID == "" {
		h.badRequest(w, "workflow_id is required")
		return
	}

	run, state, err := h.runs.StartRun(r.Context(), req.WorkflowID, req.Input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, runResponse{Run: run, State: state})
}

func (h *Handler) stepRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.badRequest(w, "invalid run id")
		return
	}

	var req stepRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid step payload: "+err.Error())
		return
	}

	run, state, err := h.runs.StepRun(r.Context(), runID, req.Input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Run: run, State: state})
}

func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.badRequest(w, "invalid run id")
		return
	}

	run, err := h.runs.GetRun(r.Context(), runID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) listRunSteps(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.badRequest(w, "invalid run id")
		return
	}

	steps, err := h.runs.ListSteps(r.Context(), runID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"steps": steps})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// writeError maps domain errors onto status codes.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	var configErr *domain.ConfigError
	var typeErr *domain.UnknownNodeTypeError
	var condErr *domain.ConditionTypeError
	var backendErr *domain.BackendError

	switch {
	case errors.Is(err, domain.ErrWorkflowNotFound), errors.Is(err, domain.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrRunNotRunning):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrEmptyWorkflow),
		errors.Is(err, domain.ErrNoUserMessage),
		errors.As(err, &configErr),
		errors.As(err, &typeErr),
		errors.As(err, &condErr):
		status = http.StatusBadRequest
	case errors.As(err, &backendErr):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
