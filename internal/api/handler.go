package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/opensource-finance/claimguard/internal/catalog"
	"github.com/opensource-finance/claimguard/internal/domain"
	"github.com/opensource-finance/claimguard/internal/predict"
	"github.com/opensource-finance/claimguard/internal/repository"
	"github.com/opensource-finance/claimguard/internal/session"
	"github.com/opensource-finance/claimguard/internal/worker"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	sessions *session.Store
	workflow *predict.Workflow
	worker   *worker.Worker
	version  string
	history  int
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		repo:     deps.Repository,
		cache:    deps.Cache,
		bus:      deps.EventBus,
		sessions: deps.Sessions,
		workflow: deps.Workflow,
		worker:   deps.Worker,
		version:  deps.Version,
		history:  deps.HistoryLimit,
	}
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status  string        `json:"status"`
	Version string        `json:"version"`
	Worker  *worker.Stats `json:"worker,omitempty"`
}

// Health returns server health status. A worker with no live
// subscriptions degrades it.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	resp := HealthResponse{Status: status, Version: h.version}
	if h.worker != nil {
		stats := h.worker.GetStats()
		if stats.SubscriptionCount == 0 {
			resp.Status = "degraded"
		}
		resp.Worker = &stats
	}

	writeJSON(w, http.StatusOK, resp)
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// ============================================================================
// REFERENCE DATA
// ============================================================================

// DatasetView adds derived figures to the dataset statistics.
type DatasetView struct {
	catalog.Dataset
	ReductionPercent float64 `json:"reductionPercent"`
}

// DashboardResponse is the response for GET /dashboard.
type DashboardResponse struct {
	Overview     catalog.Overview     `json:"overview"`
	Dataset      DatasetView          `json:"dataset"`
	Distribution []catalog.ClassShare `json:"distribution"`
	Algorithms   []catalog.Algorithm  `json:"algorithms"`
}

// Dashboard returns the overview page.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ds := catalog.GetDataset()
	writeJSON(w, http.StatusOK, DashboardResponse{
		Overview:     catalog.GetOverview(),
		Dataset:      DatasetView{Dataset: ds, ReductionPercent: ds.ReductionPercent()},
		Distribution: catalog.Distribution(),
		Algorithms:   catalog.Algorithms(),
	})
}

// ModelView is a catalog model with its derived metrics.
type ModelView struct {
	catalog.Model
	ReportedAccuracy float64         `json:"reportedAccuracy"`
	Matrix           [2][2]int       `json:"matrix"`
	Metrics          catalog.Metrics `json:"metrics"`
}

func newModelView(m catalog.Model) ModelView {
	return ModelView{
		Model:            m,
		ReportedAccuracy: m.ReportedAccuracy(),
		Matrix:           m.Confusion.Matrix(),
		Metrics:          m.Confusion.Metrics(),
	}
}

// ListModels returns the model catalog with an accuracy summary.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	models := catalog.Models()
	summary, err := catalog.Summarize(models)
	if err != nil {
		slog.Error("failed to summarize models", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to summarize models")
		return
	}

	views := make([]ModelView, len(models))
	for i, m := range models {
		views[i] = newModelView(m)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models":  views,
		"summary": summary,
	})
}

// GetModel returns one model with its confusion matrix.
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	m, err := catalog.Lookup(domain.ModelID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newModelView(m))
}

// Features returns the selected predictors and the correlation heatmap.
func (h *Handler) Features(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"selected":        catalog.SelectedFeatures(),
		"heatmapFeatures": catalog.HeatmapFeatures(),
		"heatmap":         catalog.Heatmap(),
	})
}

// Form returns the claim field table.
func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fields": domain.ClaimFields(),
	})
}

// ============================================================================
// SESSION HANDLERS
// ============================================================================

// UpdateSessionRequest changes view settings; absent fields are left alone.
// Toggles apply after explicit values.
type UpdateSessionRequest struct {
	Page             *session.Page   `json:"page,omitempty"`
	Theme            *session.Theme  `json:"theme,omitempty"`
	SidebarCollapsed *bool           `json:"sidebarCollapsed,omitempty"`
	Model            *domain.ModelID `json:"model,omitempty"`
	ToggleTheme      bool            `json:"toggleTheme,omitempty"`
	ToggleSidebar    bool            `json:"toggleSidebar,omitempty"`
}

// FormUpdateRequest carries raw form values keyed by form key.
type FormUpdateRequest struct {
	Fields map[string]string `json:"fields"`
}

// GetSession returns the session, creating it when absent.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	st, created, err := h.sessions.LoadOrCreate(r.Context(), GetSessionID(r.Context()))
	if err != nil {
		slog.Error("failed to load session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, st)
}

// UpdateSession applies page, theme, sidebar and model changes.
func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var req UpdateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	h.mutateSession(w, r, func(st *session.State) error {
		if req.Page != nil {
			if err := st.Navigate(*req.Page); err != nil {
				return err
			}
		}
		if req.Theme != nil {
			if err := st.SetTheme(*req.Theme); err != nil {
				return err
			}
		}
		if req.SidebarCollapsed != nil {
			st.SidebarCollapsed = *req.SidebarCollapsed
		}
		if req.ToggleTheme {
			st.ToggleTheme()
		}
		if req.ToggleSidebar {
			st.ToggleSidebar()
		}
		if req.Model != nil {
			return st.SelectModel(*req.Model)
		}
		return nil
	})
}

// UpdateForm writes field values without validating them.
func (h *Handler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	var req FormUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	h.mutateSession(w, r, func(st *session.State) error {
		return st.UpdateFields(req.Fields)
	})
}

// ResetForm restores the example claim.
func (h *Handler) ResetForm(w http.ResponseWriter, r *http.Request) {
	h.mutateSession(w, r, func(st *session.State) error {
		st.ResetForm()
		return nil
	})
}

// mutateSession loads or creates the caller's session, applies fn and saves.
// Nothing is saved when fn fails.
func (h *Handler) mutateSession(w http.ResponseWriter, r *http.Request, fn func(*session.State) error) {
	ctx := r.Context()

	st, _, err := h.sessions.LoadOrCreate(ctx, GetSessionID(ctx))
	if err != nil {
		slog.Error("failed to load session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	if err := fn(st); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	if err := h.sessions.Save(ctx, st); err != nil {
		slog.Error("failed to save session", "session_id", st.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save session")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ============================================================================
// PREDICTION HANDLERS
// ============================================================================

// PredictRequest optionally overrides the session's model and form fields
// before submitting.
type PredictRequest struct {
	Model  domain.ModelID    `json:"model,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// PredictResponse is the response for POST /predict.
type PredictResponse struct {
	*domain.PredictionResult
	Recommendation string `json:"recommendation"`

	// DemoMode is shown as a banner when the result came from the fallback.
	DemoMode  bool   `json:"demoMode"`
	SessionID string `json:"sessionId"`
	TraceID   string `json:"traceId"`
}

// Predict submits the session's current form for classification.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := GetTraceID(ctx)

	var req PredictRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	st, _, err := h.sessions.LoadOrCreate(ctx, GetSessionID(ctx))
	if err != nil {
		slog.Error("failed to load session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	// Overrides stay in memory until the latch is held.
	if req.Model != "" {
		if err := st.SelectModel(req.Model); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if len(req.Fields) > 0 {
		if err := st.UpdateFields(req.Fields); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	result, err := h.workflow.Submit(ctx, h.sessions.Latch(st.ID), predict.Submission{
		SessionID: st.ID,
		TraceID:   traceID,
		ModelID:   st.SelectedModel,
		Form:      st.Form,
		Prepare: func(ctx context.Context) error {
			st.BeginSubmission()
			return h.sessions.Save(ctx, st)
		},
	})
	if errors.Is(err, predict.ErrBusy) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	// The outcome lands in the session even if the client went away.
	settleCtx := context.WithoutCancel(ctx)
	if _, uerr := h.sessions.Update(settleCtx, st.ID, func(s *session.State) error {
		s.RecordOutcome(result, err)
		return nil
	}); uerr != nil {
		slog.Error("failed to record prediction outcome", "session_id", st.ID, "error", uerr)
	}

	var rejection *predict.RejectionError
	switch {
	case errors.As(err, &rejection):
		writeError(w, http.StatusUnprocessableEntity, rejection.Message)
		return
	case errors.Is(err, catalog.ErrUnknownModel):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		slog.Error("prediction failed", "session_id", st.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "prediction failed")
		return
	}

	writeJSON(w, http.StatusOK, PredictResponse{
		PredictionResult: result,
		Recommendation:   result.Recommendation(),
		DemoMode:         result.IsFallback,
		SessionID:        st.ID,
		TraceID:          traceID,
	})
}

// ListPredictions returns the session's history, newest first.
func (h *Handler) ListPredictions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := h.history
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return
	}

	records, err := h.repo.ListPredictions(ctx, GetSessionID(ctx), limit)
	if err != nil {
		slog.Error("failed to list predictions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list predictions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"predictions": records,
		"count":       len(records),
	})
}

// GetPrediction retrieves one history record by ID.
func (h *Handler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return
	}

	rec, err := h.repo.GetPrediction(ctx, GetSessionID(ctx), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "prediction not found")
		return
	}
	if err != nil {
		slog.Error("failed to get prediction", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get prediction")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// PredictionStats returns the outcome counters kept by the worker.
func (h *Handler) PredictionStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "cache not available")
		return
	}

	counters, err := worker.Counters(r.Context(), h.cache)
	if err != nil {
		slog.Error("failed to read prediction counters", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read prediction counters")
		return
	}
	writeJSON(w, http.StatusOK, counters)
}

// statusFor maps validation errors to 400 and everything else to 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrUnknownPage),
		errors.Is(err, session.ErrUnknownTheme),
		errors.Is(err, session.ErrUnknownField),
		errors.Is(err, catalog.ErrUnknownModel):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeOptional decodes a JSON body, treating an empty body as no input.
func decodeOptional(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
