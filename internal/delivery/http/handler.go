package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gtsurkav-sudo/JOJIAI/internal/models/entities"
	"github.com/gtsurkav-sudo/JOJIAI/internal/models/ports"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Handler serves the maintenance API.
type Handler struct {
	retention        ports.RetentionUseCase
	logger           *zap.Logger
	defaultBatchSize int
	defaultDaysOld   int
	maxRequestTime   time.Duration
}

// NewHandler creates the HTTP handler.
func NewHandler(uc ports.RetentionUseCase, logger *zap.Logger, defaultBatchSize, defaultDaysOld int, maxRequestTime time.Duration) *Handler {
	return &Handler{
		retention:        uc,
		logger:           logger,
		defaultBatchSize: defaultBatchSize,
		defaultDaysOld:   defaultDaysOld,
		maxRequestTime:   maxRequestTime,
	}
}

// RegisterRoutes wires the API paths.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/cleanup", h.HandleCleanup).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/cleanup/async", h.HandleAsyncCleanup).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/cleanup/{taskID}", h.HandleGetCleanupStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/forget", h.HandleForgetSubject).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/health", h.HandleHealthCheck).Methods(http.MethodGet)
}

// HandleCleanup runs a synchronous retention cleanup.
func (h *Handler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeCleanupRequest(r)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.maxRequestTime)
	defer cancel()

	report, err := h.retention.CleanupOlderThan(ctx, req)
	if err != nil {
		if _, ok := err.(entities.DomainError); ok {
			h.respondWithError(w, http.StatusBadRequest, err.Error())
		} else {
			h.logger.Error("Cleanup error", zap.Error(err))
			h.respondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.respondWithJSON(w, http.StatusOK, report)
}

// HandleAsyncCleanup starts a background cleanup and returns its task ID.
func (h *Handler) HandleAsyncCleanup(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeCleanupRequest(r)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	taskID, err := h.retention.StartAsyncCleanup(r.Context(), req)
	if err != nil {
		if _, ok := err.(entities.DomainError); ok {
			h.respondWithError(w, http.StatusBadRequest, err.Error())
		} else {
			h.logger.Error("Async cleanup error", zap.Error(err))
			h.respondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.respondWithJSON(w, http.StatusAccepted, map[string]string{
		"task_id":    taskID,
		"status":     "pending",
		"status_url": "/api/v1/cleanup/" + taskID,
	})
}

// HandleGetCleanupStatus returns the state of an async cleanup task.
func (h *Handler) HandleGetCleanupStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	taskID := vars["taskID"]

	report, err := h.retention.GetCleanupStatus(r.Context(), taskID)
	if err != nil {
		h.respondWithError(w, http.StatusNotFound, "Task not found")
		return
	}

	h.respondWithJSON(w, http.StatusOK, report)
}

// HandleForgetSubject erases all data of one subject.
func (h *Handler) HandleForgetSubject(w http.ResponseWriter, r *http.Request) {
	var req entities.ErasureRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if req.BatchSize == 0 {
		req.BatchSize = h.defaultBatchSize
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.maxRequestTime)
	defer cancel()

	report, err := h.retention.ForgetSubject(ctx, req)
	if err != nil {
		if _, ok := err.(entities.DomainError); ok {
			h.respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Erasure error", zap.Error(err))
		if report != nil {
			// Partial report with success=false is still useful to the caller
			h.respondWithJSON(w, http.StatusInternalServerError, report)
			return
		}
		h.respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.respondWithJSON(w, http.StatusOK, report)
}

// HandleHealthCheck probes the backing store.
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	status := h.retention.HealthCheck(r.Context())

	code := http.StatusOK
	if status.Status != entities.StatusHealthy {
		code = http.StatusServiceUnavailable
	}

	h.respondWithJSON(w, code, status)
}

// cleanupPayload keeps days_old as a pointer so an explicit zero (clean
// everything older than now) is distinguishable from an absent field.
// batch_size zero is never valid, so zero-as-absent is safe there.
type cleanupPayload struct {
	TableName     string `json:"table_name"`
	DaysOld       *int   `json:"days_old"`
	BatchSize     int    `json:"batch_size"`
	UseSoftDelete bool   `json:"use_soft_delete"`
}

func (h *Handler) decodeCleanupRequest(r *http.Request) (entities.CleanupRequest, error) {
	var p cleanupPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		return entities.CleanupRequest{}, err
	}

	req := entities.CleanupRequest{
		TableName:     p.TableName,
		DaysOld:       h.defaultDaysOld,
		BatchSize:     p.BatchSize,
		UseSoftDelete: p.UseSoftDelete,
	}
	if p.DaysOld != nil {
		req.DaysOld = *p.DaysOld
	}
	if req.BatchSize == 0 {
		req.BatchSize = h.defaultBatchSize
	}
	return req, nil
}

// Response helpers

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Error encoding response", zap.Error(err))
	}
}
