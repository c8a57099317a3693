package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/smukkama/store-monitor/internal/artifact"
	"github.com/smukkama/store-monitor/internal/jobs"
	"github.com/smukkama/store-monitor/internal/protocol"
)

// JobService tracks report jobs
type JobService interface {
	Submit(ctx context.Context) (*jobs.Job, error)
	Get(ctx context.Context, id string) (*jobs.Job, error)
	Fail(ctx context.Context, id, reason string) error
}

// Dispatcher hands a report request to whatever runs it
type Dispatcher interface {
	Dispatch(ctx context.Context, req protocol.ReportRequest) error
}

// VersionSource reports the database server version
type VersionSource interface {
	Version(ctx context.Context) (string, error)
}

// Handler serves the report API
type Handler struct {
	jobs       JobService
	dispatcher Dispatcher
	db         VersionSource
	logger     *zap.Logger
	now        func() time.Time
}

// NewHandler creates a handler
func NewHandler(jobService JobService, dispatcher Dispatcher, db VersionSource, logger *zap.Logger) *Handler {
	return &Handler{
		jobs:       jobService,
		dispatcher: dispatcher,
		db:         db,
		logger:     logger,
		now:        time.Now,
	}
}

type triggerRequest struct {
	MaxLocations int `json:"max_locations"`
}

type reportStatus struct {
	ReportID        string      `json:"report_id"`
	Status          jobs.Status `json:"status"`
	ArtifactURL     string      `json:"artifact_url,omitempty"`
	FailedLocations []string    `json:"failed_locations,omitempty"`
	Error           string      `json:"error,omitempty"`
	CreatedAt       *time.Time  `json:"created_at,omitempty"`
	UpdatedAt       *time.Time  `json:"updated_at,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	version, err := h.db.Version(r.Context())
	if err != nil {
		h.logger.Error("database ping failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "database unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"postgres_version": version})
}

func (h *Handler) triggerReport(w http.ResponseWriter, r *http.Request) {
	var body triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if body.MaxLocations < 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "max_locations must not be negative"})
		return
	}

	job, err := h.jobs.Submit(r.Context())
	if err != nil {
		h.logger.Error("failed to create report job", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to create report job"})
		return
	}

	req := protocol.ReportRequest{
		ReportID:     job.ID,
		RequestedAt:  h.now().UTC(),
		MaxLocations: body.MaxLocations,
	}
	if err := h.dispatcher.Dispatch(r.Context(), req); err != nil {
		h.logger.Error("failed to dispatch report request", zap.String("report_id", job.ID), zap.Error(err))
		if ferr := h.jobs.Fail(r.Context(), job.ID, fmt.Sprintf("dispatch failed: %v", err)); ferr != nil {
			h.logger.Error("failed to mark report job as failed", zap.String("report_id", job.ID), zap.Error(ferr))
		}
		writeJSON(w, http.StatusServiceUnavailable, reportStatus{ReportID: job.ID, Status: jobs.StatusFailed, Error: "report queue unavailable"})
		return
	}

	h.logger.Info("report triggered", zap.String("report_id", job.ID), zap.Int("max_locations", body.MaxLocations))
	writeJSON(w, http.StatusAccepted, reportStatus{ReportID: job.ID, Status: job.Status})
}

func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, ok := h.lookup(w, r, id)
	if !ok {
		return
	}

	resp := reportStatus{
		ReportID:        job.ID,
		Status:          job.Status,
		ArtifactURL:     job.ArtifactURL,
		FailedLocations: job.FailedLocations,
		Error:           job.Error,
		CreatedAt:       &job.CreatedAt,
		UpdatedAt:       &job.UpdatedAt,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) downloadReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, ok := h.lookup(w, r, id)
	if !ok {
		return
	}
	if job.Status != jobs.StatusCompleted {
		writeJSON(w, http.StatusConflict, reportStatus{ReportID: job.ID, Status: job.Status, Error: "report is not completed"})
		return
	}

	f, err := os.Open(job.ArtifactURL)
	if err != nil {
		h.logger.Error("report artifact unavailable", zap.String("report_id", id), zap.Error(err))
		writeJSON(w, http.StatusGone, errorResponse{Error: "report artifact is no longer available"})
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to read report artifact"})
		return
	}

	w.Header().Set("Content-Type", artifact.ContentTypeFor(job.ArtifactURL))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(job.ArtifactURL)))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request, id string) (*jobs.Job, bool) {
	job, err := h.jobs.Get(r.Context(), id)
	if errors.Is(err, jobs.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, reportStatus{ReportID: id, Status: jobs.StatusNotFound})
		return nil, false
	}
	if err != nil {
		h.logger.Error("failed to load report job", zap.String("report_id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load report job"})
		return nil, false
	}
	return job, true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
