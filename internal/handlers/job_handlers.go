package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	models "github.com/jaskrrish/Go-VQA/internal/models/estimation"
	"github.com/jaskrrish/Go-VQA/internal/vqa/estimation"
	"github.com/jaskrrish/Go-VQA/internal/vqa/jobs"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 4 << 20

// JobHandler serves estimation and energy jobs
type JobHandler struct {
	manager *jobs.Manager
}

// NewJobHandler creates a job handler backed by manager
func NewJobHandler(manager *jobs.Manager) *JobHandler {
	return &JobHandler{manager: manager}
}

// EstimateHandler handles POST /api/v1/estimate
// Runs an estimation job and returns it with its expectation values
func (h *JobHandler) EstimateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.EstimateRequest
	if err := decode(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	job, err := h.manager.RunEstimation(r.Context(), &req)
	if err != nil {
		respondWithJobError(w, job, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, models.JobResponse{Job: job})
}

// EnergyHandler handles POST /api/v1/energy
// Evaluates a hamiltonian on an ansatz state
func (h *JobHandler) EnergyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.EnergyRequest
	if err := decode(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	job, err := h.manager.RunEnergy(r.Context(), &req)
	if err != nil {
		respondWithJobError(w, job, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, models.JobResponse{Job: job})
}

// ListJobsHandler handles GET /api/v1/jobs
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	list := h.manager.List()
	respondWithJSON(w, http.StatusOK, models.JobListResponse{Jobs: list, Count: len(list)})
}

// GetJobHandler handles GET /api/v1/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobID, err := jobIDFromPath(r.URL.Path)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.manager.Get(jobID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, models.JobResponse{Job: job})
}

// DeleteJobHandler handles DELETE /api/v1/jobs/{id}
func (h *JobHandler) DeleteJobHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobID, err := jobIDFromPath(r.URL.Path)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.manager.Delete(jobID); err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Job deleted successfully",
	})
}

// JobRoutes dispatches /api/v1/jobs/{id} by method
func (h *JobHandler) JobRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodDelete {
		h.DeleteJobHandler(w, r)
	} else {
		h.GetJobHandler(w, r)
	}
}

// Register adds the job routes to mux
func (h *JobHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/estimate", h.EstimateHandler)
	mux.HandleFunc("/api/v1/energy", h.EnergyHandler)
	mux.HandleFunc("/api/v1/jobs", h.ListJobsHandler)
	mux.HandleFunc("/api/v1/jobs/", h.JobRoutes)
}

// jobIDFromPath extracts the job ID from /api/v1/jobs/{id}
func jobIDFromPath(path string) (uuid.UUID, error) {
	pathParts := strings.Split(strings.TrimSuffix(path, "/"), "/")
	if len(pathParts) != 5 {
		return uuid.Nil, models.ErrInvalidJobID
	}

	jobID, err := uuid.Parse(pathParts[4])
	if err != nil {
		return uuid.Nil, models.ErrInvalidJobID
	}
	return jobID, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// statusFor maps a job error to an HTTP status code
func statusFor(err error) int {
	switch {
	case errors.Is(err, estimation.ErrCapabilityNotSupported):
		return http.StatusUnprocessableEntity
	case jobs.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondWithJobError reports a failed run, including the failed job when one was recorded
func respondWithJobError(w http.ResponseWriter, job *models.Job, err error) {
	respondWithJSON(w, statusFor(err), models.JobResponse{
		Job:   job,
		Error: err.Error(),
	})
}
