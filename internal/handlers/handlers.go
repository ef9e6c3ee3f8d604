package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jaskrrish/Go-VQA/internal/vqa/quantum"
)

// Version is reported by the home and health endpoints
const Version = "1.0.0"

// HomeHandler handles requests to the root path
func HomeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to Go-VQA API",
		"version": Version,
		"status":  "running",
	})
}

// HealthHandler reports service health and what the configured backend can do
func HealthHandler(backend quantum.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"status":       "healthy",
			"timestamp":    time.Now().Format(time.RFC3339),
			"service":      "go-vqa-api",
			"version":      Version,
			"backend":      backend.Name(),
			"capabilities": Capabilities(backend),
		})
	}
}

// Capabilities lists the estimation capabilities a backend implements
func Capabilities(backend quantum.Backend) []string {
	caps := []string{}
	if _, ok := backend.(quantum.ExactEvaluable); ok {
		caps = append(caps, "exact")
	}
	if _, ok := backend.(quantum.BatchSampleable); ok {
		caps = append(caps, "sampling")
	}
	if _, ok := backend.(quantum.DistributionEvaluable); ok {
		caps = append(caps, "distribution")
	}
	return caps
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondWithError sends an error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
