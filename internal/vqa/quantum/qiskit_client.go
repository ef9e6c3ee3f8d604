package quantum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// QiskitConfig holds IBM Qiskit Runtime API configuration
type QiskitConfig struct {
	// IBM Cloud API Key
	APIKey string

	// Base URL for IBM Quantum API
	BaseURL string

	// Backend name (e.g., "ibmq_qasm_simulator", "ibm_kyoto")
	BackendName string

	// HTTP client with timeout
	HTTPClient *http.Client

	// PollInterval is the delay between job status checks
	PollInterval time.Duration

	// RequestsPerSecond caps the rate of API calls (0 means unlimited)
	RequestsPerSecond float64

	// Logger receives job lifecycle events
	Logger *slog.Logger
}

// QiskitClient handles IBM Qiskit Runtime API interactions
type QiskitClient struct {
	config  *QiskitConfig
	limiter *rate.Limiter
	logger  *slog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// QiskitJob represents a quantum job
type QiskitJob struct {
	ID        string    `json:"id"`
	Backend   string    `json:"backend"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created"`
}

// QiskitExperimentResult holds the counts of one circuit of a batch job
type QiskitExperimentResult struct {
	Counts map[string]int `json:"counts"`
	Shots  int            `json:"shots"`
}

// QiskitResult represents job execution results
type QiskitResult struct {
	Results       []QiskitExperimentResult `json:"results"`
	Success       bool                     `json:"success"`
	StatusMsg     string                   `json:"status"`
	JobID         string                   `json:"job_id"`
	ExecutionTime float64                  `json:"execution_time"`
}

// QiskitCircuit represents an OpenQASM circuit with its shot count
type QiskitCircuit struct {
	QASM  string `json:"qasm"`
	Shots int    `json:"shots"`
}

// QiskitBatch is a single job holding several circuits
type QiskitBatch struct {
	Backend  string          `json:"backend"`
	Circuits []QiskitCircuit `json:"circuits"`
}

// IBM Quantum API endpoints
const (
	DefaultQiskitURL = "https://api.quantum-computing.ibm.com"
	TokenEndpoint    = "/api/auth/login"
	JobsEndpoint     = "/api/Network/ibm-q/Groups/open/Projects/main/Jobs"
	BackendsEndpoint = "/api/Network/ibm-q/Groups/open/Projects/main/devices"
)

// Job status constants
const (
	JobStatusQueued    = "QUEUED"
	JobStatusRunning   = "RUNNING"
	JobStatusCompleted = "COMPLETED"
	JobStatusFailed    = "FAILED"
	JobStatusCancelled = "CANCELLED"
)

const defaultPollInterval = 2 * time.Second

// NewQiskitClient creates a new Qiskit API client and authenticates it
func NewQiskitClient(ctx context.Context, config *QiskitConfig) (*QiskitClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("IBM Cloud API key is required")
	}

	if config.BaseURL == "" {
		config.BaseURL = DefaultQiskitURL
	}

	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{
			Timeout: 60 * time.Second,
		}
	}

	if config.PollInterval <= 0 {
		config.PollInterval = defaultPollInterval
	}

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := &QiskitClient{
		config:  config,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With("component", "qiskit_client", "backend", config.BackendName),
	}

	if err := client.authenticate(ctx); err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	return client, nil
}

// do sends a request, waiting for the rate limiter first, and decodes a JSON response into out
func (c *QiskitClient) do(ctx context.Context, method, path string, body any, out any, okStatus ...int) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !statusAccepted(resp.StatusCode, okStatus) {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func statusAccepted(code int, okStatus []int) bool {
	if len(okStatus) == 0 {
		return code == http.StatusOK
	}
	for _, s := range okStatus {
		if code == s {
			return true
		}
	}
	return false
}

// APIError is a non-success response from the Qiskit API
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s failed: %s (status: %d)", e.Method, e.Path, e.Body, e.StatusCode)
}

func (c *QiskitClient) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// authenticate obtains an access token from IBM Cloud
func (c *QiskitClient) authenticate(ctx context.Context) error {
	payload := map[string]string{
		"apiToken": c.config.APIKey,
	}

	var result struct {
		ID          string    `json:"id"`
		TTL         int       `json:"ttl"`
		Created     time.Time `json:"created"`
		AccessToken string    `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, TokenEndpoint, payload, &result); err != nil {
		return err
	}

	c.mu.Lock()
	c.accessToken = result.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(result.TTL) * time.Second)
	c.mu.Unlock()

	c.logger.Debug("authenticated", "ttl_seconds", result.TTL)
	return nil
}

// ensureAuthenticated checks if token is valid and refreshes if needed
func (c *QiskitClient) ensureAuthenticated(ctx context.Context) error {
	c.mu.Lock()
	expiry := c.tokenExpiry
	c.mu.Unlock()

	if time.Now().After(expiry.Add(-5 * time.Minute)) {
		return c.authenticate(ctx)
	}
	return nil
}

// SubmitJob submits a batch of circuits as one job
func (c *QiskitClient) SubmitJob(ctx context.Context, batch *QiskitBatch) (*QiskitJob, error) {
	if err := c.ensureAuthenticated(ctx); err != nil {
		return nil, err
	}

	var job QiskitJob
	if err := c.do(ctx, http.MethodPost, JobsEndpoint, batch, &job, http.StatusOK, http.StatusCreated); err != nil {
		return nil, err
	}

	c.logger.Info("job submitted", "job_id", job.ID, "circuits", len(batch.Circuits))
	return &job, nil
}

// GetJobStatus retrieves the status of a quantum job
func (c *QiskitClient) GetJobStatus(ctx context.Context, jobID string) (*QiskitJob, error) {
	if err := c.ensureAuthenticated(ctx); err != nil {
		return nil, err
	}

	var job QiskitJob
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/%s", JobsEndpoint, jobID), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// WaitForJob polls until the job completes, fails, or ctx is done
func (c *QiskitClient) WaitForJob(ctx context.Context, jobID string) (*QiskitJob, error) {
	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for job %s: %w", jobID, ctx.Err())

		case <-ticker.C:
			job, err := c.GetJobStatus(ctx, jobID)
			if err != nil {
				return nil, err
			}

			switch job.Status {
			case JobStatusCompleted:
				return job, nil
			case JobStatusFailed:
				return job, fmt.Errorf("job %s failed", jobID)
			case JobStatusCancelled:
				return job, fmt.Errorf("job %s was cancelled", jobID)
			}
			c.logger.Debug("job pending", "job_id", jobID, "status", job.Status)
		}
	}
}

// GetJobResult retrieves the results of a completed job
func (c *QiskitClient) GetJobResult(ctx context.Context, jobID string) (*QiskitResult, error) {
	if err := c.ensureAuthenticated(ctx); err != nil {
		return nil, err
	}

	var result QiskitResult
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/%s/results", JobsEndpoint, jobID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelJob cancels a running or queued job
func (c *QiskitClient) CancelJob(ctx context.Context, jobID string) error {
	if err := c.ensureAuthenticated(ctx); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("%s/%s/cancel", JobsEndpoint, jobID), nil, nil)
}

// ListBackends retrieves available quantum backends
func (c *QiskitClient) ListBackends(ctx context.Context) ([]map[string]any, error) {
	if err := c.ensureAuthenticated(ctx); err != nil {
		return nil, err
	}

	var backends []map[string]any
	if err := c.do(ctx, http.MethodGet, BackendsEndpoint, nil, &backends); err != nil {
		return nil, err
	}
	return backends, nil
}

// ExecuteBatchSync submits a batch, waits for it and returns its results.
// If ctx ends while the job is pending, the job is cancelled on a best-effort basis.
func (c *QiskitClient) ExecuteBatchSync(ctx context.Context, batch *QiskitBatch) (*QiskitResult, error) {
	job, err := c.SubmitJob(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("job submission failed: %w", err)
	}

	completedJob, err := c.WaitForJob(ctx, job.ID)
	if err != nil {
		if ctx.Err() != nil {
			cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			if cerr := c.CancelJob(cancelCtx, job.ID); cerr != nil {
				c.logger.Warn("cancel after abandoned wait failed", "job_id", job.ID, "error", cerr)
			}
			cancel()
		}
		return nil, fmt.Errorf("job execution failed: %w", err)
	}

	result, err := c.GetJobResult(ctx, completedJob.ID)
	if err != nil {
		return nil, fmt.Errorf("result retrieval failed: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("job %s reported failure: %s", completedJob.ID, result.StatusMsg)
	}

	return result, nil
}
