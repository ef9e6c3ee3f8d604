package estimation

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current state of an estimation job
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobKind tells what a job computes
type JobKind string

const (
	KindEstimation JobKind = "estimation"
	KindEnergy     JobKind = "energy"
)

// QuantumBackendType represents the quantum computing backend being used
type QuantumBackendType string

const (
	BackendSimulator QuantumBackendType = "simulator"
	BackendQiskit    QuantumBackendType = "qiskit"
)

// Estimation methods
const (
	MethodStandard = "standard"
	MethodCvar     = "cvar"
)

// Job records one estimation run and its outcome
type Job struct {
	JobID       uuid.UUID   `json:"job_id"`
	Kind        JobKind     `json:"kind"`
	Status      JobStatus   `json:"status"`
	Backend     string      `json:"backend"`
	Method      string      `json:"method"`
	Fingerprint string      `json:"fingerprint"`
	NumTasks    int         `json:"num_tasks"`
	Values      [][]float64 `json:"values,omitempty"`
	Energy      *float64    `json:"energy,omitempty"`
	Message     string      `json:"message,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	DurationMs  int64       `json:"duration_ms"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// Terminal reports whether the job has finished, successfully or not
func (j *Job) Terminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

// GateSpec is one gate of a circuit in a request
type GateSpec struct {
	Name   string    `json:"name" validate:"required"`
	Qubits []int     `json:"qubits" validate:"required,min=1,max=2,dive,min=0"`
	Params []float64 `json:"params,omitempty"`
}

// CircuitSpec is a state-preparation circuit in a request
type CircuitSpec struct {
	NumQubits int        `json:"num_qubits" validate:"min=1,max=24"`
	Gates     []GateSpec `json:"gates" validate:"dive"`
}

// TaskSpec is one estimation task in a request. A missing shots field asks for
// exact evaluation.
type TaskSpec struct {
	Operator string      `json:"operator" validate:"required"`
	Circuit  CircuitSpec `json:"circuit"`
	Shots    *int        `json:"shots,omitempty" validate:"omitempty,min=0,max=10000000"`
}

// PreprocessingSpec selects the preprocessing stages of a request
type PreprocessingSpec struct {
	Grouping         string    `json:"grouping,omitempty" validate:"omitempty,oneof=none individual greedy"`
	SortTerms        bool      `json:"sort_terms,omitempty"`
	ContextSelection bool      `json:"context_selection,omitempty"`
	ShotAllocation   string    `json:"shot_allocation,omitempty" validate:"omitempty,oneof=none uniform proportional"`
	Shots            int       `json:"shots,omitempty" validate:"min=0,max=10000000"`
	Priors           []float64 `json:"priors,omitempty" validate:"dive,min=-1,max=1"`
}

// EstimateRequest asks for the expectation values of a list of tasks
type EstimateRequest struct {
	Tasks         []TaskSpec         `json:"tasks" validate:"required,min=1,max=1000,dive"`
	Method        string             `json:"method,omitempty" validate:"omitempty,oneof=standard cvar"`
	Alpha         float64            `json:"alpha,omitempty" validate:"omitempty,gt=0,lte=1"`
	Preprocessing *PreprocessingSpec `json:"preprocessing,omitempty"`
	TTLMinutes    int                `json:"ttl_minutes,omitempty"`
}

// AnsatzSpec selects a hardware-efficient ansatz
type AnsatzSpec struct {
	Layers int `json:"layers" validate:"min=1,max=50"`
	Qubits int `json:"qubits" validate:"min=1,max=24"`
}

// EnergyRequest asks for the energy of a hamiltonian on an ansatz state
type EnergyRequest struct {
	Hamiltonian   string             `json:"hamiltonian" validate:"required"`
	Ansatz        AnsatzSpec         `json:"ansatz"`
	Params        []float64          `json:"params" validate:"required"`
	Method        string             `json:"method,omitempty" validate:"omitempty,oneof=standard cvar"`
	Alpha         float64            `json:"alpha,omitempty" validate:"omitempty,gt=0,lte=1"`
	Preprocessing *PreprocessingSpec `json:"preprocessing,omitempty"`
	TTLMinutes    int                `json:"ttl_minutes,omitempty"`
}

// JobResponse represents the response when running or querying a job
type JobResponse struct {
	Job   *Job   `json:"job,omitempty"`
	Error string `json:"error,omitempty"`
}

// JobListResponse lists the stored jobs
type JobListResponse struct {
	Jobs  []*Job `json:"jobs"`
	Count int    `json:"count"`
}
