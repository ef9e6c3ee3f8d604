package quantum

import (
	"context"
	"fmt"
)

// QiskitBackend runs circuit batches on IBM Quantum through the REST API.
// It only samples; exact evaluation is not available on hardware.
type QiskitBackend struct {
	name   string
	client *QiskitClient
}

// NewQiskitBackend creates a backend on top of an authenticated client
func NewQiskitBackend(client *QiskitClient) *QiskitBackend {
	return &QiskitBackend{
		name:   "IBM-Qiskit-" + client.config.BackendName,
		client: client,
	}
}

// Name returns the name of the Qiskit backend
func (q *QiskitBackend) Name() string {
	return q.name
}

// IsSimulator returns false for Qiskit (real quantum hardware or IBM simulator)
func (q *QiskitBackend) IsSimulator() bool {
	return false
}

// RunBatchAndMeasure submits every circuit of the batch in a single job
func (q *QiskitBackend) RunBatchAndMeasure(ctx context.Context, circuits []*Circuit, shots []int) ([]*Measurements, error) {
	if err := ValidateBatch(circuits, shots); err != nil {
		return nil, err
	}

	batch := &QiskitBatch{
		Backend:  q.client.config.BackendName,
		Circuits: make([]QiskitCircuit, len(circuits)),
	}
	for i, circuit := range circuits {
		qasm, err := BuildMeasuredCircuit(circuit)
		if err != nil {
			return nil, fmt.Errorf("circuit %d: %w", i, err)
		}
		batch.Circuits[i] = QiskitCircuit{QASM: qasm, Shots: shots[i]}
	}

	result, err := q.client.ExecuteBatchSync(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(result.Results) != len(circuits) {
		return nil, fmt.Errorf("job %s returned %d results for %d circuits", result.JobID, len(result.Results), len(circuits))
	}

	measurements := make([]*Measurements, len(circuits))
	for i, experiment := range result.Results {
		counts, err := CountsFromQiskit(experiment.Counts, circuits[i].NumQubits)
		if err != nil {
			return nil, fmt.Errorf("circuit %d: %w", i, err)
		}
		m, err := NewMeasurements(circuits[i].NumQubits, counts)
		if err != nil {
			return nil, fmt.Errorf("circuit %d: %w", i, err)
		}
		measurements[i] = m
	}
	return measurements, nil
}
