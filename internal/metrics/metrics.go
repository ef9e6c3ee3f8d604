// Package metrics exposes Prometheus instrumentation for backends and jobs.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	models "github.com/jaskrrish/Go-VQA/internal/models/estimation"
	"github.com/jaskrrish/Go-VQA/internal/vqa/quantum"
)

// Metrics holds the collectors of one registry
type Metrics struct {
	registry *prometheus.Registry

	// backendCalls counts backend calls by backend, operation and result
	backendCalls *prometheus.CounterVec

	// backendDuration tracks backend call latency
	backendDuration *prometheus.HistogramVec

	// batchCircuits tracks circuits per sampling batch
	batchCircuits prometheus.Histogram

	// shotsTotal counts shots requested from sampling backends
	shotsTotal *prometheus.CounterVec

	// jobsTotal counts finished jobs by kind and status
	jobsTotal *prometheus.CounterVec

	// jobDuration tracks job latency
	jobDuration *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry that also carries the Go and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		backendCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vqa_backend_calls_total",
			Help: "Total backend calls by backend, operation and result",
		}, []string{"backend", "operation", "result"}),
		backendDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vqa_backend_call_duration_seconds",
			Help:    "Backend call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 0.1ms to ~26s
		}, []string{"backend", "operation"}),
		batchCircuits: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vqa_batch_circuits",
			Help:    "Number of circuits per sampling batch",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 500},
		}),
		shotsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vqa_shots_total",
			Help: "Total shots requested from sampling backends",
		}, []string{"backend"}),
		jobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vqa_jobs_total",
			Help: "Total finished jobs by kind and status",
		}, []string{"kind", "status"}),
		jobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vqa_job_duration_seconds",
			Help:    "Job duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"kind"}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveJob records a finished job
func (m *Metrics) ObserveJob(kind models.JobKind, status models.JobStatus, duration time.Duration) {
	m.jobsTotal.WithLabelValues(string(kind), string(status)).Inc()
	m.jobDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())
}

func (m *Metrics) observeCall(backend, operation string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.backendCalls.WithLabelValues(backend, operation, result).Inc()
	m.backendDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
}

// Instrument wraps backend so that every capability call is counted and timed.
// The wrapper implements exactly the capabilities backend implements.
func (m *Metrics) Instrument(backend quantum.Backend) quantum.Backend {
	base := instrumented{inner: backend, metrics: m}
	exact, isExact := backend.(quantum.ExactEvaluable)
	sampler, isSampler := backend.(quantum.BatchSampleable)
	dist, isDist := backend.(quantum.DistributionEvaluable)

	e := exactCalls{base, exact}
	s := samplingCalls{base, sampler}
	d := distributionCalls{base, dist}

	switch {
	case isExact && isSampler && isDist:
		return struct {
			exactCalls
			samplingCalls
			distributionCalls
			instrumented
		}{e, s, d, base}
	case isExact && isSampler:
		return struct {
			exactCalls
			samplingCalls
			instrumented
		}{e, s, base}
	case isExact && isDist:
		return struct {
			exactCalls
			distributionCalls
			instrumented
		}{e, d, base}
	case isSampler && isDist:
		return struct {
			samplingCalls
			distributionCalls
			instrumented
		}{s, d, base}
	case isExact:
		return struct {
			exactCalls
			instrumented
		}{e, base}
	case isSampler:
		return struct {
			samplingCalls
			instrumented
		}{s, base}
	case isDist:
		return struct {
			distributionCalls
			instrumented
		}{d, base}
	default:
		return base
	}
}

type instrumented struct {
	inner   quantum.Backend
	metrics *Metrics
}

func (b instrumented) Name() string {
	return b.inner.Name()
}

type exactCalls struct {
	b     instrumented
	inner quantum.ExactEvaluable
}

func (c exactCalls) ExactExpectationValues(ctx context.Context, circuit *quantum.Circuit, op quantum.PauliSum) (quantum.ExpectationValues, error) {
	start := time.Now()
	values, err := c.inner.ExactExpectationValues(ctx, circuit, op)
	c.b.metrics.observeCall(c.b.inner.Name(), "exact", start, err)
	return values, err
}

type samplingCalls struct {
	b     instrumented
	inner quantum.BatchSampleable
}

func (c samplingCalls) RunBatchAndMeasure(ctx context.Context, circuits []*quantum.Circuit, shots []int) ([]*quantum.Measurements, error) {
	name := c.b.inner.Name()
	total := 0
	for _, n := range shots {
		total += n
	}
	c.b.metrics.batchCircuits.Observe(float64(len(circuits)))
	c.b.metrics.shotsTotal.WithLabelValues(name).Add(float64(total))

	start := time.Now()
	measurements, err := c.inner.RunBatchAndMeasure(ctx, circuits, shots)
	c.b.metrics.observeCall(name, "batch", start, err)
	return measurements, err
}

type distributionCalls struct {
	b     instrumented
	inner quantum.DistributionEvaluable
}

func (c distributionCalls) BitstringDistribution(ctx context.Context, circuit *quantum.Circuit) (map[string]float64, error) {
	start := time.Now()
	dist, err := c.inner.BitstringDistribution(ctx, circuit)
	c.b.metrics.observeCall(c.b.inner.Name(), "distribution", start, err)
	return dist, err
}
