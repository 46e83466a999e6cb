// Package metrics exposes the tensor core's run-level counters both as
// plain Go fields (for the CLI's end-of-run summary) and as Prometheus
// metrics (for cmd/tcsim's /metrics endpoint), grounded on the teacher's
// internal/embeddings/metrics.go and internal/device/metrics.go.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tcsim_jobs_submitted_total",
		Help: "Total number of jobs installed via load_inputs",
	})

	jobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tcsim_jobs_completed_total",
		Help: "Total number of jobs that reached all output-valid before the cycle cap",
	})

	cycleCapHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tcsim_cycle_cap_hits_total",
		Help: "Total number of run_to_completion calls that hit the cycle cap (deadlock-surrogate)",
	})

	cycleCount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tcsim_job_cycles",
		Help:    "Cycle count returned by run_to_completion for completed jobs",
		Buckets: []float64{11, 12, 15, 20, 30, 50, 100},
	})

	refMismatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tcsim_pipeline_reference_mismatches_total",
		Help: "Total number of output elements where pipeline d_fp22 disagreed with the reference oracle",
	})
)

// Stats is the otc_driver/tensor_core_cfg statistics object of
// spec.md's original source: a plain-Go counter set tracked separately
// from the pipeline's own register state, so that a driver can reset
// run statistics without touching (or being touched by) TensorCore.Reset.
type Stats struct {
	mu            sync.Mutex
	JobsSubmitted int64
	JobsCompleted int64
	CycleCapHits  int64
	RefMismatches int64
}

// NewStats returns a zeroed Stats.
func NewStats() *Stats { return &Stats{} }

// RecordSubmitted records a load_inputs call, incrementing both the
// local counter and the Prometheus counter.
func (s *Stats) RecordSubmitted() {
	s.mu.Lock()
	s.JobsSubmitted++
	s.mu.Unlock()
	jobsSubmitted.Inc()
}

// RecordCompleted records a run_to_completion call that finished within
// the cycle cap, with the cycle count it took.
func (s *Stats) RecordCompleted(cycles int) {
	s.mu.Lock()
	s.JobsCompleted++
	s.mu.Unlock()
	jobsCompleted.Inc()
	cycleCount.Observe(float64(cycles))
}

// RecordCycleCapHit records a deadlock-surrogate result.
func (s *Stats) RecordCycleCapHit() {
	s.mu.Lock()
	s.CycleCapHits++
	s.mu.Unlock()
	cycleCapHits.Inc()
}

// RecordRefMismatch records a pipeline-vs-reference disagreement found
// while checking property 1.
func (s *Stats) RecordRefMismatch() {
	s.mu.Lock()
	s.RefMismatches++
	s.mu.Unlock()
	refMismatches.Inc()
}

// Reset clears the local counters only. Per spec.md section 4's
// reset/statistics separation, this is deliberately distinct from
// pipe.TensorCore.Reset: a driver resetting run statistics between test
// scenarios does not imply resetting -- or being reset by -- pipeline
// state.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.JobsSubmitted = 0
	s.JobsCompleted = 0
	s.CycleCapHits = 0
	s.RefMismatches = 0
}

// Snapshot returns a copy of the current counters, safe to log or print
// without holding the lock further.
func (s *Stats) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		JobsSubmitted: s.JobsSubmitted,
		JobsCompleted: s.JobsCompleted,
		CycleCapHits:  s.CycleCapHits,
		RefMismatches: s.RefMismatches,
	}
}
