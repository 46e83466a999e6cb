package main

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/vela-silicon/tensorcore-sim/internal/breaker"
	"github.com/vela-silicon/tensorcore-sim/internal/metrics"
	"github.com/vela-silicon/tensorcore-sim/internal/pack"
	"github.com/vela-silicon/tensorcore-sim/internal/pipe"
	"github.com/vela-silicon/tensorcore-sim/internal/resultcache"
)

// Server exposes Prometheus metrics and a cbor job-submission endpoint.
// Per spec.md section 5 each TensorCore itself is single-threaded and
// cooperative; sem only bounds how many independent TensorCore
// instances this process keeps live concurrently, the same role
// golang.org/x/sync/semaphore plays bounding concurrent embed requests
// in the teacher's server.go.
type Server struct {
	sem   *semaphore.Weighted
	cache *resultcache.ResultCache
	stats *metrics.Stats
	pool  sync.Pool
}

func newServer(maxConcurrent int, stats *metrics.Stats) *Server {
	return &Server{
		sem:   semaphore.NewWeighted(int64(maxConcurrent)),
		cache: resultcache.New(),
		stats: stats,
		pool: sync.Pool{
			New: func() interface{} {
				return &tensorCoreHandle{tc: pipe.NewTensorCore(), breaker: breaker.NewDeviceBreaker(3)}
			},
		},
	}
}

type tensorCoreHandle struct {
	tc      *pipe.TensorCore
	breaker *breaker.DeviceBreaker
}

func startServer(addr string, stats *metrics.Stats, maxConcurrent int) {
	srv := newServer(maxConcurrent, stats)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/run", srv.handleRun)
	mux.HandleFunc("/health", srv.handleHealth)

	log.Info().Str("addr", addr).Msg("Starting tcsim metrics/job server")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// handleRun accepts a cbor-encoded pack.Job, runs it to completion, and
// returns its D_fp22/D_out/cycle count as cbor, caching by job content
// hash so an identical job submitted twice is not re-simulated.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var job pack.Job
	if err := cbor.NewDecoder(r.Body).Decode(&job); err != nil {
		http.Error(w, fmt.Sprintf("Bad Request (cbor decode): %v", err), http.StatusBadRequest)
		return
	}

	key := resultcache.NewKey(job.A, job.B, job.C, job.InputPrec, job.OutputPrec, job.RM)
	if cached, ok := s.cache.Get(key); ok {
		writeResult(w, cached)
		return
	}

	ctx := r.Context()
	if err := s.sem.Acquire(ctx, 1); err != nil {
		http.Error(w, "Server busy", http.StatusServiceUnavailable)
		return
	}
	defer s.sem.Release(1)

	handle := s.pool.Get().(*tensorCoreHandle)
	defer s.pool.Put(handle)

	result, err := s.runOnHandle(handle, job)
	if err != nil {
		log.Error().Err(err).Msg("job failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.cache.Put(key, result)
	writeResult(w, result)
}

func (s *Server) runOnHandle(h *tensorCoreHandle, job pack.Job) (resultcache.Result, error) {
	if !h.breaker.Allow() {
		return resultcache.Result{}, errBreakerOpen
	}
	if err := h.tc.LoadInputs(job.A, job.B, job.C, job.InputPrec, job.OutputPrec, job.RM); err != nil {
		return resultcache.Result{}, err
	}
	s.stats.RecordSubmitted()

	cycles, err := h.tc.RunToCompletion(pipe.DefaultMaxCycles)
	if err != nil {
		h.breaker.Failure()
		s.stats.RecordCycleCapHit()
		return resultcache.Result{}, err
	}
	h.breaker.Success()
	s.stats.RecordCompleted(cycles)

	var r resultcache.Result
	r.Cycles = cycles
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			r.DOut[i][j] = h.tc.DOut(i, j)
			r.DFP22[i][j] = h.tc.DFP22(i, j)
		}
	}
	return r, nil
}

func writeResult(w http.ResponseWriter, r resultcache.Result) {
	b, err := cbor.Marshal(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/cbor")
	_, _ = w.Write(b)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
