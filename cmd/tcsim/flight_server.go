package main

import (
	"fmt"
	"sync"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rs/zerolog/log"

	"github.com/vela-silicon/tensorcore-sim/internal/breaker"
	"github.com/vela-silicon/tensorcore-sim/internal/metrics"
	"github.com/vela-silicon/tensorcore-sim/internal/pack"
	"github.com/vela-silicon/tensorcore-sim/internal/pipe"
)

// TensorCoreFlightServer accepts packed jobs over DoPut, runs them to
// completion on one TensorCore per DoPut stream, and serves the packed
// results back over DoGet. Every result is filed under the fixed key
// "default" whatever path the client submitted under, so DoGet returns
// results only for the ticket "default" -- adapted from the
// teacher's FletcherFlightServer, whose DoPut only logged received
// batches (a "TODO: implement embedding logic here" in
// cmd/fletcher/flight_server.go); here DoPut does the full job.
type TensorCoreFlightServer struct {
	flight.BaseFlightServer
	alloc memory.Allocator
	stats *metrics.Stats

	mu      sync.Mutex
	results map[string][]pack.Result
}

func newTensorCoreFlightServer(stats *metrics.Stats) *TensorCoreFlightServer {
	return &TensorCoreFlightServer{
		alloc:   memory.NewGoAllocator(),
		stats:   stats,
		results: make(map[string][]pack.Result),
	}
}

func (s *TensorCoreFlightServer) DoExchange(stream flight.FlightService_DoExchangeServer) error {
	return fmt.Errorf("DoExchange not implemented")
}

func (s *TensorCoreFlightServer) DoPut(stream flight.FlightService_DoPutServer) error {
	reader, err := flight.NewRecordReader(stream, ipc.WithAllocator(s.alloc))
	if err != nil {
		return err
	}
	defer reader.Release()

	// The teacher's own FletcherFlightServer.DoPut never reads the
	// descriptor back off the stream either; results for a given
	// connection are all filed under one key, retrieved by DoGet with
	// the matching ticket value.
	const path = "default"

	b := breaker.NewDeviceBreaker(3)
	tc := pipe.NewTensorCore()

	for reader.Next() {
		rec := reader.Record()
		jobs, err := pack.ParseJobRecord(rec)
		if err != nil {
			return err
		}
		log.Info().Int("jobs", len(jobs)).Str("path", path).Msg("DoPut received job batch")

		for _, j := range jobs {
			res, err := runFlightJob(tc, b, s.stats, j)
			if err != nil {
				log.Error().Err(err).Msg("flight job failed")
				continue
			}
			s.mu.Lock()
			s.results[path] = append(s.results[path], res)
			s.mu.Unlock()
		}
	}
	return reader.Err()
}

func (s *TensorCoreFlightServer) DoGet(tkt *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	path := string(tkt.Ticket)

	s.mu.Lock()
	results := append([]pack.Result(nil), s.results[path]...)
	s.mu.Unlock()

	rec := pack.BuildResultRecord(s.alloc, results)
	defer rec.Release()

	writer := flight.NewRecordWriter(stream)
	if err := writer.Write(rec); err != nil {
		return err
	}
	return writer.Close()
}

func runFlightJob(tc *pipe.TensorCore, b *breaker.DeviceBreaker, stats *metrics.Stats, j pack.Job) (pack.Result, error) {
	if !b.Allow() {
		return pack.Result{}, errBreakerOpen
	}
	if err := tc.LoadInputs(j.A, j.B, j.C, j.InputPrec, j.OutputPrec, j.RM); err != nil {
		return pack.Result{}, err
	}
	stats.RecordSubmitted()

	cycles, err := tc.RunToCompletion(pipe.DefaultMaxCycles)
	if err != nil {
		b.Failure()
		stats.RecordCycleCapHit()
		return pack.Result{}, err
	}
	b.Success()
	stats.RecordCompleted(cycles)

	snap := tc.Snapshot(cycles)
	return pack.Result{DOut: snap.DOut, DFP22: snap.DFP22, Cycles: uint32(snap.Cycles)}, nil
}

func startFlightServer(addr string, stats *metrics.Stats) {
	server := flight.NewFlightServer()
	server.RegisterFlightService(newTensorCoreFlightServer(stats))

	if err := server.Init(addr); err != nil {
		log.Fatal().Err(err).Msg("Failed to init Flight server")
	}

	log.Info().Str("addr", addr).Msg("Starting tcsim Flight server")
	if err := server.Serve(); err != nil {
		log.Fatal().Err(err).Msg("Flight server failed")
	}
}
