package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vela-silicon/tensorcore-sim/internal/driverclient"
	"github.com/vela-silicon/tensorcore-sim/internal/pack"
	"github.com/vela-silicon/tensorcore-sim/internal/scenario"
)

// forwardStressJobs packs scenario F's full stress corpus and submits
// it to a remote tcsim Flight server instead of running it locally.
func forwardStressJobs(addr, path string, seed int64) error {
	var jobs []pack.Job
	for _, combo := range scenario.F(seed) {
		for _, j := range combo {
			jobs = append(jobs, pack.Job{A: j.A, B: j.B, C: j.C, InputPrec: j.InputPrec, OutputPrec: j.OutputPrec, RM: j.RM})
		}
	}
	return submitRemote(addr, path, jobs)
}

// submitRemote forwards jobs to a remote tcsim Flight server, mirroring
// the teacher's serverAddr/datasetName forwarding path in main.go.
func submitRemote(addr, path string, jobs []pack.Job) error {
	c, err := driverclient.New(addr)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close driver client")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := c.SubmitJobs(ctx, path, jobs); err != nil {
		return err
	}
	log.Info().Int("jobs", len(jobs)).Str("addr", addr).Str("path", path).Msg("Submitted jobs to remote tcsim")
	return nil
}
