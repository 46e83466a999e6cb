package main

import (
	"fmt"
	"os"

	"github.com/vela-silicon/tensorcore-sim/internal/pack"
	"github.com/vela-silicon/tensorcore-sim/internal/pipe"
	"github.com/vela-silicon/tensorcore-sim/internal/scenario"
)

// buildSnapshots runs every named scenario from spec.md section 8 to
// completion and captures its D_fp22 output as a golden pack.Snapshot,
// the cbor fixture format --dump-snapshots writes and --check-snapshot
// reads back.
func buildSnapshots() ([]pack.Snapshot, error) {
	named := []struct {
		name string
		job  scenario.Job
	}{}

	jobA, _ := scenario.A()
	named = append(named, struct {
		name string
		job  scenario.Job
	}{"A", jobA})

	jobB, _, _ := scenario.B()
	named = append(named, struct {
		name string
		job  scenario.Job
	}{"B", jobB})

	jobC, _ := scenario.C()
	named = append(named, struct {
		name string
		job  scenario.Job
	}{"C", jobC})

	jobD, _ := scenario.D()
	named = append(named, struct {
		name string
		job  scenario.Job
	}{"D", jobD})

	jobE, _ := scenario.E()
	named = append(named, struct {
		name string
		job  scenario.Job
	}{"E", jobE})

	snaps := make([]pack.Snapshot, 0, len(named))
	for _, n := range named {
		tc := pipe.NewTensorCore()
		if err := tc.LoadInputs(n.job.A, n.job.B, n.job.C, n.job.InputPrec, n.job.OutputPrec, n.job.RM); err != nil {
			return nil, fmt.Errorf("snapshot %s: load_inputs: %w", n.name, err)
		}
		if _, err := tc.RunToCompletion(pipe.DefaultMaxCycles); err != nil {
			return nil, fmt.Errorf("snapshot %s: run_to_completion: %w", n.name, err)
		}
		snap := tc.Snapshot(0)
		snaps = append(snaps, pack.Snapshot{
			Name:       n.name,
			A:          n.job.A,
			B:          n.job.B,
			C:          n.job.C,
			InputPrec:  n.job.InputPrec,
			OutputPrec: n.job.OutputPrec,
			RM:         n.job.RM,
			WantDFP22:  snap.DFP22,
		})
	}
	return snaps, nil
}

// dumpSnapshots writes every named scenario's golden D_fp22 output to
// path as cbor, for regenerating the fixtures spec.md section 8
// describes without recomputing them by hand.
func dumpSnapshots(path string) error {
	snaps, err := buildSnapshots()
	if err != nil {
		return err
	}
	data, err := pack.EncodeSnapshots(snaps)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// checkSnapshotFile decodes a cbor snapshot file written by
// dumpSnapshots, re-runs each named job, and reports whether every
// D_fp22 cell still matches the recorded golden value -- a regression
// check against a previously captured run.
func checkSnapshotFile(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	snaps, err := pack.DecodeSnapshots(data)
	if err != nil {
		return false, err
	}

	ok := true
	for _, snap := range snaps {
		tc := pipe.NewTensorCore()
		if err := tc.LoadInputs(snap.A, snap.B, snap.C, snap.InputPrec, snap.OutputPrec, snap.RM); err != nil {
			return false, fmt.Errorf("snapshot %s: load_inputs: %w", snap.Name, err)
		}
		if _, err := tc.RunToCompletion(pipe.DefaultMaxCycles); err != nil {
			return false, fmt.Errorf("snapshot %s: run_to_completion: %w", snap.Name, err)
		}
		for i := 0; i < 8; i++ {
			for j := 0; j < 8; j++ {
				if tc.DFP22(i, j) != snap.WantDFP22[i][j] {
					ok = false
				}
			}
		}
	}
	return ok, nil
}
