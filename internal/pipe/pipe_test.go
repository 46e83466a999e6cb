package pipe

import (
	"testing"

	"github.com/vela-silicon/tensorcore-sim/internal/fp"
	"github.com/vela-silicon/tensorcore-sim/internal/ref"
	"github.com/vela-silicon/tensorcore-sim/internal/scenario"
)

// widenAll and widenC mirror cmd/tcsim/run.go's pre-widening of a job's
// raw inputs into the bit-exact formats internal/ref operates on, so a
// test can compare the pipeline's FP22 accumulator against the flat
// oracle without duplicating TensorCore's own install-time widening.
func widenAll(m [8][8]uint32, prec fp.InputPrec) [8][8]uint32 {
	var out [8][8]uint32
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			out[i][j] = fp.WidenToFP9(m[i][j], prec)
		}
	}
	return out
}

func widenC(m [8][8]uint32, prec fp.InputPrec) [8][8]uint32 {
	var out [8][8]uint32
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			out[i][j] = fp.ConvertCToFP22(m[i][j], prec)
		}
	}
	return out
}

func runJob(t *testing.T, tc *TensorCore, j scenario.Job) int {
	t.Helper()
	if err := tc.LoadInputs(j.A, j.B, j.C, j.InputPrec, j.OutputPrec, j.RM); err != nil {
		t.Fatalf("LoadInputs: %v", err)
	}
	cycles, err := tc.RunToCompletion(DefaultMaxCycles)
	if err != nil {
		t.Fatalf("RunToCompletion: %v", err)
	}
	return cycles
}

// TestPipelineMatchesRefScenarioC checks spec.md section 8 property 1
// (pipeline.D_fp22 bit-exact with the flat oracle) on scenario C, the
// all-FP16-1.0 case spec.md names as the witness for the (0,4)(1,5)(2,6)
// (3,7) tree pairing.
func TestPipelineMatchesRefScenarioC(t *testing.T) {
	job, _ := scenario.C()
	tc := NewTensorCore()
	runJob(t, tc, job)

	want := ref.Matmul(widenAll(job.A, job.InputPrec), widenAll(job.B, job.InputPrec), widenC(job.C, job.InputPrec), job.RM)
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			if got := tc.DFP22(i, j); got != want[i][j] {
				t.Errorf("DFP22(%d,%d) = %#x, want %#x (ref)", i, j, got, want[i][j])
			}
		}
	}
}

// TestPipelineMatchesRefRandomJob exercises property 1 against an
// arbitrary, non-identity job so the check isn't vacuous on an
// all-equal-operand input.
func TestPipelineMatchesRefRandomJob(t *testing.T) {
	var j scenario.Job
	j.InputPrec = fp.PrecFP16
	j.OutputPrec = fp.PrecOutFP32
	j.RM = fp.RNE
	vals := []float64{1.0, -1.0, 0.5, -0.5, 2.0, -2.0, 0.25, 3.5}
	for i := 0; i < 8; i++ {
		for k := 0; k < 8; k++ {
			j.A[i][k] = fp.FP16.FromFloat64(vals[(i+k)%8])
			j.B[i][k] = fp.FP16.FromFloat64(vals[(i*3+k)%8])
		}
		j.C[i][i] = fp.FP16.FromFloat64(1.5)
	}

	tc := NewTensorCore()
	runJob(t, tc, j)

	want := ref.Matmul(widenAll(j.A, j.InputPrec), widenAll(j.B, j.InputPrec), widenC(j.C, j.InputPrec), j.RM)
	for i := 0; i < 8; i++ {
		for col := 0; col < 8; col++ {
			if got := tc.DFP22(i, col); got != want[i][col] {
				t.Errorf("DFP22(%d,%d) = %#x, want %#x (ref)", i, col, got, want[i][col])
			}
		}
	}
}

// TestLatencyIsElevenCycles checks spec.md section 8 property 2: from a
// clean reset, every D_valid bit sets on exactly the 11th tick.
func TestLatencyIsElevenCycles(t *testing.T) {
	job, want := scenario.A()
	tc := NewTensorCore()
	if err := tc.LoadInputs(job.A, job.B, job.C, job.InputPrec, job.OutputPrec, job.RM); err != nil {
		t.Fatalf("LoadInputs: %v", err)
	}
	if tc.AllValid() {
		t.Fatalf("AllValid() true immediately after LoadInputs, before any Tick")
	}

	cycles, err := tc.RunToCompletion(DefaultMaxCycles)
	if err != nil {
		t.Fatalf("RunToCompletion: %v", err)
	}
	if !want.CheckCycles {
		t.Fatalf("scenario A no longer documents an expected cycle count")
	}
	if cycles != want.Cycles {
		t.Errorf("latency = %d cycles, want %d", cycles, want.Cycles)
	}
	if cycles != 11 {
		t.Errorf("latency = %d cycles, want 11", cycles)
	}
}

// TestIdentityMatmul checks spec.md section 8 property 7: A = I, D[0][j]
// equals B[0][j] (scenario B's construction, since A=I makes every
// output row equal to the corresponding row of B).
func TestIdentityMatmul(t *testing.T) {
	job, _, v := scenario.B()
	tc := NewTensorCore()
	runJob(t, tc, job)

	for col := 0; col < 8; col++ {
		want := fp.FP16.FromFloat64(v[col])
		if got := tc.DOut(0, col); got != want {
			t.Errorf("DOut(0,%d) = %#x, want %#x (= B[0][%d] = %v)", col, got, want, col, v[col])
		}
	}
}

// TestNaNAbsorption checks spec.md section 8 property 9: a NaN anywhere
// in a dot product's operands propagates to the whole accumulation, and
// through narrowing to the output format.
func TestNaNAbsorption(t *testing.T) {
	var j scenario.Job
	j.InputPrec = fp.PrecFP16
	j.OutputPrec = fp.PrecOutFP16
	j.RM = fp.RNE
	j.A[0][0] = fp.FP16.CanonicalNaN()
	j.B[0][0] = fp.FP16.FromFloat64(1.0)

	tc := NewTensorCore()
	runJob(t, tc, j)

	for col := 0; col < 8; col++ {
		if !tc.DValid(0, col) {
			t.Fatalf("DValid(0,%d) = false after RunToCompletion", col)
		}
		if got := tc.DOut(0, col); !fp.FP16.IsNaN(got) {
			t.Errorf("DOut(0,%d) = %#x, want NaN (row 0 depends on A[0][0])", col, got)
		}
		if got := tc.DFP22(0, col); !fp.FP22.IsNaN(got) {
			t.Errorf("DFP22(0,%d) = %#x, want NaN", col, got)
		}
	}
	// Row 1 never reads the NaN'd A[0][0] term; it must stay exactly
	// zero, confirming the NaN did not leak outside its own row.
	for col := 0; col < 8; col++ {
		if got := tc.DOut(1, col); got != fp.FP16.Zero(0) {
			t.Errorf("DOut(1,%d) = %#x, want +0 (unaffected row)", col, got)
		}
	}
}

// TestZeroPolarityThroughPipeline checks spec.md section 8 property 6
// (signed-zero cancellation under RDN produces -0) at the full-pipeline
// level, using scenario D's construction.
func TestZeroPolarityThroughPipeline(t *testing.T) {
	job, _ := scenario.D()
	tc := NewTensorCore()
	runJob(t, tc, job)

	want := fp.FP16.Zero(1)
	if got := tc.DOut(0, 0); got != want {
		t.Errorf("DOut(0,0) = %#x, want -0 (%#x) under RDN", got, want)
	}
}

// TestResetClearsOutputValid confirms Reset drops every D_valid bit, so
// a fresh job's latency measurement (property 2) always starts from a
// genuinely clean pipeline rather than stale state from a prior job.
func TestResetClearsOutputValid(t *testing.T) {
	job, _, _ := scenario.B()
	tc := NewTensorCore()
	runJob(t, tc, job)
	if !tc.AllValid() {
		t.Fatalf("AllValid() false after RunToCompletion")
	}

	tc.Reset()
	if tc.AllValid() {
		t.Errorf("AllValid() true after Reset, want false")
	}
}
