package pipe

import (
	"errors"
	"fmt"

	"github.com/vela-silicon/tensorcore-sim/internal/fp"
)

// ErrCycleCapExceeded is returned by RunToCompletion when the cycle cap
// is reached before every output-valid bit is set. Per spec.md section
// 7 this is a deadlock-surrogate result: it indicates a handshake bug in
// the pipeline itself, never a valid runtime outcome, and callers must
// not retry the same job expecting a different answer.
var ErrCycleCapExceeded = errors.New("pipe: run_to_completion exceeded cycle cap")

// DefaultMaxCycles is the cycle cap spec.md section 4.3.3 recommends:
// pipeline depth (11) plus slack.
const DefaultMaxCycles = 100

// TensorCore owns the 64 DPUs of the 8x8x8 matrix multiply-accumulate
// array (spec.md section 4.3.3). It is the sole type external
// collaborators drive: load_inputs, tick, run_to_completion, and the
// d_out/d_fp22 read surface of spec.md section 6.
type TensorCore struct {
	dpus [8][8]DPU

	inputPrec  fp.InputPrec
	outputPrec fp.OutputPrec
	rm         fp.RoundMode
	loaded     bool
}

// NewTensorCore returns a TensorCore with all 64 DPUs reset and no job
// installed.
func NewTensorCore() *TensorCore {
	return &TensorCore{}
}

// Reset clears every DPU's pipeline state and output-valid bits, and
// clears the installed-job flag. It does not touch any statistics
// object a caller layers on top (see internal/metrics.Stats.Reset for
// the separate statistics-reset operation spec.md section 6 and this
// repository's section 4 supplement distinguish).
func (t *TensorCore) Reset() {
	for i := range t.dpus {
		for j := range t.dpus[i] {
			t.dpus[i][j].Reset()
		}
	}
	t.loaded = false
}

// LoadInputs validates and installs a new job: widens A and B to FP9
// and C to FP22 (spec.md section 9's "pre-conversion happens once at
// job-install time, not per-tick"), resets every DPU, and installs the
// row/column/bias operands. It rejects unsupported precision tags as a
// configuration error per spec.md section 7, fail-fast before any DPU
// state is touched.
func (t *TensorCore) LoadInputs(a, b, c [8][8]uint32, inputPrec fp.InputPrec, outputPrec fp.OutputPrec, rm fp.RoundMode) error {
	if err := validateInputPrec(inputPrec); err != nil {
		return err
	}
	if err := validateOutputPrec(outputPrec); err != nil {
		return err
	}
	if err := validateRoundMode(rm); err != nil {
		return err
	}

	var aFP9, bFP9 [8][8]uint32
	var cFP22 [8][8]uint32
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			aFP9[i][j] = fp.WidenToFP9(a[i][j], inputPrec)
			bFP9[i][j] = fp.WidenToFP9(b[i][j], inputPrec)
			cFP22[i][j] = fp.ConvertCToFP22(c[i][j], inputPrec)
		}
	}

	t.Reset()
	for i := 0; i < 8; i++ {
		var bCol [8]uint32
		for j := 0; j < 8; j++ {
			for k := 0; k < 8; k++ {
				bCol[k] = bFP9[k][j]
			}
			t.dpus[i][j].Install(aFP9[i], bCol, cFP22[i][j], outputPrec, rm)
		}
	}
	t.inputPrec = inputPrec
	t.outputPrec = outputPrec
	t.rm = rm
	t.loaded = true
	return nil
}

func validateInputPrec(p fp.InputPrec) error {
	switch p {
	case fp.PrecFP4, fp.PrecFP8E4M3, fp.PrecFP8E5M2, fp.PrecFP16:
		return nil
	default:
		return fmt.Errorf("pipe: unsupported input precision tag %d", p)
	}
}

func validateOutputPrec(p fp.OutputPrec) error {
	switch p {
	case fp.PrecOutFP8E4M3, fp.PrecOutFP8E5M2, fp.PrecOutFP16, fp.PrecOutFP32:
		return nil
	default:
		return fmt.Errorf("pipe: unsupported output precision tag %d", p)
	}
}

func validateRoundMode(rm fp.RoundMode) error {
	switch rm {
	case fp.RNE, fp.RTZ, fp.RDN, fp.RUP, fp.RMM:
		return nil
	default:
		return fmt.Errorf("pipe: unsupported rounding mode %d", rm)
	}
}

// Tick advances every DPU by one clock edge. Order across DPUs is
// immaterial: no DPU reads another DPU's state (spec.md section 5).
func (t *TensorCore) Tick() {
	for i := range t.dpus {
		for j := range t.dpus[i] {
			t.dpus[i][j].Tick()
		}
	}
}

// AllValid reports whether every output element has a valid result.
func (t *TensorCore) AllValid() bool {
	for i := range t.dpus {
		for j := range t.dpus[i] {
			if !t.dpus[i][j].OutputValid() {
				return false
			}
		}
	}
	return true
}

// RunToCompletion ticks until every D_valid[i][j] is set or maxCycles
// is reached, returning the number of ticks issued. maxCycles <= 0
// selects DefaultMaxCycles. Per spec.md section 7, hitting the cap
// returns maxCycles together with ErrCycleCapExceeded -- callers must
// not retry the job.
func (t *TensorCore) RunToCompletion(maxCycles int) (int, error) {
	if maxCycles <= 0 {
		maxCycles = DefaultMaxCycles
	}
	for cycles := 1; cycles <= maxCycles; cycles++ {
		t.Tick()
		if t.AllValid() {
			return cycles, nil
		}
	}
	return maxCycles, ErrCycleCapExceeded
}

// DOut returns D[i][j] in the configured output format. Valid only if
// DValid(i, j) is true.
func (t *TensorCore) DOut(i, j int) uint32 { return t.dpus[i][j].Output() }

// DValid reports D_valid[i][j].
func (t *TensorCore) DValid(i, j int) bool { return t.dpus[i][j].OutputValid() }

// DFP22 returns the internal FP22 accumulator for element (i, j), for
// comparison against internal/ref (spec.md section 8, property 1).
func (t *TensorCore) DFP22(i, j int) uint32 { return t.dpus[i][j].FP22() }

// DOutResult snapshots a completed job's full D_out/D_fp22 output plus
// the cycle count run_to_completion reported, for callers (the Flight
// server, the snapshot dump) that need the whole 8x8 grid rather than
// reading element by element.
type DOutResult struct {
	DOut   [8][8]uint32
	DFP22  [8][8]uint32
	Cycles int
}

// Snapshot returns a DOutResult for the current job. Valid only once
// AllValid is true.
func (t *TensorCore) Snapshot(cycles int) DOutResult {
	var r DOutResult
	r.Cycles = cycles
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			r.DOut[i][j] = t.dpus[i][j].Output()
			r.DFP22[i][j] = t.dpus[i][j].FP22()
		}
	}
	return r
}
