// Package oracle computes an 8x8x8 matrix multiply-accumulate in
// software FP32 via gonum's dense matmul, used as the ground truth for
// spec.md section 8 scenario F's relative-error bound. It is not part
// of the bit-exact core (internal/pipe, internal/ref) and must never be
// confused with REF: REF is the bit-exact combinational oracle the
// pipeline is checked against; this package is the numerical oracle the
// whole fixed-point simulation is checked against for plausibility.
//
// Adapted from the teacher's cmd/fletcher/fast_blas.go, which wires
// gonum's BLAS implementation for fast floating-point matmul; here the
// matrices are always 8x8 so the pure-Go gonum implementation is used
// directly with no BLAS backend substitution (see DESIGN.md for why
// gonum.org/v1/netlib was not wired).
package oracle

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/vela-silicon/tensorcore-sim/internal/fp"
)

// Matmul computes D = A*B + C in float32-rounded arithmetic, decoding
// A and B from inputPrec and C from the FP22 accumulator format (the
// widened representation TensorCore.LoadInputs installs C in).
func Matmul(a, b [8][8]uint32, c [8][8]uint32, inputPrec fp.InputPrec) [8][8]float64 {
	af := inputPrec.Format()

	aData := make([]float64, 64)
	bData := make([]float64, 64)
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			aData[i*8+j] = roundFP32(af.ToFloat64(a[i][j]))
			bData[i*8+j] = roundFP32(af.ToFloat64(b[i][j]))
		}
	}

	am := mat.NewDense(8, 8, aData)
	bm := mat.NewDense(8, 8, bData)
	var dm mat.Dense
	dm.Mul(am, bm)

	var out [8][8]float64
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			cv := roundFP32(fp.FP22.ToFloat64(c[i][j]))
			out[i][j] = roundFP32(dm.At(i, j) + cv)
		}
	}
	return out
}

func roundFP32(v float64) float64 {
	return float64(float32(v))
}

// RelativeError returns |got-want|/|want|, or |got| if want is exactly
// zero (avoiding a division by zero for the common all-zero test
// inputs of spec.md section 8).
func RelativeError(got, want float64) float64 {
	if want == 0 {
		return math.Abs(got)
	}
	return math.Abs(got-want) / math.Abs(want)
}
