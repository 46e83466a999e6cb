package ref

import (
	"testing"

	"github.com/vela-silicon/tensorcore-sim/internal/fp"
)

func fp9Row(v float64) [8]uint32 {
	var r [8]uint32
	for i := range r {
		r[i] = fp.FP9.FromFloat64(v)
	}
	return r
}

func TestDotFP22AllOnes(t *testing.T) {
	// The (0,4)(1,5)(2,6)(3,7) tree pairing sums eight FP9 1.0 products
	// (all 1.0*1.0 = 1.0) to exactly 8.0, regardless of pairing, since
	// every addend is equal -- this is the same all-ones case scenario C
	// exercises against the full pipeline.
	a := fp9Row(1.0)
	b := fp9Row(1.0)
	c := fp.FP22.Zero(0)
	got := DotFP22(a, b, c, fp.RNE)
	want := fp.FP22.FromFloat64(8.0)
	if got != want {
		t.Errorf("DotFP22(ones) = %#x, want %#x (8.0)", got, want)
	}
}

func TestDotFP22ZeroRow(t *testing.T) {
	var a, b [8]uint32 // all +0
	c := fp.FP22.FromFloat64(3.5)
	got := DotFP22(a, b, c, fp.RNE)
	if got != c {
		t.Errorf("DotFP22(zero row, c=3.5) = %#x, want %#x (c unchanged)", got, c)
	}
}

func TestDotFP22NaNOperandPropagates(t *testing.T) {
	a := fp9Row(1.0)
	a[0] = fp.FP9.CanonicalNaN()
	b := fp9Row(1.0)
	c := fp.FP22.Zero(0)
	got := DotFP22(a, b, c, fp.RNE)
	if !fp.FP22.IsNaN(got) {
		t.Errorf("DotFP22 with a NaN operand = %#x, want NaN", got)
	}
}

func TestDotFP22SignedZeroRDN(t *testing.T) {
	// Mirrors pipe's scenario D: a is all +0, and b[4] alone is
	// negative, so every product is a zero whose sign follows the
	// multiplier's sign-XOR rule (+0 for k != 4, -0 for k == 4). Every
	// addition down the (0,4)(1,5)(2,6)(3,7) tree is then a genuine
	// zero-plus-zero, and under RDN the final accumulated zero must be
	// -0 (spec.md section 8 property 6).
	var a [8]uint32 // all +0
	b := fp9Row(1.0)
	b[4] = fp.FP9.FromFloat64(-1.0)
	c := fp.FP22.Zero(0)
	got := DotFP22(a, b, c, fp.RDN)
	want := fp.FP22.Zero(1)
	if got != want {
		t.Errorf("DotFP22 zero-cancellation under RDN = %#x, want -0 (%#x)", got, want)
	}
}

// TestMatmulIdentity checks property 7 at the flat-oracle level: A = I
// makes D equal B plus C.
func TestMatmulIdentity(t *testing.T) {
	var a, b, c, want [8][8]uint32
	for i := 0; i < 8; i++ {
		a[i][i] = fp.FP9.FromFloat64(1.0)
		for j := 0; j < 8; j++ {
			b[i][j] = fp.FP9.FromFloat64(float64(i*8+j) - 32)
			want[i][j] = fp.FP22Add2(fp.RNE)(fp.WidenFP9ToFP22(b[i][j]), c[i][j])
		}
	}

	got := Matmul(a, b, c, fp.RNE)
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			if got[i][j] != want[i][j] {
				t.Errorf("Matmul(I, B, 0)[%d][%d] = %#x, want %#x", i, j, got[i][j], want[i][j])
			}
		}
	}
}

func TestMatmulMatchesDotFP22(t *testing.T) {
	var a, b, c [8][8]uint32
	for i := 0; i < 8; i++ {
		for k := 0; k < 8; k++ {
			a[i][k] = fp.FP9.FromFloat64(float64(i - k))
			b[i][k] = fp.FP9.FromFloat64(float64(k - i))
		}
		c[i][i] = fp.FP22.FromFloat64(1.0)
	}

	got := Matmul(a, b, c, fp.RNE)
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			var bCol [8]uint32
			for k := 0; k < 8; k++ {
				bCol[k] = b[k][j]
			}
			want := DotFP22(a[i], bCol, c[i][j], fp.RNE)
			if got[i][j] != want {
				t.Errorf("Matmul[%d][%d] = %#x, want %#x (DotFP22 directly)", i, j, got[i][j], want)
			}
		}
	}
}
