// Package ref implements REF: the flat combinational oracle of spec.md
// section 4.4. It computes the same dot product as pipe.DPU using the
// same tree pairing, but with no pipeline state -- every call returns a
// complete result, used to check the pipeline's FP22 accumulator for
// bit-exactness (spec.md section 8, property 1).
package ref

import "github.com/vela-silicon/tensorcore-sim/internal/fp"

// l0Pairs mirrors pipe.l0Pairs: reassociating this table is exactly the
// change that property 4 requires to produce a different result.
var l0Pairs = [4][2]int{{0, 4}, {1, 5}, {2, 6}, {3, 7}}

// DotFP22 computes D[i][j] for one output element: eight FP9 products,
// summed by the (0,4)(1,5)(2,6)(3,7) tree, widened to FP22, and added to
// c. aRow and bCol are FP9 bit patterns; c is an FP22 bit pattern.
func DotFP22(aRow, bCol [8]uint32, c uint32, rm fp.RoundMode) uint32 {
	var p [8]uint32
	for k := 0; k < 8; k++ {
		p[k] = fp.FP9Multiply(aRow[k], bCol[k], rm)
	}

	var s0 [4]uint32
	for a, pair := range l0Pairs {
		s0[a] = fp.FP9Add(p[pair[0]], p[pair[1]], rm)
	}

	s1_0 := fp.FP9Add(s0[0], s0[1], rm)
	s1_1 := fp.FP9Add(s0[2], s0[3], rm)
	s2 := fp.FP9Add(s1_0, s1_1, rm)

	return fp.FP22Add(fp.WidenFP9ToFP22(s2), c, rm)
}

// Matmul computes D_fp22[8][8] for a full job: A, B are FP9 8x8
// matrices, C is an FP22 8x8 matrix.
func Matmul(a, b [8][8]uint32, c [8][8]uint32, rm fp.RoundMode) [8][8]uint32 {
	var d [8][8]uint32
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			var bCol [8]uint32
			for k := 0; k < 8; k++ {
				bCol[k] = b[k][j]
			}
			d[i][j] = DotFP22(a[i], bCol, c[i][j], rm)
		}
	}
	return d
}
