package pipe

import "github.com/vela-silicon/tensorcore-sim/internal/fp"

// l0Pairs is the adder tree's load-bearing pairing: (0,4), (1,5),
// (2,6), (3,7) rather than adjacent (0,1),(2,3),... Reassociating this
// table changes the result for inputs where FP9 addition is not
// associative (spec.md section 4.3.2, section 9, and property 4 of
// section 8). Do not "simplify" this to a fold.
var l0Pairs = [4][2]int{{0, 4}, {1, 5}, {2, 6}, {3, 7}}

// l1Pairs consumes the four L0 outputs as (L0[0],L0[1]), (L0[2],L0[3]).
var l1Pairs = [2][2]int{{0, 1}, {2, 3}}

// DPU is one of the 64 dot-product units of spec.md section 4.3.2: an
// 11-stage elastic pipeline computing one element of D. Every register
// here is exclusively owned and mutated by this DPU's Tick.
type DPU struct {
	mul   [8]SkidBuffer
	l0    [4]SkidBuffer
	l1    [2]SkidBuffer
	l2    SkidBuffer
	final SkidBuffer

	convValid bool
	convData  uint32

	inputLoaded bool
	a, b        [8]uint32 // A[i][*], B[*][j], FP9
	c           uint32    // C[i][j], FP22
	rm          fp.RoundMode
	outPrec     fp.OutputPrec

	dValid bool
	d      uint32
}

// Reset clears every register and the output-valid bit, per spec.md
// section 6's reset() and the load_inputs installation step.
func (d *DPU) Reset() {
	*d = DPU{rm: d.rm, outPrec: d.outPrec}
}

// Install latches this DPU's row/column/bias operands for a new job.
// Per spec.md section 4.3.3, load_inputs clears all DPU registers
// before installing, so Install always starts from a zeroed DPU.
func (d *DPU) Install(aRow, bCol [8]uint32, c uint32, outPrec fp.OutputPrec, rm fp.RoundMode) {
	*d = DPU{inputLoaded: true, a: aRow, b: bCol, c: c, rm: rm, outPrec: outPrec}
}

// OutputValid reports D_valid[i][j].
func (d *DPU) OutputValid() bool { return d.dValid }

// Output returns D[i][j] in the configured output format; valid only
// when OutputValid is true.
func (d *DPU) Output() uint32 { return d.d }

// FP22 returns the internal FP22 accumulator value latched by
// FINAL_ADD, exposed for comparison against REF per spec.md section 8
// property 1. Valid only once the DPU has advanced past FINAL_ADD.
func (d *DPU) FP22() uint32 { return d.final.Res() }

// Tick advances the DPU by one clock edge. Stages are updated in
// reverse-dataflow order -- CONV, then FINAL_ADD, then the adder tree
// L2/L1/L0, then the eight multipliers -- so that every stage reads the
// *previous* cycle's downstream readiness, per spec.md section 4.3.2
// and section 5. Iterating in forward order would collapse the
// pipeline to single-cycle latency.
func (d *DPU) Tick() {
	// 1. CONV
	convWasEmpty := !d.convValid
	if d.final.OutValid() && convWasEmpty {
		d.convValid = true
		d.convData = fp.NarrowFP22(d.final.Res(), d.outPrec, d.rm)
		d.dValid = true
		d.d = d.convData
	}
	finalOutReady := convWasEmpty

	// 2. FINAL_ADD
	finalInReadyForL2 := d.final.InReady(finalOutReady)
	l2Res := d.l2.Res()
	d.final.Tick(d.l2.OutValid(), fp.WidenFP9ToFP22(l2Res), d.c, finalOutReady, fp.FP22Add2(d.rm))

	// 3a. ADD_L2
	l2InReadyForL1 := d.l2.InReady(finalInReadyForL2)
	d.l2.Tick(d.l1[0].OutValid() && d.l1[1].OutValid(), d.l1[0].Res(), d.l1[1].Res(), finalInReadyForL2, fp.FP9Add2(d.rm))

	// 3b. ADD_L1
	var l1InReadyForL0 [2]bool
	for a := 0; a < 2; a++ {
		l1InReadyForL0[a] = d.l1[a].InReady(l2InReadyForL1)
		p := l1Pairs[a]
		d.l1[a].Tick(d.l0[p[0]].OutValid() && d.l0[p[1]].OutValid(), d.l0[p[0]].Res(), d.l0[p[1]].Res(), l2InReadyForL1, fp.FP9Add2(d.rm))
	}

	// 3c. ADD_L0
	var l0Accepted [4]bool
	var mulOutReady [8]bool
	for a := 0; a < 4; a++ {
		p := l0Pairs[a]
		outReady := l1InReadyForL0[a/2]
		l0Accepted[a] = d.l0[a].Tick(d.mul[p[0]].OutValid() && d.mul[p[1]].OutValid(), d.mul[p[0]].Res(), d.mul[p[1]].Res(), outReady, fp.FP9Add2(d.rm))
		mulOutReady[p[0]] = l0Accepted[a]
		mulOutReady[p[1]] = l0Accepted[a]
	}

	// 4. MUL[0..7]
	for k := 0; k < 8; k++ {
		inValid := d.inputLoaded && !d.mul[k].OutValid()
		d.mul[k].Tick(inValid, d.a[k], d.b[k], mulOutReady[k], fp.FP9Mul2(d.rm))
	}
}
