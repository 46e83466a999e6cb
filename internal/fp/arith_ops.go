package fp

import "github.com/vela-silicon/tensorcore-sim/internal/arith"

// FP9Multiply computes a*b in FP9-E5M3 via ARITH parameterized at
// (5, 3) -- the sole multiply operating point spec.md section 4.2
// names. Both operands and the result are 9-bit FP9 bit patterns.
func FP9Multiply(a, b uint32, rm RoundMode) uint32 {
	return arith.FMul(a, b, 5, 3, rm)
}

// FP9Add computes a+b in FP9-E5M3 by zero-extending both 3-bit stored
// mantissas to 7 bits before entering ARITH at (5, 7) and rounding back
// to 3, per spec.md section 9's "zero-padded FP9 addition" note. This
// is the adder the DPU's multiplier tree (ADD_L0/L1/L2) and REF's
// fp9_add both call.
func FP9Add(a, b uint32, rm RoundMode) uint32 {
	ea := zeroExtendMant(a, FP9, 7)
	eb := zeroExtendMant(b, FP9, 7)
	return arith.FAdd(ea, eb, 5, 7, 3, rm)
}

// FP22Add computes a+b in FP22-E8M13 by zero-extending both 13-bit
// stored mantissas to 27 bits before entering ARITH at (8, 27) and
// rounding back to 13, matching the FP9 adder's zero-padding discipline
// at the accumulator's wider format (spec.md section 9).
func FP22Add(a, b uint32, rm RoundMode) uint32 {
	ea := zeroExtendMant(a, FP22, 27)
	eb := zeroExtendMant(b, FP22, 27)
	return arith.FAdd(ea, eb, 8, 27, 13, rm)
}

// FP9Mul2 curries FP9Multiply at a fixed rounding mode, for callers that
// pass a combine func(x, y uint32) uint32 to a SkidBuffer.
func FP9Mul2(rm RoundMode) func(uint32, uint32) uint32 {
	return func(a, b uint32) uint32 { return FP9Multiply(a, b, rm) }
}

// FP9Add2 curries FP9Add at a fixed rounding mode.
func FP9Add2(rm RoundMode) func(uint32, uint32) uint32 {
	return func(a, b uint32) uint32 { return FP9Add(a, b, rm) }
}

// FP22Add2 curries FP22Add at a fixed rounding mode.
func FP22Add2(rm RoundMode) func(uint32, uint32) uint32 {
	return func(a, b uint32) uint32 { return FP22Add(a, b, rm) }
}

// zeroExtendMant repacks bits from format f into a same-exponent-width
// layout with newMantWidth stored mantissa bits, left-shifting the
// original mantissa into the high bits of the wider field and leaving
// the low bits zero.
func zeroExtendMant(bits uint32, f Format, newMantWidth uint) uint32 {
	d := f.Decode(bits)
	newMant := d.Mant << (newMantWidth - f.MantWidth)
	wide := Format{ExpWidth: f.ExpWidth, MantWidth: newMantWidth, Bias: f.Bias, HasInf: f.HasInf}
	return wide.Encode(d.Sign, d.Exp, newMant)
}
