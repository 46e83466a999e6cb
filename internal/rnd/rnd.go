// Package rnd holds the five rounding modes shared by the fp and arith
// packages and the single round-up predicate both of them apply (the
// "rounding table" of spec.md section 4.2.1/4.2.2).
package rnd

// Mode selects how an inexact result is rounded.
type Mode int

const (
	RNE Mode = iota // round to nearest, ties to even
	RTZ             // round toward zero (truncate)
	RDN             // round toward -Inf
	RUP             // round toward +Inf
	RMM             // round to nearest, ties away from zero
)

// RoundUp implements the rounding table of spec.md section 4.2.1:
//
//	RNE: guard && (sticky || lsb)
//	RTZ: never
//	RDN: sign && inexact
//	RUP: !sign && inexact
//	RMM: guard
//
// guard is the first dropped bit, sticky is the OR of all bits dropped
// below guard, lsb is the least significant bit of the kept mantissa
// (the tie-breaker for RNE), and sign is the sign of the result being
// rounded.
func RoundUp(m Mode, sign bool, guard, sticky, lsb bool) bool {
	inexact := guard || sticky
	switch m {
	case RNE:
		return guard && (sticky || lsb)
	case RTZ:
		return false
	case RDN:
		return sign && inexact
	case RUP:
		return !sign && inexact
	case RMM:
		return guard
	default:
		return false
	}
}

// Result is the outcome of rounding a kept mantissa by one ULP: Out is
// the (possibly incremented) kept value, Inexact records whether any
// rounded-away bit was nonzero, and Cout is the carry out of the
// increment -- a mantissa that wrapped from all-ones to zero, which the
// caller must fold into the exponent.
type Result struct {
	Out     uint64
	Inexact bool
	Cout    bool
}

// Round applies RoundUp to a width-bit kept value and performs the
// increment, reporting the carry out. This is the shared "rounder"
// primitive both ARITH's multiplier and adder apply to their kept
// mantissa before reassembling a result (spec.md section 4.2.1/4.2.2).
func Round(in uint64, width uint, sign, guard, sticky bool, m Mode) Result {
	mask := uint64(1)<<width - 1
	in &= mask
	lsb := in&1 != 0
	up := RoundUp(m, sign, guard, sticky, lsb)
	sum := in
	if up {
		sum++
	}
	return Result{Out: sum & mask, Inexact: guard || sticky, Cout: sum>>width != 0}
}

// Saturate reports whether an overflowing result should saturate to
// the largest finite value (true) rather than go to infinity (false),
// per spec.md section 9. hasInf must be false for formats without an
// infinity encoding (FP8-E4M3), forcing saturation unconditionally.
func Saturate(m Mode, sign bool, hasInf bool) bool {
	if !hasInf {
		return true
	}
	switch m {
	case RTZ:
		return true
	case RDN:
		return !sign
	case RUP:
		return sign
	default: // RNE, RMM
		return false
	}
}
