package fp

import "github.com/vela-silicon/tensorcore-sim/internal/rnd"

// CanonicalNaN returns the canonical quiet NaN bit pattern for f, per
// spec.md section 9: "on any NaN generation, the output mantissa is
// set to 1 << (mantissa_width - 1) (quiet bit set, payload otherwise
// zero)". FP8-E4M3 is the exception: its only NaN encoding is the
// all-ones exponent with an all-ones mantissa, so its canonical NaN
// uses that pattern. The sign bit of a canonical NaN is always 0;
// callers that need to preserve an input NaN's sign may encode with a
// different sign directly.
func (f Format) CanonicalNaN() uint32 {
	if !f.HasInf {
		return f.Encode(0, f.ExpMask(), f.MantMask())
	}
	quiet := uint32(1) << (f.MantWidth - 1)
	return f.Encode(0, f.ExpMask(), quiet)
}

// Inf returns the infinity bit pattern for f with the given sign. It
// panics if f.HasInf is false -- FP8-E4M3 has no infinity encoding and
// callers must route through the saturation logic in convert.go
// instead.
func (f Format) Inf(sign uint32) uint32 {
	if !f.HasInf {
		panic("fp: " + f.Name + " has no infinity encoding")
	}
	return f.Encode(sign, f.ExpMask(), 0)
}

// Zero returns the signed-zero bit pattern for f.
func (f Format) Zero(sign uint32) uint32 {
	return f.Encode(sign, 0, 0)
}

// MaxFinite returns the value an overflowing result saturates to, with
// the given sign: exp=ExpMask()-1, mant=allones. For every format with
// an infinity encoding this is the largest-magnitude finite value; for
// FP8-E4M3 it is exp=14,mant=7 (spec.md section 9), although Decode
// classifies exp=15 with a mantissa below all-ones as larger finite
// values. The all-ones-mantissa NaN carve-out only applies at
// exp==ExpMask(); at exp==ExpMask()-1 every mantissa value, including
// all-ones, is a legal finite value, so this always uses the full
// mantissa field.
func (f Format) MaxFinite(sign uint32) uint32 {
	return f.Encode(sign, f.ExpMask()-1, f.MantMask())
}

// IsNaN reports whether bits decodes to a NaN under f.
func (f Format) IsNaN(bits uint32) bool {
	return f.Decode(bits).Class == ClassNaN
}

// IsInf reports whether bits decodes to an infinity under f.
func (f Format) IsInf(bits uint32) bool {
	return f.HasInf && f.Decode(bits).Class == ClassInf
}

// IsZero reports whether bits decodes to a zero (either sign) under f.
func (f Format) IsZero(bits uint32) bool {
	return f.Decode(bits).Class == ClassZero
}

// Saturate reports whether an overflowing result should saturate to
// MaxFinite (true) or Inf (false); see rnd.Saturate for the rounding
// table this applies (spec.md section 9).
func Saturate(rm RoundMode, sign uint32, hasInf bool) bool {
	return rnd.Saturate(rm, sign == 1, hasInf)
}
