package fp

import "math"

// ToFloat64 decodes bits under f into the nearest float64 value. It
// exists solely for the software-oracle comparison of spec.md section 8
// scenario F; nothing in the pipeline or REF ever converts through
// float64, since every pipeline operation stays in fixed-width integer
// bit patterns end to end.
func (f Format) ToFloat64(bits uint32) float64 {
	d := f.Decode(bits)
	sign := 1.0
	if d.Sign == 1 {
		sign = -1.0
	}
	switch d.Class {
	case ClassZero:
		return sign * 0.0
	case ClassNaN:
		return math.NaN()
	case ClassInf:
		return sign * math.Inf(1)
	case ClassSubnormal:
		mant := float64(d.Mant) / float64(uint32(1)<<f.MantWidth)
		return sign * mant * math.Pow(2, float64(1-f.Bias))
	default:
		mant := 1.0 + float64(d.Mant)/float64(uint32(1)<<f.MantWidth)
		return sign * mant * math.Pow(2, float64(int(d.Exp)-f.Bias))
	}
}

// FromFloat64 encodes v into f using round-to-nearest-even, for
// building test fixtures (spec.md section 8's scenarios are stated in
// terms of decimal values like "FP16-1.0"). It is not used anywhere in
// the pipeline or REF, which never touch float64.
func (f Format) FromFloat64(v float64) uint32 {
	sign := uint32(0)
	if math.Signbit(v) {
		sign = 1
		v = -v
	}
	if v == 0 {
		return f.Zero(sign)
	}
	if math.IsNaN(v) {
		return f.CanonicalNaN()
	}
	if math.IsInf(v, 0) {
		if f.HasInf {
			return f.Inf(sign)
		}
		return f.MaxFinite(sign)
	}

	frac, exp2 := math.Frexp(v) // v = frac * 2^exp2, 0.5 <= frac < 1
	exp := exp2 - 1
	mant := frac * 2

	biased := exp + f.Bias
	mantBits := mant - 1.0
	if biased <= 0 {
		shift := 1 - biased
		mantBits = mant / math.Pow(2, float64(shift))
		biased = 0
	}

	scaled := mantBits * float64(uint32(1)<<f.MantWidth)
	rounded := uint64(math.Round(scaled))
	if rounded>>f.MantWidth != 0 {
		rounded = 0
		biased++
	}
	if biased >= int(f.ExpMask()) {
		if f.Saturating() {
			return f.MaxFinite(sign)
		}
		return f.Inf(sign)
	}
	return f.Encode(sign, uint32(biased), uint32(rounded))
}

// Saturating reports whether overflow in this format saturates to
// MaxFinite instead of producing infinity.
func (f Format) Saturating() bool { return !f.HasInf }

// Format returns the Format a given InputPrec value is encoded in.
func (p InputPrec) Format() Format {
	switch p {
	case PrecFP4:
		return FP4
	case PrecFP8E4M3:
		return FP8E4M3
	case PrecFP8E5M2:
		return FP8E5M2
	default:
		return FP16
	}
}

// Format returns the Format a given OutputPrec value is encoded
// in.
func (p OutputPrec) Format() Format {
	switch p {
	case PrecOutFP8E4M3:
		return FP8E4M3
	case PrecOutFP8E5M2:
		return FP8E5M2
	case PrecOutFP16:
		return FP16
	default:
		return FP32
	}
}
