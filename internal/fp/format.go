// Package fp implements the fixed-width custom floating-point encodings
// consumed by the tensor core: FP4, FP8-E4M3, FP8-E5M2, FP9-E5M3, FP16,
// FP22-E8M13 and FP32. Every encoding uses the same layout convention:
// sign bit, biased exponent, trailing significand with no stored hidden
// bit. Decode/encode pairs are total functions -- there is no error
// return, every bit pattern of the right width is a legal value.
package fp

import "github.com/vela-silicon/tensorcore-sim/internal/rnd"

// RoundMode selects how an inexact result is rounded to the target
// format's mantissa width. It is the shared rnd.Mode used uniformly by
// ARITH and FMT.
type RoundMode = rnd.Mode

const (
	RNE = rnd.RNE
	RTZ = rnd.RTZ
	RDN = rnd.RDN
	RUP = rnd.RUP
	RMM = rnd.RMM
)

// Class classifies a decoded value.
type Class int

const (
	ClassZero Class = iota
	ClassSubnormal
	ClassNormal
	ClassInf
	ClassNaN
)

// Format describes the bit layout of one of the encodings in the table
// of spec.md section 3. ExpWidth and MantWidth count only the stored
// bits (the hidden bit is implicit for normal values and is never
// stored). HasInf is false only for FP8-E4M3, which has no infinity
// encoding and saturates on overflow instead.
type Format struct {
	Name      string
	ExpWidth  uint
	MantWidth uint
	Bias      int
	HasInf    bool
}

var (
	FP4     = Format{Name: "fp4", ExpWidth: 2, MantWidth: 1, Bias: 1, HasInf: true}
	FP8E4M3 = Format{Name: "fp8e4m3", ExpWidth: 4, MantWidth: 3, Bias: 7, HasInf: false}
	FP8E5M2 = Format{Name: "fp8e5m2", ExpWidth: 5, MantWidth: 2, Bias: 15, HasInf: true}
	FP9     = Format{Name: "fp9", ExpWidth: 5, MantWidth: 3, Bias: 15, HasInf: true}
	FP16    = Format{Name: "fp16", ExpWidth: 5, MantWidth: 10, Bias: 15, HasInf: true}
	FP22    = Format{Name: "fp22", ExpWidth: 8, MantWidth: 13, Bias: 127, HasInf: true}
	FP32    = Format{Name: "fp32", ExpWidth: 8, MantWidth: 23, Bias: 127, HasInf: true}
)

// Width returns the total bit width of the encoding.
func (f Format) Width() uint { return 1 + f.ExpWidth + f.MantWidth }

// ExpMask returns the all-ones pattern for the exponent field.
func (f Format) ExpMask() uint32 { return (uint32(1) << f.ExpWidth) - 1 }

// MantMask returns the all-ones pattern for the mantissa field.
func (f Format) MantMask() uint32 { return (uint32(1) << f.MantWidth) - 1 }

// Decoded holds the three fields of a decoded value plus its
// classification, as produced by Format.Decode.
type Decoded struct {
	Sign  uint32 // 0 or 1
	Exp   uint32 // biased, as stored (0 means zero/subnormal)
	Mant  uint32 // stored mantissa bits, no hidden bit
	Class Class
}

// Decode splits bits (assumed to fit in f.Width() bits, higher bits
// ignored) into sign/exponent/mantissa and classifies the result per
// spec.md section 3: exponent all-ones with nonzero mantissa is NaN;
// exponent all-ones with zero mantissa is infinity (for formats that
// have one -- see the FP8-E4M3 carve-out in the !HasInf case below);
// exponent zero is
// zero or subnormal.
func (f Format) Decode(bits uint32) Decoded {
	expMask := f.ExpMask()
	mantMask := f.MantMask()
	sign := (bits >> (f.ExpWidth + f.MantWidth)) & 1
	exp := (bits >> f.MantWidth) & expMask
	mant := bits & mantMask

	d := Decoded{Sign: sign, Exp: exp, Mant: mant}
	switch {
	case !f.HasInf:
		// FP8-E4M3: exp==allones && mant==allones is NaN; everything
		// else with exp==allones is still a normal finite value.
		if exp == expMask && mant == mantMask {
			d.Class = ClassNaN
		} else if exp == 0 {
			if mant == 0 {
				d.Class = ClassZero
			} else {
				d.Class = ClassSubnormal
			}
		} else {
			d.Class = ClassNormal
		}
	case exp == expMask:
		if mant == 0 {
			d.Class = ClassInf
		} else {
			d.Class = ClassNaN
		}
	case exp == 0:
		if mant == 0 {
			d.Class = ClassZero
		} else {
			d.Class = ClassSubnormal
		}
	default:
		d.Class = ClassNormal
	}
	return d
}

// Encode assembles a bit pattern from sign/exponent/mantissa fields,
// masking each to its field width. Encode never fails: callers are
// responsible for producing fields consistent with the classification
// they intend (use the NaN/Inf helpers in nan.go for canonical special
// values).
func (f Format) Encode(sign, exp, mant uint32) uint32 {
	return ((sign & 1) << (f.ExpWidth + f.MantWidth)) |
		((exp & f.ExpMask()) << f.MantWidth) |
		(mant & f.MantMask())
}
