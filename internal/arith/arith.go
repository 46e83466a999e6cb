// Package arith implements the parameterized fused multiplier and adder
// primitives of spec.md section 4.2 -- the ARITH layer of the tensor
// core. Both FMul and FAdd are templated by (expWidth, mantWidth) where
// mantWidth counts only the stored significand bits; the hidden bit is
// implicit and never stored, matching the convention of internal/fp.
//
// ARITH operates purely on bit patterns and widths -- it has no notion
// of which named format (FP9, FP22, ...) a caller is working with. That
// naming lives in internal/fp, which calls into here at the two fixed
// operating points spec.md names: (5,3) for the FP9 multiplier and
// (5,7)/(8,27) for the zero-padded FP9/FP22 adders.
package arith

import "github.com/vela-silicon/tensorcore-sim/internal/rnd"

// clz counts the leading zero bits of val within a width-bit field.
func clz(val uint64, width uint) uint {
	if width == 0 {
		return 0
	}
	val &= uint64(1)<<width - 1
	if val == 0 {
		return width
	}
	c := uint(0)
	for i := int(width) - 1; i >= 0; i-- {
		if val&(uint64(1)<<uint(i)) != 0 {
			break
		}
		c++
	}
	return c
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func maxU(a, b uint) uint {
	if a > b {
		return a
	}
	return b
}

func minU(a, b uint) uint {
	if a < b {
		return a
	}
	return b
}

// decoded holds the fields ARITH needs out of a packed operand: the
// biased exponent with the subnormal-forced-to-1 correction already
// applied, the significand with the hidden bit attached when the
// operand is normal, and the classification flags spec.md section 3
// defines uniformly across formats with an infinity encoding.
type decoded struct {
	sign      uint64
	rawExp    uint64 // biased exponent field, subnormal (0) forced to 1
	sig       uint64 // mantWidth+1 bits, hidden bit attached iff normal
	expZero   bool
	isZero    bool
	isInf     bool
	isNaN     bool
	isSNaN    bool
}

func decode(bits uint32, expWidth, mantWidth uint) decoded {
	expMask := uint64(1)<<expWidth - 1
	mantMask := uint64(1)<<mantWidth - 1
	exp := (uint64(bits) >> mantWidth) & expMask
	mant := uint64(bits) & mantMask
	sign := (uint64(bits) >> (expWidth + mantWidth)) & 1

	expZero := exp == 0
	expOnes := exp == expMask
	mantZero := mant == 0

	d := decoded{
		sign:    sign,
		expZero: expZero,
		isZero:  expZero && mantZero,
		isInf:   expOnes && mantZero,
		isNaN:   expOnes && !mantZero,
	}
	d.isSNaN = d.isNaN && (mant>>(mantWidth-1))&1 == 0
	if expZero {
		d.rawExp = 1
		d.sig = mant
	} else {
		d.rawExp = exp
		d.sig = mant | uint64(1)<<mantWidth
	}
	return d
}

func encode(sign, exp, mant uint64, expWidth, mantWidth uint) uint32 {
	expMask := uint64(1)<<expWidth - 1
	mantMask := uint64(1)<<mantWidth - 1
	return uint32(((sign & 1) << (expWidth + mantWidth)) | ((exp & expMask) << mantWidth) | (mant & mantMask))
}

// canonicalNaN builds the quiet-NaN bit pattern spec.md section 9
// mandates: sign 0, exponent all-ones, mantissa with only the quiet bit
// (MSB of the stored field) set.
func canonicalNaN(expWidth, mantWidth uint) uint32 {
	expMask := uint64(1)<<expWidth - 1
	quiet := uint64(1) << (mantWidth - 1)
	return encode(0, expMask, quiet, expWidth, mantWidth)
}

func infBits(sign uint64, expWidth, mantWidth uint) uint32 {
	return encode(sign, uint64(1)<<expWidth-1, 0, expWidth, mantWidth)
}

func maxFiniteBits(sign uint64, expWidth, mantWidth uint) uint32 {
	expMask := uint64(1)<<expWidth - 1
	mantMask := uint64(1)<<mantWidth - 1
	return encode(sign, expMask-1, mantMask, expWidth, mantWidth)
}

func zeroBits(sign uint64, expWidth, mantWidth uint) uint32 {
	return encode(sign, 0, 0, expWidth, mantWidth)
}

// overflowResult assembles the saturate-vs-infinity outcome spec.md
// section 9 describes as a single predicate: saturate = (rm==RTZ) ||
// (rm==RDN && !sign) || (rm==RUP && sign).
func overflowResult(sign uint64, expWidth, mantWidth uint, rm rnd.Mode) uint32 {
	if rnd.Saturate(rm, sign == 1, true) {
		return maxFiniteBits(sign, expWidth, mantWidth)
	}
	return infBits(sign, expWidth, mantWidth)
}
