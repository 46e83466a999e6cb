package fp

// clz counts the leading zero bits of val within a width-bit field --
// used by the subnormal-renormalizing conversions below, mirroring the
// RTL lzc module.
func clz(val uint32, width uint) uint {
	if val == 0 {
		return width
	}
	c := uint(0)
	for i := int(width) - 1; i >= 0; i-- {
		if val&(1<<uint(i)) != 0 {
			break
		}
		c++
	}
	return c
}

// InputPrec names a matrix-input precision accepted at the tensor
// core's A/B/C ports (spec.md section 4.1).
type InputPrec int

const (
	PrecFP4 InputPrec = iota
	PrecFP8E4M3
	PrecFP8E5M2
	PrecFP16
)

// OutputPrec names a D-matrix output precision (spec.md section 4.1).
type OutputPrec int

const (
	PrecOutFP8E4M3 OutputPrec = iota
	PrecOutFP8E5M2
	PrecOutFP16
	PrecOutFP32
)

// WidenToFP9 converts a narrow input-format value to FP9-E5M3, the
// internal format the multiplier and adder tree operate at. Each
// narrower-exponent source is re-centered onto FP9's bias of 15.
func WidenToFP9(bits uint32, prec InputPrec) uint32 {
	switch prec {
	case PrecFP4:
		return fp4ToFP9(bits & 0xF)
	case PrecFP8E4M3:
		return fp8e4m3ToFP9(bits & 0xFF)
	case PrecFP8E5M2:
		return fp8e5m2ToFP9(bits & 0xFF)
	case PrecFP16:
		return fp16ToFP9(bits & 0xFFFF)
	default:
		return 0
	}
}

// fp4ToFP9 re-centers FP4-E2M1 (bias 1) onto FP9 (bias 15). Per spec.md
// section 9's second open question, a subnormal FP4 input is preserved
// as the RTL source maps it: to the FP9 normal value 1.0 x 2^-1, not a
// mathematically equivalent subnormal -- intentionally not "improved".
func fp4ToFP9(v uint32) uint32 {
	s := (v >> 3) & 1
	e := (v >> 1) & 3
	m := v & 1
	switch {
	case e == 3 && m == 1:
		return (s << 8) | (0x1F << 3) | 4 // NaN
	case e == 3:
		return (s << 8) | (0x1F << 3) // Inf
	case e == 0 && m == 0:
		return s << 8 // zero
	case e == 0:
		return (s << 8) | (14 << 3) // subnormal -> 1.0 * 2^-1
	default:
		return (s << 8) | ((e + 14) << 3) | (m << 2)
	}
}

// fp8e4m3ToFP9 re-centers FP8-E4M3 (bias 7) onto FP9 (bias 15); its
// 3-bit mantissa is copied unshifted since both formats carry 3 stored
// mantissa bits.
func fp8e4m3ToFP9(v uint32) uint32 {
	s := (v >> 7) & 1
	e := (v >> 3) & 0xF
	m := v & 7
	switch {
	case e == 0xF && m == 7:
		return (s << 8) | (0x1F << 3) | 4 // NaN (E4M3's only special value)
	case e == 0 && m == 0:
		return s << 8
	case e == 0:
		lz := clz(m, 3)
		ne := int(9) - int(lz)
		shifted := (m << (1 + lz)) & 7
		if ne <= 0 {
			return (s << 8) | shifted
		}
		return (s << 8) | (uint32(ne) << 3) | shifted
	default:
		ne := e + 8
		if ne >= 31 {
			return (s << 8) | (0x1F << 3) // overflow -> Inf
		}
		return (s << 8) | (ne << 3) | m
	}
}

// fp8e5m2ToFP9 passes the shared 5-bit exponent field through unchanged
// (both formats use bias 15) and left-aligns the 2-bit mantissa into
// FP9's 3-bit field.
func fp8e5m2ToFP9(v uint32) uint32 {
	s := (v >> 7) & 1
	e := (v >> 2) & 0x1F
	m := v & 3
	if e == 0x1F {
		if m != 0 {
			return (s << 8) | (0x1F << 3) | 4
		}
		return (s << 8) | (0x1F << 3)
	}
	return (s << 8) | (e << 3) | (m << 1)
}

// fp16ToFP9 truncates FP16's 10-bit mantissa to 3 bits with RNE,
// renormalizing subnormals first.
func fp16ToFP9(v uint32) uint32 {
	s := (v >> 15) & 1
	e := (v >> 10) & 0x1F
	m := v & 0x3FF
	if e == 0x1F {
		if m != 0 {
			return (s << 8) | (0x1F << 3) | 4
		}
		return (s << 8) | (0x1F << 3)
	}
	if e == 0 && m == 0 {
		return s << 8
	}
	if e == 0 {
		lz := clz(m, 10)
		ne := int(1) - int(lz)
		if ne <= 0 {
			return (s << 8) | ((m >> 7) & 7)
		}
		nm := (m << (1 + lz)) & 0x3FF
		return (s << 8) | (uint32(ne) << 3) | ((nm >> 7) & 7)
	}
	fp9m := (m >> 7) & 7
	g := (m>>6)&1 != 0
	r := (m>>5)&1 != 0
	st := m&0x1F != 0
	if g && (r || st || fp9m&1 != 0) {
		fp9m++
		if fp9m >= 8 {
			fp9m = 0
			e++
			if e >= 31 {
				return (s << 8) | (0x1F << 3)
			}
		}
	}
	return (s << 8) | (e << 3) | fp9m
}

// WidenInputToFP22 widens a C-matrix input value directly to the FP22
// accumulator format, re-biasing by +112 and left-shifting the
// mantissa, per spec.md section 4.1's "C-bias widening".
func WidenInputToFP22(bits uint32, prec InputPrec) uint32 {
	switch prec {
	case PrecFP16:
		return fp16ToFP22(bits & 0xFFFF)
	default:
		return fp9ToFP22(WidenToFP9(bits, prec))
	}
}

// WidenFP9ToFP22 widens an FP9-E5M3 bit pattern -- the adder tree's
// internal format -- directly to the FP22 accumulator format. FINAL_ADD
// calls this on the L2 adder's result before adding C[i][j].
func WidenFP9ToFP22(bits uint32) uint32 {
	return fp9ToFP22(bits)
}

func fp9ToFP22(v uint32) uint32 {
	s := (v >> 8) & 1
	e := (v >> 3) & 0x1F
	m := v & 7
	switch {
	case e == 0 && m == 0:
		return s << 21
	case e == 0x1F:
		if m != 0 {
			return (s << 21) | (0xFF << 13) | 0x1000 | (m << 10)
		}
		return (s << 21) | (0xFF << 13)
	case e == 0:
		lz := clz(m, 3)
		ne := int(-14) - int(lz) + 127
		if ne <= 0 {
			return (s << 21) | ((m << (10 + 1 + lz)) & 0x1FFF)
		}
		return (s << 21) | (uint32(ne) << 13) | (((m << (1 + lz)) & 7) << 10)
	default:
		return (s << 21) | ((e + 112) << 13) | (m << 10)
	}
}

func fp16ToFP22(v uint32) uint32 {
	s := (v >> 15) & 1
	e := (v >> 10) & 0x1F
	m := v & 0x3FF
	switch {
	case e == 0 && m == 0:
		return s << 21
	case e == 0x1F:
		if m != 0 {
			return (s << 21) | (0xFF << 13) | 0x1000
		}
		return (s << 21) | (0xFF << 13)
	case e == 0:
		lz := clz(m, 10)
		ne := int(-14) - int(lz) + 127
		if ne <= 0 {
			return (s << 21) | ((m << (3 + 1 + lz)) & 0x1FFF)
		}
		return (s << 21) | (uint32(ne) << 13) | ((((m << (1 + lz)) & 0x3FF) << 3) & 0x1FFF)
	default:
		return (s << 21) | ((e + 112) << 13) | ((m << 3) & 0x1FFF)
	}
}

// roundBits applies the shared rounding table to a guard/round/sticky
// triple taken from the bits dropped while narrowing FP22's mantissa,
// returning the rounded low bits and whether the increment carried.
func roundBits(kept uint32, keptWidth uint, sign bool, guard, sticky bool, rm RoundMode) (uint32, bool) {
	in := uint64(kept)
	lsb := in&1 != 0
	up := roundUp(rm, sign, guard, sticky, lsb)
	sum := in
	if up {
		sum++
	}
	mask := uint64(1)<<keptWidth - 1
	return uint32(sum & mask), sum>>keptWidth != 0
}

func roundUp(rm RoundMode, sign bool, guard, sticky, lsb bool) bool {
	inexact := guard || sticky
	switch rm {
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

// NarrowFP22 converts the FP22 accumulator value to one of the four
// output formats, applying guard/round/sticky rounding and mode-aware
// saturate-vs-infinity overflow handling, per spec.md section 4.1.
func NarrowFP22(bits uint32, prec OutputPrec, rm RoundMode) uint32 {
	switch prec {
	case PrecOutFP8E4M3:
		return fp22ToFP8E4M3(bits, rm)
	case PrecOutFP8E5M2:
		return fp22ToFP8E5M2(bits, rm)
	case PrecOutFP16:
		return fp22ToFP16(bits, rm)
	default:
		return fp22ToFP32(bits)
	}
}

func fp22ToFP8E4M3(v uint32, rm RoundMode) uint32 {
	s := (v >> 21) & 1
	e := (v >> 13) & 0xFF
	m := v & 0x1FFF
	if e == 0xFF {
		return (s << 7) | (14 << 3) | 7 // no infinity: saturate
	}
	if e == 0 {
		return s << 7
	}
	ne := int(e) - 120
	fm := (uint32(1) << 13) | m
	if ne >= 15 {
		return (s << 7) | (14 << 3) | 7
	}
	if ne <= 0 {
		sh := uint(1 - ne)
		if sh > 14 {
			return s << 7
		}
		fm >>= sh
		o := (fm >> 10) & 7
		g, r, st := (fm>>9)&1 != 0, (fm>>8)&1 != 0, fm&0xFF != 0
		if roundUp(rm, s != 0, g, r || st, o&1 != 0) {
			o++
			if o >= 8 {
				o = 0
				ne = 1
			} else {
				ne = 0
			}
		} else {
			ne = 0
		}
		return (s << 7) | (uint32(ne) << 3) | (o & 7)
	}
	o := (m >> 10) & 7
	g, r, st := (m>>9)&1 != 0, (m>>8)&1 != 0, m&0xFF != 0
	if roundUp(rm, s != 0, g, r || st, o&1 != 0) {
		o++
		if o >= 8 {
			o = 0
			ne++
			if ne >= 15 {
				return (s << 7) | (14 << 3) | 7
			}
		}
	}
	return (s << 7) | (uint32(ne) << 3) | (o & 7)
}

func fp22ToFP8E5M2(v uint32, rm RoundMode) uint32 {
	s := (v >> 21) & 1
	e := (v >> 13) & 0xFF
	m := v & 0x1FFF
	if e == 0xFF {
		if m != 0 {
			return (s << 7) | (0x1F << 2) | 1
		}
		return (s << 7) | (0x1F << 2)
	}
	if e == 0 {
		return s << 7
	}
	ne := int(e) - 112
	if ne >= 31 {
		if Saturate(rm, s, true) {
			return (s << 7) | (30 << 2) | 3
		}
		return (s << 7) | (0x1F << 2)
	}
	fm := (uint32(1) << 13) | m
	if ne <= 0 {
		sh := uint(1 - ne)
		if sh > 14 {
			return s << 7
		}
		fm >>= sh
		o := (fm >> 11) & 3
		g, r, st := (fm>>10)&1 != 0, (fm>>9)&1 != 0, fm&0x1FF != 0
		if roundUp(rm, s != 0, g, r || st, o&1 != 0) {
			o++
			if o >= 4 {
				o = 0
				ne = 1
			} else {
				ne = 0
			}
		} else {
			ne = 0
		}
		return (s << 7) | (uint32(ne) << 2) | (o & 3)
	}
	o := (m >> 11) & 3
	g, r, st := (m>>10)&1 != 0, (m>>9)&1 != 0, m&0x1FF != 0
	if roundUp(rm, s != 0, g, r || st, o&1 != 0) {
		o++
		if o >= 4 {
			o = 0
			ne++
			if ne >= 31 {
				if Saturate(rm, s, true) {
					return (s << 7) | (30 << 2) | 3
				}
				return (s << 7) | (0x1F << 2)
			}
		}
	}
	return (s << 7) | (uint32(ne) << 2) | (o & 3)
}

func fp22ToFP16(v uint32, rm RoundMode) uint32 {
	s := (v >> 21) & 1
	e := (v >> 13) & 0xFF
	m := v & 0x1FFF
	if e == 0xFF {
		if m != 0 {
			return (s << 15) | (0x1F << 10) | 0x200
		}
		return (s << 15) | (0x1F << 10)
	}
	if e == 0 {
		return s << 15
	}
	ne := int(e) - 112
	if ne >= 31 {
		if Saturate(rm, s, true) {
			return (s << 15) | (30 << 10) | 0x3FF
		}
		return (s << 15) | (0x1F << 10)
	}
	fm := (uint32(1) << 13) | m
	if ne <= 0 {
		sh := uint(1 - ne)
		if sh > 14 {
			return s << 15
		}
		fm >>= sh
		o := (fm >> 3) & 0x3FF
		g, r, st := (fm>>2)&1 != 0, (fm>>1)&1 != 0, fm&1 != 0
		if roundUp(rm, s != 0, g, r || st, o&1 != 0) {
			o++
			if o >= 1024 {
				o = 0
				ne = 1
			} else {
				ne = 0
			}
		} else {
			ne = 0
		}
		return (s << 15) | (uint32(ne) << 10) | (o & 0x3FF)
	}
	o := (m >> 3) & 0x3FF
	g, r, st := (m>>2)&1 != 0, (m>>1)&1 != 0, m&1 != 0
	if roundUp(rm, s != 0, g, r || st, o&1 != 0) {
		o++
		if o >= 1024 {
			o = 0
			ne++
			if ne >= 31 {
				if Saturate(rm, s, true) {
					return (s << 15) | (30 << 10) | 0x3FF
				}
				return (s << 15) | (0x1F << 10)
			}
		}
	}
	return (s << 15) | (uint32(ne) << 10) | (o & 0x3FF)
}

// fp22ToFP32 widens FP22 to FP32 by bit-level concatenation with no
// rounding: per spec.md section 9's third open question, a subnormal
// FP22 value intentionally produces a subnormal (not renormalized)
// FP32 result. Treated as canonical, not "improved".
func fp22ToFP32(v uint32) uint32 {
	s := (v >> 21) & 1
	e := (v >> 13) & 0xFF
	m := v & 0x1FFF
	return (s << 31) | (e << 23) | (m << 10)
}

// ConvertCToFP22 widens a C-matrix operand to FP22 using the same
// input-precision dispatch as WidenInputToFP22; named separately per
// spec.md's "C-bias widening" operation so callers can distinguish the
// A/B-matrix path (WidenToFP9) from the C-matrix path.
func ConvertCToFP22(bits uint32, prec InputPrec) uint32 {
	return WidenInputToFP22(bits, prec)
}
