package arith

import "github.com/vela-silicon/tensorcore-sim/internal/rnd"

// FMul implements the three logical stages of the fused multiplier in
// spec.md section 4.2.1: classify-and-exponent-compute, mantissa
// product, then shift/round/assemble. It is total -- every (a, b) pair
// of expWidth+mantWidth-bit operands produces a defined result bit
// pattern, with no error return.
func FMul(a, b uint32, expWidth, mantWidth uint, rm rnd.Mode) uint32 {
	da := decode(a, expWidth, mantWidth)
	db := decode(b, expWidth, mantWidth)

	resultSign := da.sign ^ db.sign

	// --- Stage 1: classify and exponent-compute ---
	// p is PRECISION: the hidden-bit-inclusive significand width, the
	// quantity fmul_s1/s2/s3 parameterize on -- not the bare stored
	// mantissa width.
	p := mantWidth + 1
	paddingBits := p + 2

	bias := int64(1)<<(expWidth-1) - 1
	maxNormExp := int64(1)<<expWidth - 2
	expMask := int64(1)<<expWidth - 1

	expSum := int64(da.rawExp) + int64(db.rawExp)
	prodExp := expSum - (bias - int64(paddingBits+1))
	shiftLimRaw := expSum - (bias - int64(paddingBits))
	prodExpUF := shiftLimRaw < 0
	shiftLim := uint(0)
	if !prodExpUF {
		shiftLim = uint(shiftLimRaw)
	}

	lzcWidth := 2*p + 2
	subnormalSig := db.sig
	if da.expZero {
		subnormalSig = da.sig
	}
	lzcVal := clz(subnormalSig, lzcWidth)

	exceedLim := shiftLim <= lzcVal
	shiftAmt := uint(0)
	if !prodExpUF {
		if exceedLim {
			shiftAmt = shiftLim
		} else {
			shiftAmt = lzcVal
		}
	}
	mayBeSubnormal := prodExpUF || exceedLim
	expShifted := prodExp - int64(shiftAmt)
	earlyOverflow := expSum > maxNormExp+bias

	anyZero := da.isZero || db.isZero
	anyInf := da.isInf || db.isInf
	anyNaN := da.isNaN || db.isNaN
	zeroTimesInf := anyZero && anyInf

	// --- Stage 2: mantissa product ---
	prod := da.sig * db.sig // width 2p bits

	// --- Stage 3: shift, round, assemble ---
	totalWidth := 3*p + 2
	sigShiftedRaw := (prod << shiftAmt) & (uint64(1)<<totalWidth - 1)

	topBitSet := (sigShiftedRaw>>(totalWidth-1))&1 != 0
	expIsSubnormal := mayBeSubnormal && !topBitSet
	noExtraShift := topBitSet || expIsSubnormal

	var expPreRound int64
	switch {
	case expIsSubnormal:
		expPreRound = 0
	case noExtraShift:
		expPreRound = expShifted
	default:
		expPreRound = expShifted - 1
	}

	sigShifted := sigShiftedRaw
	if !noExtraShift {
		sigShifted = (sigShiftedRaw & (uint64(1)<<(totalWidth-1) - 1)) << 1
	}

	topBits := (sigShifted >> (2 * p)) & (uint64(1)<<(p+2) - 1)
	stickyLow := sigShifted&(uint64(1)<<(2*p)-1) != 0
	rawInSig := topBits<<1 | boolBit(stickyLow)

	rounder1In := rawInSig & (uint64(1)<<(p+2) - 1)
	kept := (rounder1In >> 3) & (uint64(1)<<mantWidth - 1)
	guard := (rounder1In>>2)&1 != 0
	sticky := rounder1In&0x3 != 0

	rr := rnd.Round(kept, mantWidth, resultSign == 1, guard, sticky, rm)

	rawInExp := uint64(expPreRound) & uint64(expMask)
	expRounded := int64(rawInExp)
	if rr.Cout {
		expRounded++
	}

	commonOF := earlyOverflow
	if rr.Cout {
		commonOF = commonOF || int64(rawInExp) == maxNormExp
	} else {
		commonOF = commonOF || int64(rawInExp) == expMask
	}

	var result uint32
	if commonOF {
		result = overflowResult(resultSign, expWidth, mantWidth, rm)
	} else {
		result = encode(resultSign, uint64(expRounded), rr.Out, expWidth, mantWidth)
	}

	if anyZero || anyInf || anyNaN {
		switch {
		case anyNaN || zeroTimesInf:
			result = canonicalNaN(expWidth, mantWidth)
		case anyInf:
			result = infBits(resultSign, expWidth, mantWidth)
		default: // anyZero, no inf/nan
			result = zeroBits(resultSign, expWidth, mantWidth)
		}
	}
	return result
}
