package fp

import "testing"

// allFormats lists every predefined Format, for tests that check a
// property across the whole encoding table.
var allFormats = []Format{FP4, FP8E4M3, FP8E5M2, FP9, FP16, FP22, FP32}

// TestDecodeEncodeRoundTrip checks spec.md section 8 property 5:
// Encode(Decode(bits)) == bits for every bit pattern of a format. Decode
// and Encode are pure bit-splitting/reassembly with no normalization, so
// this must hold for every class (zero, subnormal, normal, inf, NaN)
// without exception.
func TestDecodeEncodeRoundTrip(t *testing.T) {
	for _, f := range allFormats {
		f := f
		t.Run(f.Name, func(t *testing.T) {
			width := f.Width()
			if width <= 16 {
				n := uint32(1) << width
				for bits := uint32(0); bits < n; bits++ {
					d := f.Decode(bits)
					if got := f.Encode(d.Sign, d.Exp, d.Mant); got != bits {
						t.Fatalf("Encode(Decode(%#x)) = %#x, want %#x", bits, got, bits)
					}
				}
				return
			}
			// Too wide to exhaust (FP22, FP32): sample the boundary and a
			// handful of interior patterns instead.
			samples := []uint32{
				0,
				1,
				f.MantMask(),
				f.ExpMask() << f.MantWidth,
				(f.ExpMask() << f.MantWidth) | f.MantMask(),
				(f.ExpMask() << f.MantWidth) | 1,
				uint32(1) << (f.Width() - 1), // sign bit alone
				(uint32(1) << (f.Width() - 1)) | (f.ExpMask() << f.MantWidth) | f.MantMask(),
				0x2A5A5,
			}
			for _, bits := range samples {
				bits &= (uint32(1) << width) - 1
				d := f.Decode(bits)
				if got := f.Encode(d.Sign, d.Exp, d.Mant); got != bits {
					t.Fatalf("Encode(Decode(%#x)) = %#x, want %#x", bits, got, bits)
				}
			}
		})
	}
}

func TestDecodeClassification(t *testing.T) {
	cases := []struct {
		name string
		f    Format
		bits uint32
		want Class
	}{
		{"fp9 zero", FP9, 0, ClassZero},
		{"fp9 neg zero", FP9, 1 << 8, ClassZero},
		{"fp9 subnormal", FP9, 1, ClassSubnormal},
		{"fp9 normal", FP9, 15 << 3, ClassNormal},
		{"fp9 inf", FP9, 0x1F << 3, ClassInf},
		{"fp9 nan", FP9, (0x1F << 3) | 1, ClassNaN},
		// FP8-E4M3 has no infinity: exp==allones is normal unless
		// mant is also allones, which is its only NaN encoding.
		{"e4m3 max normal, not nan", FP8E4M3, (0xF << 3) | 6, ClassNormal},
		{"e4m3 nan carve-out", FP8E4M3, (0xF << 3) | 7, ClassNaN},
		{"e4m3 zero", FP8E4M3, 0, ClassZero},
		{"e4m3 subnormal", FP8E4M3, 3, ClassSubnormal},
	}
	for _, c := range cases {
		if got := c.f.Decode(c.bits).Class; got != c.want {
			t.Errorf("%s: Decode(%#x).Class = %v, want %v", c.name, c.bits, got, c.want)
		}
	}
}

func TestCanonicalNaNIsNaN(t *testing.T) {
	for _, f := range allFormats {
		if !f.IsNaN(f.CanonicalNaN()) {
			t.Errorf("%s: CanonicalNaN() = %#x is not classified as NaN", f.Name, f.CanonicalNaN())
		}
	}
}

func TestInfPanicsWithoutInfinity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("FP8E4M3.Inf(0) did not panic")
		}
	}()
	FP8E4M3.Inf(0)
}

func TestZeroAndMaxFiniteSign(t *testing.T) {
	if !FP9.IsZero(FP9.Zero(0)) || !FP9.IsZero(FP9.Zero(1)) {
		t.Errorf("FP9.Zero(0/1) not classified as zero")
	}
	if FP9.Zero(0) == FP9.Zero(1) {
		t.Errorf("FP9.Zero(0) and FP9.Zero(1) must differ (signed zero)")
	}
	maxPos := FP8E4M3.MaxFinite(0)
	if FP8E4M3.IsNaN(maxPos) || FP8E4M3.IsInf(maxPos) {
		t.Errorf("FP8E4M3.MaxFinite(0) = %#x classified as special, want finite", maxPos)
	}
}

// TestWidenFP4SubnormalToFP9 pins the first of spec.md section 9's two
// explicitly non-"improved" open-question conversions: an FP4 subnormal
// input widens to FP9's normal 1.0 x 2^-1, not a mathematically
// equivalent FP9 subnormal.
func TestWidenFP4SubnormalToFP9(t *testing.T) {
	got := WidenToFP9(1, PrecFP4) // FP4 0_00_1: subnormal, smallest magnitude
	want := uint32(14 << 3)       // FP9 exp=14 (2^-1), mant=0
	if got != want {
		t.Errorf("WidenToFP9(fp4 subnormal) = %#x, want %#x", got, want)
	}
}

func TestWidenToFP9OneIsPreserved(t *testing.T) {
	cases := []struct {
		name string
		bits uint32
		prec InputPrec
	}{
		{"fp8e4m3 1.0", FP8E4M3.FromFloat64(1.0), PrecFP8E4M3},
		{"fp8e5m2 1.0", FP8E5M2.FromFloat64(1.0), PrecFP8E5M2},
		{"fp16 1.0", FP16.FromFloat64(1.0), PrecFP16},
	}
	want := FP9.FromFloat64(1.0)
	for _, c := range cases {
		if got := WidenToFP9(c.bits, c.prec); got != want {
			t.Errorf("WidenToFP9(%s) = %#x, want %#x (FP9 1.0)", c.name, got, want)
		}
	}
}

func TestWidenToFP9PropagatesNaNAndInf(t *testing.T) {
	if got := WidenToFP9(FP16.CanonicalNaN(), PrecFP16); !FP9.IsNaN(got) {
		t.Errorf("WidenToFP9(fp16 NaN) = %#x, want NaN", got)
	}
	if got := WidenToFP9(FP16.Inf(1), PrecFP16); !FP9.IsInf(got) || FP9.Decode(got).Sign != 1 {
		t.Errorf("WidenToFP9(fp16 -Inf) = %#x, want FP9 -Inf", got)
	}
	// FP8-E4M3 has no infinity; its all-ones-mantissa NaN carve-out must
	// still widen to an FP9 NaN.
	if got := WidenToFP9((0xF<<3)|7, PrecFP8E4M3); !FP9.IsNaN(got) {
		t.Errorf("WidenToFP9(e4m3 nan carve-out) = %#x, want NaN", got)
	}
}

func TestWidenFP9ToFP22RoundTripsOne(t *testing.T) {
	got := WidenFP9ToFP22(FP9.FromFloat64(1.0))
	want := FP22.FromFloat64(1.0)
	if got != want {
		t.Errorf("WidenFP9ToFP22(1.0) = %#x, want %#x", got, want)
	}
}

func TestWidenInputToFP22PropagatesSpecials(t *testing.T) {
	if got := WidenInputToFP22(FP16.CanonicalNaN(), PrecFP16); !FP22.IsNaN(got) {
		t.Errorf("WidenInputToFP22(fp16 NaN) = %#x, want NaN", got)
	}
	if got := WidenInputToFP22(FP16.Inf(0), PrecFP16); !FP22.IsInf(got) {
		t.Errorf("WidenInputToFP22(fp16 +Inf) = %#x, want +Inf", got)
	}
	if got := ConvertCToFP22(FP16.Zero(1), PrecFP16); !FP22.IsZero(got) {
		t.Errorf("ConvertCToFP22(fp16 -0) = %#x, want zero", got)
	}
}

// TestNarrowFP22OverflowSaturateVsInf exercises the rounding-mode-aware
// overflow path (RTZ/RDN/RUP saturate on the matching sign, RNE/RMM go
// to infinity) for formats that have an infinity encoding, and confirms
// FP8-E4M3 -- which has none -- always saturates regardless of rm.
func TestNarrowFP22OverflowSaturateVsInf(t *testing.T) {
	huge := FP22.Encode(0, FP22.ExpMask()-1, FP22.MantMask()) // FP22 max finite

	if got, want := NarrowFP22(huge, PrecOutFP8E4M3, RNE), FP8E4M3.MaxFinite(0); got != want {
		t.Errorf("NarrowFP22(huge, e4m3, RNE) = %#x, want saturated max finite %#x (format has no infinity)", got, want)
	}
	if got, want := NarrowFP22(huge, PrecOutFP8E5M2, RTZ), FP8E5M2.MaxFinite(0); got != want {
		t.Errorf("NarrowFP22(huge, e5m2, RTZ) = %#x, want saturated max finite %#x", got, want)
	}
	if got, want := NarrowFP22(huge, PrecOutFP16, RTZ), FP16.MaxFinite(0); got != want {
		t.Errorf("NarrowFP22(huge, fp16, RTZ) = %#x, want saturated max finite %#x", got, want)
	}
	if got := NarrowFP22(huge, PrecOutFP8E5M2, RNE); !FP8E5M2.IsInf(got) {
		t.Errorf("NarrowFP22(huge, e5m2, RNE) = %#x, want +Inf", got)
	}
}

func TestNarrowFP22PropagatesNaNAndInf(t *testing.T) {
	nan := FP22.CanonicalNaN()
	if got := NarrowFP22(nan, PrecOutFP16, RNE); !FP16.IsNaN(got) {
		t.Errorf("NarrowFP22(NaN, fp16) = %#x, want NaN", got)
	}
	inf := FP22.Inf(1)
	if got := NarrowFP22(inf, PrecOutFP16, RNE); !FP16.IsInf(got) || FP16.Decode(got).Sign != 1 {
		t.Errorf("NarrowFP22(-Inf, fp16) = %#x, want -Inf", got)
	}
	// FP8-E4M3 has no infinity encoding; narrowing an FP22 infinity must
	// saturate rather than propagate an unrepresentable special value.
	if got := NarrowFP22(inf, PrecOutFP8E4M3, RNE); FP8E4M3.IsNaN(got) {
		t.Errorf("NarrowFP22(-Inf, e4m3) = %#x, want saturated finite, got NaN", got)
	}
}

func TestNarrowFP22ZeroPolarity(t *testing.T) {
	if got := NarrowFP22(FP22.Zero(1), PrecOutFP16, RNE); got != FP16.Zero(1) {
		t.Errorf("NarrowFP22(-0, fp16) = %#x, want -0 (%#x)", got, FP16.Zero(1))
	}
}

// TestFP9AddZeroPolarityThroughFMT checks spec.md section 8 property 6
// (signed-zero cancellation rounds to -0 only under RDN) at the FMT
// layer's curried entry point, mirroring internal/arith's lower-level
// coverage of the same rule.
func TestFP9AddZeroPolarityThroughFMT(t *testing.T) {
	plusZero := FP9.Zero(0)
	negZero := FP9.Zero(1)
	if got := FP9Add(plusZero, negZero, RDN); got != negZero {
		t.Errorf("FP9Add(+0, -0, RDN) = %#x, want -0 (%#x)", got, negZero)
	}
	if got := FP9Add(plusZero, negZero, RNE); got != plusZero {
		t.Errorf("FP9Add(+0, -0, RNE) = %#x, want +0 (%#x)", got, plusZero)
	}
}

func TestFP9MultiplyBasic(t *testing.T) {
	one := FP9.FromFloat64(1.0)
	two := FP9.FromFloat64(2.0)
	if got := FP9Multiply(one, two, RNE); got != two {
		t.Errorf("FP9Multiply(1.0, 2.0) = %#x, want %#x", got, two)
	}
}

func TestFP22AddBasic(t *testing.T) {
	one := FP22.FromFloat64(1.0)
	two := FP22.FromFloat64(2.0)
	if got := FP22Add(one, one, RNE); got != two {
		t.Errorf("FP22Add(1.0, 1.0) = %#x, want %#x", got, two)
	}
}
