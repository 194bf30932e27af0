package domain

import (
	"math"
	"math/rand"
	"testing"
)

func uniformSpectrum(v float64) *Spectrum {
	s := &Spectrum{}
	for i := range s.Energy {
		for j := range s.Energy[i] {
			s.Energy[i][j] = v
		}
	}
	return s
}

func randomSpectrum(seed int64) *Spectrum {
	r := rand.New(rand.NewSource(seed))
	s := &Spectrum{}
	for i := range s.Energy {
		for j := range s.Energy[i] {
			s.Energy[i][j] = r.Float64() * 0.5
		}
	}
	return s
}

func TestAxes(t *testing.T) {
	f := Frequencies()
	if len(f) != NumFrequencies {
		t.Fatalf("expected %d frequencies, got %d", NumFrequencies, len(f))
	}
	if f[0] != 0.0345 {
		t.Errorf("f[0]: expected 0.0345, got %v", f[0])
	}
	for i := 1; i < len(f); i++ {
		if math.Abs(f[i]/f[i-1]-1.1) > 1e-12 {
			t.Fatalf("f[%d]/f[%d] = %v, expected 1.1", i, i-1, f[i]/f[i-1])
		}
	}

	d := Directions()
	if len(d) != NumDirections {
		t.Fatalf("expected %d directions, got %d", NumDirections, len(d))
	}
	if d[0] != 7.5 || d[len(d)-1] != 352.5 {
		t.Errorf("direction axis bounds: got %v .. %v", d[0], d[len(d)-1])
	}
}

func TestMoment0_Uniform(t *testing.T) {
	s := uniformSpectrum(1.0)
	// 720 bins * Δf (0.00345) * Δθ (15).
	expected := 720 * 0.00345 * 15
	if got := Moment0(&s.Energy); math.Abs(got-expected) > 1e-9 {
		t.Errorf("m0: expected %v, got %v", expected, got)
	}
	if got := SignificantWaveHeight(expected); math.Abs(got-4*math.Sqrt(expected)) > 1e-12 {
		t.Errorf("Hs: expected %v, got %v", 4*math.Sqrt(expected), got)
	}
}

func TestSignificantWaveHeight_NonNegative(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		s := randomSpectrum(seed)
		if hs := SignificantWaveHeight(Moment0(&s.Energy)); hs < 0 || math.IsNaN(hs) {
			t.Fatalf("seed %d: Hs must be non-negative, got %v", seed, hs)
		}
	}
	if hs := SignificantWaveHeight(0); hs != 0 {
		t.Errorf("zero spectrum: expected Hs 0, got %v", hs)
	}
	if hs := SignificantWaveHeight(-1); hs != 0 {
		t.Errorf("negative m0: expected Hs 0, got %v", hs)
	}
}

func TestPartition_ConservesEnergy(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		s := randomSpectrum(seed)
		windSea, swell := Partition(&s.Energy, DefaultWindSeaThresholdHz)

		total := Moment0(&s.Energy)
		sum := Moment0(&windSea) + Moment0(&swell)
		if math.Abs(total-sum) > 1e-9*total {
			t.Fatalf("seed %d: m0(wind)+m0(swell) = %v, m0(total) = %v", seed, sum, total)
		}

		// Heights do not add up; energy does.
		p := Analyze(s, DefaultWindSeaThresholdHz)
		if math.Abs(p.HsWindSea+p.HsSwell-p.Hs) < 1e-6 {
			t.Fatalf("seed %d: Hs should not be additive", seed)
		}
		if p.SwellFraction < 0 || p.SwellFraction > 1 {
			t.Fatalf("seed %d: swell fraction out of range: %v", seed, p.SwellFraction)
		}
	}
}

func TestPartitionIndex(t *testing.T) {
	f := Frequencies()
	// f[13] ≈ 0.1191, f[14] ≈ 0.1310.
	if got := PartitionIndex(f, 0.13); got != 14 {
		t.Errorf("expected split at bin 14, got %d", got)
	}
	if got := PartitionIndex(f, 0.0); got != 0 {
		t.Errorf("expected split at bin 0, got %d", got)
	}
	if got := PartitionIndex(f, 10); got != NumFrequencies-1 {
		t.Errorf("expected split at last bin, got %d", got)
	}

	s := uniformSpectrum(1.0)
	windSea, swell := Partition(&s.Energy, 0.13)
	if swell[13][0] != 1 || swell[14][0] != 0 {
		t.Errorf("bins below the split belong to swell: got %v, %v", swell[13][0], swell[14][0])
	}
	if windSea[14][0] != 1 || windSea[13][0] != 0 {
		t.Errorf("bins at or above the split belong to wind sea: got %v, %v", windSea[14][0], windSea[13][0])
	}
}

func TestPeakPeriod(t *testing.T) {
	s := &Spectrum{}
	for j := range s.Energy[5] {
		s.Energy[5][j] = 2.0
	}
	s.Energy[20][3] = 1.0

	f := Frequencies()
	got := PeakPeriod(FrequencySpectrum(&s.Energy), f)
	if math.Abs(got-1/f[5]) > 1e-12 {
		t.Errorf("Tp: expected %v, got %v", 1/f[5], got)
	}
	if got := PeakPeriod(nil, f); got != 0 {
		t.Errorf("empty spectrum: expected 0, got %v", got)
	}
}

func TestMeanDirection(t *testing.T) {
	dirs := Directions()
	e := make([]float64, NumDirections)
	e[2] = 1.0 // 37.5°
	if got := MeanDirection(e, dirs); math.Abs(got-37.5) > 1e-9 {
		t.Errorf("single bin: expected 37.5, got %v", got)
	}

	e = make([]float64, NumDirections)
	e[20] = 1.0 // 307.5°
	e[21] = 1.0 // 322.5°
	if got := MeanDirection(e, dirs); math.Abs(got-315) > 1e-9 {
		t.Errorf("two bins: expected 315, got %v", got)
	}
}

func TestMeanDirection_RotationInvariant(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	dirs := Directions()
	rotated := make([]float64, len(dirs))
	for i, d := range dirs {
		rotated[i] = d + 360
	}

	for trial := 0; trial < 20; trial++ {
		e := make([]float64, NumDirections)
		for j := range e {
			e[j] = r.Float64()
		}
		a := MeanDirection(e, dirs)
		b := MeanDirection(e, rotated)
		diff := math.Abs(a - b)
		if diff > 180 {
			diff = 360 - diff
		}
		if diff > 1e-9 {
			t.Fatalf("trial %d: mean direction changed under rotation: %v vs %v", trial, a, b)
		}
		if a < 0 || a >= 360 {
			t.Fatalf("trial %d: mean direction out of range: %v", trial, a)
		}
	}
}

func TestDirectionalSpread(t *testing.T) {
	dirs := Directions()

	e := make([]float64, NumDirections)
	e[4] = 3.0
	if got := DirectionalSpread(e, dirs); math.Abs(got) > 1e-5 {
		t.Errorf("single direction: expected 0 spread, got %v", got)
	}

	for j := range e {
		e[j] = 1.0
	}
	expected := Rad2Deg(math.Sqrt2)
	if got := DirectionalSpread(e, dirs); math.Abs(got-expected) > 1e-6 {
		t.Errorf("isotropic: expected %v, got %v", expected, got)
	}

	if got := DirectionalSpread(make([]float64, NumDirections), dirs); got != 0 {
		t.Errorf("zero energy: expected 0, got %v", got)
	}
}

func TestAnalyze_ZeroSpectrum(t *testing.T) {
	p := Analyze(&Spectrum{}, 0)
	if p.Hs != 0 || p.HsSwell != 0 || p.HsWindSea != 0 || p.SwellFraction != 0 || p.SpreadDeg != 0 {
		t.Errorf("zero spectrum should yield zero parameters, got %+v", p)
	}
}

func TestAnalyze_SwellOnly(t *testing.T) {
	s := &Spectrum{}
	for i := 0; i < 10; i++ {
		s.Energy[i][0] = 1.0
	}
	p := Analyze(s, DefaultWindSeaThresholdHz)
	if math.Abs(p.SwellFraction-1) > 1e-12 {
		t.Errorf("expected swell fraction 1, got %v", p.SwellFraction)
	}
	if p.M0WindSea != 0 {
		t.Errorf("expected no wind-sea energy, got %v", p.M0WindSea)
	}
}
