package domain

import (
	"math"
	"time"
)

const (
	// NumFrequencies is the number of frequency bins in a directional spectrum.
	NumFrequencies = 30
	// NumDirections is the number of direction bins in a directional spectrum.
	NumDirections = 24

	// FirstFrequencyHz is the lowest frequency bin.
	FirstFrequencyHz = 0.0345
	// FrequencyRatio is the geometric spacing between consecutive frequency bins.
	FrequencyRatio = 1.1

	// FirstDirectionDeg is the center of the first direction bin.
	FirstDirectionDeg = 7.5
	// DirectionStepDeg is the width of a direction bin.
	DirectionStepDeg = 15.0

	// DefaultWindSeaThresholdHz separates swell (below) from wind sea (above), ≈ 7.7 s.
	DefaultWindSeaThresholdHz = 0.13
)

// EnergyMatrix holds energy density per (frequency, direction) bin.
type EnergyMatrix [NumFrequencies][NumDirections]float64

// Spectrum is one decoded directional wave spectrum record.
type Spectrum struct {
	Time   time.Time
	Lat    float64
	Lon    float64
	Params []float64 // Auxiliary header values, as delivered.
	Energy EnergyMatrix
}

// Frequencies returns the frequency axis in Hz: f[i] = 0.0345 * 1.1^i.
func Frequencies() []float64 {
	f := make([]float64, NumFrequencies)
	for i := range f {
		f[i] = FirstFrequencyHz * math.Pow(FrequencyRatio, float64(i))
	}
	return f
}

// Directions returns the direction axis in degrees: 7.5, 22.5, ..., 352.5.
func Directions() []float64 {
	d := make([]float64, NumDirections)
	for i := range d {
		d[i] = FirstDirectionDeg + DirectionStepDeg*float64(i)
	}
	return d
}

// FrequencyStep is the integration step Δf, taken as the width of the first bin.
func FrequencyStep() float64 {
	return FirstFrequencyHz*FrequencyRatio - FirstFrequencyHz
}

// Moment0 returns the zeroth spectral moment m0 = ΣE * Δf * Δθ.
func Moment0(e *EnergyMatrix) float64 {
	var sum float64
	for i := range e {
		for j := range e[i] {
			sum += e[i][j]
		}
	}
	return sum * FrequencyStep() * DirectionStepDeg
}

// SignificantWaveHeight returns Hs = 4 * sqrt(m0). Non-positive m0 yields 0.
func SignificantWaveHeight(m0 float64) float64 {
	if m0 <= 0 || math.IsNaN(m0) {
		return 0
	}
	return 4.0 * math.Sqrt(m0)
}

// FrequencySpectrum integrates the matrix over direction.
func FrequencySpectrum(e *EnergyMatrix) []float64 {
	out := make([]float64, NumFrequencies)
	for i := range e {
		var sum float64
		for j := range e[i] {
			sum += e[i][j]
		}
		out[i] = sum * DirectionStepDeg
	}
	return out
}

// DirectionalSpectrum integrates the matrix over frequency.
func DirectionalSpectrum(e *EnergyMatrix) []float64 {
	out := make([]float64, NumDirections)
	for i := range e {
		for j := range e[i] {
			out[j] += e[i][j]
		}
	}
	df := FrequencyStep()
	for j := range out {
		out[j] *= df
	}
	return out
}

// PeakPeriod returns Tp = 1/fp where fp is the frequency with the most
// direction-integrated energy. The first maximum wins; a zero frequency yields 0.
func PeakPeriod(freqEnergy, frequencies []float64) float64 {
	if len(freqEnergy) == 0 || len(freqEnergy) != len(frequencies) {
		return 0
	}
	peak := 0
	for i := 1; i < len(freqEnergy); i++ {
		if freqEnergy[i] > freqEnergy[peak] {
			peak = i
		}
	}
	if frequencies[peak] <= 0 {
		return 0
	}
	return 1.0 / frequencies[peak]
}

// MeanDirection returns the energy-weighted circular mean direction in [0, 360).
func MeanDirection(dirEnergy, directionsDeg []float64) float64 {
	sinSum, cosSum := circularSums(dirEnergy, directionsDeg)
	deg := Rad2Deg(math.Atan2(sinSum, cosSum))
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg -= 360
	}
	return deg
}

// DirectionalSpread returns sqrt(2(1-r)) in degrees, where r is the resultant
// length of the normalized directional distribution. Zero energy yields 0.
func DirectionalSpread(dirEnergy, directionsDeg []float64) float64 {
	var total float64
	for _, e := range dirEnergy {
		total += e
	}
	if total == 0 {
		return 0
	}
	sinSum, cosSum := circularSums(dirEnergy, directionsDeg)
	r := math.Hypot(sinSum/total, cosSum/total)
	if r > 1 {
		r = 1
	}
	return Rad2Deg(math.Sqrt(2 * (1 - r)))
}

func circularSums(dirEnergy, directionsDeg []float64) (float64, float64) {
	var sinSum, cosSum float64
	for j, e := range dirEnergy {
		if j >= len(directionsDeg) {
			break
		}
		theta := Deg2Rad(directionsDeg[j])
		sinSum += e * math.Sin(theta)
		cosSum += e * math.Cos(theta)
	}
	return sinSum, cosSum
}

// PartitionIndex returns the index of the frequency bin nearest the threshold.
func PartitionIndex(frequencies []float64, thresholdHz float64) int {
	best := 0
	for i := 1; i < len(frequencies); i++ {
		if math.Abs(frequencies[i]-thresholdHz) < math.Abs(frequencies[best]-thresholdHz) {
			best = i
		}
	}
	return best
}

// Partition splits a spectrum at the bin nearest thresholdHz. Bins below the
// split belong to swell, bins at or above it to wind sea. Energy is conserved:
// m0(windSea) + m0(swell) == m0(total).
func Partition(e *EnergyMatrix, thresholdHz float64) (windSea, swell EnergyMatrix) {
	split := PartitionIndex(Frequencies(), thresholdHz)
	for i := range e {
		if i < split {
			swell[i] = e[i]
		} else {
			windSea[i] = e[i]
		}
	}
	return windSea, swell
}

// IntegratedParams are bulk wave parameters derived from a directional spectrum.
type IntegratedParams struct {
	M0            float64 `json:"m0"`
	Hs            float64 `json:"swh_total"`
	Tp            float64 `json:"tp"`
	MeanDirDeg    float64 `json:"mean_dir"`
	SpreadDeg     float64 `json:"dir_spread"`
	M0WindSea     float64 `json:"m0_wind_sea"`
	M0Swell       float64 `json:"m0_swell"`
	HsWindSea     float64 `json:"swh_wind_sea"`
	HsSwell       float64 `json:"swh_swell"`
	SwellFraction float64 `json:"swell_fraction"`
}

// Analyze derives the integrated parameters of a spectrum, splitting wind sea
// from swell at thresholdHz (DefaultWindSeaThresholdHz when <= 0).
func Analyze(s *Spectrum, thresholdHz float64) IntegratedParams {
	if thresholdHz <= 0 {
		thresholdHz = DefaultWindSeaThresholdHz
	}
	freqs := Frequencies()
	dirs := Directions()
	dirEnergy := DirectionalSpectrum(&s.Energy)

	p := IntegratedParams{
		M0:         Moment0(&s.Energy),
		Tp:         PeakPeriod(FrequencySpectrum(&s.Energy), freqs),
		MeanDirDeg: MeanDirection(dirEnergy, dirs),
		SpreadDeg:  DirectionalSpread(dirEnergy, dirs),
	}
	p.Hs = SignificantWaveHeight(p.M0)

	windSea, swell := Partition(&s.Energy, thresholdHz)
	p.M0WindSea = Moment0(&windSea)
	p.M0Swell = Moment0(&swell)
	p.HsWindSea = SignificantWaveHeight(p.M0WindSea)
	p.HsSwell = SignificantWaveHeight(p.M0Swell)
	if p.Hs > 0 {
		p.SwellFraction = p.HsSwell / p.Hs
	}
	return p
}
