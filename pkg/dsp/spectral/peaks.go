package spectral

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// DefaultNoisePercentile is the fraction of lowest-magnitude bins treated
// as noise when estimating the floor
const DefaultNoisePercentile = 0.9

// Peak is a detected spectral peak: a local magnitude maximum whose
// prominence clears the detection threshold
type Peak struct {
	Freq      float64 `json:"freq"`
	Magnitude float64 `json:"magnitude"`
	Phase     float64 `json:"phase"`
	Bin       int     `json:"bin"`
}

// PeakDetector extracts genuine signal peaks from a magnitude spectrum by
// comparing peak prominence against an adaptive noise floor
type PeakDetector struct {
	noisePercentile float64
}

// NewPeakDetector creates a peak detector. noisePercentile selects the
// fraction of lowest bins used for the floor estimate; values outside
// (0, 1] fall back to DefaultNoisePercentile.
func NewPeakDetector(noisePercentile float64) *PeakDetector {
	if noisePercentile <= 0 || noisePercentile > 1 {
		noisePercentile = DefaultNoisePercentile
	}
	return &PeakDetector{noisePercentile: noisePercentile}
}

// NoiseFloor estimates the noise floor as the RMS of the lowest
// noisePercentile fraction of magnitude bins. The assumption is that
// genuine signal occupies a minority of bins, so the bulk of the sorted
// spectrum is noise.
func (pd *PeakDetector) NoiseFloor(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	count := int(pd.noisePercentile * float64(len(sorted)))
	if count == 0 {
		return 0
	}

	subset := sorted[:count]
	return math.Sqrt(floats.Dot(subset, subset) / float64(count))
}

// Detect finds local magnitude maxima whose prominence is at least
// minSNR times the noise floor and pairs each with the phase at the same
// bin. Equally prominent maxima are all kept; closely spaced peaks may
// overlap in the downstream amplitude band.
func (pd *PeakDetector) Detect(magnitude, phase SpectrumFrame, minSNR float64) []Peak {
	values := magnitude.Values
	if len(values) < 3 {
		return nil
	}

	threshold := pd.NoiseFloor(values) * minSNR

	var peaks []Peak
	for i := 1; i < len(values)-1; i++ {
		if values[i] <= values[i-1] || values[i] <= values[i+1] {
			continue
		}
		if prominence(values, i) < threshold {
			continue
		}

		p := Peak{
			Freq:      magnitude.Freqs[i],
			Magnitude: values[i],
			Bin:       i,
		}
		if i < len(phase.Values) {
			p.Phase = phase.Values[i]
		}
		peaks = append(peaks, p)
	}

	return peaks
}

// prominence is the height of the maximum at index i above the higher of
// the two nearest valleys: on each side, the minimum between the peak and
// the first bin exceeding it (or the end of the spectrum).
func prominence(values []float64, i int) float64 {
	peak := values[i]

	left := peak
	for j := i - 1; j >= 0; j-- {
		if values[j] > peak {
			break
		}
		if values[j] < left {
			left = values[j]
		}
	}

	right := peak
	for j := i + 1; j < len(values); j++ {
		if values[j] > peak {
			break
		}
		if values[j] < right {
			right = values[j]
		}
	}

	return peak - math.Max(left, right)
}
