package audio

import "math"

// Lip-sync tuning
const (
	// SmoothingFactor is the first-order smoothing step toward the target
	SmoothingFactor = 0.3
	// SpeechBins is the number of low frequency bins averaged for speech energy
	SpeechBins = 30
	// EnergyScale maps mean bin energy onto [0, 1]
	EnergyScale = 100.0
)

// SpeechEnergy is the mean of the lowest SpeechBins frequency bins
func SpeechEnergy(bins []uint8) float64 {
	n := SpeechBins
	if len(bins) < n {
		n = len(bins)
	}
	if n == 0 {
		return 0
	}

	sum := 0
	for _, v := range bins[:n] {
		sum += int(v)
	}
	return float64(sum) / float64(n)
}

// TargetFromEnergy maps raw energy to a mouth-open target in [0, 1]
func TargetFromEnergy(energy float64) float64 {
	return clamp01(energy / EnergyScale)
}

// Smooth moves previous toward target by SmoothingFactor and clamps the
// result to [0, 1]. It depends only on its arguments, not on frame timing.
func Smooth(previous, target float64) float64 {
	return clamp01(previous + (target-previous)*SmoothingFactor)
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
