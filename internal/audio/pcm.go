package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// PCM is decoded mono audio with samples in [-1, 1]
type PCM struct {
	Samples    []float64
	SampleRate int
}

// Len returns the number of samples
func (p *PCM) Len() int {
	return len(p.Samples)
}

// Duration returns the playback length
func (p *PCM) Duration() time.Duration {
	if p.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(p.Samples)) * time.Second / time.Duration(p.SampleRate)
}

// Int16LE encodes the samples as signed 16-bit little-endian mono
func (p *PCM) Int16LE() []byte {
	out := make([]byte, len(p.Samples)*2)
	for i, sample := range p.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(floatToInt16(sample)))
	}
	return out
}

func floatToInt16(sample float64) int16 {
	if sample > 1 {
		sample = 1
	} else if sample < -1 {
		sample = -1
	}
	return int16(math.Round(sample * math.MaxInt16))
}

// downmix averages interleaved channels into mono
func downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}

	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}

// resample performs simple linear interpolation resampling
func resample(samples []float64, inputRate, outputRate int) []float64 {
	if inputRate == outputRate || inputRate <= 0 || outputRate <= 0 || len(samples) == 0 {
		return samples
	}

	ratio := float64(outputRate) / float64(inputRate)
	outputLength := int(float64(len(samples)) * ratio)
	output := make([]float64, outputLength)

	for i := 0; i < outputLength; i++ {
		srcPos := float64(i) / ratio

		idx0 := int(srcPos)
		idx1 := idx0 + 1
		if idx1 >= len(samples) {
			idx1 = len(samples) - 1
		}

		fraction := srcPos - float64(idx0)
		output[i] = samples[idx0]*(1.0-fraction) + samples[idx1]*fraction
	}

	return output
}

// CalculateRMS calculates the root mean square of the samples
func CalculateRMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, sample := range samples {
		sum += sample * sample
	}

	return math.Sqrt(sum / float64(len(samples)))
}
