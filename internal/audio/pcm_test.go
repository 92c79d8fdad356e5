package audio

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func TestResample(t *testing.T) {
	samples := make([]float64, 2400) // 0.1 seconds at 24kHz
	for i := range samples {
		samples[i] = float64(i%100) / 100
	}

	out := resample(samples, 24000, 8000)

	expectedLen := 800
	tolerance := 5
	if len(out) < expectedLen-tolerance || len(out) > expectedLen+tolerance {
		t.Errorf("Expected length around %d, got %d", expectedLen, len(out))
	}

	same := resample(samples, 24000, 24000)
	if len(same) != len(samples) {
		t.Errorf("Expected no-op resample to keep %d samples, got %d", len(samples), len(same))
	}
}

func TestResample_Upsample(t *testing.T) {
	out := resample([]float64{0, 1}, 1, 2)
	if len(out) != 4 {
		t.Fatalf("Expected 4 samples, got %d", len(out))
	}
	if out[1] != 0.5 {
		t.Errorf("Expected interpolated 0.5, got %f", out[1])
	}
}

func TestDownmix(t *testing.T) {
	mono := downmix([]float64{1, 0, 0.5, 0.5, -1, 1}, 2)
	expected := []float64{0.5, 0.5, 0}
	if len(mono) != len(expected) {
		t.Fatalf("Expected %d frames, got %d", len(expected), len(mono))
	}
	for i := range expected {
		if mono[i] != expected[i] {
			t.Errorf("Frame %d: expected %f, got %f", i, expected[i], mono[i])
		}
	}
}

func TestPCM_Int16LE(t *testing.T) {
	pcm := &PCM{Samples: []float64{0, 1, -1, 2}, SampleRate: 24000}
	data := pcm.Int16LE()

	if len(data) != 8 {
		t.Fatalf("Expected 8 bytes, got %d", len(data))
	}
	expected := []int16{0, math.MaxInt16, -math.MaxInt16, math.MaxInt16}
	for i, want := range expected {
		got := int16(binary.LittleEndian.Uint16(data[i*2:]))
		if got != want {
			t.Errorf("Sample %d: expected %d, got %d", i, want, got)
		}
	}
}

func TestPCM_Duration(t *testing.T) {
	pcm := &PCM{Samples: make([]float64, 12000), SampleRate: 24000}
	if pcm.Duration() != 500*time.Millisecond {
		t.Errorf("Expected 500ms, got %v", pcm.Duration())
	}
	if (&PCM{Samples: make([]float64, 10)}).Duration() != 0 {
		t.Error("Expected zero duration without a sample rate")
	}
}

func TestCalculateRMS(t *testing.T) {
	if CalculateRMS(nil) != 0 {
		t.Error("Expected RMS of empty input to be 0")
	}

	rms := CalculateRMS([]float64{0.5, -0.5, 0.5, -0.5})
	if math.Abs(rms-0.5) > 1e-9 {
		t.Errorf("Expected RMS 0.5, got %f", rms)
	}
}
