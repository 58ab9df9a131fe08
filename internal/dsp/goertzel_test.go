// internal/dsp/goertzel_test.go
package dsp

import (
	"math"
	"testing"
)

// Test configuration constants - these mirror config file values
const (
	testSampleRate    = 48000.0
	testToneFrequency = 600.0
	testBlockSize     = 512
)

// generateSineWave creates a sine wave at the specified frequency
func generateSineWave(frequency, sampleRate float64, numSamples int, amplitude float32) []float32 {
	samples := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		t := float64(i) / sampleRate
		samples[i] = amplitude * float32(math.Sin(2*math.Pi*frequency*t))
	}
	return samples
}

func newTestGoertzel(t *testing.T) *Goertzel {
	t.Helper()
	g, err := NewGoertzel(GoertzelConfig{
		TargetFrequency: testToneFrequency,
		SampleRate:      testSampleRate,
		BlockSize:       testBlockSize,
	})
	if err != nil {
		t.Fatalf("NewGoertzel() error = %v", err)
	}
	return g
}

func TestNewGoertzel_ValidConfig(t *testing.T) {
	g := newTestGoertzel(t)

	if g.Config().TargetFrequency != testToneFrequency {
		t.Errorf("TargetFrequency = %v, want %v", g.Config().TargetFrequency, testToneFrequency)
	}
	if g.BlockSize() != testBlockSize {
		t.Errorf("BlockSize() = %v, want %v", g.BlockSize(), testBlockSize)
	}
	if g.SampleRate() != testSampleRate {
		t.Errorf("SampleRate() = %v, want %v", g.SampleRate(), testSampleRate)
	}
}

func TestNewGoertzel_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  GoertzelConfig
		want error
	}{
		{"zero block size", GoertzelConfig{TargetFrequency: 600, SampleRate: 48000, BlockSize: 0}, ErrInvalidBlockSize},
		{"negative block size", GoertzelConfig{TargetFrequency: 600, SampleRate: 48000, BlockSize: -1}, ErrInvalidBlockSize},
		{"zero sample rate", GoertzelConfig{TargetFrequency: 600, SampleRate: 0, BlockSize: 512}, ErrInvalidSampleRate},
		{"zero frequency", GoertzelConfig{TargetFrequency: 0, SampleRate: 48000, BlockSize: 512}, ErrInvalidFrequency},
		{"at nyquist", GoertzelConfig{TargetFrequency: 24000, SampleRate: 48000, BlockSize: 512}, ErrInvalidFrequency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGoertzel(tt.cfg); err != tt.want {
				t.Errorf("NewGoertzel() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGoertzel_Magnitude_PureSineWave(t *testing.T) {
	g := newTestGoertzel(t)
	samples := generateSineWave(testToneFrequency, testSampleRate, testBlockSize, 1.0)

	mag, err := g.Magnitude(samples)
	if err != nil {
		t.Fatalf("Magnitude() error = %v", err)
	}
	if mag < 0.9 || mag > 1.1 {
		t.Errorf("Magnitude() = %v, want close to 1.0", mag)
	}
}

func TestGoertzel_Magnitude_Silence(t *testing.T) {
	g := newTestGoertzel(t)

	mag, err := g.Magnitude(make([]float32, testBlockSize))
	if err != nil {
		t.Fatalf("Magnitude() error = %v", err)
	}
	if mag != 0 {
		t.Errorf("Magnitude(silence) = %v, want 0", mag)
	}
}

func TestGoertzel_Magnitude_OffFrequency(t *testing.T) {
	g := newTestGoertzel(t)
	samples := generateSineWave(1500, testSampleRate, testBlockSize, 1.0)

	mag, err := g.Magnitude(samples)
	if err != nil {
		t.Fatalf("Magnitude() error = %v", err)
	}
	if mag > 0.1 {
		t.Errorf("Magnitude(1500 Hz) = %v, want < 0.1", mag)
	}
}

func TestGoertzel_Magnitude_ScalesWithAmplitude(t *testing.T) {
	g := newTestGoertzel(t)

	full, _ := g.Magnitude(generateSineWave(testToneFrequency, testSampleRate, testBlockSize, 1.0))
	half, _ := g.Magnitude(generateSineWave(testToneFrequency, testSampleRate, testBlockSize, 0.5))

	if ratio := half / full; math.Abs(ratio-0.5) > 0.01 {
		t.Errorf("half/full magnitude ratio = %v, want 0.5", ratio)
	}
}

func TestGoertzel_Magnitude_InsufficientSamples(t *testing.T) {
	g := newTestGoertzel(t)

	if _, err := g.Magnitude(make([]float32, testBlockSize-1)); err != ErrInsufficientSamples {
		t.Errorf("Magnitude() error = %v, want %v", err, ErrInsufficientSamples)
	}
}

func TestGoertzel_Magnitude_ExtraSamplesIgnored(t *testing.T) {
	g := newTestGoertzel(t)
	samples := generateSineWave(testToneFrequency, testSampleRate, testBlockSize, 1.0)
	padded := append(append([]float32{}, samples...), generateSineWave(1500, testSampleRate, 100, 1.0)...)

	a, _ := g.Magnitude(samples)
	b, _ := g.Magnitude(padded)
	if a != b {
		t.Errorf("Magnitude() with extra samples = %v, want %v", b, a)
	}
}
