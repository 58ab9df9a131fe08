// internal/dsp/goertzel.go
// Package dsp turns audio samples into keyed tone on/off events.
package dsp

import (
	"errors"
	"math"
)

var (
	// ErrInvalidBlockSize indicates block size must be positive
	ErrInvalidBlockSize = errors.New("block size must be positive")
	// ErrInvalidSampleRate indicates sample rate must be positive
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrInvalidFrequency indicates frequency must be positive and below Nyquist
	ErrInvalidFrequency = errors.New("target frequency must be positive and less than Nyquist frequency")
	// ErrInsufficientSamples indicates not enough samples for the configured block size
	ErrInsufficientSamples = errors.New("insufficient samples for block size")
)

// GoertzelConfig holds configuration for the Goertzel filter.
type GoertzelConfig struct {
	// TargetFrequency is the CW tone to detect in Hz (from config: tone_frequency)
	TargetFrequency float64
	// SampleRate is the audio sample rate in Hz (from config: sample_rate)
	SampleRate float64
	// BlockSize is the number of samples per detection window (from config: block_size)
	BlockSize int
}

// Goertzel measures the energy of a single frequency bin. For one tone it is
// cheaper than an FFT.
type Goertzel struct {
	config      GoertzelConfig
	coefficient float64 // 2 * cos(omega)
	normalizer  float64 // 2 / N, so a full-scale sine reads close to 1.0
}

// NewGoertzel creates a Goertzel filter for cfg.
func NewGoertzel(cfg GoertzelConfig) (*Goertzel, error) {
	if cfg.BlockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	if cfg.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if cfg.TargetFrequency <= 0 || cfg.TargetFrequency >= cfg.SampleRate/2 {
		return nil, ErrInvalidFrequency
	}

	omega := 2 * math.Pi * cfg.TargetFrequency / cfg.SampleRate

	return &Goertzel{
		config:      cfg,
		coefficient: 2 * math.Cos(omega),
		normalizer:  2 / float64(cfg.BlockSize),
	}, nil
}

// Magnitude returns the normalized magnitude of the target frequency in the
// first BlockSize samples.
func (g *Goertzel) Magnitude(samples []float32) (float64, error) {
	if len(samples) < g.config.BlockSize {
		return 0, ErrInsufficientSamples
	}
	return g.magnitude(samples[:g.config.BlockSize]), nil
}

// magnitude runs the recurrence over block. Caller guarantees the length.
func (g *Goertzel) magnitude(block []float32) float64 {
	var s1, s2 float64
	coeff := g.coefficient

	for _, x := range block {
		s0 := float64(x) + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}

	// power = s1² + s2² - coefficient * s1 * s2
	power := s1*s1 + s2*s2 - coeff*s1*s2
	if power < 0 {
		power = 0
	}
	return math.Sqrt(power) * g.normalizer
}

// Config returns the current configuration
func (g *Goertzel) Config() GoertzelConfig {
	return g.config
}

// BlockSize returns the configured block size
func (g *Goertzel) BlockSize() int {
	return g.config.BlockSize
}

// SampleRate returns the configured sample rate
func (g *Goertzel) SampleRate() float64 {
	return g.config.SampleRate
}
