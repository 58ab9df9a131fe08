// internal/dsp/detector.go
package dsp

import (
	"errors"
	"time"
)

var (
	// ErrInvalidThreshold indicates threshold must be between 0 and 1
	ErrInvalidThreshold = errors.New("threshold must be between 0.0 and 1.0")
	// ErrInvalidHysteresis indicates hysteresis must be non-negative
	ErrInvalidHysteresis = errors.New("hysteresis must be non-negative")
	// ErrInvalidOverlap indicates overlap percentage must be 0-99
	ErrInvalidOverlap = errors.New("overlap percentage must be between 0 and 99")
	// ErrInvalidAGCDecay indicates AGC decay must be between 0 and 1
	ErrInvalidAGCDecay = errors.New("agc decay must be between 0.0 and 1.0")
	// ErrInvalidAGCAttack indicates AGC attack must be between 0 and 1
	ErrInvalidAGCAttack = errors.New("agc attack must be between 0.0 and 1.0")
	// ErrInvalidAGCWarmup indicates AGC warmup blocks must be non-negative
	ErrInvalidAGCWarmup = errors.New("agc warmup blocks must be non-negative")
	// ErrGoertzelRequired indicates Goertzel instance is required
	ErrGoertzelRequired = errors.New("goertzel instance is required")
)

// minAGCPeak keeps the AGC normalizer away from zero.
const minAGCPeak = 0.001

// ToneEvent reports a confirmed change of key state, and how long the
// previous state lasted.
type ToneEvent struct {
	// ToneOn is true when tone starts (Duration is the silence that ended),
	// false when tone ends (Duration is the tone that ended)
	ToneOn bool
	// Duration is the length of the preceding state, measured in samples
	Duration time.Duration
	// Magnitude is the detected tone magnitude (0.0-1.0 after AGC)
	Magnitude float64
}

// ToneCallback is called when tone state changes.
type ToneCallback func(event ToneEvent)

// DetectorConfig holds configuration for the tone detector.
type DetectorConfig struct {
	// Threshold for tone detection (0.0-1.0) (from config: threshold)
	Threshold float64
	// Hysteresis is consecutive blocks required to confirm state change (from config: hysteresis)
	Hysteresis int
	// OverlapPct is the block overlap percentage 0-99 (from config: overlap_pct)
	OverlapPct int
	// AGCEnabled enables automatic gain control (from config: agc_enabled)
	AGCEnabled bool
	// AGCDecay is the peak decay rate per block (from config: agc_decay)
	AGCDecay float64
	// AGCAttack is how fast to respond to louder signals (from config: agc_attack)
	AGCAttack float64
	// AGCWarmupBlocks is the number of blocks used to calibrate AGC before detection starts
	AGCWarmupBlocks int
}

// Detector detects CW tones in audio samples using the Goertzel filter.
// It applies AGC and hysteresis to produce clean tone on/off events.
// Durations are derived from the number of samples consumed, not from the
// wall clock, so replaying the same samples yields the same events.
//
// A Detector is not safe for concurrent use; feed it from one goroutine.
type Detector struct {
	config   DetectorConfig
	goertzel *Goertzel

	blockSize int
	hopSize   int       // samples to advance between blocks
	window    []float32 // samples not yet consumed by a full block

	// AGC state
	agcPeak       float64
	warmupCounter int

	// Hysteresis state
	toneState       bool // current confirmed tone state
	pendingState    bool // state we're transitioning to
	hysteresisCount int  // consecutive blocks in pending state

	// Sample clock
	position       int64 // samples advanced so far
	lastTransition int64 // position of the last confirmed change

	callback ToneCallback
}

// NewDetector creates a new tone detector with the given configuration.
func NewDetector(cfg DetectorConfig, goertzel *Goertzel) (*Detector, error) {
	if goertzel == nil {
		return nil, ErrGoertzelRequired
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, ErrInvalidThreshold
	}
	if cfg.Hysteresis < 0 {
		return nil, ErrInvalidHysteresis
	}
	if cfg.OverlapPct < 0 || cfg.OverlapPct >= 100 {
		return nil, ErrInvalidOverlap
	}
	if cfg.AGCDecay < 0 || cfg.AGCDecay > 1 {
		return nil, ErrInvalidAGCDecay
	}
	if cfg.AGCAttack < 0 || cfg.AGCAttack > 1 {
		return nil, ErrInvalidAGCAttack
	}
	if cfg.AGCWarmupBlocks < 0 {
		return nil, ErrInvalidAGCWarmup
	}

	blockSize := goertzel.BlockSize()
	hopSize := blockSize - (blockSize*cfg.OverlapPct)/100

	return &Detector{
		config:    cfg,
		goertzel:  goertzel,
		blockSize: blockSize,
		hopSize:   hopSize,
		window:    make([]float32, 0, 2*blockSize),
		agcPeak:   1.0, // start high so warmup noise cannot trigger
	}, nil
}

// SetCallback sets the callback for tone events.
func (d *Detector) SetCallback(cb ToneCallback) {
	d.callback = cb
}

// Process consumes samples normalized to -1.0..1.0, running one detection
// per hop while a full block is available.
func (d *Detector) Process(samples []float32) {
	d.window = append(d.window, samples...)

	for len(d.window) >= d.blockSize {
		d.processBlock(d.window[:d.blockSize])

		n := copy(d.window, d.window[d.hopSize:])
		d.window = d.window[:n]
		d.position += int64(d.hopSize)
	}
}

func (d *Detector) processBlock(block []float32) {
	magnitude := d.goertzel.magnitude(block)

	// During warmup, track the loudest block without triggering detection
	if d.warmupCounter < d.config.AGCWarmupBlocks {
		d.warmupCounter++
		if d.config.AGCEnabled && magnitude > minAGCPeak {
			if d.warmupCounter == 1 || magnitude > d.agcPeak {
				d.agcPeak = magnitude
			}
		}
		return
	}

	if d.config.AGCEnabled {
		magnitude = d.applyAGC(magnitude)
	}

	d.updateHysteresis(magnitude > d.config.Threshold, magnitude)
}

// applyAGC normalizes magnitude against a decaying peak tracker.
func (d *Detector) applyAGC(magnitude float64) float64 {
	if magnitude > d.agcPeak {
		d.agcPeak += d.config.AGCAttack * (magnitude - d.agcPeak)
	} else {
		d.agcPeak *= d.config.AGCDecay
	}
	if d.agcPeak < minAGCPeak {
		d.agcPeak = minAGCPeak
	}

	normalized := magnitude / d.agcPeak
	if normalized > 1.0 {
		normalized = 1.0
	}
	return normalized
}

// updateHysteresis debounces the raw per-block decision.
func (d *Detector) updateHysteresis(tonePresent bool, magnitude float64) {
	if tonePresent == d.toneState {
		d.pendingState = d.toneState
		d.hysteresisCount = 0
		return
	}

	if tonePresent == d.pendingState {
		d.hysteresisCount++
	} else {
		d.pendingState = tonePresent
		d.hysteresisCount = 1
	}

	if d.hysteresisCount < d.config.Hysteresis {
		return
	}

	event := ToneEvent{
		ToneOn:    d.pendingState,
		Duration:  d.samplesToDuration(d.position - d.lastTransition),
		Magnitude: magnitude,
	}
	d.toneState = d.pendingState
	d.lastTransition = d.position
	d.hysteresisCount = 0

	if d.callback != nil {
		d.callback(event)
	}
}

func (d *Detector) samplesToDuration(samples int64) time.Duration {
	return time.Duration(float64(samples) / d.goertzel.SampleRate() * float64(time.Second))
}

// ToneState returns the current confirmed tone state
func (d *Detector) ToneState() bool {
	return d.toneState
}

// AGCPeak returns the current AGC peak value (for debugging/monitoring)
func (d *Detector) AGCPeak() float64 {
	return d.agcPeak
}

// Elapsed returns the stream time consumed so far.
func (d *Detector) Elapsed() time.Duration {
	return d.samplesToDuration(d.position)
}

// Reset clears all detection state and restarts the sample clock.
func (d *Detector) Reset() {
	d.window = d.window[:0]
	d.agcPeak = 1.0
	d.warmupCounter = 0
	d.toneState = false
	d.pendingState = false
	d.hysteresisCount = 0
	d.position = 0
	d.lastTransition = 0
}

// Config returns the current configuration
func (d *Detector) Config() DetectorConfig {
	return d.config
}
