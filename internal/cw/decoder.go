// internal/cw/decoder.go
// Package cw implements Morse code encoding, and decoding from timed signal events.
package cw

import (
	"errors"
	"time"

	"github.com/ColonelBlimp/cwcodec/internal/dsp"
)

var (
	// ErrInvalidMaxMessage indicates the message capacity must be positive
	ErrInvalidMaxMessage = errors.New("max message length must be positive")
	// ErrInvalidAdaptiveSmoothing indicates smoothing factor must be between 0 and 1
	ErrInvalidAdaptiveSmoothing = errors.New("adaptive smoothing must be between 0.0 and 1.0")
)

// Config holds configuration for the encoder and decoder.
type Config struct {
	// Timing is the reference unit and classification boundaries
	Timing Timing
	// MaxMessage bounds the length of encoder input and decoder output, in characters
	MaxMessage int
	// AdaptiveTiming lets a streaming decoder follow the sender's speed
	AdaptiveTiming bool
	// AdaptiveSmoothing is the EMA weight given to each new tone when AdaptiveTiming is set
	// Higher values = faster adaptation, lower = more stable
	AdaptiveSmoothing float64
}

// DefaultConfig returns the fixed engine configuration used at the library boundary.
func DefaultConfig() Config {
	return Config{
		Timing:            DefaultTiming(),
		MaxMessage:        MaxMessage,
		AdaptiveTiming:    false,
		AdaptiveSmoothing: 0.1,
	}
}

// Validate checks that every field is usable.
func (c Config) Validate() error {
	if err := c.Timing.Validate(); err != nil {
		return err
	}
	if c.MaxMessage <= 0 {
		return ErrInvalidMaxMessage
	}
	if c.AdaptiveSmoothing < 0 || c.AdaptiveSmoothing > 1 {
		return ErrInvalidAdaptiveSmoothing
	}
	return nil
}

// State is the decoder's position in the character state machine.
type State int

const (
	// IdlePendingChar: no elements received since the last character closed
	IdlePendingChar State = iota
	// AccumulatingSymbols: one or more elements of the current character received
	AccumulatingSymbols
)

func (s State) String() string {
	if s == AccumulatingSymbols {
		return "accumulating"
	}
	return "idle"
}

// DecodedCallback is called when a character or word boundary is decoded.
// Must be non-blocking and fast.
type DecodedCallback func(output DecodedOutput)

// DecodedOutput represents decoded CW output
type DecodedOutput struct {
	// Character is the decoded character (' ' if word space)
	Character rune
	// IsWordSpace is true if this represents a word boundary
	IsWordSpace bool
	// CurrentWPM is the estimated WPM at time of decode
	CurrentWPM int
}

// Decoder turns a stream of timed events into text. Each classified tone
// walks MorseTree; a character or word gap closes the character and appends
// it to the message.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	config Config
	timing Timing // current timing; Unit moves when adaptive timing is on

	state     State
	treeIndex int  // position in MorseTree (1 = root)
	overflow  bool // more elements than MaxSymbols were received

	message  *Message
	callback DecodedCallback
}

// NewDecoder creates a new decoder with the given configuration.
func NewDecoder(cfg Config) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newDecoder(cfg), nil
}

func newDecoder(cfg Config) *Decoder {
	return &Decoder{
		config:    cfg,
		timing:    cfg.Timing,
		state:     IdlePendingChar,
		treeIndex: 1,
		message:   NewMessage(cfg.MaxMessage),
	}
}

// SetCallback sets the callback for decoded output.
func (d *Decoder) SetCallback(cb DecodedCallback) {
	d.callback = cb
}

// Feed classifies one event and advances the state machine.
// It returns the class the event was assigned.
func (d *Decoder) Feed(ev Event) Class {
	class := d.timing.Classify(ev)

	switch class {
	case Dit, Dah:
		d.addSymbol(class == Dah)
		if d.config.AdaptiveTiming {
			d.adaptTiming(ev.Duration, class == Dah)
		}
	case InterCharGap:
		d.closeCharacter()
	case WordGap:
		d.closeCharacter()
		d.emitWordSpace()
	case IntraCharGap, Noise:
		// Nothing to do: the character continues, or the event is discarded.
	}

	return class
}

// HandleToneEvent adapts a detector event. The detector reports the period
// that just ended: ToneOn=true closes a silence, ToneOn=false closes a tone.
func (d *Decoder) HandleToneEvent(event dsp.ToneEvent) Class {
	return d.Feed(Event{Duration: event.Duration, Tone: !event.ToneOn})
}

// Flush closes a pending character without waiting for a gap.
// Used at the end of a live stream, where no trailing silence arrives.
func (d *Decoder) Flush() {
	d.closeCharacter()
}

// addSymbol descends MorseTree by one element.
func (d *Decoder) addSymbol(isDah bool) {
	if d.state == IdlePendingChar {
		d.treeIndex = 1
		d.overflow = false
		d.state = AccumulatingSymbols
	}
	if d.overflow {
		return
	}

	next := descend(d.treeIndex, isDah)
	if next >= len(MorseTree) {
		// Too many elements for any character; drop it at the closing gap.
		d.overflow = true
		return
	}
	d.treeIndex = next
}

// closeCharacter emits the current character, if any, and returns to idle.
func (d *Decoder) closeCharacter() {
	if d.state != AccumulatingSymbols {
		return
	}

	if !d.overflow {
		if char := MorseTree[d.treeIndex]; char != 0 {
			d.emit(char, false)
		}
	}

	d.treeIndex = 1
	d.overflow = false
	d.state = IdlePendingChar
}

// emitWordSpace appends one space, never at the start or after another space.
func (d *Decoder) emitWordSpace() {
	last, ok := d.message.Last()
	if !ok || last == ' ' {
		return
	}
	d.emit(' ', true)
}

func (d *Decoder) emit(char rune, wordSpace bool) {
	if !d.message.Push(char) {
		return
	}
	if d.callback != nil {
		d.callback(DecodedOutput{
			Character:   char,
			IsWordSpace: wordSpace,
			CurrentWPM:  d.CurrentWPM(),
		})
	}
}

// adaptTiming updates the unit estimate using exponential moving average.
func (d *Decoder) adaptTiming(duration time.Duration, isDah bool) {
	estimated := float64(duration)
	if isDah {
		estimated /= DahDitRatio
	}
	smoothing := d.config.AdaptiveSmoothing
	unit := (1-smoothing)*float64(d.timing.Unit) + smoothing*estimated
	if unit >= 1 {
		d.timing.Unit = time.Duration(unit)
	}
}

// State returns the current state machine state.
func (d *Decoder) State() State {
	return d.state
}

// Message returns the text decoded so far.
func (d *Decoder) Message() string {
	return d.message.String()
}

// Unit returns the current reference unit.
func (d *Decoder) Unit() time.Duration {
	return d.timing.Unit
}

// Timing returns the current unit and boundaries.
func (d *Decoder) Timing() Timing {
	return d.timing
}

// SetCharGapBoundary moves the boundary between element and character gaps.
// Values outside (0, WordGapBoundary) are ignored.
func (d *Decoder) SetCharGapBoundary(units float64) bool {
	if units <= 0 || units >= d.timing.WordGapBoundary {
		return false
	}
	d.timing.CharGapBoundary = units
	return true
}

// CurrentWPM returns the current estimated WPM based on the unit.
func (d *Decoder) CurrentWPM() int {
	return WPMFromUnit(d.timing.Unit)
}

// Reset clears the decoder state, the message and any adapted timing.
func (d *Decoder) Reset() {
	d.timing = d.config.Timing
	d.state = IdlePendingChar
	d.treeIndex = 1
	d.overflow = false
	d.message.Reset()
}
