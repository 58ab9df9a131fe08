// internal/cw/timing.go
package cw

import (
	"errors"
	"fmt"
	"time"
)

// Morse code timing ratios (ITU standard)
// These are fixed ratios defined by the International Telecommunication Union
const (
	// DahDitRatio is the ratio of dah duration to dit duration (ITU: 3:1)
	DahDitRatio = 3.0
	// IntraCharSpaceRatio is the ratio of space between elements within a character to dit (ITU: 1:1)
	IntraCharSpaceRatio = 1.0
	// InterCharSpaceRatio is the ratio of space between characters to dit (ITU: 3:1)
	InterCharSpaceRatio = 3.0
	// WordSpaceRatio is the ratio of space between words to dit (ITU: 7:1)
	WordSpaceRatio = 7.0

	// DahDitThreshold is the default decision threshold between dit and dah (midpoint of 1 and 3)
	DahDitThreshold = 2.0
	// CharSpaceThreshold is the default decision threshold between element and character space (midpoint of 1 and 3)
	CharSpaceThreshold = 2.0
	// CharWordThreshold is the default decision threshold between character and word space (midpoint of 3 and 7)
	CharWordThreshold = 5.0

	// MillisecondsPerMinute is used for WPM calculations
	MillisecondsPerMinute = 60000.0
	// DitsPerWord is the standard word "PARIS" = 50 dit units
	DitsPerWord = 50.0

	// DefaultUnit is the reference dit duration (12 WPM).
	DefaultUnit = 100 * time.Millisecond
)

var (
	// ErrInvalidUnit indicates the reference unit must be positive
	ErrInvalidUnit = errors.New("reference unit must be positive")
	// ErrInvalidDitDahBoundary indicates boundary ratio must be positive
	ErrInvalidDitDahBoundary = errors.New("dit/dah boundary ratio must be positive")
	// ErrInvalidCharGapBoundary indicates boundary ratio must be positive
	ErrInvalidCharGapBoundary = errors.New("char gap boundary ratio must be positive")
	// ErrInvalidCharWordBoundary indicates the word boundary must lie above the char gap boundary
	ErrInvalidCharWordBoundary = errors.New("char/word boundary ratio must exceed char gap boundary")
)

// Symbol is one Morse element.
type Symbol int

const (
	// SymbolDit is the short element
	SymbolDit Symbol = iota
	// SymbolDah is the long element, three dits long
	SymbolDah
)

// String returns the symbol as written in a code: "." or "-".
func (s Symbol) String() string {
	if s == SymbolDah {
		return "-"
	}
	return "."
}

// Class is the timing band an Event falls into.
type Class int

const (
	Noise Class = iota
	Dit
	Dah
	IntraCharGap
	InterCharGap
	WordGap
)

var classNames = [...]string{"noise", "dit", "dah", "intra-char gap", "inter-char gap", "word gap"}

func (c Class) String() string {
	if c < 0 || int(c) >= len(classNames) {
		return fmt.Sprintf("class(%d)", int(c))
	}
	return classNames[c]
}

// Event is one timed period of a keyed signal.
type Event struct {
	// Duration is how long the period lasted
	Duration time.Duration
	// Tone is true for key-down (tone) and false for key-up (silence)
	Tone bool
}

// Timing holds the reference unit and the decision boundaries, expressed in units.
type Timing struct {
	// Unit is the reference dit duration
	Unit time.Duration
	// DitDahBoundary: a tone longer than Unit*DitDahBoundary is a dah
	DitDahBoundary float64
	// CharGapBoundary: a silence longer than Unit*CharGapBoundary ends a character
	CharGapBoundary float64
	// WordGapBoundary: a silence longer than Unit*WordGapBoundary ends a word
	WordGapBoundary float64
}

// DefaultTiming returns the ITU midpoint boundaries around a 100 ms unit.
func DefaultTiming() Timing {
	return Timing{
		Unit:            DefaultUnit,
		DitDahBoundary:  DahDitThreshold,
		CharGapBoundary: CharSpaceThreshold,
		WordGapBoundary: CharWordThreshold,
	}
}

// Validate checks the unit and boundary ordering.
func (t Timing) Validate() error {
	if t.Unit <= 0 {
		return ErrInvalidUnit
	}
	if t.DitDahBoundary <= 0 {
		return ErrInvalidDitDahBoundary
	}
	if t.CharGapBoundary <= 0 {
		return ErrInvalidCharGapBoundary
	}
	if t.WordGapBoundary <= t.CharGapBoundary {
		return ErrInvalidCharWordBoundary
	}
	return nil
}

// Classify maps an event onto the nearest timing band. Only non-positive
// durations are rejected (as Noise); everything else lands somewhere.
func (t Timing) Classify(ev Event) Class {
	if ev.Duration <= 0 || t.Unit <= 0 {
		return Noise
	}
	units := float64(ev.Duration) / float64(t.Unit)

	if ev.Tone {
		if units > t.DitDahBoundary {
			return Dah
		}
		return Dit
	}

	switch {
	case units > t.WordGapBoundary:
		return WordGap
	case units > t.CharGapBoundary:
		return InterCharGap
	default:
		return IntraCharGap
	}
}

// UnitFromWPM converts a PARIS words-per-minute speed into a dit duration.
// dit_duration_ms = 60000 / (WPM * DitsPerWord)
func UnitFromWPM(wpm int) time.Duration {
	if wpm <= 0 {
		return 0
	}
	ms := MillisecondsPerMinute / (float64(wpm) * DitsPerWord)
	return time.Duration(ms * float64(time.Millisecond))
}

// WPMFromUnit is the inverse of UnitFromWPM, rounded to the nearest word.
func WPMFromUnit(unit time.Duration) int {
	if unit <= 0 {
		return 0
	}
	ms := float64(unit) / float64(time.Millisecond)
	return int(MillisecondsPerMinute/(ms*DitsPerWord) + 0.5)
}
