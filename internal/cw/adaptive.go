// internal/cw/adaptive.go
package cw

import (
	"math"
	"strings"
	"time"

	"github.com/ColonelBlimp/cwcodec/internal/dsp"
)

const (
	// MaxElementBuffer is the maximum number of elements kept for matching
	MaxElementBuffer = 50
	// MinPatternConfidence is the default confidence needed to accept a match (0.0-1.0)
	MinPatternConfidence = 0.7
	// MinMatchesForAdjustment is the default number of matches of one pattern before timing moves
	MinMatchesForAdjustment = 3
	// AdaptiveAdjustmentRate is the default EMA weight of a suggested char gap boundary
	AdaptiveAdjustmentRate = 0.1

	// minBreakConfidence is the share of a pattern's character breaks that must line up
	minBreakConfidence = 0.8
	// minBoundaryChange is the smallest boundary move, in units, worth applying
	minBoundaryChange = 0.05
)

// Element is one received dit or dah and the silence that followed it.
type Element struct {
	Symbol    Symbol
	Duration  time.Duration // tone length
	GapAfter  time.Duration // silence after the tone, zero until it ends
	IsCharEnd bool          // the gap closed a character under the current boundary
	IsWordEnd bool          // the gap closed a word
}

// Pattern is a frequently sent word with the element breaks it should decode with.
type Pattern struct {
	Text     string
	Symbols  []Symbol
	Breaks   []int // element indices after which a character ends
	Priority int   // breaks ties between equally confident matches
}

func newPattern(text string, priority int) Pattern {
	p := Pattern{Text: text, Priority: priority}
	for _, r := range text {
		if len(p.Symbols) > 0 {
			p.Breaks = append(p.Breaks, len(p.Symbols)-1)
		}
		code, _ := CodeFor(r)
		for _, s := range code {
			if s == '-' {
				p.Symbols = append(p.Symbols, SymbolDah)
			} else {
				p.Symbols = append(p.Symbols, SymbolDit)
			}
		}
	}
	return p
}

// CommonPatterns are the multi-character words heard most on the air.
var CommonPatterns = []Pattern{
	newPattern("CQ", 10),
	newPattern("DE", 10),
	newPattern("73", 9),
	newPattern("5NN", 9),
	newPattern("599", 8),
	newPattern("TU", 8),
	newPattern("QTH", 7),
	newPattern("QRZ", 7),
	newPattern("QSO", 7),
	newPattern("QSL", 7),
	newPattern("GM", 7),
	newPattern("GA", 7),
	newPattern("GE", 7),
	newPattern("UR", 6),
	newPattern("FB", 6),
	newPattern("ES", 6),
	newPattern("HR", 5),
}

// PatternMatch is a pattern found at the end of the element buffer.
type PatternMatch struct {
	Pattern    *Pattern
	Confidence float64 // share of breaks that lined up
	// SuggestedCharGapBoundary is the midpoint between the longest element gap and the
	// shortest character gap inside the match, in units; zero when there is none
	SuggestedCharGapBoundary float64
}

// AdaptiveConfig holds configuration for pattern-driven timing correction.
type AdaptiveConfig struct {
	// MinConfidence is the minimum match confidence (from config: adaptive_min_confidence)
	MinConfidence float64
	// AdjustmentRate is the EMA rate for boundary moves (from config: adaptive_adjustment_rate)
	AdjustmentRate float64
	// MinMatchesForAdjust is how many matches of a pattern before adjusting (from config: adaptive_min_matches)
	MinMatchesForAdjust int
}

// CorrectedOutput reports a recognized word.
type CorrectedOutput struct {
	// Original is the text the elements decode to with the current breaks
	Original string
	// Corrected is the pattern text
	Corrected string
	// Pattern is the matched pattern
	Pattern *Pattern
	// Confidence is the match confidence
	Confidence float64
	// TimingAdjusted is true if the char gap boundary moved
	TimingAdjusted bool
}

// CorrectedCallback is called when a pattern is recognized.
type CorrectedCallback func(output CorrectedOutput)

// AdaptiveDecoder wraps a Decoder, watching the classified elements for common
// words. Once a word has been heard often enough, the gaps it was sent with pull
// the decoder's char gap boundary toward the sender's spacing.
//
// An AdaptiveDecoder is not safe for concurrent use.
type AdaptiveDecoder struct {
	decoder *Decoder
	config  AdaptiveConfig

	elements []Element
	open     bool           // the last element is still waiting for its gap
	matches  map[string]int // matches per pattern text

	correctedCallback CorrectedCallback
}

// NewAdaptiveDecoder wraps decoder. Zero config values take the package defaults.
func NewAdaptiveDecoder(decoder *Decoder, config AdaptiveConfig) *AdaptiveDecoder {
	if config.MinConfidence <= 0 {
		config.MinConfidence = MinPatternConfidence
	}
	if config.AdjustmentRate <= 0 {
		config.AdjustmentRate = AdaptiveAdjustmentRate
	}
	if config.MinMatchesForAdjust <= 0 {
		config.MinMatchesForAdjust = MinMatchesForAdjustment
	}

	return &AdaptiveDecoder{
		decoder:  decoder,
		config:   config,
		elements: make([]Element, 0, MaxElementBuffer),
		matches:  make(map[string]int),
	}
}

// SetCorrectedCallback sets the callback for recognized words.
func (a *AdaptiveDecoder) SetCorrectedCallback(cb CorrectedCallback) {
	a.correctedCallback = cb
}

// Feed passes ev to the wrapped decoder and records the result.
func (a *AdaptiveDecoder) Feed(ev Event) Class {
	class := a.decoder.Feed(ev)

	switch class {
	case Dit, Dah:
		symbol := SymbolDit
		if class == Dah {
			symbol = SymbolDah
		}
		a.record(Element{Symbol: symbol, Duration: ev.Duration})
	case IntraCharGap:
		a.closeGap(ev.Duration, false, false)
	case InterCharGap:
		a.closeGap(ev.Duration, true, false)
	case WordGap:
		a.closeGap(ev.Duration, true, true)
	case Noise:
	}

	return class
}

// HandleToneEvent adapts a detector event, like Decoder.HandleToneEvent.
func (a *AdaptiveDecoder) HandleToneEvent(event dsp.ToneEvent) Class {
	return a.Feed(Event{Duration: event.Duration, Tone: !event.ToneOn})
}

// Flush closes the pending character and treats the end of stream as a word end.
func (a *AdaptiveDecoder) Flush() {
	a.decoder.Flush()
	a.closeGap(0, true, true)
}

func (a *AdaptiveDecoder) record(elem Element) {
	a.elements = append(a.elements, elem)
	if len(a.elements) > MaxElementBuffer {
		a.elements = a.elements[len(a.elements)-MaxElementBuffer:]
	}
	a.open = true
}

// closeGap attributes a silence to the last element. Consecutive silences
// add up; patterns are checked once, when the element first ends a character.
func (a *AdaptiveDecoder) closeGap(gap time.Duration, charEnd, wordEnd bool) {
	if len(a.elements) == 0 {
		return
	}
	last := &a.elements[len(a.elements)-1]
	if !a.open && !last.IsCharEnd && !charEnd {
		return
	}
	if !a.open && last.IsWordEnd {
		return
	}

	newCharEnd := charEnd && !last.IsCharEnd
	last.GapAfter += gap
	last.IsCharEnd = last.IsCharEnd || charEnd
	last.IsWordEnd = last.IsWordEnd || wordEnd
	a.open = false

	if newCharEnd {
		a.checkPatterns()
	}
}

// checkPatterns looks for a known word covering the current word's elements.
func (a *AdaptiveDecoder) checkPatterns() {
	start := 0
	for i := len(a.elements) - 2; i >= 0; i-- {
		if a.elements[i].IsWordEnd {
			start = i + 1
			break
		}
	}

	word := a.elements[start:]
	if len(word) < 2 {
		return
	}

	match := a.findBestMatch(word)
	if match != nil && match.Confidence >= a.config.MinConfidence {
		a.handlePatternMatch(match, word)
	}
}

// findBestMatch returns the most confident pattern, preferring higher priority on ties.
func (a *AdaptiveDecoder) findBestMatch(word []Element) *PatternMatch {
	var best *PatternMatch

	for i := range CommonPatterns {
		match := a.matchPattern(&CommonPatterns[i], word)
		if match == nil {
			continue
		}
		if best == nil ||
			match.Confidence > best.Confidence ||
			(match.Confidence == best.Confidence && match.Pattern.Priority > best.Pattern.Priority) {
			best = match
		}
	}

	return best
}

// matchPattern requires the exact symbol sequence and most breaks in place.
func (a *AdaptiveDecoder) matchPattern(p *Pattern, word []Element) *PatternMatch {
	if len(word) != len(p.Symbols) {
		return nil
	}
	for i, s := range p.Symbols {
		if word[i].Symbol != s {
			return nil
		}
	}

	confidence := breakConfidence(p, word)
	if confidence < minBreakConfidence {
		return nil
	}

	return &PatternMatch{
		Pattern:                  p,
		Confidence:               confidence,
		SuggestedCharGapBoundary: a.suggestBoundary(p, word),
	}
}

func breakConfidence(p *Pattern, word []Element) float64 {
	if len(p.Breaks) == 0 {
		return 1.0
	}

	correct := 0
	for _, i := range p.Breaks {
		if i < len(word) && word[i].IsCharEnd {
			correct++
		}
	}
	return float64(correct) / float64(len(p.Breaks))
}

// suggestBoundary places a boundary halfway between the element gaps and the
// character gaps the pattern says were sent.
func (a *AdaptiveDecoder) suggestBoundary(p *Pattern, word []Element) float64 {
	unit := float64(a.decoder.Unit())
	if len(p.Breaks) == 0 || unit <= 0 {
		return 0
	}

	breaks := make(map[int]bool, len(p.Breaks))
	for _, i := range p.Breaks {
		breaks[i] = true
	}

	maxIntra, minInter := 0.0, math.Inf(1)
	intra, inter := 0, 0
	for i := 0; i < len(word)-1; i++ {
		gap := float64(word[i].GapAfter) / unit
		if breaks[i] {
			minInter = math.Min(minInter, gap)
			inter++
		} else {
			maxIntra = math.Max(maxIntra, gap)
			intra++
		}
	}

	if intra == 0 || inter == 0 || minInter <= maxIntra {
		return 0
	}
	return (maxIntra + minInter) / 2
}

func (a *AdaptiveDecoder) handlePatternMatch(match *PatternMatch, word []Element) {
	a.matches[match.Pattern.Text]++

	output := CorrectedOutput{
		Original:   decodeElements(word),
		Corrected:  match.Pattern.Text,
		Pattern:    match.Pattern,
		Confidence: match.Confidence,
	}

	if a.matches[match.Pattern.Text] >= a.config.MinMatchesForAdjust && match.SuggestedCharGapBoundary > 0 {
		current := a.decoder.Timing().CharGapBoundary
		next := current*(1-a.config.AdjustmentRate) + match.SuggestedCharGapBoundary*a.config.AdjustmentRate
		if math.Abs(next-current) > minBoundaryChange {
			output.TimingAdjusted = a.decoder.SetCharGapBoundary(next)
		}
	}

	if a.correctedCallback != nil {
		a.correctedCallback(output)
	}
}

// decodeElements reads elements back as text using their recorded breaks.
func decodeElements(elements []Element) string {
	var result, code strings.Builder

	flush := func() {
		if r, ok := Lookup(code.String()); ok {
			result.WriteRune(r)
		}
		code.Reset()
	}

	for _, elem := range elements {
		code.WriteString(elem.Symbol.String())
		if elem.IsCharEnd {
			flush()
		}
	}
	if code.Len() > 0 {
		flush()
	}

	return result.String()
}

// Decoder returns the wrapped decoder.
func (a *AdaptiveDecoder) Decoder() *Decoder {
	return a.decoder
}

// MatchCounts returns how often each pattern has been recognized.
func (a *AdaptiveDecoder) MatchCounts() map[string]int {
	counts := make(map[string]int, len(a.matches))
	for k, v := range a.matches {
		counts[k] = v
	}
	return counts
}

// Reset clears the element buffer and match counts. The wrapped decoder is
// reset separately.
func (a *AdaptiveDecoder) Reset() {
	a.elements = a.elements[:0]
	a.open = false
	a.matches = make(map[string]int)
}
