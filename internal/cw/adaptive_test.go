package cw

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/ColonelBlimp/cwcodec/internal/dsp"
)

// keying renders words as events: 1-unit element gaps, charGap between the
// characters of a word and 7-unit word gaps. No silence follows the last word.
func keying(charGap time.Duration, words ...string) []Event {
	var events []Event
	for w, word := range words {
		if w > 0 {
			events = append(events, silence(7))
		}
		for c, code := range strings.Fields(word) {
			if c > 0 {
				events = append(events, Event{Duration: charGap})
			}
			for i, s := range code {
				if i > 0 {
					events = append(events, silence(1))
				}
				if s == '-' {
					events = append(events, tone(3))
				} else {
					events = append(events, tone(1))
				}
			}
		}
	}
	return events
}

func newTestAdaptive(t *testing.T, charGapBoundary float64) *AdaptiveDecoder {
	t.Helper()
	cfg := validConfig()
	cfg.Timing.CharGapBoundary = charGapBoundary
	decoder, err := NewDecoder(cfg)
	if err != nil {
		t.Fatalf("NewDecoder() error = %v", err)
	}
	return NewAdaptiveDecoder(decoder, AdaptiveConfig{})
}

func feedAll(a *AdaptiveDecoder, events []Event) {
	for _, ev := range events {
		a.Feed(ev)
	}
	a.Flush()
}

func TestNewAdaptiveDecoder_Defaults(t *testing.T) {
	decoder, _ := NewDecoder(validConfig())
	a := NewAdaptiveDecoder(decoder, AdaptiveConfig{})

	if a.config.MinConfidence != MinPatternConfidence {
		t.Errorf("MinConfidence = %v, want %v", a.config.MinConfidence, MinPatternConfidence)
	}
	if a.config.AdjustmentRate != AdaptiveAdjustmentRate {
		t.Errorf("AdjustmentRate = %v, want %v", a.config.AdjustmentRate, AdaptiveAdjustmentRate)
	}
	if a.config.MinMatchesForAdjust != MinMatchesForAdjustment {
		t.Errorf("MinMatchesForAdjust = %v, want %v", a.config.MinMatchesForAdjust, MinMatchesForAdjustment)
	}
	if a.Decoder() != decoder {
		t.Error("Decoder() should return the wrapped decoder")
	}
}

func TestCommonPatterns_BuiltFromAlphabet(t *testing.T) {
	cq := newPattern("CQ", 10)
	wantSymbols := []Symbol{SymbolDah, SymbolDit, SymbolDah, SymbolDit, SymbolDah, SymbolDah, SymbolDit, SymbolDah}
	if len(cq.Symbols) != len(wantSymbols) {
		t.Fatalf("CQ symbols = %v, want %v", cq.Symbols, wantSymbols)
	}
	for i := range wantSymbols {
		if cq.Symbols[i] != wantSymbols[i] {
			t.Errorf("CQ symbol %d = %v, want %v", i, cq.Symbols[i], wantSymbols[i])
		}
	}

	tests := []struct {
		text   string
		breaks []int
	}{
		{"CQ", []int{3}},
		{"5NN", []int{4, 6}},
		{"TU", []int{0}},
		{"QTH", []int{3, 4}},
	}
	for _, tt := range tests {
		p := newPattern(tt.text, 0)
		if len(p.Breaks) != len(tt.breaks) {
			t.Errorf("%s breaks = %v, want %v", tt.text, p.Breaks, tt.breaks)
			continue
		}
		for i := range tt.breaks {
			if p.Breaks[i] != tt.breaks[i] {
				t.Errorf("%s breaks = %v, want %v", tt.text, p.Breaks, tt.breaks)
				break
			}
		}
	}

	for _, p := range CommonPatterns {
		if len(p.Breaks) != len(p.Text)-1 {
			t.Errorf("%s has %d breaks, want %d", p.Text, len(p.Breaks), len(p.Text)-1)
		}
	}
}

func TestAdaptiveDecoder_RecognizesWord(t *testing.T) {
	a := newTestAdaptive(t, CharSpaceThreshold)

	var outputs []CorrectedOutput
	a.SetCorrectedCallback(func(o CorrectedOutput) { outputs = append(outputs, o) })

	feedAll(a, keying(3*unit, "-.-. --.-"))

	if len(outputs) != 1 {
		t.Fatalf("got %d corrected outputs, want 1", len(outputs))
	}
	o := outputs[0]
	if o.Corrected != "CQ" || o.Original != "CQ" {
		t.Errorf("output = %+v, want CQ/CQ", o)
	}
	if o.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", o.Confidence)
	}
	if o.TimingAdjusted {
		t.Error("TimingAdjusted should be false after one match")
	}
	if got := a.MatchCounts()["CQ"]; got != 1 {
		t.Errorf("MatchCounts()[CQ] = %d, want 1", got)
	}
	if got := a.Decoder().Message(); got != "CQ" {
		t.Errorf("Message() = %q, want %q", got, "CQ")
	}
}

func TestAdaptiveDecoder_SingleCharacterNotMatched(t *testing.T) {
	a := newTestAdaptive(t, CharSpaceThreshold)

	feedAll(a, keying(3*unit, "-.-.", "...."))

	if counts := a.MatchCounts(); len(counts) != 0 {
		t.Errorf("MatchCounts() = %v, want none", counts)
	}
}

func TestAdaptiveDecoder_AdjustsCharGapBoundary(t *testing.T) {
	a := newTestAdaptive(t, 2.6)

	var outputs []CorrectedOutput
	a.SetCorrectedCallback(func(o CorrectedOutput) { outputs = append(outputs, o) })

	feedAll(a, keying(3*unit, "-.-. --.-", "-.-. --.-", "-.-. --.-"))

	if len(outputs) != 3 {
		t.Fatalf("got %d corrected outputs, want 3", len(outputs))
	}
	for i, o := range outputs[:2] {
		if o.TimingAdjusted {
			t.Errorf("output %d adjusted timing before %d matches", i, MinMatchesForAdjustment)
		}
	}
	if !outputs[2].TimingAdjusted {
		t.Error("third match should adjust timing")
	}

	// 2.6 moves a tenth of the way toward the 2.0 midpoint of 1- and 3-unit gaps.
	got := a.Decoder().Timing().CharGapBoundary
	if math.Abs(got-2.54) > 1e-9 {
		t.Errorf("CharGapBoundary = %v, want 2.54", got)
	}
	if got := a.Decoder().Message(); got != "CQ CQ CQ" {
		t.Errorf("Message() = %q, want %q", got, "CQ CQ CQ")
	}
}

func TestAdaptiveDecoder_SmallChangeIgnored(t *testing.T) {
	a := newTestAdaptive(t, 2.04)

	feedAll(a, keying(3*unit, "-.. .", "-.. .", "-.. .", "-.. ."))

	if got := a.MatchCounts()["DE"]; got != 4 {
		t.Errorf("MatchCounts()[DE] = %d, want 4", got)
	}
	if got := a.Decoder().Timing().CharGapBoundary; got != 2.04 {
		t.Errorf("CharGapBoundary = %v, want unchanged 2.04", got)
	}
}

func TestAdaptiveDecoder_MisplacedBreakNotMatched(t *testing.T) {
	a := newTestAdaptive(t, 2.6)

	// A 2.5-unit character gap reads as an element gap, merging C and Q.
	feedAll(a, keying(250*time.Millisecond, "-.-. --.-"))

	if counts := a.MatchCounts(); len(counts) != 0 {
		t.Errorf("MatchCounts() = %v, want none", counts)
	}
}

func TestAdaptiveDecoder_SeparateCharacterGapEvents(t *testing.T) {
	a := newTestAdaptive(t, CharSpaceThreshold)

	// Synthesize ends every element with a 1-unit gap, then adds the 3-unit
	// character gap as a second silence.
	for _, ev := range Synthesize("-.. .", unit) {
		a.Feed(ev)
	}
	a.Flush()

	if got := a.MatchCounts()["DE"]; got != 1 {
		t.Errorf("MatchCounts()[DE] = %d, want 1", got)
	}
	if got := a.elements[2].GapAfter; got != 4*unit {
		t.Errorf("gap after D = %v, want %v", got, 4*unit)
	}
}

func TestAdaptiveDecoder_MatchPattern_OverlappingGaps(t *testing.T) {
	a := newTestAdaptive(t, CharSpaceThreshold)
	p := newPattern("DE", 0)

	// Element gaps as long as the character gap leave no boundary to suggest.
	word := []Element{
		{Symbol: SymbolDah, GapAfter: 3 * unit},
		{Symbol: SymbolDit, GapAfter: 3 * unit},
		{Symbol: SymbolDit, GapAfter: 3 * unit, IsCharEnd: true},
		{Symbol: SymbolDit, IsCharEnd: true, IsWordEnd: true},
	}

	match := a.matchPattern(&p, word)
	if match == nil {
		t.Fatal("matchPattern() = nil, want match")
	}
	if match.SuggestedCharGapBoundary != 0 {
		t.Errorf("SuggestedCharGapBoundary = %v, want 0", match.SuggestedCharGapBoundary)
	}
}

func TestAdaptiveDecoder_MatchPattern_WrongSymbols(t *testing.T) {
	a := newTestAdaptive(t, CharSpaceThreshold)
	p := newPattern("DE", 0)

	word := []Element{
		{Symbol: SymbolDit}, {Symbol: SymbolDit}, {Symbol: SymbolDit, IsCharEnd: true}, {Symbol: SymbolDit},
	}
	if match := a.matchPattern(&p, word); match != nil {
		t.Errorf("matchPattern() = %+v, want nil", match)
	}
}

func TestAdaptiveDecoder_BufferTrimming(t *testing.T) {
	a := newTestAdaptive(t, CharSpaceThreshold)

	for i := 0; i < MaxElementBuffer+10; i++ {
		a.Feed(tone(1))
		a.Feed(silence(1))
	}

	if len(a.elements) > MaxElementBuffer {
		t.Errorf("element buffer length = %d, should not exceed %d", len(a.elements), MaxElementBuffer)
	}
}

func TestAdaptiveDecoder_HandleToneEvent(t *testing.T) {
	a := newTestAdaptive(t, CharSpaceThreshold)

	if got := a.HandleToneEvent(dsp.ToneEvent{ToneOn: false, Duration: 3 * unit}); got != Dah {
		t.Errorf("HandleToneEvent(tone end) = %v, want %v", got, Dah)
	}
	if got := a.HandleToneEvent(dsp.ToneEvent{ToneOn: true, Duration: 3 * unit}); got != InterCharGap {
		t.Errorf("HandleToneEvent(tone start) = %v, want %v", got, InterCharGap)
	}
	if len(a.elements) != 1 || !a.elements[0].IsCharEnd {
		t.Errorf("elements = %+v, want one closed dah", a.elements)
	}
}

func TestAdaptiveDecoder_Reset(t *testing.T) {
	a := newTestAdaptive(t, CharSpaceThreshold)
	feedAll(a, keying(3*unit, "..- .-."))

	if a.MatchCounts()["UR"] != 1 {
		t.Fatalf("MatchCounts()[UR] = %d, want 1", a.MatchCounts()["UR"])
	}

	a.Reset()

	if len(a.elements) != 0 {
		t.Errorf("after Reset(), %d elements buffered", len(a.elements))
	}
	if len(a.MatchCounts()) != 0 {
		t.Errorf("after Reset(), MatchCounts() = %v", a.MatchCounts())
	}
}

func TestDecodeElements(t *testing.T) {
	tests := []struct {
		name     string
		elements []Element
		want     string
	}{
		{
			"two characters",
			[]Element{
				{Symbol: SymbolDah}, {Symbol: SymbolDit}, {Symbol: SymbolDit, IsCharEnd: true},
				{Symbol: SymbolDit, IsCharEnd: true},
			},
			"DE",
		},
		{
			"unterminated last character",
			[]Element{{Symbol: SymbolDit, IsCharEnd: true}, {Symbol: SymbolDah}},
			"ET",
		},
		{
			"unknown code dropped",
			[]Element{
				{Symbol: SymbolDit}, {Symbol: SymbolDit}, {Symbol: SymbolDah}, {Symbol: SymbolDah, IsCharEnd: true},
				{Symbol: SymbolDah, IsCharEnd: true},
			},
			"T",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeElements(tt.elements); got != tt.want {
				t.Errorf("decodeElements() = %q, want %q", got, tt.want)
			}
		})
	}
}
