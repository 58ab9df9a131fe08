package cmd

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/ColonelBlimp/cwcodec/internal/config"
	"github.com/ColonelBlimp/cwcodec/internal/cw"
)

// listenSettings returns valid settings with AGC off so detection depends
// only on the threshold.
func listenSettings() *config.Settings {
	return &config.Settings{
		ReferenceUnitMs:   100,
		DitDahBoundary:    2.0,
		CharGapBoundary:   2.0,
		WordGapBoundary:   5.0,
		MaxMessage:        cw.MaxMessage,
		AdaptiveSmoothing: 0.1,
		AdaptiveMinConf:   0.7,
		AdaptiveAdjRate:   0.1,
		AdaptiveMinMatch:  3,
		DeviceIndex:       -1,
		SampleRate:        48000,
		Channels:          1,
		BufferSize:        1024,
		ToneFrequency:     600,
		BlockSize:         512,
		OverlapPct:        50,
		Threshold:         0.4,
		Hysteresis:        2,
		AGCDecay:          0.9995,
		AGCAttack:         0.1,
		LogLevel:          "info",
	}
}

// keyedBlocks renders Morse as a keyed 600 Hz tone in capture-sized blocks.
func keyedBlocks(morse string, unit time.Duration, sampleRate float64) [][]float32 {
	events := []cw.Event{{Duration: 2 * unit}}
	events = append(events, cw.Synthesize(morse, unit)...)
	events = append(events, cw.Event{Duration: 5 * unit})

	var samples []float32
	for _, ev := range events {
		n := int(ev.Duration.Seconds() * sampleRate)
		for i := 0; i < n; i++ {
			var s float32
			if ev.Tone {
				s = float32(0.8 * math.Sin(2*math.Pi*600*float64(len(samples))/sampleRate))
			}
			samples = append(samples, s)
		}
	}

	var blocks [][]float32
	for i := 0; i < len(samples); i += 1024 {
		blocks = append(blocks, samples[i:min(i+1024, len(samples))])
	}
	return blocks
}

func feed(blocks [][]float32) <-chan []float32 {
	ch := make(chan []float32, len(blocks))
	for _, b := range blocks {
		ch <- b
	}
	close(ch)
	return ch
}

func TestPipeline_DecodesSamples(t *testing.T) {
	var out bytes.Buffer
	p, err := newPipeline(listenSettings(), 0, &out)
	if err != nil {
		t.Fatalf("newPipeline() error = %v", err)
	}

	p.run(context.Background(), feed(keyedBlocks("... --- ...", 100*time.Millisecond, 48000)))

	if out.String() != "SOS" {
		t.Errorf("pipeline output = %q, want %q", out.String(), "SOS")
	}
}

func TestPipeline_WordSpace(t *testing.T) {
	var out bytes.Buffer
	p, err := newPipeline(listenSettings(), 0, &out)
	if err != nil {
		t.Fatalf("newPipeline() error = %v", err)
	}

	p.run(context.Background(), feed(keyedBlocks("-.-. --.-  -.. .", 100*time.Millisecond, 48000)))

	if out.String() != "CQ DE" {
		t.Errorf("pipeline output = %q, want %q", out.String(), "CQ DE")
	}
}

func TestPipeline_WPMOverride(t *testing.T) {
	var out bytes.Buffer
	p, err := newPipeline(listenSettings(), 20, &out)
	if err != nil {
		t.Fatalf("newPipeline() error = %v", err)
	}
	if got := p.decoder.Unit(); got != 60*time.Millisecond {
		t.Errorf("decoder unit = %v, want 60ms at 20 WPM", got)
	}

	p.run(context.Background(), feed(keyedBlocks("- . ...-", 60*time.Millisecond, 48000)))

	if out.String() != "TEV" {
		t.Errorf("pipeline output = %q, want %q", out.String(), "TEV")
	}
}

func TestPipeline_AdaptiveTiming(t *testing.T) {
	s := listenSettings()
	s.AdaptiveTiming = true

	var out bytes.Buffer
	p, err := newPipeline(s, 0, &out)
	if err != nil {
		t.Fatalf("newPipeline() error = %v", err)
	}
	if p.adaptive == nil {
		t.Fatal("adaptive decoder not created with adaptive_timing set")
	}

	p.run(context.Background(), feed(keyedBlocks("-.-. --.-  -.-. --.-", 100*time.Millisecond, 48000)))

	if out.String() != "CQ CQ" {
		t.Errorf("pipeline output = %q, want %q", out.String(), "CQ CQ")
	}
	if got := p.adaptive.MatchCounts()["CQ"]; got != 2 {
		t.Errorf("MatchCounts()[CQ] = %d, want 2", got)
	}
}

func TestPipeline_FixedTimingHasNoAdaptiveDecoder(t *testing.T) {
	p, err := newPipeline(listenSettings(), 0, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("newPipeline() error = %v", err)
	}
	if p.adaptive != nil {
		t.Error("adaptive decoder created without adaptive_timing")
	}
}

func TestPipeline_StopsOnCancel(t *testing.T) {
	p, err := newPipeline(listenSettings(), 0, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("newPipeline() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		p.run(ctx, make(chan []float32))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run() did not return after cancel")
	}
}

func TestNewPipeline_InvalidSettings(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Settings)
	}{
		{"zero unit", func(s *config.Settings) { s.ReferenceUnitMs = 0 }},
		{"zero block size", func(s *config.Settings) { s.BlockSize = 0 }},
		{"threshold above one", func(s *config.Settings) { s.Threshold = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := listenSettings()
			tt.modify(s)
			if _, err := newPipeline(s, 0, &bytes.Buffer{}); err == nil {
				t.Error("newPipeline() should return error")
			}
		})
	}
}
