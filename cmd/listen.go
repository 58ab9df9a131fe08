// cmd/listen.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ColonelBlimp/cwcodec/internal/audio"
	"github.com/ColonelBlimp/cwcodec/internal/config"
	"github.com/ColonelBlimp/cwcodec/internal/cw"
	"github.com/ColonelBlimp/cwcodec/internal/dsp"
	"github.com/ColonelBlimp/cwcodec/internal/logging"
	"github.com/ColonelBlimp/cwcodec/internal/recovery"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Decode live CW from an audio device",
	Long: `Capture audio, detect the CW tone and print decoded characters as they
arrive. Stops on Ctrl-C.`,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().IntP("wpm", "w", 0, "initial sending speed in WPM, overrides --unit (0 keeps the unit)")
}

func runListen(cmd *cobra.Command, _ []string) error {
	wpm, err := cmd.Flags().GetInt("wpm")
	if err != nil {
		return err
	}

	p, err := newPipeline(settings, wpm, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	capture := audio.New(audioConfig(settings))
	if err := capture.Init(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	defer capture.Close()
	// The malgo device must be released even when decoding panics.
	defer recovery.HandlePanicFunc(func() { _ = capture.Close() })

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := capture.Start(ctx); err != nil {
		return fmt.Errorf("audio: %w", err)
	}

	p.run(ctx, capture.Samples)
	_, err = fmt.Fprintln(cmd.OutOrStdout())
	return err
}

// pipeline feeds captured samples through the tone detector into the
// decoder. It runs on a single goroutine.
type pipeline struct {
	detector *dsp.Detector
	decoder  *cw.Decoder
	adaptive *cw.AdaptiveDecoder // nil unless adaptive_timing is set
}

func newPipeline(s *config.Settings, wpm int, out io.Writer) (*pipeline, error) {
	cfg := codecConfig(s)
	if wpm > 0 {
		cfg.Timing.Unit = cw.UnitFromWPM(wpm)
	}

	decoder, err := cw.NewDecoder(cfg)
	if err != nil {
		return nil, fmt.Errorf("decoder: %w", err)
	}
	goertzel, err := dsp.NewGoertzel(goertzelConfig(s))
	if err != nil {
		return nil, fmt.Errorf("goertzel: %w", err)
	}
	detector, err := dsp.NewDetector(detectorConfig(s), goertzel)
	if err != nil {
		return nil, fmt.Errorf("detector: %w", err)
	}

	p := &pipeline{detector: detector, decoder: decoder}
	log := logging.Logger()

	if cfg.AdaptiveTiming {
		p.adaptive = cw.NewAdaptiveDecoder(decoder, adaptiveConfig(s))
		p.adaptive.SetCorrectedCallback(func(o cw.CorrectedOutput) {
			log.Debug("known word",
				zap.String("original", o.Original),
				zap.String("corrected", o.Corrected),
				zap.Float64("confidence", o.Confidence),
				zap.Bool("timing_adjusted", o.TimingAdjusted),
				zap.Float64("char_gap_boundary", decoder.Timing().CharGapBoundary))
		})
	}

	detector.SetCallback(func(e dsp.ToneEvent) {
		class := p.handle(e)
		log.Debug("tone event",
			zap.Bool("tone_on", e.ToneOn),
			zap.Duration("duration", e.Duration),
			zap.Float64("magnitude", e.Magnitude),
			zap.Stringer("class", class))
	})
	decoder.SetCallback(func(o cw.DecodedOutput) {
		_, _ = fmt.Fprintf(out, "%c", o.Character)
	})

	log.Info("listening",
		zap.Float64("tone_frequency", s.ToneFrequency),
		zap.Duration("unit", cfg.Timing.Unit),
		zap.Int("wpm", cw.WPMFromUnit(cfg.Timing.Unit)),
		zap.Bool("adaptive_timing", cfg.AdaptiveTiming))

	return p, nil
}

func (p *pipeline) handle(e dsp.ToneEvent) cw.Class {
	if p.adaptive != nil {
		return p.adaptive.HandleToneEvent(e)
	}
	return p.decoder.HandleToneEvent(e)
}

func (p *pipeline) flush() {
	if p.adaptive != nil {
		p.adaptive.Flush()
		return
	}
	p.decoder.Flush()
}

// run processes sample blocks until ctx is done or samples is closed, then
// flushes the character in progress.
func (p *pipeline) run(ctx context.Context, samples <-chan []float32) {
	defer p.flush()

	for {
		select {
		case <-ctx.Done():
			return
		case block, ok := <-samples:
			if !ok {
				return
			}
			p.detector.Process(block)
		}
	}
}
