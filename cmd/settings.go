// cmd/settings.go
package cmd

import (
	"time"

	"github.com/ColonelBlimp/cwcodec/internal/audio"
	"github.com/ColonelBlimp/cwcodec/internal/config"
	"github.com/ColonelBlimp/cwcodec/internal/cw"
	"github.com/ColonelBlimp/cwcodec/internal/dsp"
	"github.com/ColonelBlimp/cwcodec/internal/logging"
)

func codecConfig(s *config.Settings) cw.Config {
	return cw.Config{
		Timing: cw.Timing{
			Unit:            time.Duration(s.ReferenceUnitMs * float64(time.Millisecond)),
			DitDahBoundary:  s.DitDahBoundary,
			CharGapBoundary: s.CharGapBoundary,
			WordGapBoundary: s.WordGapBoundary,
		},
		MaxMessage:        s.MaxMessage,
		AdaptiveTiming:    s.AdaptiveTiming,
		AdaptiveSmoothing: s.AdaptiveSmoothing,
	}
}

func adaptiveConfig(s *config.Settings) cw.AdaptiveConfig {
	return cw.AdaptiveConfig{
		MinConfidence:       s.AdaptiveMinConf,
		AdjustmentRate:      s.AdaptiveAdjRate,
		MinMatchesForAdjust: s.AdaptiveMinMatch,
	}
}

func goertzelConfig(s *config.Settings) dsp.GoertzelConfig {
	return dsp.GoertzelConfig{
		TargetFrequency: s.ToneFrequency,
		SampleRate:      s.SampleRate,
		BlockSize:       s.BlockSize,
	}
}

func detectorConfig(s *config.Settings) dsp.DetectorConfig {
	return dsp.DetectorConfig{
		Threshold:       s.Threshold,
		Hysteresis:      s.Hysteresis,
		OverlapPct:      s.OverlapPct,
		AGCEnabled:      s.AGCEnabled,
		AGCDecay:        s.AGCDecay,
		AGCAttack:       s.AGCAttack,
		AGCWarmupBlocks: s.AGCWarmupBlocks,
	}
}

func audioConfig(s *config.Settings) audio.Config {
	return audio.Config{
		DeviceIndex: s.DeviceIndex,
		SampleRate:  uint32(s.SampleRate),
		Channels:    uint32(s.Channels),
		BufferSize:  uint32(s.BufferSize),
	}
}

// loggingConfig maps the log_* keys; --debug forces debug level.
func loggingConfig(s *config.Settings) logging.Config {
	level := s.LogLevel
	if s.Debug {
		level = "debug"
	}
	return logging.Config{
		Level:      level,
		File:       s.LogFile,
		MaxSizeMB:  s.LogMaxSizeMB,
		MaxBackups: s.LogMaxBackups,
		MaxAgeDays: s.LogMaxAgeDays,
		Compress:   s.LogCompress,
	}
}
