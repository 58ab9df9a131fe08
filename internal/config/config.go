// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	AppName       = "cwcodec"
	ConfigType    = "yaml"
	DefaultConfig = `# CW Codec Configuration

# Morse timing
reference_unit_ms: 100    # Dit length in milliseconds (100 ms = 12 WPM)
dit_dah_boundary: 2.0     # Tones up to this many units are dits, longer are dahs
char_gap_boundary: 2.0    # Silences up to this many units separate elements of one character
word_gap_boundary: 5.0    # Silences up to this many units separate characters, longer separate words
max_message: 70000        # Longest message encoded or decoded, in characters

# Live decoding
adaptive_timing: false    # Follow the sender's speed while listening
adaptive_smoothing: 0.1   # Weight of each new element in the speed estimate (0.0-1.0)
adaptive_min_confidence: 0.7  # Share of a known word's character breaks that must line up (0.0-1.0)
adaptive_adjustment_rate: 0.1 # How far each known word pulls char_gap_boundary (0.0-1.0)
adaptive_min_matches: 3       # Times a word must be heard before it moves char_gap_boundary

# Audio device settings
device_index: -1          # -1 for default device
sample_rate: 48000        # Audio sample rate in Hz
channels: 1               # Number of channels (1=mono)
buffer_size: 1024         # Audio buffer size in frames

# Tone detection
tone_frequency: 600       # CW tone frequency in Hz
block_size: 512           # Goertzel block size (samples per detection window)
overlap_pct: 50           # Block overlap percentage (0-99), higher = smoother but more CPU

# Detection thresholds
threshold: 0.4            # Detection threshold (0.0-1.0), tone magnitude must exceed this
hysteresis: 5             # Consecutive blocks required to confirm state change (reduces noise)
agc_enabled: true         # Enable automatic gain control (normalizes input levels)
agc_decay: 0.9995         # AGC peak decay rate per block (0.99-0.99999)
agc_attack: 0.1           # AGC attack rate (0.0-1.0), how fast to respond to louder signals
agc_warmup_blocks: 10     # Blocks used to calibrate AGC before detection starts

# Logging
log_level: info           # debug, info, warn or error
log_file: ""              # JSON log file, rotated; empty disables
log_max_size_mb: 10       # Rotate after this many megabytes
log_max_backups: 3        # Rotated files to keep
log_max_age_days: 28      # Days to keep rotated files
log_compress: false       # Gzip rotated files

# Output
debug: false              # Enable debug output
`
)

// Settings holds all application configuration
type Settings struct {
	// Morse timing
	ReferenceUnitMs float64 `mapstructure:"reference_unit_ms"`
	DitDahBoundary  float64 `mapstructure:"dit_dah_boundary"`
	CharGapBoundary float64 `mapstructure:"char_gap_boundary"`
	WordGapBoundary float64 `mapstructure:"word_gap_boundary"`
	MaxMessage      int     `mapstructure:"max_message"`

	// Live decoding
	AdaptiveTiming    bool    `mapstructure:"adaptive_timing"`
	AdaptiveSmoothing float64 `mapstructure:"adaptive_smoothing"`
	AdaptiveMinConf   float64 `mapstructure:"adaptive_min_confidence"`
	AdaptiveAdjRate   float64 `mapstructure:"adaptive_adjustment_rate"`
	AdaptiveMinMatch  int     `mapstructure:"adaptive_min_matches"`

	// Audio device settings
	DeviceIndex int     `mapstructure:"device_index"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Channels    int     `mapstructure:"channels"`
	BufferSize  int     `mapstructure:"buffer_size"`

	// Tone detection
	ToneFrequency float64 `mapstructure:"tone_frequency"`
	BlockSize     int     `mapstructure:"block_size"`
	OverlapPct    int     `mapstructure:"overlap_pct"`

	// Detection thresholds
	Threshold       float64 `mapstructure:"threshold"`
	Hysteresis      int     `mapstructure:"hysteresis"`
	AGCEnabled      bool    `mapstructure:"agc_enabled"`
	AGCDecay        float64 `mapstructure:"agc_decay"`
	AGCAttack       float64 `mapstructure:"agc_attack"`
	AGCWarmupBlocks int     `mapstructure:"agc_warmup_blocks"`

	// Logging
	LogLevel      string `mapstructure:"log_level"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
	LogMaxAgeDays int    `mapstructure:"log_max_age_days"`
	LogCompress   bool   `mapstructure:"log_compress"`

	// Output
	Debug bool `mapstructure:"debug"`
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/cwcodec/
func Init() error {
	setDefaults()

	// Support both config.yaml and .config.yaml
	viper.SetConfigType(ConfigType)

	// Priority order: current directory first, then XDG config
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// Try .config.yaml first (hidden file), then config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	// Read config file - if not found, create default in XDG config dir
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("read config: %w", err)
		}
		if err = ensureConfigExists(filepath.Join(configDir, AppName)); err != nil {
			return err
		}
		if err = viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("reference_unit_ms", 100)
	viper.SetDefault("dit_dah_boundary", 2.0)
	viper.SetDefault("char_gap_boundary", 2.0)
	viper.SetDefault("word_gap_boundary", 5.0)
	viper.SetDefault("max_message", 70000)
	viper.SetDefault("adaptive_timing", false)
	viper.SetDefault("adaptive_smoothing", 0.1)
	viper.SetDefault("adaptive_min_confidence", 0.7)
	viper.SetDefault("adaptive_adjustment_rate", 0.1)
	viper.SetDefault("adaptive_min_matches", 3)
	viper.SetDefault("device_index", -1)
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("channels", 1)
	viper.SetDefault("buffer_size", 1024)
	viper.SetDefault("tone_frequency", 600)
	viper.SetDefault("block_size", 512)
	viper.SetDefault("overlap_pct", 50)
	viper.SetDefault("threshold", 0.4)
	viper.SetDefault("hysteresis", 5)
	viper.SetDefault("agc_enabled", true)
	viper.SetDefault("agc_decay", 0.9995)
	viper.SetDefault("agc_attack", 0.1)
	viper.SetDefault("agc_warmup_blocks", 10)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_file", "")
	viper.SetDefault("log_max_size_mb", 10)
	viper.SetDefault("log_max_backups", 3)
	viper.SetDefault("log_max_age_days", 28)
	viper.SetDefault("log_compress", false)
	viper.SetDefault("debug", false)
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	// Morse timing
	if s.ReferenceUnitMs < 10 || s.ReferenceUnitMs > 1200 {
		errs = append(errs, fmt.Errorf("reference_unit_ms must be between 10 and 1200, got %v", s.ReferenceUnitMs))
	}
	if s.DitDahBoundary <= 1 || s.DitDahBoundary >= 3 {
		errs = append(errs, fmt.Errorf("dit_dah_boundary must lie between 1 and 3 units, got %v", s.DitDahBoundary))
	}
	if s.CharGapBoundary <= 1 || s.CharGapBoundary >= 3 {
		errs = append(errs, fmt.Errorf("char_gap_boundary must lie between 1 and 3 units, got %v", s.CharGapBoundary))
	}
	if s.WordGapBoundary <= 3 || s.WordGapBoundary >= 7 {
		errs = append(errs, fmt.Errorf("word_gap_boundary must lie between 3 and 7 units, got %v", s.WordGapBoundary))
	}
	if s.MaxMessage < 1 {
		errs = append(errs, fmt.Errorf("max_message must be positive, got %d", s.MaxMessage))
	}
	if s.AdaptiveSmoothing < 0.0 || s.AdaptiveSmoothing > 1.0 {
		errs = append(errs, fmt.Errorf("adaptive_smoothing must be between 0.0 and 1.0, got %v", s.AdaptiveSmoothing))
	}
	if s.AdaptiveMinConf <= 0.0 || s.AdaptiveMinConf > 1.0 {
		errs = append(errs, fmt.Errorf("adaptive_min_confidence must be above 0.0 and at most 1.0, got %v", s.AdaptiveMinConf))
	}
	if s.AdaptiveAdjRate <= 0.0 || s.AdaptiveAdjRate > 1.0 {
		errs = append(errs, fmt.Errorf("adaptive_adjustment_rate must be above 0.0 and at most 1.0, got %v", s.AdaptiveAdjRate))
	}
	if s.AdaptiveMinMatch < 1 {
		errs = append(errs, fmt.Errorf("adaptive_min_matches must be at least 1, got %d", s.AdaptiveMinMatch))
	}

	// Audio device settings
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %v", s.SampleRate))
	}
	if s.Channels < 1 || s.Channels > 2 {
		errs = append(errs, fmt.Errorf("channels must be 1 or 2, got %d", s.Channels))
	}
	if s.BufferSize < 64 || s.BufferSize > 8192 {
		errs = append(errs, fmt.Errorf("buffer_size must be between 64 and 8192, got %d", s.BufferSize))
	}
	if s.BufferSize&(s.BufferSize-1) != 0 {
		errs = append(errs, fmt.Errorf("buffer_size should be a power of 2, got %d", s.BufferSize))
	}

	// Tone detection
	if s.ToneFrequency < 100 || s.ToneFrequency > 3000 {
		errs = append(errs, fmt.Errorf("tone_frequency must be between 100 and 3000 Hz, got %v", s.ToneFrequency))
	}
	if s.BlockSize < 32 || s.BlockSize > 4096 {
		errs = append(errs, fmt.Errorf("block_size must be between 32 and 4096, got %d", s.BlockSize))
	}
	if s.BlockSize&(s.BlockSize-1) != 0 {
		errs = append(errs, fmt.Errorf("block_size should be a power of 2, got %d", s.BlockSize))
	}
	if s.OverlapPct < 0 || s.OverlapPct > 99 {
		errs = append(errs, fmt.Errorf("overlap_pct must be between 0 and 99, got %d", s.OverlapPct))
	}

	// Detection thresholds
	if s.Threshold < 0.0 || s.Threshold > 1.0 {
		errs = append(errs, fmt.Errorf("threshold must be between 0.0 and 1.0, got %v", s.Threshold))
	}
	if s.Hysteresis < 1 || s.Hysteresis > 50 {
		errs = append(errs, fmt.Errorf("hysteresis must be between 1 and 50, got %d", s.Hysteresis))
	}
	if s.AGCDecay < 0.99 || s.AGCDecay > 0.99999 {
		errs = append(errs, fmt.Errorf("agc_decay must be between 0.99 and 0.99999, got %v", s.AGCDecay))
	}
	if s.AGCAttack < 0.0 || s.AGCAttack > 1.0 {
		errs = append(errs, fmt.Errorf("agc_attack must be between 0.0 and 1.0, got %v", s.AGCAttack))
	}
	if s.AGCWarmupBlocks < 0 {
		errs = append(errs, fmt.Errorf("agc_warmup_blocks must be non-negative, got %d", s.AGCWarmupBlocks))
	}

	// Logging
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", s.LogLevel))
	}
	if s.LogMaxSizeMB < 0 || s.LogMaxBackups < 0 || s.LogMaxAgeDays < 0 {
		errs = append(errs, fmt.Errorf("log rotation limits must be non-negative"))
	}

	// Nyquist check: tone frequency must be less than half the sample rate
	if s.ToneFrequency >= s.SampleRate/2 {
		errs = append(errs, fmt.Errorf("tone_frequency (%v Hz) must be less than Nyquist frequency (%v Hz)", s.ToneFrequency, s.SampleRate/2))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
