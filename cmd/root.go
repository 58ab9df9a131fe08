// cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ColonelBlimp/cwcodec/internal/config"
	"github.com/ColonelBlimp/cwcodec/internal/logging"
)

// settings is loaded before any subcommand runs.
var settings *config.Settings

var rootCmd = &cobra.Command{
	Use:   "cwcodec",
	Short: "Morse code encoder and decoder",
	Long: `Converts text to Morse code and back, decodes live CW from an audio
device, and runs WebAssembly modules that import the encode_morse and
decode_morse host functions.`,
	PersistentPreRunE: setup,
	SilenceErrors:     true,
	SilenceUsage:      true,
}

// flagBindings maps config keys to persistent flag names.
var flagBindings = map[string]string{
	"device_index":      "device",
	"tone_frequency":    "frequency",
	"reference_unit_ms": "unit",
	"debug":             "debug",
}

func Execute() {
	err := rootCmd.Execute()
	_ = logging.Logger().Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags (override config file)
	rootCmd.PersistentFlags().IntP("device", "d", -1, "audio device index (-1 for default)")
	rootCmd.PersistentFlags().Float64P("frequency", "f", 600, "CW tone frequency in Hz")
	rootCmd.PersistentFlags().Float64P("unit", "u", 100, "reference unit (dit length) in milliseconds")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug output")

	rootCmd.AddCommand(encodeCmd, decodeCmd, listenCmd, devicesCmd, runCmd)
}

// setup binds flags, loads and validates the configuration, and installs
// the process logger.
func setup(cmd *cobra.Command, _ []string) error {
	flags := cmd.Root().PersistentFlags()
	for key, name := range flagBindings {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	if err := config.Init(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	s, err := config.Get()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	log, err := logging.New(loggingConfig(s), cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	logging.SetLogger(log)

	settings = s
	return nil
}
