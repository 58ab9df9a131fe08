// cmd/decode.go
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/cwcodec/internal/cw"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [morse...]",
	Short: "Decode Morse code to text",
	Long: `Decode Morse code written with '.' and '-'. One space ends a character,
two end a word. Other characters are ignored. Reads lines from stdin when
no code is given.

Arguments are never read as flags, so codes starting with a dah need no
quoting. Timing comes from the config file; a leading -- is skipped.

Examples:
  cwcodec decode ... --- ...
  cwcodec decode "-.-. --.-  -.. ."
  cwcodec encode HELLO WORLD | cwcodec decode`,
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			switch args[0] {
			case "-h", "--help":
				return cmd.Help()
			case "--":
				args = args[1:]
			}
		}

		codec, err := cw.NewCodec(codecConfig(settings))
		if err != nil {
			return err
		}
		return transcode(cmd.OutOrStdout(), cmd.InOrStdin(), args, codec.Decode)
	},
}
