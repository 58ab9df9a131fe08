// cmd/encode.go
package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/cwcodec/internal/cw"
)

// wordSeparator is the gap between encoded words; decode reads an empty
// token as a word gap.
const wordSeparator = "  "

var encodeCmd = &cobra.Command{
	Use:   "encode [text...]",
	Short: "Encode text as Morse code",
	Long: `Encode text as Morse code. Characters are separated by one space and
words by two. Reads lines from stdin when no text is given.

Examples:
  cwcodec encode CQ DE M0ABC
  echo "SOS" | cwcodec encode`,
	RunE: func(cmd *cobra.Command, args []string) error {
		codec, err := cw.NewCodec(codecConfig(settings))
		if err != nil {
			return err
		}
		return transcode(cmd.OutOrStdout(), cmd.InOrStdin(), args, encodeLine(codec))
	},
}

// encodeLine encodes each word of a line on its own.
func encodeLine(codec *cw.Codec) func(string) string {
	return func(line string) string {
		var words []string
		for _, word := range strings.Fields(line) {
			if morse := codec.Encode(word); morse != "" {
				words = append(words, morse)
			}
		}
		return strings.Join(words, wordSeparator)
	}
}

// transcode applies fn to the joined args, or to each line of r when there
// are no args, writing one result line per input.
func transcode(w io.Writer, r io.Reader, args []string, fn func(string) string) error {
	if len(args) > 0 {
		_, err := fmt.Fprintln(w, fn(strings.Join(args, " ")))
		return err
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), cw.MaxMessage*utf8.UTFMax)
	for scanner.Scan() {
		if _, err := fmt.Fprintln(w, fn(scanner.Text())); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}
