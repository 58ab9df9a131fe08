// cmd/run.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/cwcodec/internal/wasmhost"
)

var runCmd = &cobra.Command{
	Use:   "run <module.wasm> [args...]",
	Short: "Run a WASI module with the Morse host functions",
	Long: `Run a WASI command module. The module may import encode_morse and
decode_morse from the "cwcodec" module:

  (import "cwcodec" "encode_morse" (func (param i32 i32 i32)))

Pointers are offsets into the module's exported memory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wasm, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read module: %w", err)
		}
		return wasmhost.Run(cmd.Context(), wasm, wasmhost.RunConfig{
			Args:   args,
			Stdin:  cmd.InOrStdin(),
			Stdout: cmd.OutOrStdout(),
			Stderr: cmd.ErrOrStderr(),
		})
	},
}
