// internal/wasmhost/host.go
// Package wasmhost exposes encode_morse and decode_morse to WebAssembly
// guests. Guest pointers are offsets into the calling module's memory.
package wasmhost

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/ColonelBlimp/cwcodec/internal/boundary"
	"github.com/ColonelBlimp/cwcodec/internal/logging"
	"github.com/ColonelBlimp/cwcodec/internal/recovery"
)

// ModuleName is the import module guests link against.
const ModuleName = "cwcodec"

var transcodeParams = []api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32}

// Instantiate registers the cwcodec host module in r.
func Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	builder := r.NewHostModuleBuilder(ModuleName)

	for _, op := range []boundary.Op{boundary.OpEncode, boundary.OpDecode} {
		builder = builder.NewFunctionBuilder().
			WithGoModuleFunction(transcodeFunc(op), transcodeParams, nil).
			WithParameterNames("input", "output", "output_size").
			Export(op.String())
	}

	return builder.Instantiate(ctx)
}

// transcodeFunc applies the C buffer contract to guest memory. Offset 0 is
// null. An unterminated input or an output range outside memory is rejected
// without writing.
func transcodeFunc(op boundary.Op) api.GoModuleFunc {
	return func(_ context.Context, m api.Module, stack []uint64) {
		defer recovery.Contain(op.String())

		input := api.DecodeU32(stack[0])
		output := api.DecodeU32(stack[1])
		size := api.DecodeI32(stack[2])

		log := logging.Logger().With(zap.Stringer("op", op), zap.String("guest", m.Name()))

		if input == 0 || output == 0 || size <= 0 {
			log.Debug("rejected: null offset or non-positive size", zap.Int32("size", size))
			return
		}

		mem := m.Memory()
		if mem == nil {
			log.Debug("rejected: guest has no memory")
			return
		}

		src, ok := readCString(mem, input)
		if !ok {
			log.Debug("rejected: input not terminated inside memory", zap.Uint32("input", input))
			return
		}

		dst, ok := mem.Read(output, uint32(size))
		if !ok {
			log.Debug("rejected: output out of range", zap.Uint32("output", output), zap.Int32("size", size))
			return
		}

		boundary.Transcode(op, src, dst)
	}
}

// readCString views guest memory from offset up to the first NUL.
func readCString(mem api.Memory, offset uint32) ([]byte, bool) {
	limit := mem.Size()
	if offset >= limit {
		return nil, false
	}

	view, ok := mem.Read(offset, limit-offset)
	if !ok {
		return nil, false
	}

	n := bytes.IndexByte(view, boundary.Terminator)
	if n < 0 {
		return nil, false
	}
	return view[:n], true
}

// RunConfig describes one guest execution.
type RunConfig struct {
	// Args are passed to the guest; Args[0] is the program name
	Args   []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run compiles and runs a WASI command module with the cwcodec host module
// linked. A guest exit with status 0 is not an error.
func Run(ctx context.Context, wasm []byte, cfg RunConfig) error {
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		return fmt.Errorf("instantiate WASI: %w", err)
	}
	if _, err := Instantiate(ctx, r); err != nil {
		return fmt.Errorf("instantiate %s host module: %w", ModuleName, err)
	}

	compiled, err := r.CompileModule(ctx, wasm)
	if err != nil {
		return fmt.Errorf("compile guest: %w", err)
	}
	defer compiled.Close(ctx)

	modCfg := wazero.NewModuleConfig().WithArgs(cfg.Args...)
	if cfg.Stdin != nil {
		modCfg = modCfg.WithStdin(cfg.Stdin)
	}
	if cfg.Stdout != nil {
		modCfg = modCfg.WithStdout(cfg.Stdout)
	}
	if cfg.Stderr != nil {
		modCfg = modCfg.WithStderr(cfg.Stderr)
	}

	mod, err := r.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
			return nil
		}
		return fmt.Errorf("run guest: %w", err)
	}
	return mod.Close(ctx)
}
