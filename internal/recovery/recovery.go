// internal/recovery/recovery.go
package recovery

import (
	"fmt"
	"os"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/ColonelBlimp/cwcodec/internal/logging"
)

// HandlePanic should be deferred at the top of main() or goroutines.
// It logs panic details and exits with code 1.
func HandlePanic() {
	if r := recover(); r != nil {
		fatal(r)
		os.Exit(1)
	}
}

// HandlePanicFunc logs panic details and calls the provided cleanup function.
func HandlePanicFunc(cleanup func()) {
	if r := recover(); r != nil {
		fatal(r)
		if cleanup != nil {
			cleanup()
		}
		os.Exit(1)
	}
}

// Contain should be deferred at entry points called from foreign code, where
// a panic must not unwind past the boundary. It logs and swallows the panic.
func Contain(op string) {
	if r := recover(); r != nil {
		logging.Logger().Error("panic contained",
			zap.String("op", op),
			zap.Any("panic", r),
			zap.ByteString("stack", debug.Stack()))
	}
}

func fatal(r any) {
	stack := debug.Stack()
	logging.Logger().Error("fatal panic", zap.Any("panic", r), zap.ByteString("stack", stack))
	_ = logging.Logger().Sync()
	_, _ = fmt.Fprintf(os.Stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, stack)
}

