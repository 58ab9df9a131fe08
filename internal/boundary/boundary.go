// internal/boundary/boundary.go
package boundary

import (
	"unicode/utf8"
	"unsafe"

	"go.uber.org/zap"

	"github.com/ColonelBlimp/cwcodec/internal/cw"
	"github.com/ColonelBlimp/cwcodec/internal/logging"
	"github.com/ColonelBlimp/cwcodec/internal/recovery"
)

// Op selects the direction of a boundary call.
type Op int

const (
	OpEncode Op = iota
	OpDecode
)

// String returns the exported symbol name of the operation.
func (o Op) String() string {
	if o == OpDecode {
		return "decode_morse"
	}
	return "encode_morse"
}

func (o Op) apply(text string) string {
	if o == OpDecode {
		return cw.Decode(text)
	}
	return cw.Encode(text)
}

// Transcode runs op over input and marshals the result into dst.
// Nothing is written when dst has no capacity, input is not valid UTF-8,
// or the result is empty. It returns the number of content bytes written
// and whether dst was touched.
func Transcode(op Op, input, dst []byte) (int, bool) {
	log := logging.Logger().With(zap.Stringer("op", op))

	if len(dst) == 0 {
		log.Debug("rejected: no output capacity")
		return 0, false
	}
	if !utf8.Valid(input) {
		log.Debug("rejected: input is not valid UTF-8", zap.Int("input_len", len(input)))
		return 0, false
	}

	result := op.apply(string(input))
	if result == "" {
		log.Debug("empty result, output untouched", zap.Int("input_len", len(input)))
		return 0, false
	}

	n := WriteTruncated(dst, []byte(result))
	log.Debug("transcoded",
		zap.Int("input_len", len(input)),
		zap.Int("result_len", len(result)),
		zap.Int("written", n),
		zap.Bool("truncated", n < len(result)))
	return n, true
}

// EncodeMorse is the encode_morse entry point. input is a NUL-terminated
// string, output a buffer of size bytes owned by the caller.
func EncodeMorse(input, output unsafe.Pointer, size int32) {
	call(OpEncode, input, output, size)
}

// DecodeMorse is the decode_morse entry point, with the same buffer contract
// as EncodeMorse.
func DecodeMorse(input, output unsafe.Pointer, size int32) {
	call(OpDecode, input, output, size)
}

func call(op Op, input, output unsafe.Pointer, size int32) {
	defer recovery.Contain(op.String())

	if input == nil || output == nil || size <= 0 {
		logging.Logger().Debug("rejected: null pointer or non-positive size",
			zap.Stringer("op", op), zap.Int32("size", size))
		return
	}

	Transcode(op, cString(input), unsafe.Slice((*byte)(output), int(size)))
}

// cString views the NUL-terminated string at p without copying.
func cString(p unsafe.Pointer) []byte {
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != Terminator {
		n++
	}
	return unsafe.Slice((*byte)(p), n)
}
