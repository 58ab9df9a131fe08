// cmd/libcwcodec/main.go

// Command libcwcodec exports the Morse encoder and decoder through the C ABI,
// writing results into caller-owned, NUL-terminated buffers.
//
// Build as a C shared library:
//
//	go build -buildmode=c-shared -o libcwcodec.so ./cmd/libcwcodec
//
// which exports
//
//	void encode_morse(const char *input, char *output, int output_size);
//	void decode_morse(const char *input, char *output, int output_size);
package main

import "C"

import (
	"unsafe"

	"github.com/ColonelBlimp/cwcodec/internal/boundary"
)

//export encode_morse
func encode_morse(input *C.char, output *C.char, outputSize C.int) {
	boundary.EncodeMorse(unsafe.Pointer(input), unsafe.Pointer(output), int32(outputSize))
}

//export decode_morse
func decode_morse(input *C.char, output *C.char, outputSize C.int) {
	boundary.DecodeMorse(unsafe.Pointer(input), unsafe.Pointer(output), int32(outputSize))
}

func main() {}
