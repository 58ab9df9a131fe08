// internal/boundary/marshal.go
// Package boundary adapts the Morse codec to callers that pass raw,
// fixed-capacity, NUL-terminated byte buffers.
package boundary

// Terminator ends every string written into a caller buffer.
const Terminator byte = 0

// WriteTruncated copies as much of src into dst as fits while leaving room
// for the terminator, then terminates. len(dst) is the caller's capacity.
// It returns the number of content bytes written. A zero-capacity dst is
// left untouched.
func WriteTruncated(dst, src []byte) int {
	if len(dst) == 0 {
		return 0
	}

	n := min(len(src), len(dst)-1)
	copy(dst[:n], src)
	dst[n] = Terminator
	return n
}
