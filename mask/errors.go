package mask

import "errors"

// Flow outcomes returned to the input callers. These enable upstream code
// to distinguish shutdown modes using errors.Is; per-buffer soft failures
// (missing timestamps, out-of-segment buffers, unmappable frames) are not
// errors, the buffer is simply dropped and processing continues.
var (
	// ErrFlushing is returned while the corresponding input is flushing;
	// the buffer was discarded.
	ErrFlushing = errors.New("alphamask: flushing")

	// ErrEOS is returned after the corresponding input saw end-of-stream;
	// the buffer was discarded.
	ErrEOS = errors.New("alphamask: end of stream")

	// ErrNotNegotiated is returned when no output format has been
	// negotiated; buffers are not forwarded until renegotiation succeeds.
	ErrNotNegotiated = errors.New("alphamask: output format not negotiated")
)
