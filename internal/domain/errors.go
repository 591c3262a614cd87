package domain

import "errors"

// Protocol errors returned by the codec. All of them condemn only the
// datagram (or packet) at hand; callers log and move on.
var (
	// ErrShortBuffer is returned when a buffer is too short to hold the
	// structure being decoded.
	ErrShortBuffer = errors.New("statefeed: short buffer")

	// ErrTruncated is returned when a datagram body is shorter than the
	// header's declared packet count requires.
	ErrTruncated = errors.New("statefeed: truncated datagram")

	// ErrLengthMismatch is returned in strict mode when the declared
	// PackageLength disagrees with the compiled packet size.
	ErrLengthMismatch = errors.New("statefeed: package length mismatch")

	// ErrInvalidEncoding is returned when a Name field is not valid
	// UTF-8 after padding strip.
	ErrInvalidEncoding = errors.New("statefeed: invalid name encoding")
)

// Queue errors.
var (
	// ErrQueueFull is returned by a non-blocking enqueue on a full queue.
	ErrQueueFull = errors.New("statefeed: arrival queue full")

	// ErrQueueClosed is returned by dequeue after shutdown drains the queue.
	ErrQueueClosed = errors.New("statefeed: arrival queue closed")
)

// Lifecycle errors returned by the public receiver API.
var (
	// ErrAlreadyRunning is returned when Start is called on a running receiver.
	ErrAlreadyRunning = errors.New("statefeed: already running")

	// ErrNotRunning is returned when Stop is called on a stopped receiver.
	ErrNotRunning = errors.New("statefeed: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("statefeed: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("statefeed: invalid configuration")
)
