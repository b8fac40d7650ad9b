package log

import (
	"bufio"
	"os"
	"sync"
)

// fileBufferSize covers a burst of sweep-interval events without a
// syscall per event.
const fileBufferSize = 32 * 1024

// FileLogger appends protocol events to a CBOR stream file. Writes are
// buffered; Close flushes the buffer. Safe for concurrent use.
type FileLogger struct {
	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	enc    eventEncoder
	events uint64
	closed bool
}

type eventEncoder interface {
	Encode(v interface{}) error
}

// NewFileLogger opens path for appending, creating it with mode 0644
// when absent.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriterSize(f, fileBufferSize)
	return &FileLogger{
		file: f,
		buf:  buf,
		enc:  NewEncoder(buf),
	}, nil
}

// Log appends the event to the stream. Encoding errors are swallowed:
// event logging must never disturb protocol operation. Calls after
// Close are ignored.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if err := l.enc.Encode(event); err == nil {
		l.events++
	}
}

// EventCount returns the number of events written since the logger was
// opened.
func (l *FileLogger) EventCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events
}

// Close flushes buffered events and closes the file. Safe to call more
// than once.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	flushErr := l.buf.Flush()
	closeErr := l.file.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

var _ Logger = (*FileLogger)(nil)
