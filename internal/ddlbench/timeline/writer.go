package timeline

import (
	"os"
	"sync"

	"github.com/pkg/errors"
)

// Writer appends records to a file, one write per record so that lines reach the file as they
// happen. It is safe for concurrent use and rejects writes once closed.
type Writer struct {
	mu     sync.Mutex
	file   *os.File
	path   string
	closed bool
}

// Create creates or truncates the file at path.
func Create(path string) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Writer{file: file, path: path}, nil
}

func (w *Writer) Path() string {
	return w.path
}

func (w *Writer) Write(record Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.WithStack(os.ErrClosed)
	}
	_, err := w.file.WriteString(record.String())
	return errors.WithStack(err)
}

// Close flushes the file to disk and closes it. Closing twice is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	syncErr := w.file.Sync()
	if err := w.file.Close(); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(syncErr)
}
