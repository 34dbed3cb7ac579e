package dupblock

import (
	"errors"
	"fmt"
)

// Configuration errors are reported before the filesystem is touched
var (
	ErrMissingDirectory = errors.New("at least one target directory is required")
	ErrMissingBlockSize = errors.New("block size is required")
	ErrInvalidBlockSize = errors.New("block size must be positive")
	ErrNilStrategy      = errors.New("hash strategy is nil")
	ErrBadPattern       = errors.New("invalid name pattern")
)

// Run-time errors
var (
	ErrNotDirectory = errors.New("is not a directory")
	ErrInterrupted  = errors.New("interrupted by shutdown")
)

// FileError records a failure to open or read one candidate file
type FileError struct {
	Op   string // "open" or "read"
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// checkShutdown returns ErrInterrupted once shutdownChan is closed.
// A nil channel never fires.
func checkShutdown(shutdownChan <-chan struct{}) error {
	select {
	case <-shutdownChan:
		return ErrInterrupted
	default:
		return nil
	}
}
