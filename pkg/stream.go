package dupblock

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// SourceOpener opens the byte source behind a ContentStream
type SourceOpener func(path string) (io.ReadCloser, error)

// OpenSequential opens path for reading and tells the kernel the file will be
// read front to back once
func OpenSequential(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	// Advisory only; some filesystems reject it
	if err := unix.Fadvise(int(file.Fd()), 0, 0, unix.FADV_SEQUENTIAL); err != nil {
		DebugLog(DebugStream, "fadvise failed for %s: %v", path, err)
	}
	return file, nil
}

// streamState is the position of a ContentStream relative to its cache and source
type streamState int

const (
	streamUnset     streamState = iota // never reset, reads come from the source
	streamReplaying                    // cursor inside the cache
	streamLive                         // cursor at the end of the cache, source not finished
	streamExhausted                    // source fully consumed and cache fully replayed
)

func (s streamState) String() string {
	switch s {
	case streamUnset:
		return "unset"
	case streamReplaying:
		return "replaying"
	case streamLive:
		return "live"
	case streamExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("streamState(%d)", int(s))
	}
}

// streamAction is what Next does in a given state
type streamAction int

const (
	actionReplay   streamAction = iota // hand out cache[cursor]
	actionReadLive                     // read, hash and cache the next block
	actionEnd                          // report end of stream
)

// nextAction is the transition table of ContentStream.Next
func nextAction(state streamState) streamAction {
	switch state {
	case streamReplaying:
		return actionReplay
	case streamExhausted:
		return actionEnd
	default:
		return actionReadLive
	}
}

const cursorUnset = -1

// ContentStream is the lazy, memoized sequence of block fingerprints of one file.
//
// The first pass reads the file block by block and appends each fingerprint to
// an append-only cache. After Reset, Next replays the cache and only touches
// the file again once the replay catches up with what has been read so far.
// The source is opened on the first live read and closed as soon as the final
// block has been read.
type ContentStream struct {
	path      string
	size      uint64
	blockSize int
	strategy  HashStrategy
	opener    SourceOpener

	cache  []string
	cursor int

	source       io.ReadCloser
	buf          []byte
	exhausted    bool
	closed       bool
	shutdownChan <-chan struct{}

	opens     int
	bytesRead uint64
}

// NewContentStream creates a stream for the file at path, expected to be size bytes long.
// A nil opener defaults to OpenSequential.
func NewContentStream(path string, size uint64, blockSize int, strategy HashStrategy, opener SourceOpener) (*ContentStream, error) {
	if strategy == nil {
		return nil, ErrNilStrategy
	}
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlockSize, blockSize)
	}
	if opener == nil {
		opener = OpenSequential
	}

	cs := &ContentStream{
		path:      path,
		size:      size,
		blockSize: blockSize,
		strategy:  strategy,
		opener:    opener,
		cursor:    cursorUnset,
	}
	// Nothing to read for an empty file
	if size == 0 {
		cs.exhausted = true
	}
	return cs, nil
}

// SetShutdownChan makes live reads fail with ErrInterrupted once ch is closed
func (cs *ContentStream) SetShutdownChan(ch <-chan struct{}) {
	cs.shutdownChan = ch
}

// Path returns the file path
func (cs *ContentStream) Path() string {
	return cs.path
}

// Size returns the expected file size
func (cs *ContentStream) Size() uint64 {
	return cs.size
}

// Exhausted reports whether the underlying source has been fully consumed
func (cs *ContentStream) Exhausted() bool {
	return cs.exhausted
}

// CachedBlocks returns the number of block fingerprints computed so far
func (cs *ContentStream) CachedBlocks() int {
	return len(cs.cache)
}

// SourceOpens returns how many times the underlying source has been opened
func (cs *ContentStream) SourceOpens() int {
	return cs.opens
}

// BytesRead returns how many bytes have been read from the source
func (cs *ContentStream) BytesRead() uint64 {
	return cs.bytesRead
}

// state derives the current streamState
func (cs *ContentStream) state() streamState {
	switch {
	case cs.cursor != cursorUnset && cs.cursor < len(cs.cache):
		return streamReplaying
	case cs.exhausted:
		return streamExhausted
	case cs.cursor == cursorUnset:
		return streamUnset
	default:
		return streamLive
	}
}

// Next returns the next block fingerprint. ok is false at end of stream.
func (cs *ContentStream) Next() (fingerprint string, ok bool, err error) {
	switch nextAction(cs.state()) {
	case actionReplay:
		fingerprint = cs.cache[cs.cursor]
		cs.cursor++
		return fingerprint, true, nil
	case actionEnd:
		return "", false, nil
	default:
		return cs.readLive()
	}
}

// readLive reads one block from the source, hashes it and appends it to the cache
func (cs *ContentStream) readLive() (string, bool, error) {
	if cs.closed {
		return "", false, &FileError{Op: "read", Path: cs.path, Err: os.ErrClosed}
	}
	if err := checkShutdown(cs.shutdownChan); err != nil {
		return "", false, err
	}

	if cs.source == nil {
		source, err := cs.opener(cs.path)
		if err != nil {
			return "", false, &FileError{Op: "open", Path: cs.path, Err: err}
		}
		cs.source = source
		cs.opens++
		DebugLog(DebugStream, "opened %s (%s)", cs.path, humanBytes(cs.size))
	}
	if cs.buf == nil {
		cs.buf = make([]byte, cs.blockSize)
	}

	// Never read past the scanned size; bytes appended later are ignored
	want := cs.blockSize
	if remaining := cs.size - cs.bytesRead; remaining < uint64(want) {
		want = int(remaining)
	}
	n, err := io.ReadFull(cs.source, cs.buf[:want])
	last := false
	switch {
	case errors.Is(err, io.EOF):
		// File shrank to a block boundary since it was scanned
		if err := cs.finish(); err != nil {
			return "", false, err
		}
		return "", false, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		last = true
	case err != nil:
		return "", false, &FileError{Op: "read", Path: cs.path, Err: err}
	}

	fingerprint := cs.strategy.Hash(cs.buf[:n])
	cs.cache = append(cs.cache, fingerprint)
	cs.bytesRead += uint64(n)
	if cs.cursor != cursorUnset {
		cs.cursor = len(cs.cache)
	}

	if last || cs.bytesRead >= cs.size {
		if err := cs.finish(); err != nil {
			return "", false, err
		}
	}
	return fingerprint, true, nil
}

// finish marks the stream exhausted and releases the source
func (cs *ContentStream) finish() error {
	cs.exhausted = true
	DebugLog(DebugStream, "exhausted %s after %d blocks", cs.path, len(cs.cache))
	return cs.release()
}

func (cs *ContentStream) release() error {
	cs.buf = nil
	if cs.source == nil {
		return nil
	}
	err := cs.source.Close()
	cs.source = nil
	if err != nil {
		return &FileError{Op: "close", Path: cs.path, Err: err}
	}
	return nil
}

// Reset rewinds the cursor to the start of the cache. The source position is kept.
func (cs *ContentStream) Reset() {
	cs.cursor = 0
}

// WholeContentFingerprint hashes the concatenation of every cached block fingerprint.
// It identifies the whole file only once the stream has been driven to exhaustion;
// before that it covers just the prefix read so far.
func (cs *ContentStream) WholeContentFingerprint() string {
	var sb strings.Builder
	for _, fingerprint := range cs.cache {
		sb.WriteString(fingerprint)
	}
	return cs.strategy.Hash([]byte(sb.String()))
}

// Close releases a source that was not read to the end. The cache stays usable
// for replay, but further live reads fail.
func (cs *ContentStream) Close() error {
	if cs.exhausted {
		return nil
	}
	cs.closed = true
	return cs.release()
}
