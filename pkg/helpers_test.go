package dupblock

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// memorySource is a source that records its close
type memorySource struct {
	reader  io.Reader
	onClose func() error
}

func (ms *memorySource) Read(p []byte) (int, error) {
	return ms.reader.Read(p)
}

func (ms *memorySource) Close() error {
	if ms.onClose != nil {
		return ms.onClose()
	}
	return nil
}

// failingReader returns data and then err
type failingReader struct {
	data []byte
	err  error
}

func (fr *failingReader) Read(p []byte) (int, error) {
	if len(fr.data) == 0 {
		return 0, fr.err
	}
	n := copy(p, fr.data)
	fr.data = fr.data[n:]
	return n, nil
}

// memoryFS serves file contents from memory and counts opens, reads and closes
type memoryFS struct {
	mutex     sync.Mutex
	files     map[string][]byte
	openErrs  map[string]error
	readErrs  map[string]error // returned after the file content
	opens     map[string]int
	open      map[string]int // currently open handles
	bytesRead map[string]int
}

func newMemoryFS(files map[string]string) *memoryFS {
	mfs := &memoryFS{
		files:     make(map[string][]byte),
		openErrs:  make(map[string]error),
		readErrs:  make(map[string]error),
		opens:     make(map[string]int),
		open:      make(map[string]int),
		bytesRead: make(map[string]int),
	}
	for path, content := range files {
		mfs.files[path] = []byte(content)
	}
	return mfs
}

func (mfs *memoryFS) Open(path string) (io.ReadCloser, error) {
	mfs.mutex.Lock()
	defer mfs.mutex.Unlock()

	if err, ok := mfs.openErrs[path]; ok {
		return nil, err
	}
	content, ok := mfs.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	mfs.opens[path]++
	mfs.open[path]++

	var reader io.Reader = bytes.NewReader(content)
	if err, ok := mfs.readErrs[path]; ok {
		reader = &failingReader{data: append([]byte(nil), content...), err: err}
	}
	return &memorySource{
		reader: &countingReader{reader: reader, count: func(n int) {
			mfs.mutex.Lock()
			mfs.bytesRead[path] += n
			mfs.mutex.Unlock()
		}},
		onClose: func() error {
			mfs.mutex.Lock()
			mfs.open[path]--
			mfs.mutex.Unlock()
			return nil
		},
	}, nil
}

func (mfs *memoryFS) Opens(path string) int {
	mfs.mutex.Lock()
	defer mfs.mutex.Unlock()
	return mfs.opens[path]
}

func (mfs *memoryFS) OpenHandles(path string) int {
	mfs.mutex.Lock()
	defer mfs.mutex.Unlock()
	return mfs.open[path]
}

func (mfs *memoryFS) BytesRead(path string) int {
	mfs.mutex.Lock()
	defer mfs.mutex.Unlock()
	return mfs.bytesRead[path]
}

type countingReader struct {
	reader io.Reader
	count  func(int)
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.reader.Read(p)
	if n > 0 {
		cr.count(n)
	}
	return n, err
}

// countingOpener wraps OpenSequential for on-disk tests
type countingOpener struct {
	memory *memoryFS
}

func newCountingOpener() *countingOpener {
	return &countingOpener{memory: newMemoryFS(nil)}
}

func (co *countingOpener) Open(path string) (io.ReadCloser, error) {
	file, err := OpenSequential(path)
	if err != nil {
		return nil, err
	}
	co.memory.mutex.Lock()
	co.memory.opens[path]++
	co.memory.open[path]++
	co.memory.mutex.Unlock()

	return &memorySource{
		reader: &countingReader{reader: file, count: func(n int) {
			co.memory.mutex.Lock()
			co.memory.bytesRead[path] += n
			co.memory.mutex.Unlock()
		}},
		onClose: func() error {
			co.memory.mutex.Lock()
			co.memory.open[path]--
			co.memory.mutex.Unlock()
			return file.Close()
		},
	}, nil
}

// writeFiles creates files under root; keys are slash-separated relative paths
func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", rel, err)
		}
	}
}

func mustStrategy(t testing.TB, name string) HashStrategy {
	t.Helper()
	strategy, err := GetHashStrategy(name)
	if err != nil {
		t.Fatalf("Failed to get hash strategy %s: %v", name, err)
	}
	return strategy
}

var errDiskFault = errors.New("disk fault")
