package dupblock

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// SearchOptions configures a Searcher
type SearchOptions struct {
	BlockSize      int          // Bytes per block, required
	MinFileSize    uint64       // Smaller files are never candidates
	Algorithm      string       // Hash strategy name (default: crc32)
	Workers        int          // Size groups processed concurrently (default: 1)
	SkipUnreadable bool         // Drop unreadable candidates instead of aborting
	IgnoreFile     string       // Optional file of regex ignore patterns
	Opener         SourceOpener // Opens file contents (default: OpenSequential)
}

// SearchStats summarises the work done by the last Search
type SearchStats struct {
	SizeGroups    uint64 // Size groups found by the scan
	SkippedGroups uint64 // Groups with a single candidate
	Candidates    uint64 // Files in groups that were compared
	Comparisons   uint64 // Pairs handed to Equal
	Matches       uint64 // Pairs found equal
	FilesOpened   uint64 // Source opens over all streams
	BlocksRead    uint64 // Block fingerprints computed
	BytesRead     uint64 // Bytes read from sources
	SkippedFiles  uint64 // Unreadable candidates dropped
}

// searchCounters is the atomically updated form of SearchStats
type searchCounters struct {
	sizeGroups    atomic.Uint64
	skippedGroups atomic.Uint64
	candidates    atomic.Uint64
	comparisons   atomic.Uint64
	matches       atomic.Uint64
	filesOpened   atomic.Uint64
	blocksRead    atomic.Uint64
	bytesRead     atomic.Uint64
	skippedFiles  atomic.Uint64
}

func (sc *searchCounters) reset() {
	sc.sizeGroups.Store(0)
	sc.skippedGroups.Store(0)
	sc.candidates.Store(0)
	sc.comparisons.Store(0)
	sc.matches.Store(0)
	sc.filesOpened.Store(0)
	sc.blocksRead.Store(0)
	sc.bytesRead.Store(0)
	sc.skippedFiles.Store(0)
}

// Searcher finds groups of files with identical content
type Searcher struct {
	opts     SearchOptions
	strategy HashStrategy
	index    *DuplicateIndex
	counters searchCounters

	// equal decides a pair; replaced in tests
	equal func(a, b *ContentStream) (bool, error)
}

// NewSearcher validates opts and creates a Searcher
func NewSearcher(opts SearchOptions) (*Searcher, error) {
	if opts.BlockSize == 0 {
		return nil, ErrMissingBlockSize
	}
	if opts.BlockSize < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlockSize, opts.BlockSize)
	}
	if opts.Algorithm == "" {
		opts.Algorithm = DefaultHashAlgorithm
	}
	strategy, err := GetHashStrategy(opts.Algorithm)
	if err != nil {
		return nil, err
	}
	if opts.Workers == 0 {
		opts.Workers = DefaultWorkers
	}
	if err := ValidateWorkers(opts.Workers); err != nil {
		return nil, err
	}
	if opts.Opener == nil {
		opts.Opener = OpenSequential
	}

	return &Searcher{
		opts:     opts,
		strategy: strategy,
		index:    NewDuplicateIndex(),
		equal:    Equal,
	}, nil
}

// NewSearcherFromConfig creates a Searcher from the [search], [filehash] and
// [performance] sections of cfg
func NewSearcherFromConfig(cfg *Config) (*Searcher, error) {
	searchConfig := cfg.GetSearchConfig()
	if searchConfig.BlockSize == "" {
		return nil, ErrMissingBlockSize
	}
	blockSize, err := ParseHumanSize(searchConfig.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBlockSize, err)
	}
	minSize, err := ParseHumanSizeAllowZero(searchConfig.MinSize)
	if err != nil {
		return nil, fmt.Errorf("invalid min_size: %w", err)
	}

	return NewSearcher(SearchOptions{
		BlockSize:      blockSize,
		MinFileSize:    uint64(minSize),
		Algorithm:      cfg.GetHashConfig().Default,
		Workers:        cfg.GetPerformanceConfig().Workers,
		SkipUnreadable: searchConfig.SkipUnreadable,
		IgnoreFile:     searchConfig.IgnoreFile,
	})
}

// Strategy returns the hash strategy in use
func (s *Searcher) Strategy() HashStrategy {
	return s.strategy
}

// Stats returns the counters of the last Search
func (s *Searcher) Stats() SearchStats {
	return SearchStats{
		SizeGroups:    s.counters.sizeGroups.Load(),
		SkippedGroups: s.counters.skippedGroups.Load(),
		Candidates:    s.counters.candidates.Load(),
		Comparisons:   s.counters.comparisons.Load(),
		Matches:       s.counters.matches.Load(),
		FilesOpened:   s.counters.filesOpened.Load(),
		BlocksRead:    s.counters.blocksRead.Load(),
		BytesRead:     s.counters.bytesRead.Load(),
		SkippedFiles:  s.counters.skippedFiles.Load(),
	}
}

// Search scans dirs and returns every group of at least two files with
// identical content. Closing shutdownChan aborts the run with ErrInterrupted.
func (s *Searcher) Search(shutdownChan <-chan struct{}, dirs, excludes []string, pattern string, recursive bool) ([]DuplicateGroup, error) {
	defer VerboseEnter()()

	if len(dirs) == 0 {
		return nil, ErrMissingDirectory
	}

	scanner, err := NewDirectoryScanner(dirs, excludes, s.opts.MinFileSize)
	if err != nil {
		return nil, err
	}
	if s.opts.IgnoreFile != "" {
		if err := scanner.Excludes().LoadIgnoreFile(s.opts.IgnoreFile); err != nil {
			return nil, err
		}
	}

	groups, err := scanner.Scan(shutdownChan, pattern, recursive)
	if err != nil {
		return nil, err
	}

	s.counters.reset()
	s.index = NewDuplicateIndex()
	s.counters.sizeGroups.Store(uint64(len(groups)))

	var jobs []*groupJob
	for _, size := range groups.Sizes() {
		paths := groups[size]
		if paths.Len() < 2 {
			s.counters.skippedGroups.Add(1)
			continue
		}
		s.counters.candidates.Add(uint64(paths.Len()))
		jobs = append(jobs, &groupJob{size: size, paths: paths.Sorted()})
	}
	DebugLog(DebugSearch, "%d size groups, %d to compare", len(groups), len(jobs))

	if s.opts.Workers > 1 && len(jobs) > 1 {
		err = s.searchParallel(shutdownChan, jobs)
	} else {
		err = s.searchSequential(shutdownChan, jobs)
	}
	if err != nil {
		return nil, err
	}

	result := s.index.Flatten()

	stats := s.Stats()
	VerboseLog(1, "Compared %d pairs in %d size groups, read %s in %d blocks from %d files",
		stats.Comparisons, len(jobs), humanBytes(stats.BytesRead), stats.BlocksRead, stats.FilesOpened)
	VerboseLog(1, "Found %d duplicate groups", len(result))
	return result, nil
}

func (s *Searcher) searchSequential(shutdownChan <-chan struct{}, jobs []*groupJob) error {
	for _, job := range jobs {
		if err := checkShutdown(shutdownChan); err != nil {
			return err
		}
		if err := s.searchGroup(shutdownChan, job); err != nil {
			return err
		}
	}
	return nil
}

// searchGroup compares every unordered pair of one size group exactly once.
// Streams are created on first use and shared by all comparisons in the group.
func (s *Searcher) searchGroup(shutdownChan <-chan struct{}, job *groupJob) (err error) {
	DebugLog(DebugSearch, "comparing %d files of %s", len(job.paths), humanBytes(job.size))

	streams := make(map[string]*ContentStream, len(job.paths))
	dropped := make(map[string]struct{})
	defer func() {
		for _, stream := range streams {
			s.counters.filesOpened.Add(uint64(stream.SourceOpens()))
			s.counters.blocksRead.Add(uint64(stream.CachedBlocks()))
			s.counters.bytesRead.Add(stream.BytesRead())
			if closeErr := stream.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}
	}()

	streamFor := func(path string) (*ContentStream, error) {
		if stream, ok := streams[path]; ok {
			return stream, nil
		}
		stream, err := NewContentStream(path, job.size, s.opts.BlockSize, s.strategy, s.opts.Opener)
		if err != nil {
			return nil, err
		}
		stream.SetShutdownChan(shutdownChan)
		streams[path] = stream
		return stream, nil
	}

	for i := 0; i < len(job.paths); i++ {
		pathA := job.paths[i]
		for j := i + 1; j < len(job.paths); j++ {
			if _, gone := dropped[pathA]; gone {
				break
			}
			pathB := job.paths[j]
			if _, gone := dropped[pathB]; gone {
				continue
			}
			if err := checkShutdown(shutdownChan); err != nil {
				return err
			}

			a, err := streamFor(pathA)
			if err != nil {
				return err
			}
			b, err := streamFor(pathB)
			if err != nil {
				return err
			}

			s.counters.comparisons.Add(1)
			same, err := s.equal(a, b)
			if err != nil {
				if s.dropUnreadable(err, streams, dropped) {
					continue
				}
				return err
			}
			if !same {
				continue
			}

			s.counters.matches.Add(1)
			DebugLog(DebugSearch, "match: %s == %s", pathA, pathB)
			s.index.RecordMatch(pathA, a.WholeContentFingerprint(), pathB, b.WholeContentFingerprint())
		}
	}
	return nil
}

// dropUnreadable removes the file behind a per-file I/O error from the group
// when SkipUnreadable is set. It reports whether the error was absorbed.
func (s *Searcher) dropUnreadable(err error, streams map[string]*ContentStream, dropped map[string]struct{}) bool {
	if !s.opts.SkipUnreadable {
		return false
	}
	var fileErr *FileError
	if !errors.As(err, &fileErr) {
		return false
	}
	stream, ok := streams[fileErr.Path]
	if !ok {
		return false
	}

	writeLog("[WARNING] ", "skipping unreadable file: %v", err)
	dropped[fileErr.Path] = struct{}{}
	s.counters.skippedFiles.Add(1)
	if closeErr := stream.Close(); closeErr != nil {
		DebugLog(DebugSearch, "close after failure: %v", closeErr)
	}
	return true
}

// groupJob is one size group waiting to be compared
type groupJob struct {
	size  uint64
	paths []string // sorted
}

// groupPool runs size groups on a fixed set of workers. The first error
// stops the remaining groups.
type groupPool struct {
	jobChan    chan *groupJob
	wg         sync.WaitGroup
	stopChan   chan struct{} // closed on shutdown or first error
	stopOnce   sync.Once
	doneChan   chan struct{}
	errMutex   sync.Mutex
	err        error
	closed     bool
	closeMutex sync.Mutex
}

func (s *Searcher) newGroupPool(numWorkers int, shutdownChan <-chan struct{}) *groupPool {
	pool := &groupPool{
		jobChan:  make(chan *groupJob, numWorkers*2),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}

	go func() {
		select {
		case <-shutdownChan:
			pool.stop()
		case <-pool.doneChan:
		}
	}()

	for i := 0; i < numWorkers; i++ {
		pool.wg.Add(1)
		go pool.groupWorker(s)
	}
	return pool
}

func (gp *groupPool) groupWorker(s *Searcher) {
	defer gp.wg.Done()

	// Jobs are drained after a stop so Submit never blocks
	for job := range gp.jobChan {
		select {
		case <-gp.stopChan:
			continue
		default:
		}
		if err := s.searchGroup(gp.stopChan, job); err != nil {
			gp.fail(err)
		}
	}
}

func (gp *groupPool) stop() {
	gp.stopOnce.Do(func() { close(gp.stopChan) })
}

// fail records err if it is the first and stops the pool
func (gp *groupPool) fail(err error) {
	gp.errMutex.Lock()
	if gp.err == nil {
		gp.err = err
	}
	gp.errMutex.Unlock()
	gp.stop()
}

// Submit queues a group
func (gp *groupPool) Submit(job *groupJob) {
	gp.jobChan <- job
}

// Wait closes the queue, waits for the workers and returns the first error
func (gp *groupPool) Wait() error {
	gp.closeMutex.Lock()
	if !gp.closed {
		close(gp.jobChan)
		gp.closed = true
	}
	gp.closeMutex.Unlock()

	gp.wg.Wait()
	close(gp.doneChan)

	gp.errMutex.Lock()
	defer gp.errMutex.Unlock()
	return gp.err
}

func (s *Searcher) searchParallel(shutdownChan <-chan struct{}, jobs []*groupJob) error {
	workers := s.opts.Workers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	DebugLog(DebugSearch, "dispatching %d groups to %d workers", len(jobs), workers)

	pool := s.newGroupPool(workers, shutdownChan)
	for _, job := range jobs {
		pool.Submit(job)
	}
	if err := pool.Wait(); err != nil {
		return err
	}
	return checkShutdown(shutdownChan)
}
