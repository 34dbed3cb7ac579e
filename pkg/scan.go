package dupblock

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// PathSet is an unordered set of file paths
type PathSet map[string]struct{}

// Add inserts path
func (ps PathSet) Add(path string) {
	ps[path] = struct{}{}
}

// Remove deletes path
func (ps PathSet) Remove(path string) {
	delete(ps, path)
}

// Contains reports whether path is in the set
func (ps PathSet) Contains(path string) bool {
	_, ok := ps[path]
	return ok
}

// Len returns the number of paths
func (ps PathSet) Len() int {
	return len(ps)
}

// Sorted returns the paths in lexical order
func (ps PathSet) Sorted() []string {
	paths := make([]string, 0, len(ps))
	for path := range ps {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// SizeGroups partitions candidate paths by file size
type SizeGroups map[uint64]PathSet

// Add records path under size
func (sg SizeGroups) Add(size uint64, path string) {
	paths, ok := sg[size]
	if !ok {
		paths = make(PathSet)
		sg[size] = paths
	}
	paths.Add(path)
}

// Candidates returns the total number of paths over all groups
func (sg SizeGroups) Candidates() int {
	total := 0
	for _, paths := range sg {
		total += paths.Len()
	}
	return total
}

// Sizes returns the group sizes in ascending order
func (sg SizeGroups) Sizes() []uint64 {
	sizes := make([]uint64, 0, len(sg))
	for size := range sg {
		sizes = append(sizes, size)
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })
	return sizes
}

// scanRoot is one validated target directory
type scanRoot struct {
	path string // as given, cleaned
	abs  string // cleaned absolute path
}

// DirectoryScanner enumerates candidate files and groups them by size
type DirectoryScanner struct {
	dirs        []string
	excludes    *ExcludeSet
	minFileSize uint64
}

// NewDirectoryScanner creates a scanner over dirs, skipping excluded directories
// and files smaller than minFileSize
func NewDirectoryScanner(dirs, excludes []string, minFileSize uint64) (*DirectoryScanner, error) {
	excludeSet, err := NewExcludeSet(excludes)
	if err != nil {
		return nil, err
	}
	return &DirectoryScanner{
		dirs:        dirs,
		excludes:    excludeSet,
		minFileSize: minFileSize,
	}, nil
}

// Excludes exposes the exclude set, e.g. to load an ignore file
func (ds *DirectoryScanner) Excludes() *ExcludeSet {
	return ds.excludes
}

// ValidatePattern checks a glob name pattern
func ValidatePattern(pattern string) error {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return fmt.Errorf("%w %q: %v", ErrBadPattern, pattern, err)
	}
	return nil
}

// Scan walks the target directories and returns candidate paths grouped by size.
// pattern is a glob matched against base names; an empty pattern matches everything.
// Every target directory is validated before any of them is walked.
func (ds *DirectoryScanner) Scan(shutdownChan <-chan struct{}, pattern string, recursive bool) (SizeGroups, error) {
	defer VerboseEnter()()

	if pattern == "" {
		pattern = DefaultPattern
	}
	if err := ValidatePattern(pattern); err != nil {
		return nil, err
	}
	if len(ds.dirs) == 0 {
		return nil, ErrMissingDirectory
	}

	roots, err := ds.resolveRoots()
	if err != nil {
		return nil, err
	}
	roots = dedupRoots(roots, recursive)

	groups := make(SizeGroups)
	for _, root := range roots {
		if ds.excludes.IsExcludedDir(root.abs) {
			VerboseLog(1, "Skipping excluded target directory %s", root.path)
			continue
		}
		DebugLog(DebugScan, "scanning %s (recursive=%t)", root.path, recursive)

		if recursive {
			err = ds.scanRecursive(shutdownChan, root, pattern, groups)
		} else {
			err = ds.scanTopLevel(shutdownChan, root, pattern, groups)
		}
		if err != nil {
			return nil, err
		}
	}

	VerboseLog(1, "Found %d candidate files in %d size groups", groups.Candidates(), len(groups))
	return groups, nil
}

// resolveRoots checks that every target exists and is a directory
func (ds *DirectoryScanner) resolveRoots() ([]scanRoot, error) {
	roots := make([]scanRoot, 0, len(ds.dirs))
	for _, dir := range ds.dirs {
		info, err := os.Stat(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("'%s' %w", dir, ErrNotDirectory)
			}
			return nil, fmt.Errorf("failed to stat '%s': %w", dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("'%s' %w", dir, ErrNotDirectory)
		}
		abs, err := absClean(dir)
		if err != nil {
			return nil, err
		}
		roots = append(roots, scanRoot{path: filepath.Clean(dir), abs: abs})
	}
	return roots, nil
}

// dedupRoots drops roots that resolve to the same directory as an earlier one.
// With nested set, roots inside another root are dropped as well.
func dedupRoots(roots []scanRoot, nested bool) []scanRoot {
	byAbs := make(map[string]scanRoot, len(roots))
	absPaths := make([]string, 0, len(roots))
	for _, root := range roots {
		if _, seen := byAbs[root.abs]; seen {
			DebugLog(DebugScan, "skipping repeated target directory %s", root.path)
			continue
		}
		byAbs[root.abs] = root
		absPaths = append(absPaths, root.abs)
	}
	if !nested {
		return keepRoots(byAbs, absPaths)
	}
	return keepRoots(byAbs, deduplicatePaths(absPaths))
}

func keepRoots(byAbs map[string]scanRoot, kept []string) []scanRoot {
	result := make([]scanRoot, 0, len(kept))
	for _, abs := range kept {
		result = append(result, byAbs[abs])
	}
	return result
}

func (ds *DirectoryScanner) scanRecursive(shutdownChan <-chan struct{}, root scanRoot, pattern string, groups SizeGroups) error {
	return filepath.WalkDir(root.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", path, err)
		}
		if err := checkShutdown(shutdownChan); err != nil {
			return err
		}

		rel, err := filepath.Rel(root.path, path)
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", path, err)
		}

		if d.IsDir() {
			if path == root.path {
				return nil
			}
			if ds.excludes.IsExcludedDir(filepath.Join(root.abs, rel)) {
				DebugLog(DebugScan, "skipping excluded directory %s", path)
				return filepath.SkipDir
			}
			if ds.excludes.ShouldIgnore(rel, true) {
				DebugLog(DebugScan, "skipping ignored directory %s", path)
				return filepath.SkipDir
			}
			return nil
		}

		if ds.excludes.ShouldIgnore(rel, false) {
			return nil
		}
		return ds.handleFile(path, d, pattern, groups)
	})
}

func (ds *DirectoryScanner) scanTopLevel(shutdownChan <-chan struct{}, root scanRoot, pattern string, groups SizeGroups) error {
	entries, err := os.ReadDir(root.path)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", root.path, err)
	}

	for _, entry := range entries {
		if err := checkShutdown(shutdownChan); err != nil {
			return err
		}
		if entry.IsDir() || ds.excludes.ShouldIgnore(entry.Name(), false) {
			continue
		}
		if err := ds.handleFile(filepath.Join(root.path, entry.Name()), entry, pattern, groups); err != nil {
			return err
		}
	}
	return nil
}

// handleFile adds a regular file whose name matches pattern to its size group
func (ds *DirectoryScanner) handleFile(path string, d fs.DirEntry, pattern string, groups SizeGroups) error {
	// Symlinks, devices, pipes and sockets are never candidates
	if !d.Type().IsRegular() {
		return nil
	}

	matched, err := filepath.Match(pattern, d.Name())
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrBadPattern, pattern, err)
	}
	if !matched {
		return nil
	}

	info, err := d.Info()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	size := uint64(info.Size())
	if size < ds.minFileSize {
		return nil
	}

	groups.Add(size, path)
	return nil
}
