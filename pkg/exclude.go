package dupblock

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ExcludeSet decides which directories and files a scan skips.
// Excluded directories are compared by cleaned absolute path; ignore patterns
// are Go regular expressions matched against slash-separated paths relative
// to the scan root (directories carry a trailing slash).
type ExcludeSet struct {
	dirs     map[string]struct{}
	patterns []*regexp.Regexp
}

// NewExcludeSet creates an exclude set from a list of directories
func NewExcludeSet(dirs []string) (*ExcludeSet, error) {
	es := &ExcludeSet{
		dirs:     make(map[string]struct{}, len(dirs)),
		patterns: make([]*regexp.Regexp, 0),
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		abs, err := absClean(dir)
		if err != nil {
			return nil, err
		}
		es.dirs[abs] = struct{}{}
	}
	return es, nil
}

// LoadIgnoreFile loads ignore patterns from a file, one regular expression per line.
// Empty lines and lines starting with # are skipped.
func (es *ExcludeSet) LoadIgnoreFile(ignorePath string) error {
	file, err := os.Open(ignorePath)
	if err != nil {
		return fmt.Errorf("failed to open ignore file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		pattern, err := regexp.Compile(line)
		if err != nil {
			return fmt.Errorf("invalid regex pattern at line %d: %s - %w", lineNum, line, err)
		}
		es.patterns = append(es.patterns, pattern)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading ignore file: %w", err)
	}

	VerboseLog(2, "Loaded %d ignore patterns from %s", len(es.patterns), ignorePath)
	return nil
}

// AddPattern adds a new ignore pattern
func (es *ExcludeSet) AddPattern(patternStr string) error {
	pattern, err := regexp.Compile(patternStr)
	if err != nil {
		return fmt.Errorf("invalid regex pattern: %s - %w", patternStr, err)
	}
	es.patterns = append(es.patterns, pattern)
	return nil
}

// IsExcludedDir reports whether the cleaned absolute directory path was excluded
func (es *ExcludeSet) IsExcludedDir(absPath string) bool {
	_, excluded := es.dirs[filepath.Clean(absPath)]
	return excluded
}

// ShouldIgnore checks a root-relative path against the ignore patterns
func (es *ExcludeSet) ShouldIgnore(relativePath string, isDir bool) bool {
	if len(es.patterns) == 0 {
		return false
	}

	normalisedPath := filepath.ToSlash(relativePath)
	if isDir && !strings.HasSuffix(normalisedPath, "/") {
		normalisedPath += "/"
	}

	for _, pattern := range es.patterns {
		if pattern.MatchString(normalisedPath) {
			return true
		}
	}
	return false
}

// Dirs returns the number of excluded directories
func (es *ExcludeSet) Dirs() int {
	return len(es.dirs)
}

// HasPatterns returns true if any ignore patterns are loaded
func (es *ExcludeSet) HasPatterns() bool {
	return len(es.patterns) > 0
}
