package dupblock

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ParseHumanSize parses human-readable size strings (e.g., "2M", "512k", "1G").
// The result must be positive.
func ParseHumanSize(sizeStr string) (int, error) {
	size, err := parseHumanSize(sizeStr)
	if err != nil {
		return 0, err
	}
	if size <= 0 {
		return 0, fmt.Errorf("size must be positive: %s", sizeStr)
	}
	return size, nil
}

// ParseHumanSizeAllowZero is ParseHumanSize but accepts "0"
func ParseHumanSizeAllowZero(sizeStr string) (int, error) {
	size, err := parseHumanSize(sizeStr)
	if err != nil {
		return 0, err
	}
	if size < 0 {
		return 0, fmt.Errorf("size must not be negative: %s", sizeStr)
	}
	return size, nil
}

func parseHumanSize(sizeStr string) (int, error) {
	if strings.TrimSpace(sizeStr) == "" {
		return 0, fmt.Errorf("empty size string")
	}

	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))

	// Extract numeric part and suffix
	var numPart string
	var suffix string
	for i, char := range sizeStr {
		if char >= '0' && char <= '9' || char == '.' {
			numPart += string(char)
		} else {
			suffix = strings.TrimSpace(sizeStr[i:])
			break
		}
	}

	if numPart == "" {
		return 0, fmt.Errorf("no numeric part in size string: %s", sizeStr)
	}

	num, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric part in size string %s: %w", sizeStr, err)
	}

	var multiplier int64 = 1
	switch suffix {
	case "", "B":
		multiplier = 1
	case "K", "KB", "KIB":
		multiplier = 1024
	case "M", "MB", "MIB":
		multiplier = 1024 * 1024
	case "G", "GB", "GIB":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown size suffix: %s", suffix)
	}

	value := num * float64(multiplier)
	if value > float64(int64(^uint(0)>>1)) {
		return 0, fmt.Errorf("size too large: %s", sizeStr)
	}

	return int(value), nil
}

// absClean returns the cleaned absolute form of path
func absClean(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path of %s: %w", path, err)
	}
	return filepath.Clean(abs), nil
}

// deduplicatePaths sorts paths and removes any that are subdirectories of others
// Example: ["/home/user/docs", "/home/user/docs/old", "/home/user/photos"]
//
//	-> ["/home/user/docs", "/home/user/photos"]
//
// A nested root would otherwise be walked twice during a recursive scan.
func deduplicatePaths(paths []string) []string {
	if len(paths) <= 1 {
		return paths
	}

	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	var deduplicated []string
	for _, path := range sorted {
		isRedundant := false
		for _, kept := range deduplicated {
			if path == kept || isPathUnder(path, kept) {
				isRedundant = true
				break
			}
		}
		if !isRedundant {
			deduplicated = append(deduplicated, path)
		}
	}

	return deduplicated
}

// isPathUnder checks if childPath is under parentPath
func isPathUnder(childPath, parentPath string) bool {
	childPath = filepath.Clean(childPath)
	parentPath = filepath.Clean(parentPath)

	if childPath == parentPath {
		return false
	}

	parentWithSep := parentPath
	if !strings.HasSuffix(parentWithSep, string(filepath.Separator)) {
		parentWithSep += string(filepath.Separator)
	}
	return strings.HasPrefix(childPath, parentWithSep)
}
