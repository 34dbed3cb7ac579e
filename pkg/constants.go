package dupblock

import (
	"strings"
)

// Hash type constants
const (
	HashTypeCRC32  uint16 = 1 // CRC-32 IEEE (4 bytes, rendered as decimal)
	HashTypeMD5    uint16 = 2 // MD5 (16 bytes)
	HashTypeSHA1   uint16 = 3 // SHA-1 (20 bytes)
	HashTypeSHA256 uint16 = 4 // SHA-256 (32 bytes)
	HashTypeSHA512 uint16 = 5 // SHA-512 (64 bytes)
	HashTypeXXHash uint16 = 6 // xxHash64 (8 bytes)
	HashTypeBLAKE3 uint16 = 7 // BLAKE3-256 (32 bytes)
)

// Hash size constants
const (
	HashSizeCRC32  = 4  // CRC-32 checksum size in bytes
	HashSizeMD5    = 16 // MD5 digest size in bytes
	HashSizeSHA1   = 20 // SHA-1 hash size in bytes
	HashSizeSHA256 = 32 // SHA-256 hash size in bytes
	HashSizeSHA512 = 64 // SHA-512 hash size in bytes
	HashSizeXXHash = 8  // xxHash64 size in bytes
	HashSizeBLAKE3 = 32 // BLAKE3 output size in bytes
)

// Defaults shared by the library and the command line
const (
	DefaultHashAlgorithm = "crc32"
	DefaultPattern       = "*"
	DefaultMinFileSize   = 1
	DefaultOutputFormat  = "human"
	DefaultWorkers       = 1
	MaxWorkers           = 64
)

// Debug flag names understood by DebugLog
const (
	DebugScan    = "scan"
	DebugStream  = "stream"
	DebugCompare = "compare"
	DebugIndex   = "index"
	DebugSearch  = "search"
)

// hashTypeNames is ordered by type ID
var hashTypeNames = []string{"", "crc32", "md5", "sha1", "sha256", "sha512", "xxhash", "blake3"}

// HashTypeName returns the human-readable name for a hash type
func HashTypeName(hashType uint16) string {
	if hashType == 0 || int(hashType) >= len(hashTypeNames) {
		return "unknown"
	}
	return hashTypeNames[hashType]
}

// HashTypeFromName returns the hash type constant from a name (case-insensitive).
// The numeric selectors "0" and "1" map to crc32 and md5 respectively.
func HashTypeFromName(name string) (uint16, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "crc32", "0":
		return HashTypeCRC32, true
	case "md5", "1":
		return HashTypeMD5, true
	case "sha1":
		return HashTypeSHA1, true
	case "sha256":
		return HashTypeSHA256, true
	case "sha512":
		return HashTypeSHA512, true
	case "xxhash", "xxh64":
		return HashTypeXXHash, true
	case "blake3":
		return HashTypeBLAKE3, true
	default:
		return 0, false
	}
}

// SupportedHashAlgorithms lists the canonical algorithm names
func SupportedHashAlgorithms() []string {
	return append([]string(nil), hashTypeNames[1:]...)
}
