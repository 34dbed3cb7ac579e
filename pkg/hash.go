package dupblock

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

// HashStrategy turns a byte buffer into a fingerprint string.
// Implementations must be pure: the same input always yields the same output
// and no state is carried between calls, so one strategy can be shared by
// every stream of a run, including streams processed on different goroutines.
type HashStrategy interface {
	Name() string
	Hash(data []byte) string
}

// HashAlgorithm represents a hash algorithm configuration
type HashAlgorithm struct {
	Name    string
	TypeID  uint16
	Size    int
	NewFunc func() hash.Hash
	Render  func(sum []byte) string
}

// Hash renders the digest of data. A fresh hasher is created for every call.
func (ha *HashAlgorithm) Hash(data []byte) string {
	hasher := ha.NewFunc()
	hasher.Write(data)
	return ha.Render(hasher.Sum(nil))
}

// String returns the algorithm name
func (ha *HashAlgorithm) String() string {
	return ha.Name
}

// namedAlgorithm adapts the Name field to the HashStrategy interface
type namedAlgorithm struct {
	*HashAlgorithm
}

func (na namedAlgorithm) Name() string {
	return na.HashAlgorithm.Name
}

// Strategy returns the algorithm as a HashStrategy
func (ha *HashAlgorithm) Strategy() HashStrategy {
	return namedAlgorithm{ha}
}

// renderDecimal renders a big-endian 32-bit checksum as an unsigned decimal
func renderDecimal(sum []byte) string {
	return strconv.FormatUint(uint64(binary.BigEndian.Uint32(sum)), 10)
}

// GetHashAlgorithm returns the hash algorithm configuration for the given name
func GetHashAlgorithm(name string) (*HashAlgorithm, error) {
	typeID, ok := HashTypeFromName(name)
	if !ok {
		return nil, fmt.Errorf("unsupported hash algorithm: %s", name)
	}
	return GetHashAlgorithmByType(typeID)
}

// GetHashAlgorithmByType returns the hash algorithm configuration for the given type ID
func GetHashAlgorithmByType(typeID uint16) (*HashAlgorithm, error) {
	switch typeID {
	case HashTypeCRC32:
		return &HashAlgorithm{
			Name:    "crc32",
			TypeID:  HashTypeCRC32,
			Size:    HashSizeCRC32,
			NewFunc: func() hash.Hash { return crc32.NewIEEE() },
			Render:  renderDecimal,
		}, nil
	case HashTypeMD5:
		return &HashAlgorithm{
			Name:    "md5",
			TypeID:  HashTypeMD5,
			Size:    HashSizeMD5,
			NewFunc: func() hash.Hash { return md5.New() },
			Render:  hex.EncodeToString,
		}, nil
	case HashTypeSHA1:
		return &HashAlgorithm{
			Name:    "sha1",
			TypeID:  HashTypeSHA1,
			Size:    HashSizeSHA1,
			NewFunc: func() hash.Hash { return sha1.New() },
			Render:  hex.EncodeToString,
		}, nil
	case HashTypeSHA256:
		return &HashAlgorithm{
			Name:    "sha256",
			TypeID:  HashTypeSHA256,
			Size:    HashSizeSHA256,
			NewFunc: func() hash.Hash { return sha256.New() },
			Render:  hex.EncodeToString,
		}, nil
	case HashTypeSHA512:
		return &HashAlgorithm{
			Name:    "sha512",
			TypeID:  HashTypeSHA512,
			Size:    HashSizeSHA512,
			NewFunc: func() hash.Hash { return sha512.New() },
			Render:  hex.EncodeToString,
		}, nil
	case HashTypeXXHash:
		return &HashAlgorithm{
			Name:    "xxhash",
			TypeID:  HashTypeXXHash,
			Size:    HashSizeXXHash,
			NewFunc: func() hash.Hash { return xxhash.New() },
			Render:  hex.EncodeToString,
		}, nil
	case HashTypeBLAKE3:
		return &HashAlgorithm{
			Name:    "blake3",
			TypeID:  HashTypeBLAKE3,
			Size:    HashSizeBLAKE3,
			NewFunc: func() hash.Hash { return blake3.New() },
			Render:  hex.EncodeToString,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported hash type ID: %d", typeID)
	}
}

// GetHashStrategy resolves an algorithm name straight to a HashStrategy
func GetHashStrategy(name string) (HashStrategy, error) {
	algorithm, err := GetHashAlgorithm(name)
	if err != nil {
		return nil, err
	}
	return algorithm.Strategy(), nil
}

// ValidateHashAlgorithm validates that a hash algorithm is supported
func ValidateHashAlgorithm(algorithm string) error {
	if _, ok := HashTypeFromName(algorithm); !ok {
		return fmt.Errorf("unsupported hash algorithm: %s (supported: %s)",
			algorithm, strings.Join(SupportedHashAlgorithms(), ", "))
	}
	return nil
}
