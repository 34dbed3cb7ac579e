// Package dupblock finds groups of byte-identical files across directory
// trees while hashing as little of each file as possible.
//
// # Core API
//
// The main entry point is Searcher, which drives the whole pipeline:
//
//	searcher, err := dupblock.NewSearcher(dupblock.SearchOptions{
//		BlockSize: 4096,
//		Algorithm: "md5",
//	})
//	groups, err := searcher.Search(nil, []string{"/data"}, nil, "*", true)
//	for _, group := range groups {
//		fmt.Println(group.Files)
//	}
//
// # How it works
//
// DirectoryScanner partitions candidate files by size; files of different
// size are never compared. Within a size group every file gets one
// ContentStream, a lazily opened, memoized sequence of block fingerprints.
// Equal compares two streams block by block and stops at the first
// mismatch, then rewinds both streams so later comparisons replay cached
// fingerprints instead of re-reading the file. Confirmed pairs are recorded
// in a DuplicateIndex under a whole-content fingerprint, and the index is
// flattened into DuplicateGroups once every size group has been processed.
//
// Equality is defined over block fingerprints, not raw bytes: a collision of
// the chosen hash algorithm inside one block is indistinguishable from equal
// content. Choose md5, sha256 or blake3 over crc32 when that matters.
//
// # Configuration
//
// Enable debug output:
//
//	dupblock.SetDebugFlags("scan,compare")
//	dupblock.SetVerboseLevel(2)
//
// Settings can also be read from an ini file with LoadConfig and turned into
// a Searcher with NewSearcherFromConfig.
package dupblock
