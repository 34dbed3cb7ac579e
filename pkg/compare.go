package dupblock

// Equal compares two streams block by block and stops at the first differing
// fingerprint. Both streams are rewound afterwards, whatever the outcome, so
// they can be compared against further candidates from their cache.
//
// The streams must come from files of identical size: with the same length
// and the same block size both sides run out of blocks on the same step, so
// reaching the end of either side without a mismatch means the files are
// equal. Equality is decided on fingerprints, not on raw bytes; a hash
// collision within a block is indistinguishable from identical content.
func Equal(a, b *ContentStream) (bool, error) {
	defer a.Reset()
	defer b.Reset()

	for blockNum := 0; ; blockNum++ {
		fpA, okA, err := a.Next()
		if err != nil {
			return false, err
		}
		if !okA {
			return true, nil
		}

		fpB, okB, err := b.Next()
		if err != nil {
			return false, err
		}
		if !okB {
			return true, nil
		}

		if fpA != fpB {
			DebugLog(DebugCompare, "%s and %s differ at block %d", a.Path(), b.Path(), blockNum)
			return false, nil
		}
	}
}
