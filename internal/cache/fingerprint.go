package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Fingerprint is the deterministic cache key for one rendered variant of
// one page. SourceID partitions the disk tier; Hash names the file.
type Fingerprint struct {
	SourceID string
	Hash     string
}

// NewFingerprint derives the cache key from a page's identity and its
// rendering variant ( e.g. "thumb-200-q85"). Same inputs always produce
// the same key; a collision between distinct inputs is treated as the
// two inputs being equivalent.
func NewFingerprint(sourceID string, pageIndex int, variant string) Fingerprint {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%d\x00%s", sourceID, pageIndex, variant)))
	return Fingerprint{SourceID: sourceID, Hash: hex.EncodeToString(sum[:])}
}

func (f Fingerprint) key() string { return f.SourceID + "/" + f.Hash }
