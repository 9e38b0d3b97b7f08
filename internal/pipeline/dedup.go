package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// ContentHash is the hex SHA-256 of raw fetched bytes.
func ContentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// hashSet is the run's view of known content hashes: the ledger's plus every
// hash claimed by a candidate earlier in the run.
type hashSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newHashSet(known map[string]struct{}) *hashSet {
	if known == nil {
		known = make(map[string]struct{})
	}
	return &hashSet{seen: known}
}

// claim records sha and reports whether it was new.
func (h *hashSet) claim(sha string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.seen[sha]; ok {
		return false
	}
	h.seen[sha] = struct{}{}
	return true
}
