package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/causalkit/intervene/pkg/core/mec"
)

// SubsetKey generates a content-addressed key for a node subset.
// The subset is canonicalized (sorted, deduplicated) first, so logically
// equal subsets produce the same key.
// The key format is: prefix:hash(canonical subset)
func SubsetKey(prefix string, subset []int) string {
	return hashKey(prefix, canonical(subset))
}

// BatchKey generates a content-addressed key for a batch of interventions.
// Each intervention is canonicalized and the batch is sorted, matching the
// objective's invariance to intervention and batch order.
func BatchKey(prefix string, batch mec.Batch) string {
	parts := make([][]int, len(batch))
	for i, iv := range batch {
		parts[i] = canonical(iv)
	}
	sort.Slice(parts, func(i, j int) bool { return lessInts(parts[i], parts[j]) })
	return hashKey(prefix, parts)
}

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...interface{}) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	// Use full SHA-256 hash (64 hex chars / 256 bits) to prevent collisions
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// keyType extracts the prefix of a key for hook labeling.
func keyType(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

// canonical returns a sorted, deduplicated copy of a node subset.
// The result is never nil, so empty and nil subsets hash identically.
func canonical(subset []int) []int {
	out := make([]int, 0, len(subset))
	out = append(out, subset...)
	sort.Ints(out)
	dedup := out[:0]
	for i, v := range out {
		if i == 0 || v != out[i-1] {
			dedup = append(dedup, v)
		}
	}
	return dedup
}

func lessInts(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
