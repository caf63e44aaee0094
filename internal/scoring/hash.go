package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentHash returns the sha256 hex digest of the normalized source
// text. Normalization collapses whitespace runs so cosmetic reflows of
// the same document hash identically and hit the same cached score.
func ContentHash(text string) string {
	norm := strings.Join(strings.Fields(text), " ")
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}
