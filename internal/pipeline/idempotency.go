package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// RunKey derives the deterministic idempotency key for a job
// invocation. Payload entries are canonicalized by sorted key so maps
// built in any order hash identically.
func RunKey(jobName string, payload map[string]string) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(jobName)
	for _, k := range keys {
		fmt.Fprintf(&sb, "|%s=%s", k, payload[k])
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
