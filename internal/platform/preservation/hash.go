// Package preservation computes deterministic fingerprints over the
// life-critical fields of extracted clinical records. The fingerprints prove
// that no field was silently altered between extraction and the final
// summary: a record's digest is recomputed downstream and compared against
// the digest stamped at extraction time.
//
// Two digest widths exist on purpose. Section-level records carry a 16-hex
// truncated digest computed over their flat field map; canonical resources
// carry a full 64-hex digest computed over a fixed subset of top-level
// critical fields rendered as canonical JSON. Downstream systems match on
// both widths, so neither scheme may change.
package preservation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// RecordDigestLen is the hex length of a section-level record digest.
const RecordDigestLen = 16

// RecordDigest fingerprints a record's field map. Fields are rendered as
// "key:value", sorted lexicographically, joined with "|", and hashed with
// SHA-256; the first 16 hex characters are returned. The caller must pass
// only content fields, never the digest itself or bookkeeping flags.
func RecordDigest(fields map[string]string) string {
	parts := make([]string, 0, len(fields))
	for k, v := range fields {
		parts = append(parts, k+":"+v)
	}
	sort.Strings(parts)

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:RecordDigestLen]
}

// ResourceDigest fingerprints the critical subset of a canonical resource.
// The fields are serialized as canonical JSON (lexicographically sorted keys,
// no extraneous whitespace) and hashed with SHA-256, returning the full
// 64-hex digest.
func ResourceDigest(critical map[string]string) string {
	// encoding/json sorts map keys and emits no extra whitespace, which is
	// exactly the canonical form required here.
	data, err := json.Marshal(critical)
	if err != nil {
		// A map[string]string cannot fail to marshal; keep the digest total
		// anyway rather than panicking in a hashing primitive.
		data = []byte("{}")
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
