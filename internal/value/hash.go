package value

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests.
// The version suffix leaves room for an algorithm migration.
const (
	DomainRow  = "minihib/row/v1"
	DomainPlan = "minihib/plan/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest hashes already-canonical bytes under the given domain.
func Digest(domain string, canonical []byte) string {
	return hashWithDomain(domain, canonical)
}

// RowDigest returns the content digest of a row.
// Two rows with equal values produce the same digest regardless of map order.
func RowDigest(row Object) (string, error) {
	canonical, err := MarshalCanonical(row)
	if err != nil {
		return "", fmt.Errorf("RowDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRow, canonical), nil
}
