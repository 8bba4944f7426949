package value

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests.
// Version suffix enables future algorithm migration.
const (
	DomainRecord = "mirror/record/v1"
	DomainState  = "mirror/state/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest returns the hex SHA-256 of the canonical form of v under domain.
// Equal values produce equal digests regardless of key insertion order.
func Digest(domain string, v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("digest: failed to marshal: %w", err)
	}
	return hashWithDomain(domain, canonical), nil
}

// RecordDigest is Digest under DomainRecord.
func RecordDigest(rec Object) (string, error) {
	return Digest(DomainRecord, rec)
}
