package wire

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// DomainQuery separates query fingerprints from any other hash over the
// same bytes. The version suffix allows a later algorithm change.
const DomainQuery = "cubeq/query/v1"

// namespaceQuery is the UUIDv5 namespace for query IDs.
var namespaceQuery = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/roach88/cubeq/query"))

// Fingerprint returns hex SHA-256 over DomainQuery, a 0x00 separator and the
// canonical encoding of q. Equal queries have equal fingerprints.
func Fingerprint(q Query) (string, error) {
	canonical, err := Canonical(q)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(DomainQuery, canonical), nil
}

// QueryID returns a name-based (version 5) UUID for q.
func QueryID(q Query) (uuid.UUID, error) {
	canonical, err := Canonical(q)
	if err != nil {
		return uuid.Nil, fmt.Errorf("query id: %w", err)
	}
	return uuid.NewSHA1(namespaceQuery, canonical), nil
}

func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
