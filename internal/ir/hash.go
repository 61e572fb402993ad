package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for payload hashes. The version suffix allows the
// payload layout to change without colliding with old hashes.
const (
	DomainJournal = "mcl/journal/v1"
	DomainTrace   = "mcl/trace/v1"
)

// hashWithDomain computes SHA256(domain || 0x00 || data) as hex.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PayloadHash hashes a journal payload over its canonical encoding.
func PayloadHash(payload Object) (string, error) {
	canonical, err := MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("PayloadHash: %w", err)
	}
	return hashWithDomain(DomainJournal, canonical), nil
}

// TraceHash hashes an already canonical trace document.
func TraceHash(canonical []byte) string {
	return hashWithDomain(DomainTrace, canonical)
}
