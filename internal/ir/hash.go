package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainProcess = "procfg/process/v1"
	DomainUnit    = "procfg/unit/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ProcessHash computes the content hash of a finalized snapshot.
// The Hash field itself, declaration stamps and warnings do not contribute.
func ProcessHash(s *ProcessSnapshot) (string, error) {
	canonical, err := MarshalCanonical(s.canonicalMap())
	if err != nil {
		return "", fmt.Errorf("ProcessHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProcess, canonical), nil
}

// UnitHash computes the content hash of one unit. Untracked parameters do
// not contribute.
func UnitHash(u UnitSpec) (string, error) {
	canonical, err := MarshalCanonical(unitCanonical(u))
	if err != nil {
		return "", fmt.Errorf("UnitHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainUnit, canonical), nil
}

// MustUnitHash is like UnitHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustUnitHash(u UnitSpec) string {
	h, err := UnitHash(u)
	if err != nil {
		panic(err)
	}
	return h
}
