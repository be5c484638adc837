// Package hash normalizes and one-way hashes PII before it is persisted or
// transmitted. Raw emails and phone numbers never leave this package.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DefaultCountryCode is the calling code prepended to phone numbers entered
// in a local format (Brazil).
const DefaultCountryCode = "55"

// Hash lowercases and trims the value, then returns its SHA-256 hex digest.
// An empty input yields an empty output so "no data" stays distinguishable
// from the hash of the empty string.
func Hash(value string) string {
	if value == "" {
		return ""
	}
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// HashEmail hashes an email address. Inputs without an "@" are treated as
// invalid and produce an empty string.
func HashEmail(email string) string {
	if email == "" || !strings.Contains(email, "@") {
		return ""
	}
	return Hash(email)
}

// HashPhone hashes a phone number after stripping formatting and prepending
// the country calling code when absent, so the same number hashes identically
// regardless of how it was entered.
func HashPhone(phone, countryCode string) string {
	if phone == "" {
		return ""
	}
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}

	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	normalized := digits.String()
	if normalized == "" {
		return ""
	}
	if !strings.HasPrefix(normalized, countryCode) {
		normalized = countryCode + normalized
	}
	return Hash(normalized)
}
