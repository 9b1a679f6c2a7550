package model

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// keyAlphabet is the uppercase alphanumeric alphabet license keys are drawn
// from.
const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	keyGroups    = 5
	keyGroupSize = 4
)

// GenerateLicenseKey returns a fresh key in the XXXX-XXXX-XXXX-XXXX-XXXX
// format. Uniqueness against existing licenses is the caller's
// responsibility.
func GenerateLicenseKey() string {
	b := make([]byte, keyGroups*keyGroupSize)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("license key generation: %v", err))
	}

	groups := make([]string, keyGroups)
	for g := 0; g < keyGroups; g++ {
		chars := make([]byte, keyGroupSize)
		for i := 0; i < keyGroupSize; i++ {
			chars[i] = keyAlphabet[int(b[g*keyGroupSize+i])%len(keyAlphabet)]
		}
		groups[g] = string(chars)
	}
	return strings.Join(groups, "-")
}

// ValidLicenseKeyFormat reports whether s looks like an issued key: five
// uppercase alphanumeric groups of four, hyphen-joined.
func ValidLicenseKeyFormat(s string) bool {
	if len(s) != keyGroups*keyGroupSize+keyGroups-1 {
		return false
	}
	for i, r := range s {
		if (i+1)%(keyGroupSize+1) == 0 {
			if r != '-' {
				return false
			}
			continue
		}
		if !strings.ContainsRune(keyAlphabet, r) {
			return false
		}
	}
	return true
}
