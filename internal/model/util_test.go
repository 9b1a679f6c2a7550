package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateLicenseKey(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key := GenerateLicenseKey()
		require.Len(t, key, 24)
		assert.True(t, ValidLicenseKeyFormat(key), "generated key %q must match the wire format", key)
		seen[key] = true
	}
	// 100 draws from a 36^20 space colliding would mean a broken generator.
	assert.Len(t, seen, 100)
}

func TestValidLicenseKeyFormat(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		valid bool
	}{
		{name: "well formed", key: "AB12-CD34-EF56-GH78-IJ90", valid: true},
		{name: "all letters", key: "ABCD-EFGH-IJKL-MNOP-QRST", valid: true},
		{name: "too short", key: "AB12-CD34-EF56-GH78", valid: false},
		{name: "too long", key: "AB12-CD34-EF56-GH78-IJ90-KL12", valid: false},
		{name: "lowercase rejected", key: "ab12-cd34-ef56-gh78-ij90", valid: false},
		{name: "wrong separator", key: "AB12_CD34_EF56_GH78_IJ90", valid: false},
		{name: "misplaced hyphen", key: "AB1-2CD34-EF56-GH78-IJ90", valid: false},
		{name: "empty", key: "", valid: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.valid, ValidLicenseKeyFormat(tc.key))
		})
	}
}
