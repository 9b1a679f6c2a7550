package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var anchor = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestCalculateExpiration(t *testing.T) {
	testCases := []struct {
		name     string
		licType  LicenseType
		expected *time.Time
	}{
		{name: "trial is 14 days", licType: TypeTrial, expected: timePtr(anchor.AddDate(0, 0, 14))},
		{name: "monthly is one month", licType: TypeMonthly, expected: timePtr(anchor.AddDate(0, 1, 0))},
		{name: "yearly is one year", licType: TypeYearly, expected: timePtr(anchor.AddDate(1, 0, 0))},
		{name: "lifetime never expires", licType: TypeLifetime, expected: nil},
		{name: "unknown type falls back to monthly", licType: LicenseType("bogus"), expected: timePtr(anchor.AddDate(0, 1, 0))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateExpiration(tc.licType, anchor)
			if tc.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, got.Equal(*tc.expected), "expected %v, got %v", tc.expected, got)
		})
	}
}

func TestIsValid(t *testing.T) {
	testCases := []struct {
		name         string
		license      License
		includeGrace bool
		expected     bool
		finalStatus  LicenseStatus
	}{
		{
			name:         "active with future expiry",
			license:      License{Status: StatusActive, ExpiresAt: timePtr(anchor.AddDate(0, 1, 0))},
			includeGrace: true,
			expected:     true,
			finalStatus:  StatusActive,
		},
		{
			name:         "active lifetime",
			license:      License{Status: StatusActive, Type: TypeLifetime},
			includeGrace: false,
			expected:     true,
			finalStatus:  StatusActive,
		},
		{
			name:         "suspended is always invalid",
			license:      License{Status: StatusSuspended, ExpiresAt: timePtr(anchor.AddDate(0, 1, 0))},
			includeGrace: true,
			expected:     false,
			finalStatus:  StatusSuspended,
		},
		{
			name:         "cancelled is always invalid",
			license:      License{Status: StatusCancelled},
			includeGrace: true,
			expected:     false,
			finalStatus:  StatusCancelled,
		},
		{
			name:         "expired inside grace with opt-in",
			license:      License{Status: StatusActive, ExpiresAt: timePtr(anchor.AddDate(0, 0, -3))},
			includeGrace: true,
			expected:     true,
			finalStatus:  StatusActive,
		},
		{
			name:         "expired inside grace without opt-in flips status",
			license:      License{Status: StatusActive, ExpiresAt: timePtr(anchor.AddDate(0, 0, -3))},
			includeGrace: false,
			expected:     false,
			finalStatus:  StatusExpired,
		},
		{
			name:         "expired beyond grace flips status",
			license:      License{Status: StatusActive, ExpiresAt: timePtr(anchor.AddDate(0, 0, -10))},
			includeGrace: true,
			expected:     false,
			finalStatus:  StatusExpired,
		},
		{
			name:         "already expired status stays expired",
			license:      License{Status: StatusExpired, ExpiresAt: timePtr(anchor.AddDate(0, 0, -10))},
			includeGrace: true,
			expected:     false,
			finalStatus:  StatusExpired,
		},
		{
			name:         "expired status inside grace validates with opt-in",
			license:      License{Status: StatusExpired, ExpiresAt: timePtr(anchor.AddDate(0, 0, -2))},
			includeGrace: true,
			expected:     true,
			finalStatus:  StatusExpired,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			lic := tc.license
			got := lic.IsValid(tc.includeGrace, anchor)
			assert.Equal(t, tc.expected, got)
			assert.Equal(t, tc.finalStatus, lic.Status)
		})
	}
}

func TestGracePeriod(t *testing.T) {
	t.Run("three days past expiry leaves four grace days", func(t *testing.T) {
		lic := License{
			Type:      TypeMonthly,
			Status:    StatusActive,
			ExpiresAt: timePtr(anchor.Add(-3 * 24 * time.Hour)),
		}
		assert.True(t, lic.IsValid(true, anchor))
		assert.Equal(t, 4, lic.GracePeriodDaysRemaining(anchor))

		fresh := License{
			Type:      TypeMonthly,
			Status:    StatusActive,
			ExpiresAt: timePtr(anchor.Add(-3 * 24 * time.Hour)),
		}
		assert.False(t, fresh.IsValid(false, anchor))
	})

	t.Run("not in grace before expiry", func(t *testing.T) {
		lic := License{Status: StatusActive, ExpiresAt: timePtr(anchor.AddDate(0, 0, 5))}
		assert.False(t, lic.InGracePeriod(anchor))
		assert.Equal(t, 0, lic.GracePeriodDaysRemaining(anchor))
	})

	t.Run("not in grace after window", func(t *testing.T) {
		lic := License{Status: StatusActive, ExpiresAt: timePtr(anchor.AddDate(0, 0, -8))}
		assert.False(t, lic.InGracePeriod(anchor))
		assert.Equal(t, 0, lic.GracePeriodDaysRemaining(anchor))
	})

	t.Run("lifetime never in grace", func(t *testing.T) {
		lic := License{Status: StatusActive, Type: TypeLifetime}
		assert.False(t, lic.InGracePeriod(anchor))
	})

	t.Run("boundary of window still in grace", func(t *testing.T) {
		lic := License{Status: StatusActive, ExpiresAt: timePtr(anchor.Add(-GracePeriodDays * 24 * time.Hour))}
		assert.True(t, lic.InGracePeriod(anchor))
		assert.Equal(t, 0, lic.GracePeriodDaysRemaining(anchor))
	})
}

func TestVerifyDomain(t *testing.T) {
	lic := License{Domain: "example.com"}

	assert.True(t, lic.VerifyDomain("example.com"))
	assert.True(t, lic.VerifyDomain("https://www.example.com/"))
	assert.True(t, lic.VerifyDomain("EXAMPLE.COM:443"))
	assert.False(t, lic.VerifyDomain("other.com"))
	assert.False(t, lic.VerifyDomain("shop.example.com"))
	assert.False(t, lic.VerifyDomain(""))
}

func TestAppendNote(t *testing.T) {
	lic := License{}
	lic.AppendNote(anchor, "issued to owner %d", 7)
	require.Contains(t, lic.Notes, "issued to owner 7")

	first := lic.Notes
	lic.AppendNote(anchor, "renewed")
	assert.Contains(t, lic.Notes, first, "existing notes are never overwritten")
	assert.Contains(t, lic.Notes, "renewed")
	assert.Equal(t, 2, len(splitLines(lic.Notes)))
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	return append(lines, s[start:])
}
