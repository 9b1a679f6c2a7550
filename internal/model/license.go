package model

import (
	"fmt"
	"time"

	"license-service/internal/domain"
)

// LicenseType determines the default validity duration of a license.
type LicenseType string

const (
	TypeTrial    LicenseType = "trial"
	TypeMonthly  LicenseType = "monthly"
	TypeYearly   LicenseType = "yearly"
	TypeLifetime LicenseType = "lifetime"
)

// LicenseStatus is the lifecycle state of a license. Trial is a type, not a
// status.
type LicenseStatus string

const (
	StatusActive    LicenseStatus = "active"
	StatusExpired   LicenseStatus = "expired"
	StatusSuspended LicenseStatus = "suspended"
	StatusCancelled LicenseStatus = "cancelled"
)

// GracePeriodDays is the window after expiration during which a license is
// still treated as valid when the caller opts in.
const GracePeriodDays = 7

// TrialDays is the validity of a trial license.
const TrialDays = 14

// License binds a license key to a domain and an owner account. The key is
// immutable once issued; the domain may change via transfer, bounded by
// MaxTransfers. Rows are never hard-deleted: cancellation is the soft retire.
type License struct {
	ID                uint          `gorm:"primaryKey" json:"id"`
	LicenseKey        string        `gorm:"type:varchar(32);uniqueIndex;not null" json:"license_key"`
	OwnerID           uint          `gorm:"index;not null" json:"owner_id"`
	Domain            string        `gorm:"type:varchar(253);index;not null" json:"domain"`
	ProductName       string        `gorm:"type:varchar(120)" json:"product_name"`
	ProductVersion    string        `gorm:"type:varchar(40)" json:"product_version"`
	Type              LicenseType   `gorm:"type:varchar(16);not null" json:"type"`
	Status            LicenseStatus `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	IssuedAt          time.Time     `json:"issued_at"`
	ExpiresAt         *time.Time    `json:"expires_at"` // nil iff Type == lifetime
	CheckCount        int64         `gorm:"not null;default:0" json:"check_count"`
	TransferCount     int           `gorm:"not null;default:0" json:"transfer_count"`
	MaxTransfers      int           `gorm:"not null;default:3" json:"max_transfers"`
	LastCheckedAt     *time.Time    `json:"last_checked_at,omitempty"`
	LastTransferredAt *time.Time    `json:"last_transferred_at,omitempty"`
	Notes             string        `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// CalculateExpiration returns the expiration for a license of the given type
// anchored at now. Lifetime licenses never expire. Unknown types fall back to
// the monthly rule rather than failing.
func CalculateExpiration(t LicenseType, now time.Time) *time.Time {
	var exp time.Time
	switch t {
	case TypeTrial:
		exp = now.AddDate(0, 0, TrialDays)
	case TypeMonthly:
		exp = now.AddDate(0, 1, 0)
	case TypeYearly:
		exp = now.AddDate(1, 0, 0)
	case TypeLifetime:
		return nil
	default:
		exp = now.AddDate(0, 1, 0)
	}
	return &exp
}

// IsValid reports whether the license validates at the given instant.
// Suspended and cancelled licenses are always invalid. An expired license
// inside the grace window is valid only when includeGracePeriod is set.
// As a side effect an overdue active license is flipped to expired in memory
// (the lazy transition); the caller persists the change. The flip is
// idempotent, so racing readers converge on the same state.
func (l *License) IsValid(includeGracePeriod bool, now time.Time) bool {
	switch l.Status {
	case StatusSuspended, StatusCancelled:
		return false
	}

	if l.ExpiresAt == nil || l.ExpiresAt.After(now) {
		return l.Status == StatusActive
	}

	if includeGracePeriod && l.InGracePeriod(now) {
		return true
	}

	if l.Status == StatusActive {
		l.Status = StatusExpired
	}
	return false
}

// InGracePeriod reports whether now falls inside the post-expiration grace
// window. Lifetime licenses are never in grace.
func (l *License) InGracePeriod(now time.Time) bool {
	if l.ExpiresAt == nil || l.ExpiresAt.After(now) {
		return false
	}
	return now.Sub(*l.ExpiresAt) <= GracePeriodDays*24*time.Hour
}

// GracePeriodDaysRemaining returns how many whole days of the grace window
// are left, or 0 when the license is not in the window.
func (l *License) GracePeriodDaysRemaining(now time.Time) int {
	if !l.InGracePeriod(now) {
		return 0
	}
	elapsed := int(now.Sub(*l.ExpiresAt).Hours() / 24)
	remaining := GracePeriodDays - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// VerifyDomain reports whether the presented domain matches the bound domain
// after canonicalization on both sides.
func (l *License) VerifyDomain(presented string) bool {
	return domain.Equal(l.Domain, presented)
}

// AppendNote adds a timestamped line to the license's free-text audit trail.
// Existing notes are never overwritten.
func (l *License) AppendNote(now time.Time, format string, args ...interface{}) {
	line := fmt.Sprintf("[%s] %s", now.UTC().Format(time.RFC3339), fmt.Sprintf(format, args...))
	if l.Notes == "" {
		l.Notes = line
		return
	}
	l.Notes = l.Notes + "\n" + line
}
