package model

import "time"

// Check types recorded on audit log entries.
const (
	CheckTypeAPI       = "api"
	CheckTypeDomain    = "domain-check"
	CheckTypeScheduled = "scheduled"
)

// LicenseCheckLog is one append-only audit record per validation or domain
// check attempt. LicenseID is nil when the presented key did not resolve to
// any license; the raw key string is kept regardless, for forensics. Rows
// are never updated or deleted by normal operation.
type LicenseCheckLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	LicenseID  *uint     `gorm:"index" json:"license_id,omitempty"`
	LicenseKey string    `gorm:"type:varchar(64)" json:"license_key"`
	Domain     string    `gorm:"type:varchar(253)" json:"domain"`
	IP         string    `gorm:"type:varchar(45)" json:"ip"`
	Valid      bool      `gorm:"not null" json:"valid"`
	CheckType  string    `gorm:"type:varchar(16);not null;index" json:"check_type"`
	Details    string    `gorm:"type:text" json:"details,omitempty"` // decision payload snapshot, JSON
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// TableName keeps the table name aligned with the check-log wire naming.
func (LicenseCheckLog) TableName() string {
	return "license_check_logs"
}
