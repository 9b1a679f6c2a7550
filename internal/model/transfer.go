package model

import "time"

// LicenseTransfer records one successful domain transfer. Entries are created
// exactly once and never mutated afterward, except to record admin approval
// when the transfer was created pending.
type LicenseTransfer struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	LicenseID     uint       `gorm:"index;not null" json:"license_id"`
	OldDomain     string     `gorm:"type:varchar(253);not null" json:"old_domain"`
	NewDomain     string     `gorm:"type:varchar(253);not null" json:"new_domain"`
	InitiatedBy   uint       `gorm:"not null" json:"initiated_by"`
	Reason        string     `gorm:"type:text" json:"reason,omitempty"`
	SourceIP      string     `gorm:"type:varchar(45)" json:"source_ip,omitempty"`
	AdminApproved bool       `gorm:"not null;default:false" json:"admin_approved"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// TableName matches the persisted schema naming.
func (LicenseTransfer) TableName() string {
	return "license_transfers"
}
