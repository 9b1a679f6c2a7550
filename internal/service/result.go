package service

import (
	"time"

	"license-service/internal/model"
)

// Result codes returned by validation and lifecycle operations. Callers
// branch on these rather than on error values.
const (
	CodeLicenseValid         = "LICENSE_VALID"
	CodeLicenseValidGrace    = "LICENSE_VALID_GRACE_PERIOD"
	CodeLicenseNotFound      = "LICENSE_NOT_FOUND"
	CodeLicenseInvalidStatus = "LICENSE_INVALID_STATUS"
	CodeDomainMismatch       = "DOMAIN_MISMATCH"
	CodeMaxTransfersReached  = "MAX_TRANSFERS_REACHED"
	CodeSameDomain           = "SAME_DOMAIN"
	CodeInvalidStatus        = "INVALID_STATUS"
	CodeInvalidDomainFormat  = "INVALID_DOMAIN_FORMAT"
	CodeReactivationFailed   = "REACTIVATION_FAILED"
	CodeTransferFailed       = "TRANSFER_FAILED"
	CodeValidationError      = "VALIDATION_ERROR"
	CodeOK                   = "OK"
)

// LicenseSummary is the wire-safe projection of a license returned to
// validation callers.
type LicenseSummary struct {
	LicenseKey     string              `json:"license_key"`
	Domain         string              `json:"domain"`
	ProductName    string              `json:"product_name,omitempty"`
	ProductVersion string              `json:"product_version,omitempty"`
	Type           model.LicenseType   `json:"type"`
	Status         model.LicenseStatus `json:"status"`
	IssuedAt       time.Time           `json:"issued_at"`
	ExpiresAt      *time.Time          `json:"expires_at"`
}

// ValidationResult is the structured outcome of a key validation attempt.
type ValidationResult struct {
	Valid              bool                `json:"valid"`
	Code               string              `json:"code"`
	Message            string              `json:"message,omitempty"`
	Status             model.LicenseStatus `json:"status,omitempty"`
	LicenseDomain      string              `json:"license_domain,omitempty"`
	AttemptedDomain    string              `json:"attempted_domain,omitempty"`
	InGracePeriod      bool                `json:"in_grace_period"`
	GraceDaysRemaining int                 `json:"grace_period_days_remaining"`
	License            *LicenseSummary     `json:"license,omitempty"`
}

// DomainCheckResult is the outcome of a key-less domain lookup.
type DomainCheckResult struct {
	Licensed           bool                `json:"licensed"`
	Valid              bool                `json:"valid"`
	Code               string              `json:"code"`
	Domain             string              `json:"domain"`
	Status             model.LicenseStatus `json:"status,omitempty"`
	InGracePeriod      bool                `json:"in_grace_period"`
	GraceDaysRemaining int                 `json:"grace_period_days_remaining"`
	License            *LicenseSummary     `json:"license,omitempty"`
}

// OpResult is the structured outcome of a lifecycle operation. Precondition
// failures carry a code and leave the license untouched; only OK results
// carry the mutated license.
type OpResult struct {
	OK      bool           `json:"ok"`
	Code    string         `json:"code"`
	Message string         `json:"message,omitempty"`
	License *model.License `json:"license,omitempty"`
}

func summarize(l *model.License) *LicenseSummary {
	return &LicenseSummary{
		LicenseKey:     l.LicenseKey,
		Domain:         l.Domain,
		ProductName:    l.ProductName,
		ProductVersion: l.ProductVersion,
		Type:           l.Type,
		Status:         l.Status,
		IssuedAt:       l.IssuedAt,
		ExpiresAt:      l.ExpiresAt,
	}
}

// maskKey hides all but the first group of a license key for public
// responses.
func maskKey(key string) string {
	if len(key) < 4 {
		return "****"
	}
	return key[:4] + "-****-****-****-****"
}
