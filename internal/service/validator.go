package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"license-service/internal/domain"
	"license-service/internal/model"
)

// likeEscaper neutralizes LIKE metacharacters so a queried domain matches
// stored domains literally. Normalization keeps % and _ intact, so without
// escaping a public check for "%.com" would match any stored domain
// containing ".com".
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Validate checks a presented license key against the requesting domain.
// Steps short-circuit on the first failure: key lookup, status/grace check,
// domain binding check. Every invocation, successful or not, produces
// exactly one audit log entry.
func (s *Service) Validate(ctx context.Context, rawKey, rawDomain, ip, checkType string) ValidationResult {
	now := s.now()
	if checkType == "" {
		checkType = model.CheckTypeAPI
	}
	key := strings.ToUpper(strings.TrimSpace(rawKey))

	var lic model.License
	err := s.db.WithContext(ctx).Where("license_key = ?", key).First(&lic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		res := ValidationResult{Code: CodeLicenseNotFound, Message: "License not found"}
		s.logCheck(ctx, nil, rawKey, rawDomain, ip, checkType, false, res)
		return res
	}
	if err != nil {
		s.log.Error("license lookup failed", zap.String("license_key", key), zap.Error(err))
		res := ValidationResult{Code: CodeValidationError, Message: err.Error()}
		s.logCheck(ctx, nil, rawKey, rawDomain, ip, checkType, false, res)
		return res
	}

	if !lic.IsValid(true, now) {
		// IsValid may have flipped an overdue license to expired; persist the
		// lazy transition. Racing readers converge on the same value.
		if lic.Status == model.StatusExpired {
			if err := s.db.WithContext(ctx).Model(&lic).Update("status", lic.Status).Error; err != nil {
				s.log.Error("failed to persist lazy expiration",
					zap.String("license_key", lic.LicenseKey), zap.Error(err))
			}
		}
		res := ValidationResult{
			Code:    CodeLicenseInvalidStatus,
			Message: "License is not valid",
			Status:  lic.Status,
		}
		s.logCheck(ctx, &lic.ID, rawKey, rawDomain, ip, checkType, false, res)
		return res
	}

	if !lic.VerifyDomain(rawDomain) {
		attempted, _ := domain.Normalize(rawDomain)
		res := ValidationResult{
			Code:            CodeDomainMismatch,
			Message:         "License is not registered for this domain",
			Status:          lic.Status,
			LicenseDomain:   lic.Domain,
			AttemptedDomain: attempted,
		}
		s.logCheck(ctx, &lic.ID, rawKey, rawDomain, ip, checkType, false, res)
		return res
	}

	inGrace := lic.InGracePeriod(now)
	code := CodeLicenseValid
	if inGrace {
		code = CodeLicenseValidGrace
	}

	if err := s.db.WithContext(ctx).Model(&lic).Updates(map[string]interface{}{
		"check_count":     gorm.Expr("check_count + 1"),
		"last_checked_at": now,
	}).Error; err != nil {
		s.log.Error("failed to record license check",
			zap.String("license_key", lic.LicenseKey), zap.Error(err))
	}
	lic.CheckCount++
	lic.LastCheckedAt = &now

	res := ValidationResult{
		Valid:              true,
		Code:               code,
		Status:             lic.Status,
		InGracePeriod:      inGrace,
		GraceDaysRemaining: lic.GracePeriodDaysRemaining(now),
		License:            summarize(&lic),
	}
	s.logCheck(ctx, &lic.ID, rawKey, rawDomain, ip, checkType, true, res)
	return res
}

// CheckDomain reports whether any active license covers the queried domain,
// without requiring the caller to know a key. The canonical query must equal
// the stored canonical domain or appear as a substring of it (covers
// subdomain-style bindings). The returned summary masks the key: this is a
// public lookup.
func (s *Service) CheckDomain(ctx context.Context, rawDomain, ip string) DomainCheckResult {
	now := s.now()

	canonical, err := domain.Normalize(rawDomain)
	if err != nil {
		res := DomainCheckResult{Code: CodeInvalidDomainFormat, Domain: rawDomain}
		s.logCheck(ctx, nil, "", rawDomain, ip, model.CheckTypeDomain, false, res)
		return res
	}

	var lic model.License
	lookupErr := s.db.WithContext(ctx).
		Where("status = ? AND domain = ?", model.StatusActive, canonical).
		First(&lic).Error
	if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
		lookupErr = s.db.WithContext(ctx).
			Where("status = ? AND domain LIKE ? ESCAPE '\\'", model.StatusActive, "%"+likeEscaper.Replace(canonical)+"%").
			First(&lic).Error
	}
	if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
		res := DomainCheckResult{Code: CodeLicenseNotFound, Domain: canonical}
		s.logCheck(ctx, nil, "", rawDomain, ip, model.CheckTypeDomain, false, res)
		return res
	}
	if lookupErr != nil {
		s.log.Error("domain lookup failed", zap.String("domain", canonical), zap.Error(lookupErr))
		res := DomainCheckResult{Code: CodeValidationError, Domain: canonical}
		s.logCheck(ctx, nil, "", rawDomain, ip, model.CheckTypeDomain, false, res)
		return res
	}

	valid := lic.IsValid(true, now)
	if !valid && lic.Status == model.StatusExpired {
		if err := s.db.WithContext(ctx).Model(&lic).Update("status", lic.Status).Error; err != nil {
			s.log.Error("failed to persist lazy expiration",
				zap.String("license_key", lic.LicenseKey), zap.Error(err))
		}
	}

	code := CodeLicenseInvalidStatus
	if valid {
		if lic.InGracePeriod(now) {
			code = CodeLicenseValidGrace
		} else {
			code = CodeLicenseValid
		}
	}

	summary := summarize(&lic)
	summary.LicenseKey = maskKey(summary.LicenseKey)

	res := DomainCheckResult{
		Licensed:           true,
		Valid:              valid,
		Code:               code,
		Domain:             canonical,
		Status:             lic.Status,
		InGracePeriod:      lic.InGracePeriod(now),
		GraceDaysRemaining: lic.GracePeriodDaysRemaining(now),
		License:            summary,
	}
	s.logCheck(ctx, &lic.ID, "", rawDomain, ip, model.CheckTypeDomain, valid, res)
	return res
}
