package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"license-service/internal/domain"
	"license-service/internal/model"
)

// keyGenAttempts bounds the collision retry loop during issuance.
const keyGenAttempts = 5

// IssueParams describes a new license. MaxTransfers <= 0 takes the service
// default.
type IssueParams struct {
	OwnerID        uint
	Domain         string
	Type           model.LicenseType
	ProductName    string
	ProductVersion string
	MaxTransfers   int
}

// TransferParams describes a domain transfer request.
type TransferParams struct {
	NewDomain       string
	InitiatedBy     uint
	Reason          string
	SourceIP        string
	RequireApproval bool
}

// Issue creates a license with a freshly generated, collision-checked key.
// The bound domain is stored in canonical form.
func (s *Service) Issue(ctx context.Context, p IssueParams) (*model.License, error) {
	canonical, err := domain.Normalize(p.Domain)
	if err != nil {
		return nil, err
	}

	switch p.Type {
	case model.TypeTrial, model.TypeMonthly, model.TypeYearly, model.TypeLifetime:
	default:
		return nil, fmt.Errorf("unknown license type %q", p.Type)
	}

	maxTransfers := p.MaxTransfers
	if maxTransfers <= 0 {
		maxTransfers = s.defaultMaxTransfers
	}

	now := s.now()
	lic := model.License{
		OwnerID:        p.OwnerID,
		Domain:         canonical,
		ProductName:    p.ProductName,
		ProductVersion: p.ProductVersion,
		Type:           p.Type,
		Status:         model.StatusActive,
		IssuedAt:       now,
		ExpiresAt:      model.CalculateExpiration(p.Type, now),
		MaxTransfers:   maxTransfers,
	}

	db := s.db.WithContext(ctx)
	for attempt := 0; attempt < keyGenAttempts; attempt++ {
		key := model.GenerateLicenseKey()
		var count int64
		if err := db.Model(&model.License{}).Where("license_key = ?", key).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("license key collision check: %w", err)
		}
		if count > 0 {
			continue
		}
		lic.LicenseKey = key
		break
	}
	if lic.LicenseKey == "" {
		return nil, errors.New("could not generate a unique license key")
	}

	lic.AppendNote(now, "issued to owner %d for %s (%s)", p.OwnerID, canonical, p.Type)
	if err := db.Create(&lic).Error; err != nil {
		return nil, fmt.Errorf("create license: %w", err)
	}

	s.log.Info("license issued",
		zap.String("license_key", lic.LicenseKey),
		zap.Uint("owner_id", lic.OwnerID),
		zap.String("domain", lic.Domain),
		zap.String("type", string(lic.Type)))
	return &lic, nil
}

// Renew unconditionally re-activates the license and recomputes its
// expiration from its type, anchored at now.
func (s *Service) Renew(ctx context.Context, key string) OpResult {
	return s.withLicenseLock(ctx, key, CodeValidationError, func(tx *gorm.DB, lic *model.License) (OpResult, error) {
		lic.Renew(s.now())
		if err := tx.Save(lic).Error; err != nil {
			return OpResult{}, err
		}
		s.log.Info("license renewed", zap.String("license_key", lic.LicenseKey))
		return OpResult{OK: true, Code: CodeOK, License: lic}, nil
	})
}

// Suspend takes an active license out of service.
func (s *Service) Suspend(ctx context.Context, key, reason string) OpResult {
	return s.withLicenseLock(ctx, key, CodeValidationError, func(tx *gorm.DB, lic *model.License) (OpResult, error) {
		if err := lic.Suspend(reason, s.now()); err != nil {
			return opFailure(err, lic), nil
		}
		if err := tx.Save(lic).Error; err != nil {
			return OpResult{}, err
		}
		s.log.Info("license suspended",
			zap.String("license_key", lic.LicenseKey), zap.String("reason", reason))
		return OpResult{OK: true, Code: CodeOK, License: lic}, nil
	})
}

// Activate lifts a suspension.
func (s *Service) Activate(ctx context.Context, key string) OpResult {
	return s.withLicenseLock(ctx, key, CodeValidationError, func(tx *gorm.DB, lic *model.License) (OpResult, error) {
		if err := lic.Activate(s.now()); err != nil {
			return opFailure(err, lic), nil
		}
		if err := tx.Save(lic).Error; err != nil {
			return OpResult{}, err
		}
		s.log.Info("license activated", zap.String("license_key", lic.LicenseKey))
		return OpResult{OK: true, Code: CodeOK, License: lic}, nil
	})
}

// Cancel soft-retires an active or expired license.
func (s *Service) Cancel(ctx context.Context, key, reason string) OpResult {
	return s.withLicenseLock(ctx, key, CodeValidationError, func(tx *gorm.DB, lic *model.License) (OpResult, error) {
		if err := lic.Cancel(reason, s.now()); err != nil {
			return opFailure(err, lic), nil
		}
		if err := tx.Save(lic).Error; err != nil {
			return OpResult{}, err
		}
		s.log.Info("license cancelled",
			zap.String("license_key", lic.LicenseKey), zap.String("reason", reason))
		return OpResult{OK: true, Code: CodeOK, License: lic}, nil
	})
}

// Reactivate restores a cancelled or expired license under the given policy.
// The row lock prevents a concurrent renew or transfer from racing the
// status flip.
func (s *Service) Reactivate(ctx context.Context, key string, policy model.ReactivationPolicy, reason string) OpResult {
	return s.withLicenseLock(ctx, key, CodeReactivationFailed, func(tx *gorm.DB, lic *model.License) (OpResult, error) {
		if err := lic.Reactivate(policy, reason, s.now()); err != nil {
			if errors.Is(err, model.ErrUnknownPolicy) {
				return OpResult{Code: CodeReactivationFailed, Message: err.Error(), License: lic}, nil
			}
			return opFailure(err, lic), nil
		}
		if err := tx.Save(lic).Error; err != nil {
			return OpResult{}, err
		}
		s.log.Info("license reactivated",
			zap.String("license_key", lic.LicenseKey), zap.String("policy", string(policy)))
		return OpResult{OK: true, Code: CodeOK, License: lic}, nil
	})
}

// TransferToDomain rebinds the license to a new domain. Preconditions are
// checked in order under the row lock; on success the ledger entry, the
// domain change and the counter increment commit together.
func (s *Service) TransferToDomain(ctx context.Context, key string, p TransferParams) OpResult {
	canonical, err := domain.Normalize(p.NewDomain)
	if err != nil {
		return OpResult{Code: CodeInvalidDomainFormat, Message: err.Error()}
	}

	return s.withLicenseLock(ctx, key, CodeTransferFailed, func(tx *gorm.DB, lic *model.License) (OpResult, error) {
		if err := lic.CheckTransfer(canonical); err != nil {
			return opFailure(err, lic), nil
		}

		now := s.now()
		entry := model.LicenseTransfer{
			LicenseID:     lic.ID,
			OldDomain:     lic.Domain,
			NewDomain:     canonical,
			InitiatedBy:   p.InitiatedBy,
			Reason:        p.Reason,
			SourceIP:      p.SourceIP,
			AdminApproved: !p.RequireApproval,
			CreatedAt:     now,
		}
		if entry.AdminApproved {
			entry.ApprovedAt = &now
		}
		if err := tx.Create(&entry).Error; err != nil {
			return OpResult{}, err
		}

		lic.ApplyTransfer(canonical, now)
		if err := tx.Save(lic).Error; err != nil {
			return OpResult{}, err
		}

		s.log.Info("license transferred",
			zap.String("license_key", lic.LicenseKey),
			zap.String("old_domain", entry.OldDomain),
			zap.String("new_domain", entry.NewDomain),
			zap.Int("transfer_count", lic.TransferCount))
		return OpResult{OK: true, Code: CodeOK, License: lic}, nil
	})
}

// ApproveTransfer records admin approval on a transfer that was created
// pending. Approval is the only mutation a ledger entry ever sees.
func (s *Service) ApproveTransfer(ctx context.Context, transferID uint) (*model.LicenseTransfer, error) {
	var entry model.LicenseTransfer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&entry, transferID).Error; err != nil {
			return err
		}
		if entry.AdminApproved {
			return nil
		}
		now := s.now()
		entry.AdminApproved = true
		entry.ApprovedAt = &now
		return tx.Save(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ExpireOverdue flips active licenses whose grace window has passed to
// expired. It performs the same lazy transition validation reads do, in
// bulk, and is safe to run repeatedly.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-model.GracePeriodDays * 24 * time.Hour)
	res := s.db.WithContext(ctx).Model(&model.License{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", model.StatusActive, cutoff).
		Update("status", model.StatusExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("expiration sweep: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.log.Info("expiration sweep completed", zap.Int64("expired", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

// opFailure maps entity precondition errors to result codes. No mutation has
// happened when these are returned.
func opFailure(err error, lic *model.License) OpResult {
	code := CodeValidationError
	switch {
	case errors.Is(err, model.ErrInvalidStatus):
		code = CodeInvalidStatus
	case errors.Is(err, model.ErrMaxTransfersReached):
		code = CodeMaxTransfersReached
	case errors.Is(err, model.ErrSameDomain):
		code = CodeSameDomain
	}
	res := OpResult{Code: code, Message: err.Error()}
	if lic != nil {
		res.Message = fmt.Sprintf("%s (status: %s)", err.Error(), lic.Status)
	}
	return res
}
