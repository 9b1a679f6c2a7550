package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"license-service/internal/model"
)

// ErrNotFound is returned by read operations when no license matches.
var ErrNotFound = errors.New("license not found")

// GetByKey fetches a license by its exact key.
func (s *Service) GetByKey(ctx context.Context, key string) (*model.License, error) {
	var lic model.License
	err := s.db.WithContext(ctx).
		Where("license_key = ?", strings.ToUpper(strings.TrimSpace(key))).
		First(&lic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lic, nil
}

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	OwnerID uint
	Status  model.LicenseStatus
}

// List returns licenses matching the filter, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]model.License, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if f.OwnerID != 0 {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var licenses []model.License
	if err := q.Find(&licenses).Error; err != nil {
		return nil, err
	}
	return licenses, nil
}

// ListLogs returns a page of audit log entries for a license, newest first,
// with the total row count for pagination.
func (s *Service) ListLogs(ctx context.Context, key string, page, perPage int) ([]model.LicenseCheckLog, int64, error) {
	lic, err := s.GetByKey(ctx, key)
	if err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 25
	}

	db := s.db.WithContext(ctx).Model(&model.LicenseCheckLog{}).Where("license_id = ?", lic.ID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []model.LicenseCheckLog
	err = db.Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// ListTransfers returns the transfer ledger for a license, newest first.
func (s *Service) ListTransfers(ctx context.Context, key string) ([]model.LicenseTransfer, error) {
	lic, err := s.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	var transfers []model.LicenseTransfer
	err = s.db.WithContext(ctx).
		Where("license_id = ?", lic.ID).
		Order("created_at DESC").
		Find(&transfers).Error
	if err != nil {
		return nil, err
	}
	return transfers, nil
}

// ListExpiring returns active licenses whose expiration falls within the
// next `days` days, soonest first. Renewal reminders are driven off this.
func (s *Service) ListExpiring(ctx context.Context, days int) ([]model.License, error) {
	if days <= 0 {
		days = 30
	}
	now := s.now()
	horizon := now.AddDate(0, 0, days)

	var licenses []model.License
	err := s.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at BETWEEN ? AND ?",
			model.StatusActive, now, horizon).
		Order("expires_at ASC").
		Find(&licenses).Error
	if err != nil {
		return nil, err
	}
	return licenses, nil
}
