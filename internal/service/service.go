package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"license-service/internal/model"
)

// Service owns every read and mutation of licenses. All mutating operations
// run inside one transaction that takes an exclusive row lock on the target
// license before reading its state, so concurrent callers cannot both pass a
// precondition check and both commit.
type Service struct {
	db                  *gorm.DB
	log                 *zap.Logger
	now                 func() time.Time
	defaultMaxTransfers int
}

// New creates a license service backed by db. defaultMaxTransfers bounds
// domain transfers on newly issued licenses unless the issuer overrides it.
func New(db *gorm.DB, log *zap.Logger, defaultMaxTransfers int) *Service {
	if defaultMaxTransfers <= 0 {
		defaultMaxTransfers = 3
	}
	return &Service{
		db:                  db,
		log:                 log,
		now:                 time.Now,
		defaultMaxTransfers: defaultMaxTransfers,
	}
}

// WithClock replaces the time source. Deterministic expiration and grace
// arithmetic in tests depends on this.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// withLicenseLock runs fn inside a transaction holding a FOR UPDATE lock on
// the license row for key. A missing key yields LICENSE_NOT_FOUND without an
// error; an unexpected DB error rolls the transaction back and is surfaced
// as a generic failure with failCode.
func (s *Service) withLicenseLock(ctx context.Context, key, failCode string, fn func(tx *gorm.DB, lic *model.License) (OpResult, error)) OpResult {
	var res OpResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lic model.License
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("license_key = ?", key).
			First(&lic).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			res = OpResult{Code: CodeLicenseNotFound, Message: "License not found"}
			return nil
		}
		if err != nil {
			return err
		}

		r, err := fn(tx, &lic)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		s.log.Error("license operation failed",
			zap.String("license_key", key),
			zap.String("code", failCode),
			zap.Error(err))
		return OpResult{Code: failCode, Message: err.Error()}
	}
	return res
}

// logCheck appends one audit row for a validation or domain-check attempt.
// The raw key is recorded as presented, even when it resolved to nothing.
// A failed insert is logged but does not change the caller's result: the
// decision already stands.
func (s *Service) logCheck(ctx context.Context, licenseID *uint, rawKey, rawDomain, ip, checkType string, valid bool, details interface{}) {
	payload, err := json.Marshal(details)
	if err != nil {
		payload = []byte("{}")
	}

	entry := model.LicenseCheckLog{
		LicenseID:  licenseID,
		LicenseKey: rawKey,
		Domain:     rawDomain,
		IP:         ip,
		Valid:      valid,
		CheckType:  checkType,
		Details:    string(payload),
		CreatedAt:  s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.log.Error("failed to write license check log",
			zap.String("license_key", rawKey),
			zap.String("check_type", checkType),
			zap.Error(err))
	}
}
