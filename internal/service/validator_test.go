package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"license-service/internal/model"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// newTestService opens an in-memory database, migrates the license tables
// and pins the service clock to testNow.
func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// In-memory sqlite keeps one database per connection.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.License{},
		&model.LicenseCheckLog{},
		&model.LicenseTransfer{},
	))

	svc := New(db, zap.NewNop(), 3).WithClock(func() time.Time { return testNow })
	return svc, db
}

func seedLicense(t *testing.T, db *gorm.DB, lic model.License) *model.License {
	t.Helper()
	if lic.LicenseKey == "" {
		lic.LicenseKey = model.GenerateLicenseKey()
	}
	if lic.IssuedAt.IsZero() {
		lic.IssuedAt = testNow.AddDate(0, -1, 0)
	}
	if lic.MaxTransfers == 0 {
		lic.MaxTransfers = 3
	}
	require.NoError(t, db.Create(&lic).Error)
	return &lic
}

func auditRows(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.LicenseCheckLog{}).Count(&n).Error)
	return n
}

func TestValidateOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown key", func(t *testing.T) {
		svc, db := newTestService(t)

		res := svc.Validate(ctx, "ZZZZ-ZZZZ-ZZZZ-ZZZZ-ZZZZ", "example.com", "203.0.113.9", "")
		assert.False(t, res.Valid)
		assert.Equal(t, CodeLicenseNotFound, res.Code)
		assert.Equal(t, int64(1), auditRows(t, db))

		var entry model.LicenseCheckLog
		require.NoError(t, db.First(&entry).Error)
		assert.Nil(t, entry.LicenseID)
		assert.Equal(t, "ZZZZ-ZZZZ-ZZZZ-ZZZZ-ZZZZ", entry.LicenseKey)
		assert.False(t, entry.Valid)
	})

	t.Run("valid license", func(t *testing.T) {
		svc, db := newTestService(t)
		expiry := testNow.AddDate(0, 6, 0)
		lic := seedLicense(t, db, model.License{
			OwnerID:   7,
			Domain:    "example.com",
			Type:      model.TypeYearly,
			Status:    model.StatusActive,
			ExpiresAt: &expiry,
		})

		res := svc.Validate(ctx, lic.LicenseKey, "https://www.example.com/shop", "203.0.113.9", "")
		assert.True(t, res.Valid)
		assert.Equal(t, CodeLicenseValid, res.Code)
		assert.False(t, res.InGracePeriod)
		assert.Equal(t, int64(1), auditRows(t, db))

		var stored model.License
		require.NoError(t, db.First(&stored, lic.ID).Error)
		assert.Equal(t, int64(1), stored.CheckCount)
		require.NotNil(t, stored.LastCheckedAt)
	})

	t.Run("grace period", func(t *testing.T) {
		svc, db := newTestService(t)
		expiry := testNow.AddDate(0, 0, -3)
		lic := seedLicense(t, db, model.License{
			OwnerID:   7,
			Domain:    "example.com",
			Type:      model.TypeMonthly,
			Status:    model.StatusActive,
			ExpiresAt: &expiry,
		})

		res := svc.Validate(ctx, lic.LicenseKey, "example.com", "203.0.113.9", "")
		assert.True(t, res.Valid)
		assert.Equal(t, CodeLicenseValidGrace, res.Code)
		assert.True(t, res.InGracePeriod)
		assert.Equal(t, 4, res.GraceDaysRemaining)
		assert.Equal(t, int64(1), auditRows(t, db))
	})

	t.Run("past grace flips and persists expired", func(t *testing.T) {
		svc, db := newTestService(t)
		expiry := testNow.AddDate(0, 0, -10)
		lic := seedLicense(t, db, model.License{
			OwnerID:   7,
			Domain:    "example.com",
			Type:      model.TypeMonthly,
			Status:    model.StatusActive,
			ExpiresAt: &expiry,
		})

		res := svc.Validate(ctx, lic.LicenseKey, "example.com", "203.0.113.9", "")
		assert.False(t, res.Valid)
		assert.Equal(t, CodeLicenseInvalidStatus, res.Code)
		assert.Equal(t, model.StatusExpired, res.Status)
		assert.Equal(t, int64(1), auditRows(t, db))

		var stored model.License
		require.NoError(t, db.First(&stored, lic.ID).Error)
		assert.Equal(t, model.StatusExpired, stored.Status)
	})

	t.Run("domain mismatch", func(t *testing.T) {
		svc, db := newTestService(t)
		expiry := testNow.AddDate(1, 0, 0)
		lic := seedLicense(t, db, model.License{
			OwnerID:   7,
			Domain:    "example.com",
			Type:      model.TypeYearly,
			Status:    model.StatusActive,
			ExpiresAt: &expiry,
		})

		res := svc.Validate(ctx, lic.LicenseKey, "https://other.com", "203.0.113.9", "")
		assert.False(t, res.Valid)
		assert.Equal(t, CodeDomainMismatch, res.Code)
		assert.Equal(t, "example.com", res.LicenseDomain)
		assert.Equal(t, "other.com", res.AttemptedDomain)
		assert.Equal(t, int64(1), auditRows(t, db))

		// A mismatch is not a successful check.
		var stored model.License
		require.NoError(t, db.First(&stored, lic.ID).Error)
		assert.Equal(t, int64(0), stored.CheckCount)
	})
}

func TestCheckDomainOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid format", func(t *testing.T) {
		svc, db := newTestService(t)

		res := svc.CheckDomain(ctx, "https://", "203.0.113.9")
		assert.False(t, res.Licensed)
		assert.Equal(t, CodeInvalidDomainFormat, res.Code)
		assert.Equal(t, int64(1), auditRows(t, db))
	})

	t.Run("no license covers the domain", func(t *testing.T) {
		svc, db := newTestService(t)

		res := svc.CheckDomain(ctx, "unlicensed.com", "203.0.113.9")
		assert.False(t, res.Licensed)
		assert.Equal(t, CodeLicenseNotFound, res.Code)
		assert.Equal(t, int64(1), auditRows(t, db))
	})

	t.Run("exact match masks the key", func(t *testing.T) {
		svc, db := newTestService(t)
		expiry := testNow.AddDate(1, 0, 0)
		seedLicense(t, db, model.License{
			LicenseKey: "AB12-CD34-EF56-GH78-IJ90",
			OwnerID:    7,
			Domain:     "example.com",
			Type:       model.TypeYearly,
			Status:     model.StatusActive,
			ExpiresAt:  &expiry,
		})

		res := svc.CheckDomain(ctx, "https://www.example.com", "203.0.113.9")
		assert.True(t, res.Licensed)
		assert.True(t, res.Valid)
		assert.Equal(t, CodeLicenseValid, res.Code)
		require.NotNil(t, res.License)
		assert.Equal(t, "AB12-****-****-****-****", res.License.LicenseKey)
		assert.Equal(t, int64(1), auditRows(t, db))
	})

	t.Run("substring match covers subdomain bindings", func(t *testing.T) {
		svc, db := newTestService(t)
		expiry := testNow.AddDate(1, 0, 0)
		seedLicense(t, db, model.License{
			OwnerID:   7,
			Domain:    "shop.example.com",
			Type:      model.TypeYearly,
			Status:    model.StatusActive,
			ExpiresAt: &expiry,
		})

		res := svc.CheckDomain(ctx, "example.com", "203.0.113.9")
		assert.True(t, res.Licensed)
		assert.Equal(t, "example.com", res.Domain)
		assert.Equal(t, int64(1), auditRows(t, db))
	})

	t.Run("wildcard input matches nothing", func(t *testing.T) {
		svc, db := newTestService(t)
		expiry := testNow.AddDate(1, 0, 0)
		seedLicense(t, db, model.License{
			OwnerID:   7,
			Domain:    "abc.com",
			Type:      model.TypeYearly,
			Status:    model.StatusActive,
			ExpiresAt: &expiry,
		})

		// % and _ survive normalization; the lookup must treat them as
		// literal characters, not LIKE metacharacters.
		for _, query := range []string{"%.com", "a_c.com", `a\bc.com`} {
			res := svc.CheckDomain(ctx, query, "203.0.113.9")
			assert.False(t, res.Licensed, "query %q must not match abc.com", query)
			assert.Equal(t, CodeLicenseNotFound, res.Code)
		}
		assert.Equal(t, int64(3), auditRows(t, db))
	})

	t.Run("expired binding reports invalid status", func(t *testing.T) {
		svc, db := newTestService(t)
		expiry := testNow.AddDate(0, 0, -10)
		lic := seedLicense(t, db, model.License{
			OwnerID:   7,
			Domain:    "example.com",
			Type:      model.TypeMonthly,
			Status:    model.StatusActive,
			ExpiresAt: &expiry,
		})

		res := svc.CheckDomain(ctx, "example.com", "203.0.113.9")
		assert.True(t, res.Licensed)
		assert.False(t, res.Valid)
		assert.Equal(t, CodeLicenseInvalidStatus, res.Code)
		assert.Equal(t, int64(1), auditRows(t, db))

		var stored model.License
		require.NoError(t, db.First(&stored, lic.ID).Error)
		assert.Equal(t, model.StatusExpired, stored.Status)
	})
}
