package handler

import (
	"context"

	"license-service/internal/model"
	"license-service/internal/service"
)

// LicenseService is the contract handlers depend on. *service.Service is the
// production implementation; tests substitute a fake.
type LicenseService interface {
	Validate(ctx context.Context, rawKey, rawDomain, ip, checkType string) service.ValidationResult
	CheckDomain(ctx context.Context, rawDomain, ip string) service.DomainCheckResult

	Issue(ctx context.Context, p service.IssueParams) (*model.License, error)
	Renew(ctx context.Context, key string) service.OpResult
	Suspend(ctx context.Context, key, reason string) service.OpResult
	Activate(ctx context.Context, key string) service.OpResult
	Cancel(ctx context.Context, key, reason string) service.OpResult
	Reactivate(ctx context.Context, key string, policy model.ReactivationPolicy, reason string) service.OpResult
	TransferToDomain(ctx context.Context, key string, p service.TransferParams) service.OpResult
	ApproveTransfer(ctx context.Context, transferID uint) (*model.LicenseTransfer, error)

	GetByKey(ctx context.Context, key string) (*model.License, error)
	List(ctx context.Context, f service.ListFilter) ([]model.License, error)
	ListLogs(ctx context.Context, key string, page, perPage int) ([]model.LicenseCheckLog, int64, error)
	ListTransfers(ctx context.Context, key string) ([]model.LicenseTransfer, error)
	ListExpiring(ctx context.Context, days int) ([]model.License, error)
}
