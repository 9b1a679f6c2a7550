package model

import (
	"errors"
	"time"

	"license-service/internal/domain"
)

// ReactivationPolicy selects how a reactivated license accounts for time.
type ReactivationPolicy string

const (
	// ReactivateFull grants a fresh full term anchored at reactivation time,
	// discarding any unused remainder.
	ReactivateFull ReactivationPolicy = "full"
	// ReactivateExtend keeps the unused remainder and stacks one full term of
	// the license's type on top of the old expiration.
	ReactivateExtend ReactivationPolicy = "extend"
	// ReactivateResume flips the license back to active without granting any
	// new term; the old expiration stands if still in the future.
	ReactivateResume ReactivationPolicy = "resume"
)

// Sentinel errors for lifecycle preconditions. The service layer maps these
// to structured result codes; none of them leaves the license mutated.
var (
	ErrInvalidStatus       = errors.New("license status does not allow this operation")
	ErrMaxTransfersReached = errors.New("transfer limit reached")
	ErrSameDomain          = errors.New("license is already bound to this domain")
	ErrUnknownPolicy       = errors.New("unknown reactivation policy")
)

// Renew unconditionally reactivates the license and recomputes the
// expiration from its type, anchored at now.
func (l *License) Renew(now time.Time) {
	l.Status = StatusActive
	l.ExpiresAt = CalculateExpiration(l.Type, now)
	l.AppendNote(now, "renewed (%s term)", l.Type)
}

// Suspend takes an active license out of service pending investigation.
func (l *License) Suspend(reason string, now time.Time) error {
	if l.Status != StatusActive {
		return ErrInvalidStatus
	}
	l.Status = StatusSuspended
	if reason == "" {
		reason = "no reason given"
	}
	l.AppendNote(now, "suspended: %s", reason)
	return nil
}

// Activate lifts a suspension.
func (l *License) Activate(now time.Time) error {
	if l.Status != StatusSuspended {
		return ErrInvalidStatus
	}
	l.Status = StatusActive
	l.AppendNote(now, "suspension lifted")
	return nil
}

// Cancel soft-retires an active or expired license. Cancelled is terminal
// under normal operation; only Reactivate brings a license back.
func (l *License) Cancel(reason string, now time.Time) error {
	if l.Status != StatusActive && l.Status != StatusExpired {
		return ErrInvalidStatus
	}
	l.Status = StatusCancelled
	if reason == "" {
		reason = "no reason given"
	}
	l.AppendNote(now, "cancelled: %s", reason)
	return nil
}

// Reactivate restores a cancelled or expired license to active under the
// given time-accounting policy. Suspended licenses are not eligible: callers
// must lift the suspension explicitly via Activate.
func (l *License) Reactivate(policy ReactivationPolicy, reason string, now time.Time) error {
	if l.Status != StatusCancelled && l.Status != StatusExpired {
		return ErrInvalidStatus
	}

	switch policy {
	case ReactivateFull:
		l.ExpiresAt = CalculateExpiration(l.Type, now)
	case ReactivateExtend:
		if l.ExpiresAt != nil && l.ExpiresAt.After(now) {
			// Remaining entitlement preserved, one full term stacked on top.
			if full := CalculateExpiration(l.Type, now); full != nil {
				exp := l.ExpiresAt.Add(full.Sub(now))
				l.ExpiresAt = &exp
			}
		} else {
			l.ExpiresAt = CalculateExpiration(l.Type, now)
		}
	case ReactivateResume:
		if l.ExpiresAt == nil || l.ExpiresAt.After(now) {
			// Old expiration stands.
		} else {
			l.ExpiresAt = CalculateExpiration(l.Type, now)
		}
	default:
		return ErrUnknownPolicy
	}

	l.Status = StatusActive
	if reason == "" {
		reason = "no reason given"
	}
	l.AppendNote(now, "reactivated (policy=%s): %s", policy, reason)
	return nil
}

// CheckTransfer validates the transfer preconditions in order without
// mutating the license. newCanonical must already be normalized.
func (l *License) CheckTransfer(newCanonical string) error {
	if l.TransferCount >= l.MaxTransfers {
		return ErrMaxTransfersReached
	}
	if current, err := domain.Normalize(l.Domain); err == nil && current == newCanonical {
		return ErrSameDomain
	}
	if l.Status != StatusActive && l.Status != StatusExpired {
		return ErrInvalidStatus
	}
	return nil
}

// ApplyTransfer rebinds the license to the new canonical domain. Callers run
// CheckTransfer first, inside the same row-locked transaction.
func (l *License) ApplyTransfer(newCanonical string, now time.Time) {
	old := l.Domain
	l.Domain = newCanonical
	l.TransferCount++
	l.LastTransferredAt = &now
	l.AppendNote(now, "domain transferred %s -> %s (%d/%d)", old, newCanonical, l.TransferCount, l.MaxTransfers)
}
