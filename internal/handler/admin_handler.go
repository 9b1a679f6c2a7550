package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"license-service/internal/domain"
	"license-service/internal/model"
	"license-service/internal/service"
	"license-service/pkg/logger"
	"license-service/prometheus"
)

// IssueRequest is the body of POST /licenses.
type IssueRequest struct {
	OwnerID        uint   `json:"owner_id" validate:"required"`
	Domain         string `json:"domain" validate:"required"`
	Type           string `json:"type" validate:"required,oneof=trial monthly yearly lifetime"`
	ProductName    string `json:"product_name"`
	ProductVersion string `json:"product_version"`
	MaxTransfers   int    `json:"max_transfers" validate:"omitempty,min=0,max=50"`
}

// Issue handles POST /licenses (admin).
func (h *LicenseHandler) Issue(c echo.Context) error {
	log := logger.FromContext(c)

	var req IssueRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "Invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	lic, err := h.svc.Issue(c.Request().Context(), service.IssueParams{
		OwnerID:        req.OwnerID,
		Domain:         req.Domain,
		Type:           model.LicenseType(req.Type),
		ProductName:    req.ProductName,
		ProductVersion: req.ProductVersion,
		MaxTransfers:   req.MaxTransfers,
	})
	if errors.Is(err, domain.ErrInvalidFormat) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "Invalid domain format"})
	}
	if err != nil {
		log.Error("Failed to issue license",
			zap.Uint("owner_id", req.OwnerID),
			zap.String("domain", req.Domain),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to issue license"})
	}

	prometheus.LicensesIssuedCounter.Inc()
	log.Info("License issued",
		zap.String("license_key", lic.LicenseKey),
		zap.Uint("owner_id", lic.OwnerID))
	return c.JSON(http.StatusCreated, lic)
}

// List handles GET /licenses (admin) with optional owner_id/status filters.
func (h *LicenseHandler) List(c echo.Context) error {
	log := logger.FromContext(c)

	var filter service.ListFilter
	if raw := c.QueryParam("owner_id"); raw != "" {
		ownerID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "Invalid owner_id parameter"})
		}
		filter.OwnerID = uint(ownerID)
	}
	if raw := c.QueryParam("status"); raw != "" {
		filter.Status = model.LicenseStatus(raw)
	}

	licenses, err := h.svc.List(c.Request().Context(), filter)
	if err != nil {
		log.Error("Failed to list licenses", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve licenses"})
	}
	return c.JSON(http.StatusOK, licenses)
}

// ReasonRequest carries the optional reason on suspend/cancel.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// Suspend handles POST /licenses/:key/suspend (admin).
func (h *LicenseHandler) Suspend(c echo.Context) error {
	var req ReasonRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "Invalid request data"})
	}

	res := h.svc.Suspend(c.Request().Context(), c.Param("key"), req.Reason)
	return c.JSON(opStatus(res), res)
}

// Activate handles POST /licenses/:key/activate (admin). It lifts a
// suspension; reactivation of cancelled/expired licenses goes through
// Reactivate instead.
func (h *LicenseHandler) Activate(c echo.Context) error {
	res := h.svc.Activate(c.Request().Context(), c.Param("key"))
	return c.JSON(opStatus(res), res)
}

// Cancel handles POST /licenses/:key/cancel (admin).
func (h *LicenseHandler) Cancel(c echo.Context) error {
	var req ReasonRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "Invalid request data"})
	}

	res := h.svc.Cancel(c.Request().Context(), c.Param("key"), req.Reason)
	return c.JSON(opStatus(res), res)
}

// ReactivateRequest is the body of POST /licenses/:key/reactivate.
type ReactivateRequest struct {
	Policy string `json:"policy" validate:"required,oneof=full extend resume"`
	Reason string `json:"reason"`
}

// Reactivate handles POST /licenses/:key/reactivate (admin).
func (h *LicenseHandler) Reactivate(c echo.Context) error {
	log := logger.FromContext(c)

	var req ReactivateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "Invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res := h.svc.Reactivate(c.Request().Context(), c.Param("key"),
		model.ReactivationPolicy(req.Policy), req.Reason)
	prometheus.ReactivationsCounter.WithLabelValues(req.Policy, res.Code).Inc()

	log.Info("Reactivation processed",
		zap.String("license_key", c.Param("key")),
		zap.String("policy", req.Policy),
		zap.String("code", res.Code))
	return c.JSON(opStatus(res), res)
}

// ApproveTransfer handles POST /transfers/:id/approve (admin).
func (h *LicenseHandler) ApproveTransfer(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "Invalid transfer id"})
	}

	entry, err := h.svc.ApproveTransfer(c.Request().Context(), uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Transfer not found"})
	}
	if err != nil {
		log.Error("Failed to approve transfer", zap.Uint64("transfer_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to approve transfer"})
	}
	return c.JSON(http.StatusOK, entry)
}

// Expiring handles GET /licenses/expiring?days=N (admin).
func (h *LicenseHandler) Expiring(c echo.Context) error {
	log := logger.FromContext(c)

	days := 30
	if raw := c.QueryParam("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "Invalid days parameter"})
		}
		days = parsed
	}

	licenses, err := h.svc.ListExpiring(c.Request().Context(), days)
	if err != nil {
		log.Error("Failed to list expiring licenses", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve licenses"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"days":     days,
		"count":    len(licenses),
		"licenses": licenses,
	})
}
