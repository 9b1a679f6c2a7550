package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"license-service/internal/middleware"
	"license-service/internal/model"
	"license-service/internal/service"
	"license-service/pkg/logger"
	"license-service/prometheus"
)

// LicenseHandler serves the license HTTP surface.
type LicenseHandler struct {
	svc LicenseService
}

// NewLicenseHandler creates a handler backed by the given service.
func NewLicenseHandler(svc LicenseService) *LicenseHandler {
	return &LicenseHandler{svc: svc}
}

// ValidateRequest is the body of POST /licenses/validate.
type ValidateRequest struct {
	LicenseKey     string `json:"license_key" validate:"required"`
	Domain         string `json:"domain" validate:"required"`
	ProductVersion string `json:"product_version"`
	CheckType      string `json:"check_type" validate:"omitempty,oneof=api scheduled"`
}

// Validate handles POST /licenses/validate.
func (h *LicenseHandler) Validate(c echo.Context) error {
	log := logger.FromContext(c)

	var req ValidateRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("Invalid validation request", zap.Error(err))
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "Invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res := h.svc.Validate(c.Request().Context(), req.LicenseKey, req.Domain, c.RealIP(), req.CheckType)
	prometheus.ValidationCounter.WithLabelValues(res.Code).Inc()

	log.Info("License validation processed",
		zap.String("code", res.Code),
		zap.Bool("valid", res.Valid),
		zap.String("domain", req.Domain))

	if !res.Valid {
		return c.JSON(http.StatusForbidden, res)
	}
	return c.JSON(http.StatusOK, res)
}

// CheckDomain handles GET /licenses/check?domain=. The endpoint is public and
// always answers 200 with the check outcome.
func (h *LicenseHandler) CheckDomain(c echo.Context) error {
	log := logger.FromContext(c)

	rawDomain := c.QueryParam("domain")
	if rawDomain == "" {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "Missing domain parameter"})
	}

	res := h.svc.CheckDomain(c.Request().Context(), rawDomain, c.RealIP())
	prometheus.DomainCheckCounter.WithLabelValues(res.Code).Inc()

	log.Info("Domain check processed",
		zap.String("domain", rawDomain),
		zap.String("code", res.Code),
		zap.Bool("licensed", res.Licensed))
	return c.JSON(http.StatusOK, res)
}

// Get handles GET /licenses/:key. Owner or admin only.
func (h *LicenseHandler) Get(c echo.Context) error {
	log := logger.FromContext(c)
	key := c.Param("key")

	lic, err := h.svc.GetByKey(c.Request().Context(), key)
	if errors.Is(err, service.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "License not found"})
	}
	if err != nil {
		log.Error("Failed to load license", zap.String("license_key", key), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve license"})
	}

	if !canAccess(c, lic) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Access denied"})
	}
	return c.JSON(http.StatusOK, lic)
}

// Logs handles GET /licenses/:key/logs. Owner or admin only, paginated.
func (h *LicenseHandler) Logs(c echo.Context) error {
	log := logger.FromContext(c)
	key := c.Param("key")

	lic, err := h.svc.GetByKey(c.Request().Context(), key)
	if errors.Is(err, service.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "License not found"})
	}
	if err != nil {
		log.Error("Failed to load license", zap.String("license_key", key), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve license"})
	}
	if !canAccess(c, lic) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Access denied"})
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))

	logs, total, err := h.svc.ListLogs(c.Request().Context(), key, page, perPage)
	if err != nil {
		log.Error("Failed to list check logs", zap.String("license_key", key), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve logs"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data":     logs,
		"total":    total,
		"page":     pageOrDefault(page),
		"per_page": perPageOrDefault(perPage),
	})
}

// Transfers handles GET /licenses/:key/transfers. Owner or admin only.
func (h *LicenseHandler) Transfers(c echo.Context) error {
	log := logger.FromContext(c)
	key := c.Param("key")

	lic, err := h.svc.GetByKey(c.Request().Context(), key)
	if errors.Is(err, service.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "License not found"})
	}
	if err != nil {
		log.Error("Failed to load license", zap.String("license_key", key), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve license"})
	}
	if !canAccess(c, lic) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Access denied"})
	}

	transfers, err := h.svc.ListTransfers(c.Request().Context(), key)
	if err != nil {
		log.Error("Failed to list transfers", zap.String("license_key", key), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve transfers"})
	}
	return c.JSON(http.StatusOK, transfers)
}

// Renew handles POST /licenses/:key/renew. Owner or admin only.
func (h *LicenseHandler) Renew(c echo.Context) error {
	log := logger.FromContext(c)
	key := c.Param("key")

	lic, err := h.svc.GetByKey(c.Request().Context(), key)
	if errors.Is(err, service.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "License not found"})
	}
	if err != nil {
		log.Error("Failed to load license", zap.String("license_key", key), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve license"})
	}
	if !canAccess(c, lic) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Access denied"})
	}

	res := h.svc.Renew(c.Request().Context(), key)
	if res.OK {
		prometheus.RenewalsCounter.Inc()
	}
	return c.JSON(opStatus(res), res)
}

// TransferRequest is the body of POST /licenses/:key/transfer.
type TransferRequest struct {
	NewDomain       string `json:"new_domain" validate:"required"`
	Reason          string `json:"reason"`
	RequireApproval bool   `json:"require_approval"`
}

// Transfer handles POST /licenses/:key/transfer. Owner or admin only.
func (h *LicenseHandler) Transfer(c echo.Context) error {
	log := logger.FromContext(c)
	key := c.Param("key")

	var req TransferRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "Invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	lic, err := h.svc.GetByKey(c.Request().Context(), key)
	if errors.Is(err, service.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "License not found"})
	}
	if err != nil {
		log.Error("Failed to load license", zap.String("license_key", key), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve license"})
	}
	if !canAccess(c, lic) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Access denied"})
	}

	claims := middleware.ClaimsFromContext(c)
	res := h.svc.TransferToDomain(c.Request().Context(), key, service.TransferParams{
		NewDomain:       req.NewDomain,
		InitiatedBy:     claims.UserID,
		Reason:          req.Reason,
		SourceIP:        c.RealIP(),
		RequireApproval: req.RequireApproval,
	})
	prometheus.TransfersCounter.WithLabelValues(res.Code).Inc()

	log.Info("Transfer processed",
		zap.String("license_key", key),
		zap.String("new_domain", req.NewDomain),
		zap.String("code", res.Code))
	return c.JSON(opStatus(res), res)
}

// canAccess allows the license owner and admins through.
func canAccess(c echo.Context, lic *model.License) bool {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return false
	}
	return claims.IsAdmin() || claims.UserID == lic.OwnerID
}

// opStatus maps a lifecycle result to an HTTP status.
func opStatus(res service.OpResult) int {
	if res.OK {
		return http.StatusOK
	}
	switch res.Code {
	case service.CodeLicenseNotFound:
		return http.StatusNotFound
	case service.CodeInvalidStatus, service.CodeSameDomain, service.CodeMaxTransfersReached:
		return http.StatusConflict
	case service.CodeInvalidDomainFormat:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func perPageOrDefault(perPage int) int {
	if perPage < 1 || perPage > 100 {
		return 25
	}
	return perPage
}

func pageOrDefault(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
