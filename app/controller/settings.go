package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-memberships/app/factory"
	"github.com/vibast-solutions/ms-go-memberships/app/mapper"
	"github.com/vibast-solutions/ms-go-memberships/app/service"
	"github.com/vibast-solutions/ms-go-memberships/app/types"
)

// SettingsController serves the operator configuration documents. Secrets
// leave this controller masked.
type SettingsController struct {
	settingsService *service.SettingsService
	emailService    *service.EmailService
	logger          logrus.FieldLogger
}

func NewSettingsController(settingsService *service.SettingsService, emailService *service.EmailService) *SettingsController {
	return &SettingsController{
		settingsService: settingsService,
		emailService:    emailService,
		logger:          factory.NewModuleLogger("settings-controller"),
	}
}

func (c *SettingsController) GetPaymentConfig(ctx echo.Context) error {
	settings, err := c.settingsService.PaymentSettings(ctx.Request().Context())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Load payment config")
	}
	return ctx.JSON(http.StatusOK, &types.PaymentConfigResponse{Config: mapper.PaymentSettingsToResponse(settings)})
}

func (c *SettingsController) SavePaymentConfig(ctx echo.Context) error {
	req, err := types.NewPaymentConfigFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	saved, err := c.settingsService.SavePaymentSettings(ctx.Request().Context(), req.ToEntity())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Save payment config")
	}

	factory.LoggerWithContext(c.logger, ctx).WithFields(logrus.Fields{
		"enabled": saved.Enabled,
		"method":  saved.Method,
	}).Info("Payment config saved")

	return ctx.JSON(http.StatusOK, &types.PaymentConfigResponse{Config: mapper.PaymentSettingsToResponse(saved)})
}

func (c *SettingsController) GetEmailConfig(ctx echo.Context) error {
	settings, err := c.settingsService.EmailSettings(ctx.Request().Context())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Load email config")
	}
	return ctx.JSON(http.StatusOK, &types.EmailConfigResponse{Config: mapper.EmailSettingsToResponse(settings)})
}

func (c *SettingsController) SaveEmailConfig(ctx echo.Context) error {
	req, err := types.NewEmailConfigFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	saved, err := c.settingsService.SaveEmailSettings(ctx.Request().Context(), req.ToEntity())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Save email config")
	}

	return ctx.JSON(http.StatusOK, &types.EmailConfigResponse{Config: mapper.EmailSettingsToResponse(saved)})
}

func (c *SettingsController) SendTestEmail(ctx echo.Context) error {
	req, err := types.NewSendTestEmailRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	if err := c.emailService.SendTest(ctx.Request().Context(), req); err != nil {
		status, message, ok := statusForError(err)
		if !ok {
			// delivery failures are reported to the operator as they are
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Warn("Test email failed")
			return writeError(ctx, http.StatusBadGateway, err.Error())
		}
		return writeError(ctx, status, message)
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Test email sent to " + req.GetTo()})
}

func (c *SettingsController) GetPurchaseLimits(ctx echo.Context) error {
	limits, err := c.settingsService.PurchaseLimits(ctx.Request().Context())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Load purchase limits")
	}
	return ctx.JSON(http.StatusOK, &types.PurchaseLimitsResponse{Limits: mapper.PurchaseLimitsToResponse(limits)})
}

func (c *SettingsController) SavePurchaseLimits(ctx echo.Context) error {
	req, err := types.NewPurchaseLimitsFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	saved, err := c.settingsService.SavePurchaseLimits(ctx.Request().Context(), req.ToEntity())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Save purchase limits")
	}

	return ctx.JSON(http.StatusOK, &types.PurchaseLimitsResponse{Limits: mapper.PurchaseLimitsToResponse(saved)})
}

func (c *SettingsController) GetMembershipConfig(ctx echo.Context) error {
	cfg, err := c.settingsService.MembershipConfig(ctx.Request().Context())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Load membership config")
	}
	return ctx.JSON(http.StatusOK, &types.MembershipConfigResponse{Config: mapper.MembershipConfigToResponse(cfg)})
}

func (c *SettingsController) SaveMembershipConfig(ctx echo.Context) error {
	doc, err := types.NewMembershipConfigDocumentFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := doc.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	saved, err := c.settingsService.SaveMembershipConfig(ctx.Request().Context(), doc.ToEntity())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Save membership config")
	}

	return ctx.JSON(http.StatusOK, &types.MembershipConfigResponse{Config: mapper.MembershipConfigToResponse(saved)})
}
