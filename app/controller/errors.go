package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-memberships/app/factory"
	"github.com/vibast-solutions/ms-go-memberships/app/provider"
	"github.com/vibast-solutions/ms-go-memberships/app/service"
	"github.com/vibast-solutions/ms-go-memberships/app/types"
)

// statusForError maps a service error to the HTTP status and the message
// shown to the caller. ok is false for unexpected errors.
func statusForError(err error) (int, string, bool) {
	var gatewayErr *provider.GatewayError

	switch {
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidMembershipType),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrCallbackRejected):
		return http.StatusBadRequest, err.Error(), true
	case errors.Is(err, service.ErrSoldOut),
		errors.Is(err, service.ErrPurchaseLimitReached),
		errors.Is(err, service.ErrMembershipUnavailable),
		errors.Is(err, service.ErrPaymentDisabled),
		errors.Is(err, service.ErrPaymentNotConfigured),
		errors.Is(err, service.ErrProviderUnsupported),
		errors.Is(err, service.ErrInviteCodeUnavailable),
		errors.Is(err, service.ErrEmailNotConfigured):
		return http.StatusBadRequest, err.Error(), true
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "access denied", true
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrInviteCodeNotFound),
		errors.Is(err, service.ErrSubscriptionNotFound):
		return http.StatusNotFound, err.Error(), true
	case errors.Is(err, service.ErrSubscriptionExists),
		errors.Is(err, service.ErrInviteCodeInUse),
		errors.Is(err, service.ErrBusy):
		return http.StatusConflict, err.Error(), true
	case errors.Is(err, provider.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable, err.Error(), true
	case errors.As(err, &gatewayErr):
		return http.StatusBadGateway, gatewayErr.Message, true
	default:
		return http.StatusInternalServerError, "internal server error", false
	}
}

func writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}

func writeServiceError(ctx echo.Context, logger logrus.FieldLogger, err error, action string) error {
	status, message, ok := statusForError(err)
	if !ok {
		factory.LoggerWithContext(logger, ctx).WithError(err).Error(action + " failed")
	} else if status >= http.StatusInternalServerError {
		factory.LoggerWithContext(logger, ctx).WithError(err).Warn(action + " failed")
	}
	return writeError(ctx, status, message)
}
