package controller

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-memberships/app/factory"
	"github.com/vibast-solutions/ms-go-memberships/app/mapper"
	"github.com/vibast-solutions/ms-go-memberships/app/service"
	"github.com/vibast-solutions/ms-go-memberships/app/types"
)

const (
	callbackAck    = "success"
	callbackReject = "fail"
)

type PaymentController struct {
	orderService    *service.OrderService
	settingsService *service.SettingsService
	logger          logrus.FieldLogger
}

func NewPaymentController(orderService *service.OrderService, settingsService *service.SettingsService) *PaymentController {
	return &PaymentController{
		orderService:    orderService,
		settingsService: settingsService,
		logger:          factory.NewModuleLogger("payment-controller"),
	}
}

func (c *PaymentController) Status(ctx echo.Context) error {
	settings, err := c.settingsService.PaymentSettings(ctx.Request().Context())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Load payment status")
	}
	return ctx.JSON(http.StatusOK, mapper.PaymentStatusToResponse(settings))
}

func (c *PaymentController) CreateQRCode(ctx echo.Context) error {
	req, err := types.NewCreateQRCodeRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	qr, err := c.orderService.CreateQRCode(ctx.Request().Context(), req)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Create payment qrcode")
	}

	return ctx.JSON(http.StatusOK, mapper.QRCodeToResponse(qr))
}

func (c *PaymentController) QueryOrder(ctx echo.Context) error {
	req, err := types.NewQueryOrderRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	query, err := c.orderService.QueryOrder(ctx.Request().Context(), req.GetOrderId())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Query order")
	}

	return ctx.JSON(http.StatusOK, mapper.OrderQueryToResponse(query))
}

// XorPayCallback acknowledges gateway notifications in plain text. Anything
// other than "success" makes the gateway retry, so a processing panic is
// answered with "fail" rather than a 500.
func (c *PaymentController) XorPayCallback(ctx echo.Context) (err error) {
	logger := factory.LoggerWithContext(c.logger, ctx)
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.WithField("panic", fmt.Sprint(recovered)).Error("XorPay callback panicked")
			err = ctx.String(http.StatusOK, callbackReject)
		}
	}()

	req, err := types.NewXorPayCallbackRequestFromContext(ctx)
	if err != nil {
		logger.WithError(err).Warn("Unreadable xorpay callback")
		return ctx.String(http.StatusOK, callbackReject)
	}
	if err := req.Validate(); err != nil {
		logger.WithError(err).Warn("Invalid xorpay callback")
		return ctx.String(http.StatusOK, callbackReject)
	}

	order, err := c.orderService.HandleXorPayCallback(ctx.Request().Context(), req)
	if err != nil {
		logger.WithError(err).WithField("order_id", req.GetFields()["trade_order_id"]).Warn("XorPay callback rejected")
		return ctx.String(http.StatusOK, callbackReject)
	}

	logger.WithFields(logrus.Fields{
		"order_id": order.OrderID,
		"status":   order.Status,
	}).Info("XorPay callback processed")
	return ctx.String(http.StatusOK, callbackAck)
}

func (c *PaymentController) XorPayCallbackInfo(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.CallbackInfoResponse{
		Message: "XorPay payment notification endpoint",
		Method:  http.MethodPost,
		Fields:  []string{"trade_order_id", "open_order_id", "transaction_id", "total_fee", "status", "hash"},
	})
}

func (c *PaymentController) Refund(ctx echo.Context) error {
	req, err := types.NewRefundRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.orderService.Refund(ctx.Request().Context(), req)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Refund order")
	}

	factory.LoggerWithContext(c.logger, ctx).WithFields(logrus.Fields{
		"order_id":      result.OrderID,
		"refund_status": result.RefundStatus,
	}).Info("Refund requested")

	return ctx.JSON(http.StatusOK, mapper.RefundToResponse(result))
}

func (c *PaymentController) Diagnose(ctx echo.Context) error {
	diagnosis, err := c.orderService.Diagnose(ctx.Request().Context())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Diagnose gateway")
	}
	return ctx.JSON(http.StatusOK, mapper.DiagnosisToResponse(diagnosis))
}
