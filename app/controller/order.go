package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-memberships/app/factory"
	"github.com/vibast-solutions/ms-go-memberships/app/mapper"
	"github.com/vibast-solutions/ms-go-memberships/app/middleware"
	"github.com/vibast-solutions/ms-go-memberships/app/service"
	"github.com/vibast-solutions/ms-go-memberships/app/types"
)

type OrderController struct {
	orderService *service.OrderService
	logger       logrus.FieldLogger
}

func NewOrderController(orderService *service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
		logger:       factory.NewModuleLogger("orders-controller"),
	}
}

func (c *OrderController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *OrderController) CreateOrder(ctx echo.Context) error {
	req, err := types.NewCreateOrderRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	created, err := c.orderService.CreateOrder(ctx.Request().Context(), req, middleware.ActorFromContext(ctx))
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Create order")
	}

	factory.LoggerWithContext(c.logger, ctx).WithFields(logrus.Fields{
		"order_id":        created.Order.OrderID,
		"membership_type": created.Order.MembershipType,
	}).Info("Order created")

	return ctx.JSON(http.StatusCreated, mapper.CreatedOrderToResponse(created))
}

func (c *OrderController) GetOrder(ctx echo.Context) error {
	req, err := types.NewGetOrderRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.orderService.GetOrder(ctx.Request().Context(), req.GetOrderId(), middleware.ActorFromContext(ctx))
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Get order")
	}

	return ctx.JSON(http.StatusOK, &types.OrderEnvelopeResponse{Order: mapper.OrderToResponse(item)})
}

func (c *OrderController) ListOrders(ctx echo.Context) error {
	req, err := types.NewListOrdersRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.orderService.ListOrders(ctx.Request().Context(), req, middleware.ActorFromContext(ctx))
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "List orders")
	}

	return ctx.JSON(http.StatusOK, &types.ListOrdersResponse{Orders: mapper.OrdersToResponse(items)})
}
