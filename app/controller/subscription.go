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

type SubscriptionController struct {
	subscriptionService *service.SubscriptionService
	logger              logrus.FieldLogger
}

func NewSubscriptionController(subscriptionService *service.SubscriptionService) *SubscriptionController {
	return &SubscriptionController{
		subscriptionService: subscriptionService,
		logger:              factory.NewModuleLogger("subscriptions-controller"),
	}
}

func (c *SubscriptionController) ListSubscriptions(ctx echo.Context) error {
	actor := middleware.ActorFromContext(ctx)
	if actor == nil {
		return writeError(ctx, http.StatusUnauthorized, "authorization required")
	}

	items, err := c.subscriptionService.List(ctx.Request().Context(), actor.Username)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "List subscriptions")
	}

	return ctx.JSON(http.StatusOK, &types.ListSubscriptionsResponse{Subscriptions: mapper.SubscriptionsToResponse(items)})
}

func (c *SubscriptionController) CreateSubscription(ctx echo.Context) error {
	actor := middleware.ActorFromContext(ctx)
	if actor == nil {
		return writeError(ctx, http.StatusUnauthorized, "authorization required")
	}

	req, err := types.NewCreateSubscriptionRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.subscriptionService.Create(ctx.Request().Context(), req, actor.Username)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Create subscription")
	}

	return ctx.JSON(http.StatusCreated, &types.SubscriptionEnvelopeResponse{Subscription: mapper.SubscriptionToResponse(item)})
}

func (c *SubscriptionController) UpdateSubscription(ctx echo.Context) error {
	actor := middleware.ActorFromContext(ctx)
	if actor == nil {
		return writeError(ctx, http.StatusUnauthorized, "authorization required")
	}

	req, err := types.NewUpdateSubscriptionRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.subscriptionService.Update(ctx.Request().Context(), req.GetId(), req, actor.Username)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Update subscription")
	}

	return ctx.JSON(http.StatusOK, &types.SubscriptionEnvelopeResponse{Subscription: mapper.SubscriptionToResponse(item)})
}

func (c *SubscriptionController) DeleteSubscription(ctx echo.Context) error {
	actor := middleware.ActorFromContext(ctx)
	if actor == nil {
		return writeError(ctx, http.StatusUnauthorized, "authorization required")
	}

	req, err := types.NewSubscriptionIdRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	if err := c.subscriptionService.Delete(ctx.Request().Context(), req.Id, actor.Username); err != nil {
		return writeServiceError(ctx, c.logger, err, "Delete subscription")
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Subscription deleted"})
}
