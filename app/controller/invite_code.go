package controller

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-memberships/app/entity"
	"github.com/vibast-solutions/ms-go-memberships/app/factory"
	"github.com/vibast-solutions/ms-go-memberships/app/mapper"
	"github.com/vibast-solutions/ms-go-memberships/app/middleware"
	"github.com/vibast-solutions/ms-go-memberships/app/service"
	"github.com/vibast-solutions/ms-go-memberships/app/types"
)

type InviteCodeController struct {
	inviteCodeService *service.InviteCodeService
	settingsService   *service.SettingsService
	logger            logrus.FieldLogger
}

func NewInviteCodeController(inviteCodeService *service.InviteCodeService, settingsService *service.SettingsService) *InviteCodeController {
	return &InviteCodeController{
		inviteCodeService: inviteCodeService,
		settingsService:   settingsService,
		logger:            factory.NewModuleLogger("invite-codes-controller"),
	}
}

func (c *InviteCodeController) ListInviteCodes(ctx echo.Context) error {
	req, err := types.NewListInviteCodesRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.inviteCodeService.List(ctx.Request().Context(), req)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "List invite codes")
	}

	return ctx.JSON(http.StatusOK, &types.InviteCodesResponse{Codes: mapper.InviteCodesToResponse(items)})
}

func (c *InviteCodeController) GenerateInviteCodes(ctx echo.Context) error {
	req, err := types.NewGenerateInviteCodesRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	actor := middleware.ActorFromContext(ctx)
	createdBy := entity.InviteCodeCreatedBySystem
	if actor != nil {
		createdBy = actor.Username
	}

	items, err := c.inviteCodeService.Generate(ctx.Request().Context(), req, createdBy)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Generate invite codes")
	}

	factory.LoggerWithContext(c.logger, ctx).WithFields(logrus.Fields{
		"membership_type": req.GetMembershipType(),
		"count":           len(items),
		"created_by":      createdBy,
	}).Info("Invite codes generated")

	return ctx.JSON(http.StatusCreated, &types.InviteCodesResponse{Codes: mapper.InviteCodesToResponse(items)})
}

func (c *InviteCodeController) DeleteInviteCode(ctx echo.Context) error {
	req, err := types.NewInviteCodeRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	if err := c.inviteCodeService.Delete(ctx.Request().Context(), req.GetCode()); err != nil {
		return writeServiceError(ctx, c.logger, err, "Delete invite code")
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Invite code deleted"})
}

func (c *InviteCodeController) VerifyInviteCode(ctx echo.Context) error {
	req, err := types.NewInviteCodeRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	verification, err := c.inviteCodeService.Verify(ctx.Request().Context(), req.GetCode())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Verify invite code")
	}

	return ctx.JSON(http.StatusOK, mapper.VerificationToResponse(verification))
}

func (c *InviteCodeController) Stock(ctx echo.Context) error {
	items, err := c.inviteCodeService.Stock(ctx.Request().Context())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Load invite code stock")
	}
	return ctx.JSON(http.StatusOK, mapper.StockToResponse(items))
}

func (c *InviteCodeController) RedeemInviteCode(ctx echo.Context) error {
	req, err := types.NewInviteCodeRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	actor := middleware.ActorFromContext(ctx)
	if actor == nil {
		return writeError(ctx, http.StatusUnauthorized, "authorization required")
	}

	membership, err := c.inviteCodeService.Redeem(ctx.Request().Context(), req.GetCode(), actor.Username)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Redeem invite code")
	}

	factory.LoggerWithContext(c.logger, ctx).WithFields(logrus.Fields{
		"username":        actor.Username,
		"membership_type": *membership.MembershipType,
	}).Info("Invite code redeemed")

	return c.writeMembership(ctx, membership)
}

func (c *InviteCodeController) GetMembership(ctx echo.Context) error {
	actor := middleware.ActorFromContext(ctx)
	if actor == nil {
		return writeError(ctx, http.StatusUnauthorized, "authorization required")
	}
	return c.membershipFor(ctx, actor.Username)
}

// GetMembershipInternal serves membership lookups for other services.
func (c *InviteCodeController) GetMembershipInternal(ctx echo.Context) error {
	req, err := types.NewUsernameRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}
	return c.membershipFor(ctx, req.GetUsername())
}

func (c *InviteCodeController) membershipFor(ctx echo.Context, username string) error {
	membership, err := c.inviteCodeService.GetMembership(ctx.Request().Context(), username)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Get membership")
	}
	return c.writeMembership(ctx, membership)
}

func (c *InviteCodeController) writeMembership(ctx echo.Context, membership *entity.UserMembership) error {
	tiers, err := c.settingsService.MembershipConfig(ctx.Request().Context())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Load membership config")
	}
	return ctx.JSON(http.StatusOK, &types.MembershipResponse{
		Membership: mapper.UserMembershipToResponse(membership, tiers, time.Now()),
	})
}
