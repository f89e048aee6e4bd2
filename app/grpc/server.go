package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-memberships/app/mapper"
	"github.com/vibast-solutions/ms-go-memberships/app/service"
	"github.com/vibast-solutions/ms-go-memberships/app/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type Server struct {
	UnimplementedMembershipsServiceServer
	orderService      *service.OrderService
	inviteCodeService *service.InviteCodeService
	settingsService   *service.SettingsService
	now               func() time.Time
}

func NewServer(orderService *service.OrderService, inviteCodeService *service.InviteCodeService, settingsService *service.SettingsService) *Server {
	return &Server{
		orderService:      orderService,
		inviteCodeService: inviteCodeService,
		settingsService:   settingsService,
		now:               time.Now,
	}
}

func (s *Server) Health(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(&types.HealthResponse{Status: "ok"})
}

func (s *Server) GetMembership(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	username := strings.TrimSpace(req.GetValue())
	if username == "" {
		return nil, status.Error(codes.InvalidArgument, "username is required")
	}

	membership, err := s.inviteCodeService.GetMembership(ctx, username)
	if err != nil {
		return nil, statusFromError(ctx, err, "Get membership failed")
	}
	tiers, err := s.settingsService.MembershipConfig(ctx)
	if err != nil {
		return nil, statusFromError(ctx, err, "Load membership config failed")
	}

	return toStruct(&types.MembershipResponse{Membership: mapper.UserMembershipToResponse(membership, tiers, s.now())})
}

// GetOrder serves trusted callers, so no ownership check applies.
func (s *Server) GetOrder(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	orderID := strings.TrimSpace(req.GetValue())
	if orderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order id is required")
	}

	order, err := s.orderService.GetOrder(ctx, orderID, nil)
	if err != nil {
		return nil, statusFromError(ctx, err, "Get order failed")
	}

	return toStruct(&types.OrderEnvelopeResponse{Order: mapper.OrderToResponse(order)})
}

func (s *Server) VerifyInviteCode(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	code := strings.TrimSpace(req.GetValue())
	if code == "" {
		return nil, status.Error(codes.InvalidArgument, "code is required")
	}

	verification, err := s.inviteCodeService.Verify(ctx, code)
	if err != nil {
		return nil, statusFromError(ctx, err, "Verify invite code failed")
	}

	return toStruct(mapper.VerificationToResponse(verification))
}

func statusFromError(ctx context.Context, err error, message string) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrInvalidMembershipType):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrOrderNotFound):
		return status.Error(codes.NotFound, "order not found")
	case errors.Is(err, service.ErrInviteCodeNotFound):
		return status.Error(codes.NotFound, "invite code not found")
	case errors.Is(err, service.ErrForbidden):
		return status.Error(codes.PermissionDenied, "access denied")
	default:
		loggerWithContext(ctx).WithError(err).Error(message)
		return status.Error(codes.Internal, "internal server error")
	}
}

// toStruct converts a JSON response type into a Struct so HTTP and gRPC
// callers see the same field names.
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return out, nil
}
