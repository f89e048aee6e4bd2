package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	MembershipsServiceName = "memberships.MembershipsService"

	MembershipsServiceHealthFullMethod           = "/memberships.MembershipsService/Health"
	MembershipsServiceGetMembershipFullMethod    = "/memberships.MembershipsService/GetMembership"
	MembershipsServiceGetOrderFullMethod         = "/memberships.MembershipsService/GetOrder"
	MembershipsServiceVerifyInviteCodeFullMethod = "/memberships.MembershipsService/VerifyInviteCode"
)

// MembershipsServiceServer is the internal API other services call. Requests
// and responses are protobuf well-known types so no generated code is needed.
type MembershipsServiceServer interface {
	Health(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetMembership(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetOrder(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	VerifyInviteCode(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

type UnimplementedMembershipsServiceServer struct{}

func (UnimplementedMembershipsServiceServer) Health(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Health not implemented")
}

func (UnimplementedMembershipsServiceServer) GetMembership(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetMembership not implemented")
}

func (UnimplementedMembershipsServiceServer) GetOrder(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetOrder not implemented")
}

func (UnimplementedMembershipsServiceServer) VerifyInviteCode(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method VerifyInviteCode not implemented")
}

func RegisterMembershipsServiceServer(registrar grpc.ServiceRegistrar, srv MembershipsServiceServer) {
	registrar.RegisterService(&MembershipsServiceDesc, srv)
}

var MembershipsServiceDesc = grpc.ServiceDesc{
	ServiceName: MembershipsServiceName,
	HandlerType: (*MembershipsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Health", Handler: healthHandler},
		{MethodName: "GetMembership", Handler: getMembershipHandler},
		{MethodName: "GetOrder", Handler: getOrderHandler},
		{MethodName: "VerifyInviteCode", Handler: verifyInviteCodeHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func healthHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MembershipsServiceServer).Health(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MembershipsServiceHealthFullMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MembershipsServiceServer).Health(ctx, req.(*emptypb.Empty))
	})
}

func getMembershipHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return stringValueHandler(srv, ctx, dec, interceptor, MembershipsServiceGetMembershipFullMethod, MembershipsServiceServer.GetMembership)
}

func getOrderHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return stringValueHandler(srv, ctx, dec, interceptor, MembershipsServiceGetOrderFullMethod, MembershipsServiceServer.GetOrder)
}

func verifyInviteCodeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return stringValueHandler(srv, ctx, dec, interceptor, MembershipsServiceVerifyInviteCodeFullMethod, MembershipsServiceServer.VerifyInviteCode)
}

type stringValueMethod func(MembershipsServiceServer, context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)

func stringValueHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor, fullMethod string, method stringValueMethod) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return method(srv.(MembershipsServiceServer), ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return method(srv.(MembershipsServiceServer), ctx, req.(*wrapperspb.StringValue))
	})
}

// MembershipsServiceClient calls MembershipsService over an existing connection.
type MembershipsServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewMembershipsServiceClient(cc grpc.ClientConnInterface) *MembershipsServiceClient {
	return &MembershipsServiceClient{cc: cc}
}

func (c *MembershipsServiceClient) Health(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MembershipsServiceHealthFullMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MembershipsServiceClient) GetMembership(ctx context.Context, username string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invokeString(ctx, MembershipsServiceGetMembershipFullMethod, username, opts...)
}

func (c *MembershipsServiceClient) GetOrder(ctx context.Context, orderID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invokeString(ctx, MembershipsServiceGetOrderFullMethod, orderID, opts...)
}

func (c *MembershipsServiceClient) VerifyInviteCode(ctx context.Context, code string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invokeString(ctx, MembershipsServiceVerifyInviteCodeFullMethod, code, opts...)
}

func (c *MembershipsServiceClient) invokeString(ctx context.Context, method, value string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, wrapperspb.String(value), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
