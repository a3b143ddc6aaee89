package handler

import (
	"context"

	"google.golang.org/grpc"

	"mentor-meet-api/internal/api"
)

// SessionServiceServer is the server side of mentor.v1.SessionService.
type SessionServiceServer interface {
	ListMentees(context.Context, *api.ListUsersRequest) (*api.ListUsersResponse, error)
	ListMentors(context.Context, *api.ListUsersRequest) (*api.ListUsersResponse, error)
	ListSessions(context.Context, *api.ListSessionsRequest) (*api.ListSessionsResponse, error)
	ScheduleSession(context.Context, *api.ScheduleSessionRequest) (*api.ScheduleSessionResponse, error)
	ListTimeSlots(context.Context, *api.ListTimeSlotsRequest) (*api.ListTimeSlotsResponse, error)
}

var _ SessionServiceServer = (*Handler)(nil)

// unary adapts a typed method to grpc.MethodHandler.
func unary[Req, Resp any](fullMethod string, call func(SessionServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(SessionServiceServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*Req))
		})
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: api.ServiceName,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListMentees", Handler: unary(api.MethodListMentees, SessionServiceServer.ListMentees)},
		{MethodName: "ListMentors", Handler: unary(api.MethodListMentors, SessionServiceServer.ListMentors)},
		{MethodName: "ListSessions", Handler: unary(api.MethodListSessions, SessionServiceServer.ListSessions)},
		{MethodName: "ScheduleSession", Handler: unary(api.MethodScheduleSession, SessionServiceServer.ScheduleSession)},
		{MethodName: "ListTimeSlots", Handler: unary(api.MethodListTimeSlots, SessionServiceServer.ListTimeSlots)},
	},
	Streams: []grpc.StreamDesc{},
}

func Register(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls mentor.v1.SessionService with the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListMentees(ctx context.Context, in *api.ListUsersRequest, opts ...grpc.CallOption) (*api.ListUsersResponse, error) {
	return invoke[api.ListUsersResponse](ctx, c.cc, api.MethodListMentees, in, opts)
}

func (c *Client) ListMentors(ctx context.Context, in *api.ListUsersRequest, opts ...grpc.CallOption) (*api.ListUsersResponse, error) {
	return invoke[api.ListUsersResponse](ctx, c.cc, api.MethodListMentors, in, opts)
}

func (c *Client) ListSessions(ctx context.Context, in *api.ListSessionsRequest, opts ...grpc.CallOption) (*api.ListSessionsResponse, error) {
	return invoke[api.ListSessionsResponse](ctx, c.cc, api.MethodListSessions, in, opts)
}

func (c *Client) ScheduleSession(ctx context.Context, in *api.ScheduleSessionRequest, opts ...grpc.CallOption) (*api.ScheduleSessionResponse, error) {
	return invoke[api.ScheduleSessionResponse](ctx, c.cc, api.MethodScheduleSession, in, opts)
}

func (c *Client) ListTimeSlots(ctx context.Context, in *api.ListTimeSlotsRequest, opts ...grpc.CallOption) (*api.ListTimeSlotsResponse, error) {
	return invoke[api.ListTimeSlotsResponse](ctx, c.cc, api.MethodListTimeSlots, in, opts)
}
