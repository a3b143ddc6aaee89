package middleware

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"mentor-meet-api/internal/api"
	"mentor-meet-api/internal/auth"
)

type ctxKey struct{}

// methods callable without a token
var open = map[string]bool{
	"/grpc.health.v1.Health/Check": true,
	"/grpc.health.v1.Health/Watch": true,
	api.MethodListTimeSlots:        true,
}

// UserID returns the authenticated caller, set by Auth.
func UserID(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(ctxKey{}).(string)
	return uid, ok && uid != ""
}

func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, ctxKey{}, uid)
}

// Auth verifies the identity provider token on every non-open unary method.
func Auth(secret, issuer string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		ctx, err := authenticate(ctx, info.FullMethod, secret, issuer)
		if err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}

// StreamAuth is Auth for streaming methods.
func StreamAuth(secret, issuer string) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, next grpc.StreamHandler) error {
		ctx, err := authenticate(ss.Context(), info.FullMethod, secret, issuer)
		if err != nil {
			return err
		}
		return next(srv, &authedStream{ServerStream: ss, ctx: ctx})
	}
}

type authedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authedStream) Context() context.Context { return s.ctx }

func authenticate(ctx context.Context, method, secret, issuer string) (context.Context, error) {
	if open[method] {
		return ctx, nil
	}
	vals := metadata.ValueFromIncomingContext(ctx, "authorization")
	if len(vals) == 0 {
		return nil, status.Error(codes.Unauthenticated, "no token")
	}
	raw, ok := strings.CutPrefix(vals[0], "Bearer ")
	if !ok || raw == "" {
		return nil, status.Error(codes.Unauthenticated, "no token")
	}
	claims, err := auth.ParseToken(raw, secret, issuer)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "bad token")
	}
	return WithUserID(ctx, claims.UserID()), nil
}
