package grpc

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	// AccountIDHeader carries the opaque account identifier asserted by the identity provider
	AccountIDHeader = "x-account-id"

	// AccountAdminHeader carries the admin flag ("true"/"false")
	AccountAdminHeader = "x-account-admin"
)

// AuthInterceptor returns a gRPC unary server interceptor that validates
// the authorization token from request metadata.
// If the token is missing or invalid, it returns status.Unauthenticated.
// If valid, it calls the handler with the original context.
func AuthInterceptor(validToken string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		authHeaders := md.Get("authorization")
		if len(authHeaders) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization header")
		}

		if authHeaders[0] != validToken {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		return handler(ctx, req)
	}
}

// IdentityInterceptor returns a gRPC unary server interceptor that lifts the
// caller identity from request metadata into the context.
// Requests without an account id pass through anonymous; handlers that need
// an account reject them.
func IdentityInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return handler(ctx, req)
		}

		ids := md.Get(AccountIDHeader)
		if len(ids) == 0 || strings.TrimSpace(ids[0]) == "" {
			return handler(ctx, req)
		}

		identity := domain.Identity{ID: strings.TrimSpace(ids[0])}
		if flags := md.Get(AccountAdminHeader); len(flags) > 0 {
			isAdmin, err := strconv.ParseBool(flags[0])
			if err != nil {
				return nil, status.Errorf(codes.InvalidArgument, "invalid %s header: %q", AccountAdminHeader, flags[0])
			}
			identity.IsAdmin = isAdmin
		}

		return handler(domain.WithIdentity(ctx, identity), req)
	}
}

// LoggingInterceptor logs every call with its status code and latency
func LoggingInterceptor(log logger.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		if code == codes.Internal || code == codes.Unknown {
			log.Errorf("%s failed in %s: %v", info.FullMethod, time.Since(start), err)
		} else {
			log.Debugf("%s %s in %s", info.FullMethod, code, time.Since(start))
		}
		return resp, err
	}
}
