package api

import (
	"context"
	"strings"

	"github.com/matheus3301/pollchat/internal/server"
	"github.com/matheus3301/pollchat/internal/wire"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Authenticator resolves bearer tokens to user IDs.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// publicMethods can be called without a token.
var publicMethods = map[string]bool{
	wire.FullMethod("Ping"): true,
}

// AuthInterceptor resolves the "authorization: Bearer <token>" metadata to a
// user ID and stores it on the context for server.Service.
func AuthInterceptor(auth Authenticator, logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		userID, err := auth.Authenticate(ctx, bearerToken(ctx))
		if err != nil {
			logger.Debug("rejected call", zap.String("method", info.FullMethod), zap.Error(err))
			return nil, wire.ToStatus(err)
		}
		return handler(server.WithUserID(ctx, userID), req)
	}
}

func bearerToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, v := range md.Get("authorization") {
		if token, ok := strings.CutPrefix(v, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return ""
}
