package api

import (
	"context"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const adminPasswordHeader = "X-Admin-Password"

// requireAdmin checks the shared admin password header.
// This is a placeholder gate, there are no sessions.
func (s *HTTPServer) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.deps.Admin.CheckPassword(r.Header.Get(adminPasswordHeader)) {
			s.log.Warn().Str("request_id", requestID(r.Context())).Str("path", r.URL.Path).Msg("admin request rejected")
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid admin password")
			return
		}
		next(w, r)
	}
}

// RateLimitUnaryInterceptor applies the per-peer limiter to gRPC calls.
func RateLimitUnaryInterceptor(l *rateLimiter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !l.allow(peerKey(ctx)) {
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}

func peerKey(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return clientKeyUnknown
}
