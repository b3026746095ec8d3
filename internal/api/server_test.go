package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"roomreserve/internal/config"
)

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(context.Context) error { return p.err }

func TestGRPCHealthFollowsStorage(t *testing.T) {
	logger := zerolog.New(io.Discard)
	storage := &fakePinger{}
	cfg := &config.APIConfig{GRPC: config.APIGRPCConfig{Enabled: true, Port: 0}}

	srv, err := NewGRPCServer(cfg, storage, &logger)
	require.NoError(t, err)
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	port := srv.listener.Addr().(*net.TCPAddr).Port
	conn, err := grpc.NewClient(fmt.Sprintf("127.0.0.1:%d", port), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv.CheckStorage(ctx)
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	storage.err = errors.New("database is closed")
	srv.CheckStorage(ctx)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}

func TestBuildTLSConfigRequiresFiles(t *testing.T) {
	_, err := buildTLSConfig(config.APITLSConfig{Enabled: true})
	assert.Error(t, err)

	_, err = buildTLSConfig(config.APITLSConfig{Enabled: true, CertFile: "missing.pem", KeyFile: "missing.key"})
	assert.Error(t, err)
}

func TestUnaryInterceptors(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	ok := func(_ context.Context, _ any) (any, error) { return "ok", nil }
	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 5000}})

	t.Run("RateLimit", func(t *testing.T) {
		interceptor := RateLimitUnaryInterceptor(newRateLimiter(config.APIRateLimitConfig{RPS: 0.001, Burst: 1}))

		resp, err := interceptor(ctx, "req", info, ok)
		require.NoError(t, err)
		assert.Equal(t, "ok", resp)

		_, err = interceptor(ctx, "req", info, ok)
		assert.Equal(t, codes.ResourceExhausted, status.Code(err))
	})

	t.Run("Recovery", func(t *testing.T) {
		logger := zerolog.New(io.Discard)
		panicking := func(context.Context, any) (any, error) { panic("boom") }

		_, err := RecoveryUnaryInterceptor(&logger)(ctx, "req", info, panicking)
		assert.Equal(t, codes.Internal, status.Code(err))
	})

	t.Run("ChainOrder", func(t *testing.T) {
		var order []string
		mark := func(name string) grpc.UnaryServerInterceptor {
			return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
				order = append(order, name)
				return handler(ctx, req)
			}
		}

		chain := ChainUnaryInterceptors(mark("first"), mark("second"), LoggingUnaryInterceptor(nil))
		resp, err := chain(ctx, "req", info, ok)
		require.NoError(t, err)
		assert.Equal(t, "ok", resp)
		assert.Equal(t, []string{"first", "second"}, order)
	})
}
