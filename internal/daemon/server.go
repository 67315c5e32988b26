package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/matheus3301/pollchat/internal/api"
	"github.com/matheus3301/pollchat/internal/server"
	"github.com/matheus3301/pollchat/internal/uploads"
	"github.com/matheus3301/pollchat/internal/wire"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Server manages the gRPC server lifecycle for an instance daemon.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	socketPath string // empty for tcp
	logger     *zap.Logger
}

// NewServer creates a gRPC server bound to the configured address, by default
// the instance's Unix domain socket.
func NewServer(p Params, logger *zap.Logger, svc *server.Service, chatSync *api.ChatSyncService) (*Server, error) {
	network, addr := p.grpcAddr()

	var socketPath string
	if network == "unix" {
		socketPath = addr
		// Clean stale socket if it exists.
		if _, err := os.Stat(socketPath); err == nil {
			_ = os.Remove(socketPath)
		}
	}

	listener, err := net.Listen(network, addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s %s: %w", network, addr, err)
	}

	if socketPath != "" {
		if err := os.Chmod(socketPath, 0600); err != nil {
			_ = listener.Close()
			return nil, fmt.Errorf("chmod socket: %w", err)
		}
	}

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(api.AuthInterceptor(svc, logger)))
	wire.RegisterChatSyncServer(srv, chatSync)

	return &Server{
		grpcServer: srv,
		listener:   listener,
		socketPath: socketPath,
		logger:     logger,
	}, nil
}

// Addr returns the address the server is bound to.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Start begins serving gRPC requests. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("gRPC server starting", zap.Stringer("addr", s.listener.Addr()))
	return s.grpcServer.Serve(s.listener)
}

// Stop performs a graceful shutdown and removes the socket file.
func (s *Server) Stop(_ context.Context) {
	s.logger.Info("gRPC server stopping")
	s.grpcServer.GracefulStop()
	if s.socketPath != "" {
		_ = os.Remove(s.socketPath)
	}
}

// HTTPServer serves the REST API. A nil *HTTPServer means HTTP is disabled.
type HTTPServer struct {
	srv      *http.Server
	listener net.Listener
	logger   *zap.Logger
}

// NewHTTPServer binds the REST API listener. It returns nil when the listen
// address is HTTPDisabled.
func NewHTTPServer(p Params, logger *zap.Logger, svc *server.Service, signer *uploads.Signer, blobs *uploads.Dir) (*HTTPServer, error) {
	addr := p.Config.Server.HTTPListen
	if addr == HTTPDisabled || addr == "" {
		logger.Info("HTTP API disabled")
		return nil, nil
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen http %s: %w", addr, err)
	}
	return &HTTPServer{
		srv: &http.Server{
			Handler:           newRouter(p, svc, signer, blobs, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener: listener,
		logger:   logger,
	}, nil
}

// Addr returns the address the server is bound to.
func (h *HTTPServer) Addr() net.Addr { return h.listener.Addr() }

// Start serves HTTP until Stop. Blocks until stopped.
func (h *HTTPServer) Start() error {
	h.logger.Info("HTTP server starting", zap.Stringer("addr", h.listener.Addr()))
	if err := h.srv.Serve(h.listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop waits for in-flight requests until ctx expires.
func (h *HTTPServer) Stop(ctx context.Context) {
	h.logger.Info("HTTP server stopping")
	if err := h.srv.Shutdown(ctx); err != nil {
		h.logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
}
