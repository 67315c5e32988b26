package daemon

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/matheus3301/pollchat/internal/api"
	"github.com/matheus3301/pollchat/internal/config"
	"github.com/matheus3301/pollchat/internal/httpapi"
	"github.com/matheus3301/pollchat/internal/instance"
	"github.com/matheus3301/pollchat/internal/lock"
	"github.com/matheus3301/pollchat/internal/logging"
	"github.com/matheus3301/pollchat/internal/presence"
	"github.com/matheus3301/pollchat/internal/server"
	"github.com/matheus3301/pollchat/internal/store"
	"github.com/matheus3301/pollchat/internal/uploads"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// HTTPDisabled as the HTTP listen address turns the REST API off.
const HTTPDisabled = "off"

// Params holds the resolved instance configuration passed to the fx module.
type Params struct {
	InstanceName string
	Config       *config.Config
	SocketPath   string // optional override for testing; empty = use default
}

// grpcAddr returns the network and address the gRPC server listens on.
func (p Params) grpcAddr() (network, addr string) {
	addr = p.Config.Server.GRPCListen
	if p.SocketPath != "" {
		addr = p.SocketPath
	}
	if addr == "" {
		addr = instance.SocketPath(p.InstanceName)
	}
	if strings.HasPrefix(addr, "/") {
		return "unix", addr
	}
	return "tcp", addr
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	if p.Config == nil {
		p.Config = config.Default()
	}
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideLock,
			provideStore,
			providePresence,
			provideService,
			provideChatSyncService,
			provideUploads,
			NewServer,
			NewHTTPServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(instance.LogPath(p.InstanceName), p.InstanceName, p.Config.Server.Debug)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := instance.EnsureDir(p.InstanceName); err != nil {
		return nil, err
	}
	logger.Info("acquiring instance lock", zap.String("instance", p.InstanceName))
	l, err := lock.Acquire(instance.Dir(p.InstanceName))
	if err != nil {
		return nil, err
	}
	logger.Info("instance lock acquired")
	return l, nil
}

// provideStore depends on the lock so the database is never opened by two daemons.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := instance.DBPath(p.InstanceName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func providePresence(p Params, logger *zap.Logger) (presence.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ps, err := presence.Open(ctx, p.Config.Server.RedisURL)
	if err != nil {
		return nil, err
	}
	if p.Config.Server.RedisURL == "" {
		logger.Info("presence kept in memory")
	} else {
		logger.Info("presence backed by redis")
	}
	return ps, nil
}

func provideService(p Params, db *store.DB, ps presence.Store, logger *zap.Logger) *server.Service {
	return server.New(db, ps, p.Config.Server.PageSize, logger.Named("service"))
}

func provideChatSyncService(svc *server.Service, logger *zap.Logger) *api.ChatSyncService {
	return api.NewChatSyncService(svc, logger.Named("grpc"))
}

type uploadsOut struct {
	fx.Out

	Signer *uploads.Signer
	Blobs  *uploads.Dir
}

func provideUploads(p Params, logger *zap.Logger) (uploadsOut, error) {
	cfg := p.Config.Uploads
	secret := cfg.Secret
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return uploadsOut{}, err
		}
		secret = hex.EncodeToString(buf)
		logger.Warn("no upload secret configured, signed URLs will not survive a restart")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://" + p.Config.Server.HTTPListen
	}
	return uploadsOut{
		Signer: uploads.NewSigner(secret, baseURL, uploads.DefaultTTL),
		Blobs:  uploads.NewDir(instance.UploadsDir(p.InstanceName), cfg.MaxSize),
	}, nil
}

func newRouter(p Params, svc *server.Service, signer *uploads.Signer, blobs *uploads.Dir, logger *zap.Logger) http.Handler {
	return httpapi.New(svc, signer, blobs, httpapi.Options{
		AllowedOrigins: p.Config.Server.AllowedOrigins,
	}, logger.Named("http"))
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, web *HTTPServer, lk *lock.Lock, db *store.DB, ps presence.Store, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			if web != nil {
				go func() {
					if err := web.Start(); err != nil {
						logger.Error("HTTP server error", zap.Error(err))
					}
				}()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if web != nil {
				web.Stop(ctx)
			}
			srv.Stop(ctx)
			if err := ps.Close(); err != nil {
				logger.Warn("error closing presence store", zap.Error(err))
			}
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
