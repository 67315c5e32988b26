package instance

import "github.com/matheus3301/pollchat/internal/config"

// ClientTarget returns the server address clients of instance name dial:
// the configured client server, then the daemon's configured gRPC listen
// address, then the instance socket.
func ClientTarget(cfg *config.Config, name string) string {
	if cfg.Client.Server != "" {
		return cfg.Client.Server
	}
	if cfg.Server.GRPCListen != "" {
		return cfg.Server.GRPCListen
	}
	return SocketPath(name)
}
