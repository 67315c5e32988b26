package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/matheus3301/pollchat/internal/bus"
	"github.com/matheus3301/pollchat/internal/client"
	"github.com/matheus3301/pollchat/internal/config"
	"github.com/matheus3301/pollchat/internal/instance"
	"github.com/matheus3301/pollchat/internal/logging"
	intsync "github.com/matheus3301/pollchat/internal/sync"
	"github.com/matheus3301/pollchat/internal/tui"
	"github.com/matheus3301/pollchat/internal/tui/model"
	"github.com/matheus3301/pollchat/internal/wire"
	"go.uber.org/zap"
)

func main() {
	instanceFlag := flag.String("instance", "", "instance name (overrides config default)")
	configFlag := flag.String("config", "", "config file (default ~/.pollchat/config.toml)")
	tokenFlag := flag.String("token", "", "bearer token (overrides [client] token)")
	debugFlag := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	cfgPath := *configFlag
	if cfgPath == "" {
		cfgPath = instance.ConfigPath()
	}
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		fatalf("load config: %v", err)
	}
	if *tokenFlag != "" {
		cfg.Client.Token = *tokenFlag
	}
	if cfg.Client.Token == "" {
		fatalf("no token configured; issue one with `pollctl token <username>` and set [client] token in %s", cfgPath)
	}

	instanceName := *instanceFlag
	if instanceName == "" {
		instanceName = cfg.DefaultInstance
	}
	if err := instance.ValidateName(instanceName); err != nil {
		fatalf("%v", err)
	}

	logger, err := logging.NewFile(instance.ClientLogPath(instanceName), instanceName, *debugFlag)
	if err != nil {
		fatalf("open log: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	target := instance.ClientTarget(cfg, instanceName)
	c, err := client.New(target, cfg.Client.Token)
	if err != nil {
		fatalf("connect to %s: %v", target, err)
	}
	defer func() { _ = c.Close() }()

	// Probe the server; auto-start the local daemon if needed.
	pong, err := probe(c)
	if err != nil && strings.HasPrefix(target, "/") {
		fmt.Fprintf(os.Stderr, "daemon not running for instance %q, starting...\n", instanceName)
		if err := startDaemon(instanceName, *configFlag); err != nil {
			fatalf("failed to start daemon: %v", err)
		}
		pong, err = waitForDaemon(c, 10*time.Second)
	}
	if err != nil {
		fatalf("server %s not reachable: %v", target, err)
	}

	var since time.Time
	if !cfg.Poll.Replay {
		since = pong.Time.AsTime()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	me, err := c.Me(ctx)
	cancel()
	if errors.Is(err, wire.ErrUnauthorized) {
		fatalf("token rejected by %s", target)
	}
	if err != nil {
		fatalf("%v", err)
	}

	b := bus.New()
	engine := intsync.NewEngine(c, b, logger.Named("sync"), intsync.Options{
		UserID: me.ID,
		Since:  since,
		Intervals: intsync.Intervals{
			Fast:       cfg.Poll.Fast.Duration,
			Background: cfg.Poll.Background.Duration,
			Recheck:    cfg.Poll.Recheck.Duration,
		},
		AutoDelivered: cfg.Poll.AutoDelivered,
		AutoSeen:      cfg.Poll.AutoSeen,
	})
	logger.Info("starting terminal client",
		zap.String("server", target),
		zap.String("user", me.Username),
		zap.Time("since", since))

	vm := model.NewViewModel(c, engine)
	app := tui.NewApp(vm, engine, b, logger, instanceName, target)
	if err := app.Run(); err != nil {
		fatalf("%v", err)
	}
}

func probe(c *client.Client) (*wire.PingResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.Ping(ctx)
}

func startDaemon(instanceName, configPath string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	pollchatd := filepath.Join(filepath.Dir(executable), "pollchatd")

	if _, err := os.Stat(pollchatd); err != nil {
		pollchatd = "pollchatd"
	}

	args := []string{"--instance", instanceName}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	cmd := exec.Command(pollchatd, args...)
	// Inherit stderr so daemon startup errors are visible.
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

// waitForDaemon pings until the daemon answers or timeout passes.
func waitForDaemon(c *client.Client, timeout time.Duration) (*wire.PingResponse, error) {
	deadline := time.Now().Add(timeout)
	for {
		pong, err := probe(c)
		if err == nil || time.Now().After(deadline) {
			return pong, err
		}
		time.Sleep(300 * time.Millisecond)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
