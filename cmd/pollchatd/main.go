package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/pollchat/internal/config"
	"github.com/matheus3301/pollchat/internal/daemon"
	"github.com/matheus3301/pollchat/internal/instance"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	instanceFlag := flag.String("instance", "", "instance name (overrides config default)")
	configFlag := flag.String("config", "", "config file (default ~/.pollchat/config.toml)")
	debugFlag := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	cfgPath := *configFlag
	if cfgPath == "" {
		cfgPath = instance.ConfigPath()
	}
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load config: %v\n", err)
		os.Exit(1)
	}
	if *debugFlag {
		cfg.Server.Debug = true
	}

	instanceName := *instanceFlag
	if instanceName == "" {
		instanceName = cfg.DefaultInstance
	}
	if err := instance.ValidateName(instanceName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{InstanceName: instanceName, Config: cfg}),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
	)

	app.Run()
}
