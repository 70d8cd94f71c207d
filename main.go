package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"completion-proxy/config"
	"completion-proxy/instance"
	"completion-proxy/logging"
	"completion-proxy/manager"
)

var version = "dev"

func main() {
	cli, fs, err := config.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if cli.Help {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n%s", os.Args[0], fs.FlagUsages())
		return
	}
	if cli.Version {
		fmt.Println(version)
		return
	}

	logging.InitLogger(logging.ParseLevel("info", cli.Debug))
	log := logging.GetLogger()

	if err := config.LoadEnvFile(cli.EnvFile); err != nil {
		log.Fatalf("Failed to load env file: %v", err)
	}
	cfg, err := config.LoadConfig(cli.ConfigFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logging.InitLogger(logging.ParseLevel(cfg.LogLevel, cli.Debug))

	cm := manager.NewConcurrencyManager(cfg.Instances)
	defer cm.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := instance.RunAll(ctx, instance.FromConfig(cfg, cm)); err != nil {
		log.Errorf("Server failed: %v", err)
		cm.Shutdown()
		os.Exit(1)
	}
	log.Infoln("Shut down cleanly")
}
