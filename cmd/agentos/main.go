package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/Harshitk-cp/agente-basico/internal/agentos"
	"github.com/Harshitk-cp/agente-basico/internal/app"
	"github.com/Harshitk-cp/agente-basico/internal/buildconfig"
	"github.com/Harshitk-cp/agente-basico/internal/config"
	"github.com/Harshitk-cp/agente-basico/internal/reload"
	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	"go.uber.org/zap"
)

var (
	cli = kingpin.New("agentos", "Agente Básico served by AgentOS")

	serveCmd      = cli.Command("serve", "Start the AgentOS server").Default()
	serveHost     = serveCmd.Flag("host", "Address to bind to").Envar("AGENTOS_HOST").Default(agentos.DefaultHost).String()
	servePort     = serveCmd.Flag("port", "Port to bind to").Envar("AGENTOS_PORT").Default(strconv.Itoa(agentos.DefaultPort)).Int()
	serveReload   = serveCmd.Flag("reload", "Restart the server when the binary or .env changes").Default("true").Bool()
	serveNoBanner = serveCmd.Flag("no-banner", "Do not print the startup banner").Hidden().Bool()

	checkCmd = cli.Command("check", "Build the agent and AgentOS and print their ids")
)

func main() {
	if err := config.Load(); err != nil {
		fatal(err)
	}

	cli.Version(buildconfig.Version())
	command := kingpin.MustParse(cli.Parse(os.Args[1:]))

	settings, err := config.Get()
	if err != nil {
		fatal(err)
	}

	logger, err := newLogger(settings)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case serveCmd.FullCommand():
		settings.Host = *serveHost
		settings.Port = *servePort
		err = runServe(ctx, logger, settings)
	case checkCmd.FullCommand():
		err = runCheck(ctx, logger, settings)
	}
	if err != nil {
		stop()
		fatal(err)
	}
}

func runServe(ctx context.Context, logger *zap.Logger, settings *config.Settings) error {
	a, err := app.Build(ctx, logger, settings)
	if err != nil {
		return err
	}

	if !*serveNoBanner {
		printBanner(color.Output, a, settings)
	}

	if *serveReload {
		if settings.ReloadAllowed() {
			_ = a.Close()
			return supervise(ctx, logger, settings)
		}
		logger.Warn("hot reload is disabled in production", zap.String("env", settings.Environment().String()))
	}

	return a.OS.Serve(ctx, agentos.ServeOptions{Host: settings.Host, Port: settings.Port})
}

// supervise re-executes this binary as "serve --no-reload" and restarts it
// when the binary or the env file changes.
func supervise(ctx context.Context, logger *zap.Logger, settings *config.Settings) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	sup, err := reload.New(reload.Options{
		Command: exe,
		Args: []string{
			"serve", "--no-reload", "--no-banner",
			"--host", settings.Host,
			"--port", strconv.Itoa(settings.Port),
		},
		WatchFiles: []string{exe, config.EnvFile()},
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	logger.Info("hot reload enabled", zap.String("env_file", config.EnvFile()))
	return sup.Run(ctx)
}

func runCheck(ctx context.Context, logger *zap.Logger, settings *config.Settings) error {
	a, err := app.Build(ctx, logger, settings)
	if err != nil {
		return err
	}
	defer a.Close()

	printCheck(color.Output, a)
	return nil
}

func fatal(err error) {
	color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "[ERRO] %v\n", err)
	os.Exit(1)
}
