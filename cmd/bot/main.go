package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	zerosvc "github.com/zeromicro/go-zero/core/service"

	"github.com/hunterwarburton/tokenlens/internal/auth"
	"github.com/hunterwarburton/tokenlens/internal/config"
	"github.com/hunterwarburton/tokenlens/internal/logger"
	"github.com/hunterwarburton/tokenlens/internal/svc"
	"github.com/hunterwarburton/tokenlens/internal/telegram"
	"github.com/hunterwarburton/tokenlens/internal/tools"
)

func main() {
	// Parse command line flags
	debug := flag.Bool("debug", false, "Enable debug logging")
	configFile := flag.String("f", "tokenlens.yaml", "Path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		// The logger is not configured yet; the nop default would drop this.
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Options{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		LogDir:   cfg.Log.LogDir,
		Compress: cfg.Log.Compress,
		Debug:    *debug,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting bot...")

	if cfg.Telegram.Token == "" {
		logger.Error("TG_BOT_TOKEN environment variable is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Initializing services...")
	sc, err := svc.NewServiceContext(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize services: %v", err)
		os.Exit(1)
	}
	defer sc.Close()

	policyService := auth.NewPolicyService(cfg.Telegram.AdminUserIDs, cfg.Telegram.AllowedUserIDs)
	router := tools.NewCommandRouter(policyService, sc.Resolver, sc.Portfolio)

	bot, err := telegram.NewBot(cfg.Telegram.Token, router, policyService)
	if err != nil {
		logger.Error("Failed to initialize Telegram bot: %v", err)
		os.Exit(1)
	}

	sg := zerosvc.NewServiceGroup()
	sg.Add(newBotService(ctx, bot))
	sg.Add(newWarmupService(ctx, sc.Resolver))

	logger.Info("Starting services...")
	go sg.Start()

	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down services...")
	sg.Stop()
	logger.Info("Bot has been shut down")
}
