package main

import (
	"context"
	"time"

	"github.com/hunterwarburton/tokenlens/internal/core"
	"github.com/hunterwarburton/tokenlens/internal/logger"
	"github.com/hunterwarburton/tokenlens/internal/telegram"
)

// botService adapts the long-polling bot to go-zero's Starter/Stopper.
type botService struct {
	ctx    context.Context
	cancel context.CancelFunc
	bot    *telegram.Bot
}

func newBotService(parent context.Context, bot *telegram.Bot) *botService {
	ctx, cancel := context.WithCancel(parent)
	return &botService{ctx: ctx, cancel: cancel, bot: bot}
}

func (s *botService) Start() {
	logger.TelegramInfo("Polling for updates")
	s.bot.Start(s.ctx)
}

func (s *botService) Stop() {
	s.cancel()
}

// warmupService loads the bulk token lists once at startup so the first
// lookups that fall through to them do not pay for the download.
type warmupService struct {
	ctx      context.Context
	cancel   context.CancelFunc
	resolver core.MetadataResolver
}

func newWarmupService(parent context.Context, resolver core.MetadataResolver) *warmupService {
	ctx, cancel := context.WithCancel(parent)
	return &warmupService{ctx: ctx, cancel: cancel, resolver: resolver}
}

func (s *warmupService) Start() {
	start := time.Now()
	s.resolver.PreloadKnownLists(s.ctx)
	stats := s.resolver.Stats()
	logger.Info("Token lists warmed in %v: registry=%d jupiter=%d", time.Since(start), stats.RegistryCount, stats.JupiterCount)
}

func (s *warmupService) Stop() {
	s.cancel()
}
