package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/hunterwarburton/tokenlens/internal/logger"
	"github.com/hunterwarburton/tokenlens/internal/tools"
)

// commandTimeout bounds a single command, including list downloads and RPC.
const commandTimeout = 60 * time.Second

// CommandRouter defines the interface for executing user commands.
type CommandRouter interface {
	ExecuteCommand(ctx context.Context, userID int64, cmd tools.Command) (*tools.Result, error)
}

// PolicyService defines the interface for checking user permissions.
type PolicyService interface {
	IsAllowed(userID int64) bool
}

// sender is the subset of *bot.Bot used to reply.
type sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}

// Bot represents a Telegram bot.
type Bot struct {
	bot           *bot.Bot
	api           sender
	router        CommandRouter
	policyService PolicyService
}

// NewBot creates a new bot instance.
func NewBot(token string, router CommandRouter, policyService PolicyService) (*Bot, error) {
	b := &Bot{
		router:        router,
		policyService: policyService,
	}

	// Initialize the bot with our handler
	botAPI, err := bot.New(token, bot.WithDefaultHandler(b.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}

	b.bot = botAPI
	b.api = botAPI
	return b, nil
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	b.bot.Start(ctx)
}

// handleUpdate handles a Telegram update.
func (b *Bot) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	message := update.Message
	chatID := message.Chat.ID
	userID := message.From.ID

	if message.Text == "" || message.Text[0] != '/' {
		logger.TelegramDebug("Chat[%d] User[%d]: Ignored non-command message.", chatID, userID)
		return
	}
	if !b.policyService.IsAllowed(userID) {
		logger.TelegramWarn("Chat[%d] User[%d]: Rejected message from user not on the allow list.", chatID, userID)
		b.sendText(ctx, chatID, "Sorry, you are not allowed to use this bot.")
		return
	}

	b.handleCommand(ctx, chatID, userID, tools.ParseCommand(message.Text))
}

// handleCommand processes a command message.
func (b *Bot) handleCommand(ctx context.Context, chatID, userID int64, cmd tools.Command) {
	logger.TelegramInfo("Chat[%d] User[%d]: Received command: /%s", chatID, userID, cmd.Name)

	switch cmd.Name {
	case "start", "help":
		b.sendText(ctx, chatID, helpText)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	done := make(chan struct{})
	go b.sendContinuousTypingAction(ctx, chatID, done)
	result, err := b.router.ExecuteCommand(ctx, userID, cmd)
	close(done)

	switch {
	case errors.Is(err, tools.ErrNotAllowed):
		b.sendText(ctx, chatID, "That command is for admins only.")
	case err != nil:
		b.sendText(ctx, chatID, fmt.Sprintf("%v\n\nTry /help to see available commands.", err))
	default:
		b.sendResult(ctx, chatID, result)
	}
}

const helpText = `Token metadata lookup.

Commands:
/token <address> - Symbol, name, decimals and logo of a token
/tokens <address> [address...] - Look up several tokens at once
/holdings <wallet or name.sol> - SPL tokens held by a wallet
/stats - Cache and token list statistics
/preload - Load the token registry and Jupiter lists (admin)
/clearcache - Drop all cached metadata (admin)
/help - Show this help message`

// sendContinuousTypingAction sends the typing action periodically until the done channel is closed
func (b *Bot) sendContinuousTypingAction(ctx context.Context, chatID int64, done chan struct{}) {
	ticker := time.NewTicker(4 * time.Second) // Telegram typing status lasts ~5 seconds
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if _, err := b.api.SendChatAction(ctx, &bot.SendChatActionParams{
				ChatID: chatID,
				Action: "typing",
			}); err != nil {
				logger.TelegramDebug("Chat[%d]: typing action failed: %v", chatID, err)
			}
		case <-ctx.Done():
			logger.TelegramDebug("Chat[%d]: Context cancelled, stopping typing action.", chatID)
			return
		}
	}
}
