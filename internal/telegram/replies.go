package telegram

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/hunterwarburton/tokenlens/internal/logger"
	"github.com/hunterwarburton/tokenlens/internal/tools"
)

const (
	maxMessageLen = 4096
	maxCaptionLen = 1024
)

// sendResult replies with the token logo as a photo when the result has one
// and the caption fits, falling back to plain text if Telegram rejects the
// image URL.
func (b *Bot) sendResult(ctx context.Context, chatID int64, result *tools.Result) {
	if result.PhotoURL != "" && len(result.Text) <= maxCaptionLen {
		_, err := b.api.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:  chatID,
			Photo:   &models.InputFileString{Data: result.PhotoURL},
			Caption: result.Text,
		})
		if err == nil {
			return
		}
		logger.TelegramWarn("Chat[%d]: Failed to send logo %s: %v. Sending text instead.", chatID, result.PhotoURL, err)
	}
	b.sendText(ctx, chatID, result.Text)
}

// sendText sends text, split into chunks Telegram accepts.
func (b *Bot) sendText(ctx context.Context, chatID int64, text string) {
	for _, chunk := range splitMessage(text, maxMessageLen) {
		if _, err := b.api.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   chunk,
		}); err != nil {
			logger.TelegramError("Chat[%d]: Failed to send message: %v", chatID, err)
			return
		}
	}
}

// splitMessage breaks text on line boundaries into pieces of at most limit
// bytes. A single line longer than limit is cut hard.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	var current strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			chunks = append(chunks, line[:limit])
			line = line[limit:]
		}
		if current.Len()+len(line) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
