package notify

import (
	"fmt"

	"tourdesk/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Telegram pushes terminal sync failures to the managers' chats. It has
// no command surface: one-way notifications only.
type Telegram struct {
	bot     *tgbotapi.BotAPI
	chatIDs []int64
	logger  zerolog.Logger
}

func NewTelegram(token string, chatIDs []int64, logger *zerolog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "notify-telegram").Logger()
	}

	return &Telegram{bot: bot, chatIDs: chatIDs, logger: base}, nil
}

// NotifyTerminalFailure sends one message per configured chat. Send
// errors are logged and swallowed so a Telegram outage cannot affect the
// dispatcher pass.
func (t *Telegram) NotifyTerminalFailure(item models.SyncQueueItem, errMsg string) {
	text := FormatTerminalFailure(item, errMsg)
	for _, chatID := range t.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := t.bot.Send(msg); err != nil {
			t.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send failure notification")
		}
	}
}

// FormatTerminalFailure renders the notification text.
func FormatTerminalFailure(item models.SyncQueueItem, errMsg string) string {
	return fmt.Sprintf(
		"⚠️ Sheet sync gave up on %s #%d (%s) after %d attempts:\n%s",
		item.Model, item.RecordID, item.Action, item.Retries+1, errMsg,
	)
}
