package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/tg-message-logger/internal/config"
)

// NewClient authenticates against the Bot API with the configured token.
func NewClient(cfg config.BotConfig) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	bot.Debug = cfg.Debug
	log.Info().Str("bot", bot.Self.UserName).Msg("authorized on telegram")
	return bot, nil
}

// StartPolling starts long polling and returns the update channel. With
// SkipPending the backlog accumulated while the bot was offline is dropped
// first. Stop with bot.StopReceivingUpdates.
func StartPolling(bot *tgbotapi.BotAPI, cfg config.BotConfig) (tgbotapi.UpdatesChannel, error) {
	if cfg.SkipPending {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
			return nil, fmt.Errorf("drop pending updates: %w", err)
		}
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(cfg.PollTimeout.Seconds())
	u.AllowedUpdates = []string{"message"}
	return bot.GetUpdatesChan(u), nil
}
