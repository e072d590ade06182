package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// zlogAdapter routes the bot library's internal logging (reconnects, debug
// traffic) into zerolog.
type zlogAdapter struct {
	l zerolog.Logger
}

var _ tgbotapi.BotLogger = zlogAdapter{}

func (a zlogAdapter) Println(v ...interface{}) {
	a.l.Debug().Msg(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (a zlogAdapter) Printf(format string, v ...interface{}) {
	a.l.Debug().Msg(strings.TrimSuffix(fmt.Sprintf(format, v...), "\n"))
}

// InstallLogger makes the bot library log through the global zerolog logger.
func InstallLogger() error {
	return tgbotapi.SetLogger(zlogAdapter{l: log.Logger.With().Str("component", "tgbotapi").Logger()})
}
