// Package telegram connects the message store to the Telegram Bot API.
//
// BotService consumes long-polling updates, logs every message posted in an
// allowed group and serves the admin-only /export_messages command, which
// delivers the requested history as a JSON document in the admin's private
// chat.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tbourn/tg-message-logger/internal/config"
	"github.com/tbourn/tg-message-logger/internal/domain"
	"github.com/tbourn/tg-message-logger/internal/services"
	"github.com/tbourn/tg-message-logger/internal/throttle"
)

// Sender is the subset of *tgbotapi.BotAPI used to reply and deliver files.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Ingestor stores a group message.
type Ingestor interface {
	Ingest(ctx context.Context, in services.IncomingMessage) (*domain.Message, error)
}

// Exporter runs an export query.
type Exporter interface {
	Export(ctx context.Context, req services.ExportRequest) ([]domain.Message, error)
}

// BotService routes Telegram updates to the ingest and export services.
type BotService struct {
	Sender       Sender
	Ingest       Ingestor
	Export       Exporter
	AllowedChats config.IDSet
	AdminIDs     config.IDSet
	Limiter      throttle.Limiter // optional
	Workers      int              // max concurrently handled updates; <1 means 1
	BotUsername  string           // commands addressed to another bot are ignored

	printer *message.Printer
}

// NewBotService wires a BotService from config.
func NewBotService(sender Sender, ingest Ingestor, export Exporter, lim throttle.Limiter, cfg config.Config, botUsername string) *BotService {
	return &BotService{
		Sender:       sender,
		Ingest:       ingest,
		Export:       export,
		AllowedChats: cfg.AllowedChats,
		AdminIDs:     cfg.AdminIDs,
		Limiter:      lim,
		Workers:      cfg.Bot.Workers,
		BotUsername:  botUsername,
		printer:      message.NewPrinter(language.English),
	}
}

// Run handles updates until ctx is cancelled or the channel is closed, at
// most Workers at a time. Updates already dispatched are allowed to finish
// (their writes are not cancelled) before Run returns.
func (s *BotService) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	workers := s.Workers
	if workers < 1 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)

	// In-flight handlers outlive ctx so a shutdown never aborts a half-done append.
	hctx := context.WithoutCancel(ctx)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case u, ok := <-updates:
			if !ok {
				break loop
			}
			g.Go(func() error {
				s.HandleUpdate(hctx, u)
				return nil
			})
		}
	}

	err := g.Wait()
	log.Info().Msg("telegram update loop stopped")
	return err
}

// HandleUpdate processes a single update. It never panics: a failing
// handler is logged and the update dropped.
func (s *BotService) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	msg := u.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	l := log.With().
		Int("update_id", u.UpdateID).
		Int64("chat_id", msg.Chat.ID).
		Logger()
	if msg.From != nil {
		l = l.With().Int64("user_id", msg.From.ID).Logger()
	}
	ctx = l.WithContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			l.Error().Interface("panic", r).Msg("telegram handler panic")
		}
	}()

	if s.AllowedChats.Has(msg.Chat.ID) {
		s.logGroupMessage(ctx, msg)
	}
	if msg.IsCommand() && msg.Command() == exportCommand && s.addressedToUs(msg) {
		s.handleExport(ctx, msg)
	}
}

// logGroupMessage appends msg to the store. Failures are logged and the
// message is dropped.
func (s *BotService) logGroupMessage(ctx context.Context, msg *tgbotapi.Message) {
	l := zerolog.Ctx(ctx)
	if msg.From == nil {
		l.Debug().Msg("skipping message without sender")
		return
	}

	in := services.IncomingMessage{
		UserID:    msg.From.ID,
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
		ChatID:    msg.Chat.ID,
		ChatTitle: msg.Chat.Title,
		Text:      messageText(msg),
	}
	if msg.Date != 0 {
		in.SentAt = msg.Time()
	}

	stored, err := s.Ingest.Ingest(ctx, in)
	if err != nil {
		if errors.Is(err, services.ErrChatNotAllowed) || errors.Is(err, services.ErrMissingSender) {
			l.Debug().Err(err).Msg("message not logged")
			return
		}
		l.Error().Err(err).Int("message_id", msg.MessageID).Msg("append failed, message dropped")
		return
	}
	l.Debug().Int64("stored_id", stored.ID).Msg("message logged")
}

// messageText returns the text, else the media caption, else "".
func messageText(msg *tgbotapi.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

// addressedToUs reports whether a command is meant for this bot: either no
// @mention, or a mention of our own username.
func (s *BotService) addressedToUs(msg *tgbotapi.Message) bool {
	cmd := msg.CommandWithAt()
	at := len(msg.Command())
	if at >= len(cmd) || s.BotUsername == "" {
		return true
	}
	return strings.EqualFold(cmd[at+1:], s.BotUsername)
}

func (s *BotService) reply(ctx context.Context, msg *tgbotapi.Message, text string) {
	r := tgbotapi.NewMessage(msg.Chat.ID, text)
	r.ReplyToMessageID = msg.MessageID
	if _, err := s.Sender.Send(r); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("reply failed")
	}
}

func (s *BotService) caption(key string, n int) string {
	p := s.printer
	if p == nil {
		p = message.NewPrinter(language.English)
	}
	return p.Sprintf("Messages export for %s: %d messages (sorted newest first).", key, n)
}

func limiterKey(userID int64) string {
	return "tg:" + strconv.FormatInt(userID, 10)
}

func deliveryFailedText(err error) string {
	return fmt.Sprintf("Failed to send file to admin's DM: %v", err)
}
