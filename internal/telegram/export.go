package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/tbourn/tg-message-logger/internal/services"
)

const (
	unauthorizedText = "Unauthorized. This command is for admins only."
	rateLimitedText  = "Too many export requests. Please wait a minute and try again."
	noMatchesText    = "No messages found for that user with the given filters."
	exportFailedText = "Export failed. Please try again later."
	dmNoticeText     = "I will send the exported JSON file to your private chat with me."
)

// handleExport serves /export_messages for admins.
func (s *BotService) handleExport(ctx context.Context, msg *tgbotapi.Message) {
	l := zerolog.Ctx(ctx)

	if msg.From == nil || !s.AdminIDs.Has(msg.From.ID) {
		s.reply(ctx, msg, unauthorizedText)
		return
	}

	req, err := parseExportArgs(msg.CommandArguments())
	if errors.Is(err, errNoArgs) {
		s.reply(ctx, msg, usageText)
		return
	}
	if err != nil {
		s.reply(ctx, msg, argErrorText)
		return
	}

	if s.Limiter != nil {
		ok, err := s.Limiter.Allow(ctx, limiterKey(msg.From.ID))
		switch {
		case err != nil:
			l.Warn().Err(err).Msg("rate limiter unavailable, allowing export")
		case !ok:
			s.reply(ctx, msg, rateLimitedText)
			return
		}
	}

	msgs, err := s.Export.Export(ctx, req)
	if err != nil {
		if services.IsInvalidRequest(err) {
			s.reply(ctx, msg, argErrorText)
			return
		}
		l.Error().Err(err).Msg("export query failed")
		s.reply(ctx, msg, exportFailedText)
		return
	}
	if len(msgs) == 0 {
		s.reply(ctx, msg, noMatchesText)
		return
	}

	body, err := services.MarshalExport(msgs)
	if err != nil {
		l.Error().Err(err).Msg("export encode failed")
		s.reply(ctx, msg, exportFailedText)
		return
	}

	if !msg.Chat.IsPrivate() {
		s.reply(ctx, msg, dmNoticeText)
	}

	key := services.IdentityKey(req.Identity)
	doc := tgbotapi.NewDocument(msg.From.ID, tgbotapi.FileBytes{
		Name:  services.ExportFilename(req.Identity),
		Bytes: body,
	})
	doc.Caption = s.caption(key, len(msgs))
	if _, err := s.Sender.Send(doc); err != nil {
		l.Warn().Err(err).Msg("export delivery failed")
		s.reply(ctx, msg, deliveryFailedText(err))
		return
	}
	l.Info().Str("identity", key).Int("count", len(msgs)).Msg("export delivered")
}
