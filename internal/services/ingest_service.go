// Package services – IngestService
//
// IngestService turns an inbound group message into a stored record. It is
// called concurrently, once per update, by the Telegram worker group; it keeps
// no state of its own and relies on the store for write coordination.

package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/tg-message-logger/internal/config"
	"github.com/tbourn/tg-message-logger/internal/domain"
	"github.com/tbourn/tg-message-logger/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// IncomingMessage is the transport-neutral view of a group message.
// Empty profile strings are stored as NULL.
type IncomingMessage struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
	ChatID    int64
	ChatTitle string
	Text      string
	SentAt    time.Time
}

// IngestService appends messages from allowed chats.
type IngestService struct {
	DB           *gorm.DB
	AllowedChats config.IDSet
}

// Ingest stores in as a new message and returns the stored record with its
// assigned id. Messages from chats outside the allow-list are rejected with
// ErrChatNotAllowed; a zero SentAt is replaced by the current time.
func (s *IngestService) Ingest(ctx context.Context, in IncomingMessage) (*domain.Message, error) {
	tr := otel.Tracer("services/IngestService")
	ctx, span := tr.Start(ctx, "Ingest",
		trace.WithAttributes(
			attribute.Int64("chat.id", in.ChatID),
			attribute.Int64("user.id", in.UserID),
		),
	)
	defer span.End()

	if !s.AllowedChats.Has(in.ChatID) {
		return nil, ErrChatNotAllowed
	}
	if in.UserID == 0 {
		return nil, ErrMissingSender
	}

	sentAt := in.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}

	m := &domain.Message{
		UserID:      in.UserID,
		Username:    domain.OptionalString(in.Username),
		FirstName:   domain.OptionalString(in.FirstName),
		LastName:    domain.OptionalString(in.LastName),
		ChatID:      in.ChatID,
		ChatTitle:   domain.OptionalString(in.ChatTitle),
		MessageText: in.Text,
		Timestamp:   domain.FormatTimestamp(sentAt),
	}
	if err := repo.AppendMessage(ctx, s.DB, m); err != nil {
		appendFailures.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		return nil, err
	}
	messagesIngested.Inc()
	span.SetAttributes(attribute.Int64("message.id", m.ID))
	return m, nil
}
