// Package services – ExportService
//
// ExportService answers "what did this user say" queries for admins. It
// applies the process-wide chat allow-list and default limit on top of the
// caller's filters and delegates the query itself to internal/repo.
//
// Observability: public methods are OpenTelemetry-instrumented and feed the
// msglogger_exports_total counter.

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
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

// ExportRequest carries the caller's filters. Nil fields are not applied.
// Limit nil means the configured default; a zero limit means unbounded.
type ExportRequest struct {
	Identity string
	ChatID   *int64
	Start    *string
	End      *string
	Limit    *int
}

// ExportService runs export queries restricted to allowed chats.
type ExportService struct {
	DB           *gorm.DB
	AllowedChats config.IDSet
	DefaultLimit int // 0 = unbounded
}

// Export returns the identity's messages newest first. An identity with no
// messages, or filters that exclude everything, yields an empty slice.
func (s *ExportService) Export(ctx context.Context, req ExportRequest) ([]domain.Message, error) {
	tr := otel.Tracer("services/ExportService")
	ctx, span := tr.Start(ctx, "Export",
		trace.WithAttributes(attribute.String("export.identity", req.Identity)),
	)
	defer span.End()

	q, err := s.query(req)
	if err != nil {
		exportsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	span.SetAttributes(attribute.Int("export.limit", q.Limit))

	msgs, err := repo.QueryMessages(ctx, s.DB, q)
	if err != nil {
		exportsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("export.count", len(msgs)))
	if len(msgs) == 0 {
		exportsTotal.WithLabelValues("empty").Inc()
	} else {
		exportsTotal.WithLabelValues("ok").Inc()
		exportRows.Observe(float64(len(msgs)))
	}
	return msgs, nil
}

// Fingerprint returns the number of messages matching req's filters (the
// limit is ignored) and the highest matching id. Because the store is
// append-only, the pair changes whenever the result of Export would.
func (s *ExportService) Fingerprint(ctx context.Context, req ExportRequest) (count, maxID int64, err error) {
	tr := otel.Tracer("services/ExportService")
	ctx, span := tr.Start(ctx, "Fingerprint")
	defer span.End()

	q, err := s.query(req)
	if err != nil {
		return 0, 0, err
	}
	return repo.ExportStats(ctx, s.DB, q)
}

// IdentityKey returns the normalized identity used in filenames and
// captions: surrounding space and a leading '@' removed.
func IdentityKey(identity string) string {
	return strings.TrimPrefix(strings.TrimSpace(identity), "@")
}

// query validates req and maps it onto a repo.ExportQuery.
func (s *ExportService) query(req ExportRequest) (repo.ExportQuery, error) {
	key := IdentityKey(req.Identity)
	if _, err := repo.ParseIdentity(key); err != nil {
		return repo.ExportQuery{}, fmt.Errorf("%w: %q", ErrInvalidIdentity, req.Identity)
	}

	q := repo.ExportQuery{
		Identity:     key,
		AllowedChats: s.AllowedChats.Slice(),
		ChatID:       req.ChatID,
		Limit:        s.DefaultLimit,
	}
	if req.Limit != nil {
		if *req.Limit < 0 {
			return repo.ExportQuery{}, ErrInvalidLimit
		}
		q.Limit = *req.Limit
	}

	var err error
	if q.Start, err = normalizeBound(req.Start, true); err != nil {
		return repo.ExportQuery{}, err
	}
	if q.End, err = normalizeBound(req.End, false); err != nil {
		return repo.ExportQuery{}, err
	}
	return q, nil
}

// normalizeBound converts a bound to stored-timestamp form. Stored values
// have whole-second precision, so a fractional start rounds up to the next
// second and a fractional end rounds down; both keep the bound inclusive of
// exactly the rows at or inside it.
func normalizeBound(p *string, start bool) (*string, error) {
	if p == nil {
		return nil, nil
	}
	t, err := domain.ParseInstant(*p)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimestamp, *p)
	}
	if whole := t.Truncate(time.Second); start && !whole.Equal(t) {
		t = whole.Add(time.Second)
	}
	ts := domain.FormatTimestamp(t)
	return &ts, nil
}

// IsInvalidRequest reports whether err is a caller mistake rather than a
// store failure.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidIdentity) ||
		errors.Is(err, ErrInvalidTimestamp) ||
		errors.Is(err, ErrInvalidLimit)
}

// MarshalExport renders msgs as the downloadable export document: a JSON
// array, two-space indented, newest first. Non-ASCII text and HTML
// characters are written verbatim.
func MarshalExport(msgs []domain.Message) ([]byte, error) {
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return json.MarshalIndentWithOption(msgs, "", "  ", json.DisableHTMLEscape())
}

// ExportFilename returns the attachment name for an identity's export.
func ExportFilename(identity string) string {
	return "messages_" + sanitizeFilename(IdentityKey(identity)) + ".json"
}

// sanitizeFilename keeps usernames and ids intact (they are [A-Za-z0-9_]) and
// replaces anything else so the name is safe in a Content-Disposition header.
func sanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
