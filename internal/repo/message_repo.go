// Package repo implements the data persistence layer for logged messages,
// backed by GORM. This file provides the append path and the export query.
package repo

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/tg-message-logger/internal/domain"
)

// exportColumns lists the selected columns. message_text is coalesced because
// rows written by earlier deployments may hold NULL there.
const exportColumns = "id, user_id, username, first_name, last_name, chat_id, chat_title, " +
	"COALESCE(message_text, '') AS message_text, timestamp"

// Identity is a parsed user reference: either a numeric user id or an exact
// username.
type Identity struct {
	UserID   int64
	Username string
	ByID     bool
}

// ParseIdentity disambiguates a raw identity string. A string made only of
// ASCII decimal digits matches user_id; anything else matches username
// exactly (case-sensitive, no normalization).
func ParseIdentity(raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, ErrInvalidIdentity
	}
	if !isDigits(raw) {
		return Identity{Username: raw}, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidIdentity, err)
	}
	return Identity{UserID: id, ByID: true}, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ExportQuery describes one export read. All supplied predicates compose
// with AND.
//
//   - Identity: user id or username, see ParseIdentity.
//   - AllowedChats: restricts chat_id when non-empty. An explicit ChatID
//     outside this set yields no rows.
//   - ChatID: optional single-chat restriction.
//   - Start, End: optional inclusive bounds in canonical timestamp form.
//   - Limit: maximum rows; <= 0 means unbounded.
type ExportQuery struct {
	Identity     string
	AllowedChats []int64
	ChatID       *int64
	Start        *string
	End          *string
	Limit        int
}

// AppendMessage inserts one message row. Any ID already set on m is ignored;
// the store assigns a fresh one and writes it back into m. The insert is a
// single auto-committed statement, so a successful return means the row is
// durable and fully visible to readers.
func AppendMessage(ctx context.Context, db *gorm.DB, m *domain.Message) error {
	if strings.TrimSpace(m.Timestamp) == "" {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidMessage)
	}
	m.ID = 0
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	return nil
}

// QueryMessages evaluates q and returns matching rows newest first
// (timestamp DESC, id DESC). No match yields an empty, non-nil slice.
func QueryMessages(ctx context.Context, db *gorm.DB, q ExportQuery) ([]domain.Message, error) {
	scope, err := exportScope(db.WithContext(ctx), q)
	if err != nil {
		return nil, err
	}

	tx := scope.Select(exportColumns).Order("timestamp DESC, id DESC")
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	out := []domain.Message{}
	if err := tx.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return out, nil
}

// exportScope applies the WHERE clauses of q to a messages-model query.
func exportScope(db *gorm.DB, q ExportQuery) (*gorm.DB, error) {
	ident, err := ParseIdentity(q.Identity)
	if err != nil {
		return nil, err
	}

	tx := db.Model(&domain.Message{})
	if ident.ByID {
		tx = tx.Where("user_id = ?", ident.UserID)
	} else {
		tx = tx.Where("username = ?", ident.Username)
	}

	if len(q.AllowedChats) > 0 {
		chats := slices.Clone(q.AllowedChats)
		slices.Sort(chats)
		tx = tx.Where("chat_id IN ?", slices.Compact(chats))
	}
	if q.ChatID != nil {
		tx = tx.Where("chat_id = ?", *q.ChatID)
	}
	if q.Start != nil {
		tx = tx.Where("timestamp >= ?", *q.Start)
	}
	if q.End != nil {
		tx = tx.Where("timestamp <= ?", *q.End)
	}
	return tx, nil
}
