// Package domain defines the persistence model for logged chat messages.
// The Message type is mapped with GORM and forms the core data layer of the
// message logger.
package domain

// Message is one chat message recorded from an allow-listed group. Rows are
// append-only: the store assigns ID on insert and never updates or deletes a
// row afterwards.
//
// Profile fields (Username, FirstName, LastName, ChatTitle) are snapshots taken
// at send time and are not kept in sync with later renames. They are nil when
// the platform did not provide a value.
//
// Fields:
//   - ID: autoincrement primary key assigned by the store.
//   - UserID: sender identity, stable across renames.
//   - ChatID: source conversation.
//   - MessageText: body or caption; empty when the message carried neither.
//   - Timestamp: canonical UTC instant (see FormatTimestamp). String order
//     equals chronological order.
type Message struct {
	ID          int64   `json:"id"           gorm:"primaryKey;autoIncrement"`
	UserID      int64   `json:"user_id"      gorm:"not null;index:idx_user_ts,priority:1"`
	Username    *string `json:"username"     gorm:"type:text;index:idx_username_ts,priority:1"`
	FirstName   *string `json:"first_name"   gorm:"type:text"`
	LastName    *string `json:"last_name"    gorm:"type:text"`
	ChatID      int64   `json:"chat_id"      gorm:"not null"`
	ChatTitle   *string `json:"chat_title"   gorm:"type:text"`
	MessageText string  `json:"message_text" gorm:"type:text"`
	Timestamp   string  `json:"timestamp"    gorm:"type:text;not null;index:idx_user_ts,priority:2;index:idx_username_ts,priority:2"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// OptionalString maps an empty string to nil so absent profile values are
// stored as NULL rather than "".
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
