// Package services defines the business logic for ingesting group messages
// and exporting a user's history. This file centralizes service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// Translation into Telegram replies or HTTP status codes is performed by the
// collaborator that invoked the service (internal/telegram, internal/http).
package services

import "errors"

// Ingest errors.
var (
	// ErrChatNotAllowed is returned when a message originates from a chat
	// that is not on the configured allow-list. Nothing is stored.
	ErrChatNotAllowed = errors.New("chat not allowed")

	// ErrMissingSender is returned for events without an identifiable sender
	// (channel posts, service messages).
	ErrMissingSender = errors.New("message has no sender")
)

// Export errors.
var (
	// ErrInvalidIdentity is returned when the export identity is blank or a
	// numeric id that does not fit in 64 bits.
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrInvalidTimestamp is returned when a time bound cannot be parsed.
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// ErrInvalidLimit is returned for negative limits.
	ErrInvalidLimit = errors.New("limit must be >= 0")
)
