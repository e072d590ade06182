// Package repo implements the data persistence layer for logged messages,
// backed by GORM. This file declares the storage error taxonomy.
//
// Every error leaving this package wraps one of the sentinels below with %w,
// alongside the driver error, so callers can branch with errors.Is on the
// category while logs keep the underlying cause.
package repo

import "errors"

var (
	// ErrStorageInit means the backing store could not be opened or its schema
	// could not be created. Fatal at startup.
	ErrStorageInit = errors.New("storage init failed")

	// ErrStorageWrite means a single append failed. The message is lost unless
	// the caller retries; the repository never retries on its own.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrQuery means an export read failed. No partial result is returned.
	ErrQuery = errors.New("query failed")

	// ErrInvalidMessage is returned by AppendMessage for records that would
	// violate the table invariants (missing timestamp).
	ErrInvalidMessage = errors.New("invalid message")

	// ErrInvalidIdentity is returned for an empty identity or a numeric
	// identity that does not fit a 64-bit user id.
	ErrInvalidIdentity = errors.New("identity must be a user id or a username")
)
