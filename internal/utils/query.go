// Package utils provides small, generic helpers for reading optional request
// parameters. They are shared by the HTTP handlers and the Telegram command
// parser and carry no domain logic.
package utils

import (
	"strconv"
	"strings"
)

// OptionalString returns nil for blank input and a pointer to the trimmed
// value otherwise.
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// OptionalInt64 parses a signed base-10 integer. Blank input yields nil.
func OptionalInt64(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ParseLimit reads a result limit. Blank input yields nil (use the default);
// "none", "all" and "0" yield 0 (unbounded). Negative values are returned
// as-is for the caller to reject.
//
//	ParseLimit("")     // nil, nil
//	ParseLimit("all")  // 0
//	ParseLimit("25")   // 25
func ParseLimit(s string) (*int, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return nil, nil
	case "none", "all":
		n := 0
		return &n, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
