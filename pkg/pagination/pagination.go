// Package pagination implements keyset paging over per-restaurant sequences.
package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100

	cursorPrefix = "before:"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Params is one page request. Cursor is opaque to callers.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor points just past the last row of the previous page. Rows are keyed by
// a strictly increasing per-tenant sequence, so the key alone is tie-free.
type Cursor struct {
	Before int64
}

func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// EncodeCursor returns a URL-safe token for the given key.
func EncodeCursor(c Cursor) string {
	return base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + strconv.FormatInt(c.Before, 10)))
}

// ParseCursor decodes a token from EncodeCursor. An empty token means the
// first page and yields nil.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	key, ok := strings.CutPrefix(string(raw), cursorPrefix)
	if !ok {
		return nil, ErrInvalidCursor
	}
	before, err := strconv.ParseInt(key, 10, 64)
	if err != nil || before <= 0 {
		return nil, ErrInvalidCursor
	}
	return &Cursor{Before: before}, nil
}

// Trim cuts rows fetched with limit+1 down to one page and reports whether
// another page follows.
func Trim[T any](rows []T, limit int) ([]T, bool) {
	if len(rows) <= limit {
		return rows, false
	}
	return rows[:limit], true
}
