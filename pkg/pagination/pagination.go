package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Params holds cursor pagination inputs from controllers.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the position of the last row of a page sorted newest first.
type Cursor struct {
	CreatedAt time.Time
	ID        int64
}

// Before reports whether a row sorted newest-first comes after the cursor position.
func (c Cursor) Before(createdAt time.Time, id int64) bool {
	if createdAt.Before(c.CreatedAt) {
		return true
	}
	return createdAt.Equal(c.CreatedAt) && id < c.ID
}

func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// EncodeCursor returns a URL-safe token so it can be passed back verbatim as
// a query parameter.
func EncodeCursor(cursor Cursor) string {
	payload := fmt.Sprintf("%s|%d", cursor.CreatedAt.UTC().Format(time.RFC3339Nano), cursor.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes a token from EncodeCursor. An empty value yields nil.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(value, "="))
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	rawTime, rawID, ok := strings.Cut(string(decoded), "|")
	if !ok {
		return nil, fmt.Errorf("invalid cursor format")
	}
	t, err := time.Parse(time.RFC3339Nano, rawTime)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor id: %w", err)
	}
	return &Cursor{CreatedAt: t, ID: id}, nil
}

// Page slices rows, already sorted newest first, into the page after cursor.
// next is empty on the last page.
func Page[T any](rows []T, cursor *Cursor, limit int, position func(T) Cursor) (items []T, next string) {
	limit = NormalizeLimit(limit)
	items = make([]T, 0, min(limit, len(rows)))
	for _, row := range rows {
		pos := position(row)
		if cursor != nil && !cursor.Before(pos.CreatedAt, pos.ID) {
			continue
		}
		if len(items) == limit {
			return items, EncodeCursor(position(items[len(items)-1]))
		}
		items = append(items, row)
	}
	return items, ""
}
