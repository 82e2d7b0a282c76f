package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultLimit is the page size for schedule and delivery listings when none is asked for.
	DefaultLimit = 25
	// MaxLimit caps a single page.
	MaxLimit = 100
)

// Params is a page request: a size and the opaque cursor from the previous page.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is a keyset position in a newest-first listing: the sort timestamp
// of the last row returned and its id as tie breaker.
type Cursor struct {
	At time.Time
	ID uuid.UUID
}

// NormalizeLimit clamps limit into [1, MaxLimit], defaulting non-positive values.
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

// LimitWithBuffer is the row count to fetch so one extra row reveals a next page.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Encode renders the cursor for a query string.
func (c Cursor) Encode() string {
	payload := c.At.UTC().Format(time.RFC3339Nano) + "|" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// Before returns the keyset condition selecting rows that sort after the
// cursor in a "column DESC, id DESC" listing.
func (c Cursor) Before(column string) (string, []any) {
	at := c.At.UTC()
	return fmt.Sprintf("(%[1]s < ?) OR (%[1]s = ? AND id < ?)", column), []any{at, at, c.ID}
}

// ParseCursor decodes a cursor produced by Encode. A blank value means the
// first page and yields nil.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	at, id, ok := strings.Cut(string(decoded), "|")
	if !ok {
		return nil, fmt.Errorf("invalid cursor format")
	}

	c := &Cursor{}
	if c.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	if c.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid cursor id: %w", err)
	}
	return c, nil
}

// Page trims rows fetched with LimitWithBuffer back to the requested size and
// returns the encoded cursor of the last kept row when another page exists.
func Page[T any](rows []T, limit int, cursorOf func(T) Cursor) ([]T, string) {
	size := NormalizeLimit(limit)
	if len(rows) <= size {
		return rows, ""
	}
	rows = rows[:size]
	return rows, cursorOf(rows[len(rows)-1]).Encode()
}
