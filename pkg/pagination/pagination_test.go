package pagination

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{At: time.Date(2026, 3, 1, 8, 0, 0, 123, time.UTC), ID: uuid.New()}
	encoded := want.Encode()
	if strings.ContainsAny(encoded, "+/=") {
		t.Fatalf("cursor %q is not query-string safe", encoded)
	}
	got, err := ParseCursor(encoded)
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if !got.At.Equal(want.At) || got.ID != want.ID {
		t.Fatalf("cursor mismatch: %+v vs %+v", got, want)
	}

	if c, err := ParseCursor("  "); err != nil || c != nil {
		t.Fatalf("blank cursor should parse to nil")
	}
	if _, err := ParseCursor("not-base64!"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestCursorBeforeClause(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.FixedZone("SAST", 2*3600))
	c := Cursor{At: at, ID: uuid.New()}
	clause, args := c.Before("created_at")
	if clause != "(created_at < ?) OR (created_at = ? AND id < ?)" {
		t.Fatalf("unexpected clause %q", clause)
	}
	if len(args) != 3 || args[2] != c.ID {
		t.Fatalf("unexpected args %v", args)
	}
	if ts := args[0].(time.Time); ts.Location() != time.UTC || !ts.Equal(at) {
		t.Fatalf("cursor time should be compared in UTC, got %v", ts)
	}
}

func TestNormalizeLimit(t *testing.T) {
	if NormalizeLimit(0) != DefaultLimit || NormalizeLimit(500) != MaxLimit || NormalizeLimit(10) != 10 {
		t.Fatalf("unexpected normalization")
	}
	if LimitWithBuffer(10) != 11 {
		t.Fatalf("expected buffer of one")
	}
}

func TestPageTrimsAndEmitsCursor(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	type row struct {
		at time.Time
		id uuid.UUID
	}
	rows := []row{{base, uuid.New()}, {base.Add(-time.Hour), uuid.New()}, {base.Add(-2 * time.Hour), uuid.New()}}
	cursorOf := func(r row) Cursor { return Cursor{At: r.at, ID: r.id} }

	page, next := Page(rows, 2, cursorOf)
	if len(page) != 2 || next == "" {
		t.Fatalf("expected 2 rows and a cursor, got %d %q", len(page), next)
	}
	parsed, err := ParseCursor(next)
	if err != nil || parsed.ID != rows[1].id {
		t.Fatalf("cursor should point at last kept row")
	}

	page, next = Page(rows[:2], 2, cursorOf)
	if len(page) != 2 || next != "" {
		t.Fatalf("expected final page without cursor")
	}
}
