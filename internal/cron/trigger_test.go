package cron

import (
	"testing"
	"time"
)

func TestDailyAtNextFiring(t *testing.T) {
	loc, err := time.LoadLocation("Africa/Johannesburg")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	trigger, err := DailyAt("daily", 8, 30, loc)
	if err != nil {
		t.Fatalf("daily at: %v", err)
	}

	before := time.Date(2026, 5, 6, 7, 0, 0, 0, loc)
	if got, want := trigger.Schedule.Next(before), time.Date(2026, 5, 6, 8, 30, 0, 0, loc); !got.Equal(want) {
		t.Fatalf("expected %s got %s", want, got)
	}
	after := time.Date(2026, 5, 6, 8, 30, 0, 0, loc)
	if got, want := trigger.Schedule.Next(after), time.Date(2026, 5, 7, 8, 30, 0, 0, loc); !got.Equal(want) {
		t.Fatalf("expected %s got %s", want, got)
	}
}

func TestTriggerValidation(t *testing.T) {
	if _, err := DailyAt("daily", 24, 0, nil); err == nil {
		t.Fatalf("expected invalid hour error")
	}
	if _, err := DailyAt("", 8, 0, nil); err == nil {
		t.Fatalf("expected name error")
	}
	if _, err := Every("sweep", 10*time.Millisecond); err == nil {
		t.Fatalf("expected sub-second interval error")
	}
	trigger, err := Every("sweep", 6*time.Hour)
	if err != nil {
		t.Fatalf("every: %v", err)
	}
	start := time.Date(2026, 5, 6, 0, 0, 0, 0, time.UTC)
	if got := trigger.Schedule.Next(start); !got.Equal(start.Add(6 * time.Hour)) {
		t.Fatalf("unexpected next %s", got)
	}
}
