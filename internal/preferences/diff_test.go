package preferences

import (
	"reflect"
	"testing"

	"github.com/leasewise/leasewise-backend/pkg/enums"
)

func TestDiffUnchangedIsEmpty(t *testing.T) {
	tm := TimeOfDay{Hour: 9}
	got := Diff([]string{"a", "b"}, []string{"a", "b"}, enums.FrequencyMonthly, enums.FrequencyMonthly, tm, tm)

	if got.MetricsAdded == nil || len(got.MetricsAdded) != 0 {
		t.Fatalf("expected empty added slice, got %#v", got.MetricsAdded)
	}
	if got.MetricsRemoved == nil || len(got.MetricsRemoved) != 0 {
		t.Fatalf("expected empty removed slice, got %#v", got.MetricsRemoved)
	}
	if got.FrequencyChanged || got.TimeChanged {
		t.Fatalf("expected no change flags, got %+v", got)
	}
	if got.OldFrequency != nil || got.NewFrequency != nil || got.OldTime != nil || got.NewTime != nil {
		t.Fatalf("expected unchanged values to be omitted, got %+v", got)
	}
	if !got.Empty() {
		t.Fatalf("expected Empty")
	}
}

func TestDiffAddedMetrics(t *testing.T) {
	tm := TimeOfDay{Hour: 9}
	got := Diff([]string{"a"}, []string{"a", "b", "c"}, enums.FrequencyMonthly, enums.FrequencyMonthly, tm, tm)
	if !reflect.DeepEqual(got.MetricsAdded, []string{"b", "c"}) {
		t.Fatalf("unexpected added %v", got.MetricsAdded)
	}
	if len(got.MetricsRemoved) != 0 {
		t.Fatalf("unexpected removed %v", got.MetricsRemoved)
	}
}

func TestDiffReportsOnlyChangedValues(t *testing.T) {
	got := Diff([]string{"a", "b"}, []string{"b"},
		enums.FrequencyMonthly, enums.FrequencyWeekly,
		TimeOfDay{Hour: 9}, TimeOfDay{Hour: 9})

	if !reflect.DeepEqual(got.MetricsRemoved, []string{"a"}) {
		t.Fatalf("unexpected removed %v", got.MetricsRemoved)
	}
	if !got.FrequencyChanged || *got.OldFrequency != enums.FrequencyMonthly || *got.NewFrequency != enums.FrequencyWeekly {
		t.Fatalf("unexpected frequency diff %+v", got)
	}
	if got.TimeChanged || got.OldTime != nil || got.NewTime != nil {
		t.Fatalf("time should be omitted, got %+v", got)
	}

	timeOnly := Diff(nil, nil, enums.FrequencyWeekly, enums.FrequencyWeekly, TimeOfDay{Hour: 9}, TimeOfDay{Hour: 9, Minute: 30})
	if !timeOnly.TimeChanged || timeOnly.NewTime.Minute != 30 || timeOnly.OldTime.Minute != 0 {
		t.Fatalf("unexpected time diff %+v", timeOnly)
	}
	if timeOnly.OldFrequency != nil {
		t.Fatalf("frequency should be omitted")
	}
}
