package preferences

import (
	"github.com/leasewise/leasewise-backend/pkg/db/models"
	"github.com/leasewise/leasewise-backend/pkg/enums"
)

// TimeOfDay is the hour and minute reports are sent at.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// Change is a sparse comparison of two preference states. Old and new values
// are only set for fields that changed.
type Change struct {
	MetricsAdded     []string         `json:"metrics_added"`
	MetricsRemoved   []string         `json:"metrics_removed"`
	FrequencyChanged bool             `json:"frequency_changed"`
	OldFrequency     *enums.Frequency `json:"old_frequency,omitempty"`
	NewFrequency     *enums.Frequency `json:"new_frequency,omitempty"`
	TimeChanged      bool             `json:"time_changed"`
	OldTime          *TimeOfDay       `json:"old_time,omitempty"`
	NewTime          *TimeOfDay       `json:"new_time,omitempty"`
}

// Empty reports whether nothing differs.
func (c Change) Empty() bool {
	return len(c.MetricsAdded) == 0 && len(c.MetricsRemoved) == 0 && !c.FrequencyChanged && !c.TimeChanged
}

// Diff compares two preference states. Added and removed metrics keep the
// order they appear in their source list.
func Diff(oldMetrics, newMetrics []string, oldFreq, newFreq enums.Frequency, oldTime, newTime TimeOfDay) Change {
	change := Change{
		MetricsAdded:   subtract(newMetrics, oldMetrics),
		MetricsRemoved: subtract(oldMetrics, newMetrics),
	}
	if oldFreq != newFreq {
		change.FrequencyChanged = true
		change.OldFrequency = &oldFreq
		change.NewFrequency = &newFreq
	}
	if oldTime != newTime {
		change.TimeChanged = true
		change.OldTime = &oldTime
		change.NewTime = &newTime
	}
	return change
}

// DiffSnapshots applies Diff to two stored snapshots.
func DiffSnapshots(from, to models.PreferenceSnapshot) Change {
	return Diff(from.Metrics, to.Metrics, from.Frequency, to.Frequency,
		TimeOfDay{Hour: from.SendHour, Minute: from.SendMinute},
		TimeOfDay{Hour: to.SendHour, Minute: to.SendMinute})
}

func subtract(a, b []string) []string {
	drop := make(map[string]bool, len(b))
	for _, v := range b {
		drop[v] = true
	}
	out := []string{}
	seen := make(map[string]bool, len(a))
	for _, v := range a {
		if drop[v] || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
