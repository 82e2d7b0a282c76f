package sweeps

import (
	"fmt"
	"strings"
	"time"

	"github.com/leasewise/leasewise-backend/pkg/config"
)

// MatchMode selects how a day count is matched against thresholds.
type MatchMode string

const (
	// ModeExact fires only on the exact threshold day.
	ModeExact MatchMode = config.MatchModeExact
	// ModeAtLeast fires once the threshold has been reached, catching up on
	// days the sweep did not run.
	ModeAtLeast MatchMode = config.MatchModeAtLeast
)

func ParseMatchMode(value string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeExact:
		return ModeExact, nil
	case ModeAtLeast, "":
		return ModeAtLeast, nil
	default:
		return "", fmt.Errorf("invalid match mode %q", value)
	}
}

var (
	// OverdueThresholds are days past due, least to most advanced.
	OverdueThresholds = []int{7, 14, 30}
	// ExpirationThresholds are days until lease end, least to most advanced.
	ExpirationThresholds = []int{30, 14, 7}
)

// matcher resolves which threshold, if any, fires for a day count.
type matcher struct {
	mode       MatchMode
	thresholds []int
	reached    func(days, threshold int) bool
}

// match returns the threshold to notify and every threshold to flag with it.
// ok is false when nothing should be sent.
func (m matcher) match(days int, sent map[int]bool) (fire int, flags []int, ok bool) {
	if m.mode == ModeExact {
		for _, t := range m.thresholds {
			if days == t && !sent[t] {
				return t, []int{t}, true
			}
		}
		return 0, nil, false
	}

	var reached []int
	for _, t := range m.thresholds {
		if m.reached(days, t) {
			reached = append(reached, t)
		}
	}
	if len(reached) == 0 {
		return 0, nil, false
	}
	fire = reached[len(reached)-1]
	if sent[fire] {
		return 0, nil, false
	}
	return fire, reached, true
}

const day = 24 * time.Hour

// wholeDays counts complete 24 hour periods from a to b, so 6 days and 23
// hours is 6. Callers only pass a <= b.
func wholeDays(a, b time.Time) int {
	return int(b.Sub(a) / day)
}
