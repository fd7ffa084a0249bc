package activity

import (
	"sort"
	"time"
)

// DefaultIdleThreshold is the longest gap between events still counted as
// continuous work.
const DefaultIdleThreshold = 15 * time.Minute

// GapAwareMinutes sums the gaps between consecutive timestamps that are
// shorter than idle. Longer gaps are treated as breaks and contribute
// nothing.
func GapAwareMinutes(timestamps []time.Time, idle time.Duration) float64 {
	if len(timestamps) < 2 {
		return 0
	}
	sorted := make([]time.Time, len(timestamps))
	copy(sorted, timestamps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var total time.Duration
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i].Sub(sorted[i-1])
		if gap > 0 && gap < idle {
			total += gap
		}
	}
	return total.Minutes()
}
