// Package crossval compares an hour estimate against a developer's recent
// confirmed history.
package crossval

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rpggio/captime/internal/domain/entry"
)

const (
	// MinHistoryDays is the number of distinct days with confirmed hours
	// needed before any check runs.
	MinHistoryDays = 5
	// ZThreshold is the absolute z-score above which an estimate is flagged.
	ZThreshold = 2.0
	// ProjectMultiple is how many times the project's daily average an
	// estimate may reach before it is flagged.
	ProjectMultiple = 3.0
)

// Result is the outcome of Validate. The zero value means no flag.
type Result struct {
	IsOutlier      bool    `json:"is_outlier"`
	Flag           string  `json:"flag,omitempty"`
	ZScore         float64 `json:"z_score"`
	AvgHoursPerDay float64 `json:"avg_hours_per_day"`
	StdDev         float64 `json:"std_dev"`
}

// Validate checks estimate against the developer's daily totals in history
// and, when projectID is set, against that project's daily average. Only
// confirmed hours count.
func Validate(estimate float64, projectID *string, projectName string, history []entry.HistoricalEntry) Result {
	daily := map[string]float64{}
	perProject := map[string]float64{}
	for _, h := range history {
		if h.ConfirmedHours == nil {
			continue
		}
		day := h.Date
		daily[day] += *h.ConfirmedHours
		if projectID != nil && h.ProjectID != nil && *h.ProjectID == *projectID {
			perProject[day] += *h.ConfirmedHours
		}
	}
	if len(daily) < MinHistoryDays {
		return Result{}
	}

	mean, stddev := meanStdDev(daily)
	res := Result{AvgHoursPerDay: mean, StdDev: stddev}
	var flags []string

	if stddev > 0 {
		res.ZScore = (estimate - mean) / stddev
		if math.Abs(res.ZScore) > ZThreshold {
			direction := "above"
			if res.ZScore < 0 {
				direction = "below"
			}
			flags = append(flags, fmt.Sprintf("estimate of %.2fh is %.1f standard deviations %s the 30-day average of %.2fh",
				estimate, math.Abs(res.ZScore), direction, mean))
		}
	}

	if projectID != nil && len(perProject) >= MinHistoryDays {
		projectMean, _ := meanStdDev(perProject)
		if projectMean > 0 && estimate > ProjectMultiple*projectMean {
			name := projectName
			if name == "" {
				name = *projectID
			}
			flags = append(flags, fmt.Sprintf("estimate of %.2fh exceeds 3x the %.2fh daily average for project %s",
				estimate, projectMean, name))
		}
	}

	if len(flags) > 0 {
		res.IsOutlier = true
		res.Flag = strings.Join(flags, "; ")
	}
	return res
}

// meanStdDev returns the population mean and standard deviation. Days are
// summed in date order so identical input gives identical output.
func meanStdDev(totals map[string]float64) (float64, float64) {
	if len(totals) == 0 {
		return 0, 0
	}
	days := make([]string, 0, len(totals))
	for d := range totals {
		days = append(days, d)
	}
	sort.Strings(days)
	var sum float64
	for _, d := range days {
		sum += totals[d]
	}
	n := float64(len(days))
	mean := sum / n
	var sq float64
	for _, d := range days {
		diff := totals[d] - mean
		sq += diff * diff
	}
	return mean, math.Sqrt(sq / n)
}
