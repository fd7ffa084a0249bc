package attribution

import (
	"fmt"

	"github.com/rpggio/captime/internal/crossval"
	"github.com/rpggio/captime/internal/domain/entry"
	"github.com/rpggio/captime/internal/domain/project"
)

// Minimal-activity thresholds for a session-only attribution.
const (
	MinMessages      = 3
	MinActiveMinutes = 5.0
)

// Guard names, recorded on the day result for each entry.
const (
	GuardUnmatched   = "unmatched_project"
	GuardNoEvidence  = "zero_evidence"
	GuardMinimal     = "minimal_activity"
	GuardEnhancement = "enhancement_signal"
	GuardOutlier     = "statistical_outlier"
	GuardAccepted    = "accepted"
)

// verdict is the terminal decision for one candidate.
type verdict struct {
	guard       string
	status      entry.Status
	dropProject bool
	outlierFlag string
	reason      string
}

// subject is everything the guards look at for one candidate.
type subject struct {
	cand       resolved
	evidence   evidence
	validation crossval.Result
}

type guard struct {
	name  string
	check func(s subject) (verdict, bool)
}

// guards run in order; the first that fires decides the entry.
var guards = []guard{
	{
		name: GuardUnmatched,
		check: func(s subject) (verdict, bool) {
			if s.cand.project != nil {
				return verdict{}, false
			}
			reason := "model did not attribute this work to a known project"
			if s.cand.ProjectID != nil {
				reason = fmt.Sprintf("model referenced unknown project %q", *s.cand.ProjectID)
			}
			return verdict{status: entry.StatusFlagged, dropProject: true, reason: reason}, true
		},
	},
	{
		name: GuardNoEvidence,
		check: func(s subject) (verdict, bool) {
			if s.evidence.tied() {
				return verdict{}, false
			}
			return verdict{
				status:      entry.StatusFlagged,
				dropProject: true,
				reason:      fmt.Sprintf("no session or commit on this day ties to project %s", s.cand.project.Name),
			}, true
		},
	},
	{
		name: GuardMinimal,
		check: func(s subject) (verdict, bool) {
			ev := s.evidence
			if len(ev.commits) > 0 || ev.messageCount() >= MinMessages || ev.activeMinutes() >= MinActiveMinutes {
				return verdict{}, false
			}
			return verdict{
				status:      entry.StatusFlagged,
				outlierFlag: entry.OutlierLowActivity,
				reason: fmt.Sprintf("minimal activity: %d messages, %.1f active minutes, no commits",
					ev.messageCount(), ev.activeMinutes()),
			}, true
		},
	},
	{
		name: GuardEnhancement,
		check: func(s subject) (verdict, bool) {
			p := s.cand.project
			suggestsDev := p.Phase == project.PhasePostImplementation && s.cand.PhaseSuggestion == project.PhaseApplicationDevelopment
			if !suggestsDev && !s.cand.EnhancementSuggested {
				return verdict{}, false
			}
			reason := fmt.Sprintf("work on %s may be an enhancement; review whether a separate enhancement project is needed (recorded phase %s)", p.Name, p.Phase)
			if suggestsDev {
				reason = fmt.Sprintf("project %s is %s but the work looks like application development; review for an enhancement project", p.Name, p.Phase)
			}
			return verdict{status: entry.StatusFlagged, reason: reason}, true
		},
	},
	{
		name: GuardOutlier,
		check: func(s subject) (verdict, bool) {
			if !s.validation.IsOutlier {
				return verdict{}, false
			}
			return verdict{status: entry.StatusFlagged, outlierFlag: entry.OutlierStatistical, reason: s.validation.Flag}, true
		},
	},
}

func decide(s subject) verdict {
	for _, g := range guards {
		if v, ok := g.check(s); ok {
			v.guard = g.name
			return v
		}
	}
	return verdict{guard: GuardAccepted, status: entry.StatusPending}
}
