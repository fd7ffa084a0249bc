package attribution

import (
	"github.com/rpggio/captime/internal/classify"
	"github.com/rpggio/captime/internal/domain/activity"
	"github.com/rpggio/captime/internal/domain/project"
)

// evidence is the slice of a day's activity that ties to one project.
type evidence struct {
	sessions []activity.DaySession
	commits  []activity.Commit
	events   []activity.ToolEvent
}

func collectEvidence(day activity.DayActivity, p project.Project) evidence {
	var ev evidence
	for _, s := range day.Sessions {
		if p.Matches(s.Session.ProjectPath) {
			ev.sessions = append(ev.sessions, s)
		}
	}
	for _, c := range day.Commits {
		if p.Matches(c.RepoPath) {
			ev.commits = append(ev.commits, c)
		}
	}
	for _, e := range day.ToolEvents {
		if p.Matches(e.ProjectPath) || p.Matches(e.FilePath) {
			ev.events = append(ev.events, e)
		}
	}
	return ev
}

func dayEvidence(day activity.DayActivity) evidence {
	return evidence{sessions: day.Sessions, commits: day.Commits, events: day.ToolEvents}
}

// tied reports whether any session path or commit repo path matched.
func (e evidence) tied() bool {
	return len(e.sessions) > 0 || len(e.commits) > 0
}

func (e evidence) messageCount() int {
	n := 0
	for _, s := range e.sessions {
		n += s.MessageCount
	}
	return n
}

func (e evidence) activeMinutes() float64 {
	var m float64
	for _, s := range e.sessions {
		m += s.ActiveMinutes
	}
	return m
}

// classifyInput builds the classifier's view of this evidence. Tool events
// only add counts for sessions that carry no per-tool totals of their own.
func (e evidence) classifyInput(summary string) classify.Input {
	in := classify.Input{Summary: summary, ToolCounts: map[string]int{}}
	seenFile := map[string]bool{}
	addFile := func(f string) {
		if f != "" && !seenFile[f] {
			seenFile[f] = true
			in.Files = append(in.Files, f)
		}
	}

	counted := map[string]bool{}
	for _, s := range e.sessions {
		for tool, n := range s.Session.ToolCounts {
			in.ToolCounts[tool] += n
		}
		if len(s.Session.ToolCounts) > 0 {
			counted[s.Session.ID] = true
		}
		for _, f := range s.Session.Files {
			addFile(f)
		}
		for _, p := range s.Prompts {
			in.Prompts = append(in.Prompts, p.Text)
		}
	}
	for _, ev := range e.events {
		if !counted[ev.SessionID] {
			in.ToolCounts[ev.ToolName]++
		}
		addFile(ev.FilePath)
	}
	for _, c := range e.commits {
		in.CommitMessages = append(in.CommitMessages, c.Subject())
		for _, f := range c.Files {
			addFile(f)
		}
	}
	return in
}
