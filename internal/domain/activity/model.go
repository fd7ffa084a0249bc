package activity

import (
	"strings"
	"time"
)

// Tool names reported by coding-assistant transcripts.
const (
	ToolBash         = "Bash"
	ToolRead         = "Read"
	ToolGrep         = "Grep"
	ToolGlob         = "Glob"
	ToolLS           = "LS"
	ToolWebFetch     = "WebFetch"
	ToolWebSearch    = "WebSearch"
	ToolNotebookRead = "NotebookRead"
	ToolEdit         = "Edit"
	ToolMultiEdit    = "MultiEdit"
	ToolWrite        = "Write"
	ToolNotebookEdit = "NotebookEdit"
)

// Session is one coding-assistant session. A session may span several
// days; Days carries the per-day breakdown when the ingester produced one.
type Session struct {
	ID           string         `json:"id"`
	DeveloperID  string         `json:"developer_id"`
	ProjectPath  string         `json:"project_path"`
	StartedAt    time.Time      `json:"started_at"`
	EndedAt      time.Time      `json:"ended_at"`
	MessageCount int            `json:"message_count"`
	ToolUseCount int            `json:"tool_use_count"`
	InputTokens  int64          `json:"input_tokens"`
	OutputTokens int64          `json:"output_tokens"`
	ToolCounts   map[string]int `json:"tool_counts,omitempty"`
	Files        []string       `json:"files,omitempty"`
	Days         []DaySlice     `json:"days,omitempty"`
}

// DaySlice is the portion of a session that fell on one calendar day.
type DaySlice struct {
	Date             string   `json:"date"`
	MessageCount     int      `json:"message_count"`
	ActiveMinutes    float64  `json:"active_minutes"`
	WallClockMinutes float64  `json:"wall_clock_minutes"`
	Prompts          []Prompt `json:"prompts,omitempty"`
}

// Prompt is a timestamped user prompt.
type Prompt struct {
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}

// Day returns the slice for date, if the session has one.
func (s Session) Day(date string) (DaySlice, bool) {
	for _, d := range s.Days {
		if d.Date == date {
			return d, true
		}
	}
	return DaySlice{}, false
}

// Commit is an immutable commit record.
type Commit struct {
	ID           string    `json:"id"`
	DeveloperID  string    `json:"developer_id"`
	RepoPath     string    `json:"repo_path"`
	SHA          string    `json:"sha"`
	Message      string    `json:"message"`
	CommittedAt  time.Time `json:"committed_at"`
	LinesAdded   int       `json:"lines_added"`
	LinesDeleted int       `json:"lines_deleted"`
	Files        []string  `json:"files,omitempty"`
}

// Subject returns the first line of the commit message.
func (c Commit) Subject() string {
	subject, _, _ := strings.Cut(c.Message, "\n")
	return strings.TrimSpace(subject)
}

// ToolEvent is a single tool invocation captured in real time. Previews are
// sanitized by the ingester.
type ToolEvent struct {
	ID              string    `json:"id"`
	DeveloperID     string    `json:"developer_id"`
	SessionID       string    `json:"session_id"`
	ToolName        string    `json:"tool_name"`
	ProjectPath     string    `json:"project_path"`
	FilePath        string    `json:"file_path,omitempty"`
	InputPreview    string    `json:"input_preview,omitempty"`
	ResponsePreview string    `json:"response_preview,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// DaySession is a session as it applies to a single target day.
type DaySession struct {
	Session       Session
	MessageCount  int
	ActiveMinutes float64
	Prompts       []Prompt
}

// DayActivity is everything gathered for one developer on one day.
type DayActivity struct {
	DeveloperID string
	Date        string
	Window      Window
	Sessions    []DaySession
	Commits     []Commit
	ToolEvents  []ToolEvent
}

// Empty reports whether no activity survived gathering and filtering.
func (a DayActivity) Empty() bool {
	return len(a.Sessions) == 0 && len(a.Commits) == 0 && len(a.ToolEvents) == 0
}

// ActiveMinutes sums active minutes across the day's sessions.
func (a DayActivity) ActiveMinutes() float64 {
	var total float64
	for _, s := range a.Sessions {
		total += s.ActiveMinutes
	}
	return total
}
