package attribution

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rpggio/captime/internal/domain/activity"
	"github.com/rpggio/captime/internal/domain/project"
)

// TranscriptBudget caps the characters of prompt transcript sent to the
// model for one day.
const TranscriptBudget = 12000

const maxListedFiles = 40

// buildPrompt renders the day's activity summary and instructions for the
// daily estimate.
func buildPrompt(day activity.DayActivity, catalog *project.Catalog) string {
	loc := day.Window.Start.Location()
	var b strings.Builder

	fmt.Fprintf(&b, "You are estimating how many hours a software developer spent on each project on %s (%s).\n", day.Date, loc)
	fmt.Fprintf(&b, "Active time: %.0f minutes across %d session(s), %d commit(s), %d tool event(s).\n\n",
		day.ActiveMinutes(), len(day.Sessions), len(day.Commits), len(day.ToolEvents))

	writeSessions(&b, day, catalog)
	writeTranscript(&b, day, loc)
	writeToolUsage(&b, day)
	writeCommits(&b, day, catalog, loc)
	writeCatalog(&b, catalog)

	b.WriteString(`## Instructions
Attribute the day's work to the projects above. Only use a projectId from the project list; use null when the work does not belong to a listed project.
Hours must reflect the active time shown, not wall-clock time.
Respond with JSON only, an array of objects with these fields:
[{"projectId": "<id or null>", "projectName": "<name>", "summary": "<one or two sentences>", "hoursEstimate": <number>, "confidence": <0.0-1.0>, "reasoning": "<why>", "phaseSuggestion": "<preliminary|application_development|post_implementation, optional>", "enhancementSuggested": <true|false, optional>}]
`)
	return b.String()
}

func projectLabel(catalog *project.Catalog, path string) string {
	if p, ok := catalog.Match(path); ok {
		return fmt.Sprintf("%s (%s)", p.Name, p.ID)
	}
	return "unmatched"
}

func writeSessions(b *strings.Builder, day activity.DayActivity, catalog *project.Catalog) {
	if len(day.Sessions) == 0 {
		return
	}
	b.WriteString("## Sessions\n")
	for _, s := range day.Sessions {
		fmt.Fprintf(b, "- %s [%s]: %d messages, %.0f active minutes\n",
			s.Session.ProjectPath, projectLabel(catalog, s.Session.ProjectPath), s.MessageCount, s.ActiveMinutes)
	}
	b.WriteString("\n")
}

// writeTranscript lists the day's prompts in time order until the budget
// is spent.
func writeTranscript(b *strings.Builder, day activity.DayActivity, loc *time.Location) {
	type line struct {
		at   time.Time
		path string
		text string
	}
	var lines []line
	for _, s := range day.Sessions {
		for _, p := range s.Prompts {
			lines = append(lines, line{at: p.At, path: s.Session.ProjectPath, text: p.Text})
		}
	}
	if len(lines) == 0 {
		return
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].at.Before(lines[j].at) })

	b.WriteString("## Prompt transcript\n")
	used := 0
	for i, l := range lines {
		text := strings.Join(strings.Fields(l.text), " ")
		entry := fmt.Sprintf("[%s] %s: %s\n", l.at.In(loc).Format("15:04"), l.path, text)
		if used+len(entry) > TranscriptBudget {
			remaining := TranscriptBudget - used
			if remaining > 80 {
				b.WriteString(strings.ToValidUTF8(entry[:remaining-4], "") + "...\n")
			}
			fmt.Fprintf(b, "[transcript truncated, %d more prompt(s)]\n", len(lines)-i)
			break
		}
		b.WriteString(entry)
		used += len(entry)
	}
	b.WriteString("\n")
}

func writeToolUsage(b *strings.Builder, day activity.DayActivity) {
	counts := map[string]int{}
	counted := map[string]bool{}
	for _, s := range day.Sessions {
		for tool, n := range s.Session.ToolCounts {
			counts[tool] += n
		}
		if len(s.Session.ToolCounts) > 0 {
			counted[s.Session.ID] = true
		}
	}
	files := map[string]int{}
	for _, ev := range day.ToolEvents {
		if !counted[ev.SessionID] {
			counts[ev.ToolName]++
		}
		if ev.FilePath != "" {
			files[ev.FilePath]++
		}
	}
	for _, s := range day.Sessions {
		for _, f := range s.Session.Files {
			files[f]++
		}
	}
	if len(counts) == 0 && len(files) == 0 {
		return
	}

	b.WriteString("## Tool and file usage\n")
	if len(counts) > 0 {
		tools := make([]string, 0, len(counts))
		for t := range counts {
			tools = append(tools, t)
		}
		sort.Strings(tools)
		parts := make([]string, len(tools))
		for i, t := range tools {
			parts[i] = fmt.Sprintf("%s=%d", t, counts[t])
		}
		fmt.Fprintf(b, "Tools: %s\n", strings.Join(parts, ", "))
	}
	if len(files) > 0 {
		paths := make([]string, 0, len(files))
		for f := range files {
			paths = append(paths, f)
		}
		sort.Slice(paths, func(i, j int) bool {
			if files[paths[i]] != files[paths[j]] {
				return files[paths[i]] > files[paths[j]]
			}
			return paths[i] < paths[j]
		})
		b.WriteString("Files:\n")
		for i, f := range paths {
			if i == maxListedFiles {
				fmt.Fprintf(b, "- ... %d more\n", len(paths)-i)
				break
			}
			fmt.Fprintf(b, "- %s (%d)\n", f, files[f])
		}
	}
	b.WriteString("\n")
}

func writeCommits(b *strings.Builder, day activity.DayActivity, catalog *project.Catalog, loc *time.Location) {
	if len(day.Commits) == 0 {
		return
	}
	groups := map[string][]activity.Commit{}
	var order []string
	for _, c := range day.Commits {
		label := projectLabel(catalog, c.RepoPath)
		if _, ok := groups[label]; !ok {
			order = append(order, label)
		}
		groups[label] = append(groups[label], c)
	}

	b.WriteString("## Commits by project\n")
	for _, label := range order {
		fmt.Fprintf(b, "### %s\n", label)
		for _, c := range groups[label] {
			sha := c.SHA
			if len(sha) > 8 {
				sha = sha[:8]
			}
			fmt.Fprintf(b, "- %s %s %s (+%d/-%d) %s\n",
				c.CommittedAt.In(loc).Format("15:04"), sha, c.Subject(), c.LinesAdded, c.LinesDeleted, c.RepoPath)
		}
	}
	b.WriteString("\n")
}

func writeCatalog(b *strings.Builder, catalog *project.Catalog) {
	b.WriteString("## Projects\n")
	if len(catalog.All()) == 0 {
		b.WriteString("(none)\n\n")
		return
	}
	for _, p := range catalog.All() {
		fmt.Fprintf(b, "- id=%s name=%q phase=%s paths=%s", p.ID, p.Name, p.Phase, strings.Join(p.Paths(), ","))
		if p.IsEnhancement() {
			fmt.Fprintf(b, " enhancement_of=%s", *p.ParentProjectID)
		}
		if p.Description != "" {
			fmt.Fprintf(b, " description=%q", p.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}
