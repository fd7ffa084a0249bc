package classify

import (
	"strings"

	"github.com/rpggio/captime/internal/domain/activity"
)

// features are the counts the rules look at, computed once per input.
type features struct {
	input        Input
	commits      int
	files        int
	testFiles    int
	docFiles     int
	infraFiles   int
	toolTotal    int
	shellCalls   int
	reads        int
	edits        int
	debugCommits int
	refacCommits int
	devopsText   bool
	reviewText   bool
}

func extract(in Input) features {
	f := features{input: in, commits: len(in.CommitMessages), files: len(in.Files)}
	for _, p := range in.Files {
		if isTestFile(p) {
			f.testFiles++
		}
		if isDocFile(p) {
			f.docFiles++
		}
		if isInfraFile(p) {
			f.infraFiles++
		}
	}
	for tool, n := range in.ToolCounts {
		f.toolTotal += n
		switch tool {
		case activity.ToolBash:
			f.shellCalls += n
		case activity.ToolRead, activity.ToolGrep, activity.ToolGlob, activity.ToolLS,
			activity.ToolWebFetch, activity.ToolWebSearch, activity.ToolNotebookRead:
			f.reads += n
		case activity.ToolEdit, activity.ToolMultiEdit, activity.ToolWrite, activity.ToolNotebookEdit:
			f.edits += n
		}
	}
	for _, msg := range in.CommitMessages {
		if debugKeywords.MatchString(msg) {
			f.debugCommits++
		}
		if refactorKeywords.MatchString(msg) {
			f.refacCommits++
		}
	}
	commitText := strings.Join(in.CommitMessages, "\n")
	f.devopsText = devopsKeywords.MatchString(commitText) || devopsKeywords.MatchString(in.Summary)
	f.reviewText = reviewKeywords.MatchString(strings.Join(in.Prompts, "\n")) || reviewKeywords.MatchString(commitText)
	return f
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// rule matches one work type. Rules are evaluated in order and the first
// match wins.
type rule struct {
	Name     string
	WorkType WorkType
	Match    func(f features) (confidence float64, ok bool)
}

// rules is the priority-ordered heuristic rule list.
var rules = []rule{
	{
		Name:     "devops",
		WorkType: WorkDevops,
		Match: func(f features) (float64, bool) {
			if !f.devopsText {
				return 0, false
			}
			if f.infraFiles > 0 {
				return 0.85, true
			}
			if ratio(f.shellCalls, f.toolTotal) > 0.4 {
				return 0.8, true
			}
			return 0, false
		},
	},
	{
		Name:     "testing",
		WorkType: WorkTesting,
		Match: func(f features) (float64, bool) {
			return 0.85, f.files > 0 && ratio(f.testFiles, f.files) >= 0.7
		},
	},
	{
		Name:     "documentation",
		WorkType: WorkDocumentation,
		Match: func(f features) (float64, bool) {
			return 0.85, f.files > 0 && ratio(f.docFiles, f.files) >= 0.7
		},
	},
	{
		Name:     "debugging",
		WorkType: WorkDebugging,
		Match: func(f features) (float64, bool) {
			return 0.8, f.commits > 0 && ratio(f.debugCommits, f.commits) >= 0.5
		},
	},
	{
		Name:     "refactoring",
		WorkType: WorkRefactoring,
		Match: func(f features) (float64, bool) {
			return 0.8, f.commits > 0 && ratio(f.refacCommits, f.commits) >= 0.5
		},
	},
	{
		Name:     "research",
		WorkType: WorkResearch,
		Match: func(f features) (float64, bool) {
			if f.reads > 0 && f.edits == 0 && f.commits <= 1 {
				return 0.75, true
			}
			if f.edits > 0 && ratio(f.reads, f.edits) > 3 && f.commits == 0 {
				return 0.7, true
			}
			return 0, false
		},
	},
	{
		Name:     "code_review",
		WorkType: WorkCodeReview,
		Match: func(f features) (float64, bool) {
			return 0.7, f.reviewText
		},
	},
}

// Heuristic classifies in without calling a model. It is pure and total.
func Heuristic(in Input) Result {
	f := extract(in)
	for _, r := range rules {
		if conf, ok := r.Match(f); ok {
			return Result{WorkType: r.WorkType, Confidence: conf, Rule: r.Name, Source: SourceHeuristic}
		}
	}
	conf := 0.5
	if f.commits > 0 && f.toolTotal > 0 {
		conf = 0.6
	}
	return Result{WorkType: WorkCoding, Confidence: conf, Rule: "default", Source: SourceHeuristic}
}
