// Package classify assigns a work type to a unit of attributed work.
package classify

// WorkType is one of the fixed work categories.
type WorkType string

const (
	WorkCoding        WorkType = "coding"
	WorkDebugging     WorkType = "debugging"
	WorkRefactoring   WorkType = "refactoring"
	WorkResearch      WorkType = "research"
	WorkCodeReview    WorkType = "code_review"
	WorkTesting       WorkType = "testing"
	WorkDocumentation WorkType = "documentation"
	WorkDevops        WorkType = "devops"
)

// WorkTypes lists every valid category.
var WorkTypes = []WorkType{
	WorkCoding, WorkDebugging, WorkRefactoring, WorkResearch,
	WorkCodeReview, WorkTesting, WorkDocumentation, WorkDevops,
}

// Valid reports whether w is a known category.
func (w WorkType) Valid() bool {
	for _, t := range WorkTypes {
		if t == w {
			return true
		}
	}
	return false
}

// Source records which stage produced a classification.
type Source string

const (
	SourceHeuristic Source = "heuristic"
	SourceModel     Source = "model"
)

// Input is the evidence for one unit of work.
type Input struct {
	Summary        string
	CommitMessages []string
	Files          []string
	ToolCounts     map[string]int
	Prompts        []string
}

// Result is a classification with its confidence in [0,1].
type Result struct {
	WorkType   WorkType `json:"work_type"`
	Confidence float64  `json:"confidence"`
	Rule       string   `json:"rule,omitempty"`
	Source     Source   `json:"source"`
}
