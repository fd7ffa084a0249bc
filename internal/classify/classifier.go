package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/rpggio/captime/internal/llm"
)

// EscalationThreshold is the heuristic confidence below which the model is
// consulted.
const EscalationThreshold = 0.7

const (
	maxPromptSamples  = 8
	maxSampleChars    = 300
	classifyMaxTokens = 256
)

// Classifier combines the heuristic rules with an optional model pass.
type Classifier struct {
	model  llm.Completer
	logger *slog.Logger
}

// NewClassifier returns a classifier. model may be nil, in which case only
// heuristics are used.
func NewClassifier(model llm.Completer, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Classifier{model: model, logger: logger}
}

// Classify always returns a result. Low-confidence heuristic answers are
// escalated to the model once; any model failure keeps the heuristic
// answer.
func (c *Classifier) Classify(ctx context.Context, in Input) Result {
	heuristic := Heuristic(in)
	if heuristic.Confidence >= EscalationThreshold || c.model == nil {
		return heuristic
	}
	refined, ok := c.escalate(ctx, in)
	if !ok {
		return heuristic
	}
	return refined
}

type modelAnswer struct {
	WorkType   string   `json:"workType"`
	Confidence *float64 `json:"confidence"`
}

func (c *Classifier) escalate(ctx context.Context, in Input) (Result, bool) {
	res, err := c.model.Complete(ctx, buildPrompt(in), llm.Options{
		PromptType: llm.PromptClassification,
		MaxTokens:  classifyMaxTokens,
		JSONMode:   true,
	})
	if err != nil {
		c.logger.Debug("classification escalation failed", "error", err)
		return Result{}, false
	}
	answer, ok := parseAnswer(res.Text)
	if !ok {
		c.logger.Debug("classification answer rejected", "model", res.ModelUsed)
		return Result{}, false
	}
	return answer, true
}

func parseAnswer(text string) (Result, bool) {
	payload, ok := llm.ExtractJSON(text)
	if !ok {
		return Result{}, false
	}
	var ans modelAnswer
	if err := json.Unmarshal([]byte(payload), &ans); err != nil {
		return Result{}, false
	}
	wt := WorkType(strings.ToLower(strings.TrimSpace(ans.WorkType)))
	if !wt.Valid() || ans.Confidence == nil {
		return Result{}, false
	}
	if *ans.Confidence < 0 || *ans.Confidence > 1 {
		return Result{}, false
	}
	return Result{WorkType: wt, Confidence: *ans.Confidence, Rule: "model", Source: SourceModel}, true
}

func buildPrompt(in Input) string {
	var b strings.Builder
	b.WriteString("Classify this unit of software work into exactly one category.\n")
	b.WriteString("Categories: ")
	for i, t := range WorkTypes {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(t))
	}
	b.WriteString("\n\n")
	if in.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", in.Summary)
	}
	if len(in.CommitMessages) > 0 {
		b.WriteString("Commits:\n")
		for _, m := range in.CommitMessages {
			fmt.Fprintf(&b, "- %s\n", clip(m, maxSampleChars))
		}
	}
	if len(in.Files) > 0 {
		b.WriteString("Files:\n")
		for i, f := range in.Files {
			if i == 30 {
				fmt.Fprintf(&b, "- ... %d more\n", len(in.Files)-i)
				break
			}
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if len(in.ToolCounts) > 0 {
		b.WriteString("Tool usage:")
		tools := make([]string, 0, len(in.ToolCounts))
		for tool := range in.ToolCounts {
			tools = append(tools, tool)
		}
		sort.Strings(tools)
		for _, tool := range tools {
			fmt.Fprintf(&b, " %s=%d", tool, in.ToolCounts[tool])
		}
		b.WriteString("\n")
	}
	for i, p := range in.Prompts {
		if i == maxPromptSamples {
			break
		}
		if i == 0 {
			b.WriteString("Developer prompts:\n")
		}
		fmt.Fprintf(&b, "- %s\n", clip(p, maxSampleChars))
	}
	b.WriteString("\nRespond with JSON only: {\"workType\": \"<category>\", \"confidence\": <0.0-1.0>}\n")
	return b.String()
}

func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
