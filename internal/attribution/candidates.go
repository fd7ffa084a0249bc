package attribution

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/rpggio/captime/internal/domain/project"
	"github.com/rpggio/captime/internal/llm"
)

// MaxHoursPerCandidate bounds a single candidate's estimate.
const MaxHoursPerCandidate = 24.0

// Candidate is one per-project estimate proposed by the model.
type Candidate struct {
	ProjectID            *string
	ProjectName          string
	Summary              string
	HoursEstimate        float64
	Confidence           float64
	Reasoning            string
	PhaseSuggestion      project.Phase
	EnhancementSuggested bool
}

type rawCandidate struct {
	ProjectID            *string  `json:"projectId"`
	ProjectName          *string  `json:"projectName"`
	Summary              *string  `json:"summary"`
	HoursEstimate        *float64 `json:"hoursEstimate"`
	Confidence           *float64 `json:"confidence"`
	Reasoning            string   `json:"reasoning"`
	PhaseSuggestion      *string  `json:"phaseSuggestion"`
	EnhancementSuggested *bool    `json:"enhancementSuggested"`
}

type candidateEnvelope struct {
	Entries *[]rawCandidate `json:"entries"`
}

// DecodeCandidates parses a model answer into candidates. The answer may be
// a bare array or an object with an "entries" array, optionally inside a
// code fence. Any missing required field or out-of-range value rejects the
// whole answer.
func DecodeCandidates(text string) ([]Candidate, error) {
	payload, ok := llm.ExtractJSON(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON payload", ErrInvalidCandidates)
	}

	var raws []rawCandidate
	switch payload[0] {
	case '[':
		if err := decodeStrict(payload, &raws); err != nil {
			return nil, err
		}
	case '{':
		var env candidateEnvelope
		if err := decodeStrict(payload, &env); err != nil {
			return nil, err
		}
		if env.Entries == nil {
			return nil, fmt.Errorf("%w: missing entries array", ErrInvalidCandidates)
		}
		raws = *env.Entries
	default:
		return nil, fmt.Errorf("%w: unexpected payload", ErrInvalidCandidates)
	}

	out := make([]Candidate, 0, len(raws))
	for i, r := range raws {
		c, err := r.candidate()
		if err != nil {
			return nil, fmt.Errorf("%w: candidate %d: %v", ErrInvalidCandidates, i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func decodeStrict(payload string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCandidates, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", ErrInvalidCandidates)
	}
	return nil
}

func (r rawCandidate) candidate() (Candidate, error) {
	if r.ProjectName == nil || strings.TrimSpace(*r.ProjectName) == "" {
		return Candidate{}, fmt.Errorf("projectName is required")
	}
	if r.Summary == nil || strings.TrimSpace(*r.Summary) == "" {
		return Candidate{}, fmt.Errorf("summary is required")
	}
	if r.HoursEstimate == nil {
		return Candidate{}, fmt.Errorf("hoursEstimate is required")
	}
	hours := *r.HoursEstimate
	if math.IsNaN(hours) || hours < 0 || hours > MaxHoursPerCandidate {
		return Candidate{}, fmt.Errorf("hoursEstimate %v out of range", hours)
	}
	if r.Confidence == nil {
		return Candidate{}, fmt.Errorf("confidence is required")
	}
	if *r.Confidence < 0 || *r.Confidence > 1 {
		return Candidate{}, fmt.Errorf("confidence %v out of range", *r.Confidence)
	}

	c := Candidate{
		ProjectName:   strings.TrimSpace(*r.ProjectName),
		Summary:       strings.TrimSpace(*r.Summary),
		HoursEstimate: hours,
		Confidence:    *r.Confidence,
		Reasoning:     strings.TrimSpace(r.Reasoning),
	}
	if r.ProjectID != nil {
		if id := strings.TrimSpace(*r.ProjectID); id != "" {
			c.ProjectID = &id
		}
	}
	if r.PhaseSuggestion != nil && *r.PhaseSuggestion != "" {
		phase := project.Phase(strings.ToLower(strings.TrimSpace(*r.PhaseSuggestion)))
		if !phase.Valid() {
			return Candidate{}, fmt.Errorf("unknown phaseSuggestion %q", *r.PhaseSuggestion)
		}
		c.PhaseSuggestion = phase
	}
	if r.EnhancementSuggested != nil {
		c.EnhancementSuggested = *r.EnhancementSuggested
	}
	return c, nil
}

// resolved is a candidate paired with the catalog project it names, if any.
type resolved struct {
	Candidate
	project *project.Project
}

// resolve looks each candidate's project up in the catalog and merges
// candidates that name the same project. Unmatched candidates are kept
// separately.
func resolve(cands []Candidate, catalog *project.Catalog) []resolved {
	var out []resolved
	index := map[string]int{}
	for _, c := range cands {
		r := resolved{Candidate: c}
		if c.ProjectID != nil {
			if p, ok := catalog.Get(*c.ProjectID); ok {
				r.project = &p
			}
		}
		if r.project == nil {
			out = append(out, r)
			continue
		}
		if i, ok := index[r.project.ID]; ok {
			out[i] = merge(out[i], r)
			continue
		}
		index[r.project.ID] = len(out)
		out = append(out, r)
	}
	return out
}

func merge(a, b resolved) resolved {
	total := a.HoursEstimate + b.HoursEstimate
	if total > 0 {
		a.Confidence = (a.Confidence*a.HoursEstimate + b.Confidence*b.HoursEstimate) / total
	} else {
		a.Confidence = math.Min(a.Confidence, b.Confidence)
	}
	a.HoursEstimate = math.Min(total, MaxHoursPerCandidate)
	a.Summary = joinNonEmpty("; ", a.Summary, b.Summary)
	a.Reasoning = joinNonEmpty("; ", a.Reasoning, b.Reasoning)
	if a.PhaseSuggestion == "" {
		a.PhaseSuggestion = b.PhaseSuggestion
	}
	a.EnhancementSuggested = a.EnhancementSuggested || b.EnhancementSuggested
	return a
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
