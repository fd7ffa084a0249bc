package project

import (
	"path/filepath"
	"strings"
	"time"
)

// Phase is the ASC 350-40 lifecycle phase of a project.
type Phase string

const (
	PhasePreliminary            Phase = "preliminary"
	PhaseApplicationDevelopment Phase = "application_development"
	PhasePostImplementation     Phase = "post_implementation"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhasePreliminary, PhaseApplicationDevelopment, PhasePostImplementation:
		return true
	}
	return false
}

// Status marks whether a project still receives attributions.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// PathPair links a local checkout path to the path the coding assistant
// records for the same project.
type PathPair struct {
	LocalPath  string `json:"local_path"`
	ClaudePath string `json:"claude_path"`
}

// Project is a capitalization project. Phase on this record is the source
// of truth for capitalizability.
type Project struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Description          string     `json:"description,omitempty"`
	Phase                Phase      `json:"phase"`
	Status               Status     `json:"status"`
	ManagementAuthorized bool       `json:"management_authorized"`
	ProbableToComplete   bool       `json:"probable_to_complete"`
	RepoPaths            []string   `json:"repo_paths,omitempty"`
	PathPairs            []PathPair `json:"path_pairs,omitempty"`
	ParentProjectID      *string    `json:"parent_project_id,omitempty"`
	GoLiveDate           *time.Time `json:"go_live_date,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// Capitalizable reports whether hours on this project may be capitalized.
func (p Project) Capitalizable() bool {
	return p.Phase == PhaseApplicationDevelopment && p.ManagementAuthorized && p.ProbableToComplete
}

// IsEnhancement reports whether the project is an enhancement of another.
func (p Project) IsEnhancement() bool {
	return p.ParentProjectID != nil && *p.ParentProjectID != ""
}

// Paths returns every path that ties activity to this project.
func (p Project) Paths() []string {
	paths := make([]string, 0, len(p.RepoPaths)+2*len(p.PathPairs))
	paths = append(paths, p.RepoPaths...)
	for _, pair := range p.PathPairs {
		paths = append(paths, pair.LocalPath, pair.ClaudePath)
	}
	return paths
}

// MatchLength returns the length of the longest project path that path
// falls under, or 0 when none does.
func (p Project) MatchLength(path string) int {
	path = normalizePath(path)
	if path == "" {
		return 0
	}
	best := 0
	for _, candidate := range p.Paths() {
		candidate = normalizePath(candidate)
		if candidate == "" {
			continue
		}
		if path == candidate || strings.HasPrefix(path, candidate+"/") {
			if len(candidate) > best {
				best = len(candidate)
			}
		}
	}
	return best
}

// Matches reports whether path ties to this project.
func (p Project) Matches(path string) bool {
	return p.MatchLength(path) > 0
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	return strings.TrimSuffix(filepath.ToSlash(filepath.Clean(path)), "/")
}
