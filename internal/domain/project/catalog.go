package project

// Catalog is an in-memory index of projects for one pipeline run.
type Catalog struct {
	projects []Project
	byID     map[string]Project
}

// NewCatalog indexes projects by ID.
func NewCatalog(projects []Project) *Catalog {
	byID := make(map[string]Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
	}
	return &Catalog{projects: projects, byID: byID}
}

// All returns the indexed projects.
func (c *Catalog) All() []Project {
	return c.projects
}

// Get returns the project with id.
func (c *Catalog) Get(id string) (Project, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Match returns the project whose paths most specifically contain path.
func (c *Catalog) Match(path string) (Project, bool) {
	var (
		best    Project
		bestLen int
	)
	for _, p := range c.projects {
		if n := p.MatchLength(path); n > bestLen {
			best, bestLen = p, n
		}
	}
	return best, bestLen > 0
}
