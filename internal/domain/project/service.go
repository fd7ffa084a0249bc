package project

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Service builds the project catalog used to resolve model candidates.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new project service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, logger: logger}
}

// Catalog loads the active projects into a lookup index.
func (s *Service) Catalog(ctx context.Context) (*Catalog, error) {
	projects, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return NewCatalog(projects), nil
}
