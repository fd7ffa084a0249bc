package project

import "context"

// Repository provides read access to projects. Projects are maintained by
// admin workflows outside the attribution pipeline.
type Repository interface {
	ListActive(ctx context.Context) ([]Project, error)
}
