package attribution

import (
	"context"

	"github.com/rpggio/captime/internal/classify"
	"github.com/rpggio/captime/internal/domain/activity"
	"github.com/rpggio/captime/internal/domain/project"
)

// ActivitySource gathers one developer's filtered activity for one day.
type ActivitySource interface {
	GatherDay(ctx context.Context, developerID, date string, window activity.Window) (activity.DayActivity, error)
}

// ProjectSource loads the project catalog for a run.
type ProjectSource interface {
	Catalog(ctx context.Context) (*project.Catalog, error)
}

// WorkClassifier assigns a work type. Implementations must be total.
type WorkClassifier interface {
	Classify(ctx context.Context, in classify.Input) classify.Result
}
