package developer

import "context"

// Developer is a person whose activity is attributed.
type Developer struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Email            string  `json:"email"`
	AdjustmentFactor float64 `json:"adjustment_factor"`
	Active           bool    `json:"active"`
}

// Factor returns the adjustment factor, treating unset as 1.
func (d Developer) Factor() float64 {
	if d.AdjustmentFactor <= 0 {
		return 1
	}
	return d.AdjustmentFactor
}

// Repository lists developers.
type Repository interface {
	Get(ctx context.Context, id string) (*Developer, error)
	ListActive(ctx context.Context) ([]Developer, error)
}
