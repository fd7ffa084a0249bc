package period

import "context"

// Status is the close state of an accounting period.
type Status string

const (
	StatusOpen      Status = "open"
	StatusSoftClose Status = "soft_close"
	StatusLocked    Status = "locked"
)

// PeriodLayout is the month key accounting periods are stored under.
const PeriodLayout = "2006-01"

// Checker reports the close state of the period containing date.
type Checker interface {
	StatusFor(ctx context.Context, date string) (Status, error)
}
