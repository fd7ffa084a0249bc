package entry

import "fmt"

// Validate checks the invariants every stored entry must hold.
func Validate(e *DailyEntry) error {
	if e == nil || e.DeveloperID == "" || e.Date == "" {
		return ErrInvalidEntry
	}
	if e.HoursRaw < 0 || e.HoursEstimated < 0 {
		return fmt.Errorf("%w: negative hours", ErrInvalidEntry)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidEntry, e.Confidence)
	}
	if e.ProjectID == nil && e.Status != StatusFlagged {
		return fmt.Errorf("%w: unattributed entry must be flagged", ErrInvalidEntry)
	}
	switch e.Status {
	case StatusPending, StatusFlagged:
	default:
		return fmt.Errorf("%w: generated entries start pending or flagged", ErrInvalidEntry)
	}
	return nil
}

// ValidateTransition checks a review transition. Review workflows own
// these transitions; generation only creates pending or flagged entries.
func ValidateTransition(from, to Status) error {
	valid := false
	switch from {
	case StatusPending:
		switch to {
		case StatusConfirmed, StatusApproved, StatusDisputed:
			valid = true
		}
	case StatusFlagged:
		switch to {
		case StatusConfirmed, StatusDisputed:
			valid = true
		}
	case StatusConfirmed:
		if to == StatusApproved || to == StatusDisputed {
			valid = true
		}
	case StatusDisputed:
		if to == StatusConfirmed {
			valid = true
		}
	}
	if !valid {
		return ErrInvalidTransition
	}
	return nil
}
