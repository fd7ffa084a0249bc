package entry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validEntry() *DailyEntry {
	id := "p1"
	return &DailyEntry{
		DeveloperID:    "dev1",
		Date:           "2026-03-10",
		ProjectID:      &id,
		HoursRaw:       2,
		HoursEstimated: 2.5,
		Confidence:     0.8,
		Status:         StatusPending,
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(validEntry()))
	require.ErrorIs(t, Validate(nil), ErrInvalidEntry)

	e := validEntry()
	e.HoursEstimated = -1
	require.ErrorIs(t, Validate(e), ErrInvalidEntry)

	e = validEntry()
	e.Confidence = 1.2
	require.ErrorIs(t, Validate(e), ErrInvalidEntry)

	e = validEntry()
	e.ProjectID = nil
	require.ErrorIs(t, Validate(e), ErrInvalidEntry)
	e.Status = StatusFlagged
	require.NoError(t, Validate(e))

	e = validEntry()
	e.Status = StatusApproved
	require.ErrorIs(t, Validate(e), ErrInvalidEntry)
}

func TestValidateTransition(t *testing.T) {
	require.NoError(t, ValidateTransition(StatusPending, StatusConfirmed))
	require.NoError(t, ValidateTransition(StatusFlagged, StatusConfirmed))
	require.NoError(t, ValidateTransition(StatusConfirmed, StatusApproved))
	require.NoError(t, ValidateTransition(StatusDisputed, StatusConfirmed))

	require.ErrorIs(t, ValidateTransition(StatusFlagged, StatusApproved), ErrInvalidTransition)
	require.ErrorIs(t, ValidateTransition(StatusApproved, StatusPending), ErrInvalidTransition)
}
