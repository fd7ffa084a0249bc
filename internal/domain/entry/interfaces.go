package entry

import "context"

// Repository provides persistence for daily entries.
type Repository interface {
	ExistsForDate(ctx context.Context, developerID, date string) (bool, error)
	// CreateAll stores a day's entries atomically.
	CreateAll(ctx context.Context, entries []DailyEntry) error
	ListByDate(ctx context.Context, developerID, date string) ([]DailyEntry, error)
	ListHistory(ctx context.Context, developerID, fromDate, toDate string) ([]HistoricalEntry, error)
}
