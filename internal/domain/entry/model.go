package entry

import "time"

// Status is the review state of a daily entry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusApproved  Status = "approved"
	StatusDisputed  Status = "disputed"
	StatusFlagged   Status = "flagged"
)

// Outlier tags recorded on flagged entries.
const (
	// OutlierLowActivity tags entries whose only evidence is a near-idle session.
	OutlierLowActivity = "low_activity"
	OutlierStatistical = "statistical"
)

// DailyEntry is one developer's hours on one project for one day.
type DailyEntry struct {
	ID                 string     `json:"id"`
	DeveloperID        string     `json:"developer_id"`
	Date               string     `json:"date"`
	ProjectID          *string    `json:"project_id,omitempty"`
	ProjectName        string     `json:"project_name"`
	Phase              string     `json:"phase,omitempty"`
	HoursRaw           float64    `json:"hours_raw"`
	HoursEstimated     float64    `json:"hours_estimated"`
	HoursConfirmed     *float64   `json:"hours_confirmed,omitempty"`
	Summary            string     `json:"summary"`
	Reasoning          string     `json:"reasoning,omitempty"`
	ModelUsed          string     `json:"model_used"`
	Fallback           bool       `json:"fallback"`
	Confidence         float64    `json:"confidence"`
	WorkType           string     `json:"work_type"`
	WorkTypeConfidence float64    `json:"work_type_confidence"`
	OutlierFlag        *string    `json:"outlier_flag,omitempty"`
	ZScore             float64    `json:"z_score"`
	FlagReason         string     `json:"flag_reason,omitempty"`
	Status             Status     `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	ReviewedAt         *time.Time `json:"reviewed_at,omitempty"`
}

// HistoricalEntry is the slice of a past entry used for baselines.
type HistoricalEntry struct {
	Date           string   `json:"date"`
	ProjectID      *string  `json:"project_id,omitempty"`
	ConfirmedHours *float64 `json:"confirmed_hours,omitempty"`
}
