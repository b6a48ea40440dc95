package domain

import "time"

const (
	DefaultDepartment = "Unknown"
	DefaultRegNumber  = "N/A"
	DefaultFullName   = "Unknown User"
)

// SubmissionDocument is the stored shape of a submission. Any field may be absent.
type SubmissionDocument struct {
	UserID      *string    `json:"userId,omitempty"`
	RegNumber   *string    `json:"regNumber,omitempty"`
	FullName    *string    `json:"fullName,omitempty"`
	Department  *string    `json:"department,omitempty"`
	Email       *string    `json:"email,omitempty"`
	Score       *int       `json:"score,omitempty"`
	Total       *int       `json:"total,omitempty"`
	Percentage  *int       `json:"percentage,omitempty"`
	TimeSpent   *int       `json:"timeSpent,omitempty"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
}

// Record converts the document into a SubmissionRecord, applying field defaults.
func (d SubmissionDocument) Record(quizID, submissionID string) SubmissionRecord {
	rec := SubmissionRecord{
		SubmissionID:     submissionID,
		QuizID:           quizID,
		UserID:           stringOr(d.UserID, ""),
		RegNumber:        stringOr(d.RegNumber, DefaultRegNumber),
		FullName:         stringOr(d.FullName, DefaultFullName),
		Department:       stringOr(d.Department, DefaultDepartment),
		Email:            stringOr(d.Email, ""),
		Score:            intOr(d.Score, 0),
		Total:            intOr(d.Total, 0),
		Percentage:       intOr(d.Percentage, 0),
		TimeSpentSeconds: intOr(d.TimeSpent, 0),
	}
	if d.SubmittedAt != nil {
		rec.SubmittedAt = *d.SubmittedAt
	}
	// A zero total cannot produce a meaningful percentage.
	if rec.Total <= 0 {
		rec.Percentage = 0
	}
	return rec
}

// DocumentFromRecord is the inverse of Record, used when snapshots are cached.
func DocumentFromRecord(r SubmissionRecord) SubmissionDocument {
	doc := SubmissionDocument{
		UserID:     &r.UserID,
		RegNumber:  &r.RegNumber,
		FullName:   &r.FullName,
		Department: &r.Department,
		Email:      &r.Email,
		Score:      &r.Score,
		Total:      &r.Total,
		Percentage: &r.Percentage,
		TimeSpent:  &r.TimeSpentSeconds,
	}
	if r.HasTimestamp() {
		ts := r.SubmittedAt
		doc.SubmittedAt = &ts
	}
	return doc
}

func stringOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}
