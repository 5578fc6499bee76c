package models

import "time"

// AvailabilityWindow is a time range an instructor has published for
// booking. Windows of the same instructor may overlap each other; only
// training-vs-training overlap is constrained.
type AvailabilityWindow struct {
	ID           string    `db:"id" json:"id"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	StartTime    time.Time `db:"start_time" json:"start_time"`
	EndTime      time.Time `db:"end_time" json:"end_time"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
