package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TrainingStatus tracks the lifecycle of a committed booking.
type TrainingStatus string

const (
	TrainingScheduled TrainingStatus = "SCHEDULED"
	TrainingCompleted TrainingStatus = "COMPLETED"
	TrainingCancelled TrainingStatus = "CANCELLED"
)

// Training is a committed booking between an instructor and a learner.
// Intervals are half-open: [StartTime, EndTime).
type Training struct {
	ID           string         `db:"id" json:"id"`
	InstructorID string         `db:"instructor_id" json:"instructor_id"`
	LearnerID    string         `db:"learner_id" json:"learner_id"`
	StartTime    time.Time      `db:"start_time" json:"start_time"`
	EndTime      time.Time      `db:"end_time" json:"end_time"`
	Status       TrainingStatus `db:"status" json:"status"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// TrainingListItem is a Training with denormalized party names for lists.
type TrainingListItem struct {
	Training
	InstructorName string `db:"instructor_name" json:"instructor_name"`
	LearnerName    string `db:"learner_name" json:"learner_name"`
}

// TrainingDetail is a Training with its score sheets ordered by creation.
type TrainingDetail struct {
	TrainingListItem
	ScoreSheets []ScoreSheet `json:"score_sheets"`
}

// ScoreSheet holds an opaque JSON document collaboratively edited during a
// training. Data is stored verbatim; the core imposes no schema on it.
type ScoreSheet struct {
	ID         string         `db:"id" json:"id"`
	TrainingID string         `db:"training_id" json:"training_id"`
	Data       types.JSONText `db:"data" json:"data"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}
