package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/roadready/roadready-api/internal/models"
)

// TrainingRepository reads committed training sessions.
type TrainingRepository struct {
	db *sqlx.DB
}

// NewTrainingRepository constructs the repository.
func NewTrainingRepository(db *sqlx.DB) *TrainingRepository {
	return &TrainingRepository{db: db}
}

const trainingColumns = `t.id, t.instructor_id, t.learner_id, t.start_time, t.end_time, t.status, t.created_at, t.updated_at,
iu.name AS instructor_name, lu.name AS learner_name`

// Get returns one training with denormalized party names. sql.ErrNoRows
// passes through when absent.
func (r *TrainingRepository) Get(ctx context.Context, id string) (*models.TrainingListItem, error) {
	query := fmt.Sprintf(`SELECT %s
FROM trainings t
JOIN users iu ON iu.id = t.instructor_id
JOIN users lu ON lu.id = t.learner_id
WHERE t.id = $1`, trainingColumns)

	var item models.TrainingListItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListForUser returns trainings where the user is a party under the given
// role, most recent start first.
func (r *TrainingRepository) ListForUser(ctx context.Context, userID string, role models.UserRole) ([]models.TrainingListItem, error) {
	party := "learner_id"
	if role == models.RoleInstructor {
		party = "instructor_id"
	}
	query := fmt.Sprintf(`SELECT %s
FROM trainings t
JOIN users iu ON iu.id = t.instructor_id
JOIN users lu ON lu.id = t.learner_id
WHERE t.%s = $1
ORDER BY t.start_time DESC`, trainingColumns, party)

	items := []models.TrainingListItem{}
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("list trainings: %w", err)
	}
	return items, nil
}
