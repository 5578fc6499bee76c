package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/roadready/roadready-api/internal/models"
)

// ScoreSheetRepository persists score sheets attached to trainings.
type ScoreSheetRepository struct {
	db *sqlx.DB
}

// NewScoreSheetRepository constructs the repository.
func NewScoreSheetRepository(db *sqlx.DB) *ScoreSheetRepository {
	return &ScoreSheetRepository{db: db}
}

// Create inserts an empty sheet for the training and returns it.
func (r *ScoreSheetRepository) Create(ctx context.Context, trainingID string) (*models.ScoreSheet, error) {
	now := time.Now().UTC()
	sheet := &models.ScoreSheet{
		ID:         uuid.NewString(),
		TrainingID: trainingID,
		Data:       types.JSONText(`{}`),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	const query = `INSERT INTO score_sheets (id, training_id, data, created_at, updated_at)
VALUES (:id, :training_id, :data, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sheet); err != nil {
		return nil, fmt.Errorf("insert score sheet: %w", err)
	}
	return sheet, nil
}

// Get returns a sheet by id. sql.ErrNoRows passes through when absent.
func (r *ScoreSheetRepository) Get(ctx context.Context, id string) (*models.ScoreSheet, error) {
	const query = `SELECT id, training_id, data, created_at, updated_at FROM score_sheets WHERE id = $1`
	var sheet models.ScoreSheet
	if err := r.db.GetContext(ctx, &sheet, query, id); err != nil {
		return nil, err
	}
	return &sheet, nil
}

// ListByTraining returns the training's sheets ordered by creation.
func (r *ScoreSheetRepository) ListByTraining(ctx context.Context, trainingID string) ([]models.ScoreSheet, error) {
	const query = `SELECT id, training_id, data, created_at, updated_at
FROM score_sheets WHERE training_id = $1 ORDER BY created_at ASC`
	sheets := []models.ScoreSheet{}
	if err := r.db.SelectContext(ctx, &sheets, query, trainingID); err != nil {
		return nil, fmt.Errorf("list score sheets: %w", err)
	}
	return sheets, nil
}

// UpdateData replaces the stored document wholesale.
func (r *ScoreSheetRepository) UpdateData(ctx context.Context, id string, data types.JSONText) error {
	const query = `UPDATE score_sheets SET data = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, data, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update score sheet: %w", err)
	}
	return nil
}

// Delete removes the sheet; deleting a missing sheet is a no-op.
func (r *ScoreSheetRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM score_sheets WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete score sheet: %w", err)
	}
	return nil
}
