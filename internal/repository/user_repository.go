package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/roadready/roadready-api/internal/models"
)

// UserRepository persists accounts and their role rows.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns the account for the email. sql.ErrNoRows passes
// through when absent.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT id, email, name, password_hash, role, license_blob_key, created_at, updated_at
FROM users WHERE email = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns the account by id. sql.ErrNoRows passes through.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, email, name, password_hash, role, license_blob_key, created_at, updated_at
FROM users WHERE id = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts the account row.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	const query = `INSERT INTO users (id, email, name, password_hash, role, license_blob_key, created_at, updated_at)
VALUES (:id, :email, :name, :password_hash, :role, :license_blob_key, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Delete removes the account row. Used as the compensating action when a
// later signup step fails.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// SetLicenseBlobKey records the uploaded license image key.
func (r *UserRepository) SetLicenseBlobKey(ctx context.Context, id, key string) error {
	const query = `UPDATE users SET license_blob_key = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, key, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set license blob key: %w", err)
	}
	return nil
}

// CreateLearnerProfile inserts the learner role row.
func (r *UserRepository) CreateLearnerProfile(ctx context.Context, profile *models.LearnerProfile) error {
	const query = `INSERT INTO learner_profiles (user_id, license_number, license_expiry, created_at, updated_at)
VALUES (:user_id, :license_number, :license_expiry, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("insert learner profile: %w", err)
	}
	return nil
}
