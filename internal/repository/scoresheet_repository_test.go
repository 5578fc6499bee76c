package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreSheetRepositoryCreateStartsEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScoreSheetRepository(db)

	mock.ExpectExec("INSERT INTO score_sheets").
		WithArgs(sqlmock.AnyArg(), "training-1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sheet, err := repo.Create(context.Background(), "training-1")
	require.NoError(t, err)
	assert.NotEmpty(t, sheet.ID)
	assert.JSONEq(t, `{}`, string(sheet.Data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreSheetRepositoryListOrderedByCreation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScoreSheetRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "training_id", "data", "created_at", "updated_at"}).
		AddRow("sheet-1", "training-1", `{"score": 5}`, now.Add(-time.Minute), now).
		AddRow("sheet-2", "training-1", `{}`, now, now)
	mock.ExpectQuery("FROM score_sheets WHERE training_id").
		WithArgs("training-1").
		WillReturnRows(rows)

	sheets, err := repo.ListByTraining(context.Background(), "training-1")
	require.NoError(t, err)
	require.Len(t, sheets, 2)
	assert.Equal(t, "sheet-1", sheets[0].ID)
	assert.JSONEq(t, `{"score": 5}`, string(sheets[0].Data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreSheetRepositoryUpdateReplacesWholesale(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScoreSheetRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE score_sheets SET data = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(types.JSONText(`{"score":5}`), sqlmock.AnyArg(), "sheet-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateData(context.Background(), "sheet-1", types.JSONText(`{"score":5}`))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreSheetRepositoryDeleteIdempotent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScoreSheetRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM score_sheets WHERE id = $1")).
		WithArgs("sheet-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM score_sheets WHERE id = $1")).
		WithArgs("sheet-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "sheet-1"))
	require.NoError(t, repo.Delete(context.Background(), "sheet-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
