package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roadready/roadready-api/internal/models"
	appErrors "github.com/roadready/roadready-api/pkg/errors"
)

type availabilityRepoMock struct {
	windows   []models.AvailabilityWindow
	err       error
	created   *models.AvailabilityWindow
	deletedID string
	deletedBy string
}

func (m *availabilityRepoMock) ListFuture(ctx context.Context, instructorID string, now time.Time) ([]models.AvailabilityWindow, error) {
	return m.windows, m.err
}

func (m *availabilityRepoMock) Create(ctx context.Context, window *models.AvailabilityWindow) error {
	if m.err != nil {
		return m.err
	}
	window.ID = "window-1"
	m.created = window
	return nil
}

func (m *availabilityRepoMock) Delete(ctx context.Context, id, instructorID string) error {
	m.deletedID = id
	m.deletedBy = instructorID
	return m.err
}

func newAvailabilityService(repo *availabilityRepoMock) *AvailabilityService {
	return NewAvailabilityService(repo, validator.New(), zap.NewNop())
}

func TestAvailabilityCreateSucceeds(t *testing.T) {
	repo := &availabilityRepoMock{}
	svc := newAvailabilityService(repo)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	window, err := svc.Create(context.Background(), "inst-1", CreateAvailabilityRequest{
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "window-1", window.ID)
	assert.Equal(t, "inst-1", window.InstructorID)
	assert.Equal(t, start, window.StartTime)
}

func TestAvailabilityCreateRejectsInvalidInterval(t *testing.T) {
	repo := &availabilityRepoMock{}
	svc := newAvailabilityService(repo)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), "inst-1", CreateAvailabilityRequest{
		StartTime: start,
		EndTime:   start,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidInterval.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestAvailabilityListFuture(t *testing.T) {
	repo := &availabilityRepoMock{windows: []models.AvailabilityWindow{{ID: "w1"}, {ID: "w2"}}}
	svc := newAvailabilityService(repo)

	windows, err := svc.ListFuture(context.Background(), "inst-1")
	require.NoError(t, err)
	assert.Len(t, windows, 2)
}

func TestAvailabilityDeleteIsOwnerScoped(t *testing.T) {
	repo := &availabilityRepoMock{}
	svc := newAvailabilityService(repo)

	require.NoError(t, svc.Delete(context.Background(), "window-1", "inst-1"))
	assert.Equal(t, "window-1", repo.deletedID)
	assert.Equal(t, "inst-1", repo.deletedBy)

	// A repeated delete of the same window stays a no-op success.
	require.NoError(t, svc.Delete(context.Background(), "window-1", "inst-1"))
}

func TestAvailabilityStorageFaultsWrapped(t *testing.T) {
	svc := newAvailabilityService(&availabilityRepoMock{err: assert.AnError})

	_, err := svc.ListFuture(context.Background(), "inst-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStorage.Code, appErrors.FromError(err).Code)
}
