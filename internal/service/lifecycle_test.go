package service

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/naplog/sleep-server-go/internal/errors"
	"github.com/naplog/sleep-server-go/internal/model"
	"github.com/naplog/sleep-server-go/internal/notify"
)

func newLifecycle(repo *mockSessionRepo, notifier *recordingNotifier) *LifecycleService {
	return NewLifecycleService(fakeTxRunner{}, repo, notifier, nil)
}

func openSession(id int64, start time.Time) *model.SleepSession {
	return &model.SleepSession{
		ID:        id,
		StartTime: start,
		CreatedAt: start,
		UpdatedAt: start,
	}
}

func closedSession(id int64, start, end time.Time) *model.SleepSession {
	duration := model.DurationBetween(start, end)
	return &model.SleepSession{
		ID:              id,
		StartTime:       start,
		EndTime:         &end,
		DurationMinutes: &duration,
		CreatedAt:       start,
		UpdatedAt:       end,
	}
}

func assertCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestLifecycleStart(t *testing.T) {
	ctx := context.Background()

	t.Run("starts a session and notifies sleeping", func(t *testing.T) {
		repo := new(mockSessionRepo)
		notifier := &recordingNotifier{}
		svc := newLifecycle(repo, notifier)

		start := time.Date(2024, 1, 15, 22, 0, 0, 0, time.UTC)
		created := openSession(1, start)

		repo.On("FindActive", mock.Anything).Return(nil, nil)
		repo.On("Insert", mock.Anything, mock.MatchedBy(func(p model.CreateSessionParams) bool {
			return p.StartTime.Equal(start) && p.EndTime == nil
		})).Return(created, nil)

		session, err := svc.Start(ctx, &start)

		require.NoError(t, err)
		assert.Equal(t, int64(1), session.ID)
		require.Len(t, notifier.calls, 1)
		assert.Equal(t, notify.StateSleeping, notifier.calls[0].state)
		assert.Equal(t, int64(1), notifier.calls[0].sessionID)
		assert.True(t, notifier.calls[0].at.Equal(start))
		repo.AssertExpectations(t)
	})

	t.Run("returns conflict when a session is active", func(t *testing.T) {
		repo := new(mockSessionRepo)
		notifier := &recordingNotifier{}
		svc := newLifecycle(repo, notifier)

		repo.On("FindActive", mock.Anything).Return(openSession(1, time.Now().UTC()), nil)

		_, err := svc.Start(ctx, nil)

		assertCode(t, err, apperrors.ErrCodeConflict)
		repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
		assert.Empty(t, notifier.calls)
	})

	t.Run("maps unique violation to conflict", func(t *testing.T) {
		repo := new(mockSessionRepo)
		notifier := &recordingNotifier{}
		svc := newLifecycle(repo, notifier)

		repo.On("FindActive", mock.Anything).Return(nil, nil)
		repo.On("Insert", mock.Anything, mock.Anything).Return(nil, &pq.Error{Code: "23505"})

		_, err := svc.Start(ctx, nil)

		assertCode(t, err, apperrors.ErrCodeConflict)
		assert.Empty(t, notifier.calls)
	})

	t.Run("notification failure does not fail the operation", func(t *testing.T) {
		repo := new(mockSessionRepo)
		notifier := &recordingNotifier{err: assert.AnError}
		svc := newLifecycle(repo, notifier)

		start := time.Date(2024, 1, 15, 22, 0, 0, 0, time.UTC)
		repo.On("FindActive", mock.Anything).Return(nil, nil)
		repo.On("Insert", mock.Anything, mock.Anything).Return(openSession(1, start), nil)

		session, err := svc.Start(ctx, &start)

		require.NoError(t, err)
		assert.NotNil(t, session)
		assert.Len(t, notifier.calls, 1)
	})
}

func TestLifecycleEnd(t *testing.T) {
	ctx := context.Background()

	t.Run("closes the active session with derived duration", func(t *testing.T) {
		repo := new(mockSessionRepo)
		notifier := &recordingNotifier{}
		svc := newLifecycle(repo, notifier)

		start := time.Date(2024, 1, 15, 22, 0, 0, 0, time.UTC)
		end := time.Date(2024, 1, 15, 23, 30, 0, 0, time.UTC)

		repo.On("FindActive", mock.Anything).Return(openSession(7, start), nil)
		repo.On("Close", mock.Anything, int64(7), end, 90).Return(closedSession(7, start, end), nil)

		session, err := svc.End(ctx, &end)

		require.NoError(t, err)
		require.NotNil(t, session.DurationMinutes)
		assert.Equal(t, 90, *session.DurationMinutes)
		require.Len(t, notifier.calls, 1)
		assert.Equal(t, notify.StateAwake, notifier.calls[0].state)
		assert.True(t, notifier.calls[0].at.Equal(end))
		repo.AssertExpectations(t)
	})

	t.Run("returns not found without an active session", func(t *testing.T) {
		repo := new(mockSessionRepo)
		notifier := &recordingNotifier{}
		svc := newLifecycle(repo, notifier)

		repo.On("FindActive", mock.Anything).Return(nil, nil)

		_, err := svc.End(ctx, nil)

		assertCode(t, err, apperrors.ErrCodeNotFound)
		repo.AssertNotCalled(t, "Close", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, notifier.calls)
	})

	t.Run("rejects end time not after start time", func(t *testing.T) {
		repo := new(mockSessionRepo)
		notifier := &recordingNotifier{}
		svc := newLifecycle(repo, notifier)

		start := time.Date(2024, 1, 15, 22, 0, 0, 0, time.UTC)
		repo.On("FindActive", mock.Anything).Return(openSession(7, start), nil)

		for _, end := range []time.Time{start, start.Add(-time.Minute)} {
			_, err := svc.End(ctx, &end)
			assertCode(t, err, apperrors.ErrCodeInvalidInput)
		}
		assert.Empty(t, notifier.calls)
	})
}

func TestLifecycleContinue(t *testing.T) {
	ctx := context.Background()

	t.Run("reopens a closed session and notifies with original start", func(t *testing.T) {
		repo := new(mockSessionRepo)
		notifier := &recordingNotifier{}
		svc := newLifecycle(repo, notifier)

		start := time.Date(2024, 1, 15, 20, 0, 0, 0, time.UTC)
		end := start.Add(30 * time.Minute)

		repo.On("FindActive", mock.Anything).Return(nil, nil)
		repo.On("FindByID", mock.Anything, int64(3)).Return(closedSession(3, start, end), nil)
		repo.On("Reopen", mock.Anything, int64(3)).Return(openSession(3, start), nil)

		session, err := svc.Continue(ctx, 3)

		require.NoError(t, err)
		assert.Nil(t, session.EndTime)
		assert.Nil(t, session.DurationMinutes)
		require.Len(t, notifier.calls, 1)
		assert.Equal(t, notify.StateSleeping, notifier.calls[0].state)
		assert.True(t, notifier.calls[0].at.Equal(start))
		repo.AssertExpectations(t)
	})

	t.Run("returns conflict while another session is active", func(t *testing.T) {
		repo := new(mockSessionRepo)
		notifier := &recordingNotifier{}
		svc := newLifecycle(repo, notifier)

		repo.On("FindActive", mock.Anything).Return(openSession(9, time.Now().UTC()), nil)

		_, err := svc.Continue(ctx, 3)

		assertCode(t, err, apperrors.ErrCodeConflict)
		repo.AssertNotCalled(t, "Reopen", mock.Anything, mock.Anything)
	})

	t.Run("returns not found for unknown id", func(t *testing.T) {
		repo := new(mockSessionRepo)
		notifier := &recordingNotifier{}
		svc := newLifecycle(repo, notifier)

		repo.On("FindActive", mock.Anything).Return(nil, nil)
		repo.On("FindByID", mock.Anything, int64(999)).Return(nil, nil)

		_, err := svc.Continue(ctx, 999)

		assertCode(t, err, apperrors.ErrCodeNotFound)
		repo.AssertNotCalled(t, "Reopen", mock.Anything, mock.Anything)
	})
}

func TestLifecycleCreateBackfill(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts a closed session with derived duration", func(t *testing.T) {
		repo := new(mockSessionRepo)
		svc := newLifecycle(repo, &recordingNotifier{})

		start := time.Date(2024, 1, 15, 22, 0, 0, 0, time.UTC)
		end := time.Date(2024, 1, 15, 23, 30, 0, 0, time.UTC)

		repo.On("Insert", mock.Anything, mock.MatchedBy(func(p model.CreateSessionParams) bool {
			return p.StartTime.Equal(start) &&
				p.EndTime != nil && p.EndTime.Equal(end) &&
				p.DurationMinutes != nil && *p.DurationMinutes == 90
		})).Return(closedSession(5, start, end), nil)

		session, err := svc.CreateBackfill(ctx, start, end)

		require.NoError(t, err)
		assert.Equal(t, 90, *session.DurationMinutes)
		repo.AssertExpectations(t)
	})

	t.Run("rejects end not after start", func(t *testing.T) {
		repo := new(mockSessionRepo)
		svc := newLifecycle(repo, &recordingNotifier{})

		start := time.Date(2024, 1, 15, 22, 0, 0, 0, time.UTC)
		for _, end := range []time.Time{start, start.Add(-time.Second), start.Add(-24 * time.Hour)} {
			_, err := svc.CreateBackfill(ctx, start, end)
			assertCode(t, err, apperrors.ErrCodeInvalidInput)
		}
		repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("does not check for an active session", func(t *testing.T) {
		repo := new(mockSessionRepo)
		svc := newLifecycle(repo, &recordingNotifier{})

		start := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
		end := start.Add(time.Hour)
		repo.On("Insert", mock.Anything, mock.Anything).Return(closedSession(5, start, end), nil)

		_, err := svc.CreateBackfill(ctx, start, end)

		require.NoError(t, err)
		repo.AssertNotCalled(t, "FindActive", mock.Anything)
	})
}

func TestLifecycleUpdateBounds(t *testing.T) {
	ctx := context.Background()

	t.Run("updates bounds and recomputes duration", func(t *testing.T) {
		repo := new(mockSessionRepo)
		svc := newLifecycle(repo, &recordingNotifier{})

		start := time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC)
		end := time.Date(2024, 1, 15, 14, 15, 0, 0, time.UTC)

		repo.On("UpdateBounds", mock.Anything, int64(4), start, end, 75).
			Return(closedSession(4, start, end), nil)

		session, err := svc.UpdateBounds(ctx, 4, start, end)

		require.NoError(t, err)
		assert.Equal(t, 75, *session.DurationMinutes)
		repo.AssertExpectations(t)
	})

	t.Run("rejects invalid bounds", func(t *testing.T) {
		repo := new(mockSessionRepo)
		svc := newLifecycle(repo, &recordingNotifier{})

		start := time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC)
		_, err := svc.UpdateBounds(ctx, 4, start, start)

		assertCode(t, err, apperrors.ErrCodeInvalidInput)
		repo.AssertNotCalled(t, "UpdateBounds", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("returns not found for unknown id", func(t *testing.T) {
		repo := new(mockSessionRepo)
		svc := newLifecycle(repo, &recordingNotifier{})

		start := time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC)
		repo.On("UpdateBounds", mock.Anything, int64(404), start, start.Add(time.Hour), 60).
			Return(nil, nil)

		_, err := svc.UpdateBounds(ctx, 404, start, start.Add(time.Hour))

		assertCode(t, err, apperrors.ErrCodeNotFound)
	})
}

func TestLifecycleDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes and returns the session", func(t *testing.T) {
		repo := new(mockSessionRepo)
		svc := newLifecycle(repo, &recordingNotifier{})

		start := time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC)
		repo.On("Delete", mock.Anything, int64(2)).Return(closedSession(2, start, start.Add(time.Hour)), nil)

		session, err := svc.Delete(ctx, 2)

		require.NoError(t, err)
		assert.Equal(t, int64(2), session.ID)
	})

	t.Run("returns not found for unknown id", func(t *testing.T) {
		repo := new(mockSessionRepo)
		svc := newLifecycle(repo, &recordingNotifier{})

		repo.On("Delete", mock.Anything, int64(404)).Return(nil, nil)

		_, err := svc.Delete(ctx, 404)

		assertCode(t, err, apperrors.ErrCodeNotFound)
	})
}
