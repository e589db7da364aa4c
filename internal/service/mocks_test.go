package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/naplog/sleep-server-go/internal/database"
	"github.com/naplog/sleep-server-go/internal/model"
	"github.com/naplog/sleep-server-go/internal/notify"
	"github.com/naplog/sleep-server-go/internal/repository"
)

// fakeTxRunner runs the transaction function directly; repositories under
// test ignore the tx handle.
type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}

type notifierCall struct {
	state     notify.State
	at        time.Time
	sessionID int64
}

type recordingNotifier struct {
	err   error
	calls []notifierCall
}

func (n *recordingNotifier) StateChanged(ctx context.Context, state notify.State, at time.Time, sessionID int64) error {
	n.calls = append(n.calls, notifierCall{state: state, at: at, sessionID: sessionID})
	return n.err
}

// Mock session repository
type mockSessionRepo struct {
	mock.Mock
}

var _ repository.SessionRepository = (*mockSessionRepo)(nil)

func (m *mockSessionRepo) WithTx(tx *sqlx.Tx) repository.SessionRepository {
	return m
}

func (m *mockSessionRepo) Insert(ctx context.Context, params model.CreateSessionParams) (*model.SleepSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SleepSession), args.Error(1)
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id int64) (*model.SleepSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SleepSession), args.Error(1)
}

func (m *mockSessionRepo) FindActive(ctx context.Context) (*model.SleepSession, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SleepSession), args.Error(1)
}

func (m *mockSessionRepo) List(ctx context.Context, filter model.SessionFilter) ([]model.SleepSession, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SleepSession), args.Error(1)
}

func (m *mockSessionRepo) UpdateBounds(ctx context.Context, id int64, start, end time.Time, durationMinutes int) (*model.SleepSession, error) {
	args := m.Called(ctx, id, start, end, durationMinutes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SleepSession), args.Error(1)
}

func (m *mockSessionRepo) Close(ctx context.Context, id int64, end time.Time, durationMinutes int) (*model.SleepSession, error) {
	args := m.Called(ctx, id, end, durationMinutes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SleepSession), args.Error(1)
}

func (m *mockSessionRepo) Reopen(ctx context.Context, id int64) (*model.SleepSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SleepSession), args.Error(1)
}

func (m *mockSessionRepo) Delete(ctx context.Context, id int64) (*model.SleepSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SleepSession), args.Error(1)
}

func (m *mockSessionRepo) LatestWakeUpBetween(ctx context.Context, from, to time.Time) (*model.SleepSession, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SleepSession), args.Error(1)
}

func (m *mockSessionRepo) CompletedStartedAfter(ctx context.Context, after time.Time) ([]model.SleepSession, error) {
	args := m.Called(ctx, after)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SleepSession), args.Error(1)
}

func (m *mockSessionRepo) CompletedSince(ctx context.Context, since time.Time) ([]model.SleepSession, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SleepSession), args.Error(1)
}

func (m *mockSessionRepo) Overall(ctx context.Context, from, to *time.Time) (*model.OverallRow, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OverallRow), args.Error(1)
}

func (m *mockSessionRepo) DailyTotals(ctx context.Context, since time.Time) ([]model.DailyRow, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DailyRow), args.Error(1)
}

func (m *mockSessionRepo) HourlyDistribution(ctx context.Context, from, to *time.Time) ([]model.HourlyRow, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.HourlyRow), args.Error(1)
}
