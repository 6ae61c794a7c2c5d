// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aathif-M/workpulse/internal/breaks"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.sqlite"), DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUserAndType(t *testing.T, s *Store) (breaks.User, breaks.BreakType) {
	t.Helper()
	ctx := context.Background()

	bt, err := s.CreateBreakType(ctx, breaks.BreakType{Name: "Lunch", Duration: 600, IsActive: true})
	require.NoError(t, err)

	u, err := s.CreateUser(ctx, breaks.User{
		Name:  "Asha",
		Email: "asha@example.com",
		Role:  breaks.RoleAgent,
	}, "hash")
	require.NoError(t, err)

	return u, bt
}

func TestStartBreakCreatesOngoingSession(t *testing.T) {
	s := newTestStore(t)
	u, bt := seedUserAndType(t, s)
	ctx := context.Background()
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	session, err := s.StartBreak(ctx, u.ID, bt.ID, now)
	require.NoError(t, err)
	assert.Equal(t, breaks.StatusOngoing, session.Status)
	assert.True(t, session.ExpectedEndTime.Equal(now.Add(600*time.Second)))

	got, err := s.OngoingSession(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, "Lunch", got.BreakType.Name)
	assert.EqualValues(t, 600, got.BreakType.Duration)
}

func TestStartBreakSecondStartConflicts(t *testing.T) {
	s := newTestStore(t)
	u, bt := seedUserAndType(t, s)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := s.StartBreak(ctx, u.ID, bt.ID, now)
	require.NoError(t, err)

	_, err = s.StartBreak(ctx, u.ID, bt.ID, now.Add(time.Second))
	assert.ErrorIs(t, err, breaks.ErrConflict)
}

func TestStartBreakForbiddenType(t *testing.T) {
	s := newTestStore(t)
	_, bt := seedUserAndType(t, s)
	ctx := context.Background()

	other, err := s.CreateBreakType(ctx, breaks.BreakType{Name: "Coffee", Duration: 300, IsActive: true})
	require.NoError(t, err)

	restricted, err := s.CreateUser(ctx, breaks.User{
		Name:          "Ravi",
		Email:         "ravi@example.com",
		Role:          breaks.RoleAgent,
		AllowedBreaks: []int64{bt.ID},
	}, "hash")
	require.NoError(t, err)

	_, err = s.StartBreak(ctx, restricted.ID, other.ID, time.Now().UTC())
	assert.ErrorIs(t, err, breaks.ErrForbidden)
}

func TestStartBreakInactiveTypeWithEmptyAllowlist(t *testing.T) {
	s := newTestStore(t)
	u, _ := seedUserAndType(t, s)
	ctx := context.Background()

	inactive, err := s.CreateBreakType(ctx, breaks.BreakType{Name: "Old", Duration: 300, IsActive: false})
	require.NoError(t, err)

	_, err = s.StartBreak(ctx, u.ID, inactive.ID, time.Now().UTC())
	assert.ErrorIs(t, err, breaks.ErrForbidden)
}

func TestEndBreakRecordsViolation(t *testing.T) {
	s := newTestStore(t)
	u, bt := seedUserAndType(t, s)
	ctx := context.Background()
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	_, err := s.StartBreak(ctx, u.ID, bt.ID, now)
	require.NoError(t, err)

	ended, err := s.EndBreak(ctx, u.ID, now.Add(700*time.Second))
	require.NoError(t, err)
	assert.Equal(t, breaks.StatusEnded, ended.Status)
	require.NotNil(t, ended.ViolationDuration)
	assert.EqualValues(t, 100, *ended.ViolationDuration)

	// persisted row agrees
	got, err := s.SessionByID(ctx, ended.ID)
	require.NoError(t, err)
	assert.Equal(t, breaks.StatusEnded, got.Status)
	require.NotNil(t, got.ViolationDuration)
	assert.EqualValues(t, 100, *got.ViolationDuration)
}

func TestEndBreakOnTimeStoresNull(t *testing.T) {
	s := newTestStore(t)
	u, bt := seedUserAndType(t, s)
	ctx := context.Background()
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	_, err := s.StartBreak(ctx, u.ID, bt.ID, now)
	require.NoError(t, err)

	ended, err := s.EndBreak(ctx, u.ID, now.Add(500*time.Second))
	require.NoError(t, err)
	assert.Nil(t, ended.ViolationDuration)

	got, err := s.SessionByID(ctx, ended.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ViolationDuration)
}

func TestEndBreakWithoutOngoingIsInvalidState(t *testing.T) {
	s := newTestStore(t)
	u, _ := seedUserAndType(t, s)

	_, err := s.EndBreak(context.Background(), u.ID, time.Now().UTC())
	assert.ErrorIs(t, err, breaks.ErrInvalidState)
}

func TestCancelBreak(t *testing.T) {
	s := newTestStore(t)
	u, bt := seedUserAndType(t, s)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	started, err := s.StartBreak(ctx, u.ID, bt.ID, now)
	require.NoError(t, err)

	cancelled, err := s.CancelBreak(ctx, started.ID, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, breaks.StatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.ViolationDuration)

	// user can start again after the cancel
	_, err = s.StartBreak(ctx, u.ID, bt.ID, now.Add(2*time.Hour))
	assert.NoError(t, err)
}

func TestHistoryNewestFirst(t *testing.T) {
	s := newTestStore(t)
	u, bt := seedUserAndType(t, s)
	ctx := context.Background()
	base := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		start := base.Add(time.Duration(i) * time.Hour)
		_, err := s.StartBreak(ctx, u.ID, bt.ID, start)
		require.NoError(t, err)
		_, err = s.EndBreak(ctx, u.ID, start.Add(10*time.Minute))
		require.NoError(t, err)
	}

	history, err := s.History(ctx, u.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i := 1; i < len(history); i++ {
		assert.True(t, history[i-1].StartTime.After(history[i].StartTime),
			"history must be sorted newest first")
	}
}

func TestHistoryAllIncludesUserName(t *testing.T) {
	s := newTestStore(t)
	u, bt := seedUserAndType(t, s)
	ctx := context.Background()

	_, err := s.StartBreak(ctx, u.ID, bt.ID, time.Now().UTC())
	require.NoError(t, err)

	all, err := s.HistoryAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Asha", all[0].UserName)
}

func TestListUsersAttachesActiveSession(t *testing.T) {
	s := newTestStore(t)
	u, bt := seedUserAndType(t, s)
	ctx := context.Background()

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Empty(t, users[0].BreakSessions)

	_, err = s.StartBreak(ctx, u.ID, bt.ID, time.Now().UTC())
	require.NoError(t, err)

	users, err = s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Len(t, users[0].BreakSessions, 1)
	assert.Equal(t, breaks.StatusOngoing, users[0].BreakSessions[0].Status)
}

func TestBreakTypeEditDoesNotMoveRunningSession(t *testing.T) {
	s := newTestStore(t)
	u, bt := seedUserAndType(t, s)
	ctx := context.Background()
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	started, err := s.StartBreak(ctx, u.ID, bt.ID, now)
	require.NoError(t, err)

	bt.Duration = 60
	require.NoError(t, s.UpdateBreakType(ctx, bt))

	got, err := s.SessionByID(ctx, started.ID)
	require.NoError(t, err)
	assert.True(t, got.ExpectedEndTime.Equal(now.Add(600*time.Second)),
		"expected end is fixed at creation")
	assert.EqualValues(t, 600, got.BreakType.Duration, "session keeps its snapshot")
}

func TestDeleteBreakTypeDeactivatesWhenReferenced(t *testing.T) {
	s := newTestStore(t)
	u, bt := seedUserAndType(t, s)
	ctx := context.Background()

	_, err := s.StartBreak(ctx, u.ID, bt.ID, time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, s.DeleteBreakType(ctx, bt.ID))

	got, err := s.BreakTypeByID(ctx, bt.ID)
	require.NoError(t, err, "referenced type must survive as inactive")
	assert.False(t, got.IsActive)

	fresh, err := s.CreateBreakType(ctx, breaks.BreakType{Name: "Tea", Duration: 300, IsActive: true})
	require.NoError(t, err)
	require.NoError(t, s.DeleteBreakType(ctx, fresh.ID))
	_, err = s.BreakTypeByID(ctx, fresh.ID)
	assert.ErrorIs(t, err, breaks.ErrNotFound)
}

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)
	u, bt := seedUserAndType(t, s)
	ctx := context.Background()

	u.Name = "Asha K"
	u.AllowedBreaks = []int64{bt.ID}
	require.NoError(t, s.UpdateUser(ctx, u))

	got, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha K", got.Name)
	assert.Equal(t, []int64{bt.ID}, got.AllowedBreaks)

	require.NoError(t, s.TouchLastLogin(ctx, u.ID, time.Now().UTC()))
	got, err = s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastLogin)

	require.NoError(t, s.DeleteUser(ctx, u.ID))
	_, err = s.UserByID(ctx, u.ID)
	assert.ErrorIs(t, err, breaks.ErrNotFound)
}

func TestUserByEmail(t *testing.T) {
	s := newTestStore(t)
	_, _ = seedUserAndType(t, s)
	ctx := context.Background()

	u, hash, err := s.UserByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Asha", u.Name)
	assert.Equal(t, "hash", hash)

	_, _, err = s.UserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, breaks.ErrNotFound)
}

func TestDuplicateEmailConflicts(t *testing.T) {
	s := newTestStore(t)
	_, _ = seedUserAndType(t, s)

	_, err := s.CreateUser(context.Background(), breaks.User{
		Name:  "Imposter",
		Email: "asha@example.com",
		Role:  breaks.RoleAgent,
	}, "hash")
	assert.ErrorIs(t, err, breaks.ErrConflict)
}

func TestActiveSessions(t *testing.T) {
	s := newTestStore(t)
	u, bt := seedUserAndType(t, s)
	ctx := context.Background()

	active, err := s.ActiveSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = s.StartBreak(ctx, u.ID, bt.ID, time.Now().UTC())
	require.NoError(t, err)

	active, err = s.ActiveSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	var nfErr error
	_, nfErr = s.SessionByID(ctx, "missing")
	assert.True(t, errors.Is(nfErr, breaks.ErrNotFound))
}
