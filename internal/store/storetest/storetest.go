// Package storetest holds the behaviour every session store backend must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentor-meet-api/internal/model"
)

type Backend interface {
	UpsertUser(ctx context.Context, u *model.User) error
	ListUsers(ctx context.Context) ([]model.User, error)
	CreateSession(ctx context.Context, n model.NewSession) (*model.Session, error)
	ListSessions(ctx context.Context) ([]model.Session, error)
	SessionByCallID(ctx context.Context, callID string) (*model.Session, error)
	RecordOrphan(ctx context.Context, callID, reason string) error
	ResolveOrphan(ctx context.Context, callID string) error
	ListOrphans(ctx context.Context) ([]model.OrphanedCall, error)
}

// Run executes the suite. open must return an empty store.
func Run(t *testing.T, open func(t *testing.T) Backend) {
	t.Run("users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("create and list sessions", func(t *testing.T) { testSessions(t, open(t)) })
	t.Run("duplicate call id", func(t *testing.T) { testDuplicateCall(t, open(t)) })
	t.Run("session by call id", func(t *testing.T) { testSessionByCallID(t, open(t)) })
	t.Run("orphans", func(t *testing.T) { testOrphans(t, open(t)) })
}

// Seed inserts one mentee and two mentors and returns their ids.
func Seed(t *testing.T, s Backend) (mentee string, mentors []string) {
	t.Helper()
	ctx := context.Background()
	users := []model.User{
		{ID: "u-mentee-" + uuid.NewString(), Name: "Ada", Role: model.RoleMentee},
		{ID: "u-mentor-" + uuid.NewString(), Name: "Grace", Role: model.RoleMentor},
		{ID: "u-mentor-" + uuid.NewString(), Name: "Linus", Role: model.RoleMentor},
	}
	for i := range users {
		require.NoError(t, s.UpsertUser(ctx, &users[i]))
	}
	return users[0].ID, []string{users[1].ID, users[2].ID}
}

func testUsers(t *testing.T, s Backend) {
	ctx := context.Background()
	mentee, mentors := Seed(t, s)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	roles := map[string]model.Role{}
	for _, u := range users {
		roles[u.ID] = u.Role
	}
	assert.Equal(t, model.RoleMentee, roles[mentee])
	assert.Equal(t, model.RoleMentor, roles[mentors[0]])
	assert.Equal(t, model.RoleMentor, roles[mentors[1]])

	// upsert changes the role in place
	require.NoError(t, s.UpsertUser(ctx, &model.User{ID: mentee, Name: "Ada", Role: model.RoleMentor}))
	users, err = s.ListUsers(ctx)
	require.NoError(t, err)
	for _, u := range users {
		if u.ID == mentee {
			assert.Equal(t, model.RoleMentor, u.Role)
		}
	}
}

func testSessions(t *testing.T, s Backend) {
	ctx := context.Background()
	mentee, mentors := Seed(t, s)
	start := time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

	before, err := s.ListSessions(ctx)
	require.NoError(t, err)

	first, err := s.CreateSession(ctx, model.NewSession{
		Title:          "Mock interview",
		Description:    "system design",
		StartTime:      start,
		CallID:         uuid.NewString(),
		CandidateID:    mentee,
		InterviewerIDs: []string{mentors[1], mentors[0]},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, model.StatusUpcoming, first.Status)

	second, err := s.CreateSession(ctx, model.NewSession{
		StartTime:      start.Add(time.Hour),
		CallID:         uuid.NewString(),
		CandidateID:    mentee,
		InterviewerIDs: []string{mentors[0]},
	})
	require.NoError(t, err)

	after, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, after, len(before)+2)

	got := after[len(before):]
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)
	assert.Equal(t, "Mock interview", got[0].Title)
	assert.Equal(t, "system design", got[0].Description)
	assert.True(t, start.Equal(got[0].StartTime), "start time %v", got[0].StartTime)
	assert.Equal(t, first.CallID, got[0].CallID)
	assert.Equal(t, mentee, got[0].CandidateID)
	assert.Equal(t, []string{mentors[1], mentors[0]}, got[0].InterviewerIDs)
	assert.Equal(t, model.StatusUpcoming, got[0].Status)
}

func testDuplicateCall(t *testing.T, s Backend) {
	ctx := context.Background()
	mentee, mentors := Seed(t, s)
	n := model.NewSession{
		StartTime:      time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
		CallID:         uuid.NewString(),
		CandidateID:    mentee,
		InterviewerIDs: mentors,
	}
	_, err := s.CreateSession(ctx, n)
	require.NoError(t, err)

	_, err = s.CreateSession(ctx, n)
	require.ErrorIs(t, err, model.ErrDuplicateCall)

	// the failed insert leaves no partial rows behind
	all, err := s.ListSessions(ctx)
	require.NoError(t, err)
	count := 0
	for _, sess := range all {
		if sess.CallID == n.CallID {
			count++
			assert.Equal(t, mentors, sess.InterviewerIDs)
		}
	}
	assert.Equal(t, 1, count)
}

func testSessionByCallID(t *testing.T, s Backend) {
	ctx := context.Background()
	mentee, mentors := Seed(t, s)

	_, err := s.SessionByCallID(ctx, uuid.NewString())
	require.ErrorIs(t, err, model.ErrNotFound)

	created, err := s.CreateSession(ctx, model.NewSession{
		StartTime:      time.Date(2025, 3, 14, 16, 0, 0, 0, time.UTC),
		CallID:         uuid.NewString(),
		CandidateID:    mentee,
		InterviewerIDs: mentors,
	})
	require.NoError(t, err)

	got, err := s.SessionByCallID(ctx, created.CallID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, mentors, got.InterviewerIDs)
}

func testOrphans(t *testing.T, s Backend) {
	ctx := context.Background()
	a, b := uuid.NewString(), uuid.NewString()

	require.NoError(t, s.RecordOrphan(ctx, a, "persist: timeout"))
	require.NoError(t, s.RecordOrphan(ctx, b, "persist: refused"))
	require.NoError(t, s.RecordOrphan(ctx, a, "persist: refused again"))

	open := orphanReasons(t, s)
	assert.Equal(t, "persist: refused again", open[a])
	assert.Contains(t, open, b)

	require.NoError(t, s.ResolveOrphan(ctx, a))
	require.NoError(t, s.ResolveOrphan(ctx, a))
	open = orphanReasons(t, s)
	assert.NotContains(t, open, a)
	assert.Contains(t, open, b)

	// recording again reopens
	require.NoError(t, s.RecordOrphan(ctx, a, "persist: again"))
	assert.Contains(t, orphanReasons(t, s), a)
}

func orphanReasons(t *testing.T, s Backend) map[string]string {
	t.Helper()
	list, err := s.ListOrphans(context.Background())
	require.NoError(t, err)
	out := make(map[string]string, len(list))
	for _, o := range list {
		assert.Nil(t, o.ResolvedAt)
		out[o.CallID] = o.Reason
	}
	return out
}
