package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"mentor-meet-api/internal/model"
	"mentor-meet-api/internal/store/storetest"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "mentor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Backend { return openTest(t) })
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestOpenTwiceKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mentor.db")
	s, err := Open(path)
	require.NoError(t, err)
	mentee, mentors := storetest.Seed(t, s)
	_, err = s.CreateSession(context.Background(), model.NewSession{
		StartTime:      time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC),
		CallID:         uuid.NewString(),
		CandidateID:    mentee,
		InterviewerIDs: mentors,
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	list, err := s.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestUnknownCandidateRejected(t *testing.T) {
	s := openTest(t)
	_, err := s.CreateSession(context.Background(), model.NewSession{
		StartTime:   time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC),
		CallID:      uuid.NewString(),
		CandidateID: "nobody",
	})
	require.Error(t, err)
	require.NotErrorIs(t, err, model.ErrDuplicateCall)
}

func TestMillisRoundTrip(t *testing.T) {
	ts := time.Date(2025, 6, 1, 13, 30, 0, 0, time.FixedZone("X", 3600))
	require.True(t, ts.Equal(fromMillis(toMillis(ts))))
}
