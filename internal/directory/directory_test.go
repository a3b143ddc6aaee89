package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentor-meet-api/internal/model"
)

type listerFunc func(ctx context.Context) ([]model.User, error)

func (f listerFunc) ListUsers(ctx context.Context) ([]model.User, error) { return f(ctx) }

func fixed(users ...model.User) listerFunc {
	return func(context.Context) ([]model.User, error) { return users, nil }
}

func TestPartitionKeepsOrder(t *testing.T) {
	d := New(fixed(
		model.User{ID: "m1", Role: model.RoleMentor},
		model.User{ID: "c1", Role: model.RoleMentee},
		model.User{ID: "m2", Role: model.RoleMentor},
		model.User{ID: "c2", Role: model.RoleMentee},
	))

	mentees, err := d.ListMentees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, ids(mentees))

	mentors, err := d.ListMentors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, ids(mentors))
}

func TestEmptyDirectory(t *testing.T) {
	d := New(fixed())
	mentees, err := d.ListMentees(context.Background())
	require.NoError(t, err)
	assert.Empty(t, mentees)
}

func TestRoles(t *testing.T) {
	d := New(fixed(
		model.User{ID: "m1", Role: model.RoleMentor},
		model.User{ID: "c1", Role: model.RoleMentee},
	))
	roles, err := d.Roles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]model.Role{"m1": model.RoleMentor, "c1": model.RoleMentee}, roles)
}

func TestUnavailablePropagates(t *testing.T) {
	boom := errors.New("connection refused")
	d := New(listerFunc(func(context.Context) ([]model.User, error) { return nil, boom }))

	_, err := d.ListMentors(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, boom)

	_, err = d.Roles(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func ids(users []model.User) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.ID
	}
	return out
}
