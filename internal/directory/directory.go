// Package directory partitions known users into mentee and mentor candidates.
package directory

import (
	"context"
	"errors"
	"fmt"

	"mentor-meet-api/internal/model"
)

var ErrUnavailable = errors.New("directory unavailable")

// UserLister is the user source, normally the session store.
type UserLister interface {
	ListUsers(ctx context.Context) ([]model.User, error)
}

type Directory struct {
	users UserLister
}

func New(users UserLister) *Directory {
	return &Directory{users: users}
}

func (d *Directory) ListMentees(ctx context.Context) ([]model.User, error) {
	return d.byRole(ctx, model.RoleMentee)
}

func (d *Directory) ListMentors(ctx context.Context) ([]model.User, error) {
	return d.byRole(ctx, model.RoleMentor)
}

// Roles returns a point-in-time id -> role snapshot for validation.
func (d *Directory) Roles(ctx context.Context) (map[string]model.Role, error) {
	all, err := d.list(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Role, len(all))
	for _, u := range all {
		out[u.ID] = u.Role
	}
	return out, nil
}

func (d *Directory) byRole(ctx context.Context, role model.Role) ([]model.User, error) {
	all, err := d.list(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.User, 0, len(all))
	for _, u := range all {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (d *Directory) list(ctx context.Context) ([]model.User, error) {
	users, err := d.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return users, nil
}
