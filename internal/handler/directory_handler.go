package handler

import (
	"context"

	"mentor-meet-api/internal/api"
	"mentor-meet-api/internal/model"
)

func (h *Handler) ListMentees(ctx context.Context, req *api.ListUsersRequest) (*api.ListUsersResponse, error) {
	return h.listUsers(ctx, h.dir.ListMentees)
}

func (h *Handler) ListMentors(ctx context.Context, req *api.ListUsersRequest) (*api.ListUsersResponse, error) {
	return h.listUsers(ctx, h.dir.ListMentors)
}

func (h *Handler) listUsers(ctx context.Context, list func(context.Context) ([]model.User, error)) (*api.ListUsersResponse, error) {
	if _, err := uid(ctx); err != nil {
		return nil, err
	}
	users, err := list(ctx)
	if err != nil {
		return nil, h.toStatus(ctx, err)
	}
	out := make([]api.User, len(users))
	for i, u := range users {
		out[i] = api.FromUser(u)
	}
	return &api.ListUsersResponse{Users: out}, nil
}
