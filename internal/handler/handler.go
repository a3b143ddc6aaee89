// Package handler implements mentor.v1.SessionService.
package handler

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"mentor-meet-api/internal/directory"
	"mentor-meet-api/internal/middleware"
	"mentor-meet-api/internal/model"
	"mentor-meet-api/internal/scheduler"
)

type SessionLister interface {
	ListSessions(ctx context.Context) ([]model.Session, error)
}

type Handler struct {
	dir      *directory.Directory
	sessions SessionLister
	sched    *scheduler.Scheduler
	log      *slog.Logger
}

func New(dir *directory.Directory, sessions SessionLister, sched *scheduler.Scheduler, log *slog.Logger) *Handler {
	return &Handler{dir: dir, sessions: sessions, sched: sched, log: log}
}

func uid(ctx context.Context) (string, error) {
	id, ok := middleware.UserID(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "not signed in")
	}
	return id, nil
}
