package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mentor-meet-api/internal/model"
	"mentor-meet-api/internal/store"
	"mentor-meet-api/internal/store/sqlite"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mentor-meet",
		Short:         "Mentor session scheduling service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newUsersCmd(),
		newOrphansCmd(),
		newTokenCmd(),
	)
	return root
}

// backend is what the server needs from either store.
type backend interface {
	UpsertUser(ctx context.Context, u *model.User) error
	ListUsers(ctx context.Context) ([]model.User, error)
	CreateSession(ctx context.Context, n model.NewSession) (*model.Session, error)
	ListSessions(ctx context.Context) ([]model.Session, error)
	SessionByCallID(ctx context.Context, callID string) (*model.Session, error)
	RecordOrphan(ctx context.Context, callID, reason string) error
	ResolveOrphan(ctx context.Context, callID string) error
	ListOrphans(ctx context.Context) ([]model.OrphanedCall, error)
	Ping(ctx context.Context) error
	Close() error
}

// openStore picks the embedded sqlite store for "sqlite:<path>" urls and
// postgres otherwise. Both apply pending migrations.
func openStore(ctx context.Context, databaseURL string) (backend, error) {
	if path, ok := strings.CutPrefix(databaseURL, "sqlite:"); ok {
		st, err := sqlite.Open(path)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		return st, nil
	}
	if err := store.Migrate(databaseURL); err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return st, nil
}
