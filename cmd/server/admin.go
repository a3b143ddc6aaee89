package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mentor-meet-api/internal/auth"
	"mentor-meet-api/internal/config"
	"mentor-meet-api/internal/model"
	"mentor-meet-api/internal/store"
	"mentor-meet-api/internal/store/sqlite"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Parse()
			if err != nil {
				return err
			}
			if path, ok := strings.CutPrefix(cfg.DatabaseURL, "sqlite:"); ok {
				st, err := sqlite.Open(path)
				if err != nil {
					return err
				}
				st.Close()
			} else if err := store.Migrate(cfg.DatabaseURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

// withStore opens the configured store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(st backend) error) error {
	cfg, err := config.Parse()
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func newUsersCmd() *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Manage directory users",
	}

	var u model.User
	var role string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create or update a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if u.ID == "" {
				return errors.New("--id is required")
			}
			r, err := model.ParseRole(role)
			if err != nil {
				return err
			}
			u.Role = r
			return withStore(cmd, func(st backend) error {
				if err := st.UpsertUser(cmd.Context(), &u); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s)\n", u.ID, u.Role)
				return nil
			})
		},
	}
	add.Flags().StringVar(&u.ID, "id", "", "identity provider user id")
	add.Flags().StringVar(&u.Name, "name", "", "display name")
	add.Flags().StringVar(&u.Email, "email", "", "email address")
	add.Flags().StringVar(&u.ImageURL, "image", "", "avatar url")
	add.Flags().StringVar(&role, "role", "candidate", "candidate or interviewer")

	list := &cobra.Command{
		Use:   "list",
		Short: "List directory users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(st backend) error {
				all, err := st.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tROLE\tNAME\tEMAIL")
				for _, u := range all {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Role, u.Name, u.Email)
				}
				return tw.Flush()
			})
		},
	}

	users.AddCommand(add, list)
	return users
}

func newOrphansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "orphans",
		Short: "List provisioned calls that have no session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(st backend) error {
				list, err := st.ListOrphans(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CALL ID\tRECORDED\tREASON")
				for _, o := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", o.CallID, o.RecordedAt.Format(time.RFC3339), o.Reason)
				}
				return tw.Flush()
			})
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		uid string
		ttl time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed user token for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Parse()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is required")
			}
			if uid == "" {
				return errors.New("--user is required")
			}
			tok, err := auth.MakeToken(uid, cfg.JWTSecret, cfg.JWTIssuer, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&uid, "user", "", "user id to put in the subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
