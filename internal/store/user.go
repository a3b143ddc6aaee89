package store

import (
	"context"

	"mentor-meet-api/internal/model"
)

func (s *Store) UpsertUser(ctx context.Context, u *model.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, image_url, role) VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name, email = EXCLUDED.email,
		     image_url = EXCLUDED.image_url, role = EXCLUDED.role`,
		u.ID, u.Name, u.Email, u.ImageURL, u.Role.External(),
	)
	return err
}

// ListUsers returns all directory users, oldest first.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, email, image_url, role, created_at
		 FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var (
			u    model.User
			role string
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.ImageURL, &role, &u.CreatedAt); err != nil {
			return nil, err
		}
		if u.Role, err = model.ParseRole(role); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
