package lite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
	"github.com/avvvet/tapchip-services/internal/chipsvc/store"
)

const userColumns = `id, auth_subject, name, slug, ghost_mode, ghost_mode_until, is_admin, created_at, updated_at`

type UserStore struct {
	db *sql.DB
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u                models.User
		ghostUntil       sql.NullInt64
		created, updated int64
	)
	err := row.Scan(&u.ID, &u.AuthSubject, &u.Name, &u.Slug, &u.GhostMode, &ghostUntil, &u.IsAdmin, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	u.GhostModeUntil = timePtr(ghostUntil)
	u.CreatedAt = fromNanos(created)
	u.UpdatedAt = fromNanos(updated)
	return &u, nil
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, auth_subject, name, slug, ghost_mode, ghost_mode_until, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, user.ID, user.AuthSubject, user.Name, user.Slug, user.GhostMode, nullNanos(user.GhostModeUntil), user.IsAdmin, nanos(now), nanos(now))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("could not create user: %w", err)
	}
	user.CreatedAt, user.UpdatedAt = now, now
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (s *UserStore) GetBySubject(ctx context.Context, subject string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE auth_subject = ?`, subject))
}

type CompanyStore struct {
	db *sql.DB
}

func (s *CompanyStore) Create(ctx context.Context, c *models.Company) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO companies (id, name, created_at) VALUES (?, ?, ?)`, c.ID, c.Name, nanos(c.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("could not create company: %w", err)
	}
	return nil
}
