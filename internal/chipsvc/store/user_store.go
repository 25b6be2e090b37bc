package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
)

const userColumns = `id, auth_subject, name, slug, ghost_mode, ghost_mode_until, is_admin, created_at, updated_at`

type UserStore struct {
	db *pgxpool.Pool
}

func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID,
		&u.AuthSubject,
		&u.Name,
		&u.Slug,
		&u.GhostMode,
		&u.GhostModeUntil,
		&u.IsAdmin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// Create inserts a user, generating an id when none is set. A duplicate
// auth subject or slug yields ErrConflict.
func (r *UserStore) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	query := `
        INSERT INTO users (id, auth_subject, name, slug, ghost_mode, ghost_mode_until, is_admin)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at, updated_at;
    `

	err := r.db.QueryRow(ctx, query, user.ID, user.AuthSubject, user.Name, user.Slug, user.GhostMode, user.GhostModeUntil, user.IsAdmin).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("could not create user: %w", err)
	}

	return nil
}

func (r *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return u, err
}

// GetBySubject maps an authenticated identity to the internal profile.
func (r *UserStore) GetBySubject(ctx context.Context, subject string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE auth_subject = $1`, subject))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to get user by subject: %w", err)
	}
	return u, err
}
