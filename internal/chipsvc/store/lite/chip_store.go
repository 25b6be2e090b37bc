package lite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
	"github.com/avvvet/tapchip-services/internal/chipsvc/store"
)

const chipColumns = `id, uid, active_mode, assigned_user_id, company_id, target_url, menu_data, created_at, updated_at`

type ChipStore struct {
	db  *sql.DB
	now func() time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChip(row rowScanner) (*models.Chip, error) {
	var (
		c                models.Chip
		menu             sql.NullString
		created, updated int64
	)
	err := row.Scan(&c.ID, &c.UID, &c.ActiveMode, &c.AssignedUserID, &c.CompanyID, &c.TargetURL, &menu, &created, &updated)
	if err != nil {
		return nil, err
	}
	if menu.Valid {
		c.MenuData = []byte(menu.String)
	}
	c.CreatedAt = fromNanos(created)
	c.UpdatedAt = fromNanos(updated)
	return &c, nil
}

func (s *ChipStore) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *ChipStore) one(ctx context.Context, query string, args ...any) (*models.Chip, error) {
	c, err := scanChip(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return c, err
}

func (s *ChipStore) Get(ctx context.Context, uid string) (*models.Chip, error) {
	return s.one(ctx, `SELECT `+chipColumns+` FROM chips WHERE uid = ?`, uid)
}

func (s *ChipStore) GetByID(ctx context.Context, id string) (*models.Chip, error) {
	return s.one(ctx, `SELECT `+chipColumns+` FROM chips WHERE id = ?`, id)
}

func (s *ChipStore) GetForTap(ctx context.Context, uid string) (*models.TapChip, error) {
	var (
		tc                     models.TapChip
		menu                   sql.NullString
		created, updated       int64
		userID, userName, slug sql.NullString
		ghost                  sql.NullBool
		ghostUntil             sql.NullInt64
		companyID, companyName sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.uid, c.active_mode, c.assigned_user_id, c.company_id, c.target_url, c.menu_data,
		       c.created_at, c.updated_at,
		       u.id, u.name, u.slug, u.ghost_mode, u.ghost_mode_until,
		       co.id, co.name
		FROM chips c
		LEFT JOIN users u ON u.id = c.assigned_user_id
		LEFT JOIN companies co ON co.id = c.company_id
		WHERE c.uid = ?
	`, uid).Scan(
		&tc.Chip.ID, &tc.Chip.UID, &tc.Chip.ActiveMode, &tc.Chip.AssignedUserID, &tc.Chip.CompanyID,
		&tc.Chip.TargetURL, &menu, &created, &updated,
		&userID, &userName, &slug, &ghost, &ghostUntil,
		&companyID, &companyName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load chip for tap: %w", err)
	}
	if menu.Valid {
		tc.Chip.MenuData = []byte(menu.String)
	}
	tc.Chip.CreatedAt = fromNanos(created)
	tc.Chip.UpdatedAt = fromNanos(updated)

	if userID.Valid {
		tc.Owner = &models.User{
			ID:             userID.String,
			Name:           userName.String,
			GhostMode:      ghost.Valid && ghost.Bool,
			GhostModeUntil: timePtr(ghostUntil),
		}
		if slug.Valid {
			tc.Owner.Slug = &slug.String
		}
	}
	if companyID.Valid {
		tc.Company = &models.Company{ID: companyID.String, Name: companyName.String}
	}
	return &tc, nil
}

// ConditionalAssign claims an unassigned chip in one guarded UPDATE.
func (s *ChipStore) ConditionalAssign(ctx context.Context, uid, userID string) (*models.Chip, error) {
	c, err := scanChip(s.db.QueryRowContext(ctx, `
		UPDATE chips
		SET assigned_user_id = ?, active_mode = 'corporate', company_id = NULL, updated_at = ?
		WHERE uid = ? AND assigned_user_id IS NULL
		RETURNING `+chipColumns,
		userID, nanos(s.clock()), uid,
	))
	if err == nil {
		return c, nil
	}
	if isForeignKeyViolation(err) {
		return nil, store.ErrInvalidReference
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to assign chip: %w", err)
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM chips WHERE uid = ?)`, uid).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check chip: %w", err)
	}
	if exists {
		return nil, store.ErrConflict
	}
	return nil, store.ErrNotFound
}

func (s *ChipStore) Update(ctx context.Context, id string, patch models.ChipPatch) (*models.Chip, error) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if patch.ActiveMode != nil {
		set("active_mode", *patch.ActiveMode)
	}
	if patch.AssignedUserID != nil {
		set("assigned_user_id", nullable(*patch.AssignedUserID))
	}
	if patch.CompanyID != nil {
		set("company_id", nullable(*patch.CompanyID))
	}
	if patch.TargetURL != nil {
		set("target_url", nullable(*patch.TargetURL))
	}
	if patch.MenuData != nil {
		if string(patch.MenuData) == "null" {
			set("menu_data", nil)
		} else {
			set("menu_data", string(patch.MenuData))
		}
	}
	if len(sets) == 0 {
		return s.GetByID(ctx, id)
	}
	set("updated_at", nanos(s.clock()))
	args = append(args, id)

	c, err := s.one(ctx, `UPDATE chips SET `+strings.Join(sets, ", ")+` WHERE id = ? RETURNING `+chipColumns, args...)
	if err != nil && isForeignKeyViolation(err) {
		return nil, store.ErrInvalidReference
	}
	return c, err
}

func (s *ChipStore) ListByOwner(ctx context.Context, userID string) ([]*models.Chip, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+chipColumns+` FROM chips WHERE assigned_user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chips []*models.Chip
	for rows.Next() {
		c, err := scanChip(rows)
		if err != nil {
			return nil, err
		}
		chips = append(chips, c)
	}
	return chips, rows.Err()
}

// CreateUnassigned inserts unassigned chips, skipping existing UIDs.
func (s *ChipStore) CreateUnassigned(ctx context.Context, uids []string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := nanos(s.clock())
	var created int64
	for _, u := range uids {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO chips (id, uid, created_at, updated_at) VALUES (?, ?, ?, ?) ON CONFLICT (uid) DO NOTHING`,
			uuid.New().String(), u, now, now)
		if err != nil {
			return 0, fmt.Errorf("failed to import chip: %w", err)
		}
		n, _ := res.RowsAffected()
		created += n
	}
	return created, tx.Commit()
}

// modernc reports constraint failures in the message text.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
