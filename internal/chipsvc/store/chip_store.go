package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
)

const chipColumns = `id, uid, active_mode, assigned_user_id, company_id, target_url, menu_data, created_at, updated_at`

type ChipStore struct {
	db *pgxpool.Pool
}

func NewChipStore(db *pgxpool.Pool) *ChipStore {
	return &ChipStore{db: db}
}

func scanChip(row pgx.Row) (*models.Chip, error) {
	var c models.Chip
	var menu []byte
	err := row.Scan(
		&c.ID,
		&c.UID,
		&c.ActiveMode,
		&c.AssignedUserID,
		&c.CompanyID,
		&c.TargetURL,
		&menu,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.MenuData = menu
	return &c, nil
}

// Get looks a chip up by its normalized UID.
func (s *ChipStore) Get(ctx context.Context, uid string) (*models.Chip, error) {
	c, err := scanChip(s.db.QueryRow(ctx, `SELECT `+chipColumns+` FROM chips WHERE uid = $1`, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chip by uid: %w", err)
	}
	return c, nil
}

func (s *ChipStore) GetByID(ctx context.Context, id string) (*models.Chip, error) {
	c, err := scanChip(s.db.QueryRow(ctx, `SELECT `+chipColumns+` FROM chips WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chip by id: %w", err)
	}
	return c, nil
}

// GetForTap loads the chip with its owner and company in one round trip.
func (s *ChipStore) GetForTap(ctx context.Context, uid string) (*models.TapChip, error) {
	query := `
		SELECT c.id, c.uid, c.active_mode, c.assigned_user_id, c.company_id, c.target_url, c.menu_data,
		       c.created_at, c.updated_at,
		       u.id, u.name, u.slug, u.ghost_mode, u.ghost_mode_until,
		       co.id, co.name
		FROM chips c
		LEFT JOIN users u ON u.id = c.assigned_user_id
		LEFT JOIN companies co ON co.id = c.company_id
		WHERE c.uid = $1
	`

	var (
		tc                     models.TapChip
		menu                   []byte
		userID, userName       *string
		slug                   *string
		ghost                  *bool
		ghostUntil             *time.Time
		companyID, companyName *string
	)
	err := s.db.QueryRow(ctx, query, uid).Scan(
		&tc.Chip.ID,
		&tc.Chip.UID,
		&tc.Chip.ActiveMode,
		&tc.Chip.AssignedUserID,
		&tc.Chip.CompanyID,
		&tc.Chip.TargetURL,
		&menu,
		&tc.Chip.CreatedAt,
		&tc.Chip.UpdatedAt,
		&userID,
		&userName,
		&slug,
		&ghost,
		&ghostUntil,
		&companyID,
		&companyName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load chip for tap: %w", err)
	}
	tc.Chip.MenuData = menu

	if userID != nil {
		tc.Owner = &models.User{
			ID:             *userID,
			Name:           deref(userName),
			Slug:           slug,
			GhostMode:      ghost != nil && *ghost,
			GhostModeUntil: ghostUntil,
		}
	}
	if companyID != nil {
		tc.Company = &models.Company{ID: *companyID, Name: deref(companyName)}
	}
	return &tc, nil
}

// ConditionalAssign claims an unassigned chip for userID in a single guarded
// UPDATE. It returns ErrConflict when the chip already has an owner.
func (s *ChipStore) ConditionalAssign(ctx context.Context, uid, userID string) (*models.Chip, error) {
	c, err := scanChip(s.db.QueryRow(ctx, `
		UPDATE chips
		SET assigned_user_id = $2, active_mode = 'corporate', company_id = NULL, updated_at = now()
		WHERE uid = $1 AND assigned_user_id IS NULL
		RETURNING `+chipColumns,
		uid, userID,
	))
	if err == nil {
		return c, nil
	}
	if isForeignKeyViolation(err) {
		return nil, ErrInvalidReference
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to assign chip: %w", err)
	}

	// zero rows: tell a missing chip apart from one that is already owned
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM chips WHERE uid = $1)`, uid).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check chip: %w", err)
	}
	if exists {
		return nil, ErrConflict
	}
	return nil, ErrNotFound
}

// Update applies patch to the chip with the given id.
func (s *ChipStore) Update(ctx context.Context, id string, patch models.ChipPatch) (*models.Chip, error) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
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
			set("menu_data", []byte(patch.MenuData))
		}
	}
	if len(sets) == 0 {
		return s.GetByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE chips SET %s, updated_at = now() WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), chipColumns)

	c, err := scanChip(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if isForeignKeyViolation(err) {
			return nil, ErrInvalidReference
		}
		return nil, fmt.Errorf("failed to update chip: %w", err)
	}
	return c, nil
}

func (s *ChipStore) ListByOwner(ctx context.Context, userID string) ([]*models.Chip, error) {
	rows, err := s.db.Query(ctx, `SELECT `+chipColumns+` FROM chips WHERE assigned_user_id = $1 ORDER BY created_at`, userID)
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

// CreateUnassigned inserts one unassigned chip per UID, skipping UIDs that
// already exist. It returns the number of chips created.
func (s *ChipStore) CreateUnassigned(ctx context.Context, uids []string) (int64, error) {
	if len(uids) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, u := range uids {
		batch.Queue(`INSERT INTO chips (id, uid) VALUES ($1, $2) ON CONFLICT (uid) DO NOTHING`, uuid.New().String(), u)
	}

	br := s.db.SendBatch(ctx, batch)
	defer br.Close()

	var created int64
	for range uids {
		tag, err := br.Exec()
		if err != nil {
			return created, fmt.Errorf("failed to import chip: %w", err)
		}
		created += tag.RowsAffected()
	}
	return created, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
