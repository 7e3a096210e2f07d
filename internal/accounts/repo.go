package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gangway/pkg/logging"
	"gangway/pkg/models"
)

// ErrNotFound is returned when no account matches the lookup.
var ErrNotFound = errors.New("account not found")

const accountColumns = `id, tenant_id, name, COALESCE(email, ''), patreon_id, COALESCE(patreon_token, ''), pledge_cents, is_admin, banned_at, logged_out_at, created_at, updated_at`

// Repo is the accounts store.
type Repo struct {
	db     *sql.DB
	logger logging.Logger
}

func NewRepo(db *sql.DB, logger logging.Logger) *Repo {
	return &Repo{db: db, logger: logger}
}

func (r *Repo) ByID(ctx context.Context, id string) (*models.Account, error) {
	return r.one(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (r *Repo) ByPatreonID(ctx context.Context, patreonID string) (*models.Account, error) {
	return r.one(ctx, `SELECT `+accountColumns+` FROM accounts WHERE patreon_id = $1`, patreonID)
}

func (r *Repo) one(ctx context.Context, query string, args ...interface{}) (*models.Account, error) {
	var a models.Account
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&a.ID, &a.TenantID, &a.Name, &a.Email, &a.PatreonID, &a.PatreonToken,
		&a.PledgeCents, &a.IsAdmin, &a.BannedAt, &a.LoggedOutAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return &a, nil
}

// UpsertParams carries the provider identity captured during OAuth.
type UpsertParams struct {
	PatreonID   string
	Name        string
	Email       string
	AccessToken string
	PledgeCents int
	TenantID    *string
}

// UpsertFromOAuth creates the account on first login and refreshes the
// provider credential and pledge on every subsequent one. The tenant binding
// is only set on creation; an existing account keeps its tenant.
func (r *Repo) UpsertFromOAuth(ctx context.Context, p UpsertParams) (*models.Account, error) {
	return r.one(ctx, `
		INSERT INTO accounts (patreon_id, name, email, patreon_token, pledge_cents, tenant_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (patreon_id)
		DO UPDATE SET name = EXCLUDED.name,
		              email = EXCLUDED.email,
		              patreon_token = EXCLUDED.patreon_token,
		              pledge_cents = EXCLUDED.pledge_cents,
		              updated_at = NOW()
		RETURNING `+accountColumns,
		p.PatreonID, p.Name, p.Email, p.AccessToken, p.PledgeCents, p.TenantID)
}

// SetBanned stamps or clears the ban marker.
func (r *Repo) SetBanned(ctx context.Context, id string, banned bool) error {
	var result sql.Result
	var err error
	if banned {
		result, err = r.db.ExecContext(ctx,
			`UPDATE accounts SET banned_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	} else {
		result, err = r.db.ExecContext(ctx,
			`UPDATE accounts SET banned_at = NULL, updated_at = NOW() WHERE id = $1`, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update ban state: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// StampLoggedOut invalidates every credential issued before now. Admission
// rejects tokens minted prior to this stamp.
func (r *Repo) StampLoggedOut(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET logged_out_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to stamp logout: %w", err)
	}
	return nil
}

// UpdatePledge refreshes the locally cached pledge amount.
func (r *Repo) UpdatePledge(ctx context.Context, id string, cents int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET pledge_cents = $2, updated_at = NOW() WHERE id = $1`, id, cents)
	if err != nil {
		return fmt.Errorf("failed to update pledge: %w", err)
	}
	return nil
}
