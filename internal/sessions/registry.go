package sessions

import (
	"context"
	"database/sql"
	"time"

	"gangway/pkg/logging"
	"gangway/pkg/models"
)

// ActiveWindow is how long a session record counts as active after its last
// observed request.
const ActiveWindow = 30 * time.Minute

// DeviceLimit is the maximum number of concurrently active sessions per
// account. The request that would create the limit+1'th device is refused.
const DeviceLimit = 2

// Admission is the outcome of recording one request against the registry.
type Admission struct {
	SessionID   string
	ActiveCount int
	Accepted    bool
}

// Registry tracks one session record per (account, IP, user agent) triple and
// enforces the per-account device limit. Counting happens after the upsert,
// so the current request's own session is always included.
type Registry struct {
	db     *sql.DB
	logger logging.Logger
	window time.Duration
	limit  int
}

func NewRegistry(db *sql.DB, logger logging.Logger) *Registry {
	return &Registry{db: db, logger: logger, window: ActiveWindow, limit: DeviceLimit}
}

// Admit upserts the session record for this request and counts the account's
// active sessions. Two requests racing past the limit can both be refused;
// that is acceptable since refusal forces a clean re-login.
func (r *Registry) Admit(ctx context.Context, accountID string, tenantID *string, ip, userAgent string, fingerprint *string) (Admission, error) {
	var adm Admission
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO session_records (account_id, tenant_id, ip_address, user_agent, device_fingerprint, is_active, last_activity)
		VALUES ($1, $2, $3, $4, $5, TRUE, NOW())
		ON CONFLICT (account_id, ip_address, user_agent)
		DO UPDATE SET tenant_id = EXCLUDED.tenant_id,
		              device_fingerprint = EXCLUDED.device_fingerprint,
		              is_active = TRUE,
		              last_activity = NOW(),
		              updated_at = NOW()
		RETURNING id`,
		accountID, tenantID, ip, userAgent, fingerprint,
	).Scan(&adm.SessionID)
	if err != nil {
		return adm, err
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM session_records
		WHERE account_id = $1 AND is_active = TRUE AND last_activity > NOW() - make_interval(secs => $2)`,
		accountID, r.window.Seconds(),
	).Scan(&adm.ActiveCount)
	if err != nil {
		return adm, err
	}

	adm.Accepted = adm.ActiveCount <= r.limit
	return adm, nil
}

// Deactivate marks the single session record for this device inactive.
func (r *Registry) Deactivate(ctx context.Context, accountID, ip, userAgent string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE session_records SET is_active = FALSE, updated_at = NOW()
		WHERE account_id = $1 AND ip_address = $2 AND user_agent = $3`,
		accountID, ip, userAgent)
	return err
}

// DeactivateAll marks every session record for the account inactive.
func (r *Registry) DeactivateAll(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE session_records SET is_active = FALSE, updated_at = NOW()
		WHERE account_id = $1 AND is_active = TRUE`,
		accountID)
	return err
}

// ListForAccount returns the account's session records, most recent first.
func (r *Registry) ListForAccount(ctx context.Context, accountID string) ([]models.SessionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, tenant_id, ip_address, user_agent, device_fingerprint, is_active, last_activity, created_at, updated_at
		FROM session_records
		WHERE account_id = $1
		ORDER BY last_activity DESC`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.SessionRecord
	for rows.Next() {
		var rec models.SessionRecord
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.TenantID, &rec.IPAddress, &rec.UserAgent,
			&rec.DeviceFingerprint, &rec.IsActive, &rec.LastActivity, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RecentDistinctIPs returns the distinct IPs that created session records for
// the account within the lookback window.
func (r *Registry) RecentDistinctIPs(ctx context.Context, accountID string, lookback time.Duration) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT ip_address FROM session_records
		WHERE account_id = $1 AND created_at > NOW() - make_interval(secs => $2)`,
		accountID, lookback.Seconds())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ips []string
	for rows.Next() {
		var ip string
		if err := rows.Scan(&ip); err != nil {
			return nil, err
		}
		ips = append(ips, ip)
	}
	return ips, rows.Err()
}
