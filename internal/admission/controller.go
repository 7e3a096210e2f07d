package admission

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"gangway/internal/accounts"
	"gangway/internal/sessions"
	"gangway/pkg/auth"
	"gangway/pkg/logging"
	"gangway/pkg/models"
)

// AccountSource loads and invalidates accounts.
type AccountSource interface {
	ByID(ctx context.Context, id string) (*models.Account, error)
	StampLoggedOut(ctx context.Context, id string) error
}

// PaidVerifier answers the membership question for an account.
type PaidVerifier interface {
	IsPaid(ctx context.Context, account *models.Account) bool
}

// SessionAdmitter records requests against the device registry.
type SessionAdmitter interface {
	Admit(ctx context.Context, accountID string, tenantID *string, ip, userAgent string, fingerprint *string) (sessions.Admission, error)
	DeactivateAll(ctx context.Context, accountID string) error
}

// AnomalyObserver evaluates a request for suspicious origin changes. Purely
// advisory.
type AnomalyObserver interface {
	Observe(ctx context.Context, accountID, ip, userAgent string)
}

// Metrics are the controller's counters. Any field may be nil.
type Metrics struct {
	Decisions    *prometheus.CounterVec // labels: outcome, reason
	ForcedLogout prometheus.Counter
}

// Request is everything the controller needs about one inbound request.
type Request struct {
	Principal   *auth.Claims
	ClientIP    string
	UserAgent   string
	Fingerprint *string
}

// Controller runs the admission checks for every gated request, in a fixed
// order: authentication, ban, membership, device limit. The first failing
// check wins and later checks do not run.
type Controller struct {
	accounts AccountSource
	verifier PaidVerifier
	sessions SessionAdmitter
	anomaly  AnomalyObserver
	logger   logging.Logger
	metrics  Metrics
}

func NewController(acc AccountSource, verifier PaidVerifier, reg SessionAdmitter, anomaly AnomalyObserver, logger logging.Logger, metrics Metrics) *Controller {
	return &Controller{
		accounts: acc,
		verifier: verifier,
		sessions: reg,
		anomaly:  anomaly,
		logger:   logger,
		metrics:  metrics,
	}
}

// Admit evaluates one request and returns its decision. It never panics the
// request through: infrastructure failures deny with verification_error
// rather than admitting on faith.
func (ctrl *Controller) Admit(ctx context.Context, req Request) Decision {
	if req.Principal == nil {
		return ctrl.record(Deny(ReasonUnauthenticated, false))
	}

	account, err := ctrl.accounts.ByID(ctx, req.Principal.UserID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			// Token references an account that no longer exists
			return ctrl.record(Deny(ReasonUnauthenticated, true))
		}
		ctrl.logger.WithFields(logging.Fields{
			"account_id": req.Principal.UserID,
			"error":      err.Error(),
		}).Error("Account lookup failed during admission")
		return ctrl.record(Deny(ReasonVerificationError, false))
	}

	// A logout stamp newer than the token's issuance means this credential
	// was force-revoked. Treat it exactly like no credential at all.
	if account.LoggedOutAt != nil && req.Principal.IssuedAt != nil &&
		account.LoggedOutAt.After(req.Principal.IssuedAt.Time) {
		return ctrl.record(Deny(ReasonUnauthenticated, true))
	}

	if account.IsBanned() {
		ctrl.forceLogout(ctx, account.ID)
		ctrl.logger.WithFields(logging.Fields{
			"account_id": account.ID,
			"ip":         req.ClientIP,
		}).Warn("Banned account attempted access")
		return ctrl.record(Deny(ReasonBanned, true))
	}

	if !ctrl.verifier.IsPaid(ctx, account) {
		ctrl.forceLogout(ctx, account.ID)
		return ctrl.record(Deny(ReasonMembershipRequired, true))
	}

	if ctrl.anomaly != nil {
		ctrl.anomaly.Observe(ctx, account.ID, req.ClientIP, req.UserAgent)
	}

	adm, err := ctrl.sessions.Admit(ctx, account.ID, account.TenantID, req.ClientIP, req.UserAgent, req.Fingerprint)
	if err != nil {
		ctrl.logger.WithFields(logging.Fields{
			"account_id": account.ID,
			"error":      err.Error(),
		}).Error("Session registration failed during admission")
		return ctrl.record(Deny(ReasonVerificationError, false))
	}
	if !adm.Accepted {
		ctrl.forceLogout(ctx, account.ID)
		ctrl.logger.WithFields(logging.Fields{
			"account_id":      account.ID,
			"ip":              req.ClientIP,
			"active_sessions": adm.ActiveCount,
		}).Warn("Device limit exceeded, all sessions terminated")
		return ctrl.record(Fatal(ReasonDeviceLimitExceeded))
	}

	tenantID := ""
	if account.TenantID != nil {
		tenantID = *account.TenantID
	}
	return ctrl.record(Allow(tenantID))
}

// forceLogout tears the account's sessions down and stamps the revocation
// marker. Failures are logged but never block the refusal already underway.
func (ctrl *Controller) forceLogout(ctx context.Context, accountID string) {
	if ctrl.metrics.ForcedLogout != nil {
		ctrl.metrics.ForcedLogout.Inc()
	}
	if err := ctrl.sessions.DeactivateAll(ctx, accountID); err != nil {
		ctrl.logger.WithFields(logging.Fields{
			"account_id": accountID,
			"error":      err.Error(),
		}).Error("Failed to deactivate sessions during forced logout")
	}
	if err := ctrl.accounts.StampLoggedOut(ctx, accountID); err != nil {
		ctrl.logger.WithFields(logging.Fields{
			"account_id": accountID,
			"error":      err.Error(),
		}).Error("Failed to stamp forced logout")
	}
}

func (ctrl *Controller) record(d Decision) Decision {
	if ctrl.metrics.Decisions != nil {
		ctrl.metrics.Decisions.WithLabelValues(d.Outcome.String(), string(d.Reason)).Inc()
	}
	return d
}
