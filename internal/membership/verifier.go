package membership

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"gangway/pkg/logging"
	"gangway/pkg/models"
)

// DefaultTTL bounds how stale a cached membership judgment may be.
const DefaultTTL = 5 * time.Minute

// DefaultProviderTimeout bounds a single upstream verification round trip.
const DefaultProviderTimeout = 10 * time.Second

// ProviderClient fetches the current pledge for a stored provider credential.
type ProviderClient interface {
	EntitledCents(ctx context.Context, accessToken string) (int, error)
}

// Metrics are the verifier's counters. Any field may be nil.
type Metrics struct {
	Checks           *prometheus.CounterVec // labels: result (hit, paid, unpaid, error)
	ProviderFailures prometheus.Counter
}

// Verifier answers "does this account hold an active paid membership" with a
// bounded-staleness cache in front of the subscription provider. Lookups that
// fail upstream report not-paid for the current request and are never cached,
// so the next request retries immediately.
type Verifier struct {
	provider ProviderClient
	store    Store
	ttl      time.Duration
	timeout  time.Duration
	logger   logging.Logger
	metrics  Metrics
	sf       singleflight.Group
}

func NewVerifier(provider ProviderClient, store Store, logger logging.Logger, metrics Metrics) *Verifier {
	return &Verifier{
		provider: provider,
		store:    store,
		ttl:      DefaultTTL,
		timeout:  DefaultProviderTimeout,
		logger:   logger,
		metrics:  metrics,
	}
}

// IsPaid reports whether the account's pledge meets the paid threshold.
// Cached judgments are returned unconditionally within the TTL, including
// cached negatives: a member whose pledge lapsed can retain access for up to
// the TTL, and a fresh member can be rejected for the same window.
func (v *Verifier) IsPaid(ctx context.Context, account *models.Account) bool {
	key := account.ID
	if val, ok, err := v.store.GetBool(ctx, key); err == nil && ok {
		v.count("hit")
		return val
	} else if err != nil {
		// A broken cache backend degrades to a provider round trip.
		v.logger.WithFields(logging.Fields{
			"account_id": account.ID,
			"error":      err.Error(),
		}).Debug("Membership cache read failed")
	}

	paid, err, _ := v.sf.Do(key, func() (interface{}, error) {
		return v.verify(ctx, account)
	})
	if err != nil {
		v.count("error")
		if v.metrics.ProviderFailures != nil {
			v.metrics.ProviderFailures.Inc()
		}
		v.logger.WithFields(logging.Fields{
			"account_id": account.ID,
			"error":      err.Error(),
		}).Error("Membership verification failed, denying access")
		return false
	}
	return paid.(bool)
}

func (v *Verifier) verify(ctx context.Context, account *models.Account) (bool, error) {
	if account.PatreonToken == "" {
		// No credential on file means the account was never linked to the
		// provider. That is a definitive not-paid, safe to cache.
		v.count("unpaid")
		v.storeJudgment(ctx, account.ID, false)
		return false, nil
	}

	cctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	cents, err := v.provider.EntitledCents(cctx, account.PatreonToken)
	if err != nil {
		return false, err
	}

	paid := cents >= models.PaidThresholdCents
	if paid {
		v.count("paid")
	} else {
		v.count("unpaid")
	}
	v.storeJudgment(ctx, account.ID, paid)
	return paid, nil
}

func (v *Verifier) storeJudgment(ctx context.Context, accountID string, paid bool) {
	if err := v.store.SetBool(ctx, accountID, paid, v.ttl); err != nil {
		v.logger.WithFields(logging.Fields{
			"account_id": accountID,
			"error":      err.Error(),
		}).Warn("Failed to cache membership judgment")
	}
}

// Seed records a known judgment, bypassing the provider. Used right after
// OAuth linking when the pledge was just fetched on the same code path.
func (v *Verifier) Seed(ctx context.Context, accountID string, paid bool) {
	v.storeJudgment(ctx, accountID, paid)
}

// EntitledCents fetches the live pledge for a raw credential without touching
// the cache. Used during login before an account exists.
func (v *Verifier) EntitledCents(ctx context.Context, accessToken string) (int, error) {
	cctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	return v.provider.EntitledCents(cctx, accessToken)
}

func (v *Verifier) count(result string) {
	if v.metrics.Checks != nil {
		v.metrics.Checks.WithLabelValues(result).Inc()
	}
}
