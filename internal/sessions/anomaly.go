package sessions

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"gangway/pkg/cache"
	"gangway/pkg/logging"
)

// anomalyLookback is how far back the monitor looks for an account's recent
// origin IPs. The computed set is cached for the same duration, so a flagged
// IP keeps being flagged until the set refreshes.
const anomalyLookback = 5 * time.Minute

// AnomalyMonitor flags accounts whose requests arrive from an IP outside
// their recently seen set. It only ever logs and counts; it never influences
// an admission decision.
type AnomalyMonitor struct {
	registry *Registry
	ips      *cache.Cache
	logger   logging.Logger
	flagged  prometheus.Counter
	lookback time.Duration
}

func NewAnomalyMonitor(registry *Registry, logger logging.Logger, flagged prometheus.Counter) *AnomalyMonitor {
	return &AnomalyMonitor{
		registry: registry,
		ips: cache.New(cache.Options{
			TTL:        anomalyLookback,
			MaxEntries: 8192,
		}, cache.MetricsHooks{}),
		logger:   logger,
		flagged:  flagged,
		lookback: anomalyLookback,
	}
}

// Observe evaluates one request. An account is flagged only when it already
// has more than one distinct recent IP and the current IP is not among them;
// a single roaming device or a dual-homed client never trips it.
func (m *AnomalyMonitor) Observe(ctx context.Context, accountID, ip, userAgent string) {
	val, _, err := m.ips.Get(ctx, accountID, func(ctx context.Context, key string) (interface{}, bool, error) {
		ips, err := m.registry.RecentDistinctIPs(ctx, key, m.lookback)
		if err != nil {
			return nil, false, err
		}
		return ips, true, nil
	})
	if err != nil {
		// Monitoring is advisory; a failed lookup is retried on the next
		// request because failures are not cached.
		m.logger.WithFields(logging.Fields{
			"account_id": accountID,
			"error":      err.Error(),
		}).Debug("Recent IP lookup failed")
		return
	}

	ips, ok := val.([]string)
	if !ok || len(ips) <= 1 {
		return
	}
	for _, seen := range ips {
		if seen == ip {
			return
		}
	}

	if m.flagged != nil {
		m.flagged.Inc()
	}
	m.logger.WithFields(logging.Fields{
		"account_id": accountID,
		"ip":         ip,
		"user_agent": userAgent,
		"recent_ips": ips,
	}).Warn("Suspicious session activity detected")
}
