package handlers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"gangway/internal/accounts"
	"gangway/internal/membership"
	"gangway/internal/sessions"
	"gangway/pkg/clients/patreon"
	"gangway/pkg/database"
	"gangway/pkg/logging"
)

var (
	db         database.PostgresConn
	logger     logging.Logger
	repo       *accounts.Repo
	registry   *sessions.Registry
	verifier   *membership.Verifier
	provider   *patreon.Client
	jwtSecret  []byte
	sessionTTL time.Duration
	metrics    *GangwayMetrics
)

// GangwayMetrics holds the service-specific Prometheus metrics
type GangwayMetrics struct {
	Logins        *prometheus.CounterVec // labels: result
	ForcedLogouts prometheus.Counter
}

// Init wires the handler package dependencies
func Init(
	conn database.PostgresConn,
	log logging.Logger,
	accountRepo *accounts.Repo,
	sessionRegistry *sessions.Registry,
	membershipVerifier *membership.Verifier,
	patreonClient *patreon.Client,
	secret []byte,
	ttl time.Duration,
	m *GangwayMetrics,
) {
	db = conn
	logger = log
	repo = accountRepo
	registry = sessionRegistry
	verifier = membershipVerifier
	provider = patreonClient
	jwtSecret = secret
	sessionTTL = ttl
	metrics = m
}

func countLogin(result string) {
	if metrics != nil && metrics.Logins != nil {
		metrics.Logins.WithLabelValues(result).Inc()
	}
}
