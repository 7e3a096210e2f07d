package main

import (
	"context"
	"strings"
	"time"

	"gangway/internal/accounts"
	"gangway/internal/admission"
	"gangway/internal/handlers"
	"gangway/internal/membership"
	"gangway/internal/sessions"
	"gangway/pkg/auth"
	"gangway/pkg/clients"
	"gangway/pkg/clients/patreon"
	"gangway/pkg/config"
	"gangway/pkg/database"
	"gangway/pkg/logging"
	"gangway/pkg/monitoring"
	"gangway/pkg/redis"
	"gangway/pkg/server"
	"gangway/pkg/version"
)

func main() {
	logger := logging.NewLoggerWithService("gangway")
	config.LoadEnv(logger)

	databaseURL := config.RequireEnv("DATABASE_URL")
	jwtSecret := []byte(config.RequireEnv("JWT_SECRET"))

	patreonCfg := patreon.Config{
		ClientID:     config.RequireEnv("PATREON_CLIENT_ID"),
		ClientSecret: config.RequireEnv("PATREON_CLIENT_SECRET"),
		CampaignID:   config.RequireEnv("PATREON_CAMPAIGN_ID"),
		RedirectURL:  config.RequireEnv("PATREON_REDIRECT_URL"),
		APIBaseURL:   config.GetEnv("PATREON_API_BASE_URL", ""),
		Logger:       logger,
		CircuitBreakerConfig: &clients.CircuitBreakerConfig{
			Name:   "patreon",
			Logger: logger,
		},
	}

	if err := database.RunMigrations(databaseURL); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	dbCfg := database.DefaultConfig()
	dbCfg.URL = databaseURL
	db := database.MustConnect(dbCfg, logger)
	defer db.Close()

	vinfo := version.GetInfo()
	metricsCollector := monitoring.NewMetricsCollector("gangway", vinfo.Version, version.GetShortCommit())

	healthChecker := monitoring.NewHealthChecker("gangway", vinfo.Version)
	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("configuration", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL":      databaseURL,
		"JWT_SECRET":        string(jwtSecret),
		"PATREON_CLIENT_ID": patreonCfg.ClientID,
	}))

	provider := patreon.NewClient(patreonCfg)
	healthChecker.AddCheck("patreon", monitoring.HTTPServiceHealthCheck("patreon",
		config.GetEnv("PATREON_API_BASE_URL", "https://www.patreon.com/api/oauth2/v2")))

	// Membership judgments live in Redis when configured so a fleet shares
	// one cache; otherwise each instance caches locally.
	var store membership.Store
	if addrs := config.GetEnv("REDIS_ADDRS", ""); addrs != "" {
		rdb, err := redis.NewUniversalClient(context.Background(), redis.Config{
			Addrs:      strings.Split(addrs, ","),
			MasterName: config.GetEnv("REDIS_MASTER_NAME", ""),
			Password:   config.GetEnv("REDIS_PASSWORD", ""),
			DB:         config.GetEnvInt("REDIS_DB", 0),
		})
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer rdb.Close()
		store = membership.NewRedisStore(rdb)
		logger.Info("Using shared Redis membership cache")
	} else {
		store = membership.NewMemoryStore(config.GetEnvInt("MEMBERSHIP_CACHE_MAX_ENTRIES", 65536))
	}

	verifier := membership.NewVerifier(provider, store, logger, membership.Metrics{
		Checks: metricsCollector.NewCounter("membership_checks_total",
			"Membership verification outcomes", []string{"result"}),
		ProviderFailures: metricsCollector.NewCounter("membership_provider_failures_total",
			"Failed subscription provider round trips", []string{}).WithLabelValues(),
	})

	registry := sessions.NewRegistry(db, logger)
	anomalyFlags := metricsCollector.NewCounter("session_anomalies_total",
		"Requests flagged for arriving from an unseen IP", []string{}).WithLabelValues()
	monitor := sessions.NewAnomalyMonitor(registry, logger, anomalyFlags)

	accountRepo := accounts.NewRepo(db, logger)

	forcedLogouts := metricsCollector.NewCounter("forced_logouts_total",
		"Accounts force-logged-out by the admission gate", []string{}).WithLabelValues()
	controller := admission.NewController(accountRepo, verifier, registry, monitor, logger, admission.Metrics{
		Decisions: metricsCollector.NewCounter("admission_decisions_total",
			"Admission decisions by outcome and reason", []string{"outcome", "reason"}),
		ForcedLogout: forcedLogouts,
	})

	sessionTTL := config.GetEnvDuration("SESSION_TTL", auth.DefaultSessionTTL)
	handlers.Init(db, logger, accountRepo, registry, verifier, provider, jwtSecret, sessionTTL, &handlers.GangwayMetrics{
		Logins: metricsCollector.NewCounter("logins_total",
			"Login attempts by result", []string{"result"}),
		ForcedLogouts: forcedLogouts,
	})

	router := server.SetupServiceRouter(logger, "gangway", healthChecker, metricsCollector)
	router.Use(auth.IdentityMiddleware(jwtSecret))

	router.GET("/auth/patreon", handlers.PatreonLogin)
	router.GET("/auth/patreon/callback", handlers.PatreonCallback)
	router.POST("/auth/logout", handlers.Logout)
	router.GET("/auth/membership", handlers.MembershipStatus)

	gated := router.Group("/", admission.Middleware(controller))
	{
		gated.GET("/sessions", handlers.ListSessions)
		gated.GET("/videos", handlers.ListVideos)
		gated.GET("/videos/:id", handlers.GetVideo)

		admin := gated.Group("/admin", auth.RequireAdmin())
		{
			admin.GET("/sites", handlers.ListSites)
			admin.POST("/accounts/:id/ban", handlers.BanAccount)
			admin.POST("/accounts/:id/unban", handlers.UnbanAccount)
		}
	}

	logger.WithFields(logging.Fields{
		"version": vinfo.Version,
		"commit":  version.GetShortCommit(),
	}).Info("Starting gangway")

	cfg := server.DefaultConfig("gangway", "18600")
	cfg.ReadTimeout = 30 * time.Second
	if err := server.Start(cfg, router, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
}
