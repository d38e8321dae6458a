package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"github.com/0xmonas/cobbee/internal/audit"
	"github.com/0xmonas/cobbee/internal/pkg/clock"
	"github.com/0xmonas/cobbee/internal/pkg/config"
	"github.com/0xmonas/cobbee/internal/pkg/goroutine"
	"github.com/0xmonas/cobbee/internal/pkg/hash"
	"github.com/0xmonas/cobbee/internal/pkg/instrument"
	"github.com/0xmonas/cobbee/internal/pkg/jwt"
	"github.com/0xmonas/cobbee/internal/pkg/mail"
	"github.com/0xmonas/cobbee/internal/pkg/messaging"
	"github.com/0xmonas/cobbee/internal/pkg/ratelimit"
	"github.com/0xmonas/cobbee/internal/pkg/router"
	"github.com/0xmonas/cobbee/internal/pkg/uid"
	"github.com/0xmonas/cobbee/internal/pkg/validator"
)

func (a *App) initConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "/config/config.yaml"
		if os.Getenv("LOCAL") == "true" {
			path = "./config/config.yaml"
		}
	}

	cfg, err := config.NewViper(path)
	if err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	//nolint:errcheck,gosec // ignore error
	os.Setenv("TZ", cfg.GetString("app.tz"))

	a.config = cfg
}

func (a *App) initInstrument() {
	ins, err := instrument.New(context.Background(), &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
	})
	if err != nil {
		slog.Error("failed to init instrumentation", "error", err)
		os.Exit(1)
	}
	a.ins = ins
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))
	a.argon2id = hash.NewArgon2id(a.config.GetString("hash.argon2id.pepper"))

	validator, err := validator.NewV10Validator()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}
	a.validator = validator

	snow, err := uid.NewSnowflake(int64(a.config.GetInt("app.server.node_id")))
	if err != nil {
		slog.Error("failed to init uid number snowflake", "error", err)
		os.Exit(1)
	}
	a.uid = snow
}

func (a *App) initJWT() {
	defaultJWT, err := jwt.NewHS512(jwt.HS512Config{
		Secret:   []byte(a.config.GetString("jwt.secret")),
		Issuer:   a.config.GetString("jwt.issuer"),
		Audience: a.config.GetArray("jwt.audiences"),
		TTL:      a.config.GetMinute("jwt.ttl_minutes"),
		Clock:    a.clock,
		TokenID:  a.uuid,
	})
	if err != nil {
		slog.Error("failed to init jwt token", "error", err)
		os.Exit(1)
	}
	a.jwt = defaultJWT
}

func (a *App) initDatabase() {
	config, err := pgxpool.ParseConfig(a.config.GetString("database.url"))
	if err != nil {
		slog.Error("failed to parse DB connection string.", "error", err)
		os.Exit(1)
	}

	config.MaxConns = a.config.GetInt32("database.pool.max_conns")
	config.MinConns = a.config.GetInt32("database.pool.min_conns")
	config.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	config.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	config.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, config)
	if err != nil {
		slog.Error("failed to create DB connection pool", "error", err)
		os.Exit(1)
	}

	pingCtx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		slog.Error("failed to ping DB", "error", err)
		os.Exit(1)
	}

	a.dbConn = pool
}

func (a *App) initCache() {
	opt, err := redis.ParseURL(a.config.GetString("redis.url"))
	if err != nil {
		slog.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}

	a.cacheConn = rdb
}

func (a *App) initMail() {
	mail, err := mail.NewSMTP(mail.SMTPConfig{
		Host:     a.config.GetString("mail.host"),
		Port:     a.config.GetInt("mail.port"),
		Username: a.config.GetString("mail.username"),
		Password: a.config.GetString("mail.password"),
		From:     a.config.GetString("mail.from"),
	})
	if err != nil {
		slog.Error("failed to init mail", "error", err)
		os.Exit(1)
	}

	a.mail = mail
}

func (a *App) initMessaging() {
	driver := a.config.GetString("messaging.driver")
	client, err := messaging.NewFromDriver(driver, messaging.FactoryOptions{
		NATS: messaging.NATSConfig{
			URL: a.config.GetString("messaging.nats.url"),
			Options: []nats.Option{
				nats.Name(a.config.GetString("messaging.nats.name")),
				nats.MaxReconnects(a.config.GetInt("messaging.nats.max_reconnects")),
				nats.Timeout(a.config.GetSecond("messaging.nats.timeout_seconds")),
				nats.ReconnectWait(a.config.GetSecond("messaging.nats.reconnect_wait_seconds")),
				nats.PingInterval(a.config.GetSecond("messaging.nats.ping_interval_seconds")),
				nats.MaxPingsOutstanding(a.config.GetInt("messaging.nats.max_pings_outstanding")),
				nats.RetryOnFailedConnect(a.config.GetBool("messaging.nats.retry_on_failed_connect")),
			},
		},
		Kafka: messaging.KafkaConfig{
			Brokers:      a.config.GetArray("messaging.kafka.brokers"),
			BatchTimeout: a.config.GetSecond("messaging.kafka.batch_timeout_seconds"),
		},
	})
	if err != nil {
		slog.Error("failed to init messaging", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.messaging = client
}

func (a *App) initRateLimit() {
	policies := map[ratelimit.Tier]ratelimit.Policy{}
	for _, tier := range []ratelimit.Tier{
		ratelimit.TierAuth,
		ratelimit.TierAPI,
		ratelimit.TierPayment,
		ratelimit.TierStrict,
	} {
		key := "ratelimit.tiers." + tier.String()
		limit := a.config.GetInt(key + ".limit")
		window := a.config.GetSecond(key + ".window_seconds")
		if limit > 0 && window > 0 {
			policies[tier] = ratelimit.Policy{Limit: limit, Window: window}
		}
	}

	limiter, err := ratelimit.NewSlidingWindow(ratelimit.SlidingWindowConfig{
		Client:   a.cacheConn,
		Policies: policies,
		FailOpen: a.config.GetBool("ratelimit.fail_open"),
		Clock:    a.clock,
		Member:   a.uuid,
	})
	if err != nil {
		slog.Error("failed to init rate limiter", "error", err)
		os.Exit(1)
	}

	a.limiter = limiter
}

func (a *App) initAudit() {
	var geo audit.Geolocator = audit.NoopGeolocator{}
	if baseURL := a.config.GetString("audit.geo.base_url"); baseURL != "" {
		geo = audit.NewHTTPGeolocator(&http.Client{
			Timeout: a.config.GetSecond("audit.geo.timeout_seconds"),
		}, baseURL)
	}

	a.audit = audit.NewRecorder(audit.Config{
		Store:     audit.NewPostgresStore(a.dbConn),
		Publisher: audit.NewSinkPublisher(a.messaging, a.config.GetString("audit.sink.destination")),
		Geo:       geo,
		Runner:    a.goroutine,
		Clock:     a.clock,
		UID:       a.uuid,
	})
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		JWT:        a.jwt,
		Instrument: a.ins,
	})

	routerWithCORS := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           routerWithCORS,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}
}

func (a *App) initClosers() {
	a.closers = []struct {
		name string
		fn   func(context.Context) error
	}{
		{
			name: "Instrument",
			fn: func(ctx context.Context) error {
				return a.ins.Shutdown(ctx)
			},
		},
		{
			name: "Messaging",
			fn: func(context.Context) error {
				return a.messaging.Close()
			},
		},
		{
			name: "Mail",
			fn: func(context.Context) error {
				return a.mail.Close()
			},
		},
		{
			name: "Redis",
			fn: func(context.Context) error {
				return a.cacheConn.Close()
			},
		},
		{
			name: "Database",
			fn: func(context.Context) error {
				a.dbConn.Close()

				return nil
			},
		},
		{
			name: "Config",
			fn: func(context.Context) error {
				return a.config.Close()
			},
		},
	}
}
