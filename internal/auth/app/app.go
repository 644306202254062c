package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/adminauth/internal/auth/audit"
	httpapi "github.com/aussiebroadwan/adminauth/internal/auth/http"
	"github.com/aussiebroadwan/adminauth/internal/auth/ratelimit"
	"github.com/aussiebroadwan/adminauth/internal/auth/service"
	"github.com/aussiebroadwan/adminauth/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/adminauth/internal/auth/store/drivers/sqldb"
	"github.com/aussiebroadwan/adminauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/adminauth/pkg/authsdk"
	"github.com/aussiebroadwan/adminauth/pkg/cryptox"
	"github.com/aussiebroadwan/adminauth/pkg/httpx"
	"github.com/aussiebroadwan/adminauth/pkg/jwtx"
	"github.com/aussiebroadwan/adminauth/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application owns every long-lived dependency of the auth service.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       *sqldb.Store
	redis    redis.UniversalClient   // nil with the in-process limiter
	limiter  *ratelimit.RedisLimiter // readiness probe, nil without redis
	registry *prometheus.Registry
	audit    *audit.Emitter
	closers  []io.Closer

	hasher       *cryptox.Hasher
	verifier     *jwtx.HS256Verifier
	auth         *service.AuthService
	housekeeping *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New wires the application. On error everything opened so far is closed.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "adminauth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		registry: prometheus.NewRegistry(),
	}
	for _, w := range cfg.Warnings {
		app.logger.Warn("configuration warning", slog.String("detail", w))
	}

	if err := app.init(); err != nil {
		_ = app.closeAll()
		return nil, err
	}
	return app, nil
}

func (app *Application) init() error {
	if err := app.initDatabase(); err != nil {
		return err
	}
	limiters := app.initLimiters()
	emitter, err := app.initAudit()
	if err != nil {
		return err
	}
	if err := app.initServices(limiters, emitter); err != nil {
		return err
	}
	app.initHTTP()
	return nil
}

// Run serves until ctx is cancelled or the server fails, then shuts down
// gracefully.
func (app *Application) Run(ctx context.Context) error {
	if app.cfg.BootstrapEmail != "" {
		b := &service.BootstrapService{Store: app.db, Hasher: app.hasher}
		if _, err := b.EnsureSuperAdmin(slogx.WithContext(ctx, app.logger), app.cfg.BootstrapEmail, app.cfg.BootstrapPassword); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("auth service starting",
			slog.Int("port", app.cfg.Port),
			slog.String("version", BuildVersion),
			slog.String("database", app.cfg.DatabaseDriver),
			slog.Bool("redis", app.redis != nil),
		)
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return app.housekeeping.Run(slogx.WithContext(gctx, app.logger))
	})

	g.Go(func() error {
		<-gctx.Done()
		return app.Shutdown()
	})

	return g.Wait()
}

// Shutdown drains in-flight requests, then closes every backend.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	var errs []error
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", slog.Any("error", err))
		errs = append(errs, err, app.server.Close())
	}
	// Handlers have returned, so nothing emits after this. The sinks close
	// only once the queue is drained.
	if err := app.audit.Close(ctx); err != nil {
		app.logger.Error("audit queue not drained", slog.Any("error", err))
		errs = append(errs, err)
	}
	if dropped := app.audit.Dropped(); dropped > 0 {
		app.logger.Warn("audit events were dropped", slog.Uint64("count", dropped))
	}
	errs = append(errs, app.closeAll())

	app.logger.Info("auth service stopped")
	return errors.Join(errs...)
}

// closeAll stops the audit worker, then closes in reverse order of opening.
func (app *Application) closeAll() error {
	var errs []error
	if app.audit != nil {
		ctx, cancel := context.WithTimeout(context.Background(), app.cfg.AuditTimeout)
		if err := app.audit.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		cancel()
	}
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Error("close failed", slog.Any("error", err))
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

func (app *Application) initDatabase() error {
	var (
		db  *sqldb.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case "postgres":
		db, err = postgres.NewStore(app.cfg.DatabaseDSN)
	default:
		db, err = sqlite.NewStore(app.cfg.DatabaseDSN)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db)

	if err := db.ApplyMigrations(); err != nil {
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}
	app.logger.Info("database migrations applied", slog.String("driver", app.cfg.DatabaseDriver))
	return nil
}

type limiters struct{ login, twoFactor ratelimit.Limiter }

func (app *Application) initLimiters() limiters {
	if app.cfg.RedisAddr == "" {
		app.logger.Warn("no redis configured, attempt limits are per process")
		return limiters{
			login:     ratelimit.NewMemoryLimiter(app.cfg.LoginPolicy, time.Now),
			twoFactor: ratelimit.NewMemoryLimiter(app.cfg.TwoFactorPolicy, time.Now),
		}
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{app.cfg.RedisAddr},
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})
	app.redis = rdb
	app.closers = append(app.closers, rdb)

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.StoreTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// The limiter fails open, so an unreachable redis is not fatal.
		app.logger.Warn("redis unreachable at startup", slog.Any("error", err))
	}

	app.limiter = ratelimit.NewRedisLimiter(rdb, "adminauth:login:", app.cfg.LoginPolicy)
	return limiters{
		login:     app.limiter,
		twoFactor: ratelimit.NewRedisLimiter(rdb, "adminauth:2fa:", app.cfg.TwoFactorPolicy),
	}
}

func (app *Application) initAudit() (*audit.Emitter, error) {
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := audit.NewMetricsSink(app.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register audit metrics: %w", err)
	}

	sinks := audit.MultiSink{audit.NewSlogSink(app.logger), metrics}
	if len(app.cfg.KafkaBrokers) > 0 {
		w := audit.NewKafkaWriter(app.cfg.KafkaBrokers)
		app.closers = append(app.closers, w)
		sinks = append(sinks, audit.NewKafkaSink(w, app.cfg.KafkaTopic))
		app.logger.Info("kafka audit sink enabled", slog.String("topic", app.cfg.KafkaTopic))
	}
	app.audit = audit.NewEmitter(sinks, audit.EmitterOptions{
		Timeout: app.cfg.AuditTimeout,
		Buffer:  app.cfg.AuditBuffer,
		Logger:  app.logger,
		OnDrop:  metrics.Dropped,
	})
	return app.audit, nil
}

func (app *Application) initServices(l limiters, emitter *audit.Emitter) error {
	var err error
	app.hasher, err = cryptox.NewHasher(app.cfg.HashParams, app.cfg.PasswordPepper)
	if err != nil {
		return fmt.Errorf("failed to create password hasher: %w", err)
	}
	signer, err := jwtx.NewSignerHS256(app.cfg.AccessTokenSecret)
	if err != nil {
		return fmt.Errorf("failed to create token signer: %w", err)
	}
	app.verifier, err = jwtx.NewVerifierHS256(app.cfg.AccessTokenSecret, jwtx.VerifyOptions{Issuer: app.cfg.Issuer})
	if err != nil {
		return fmt.Errorf("failed to create token verifier: %w", err)
	}
	box, err := cryptox.NewSecretBox(app.cfg.TwoFactorKey)
	if err != nil {
		return fmt.Errorf("failed to create two-factor box: %w", err)
	}

	app.auth, err = service.New(service.Deps{
		Store:            app.db,
		Hasher:           app.hasher,
		Signer:           signer,
		Verifier:         app.verifier,
		TOTPBox:          box,
		LoginLimiter:     l.login,
		TwoFactorLimiter: l.twoFactor,
		Audit:            emitter,
	}, service.Options{
		Issuer:           app.cfg.Issuer,
		AccessTTL:        app.cfg.AccessTokenTTL,
		RefreshTTL:       app.cfg.RefreshTokenTTL,
		ChallengeTTL:     app.cfg.ChallengeTTL,
		ReuseGracePeriod: app.cfg.ReuseGracePeriod,
		StoreTimeout:     app.cfg.StoreTimeout,
		RefreshKey:       app.cfg.RefreshTokenSecret,
	})
	if err != nil {
		return fmt.Errorf("failed to create auth service: %w", err)
	}

	app.housekeeping = service.NewHousekeepingService(app.db, app.logger, app.cfg.HousekeepingInterval)
	return nil
}

func (app *Application) initHTTP() {
	cookies := httpx.NewCookieJar(
		app.cfg.CookieSecret,
		authsdk.RefreshCookieName,
		authsdk.RefreshCookiePath,
		app.cfg.CookieDomain,
		app.cfg.CookieSecure,
		app.auth.RefreshTTL(),
	)

	router := httpapi.NewRouter(app.auth, app.verifier, cookies, BuildVersion, app.db, app.logger)
	router.Limits = httpapi.RouteLimits{
		Strict:   app.cfg.StrictLimit,
		Moderate: app.cfg.ModerateLimit,
		Lenient:  app.cfg.LenientLimit,
	}
	router.TrustedProxies = app.cfg.TrustedProxies
	if app.limiter != nil {
		router.Limiter = app.limiter
	}
	router.Metrics = promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{Registry: app.registry})
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
