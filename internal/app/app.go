// Package app arma el servicio completo a partir de la configuración.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/registrar/internal/admin"
	"github.com/dropDatabas3/registrar/internal/audit"
	"github.com/dropDatabas3/registrar/internal/auth"
	"github.com/dropDatabas3/registrar/internal/cache"
	"github.com/dropDatabas3/registrar/internal/config"
	"github.com/dropDatabas3/registrar/internal/course"
	"github.com/dropDatabas3/registrar/internal/email"
	"github.com/dropDatabas3/registrar/internal/http/controllers"
	"github.com/dropDatabas3/registrar/internal/http/router"
	"github.com/dropDatabas3/registrar/internal/identity"
	jwtx "github.com/dropDatabas3/registrar/internal/jwt"
	"github.com/dropDatabas3/registrar/internal/metrics"
	"github.com/dropDatabas3/registrar/internal/observability/logger"
	"github.com/dropDatabas3/registrar/internal/policy"
	"github.com/dropDatabas3/registrar/internal/rate"
	"github.com/dropDatabas3/registrar/internal/registration"
	"github.com/dropDatabas3/registrar/internal/security/cryptocore"
	"github.com/dropDatabas3/registrar/internal/security/password"
	"github.com/dropDatabas3/registrar/internal/session"
	"github.com/dropDatabas3/registrar/internal/store"
	pgmigrations "github.com/dropDatabas3/registrar/migrations/postgres"

	// adapters se registran vía init()
	_ "github.com/dropDatabas3/registrar/internal/store/adapters/memory"
	_ "github.com/dropDatabas3/registrar/internal/store/adapters/pg"
)

// Options permite inyectar piezas (tests, comandos).
type Options struct {
	Now     func() time.Time
	Version string

	// Store ya abierto. nil = abrir según cfg.Storage.
	Store store.AdapterConnection
	// Sender de correo. nil = SMTP si hay host, si no LogSender.
	Sender email.Sender
	// MetricsRegistry nil = registry global de prometheus.
	MetricsRegistry *prometheus.Registry
}

// App contiene todo lo construido. Los campos son de sólo lectura después
// de New.
type App struct {
	Config *config.Config

	Store    store.AdapterConnection
	Cache    cache.Client
	Crypto   *cryptocore.Core
	Issuer   *jwtx.Issuer
	Notifier *email.Notifier

	Ledger        audit.Ledger
	Identity      identity.Service
	Sessions      session.Service
	Policy        policy.Service
	Auth          auth.Service
	Courses       course.Service
	Registrations registration.Service
	Admin         admin.Service

	Handler http.Handler

	now     func() time.Time
	started time.Time
	closers []func() error
}

// New construye la aplicación. Ante error libera lo que alcanzó a abrir.
func New(ctx context.Context, cfg *config.Config, opts Options) (a *App, err error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	a = &App{Config: cfg, now: now, started: now()}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	log := logger.From(ctx).With(logger.Component("app"))

	// store
	if opts.Store != nil {
		a.Store = opts.Store
	} else {
		conn, err := store.OpenAdapter(ctx, store.AdapterConfig{
			Name:         cfg.Storage.Driver,
			DSN:          cfg.Storage.DSN,
			MaxOpenConns: cfg.Storage.Postgres.MaxOpenConns,
			MaxIdleConns: cfg.Storage.Postgres.MaxIdleConns,
		})
		if err != nil {
			return nil, fmt.Errorf("app: open store: %w", err)
		}
		a.Store = conn
		a.closers = append(a.closers, conn.Close)
	}
	if cfg.Storage.AutoMigrate {
		res, err := store.Migrate(ctx, a.Store, store.NewMigrator(pgmigrations.FS, "."))
		switch {
		case errors.Is(err, store.ErrNotMigratable):
		case err != nil:
			return nil, fmt.Errorf("app: migrate: %w", err)
		default:
			log.Info("migrations applied", logger.Count(len(res.Applied)))
		}
	}

	// cache
	a.Cache, err = cache.New(ctx, cache.Config{
		Driver:   cfg.Cache.Kind,
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("app: cache: %w", err)
	}
	a.closers = append(a.closers, a.Cache.Close)

	// claves
	keys, err := LoadKeys(cfg)
	if err != nil {
		return nil, err
	}
	if keys.Ephemeral {
		log.Warn("using ephemeral keys; data encrypted now will be unreadable after restart")
	}
	a.Crypto, err = cryptocore.New(cryptocore.Keys{
		EncryptionKey: keys.Encryption,
		IntegrityKey:  keys.Integrity,
		BcryptCost:    cfg.Security.BcryptCost,
	})
	if err != nil {
		return nil, fmt.Errorf("app: crypto: %w", err)
	}
	a.closers = append(a.closers, func() error { a.Crypto.Close(); return nil })

	a.Issuer, err = jwtx.NewIssuer(cfg.JWT.Issuer, keys.JWT)
	if err != nil {
		return nil, fmt.Errorf("app: jwt: %w", err)
	}
	a.Issuer.Now = now
	if cfg.JWT.TTL > 0 {
		a.Issuer.TTL = cfg.JWT.TTL
	}

	// correo
	sender := opts.Sender
	if sender == nil {
		sender = newSender(cfg)
	}
	a.Notifier, err = email.NewNotifier(sender, cfg.Email.AppName, cfg.Email.Timeout, cfg.Auth.OTPTTL)
	if err != nil {
		return nil, fmt.Errorf("app: email: %w", err)
	}
	a.Notifier.LogOTP = cfg.Auth.LogOTP && !cfg.IsProd()

	proxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		return nil, fmt.Errorf("app: trusted proxies: %w", err)
	}

	pwPolicy, err := passwordPolicy(cfg)
	if err != nil {
		return nil, err
	}

	// servicios
	a.Ledger = audit.New(audit.Deps{Repos: a.Store, Hasher: a.Crypto, Now: now})
	a.Identity = identity.NewService(identity.Deps{
		Repos:          a.Store,
		Crypto:         a.Crypto,
		PasswordPolicy: pwPolicy,
		OTPTTL:         cfg.Auth.OTPTTL,
		Now:            now,
	})
	a.Sessions = session.NewService(session.Deps{
		Repos:    a.Store,
		Cache:    a.Cache,
		CacheTTL: cfg.Cache.SessionTTL,
		MaxTTL:   cfg.Auth.SessionTTL,
		Now:      now,
	})
	a.Policy = policy.NewService(policy.Deps{Store: a.Store, Ledger: a.Ledger, Now: now})
	a.Auth = auth.NewService(auth.Deps{
		Store:          a.Store,
		Identity:       a.Identity,
		Sessions:       a.Sessions,
		Ledger:         a.Ledger,
		Crypto:         a.Crypto,
		Issuer:         a.Issuer,
		OTP:            a.Notifier,
		TempSessionTTL: cfg.Auth.TempSessionTTL,
		SessionTTL:     cfg.Auth.SessionTTL,
		Now:            now,
	})
	a.Courses = course.NewService(course.Deps{Store: a.Store, Ledger: a.Ledger, Now: now})
	a.Registrations = registration.NewService(registration.Deps{
		Store:   a.Store,
		Ledger:  a.Ledger,
		Crypto:  a.Crypto,
		Confirm: a.Notifier,
		Now:     now,
	})
	a.Admin = admin.NewService(admin.Deps{
		Store:         a.Store,
		Identity:      a.Identity,
		Sessions:      a.Sessions,
		Ledger:        a.Ledger,
		Policy:        a.Policy,
		Registrations: a.Registrations,
		Cache:         a.Cache,
		Now:           now,
	})

	// http
	mcfg := metrics.Config{Registry: opts.MetricsRegistry}
	if p, ok := a.Store.(interface{ Pool() *pgxpool.Pool }); ok {
		mcfg.Pool = p.Pool
	}
	metricsHandler, err := metrics.Register(mcfg)
	if err != nil {
		return nil, fmt.Errorf("app: metrics: %w", err)
	}

	a.Handler = router.New(router.Deps{
		Auth:    &controllers.Auth{Service: a.Auth},
		Courses: &controllers.Courses{Service: a.Courses},
		Registrations: &controllers.Registrations{
			Service: a.Registrations,
			Courses: a.Courses,
			Policy:  a.Policy,
			Ledger:  a.Ledger,
			Now:     now,
		},
		Admin: &controllers.Admin{Service: a.Admin, Policy: a.Policy, Ledger: a.Ledger, Now: now},
		Health: &controllers.Health{
			Started: a.started,
			Version: opts.Version,
			Checks:  map[string]controllers.Pinger{"store": a.Store, "cache": a.Cache},
		},
		Metrics:       metricsHandler,
		Authenticator: a.Auth,
		Ledger:        a.Ledger,
		Limiter:       a.limiter(),
		Limits: router.Limits{
			Login:        cfg.Rate.Login,
			OTP:          cfg.Rate.OTP,
			API:          cfg.Rate.API,
			Registration: cfg.Rate.Registration,
		},
		CORSOrigins:    cfg.Server.CORSAllowedOrigins,
		TrustedProxies: proxies,
	})
	return a, nil
}

// limiter comparte redis con la cache cuando existe; si no, un limiter
// por proceso.
func (a *App) limiter() rate.MultiLimiter {
	if !a.Config.Rate.Enabled {
		return nil
	}
	if rc, ok := a.Cache.(interface{ Redis() *redis.Client }); ok {
		return rate.NewRedisLimiter(rc.Redis(), a.Config.Cache.Redis.Prefix+"rl:")
	}
	return rate.NewMemoryLimiter()
}

func newSender(cfg *config.Config) email.Sender {
	if cfg.SMTP.Host == "" {
		return email.LogSender{IncludeBody: !cfg.IsProd()}
	}
	return email.NewSMTPSender(email.SMTPConfig{
		Host:               cfg.SMTP.Host,
		Port:               cfg.SMTP.Port,
		From:               cfg.SMTP.From,
		Username:           cfg.SMTP.Username,
		Password:           cfg.SMTP.Password,
		TLSMode:            cfg.SMTP.TLS,
		InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
	})
}

func passwordPolicy(cfg *config.Config) (password.Policy, error) {
	pp := cfg.Security.PasswordPolicy
	p := password.Policy{
		MinLength:     pp.MinLength,
		RequireUpper:  pp.RequireUpper,
		RequireLower:  pp.RequireLower,
		RequireDigit:  pp.RequireDigit,
		RequireSymbol: pp.RequireSymbol,
		Symbols:       password.DefaultSymbols,
	}
	bl, err := password.LoadBlacklist(cfg.Security.PasswordBlacklistPath)
	if err != nil {
		return password.Policy{}, fmt.Errorf("app: password blacklist: %w", err)
	}
	p.Blacklist = bl
	return p, nil
}

// Close libera en orden inverso.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
