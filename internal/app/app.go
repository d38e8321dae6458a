package app

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

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

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	argon2id  hash.Hash
	uid       uid.NumberID
	uuid      uid.StringID
	jwt       jwt.JWT

	// resources
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	mail      mail.Mail
	messaging messaging.Publisher
	limiter   ratelimit.Limiter
	audit     *audit.Recorder

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initJWT()
	app.initDatabase()
	app.initCache()
	app.initMail()
	app.initMessaging()
	app.initRateLimit()
	app.initAudit()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
