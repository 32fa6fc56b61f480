package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"
	oasis "github.com/goliatone/go-auth-oasis"
	"github.com/goliatone/go-auth-oasis/activitymap"
	"github.com/goliatone/go-auth-oasis/repository"
	"github.com/goliatone/go-auth-oasis/sessions"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// ServerConfig holds the process settings. Registry settings are read by
// oasis.LoadConfigFromEnv.
type ServerConfig struct {
	Addr            string        `env:"OASIS_HTTP_ADDR" envDefault:":8572" json:"addr"`
	DSN             string        `env:"OASIS_DSN" envDefault:"file:oasis.db?cache=shared" json:"dsn"`
	SessionCookie   string        `env:"OASIS_SESSION_COOKIE" envDefault:"oasis_session" json:"session_cookie"`
	SessionLifetime time.Duration `env:"OASIS_SESSION_LIFETIME" envDefault:"12h" json:"session_lifetime"`
	SecureCookies   bool          `env:"OASIS_SECURE_COOKIES" json:"secure_cookies"`
	Debug           bool          `env:"OASIS_DEBUG" json:"debug"`
}

type App struct {
	config   ServerConfig
	registry oasis.RegistryConfig
	db       *bun.DB
	repo     oasis.RepositoryManager
	sink     oasis.ActivitySink
	auther   *oasis.RouteAuthenticator
	srv      router.Server[*fiber.App]
	logger   *glog.BaseLogger
}

func (a *App) GetLogger(name string) oasis.Logger {
	return a.logger.GetLogger(name)
}

func (a *App) LoggerProvider() oasis.LoggerProvider {
	return oasis.LoggerProviderFunc(a.GetLogger)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("oasis"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	app := &App{logger: lgr}

	if err := env.Parse(&app.config); err != nil {
		panic(err)
	}

	if app.config.Debug {
		fmt.Println("============")
		fmt.Println(print.MaybeHighlightJSON(app.config))
		fmt.Println("============")
	}

	registry, err := oasis.LoadConfigFromEnv()
	if err != nil {
		lgr.GetLogger("config").Error("registry configuration", "error", err)
		os.Exit(1)
	}
	app.registry = registry

	ctx := context.Background()

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	if err := WithOasisAuth(ctx, app); err != nil {
		panic(err)
	}

	app.srv.Serve(app.config.Addr)

	WaitExitSignal()

	if err := app.db.Close(); err != nil {
		lgr.GetLogger("persistence").Warn("close db", "error", err)
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	sqldb, err := sql.Open(sqliteshim.ShimName, app.config.DSN)
	if err != nil {
		return err
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	repo := oasis.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		return err
	}

	if err := repo.Migrate(ctx); err != nil {
		return err
	}

	app.db = db
	app.repo = repo
	app.sink = repository.NewActivityEventRepository(db,
		activitymap.WithDefaultChannel("oasis"),
	)

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: app.config.Debug,
			StrictRouting:     false,
		}))
	})

	srv.Router().WithLogger(app.logger.GetLogger("router"))

	srv.Router().Use(mflash.New(mflash.ConfigDefault))

	app.srv = srv

	return nil
}

func WithOasisAuth(ctx context.Context, app *App) error {
	provider := app.LoggerProvider()
	accounts := app.repo.Accounts()

	client := oasis.NewRegistryClient(app.registry,
		oasis.WithRegistryLoggerProvider(provider),
	)

	reconciler := oasis.NewAccountReconciler(accounts,
		oasis.WithReconcilerLoggerProvider(provider),
		oasis.WithReconcilerActivitySink(app.sink),
	)

	finalizer := oasis.NewSessionFinalizer(
		oasis.WithFinalizerLoggerProvider(provider),
	)

	decider := oasis.NewAuthenticationDecider(accounts, client, reconciler, finalizer,
		oasis.WithDeciderLoggerProvider(provider),
		oasis.WithActivitySink(app.sink),
	)

	guard := oasis.NewSessionGuard(
		oasis.WithGuardLoggerProvider(provider),
		oasis.WithGuardActivitySink(app.sink),
	)

	auther := oasis.NewHTTPAuthenticator(decider, accounts, oasis.NewLogoutRedirector(app.registry),
		oasis.WithSessionGuard(guard),
		oasis.WithRouteLogger(app.GetLogger("oasis:http")),
		oasis.WithRouteConfig(oasis.RouteConfig{
			SecureCookies: app.config.SecureCookies,
		}),
	)
	app.auther = auther

	manager := sessions.NewManager(app.config.SessionCookie, app.config.SessionLifetime)
	manager.Cookie.Secure = app.config.SecureCookies

	r := app.srv.Router()
	r.Use(sessions.Middleware(manager))
	r.Use(auther.SessionAccount())

	oasis.RegisterAuthRoutes(r.Group("/"),
		func(ac *oasis.AuthController) *oasis.AuthController {
			ac.Debug = app.config.Debug
			ac.Auther = auther
			ac.Logger = app.GetLogger("oasis:ctrl")
			return ac
		})

	r.Get("/", func(c router.Context) error {
		helpers := oasis.TemplateHelpersWithContext(c.Context())
		return c.JSON(http.StatusOK, router.ViewContext{
			"account": helpers[oasis.TemplateAccountKey],
			"member":  helpers[oasis.TemplateMemberKey],
			"roles":   helpers["roles"],
		})
	})

	r.Get("/members", MembersHome, auther.ProtectedRoute(nil)).
		SetName("members.get")

	return nil
}

// MembersHome answers only for logged in members with an orchard marker.
func MembersHome(c router.Context) error {
	account, ok := oasis.AccountFromContext(c.Context())
	if !ok || !account.IsMember() {
		return c.JSON(http.StatusForbidden, router.ViewContext{
			"success": false,
			"message": "members only",
		})
	}

	res := router.ViewContext{
		"success":  true,
		"username": account.Username,
	}

	if session, ok := oasis.SessionFromContext(c.Context()); ok {
		if marker, ok := oasis.ReadMarker(session); ok {
			res["reg_category"] = marker.RegCategory
			res["orchard_roles"] = marker.OrchardRoles
		}
	}

	return c.JSON(http.StatusOK, res)
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
