package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/config"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type App struct {
	config    *gconfig.Container[*config.BaseConfig]
	bunDB     *bun.DB
	repo      accounts.RepositoryManager
	lifecycle *accounts.TokenLifecycle
	service   *accounts.AccountService
	srv       router.Server[*fiber.App]
	logger    *glog.BaseLogger
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("accounts"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	fmt.Println("============")
	fmt.Println(print.MaybeHighlightJSON(cfg.Raw()))
	fmt.Println("============")

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithAccountService(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	app.srv.Serve(app.Config().GetApp().GetAddress())

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := sql.Open(sqliteshim.ShimName, app.Config().GetPersistence().GetDSN())
	if err != nil {
		log.Fatal(err)
		return err
	}

	persistence.RegisterModel((*accounts.User)(nil))
	persistence.RegisterModel((*accounts.RefreshToken)(nil))

	pcfg := app.Config().GetPersistence()
	dialect := sqlitedialect.New()
	client, err := persistence.New(pcfg, db, dialect)
	if err != nil {
		log.Fatal(err)
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(accounts.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}

	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	app.bunDB = client.DB()
	app.repo = accounts.NewRepositoryManager(client.DB())

	return nil
}

func WithAccountService(ctx context.Context, app *App) error {
	if err := app.repo.Validate(); err != nil {
		return err
	}

	acfg := app.Config().GetAuth()

	signer := accounts.NewCredentialSigner(
		accounts.SigningProfile{
			Secret: []byte(acfg.GetAccessSigningKey()),
			TTL:    acfg.GetAccessTokenTTL(),
		},
		accounts.SigningProfile{
			Secret: []byte(acfg.GetRefreshSigningKey()),
			TTL:    acfg.GetRefreshTokenTTL(),
		},
		acfg.GetIssuer(),
		acfg.GetAudience(),
		app.GetLogger("accounts:signer"),
	)

	app.lifecycle = accounts.NewTokenLifecycle(signer, app.repo.RefreshTokens(), app.repo.Users()).
		WithLogger(app.GetLogger("accounts:lifecycle"))

	app.service = accounts.NewAccountService(app.repo, app.lifecycle).
		WithLogger(app.GetLogger("accounts:service"))

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:       app.Config().GetApp().GetName(),
			UnescapePath:  true,
			StrictRouting: false,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	acfg := app.Config().GetAuth()

	controller := accounts.NewAccountController(
		accounts.WithControllerService(app.service),
		accounts.WithControllerLogger(app.GetLogger("accounts:ctrl")),
		accounts.WithControllerCookie(acfg.GetRefreshCookieName(), acfg.GetRefreshTokenTTL()),
		accounts.WithControllerContextKey(acfg.GetContextKey()),
	)

	controller.Protected = accounts.ProtectedRoute(app.lifecycle, acfg, controller.AuthErrorHandler)

	controller.RegisterRoutes(srv.Router().Group("/api"))

	app.srv = srv

	return nil
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
