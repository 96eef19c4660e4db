package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	gconfig "github.com/goliatone/go-config/config"
	devconnect "github.com/goliatone/go-devconnect"
	"github.com/goliatone/go-devconnect/activitymap"
	"github.com/goliatone/go-devconnect/config"
	"github.com/goliatone/go-devconnect/github"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config   *gconfig.Container[*config.BaseConfig]
	db       *persistence.Client
	repo     devconnect.RepositoryManager
	auther   *devconnect.Auther
	activity devconnect.ActivitySink
	srv      router.Server[*fiber.App]
	logger   *glog.BaseLogger
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
		glog.WithName("app"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := config.NewContainer(gconfig.DefaultConfigFilepath, lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		lgr.GetLogger("config").Error("invalid configuration, is "+config.SigningKeyEnv+" set?", "error", err)
		os.Exit(1)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if app.Config().GetServer().GetDebug() {
		fmt.Println("============")
		fmt.Println(print.MaybeHighlightJSON(cfg.Raw()))
		fmt.Println("============")
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithAuth(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	addr := app.Config().GetServer().GetAddress()
	go func() {
		if err := app.srv.Serve(addr); err != nil {
			app.GetLogger("http").Error("server stopped", "error", err)
		}
	}()

	sig := WaitExitSignal()
	app.GetLogger("app").Info("shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.srv.Shutdown(shutdownCtx); err != nil {
		app.GetLogger("http").Error("graceful shutdown failed", "error", err)
	}

	if err := app.db.DB().Close(); err != nil {
		app.GetLogger("persistence").Error("close database", "error", err)
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	pcfg := app.Config().GetPersistence()

	db, err := sql.Open(sqliteshim.ShimName, pcfg.GetDSN())
	if err != nil {
		return err
	}
	// sqlite has a single writer
	db.SetMaxOpenConns(1)

	client, err := devconnect.NewPersistence(pcfg, db)
	if err != nil {
		return err
	}
	client.SetLogger(app.GetLogger("persistence"))

	if err := devconnect.Migrate(ctx, client, app.GetLogger("migrations")); err != nil {
		return err
	}

	repo := devconnect.NewRepositoryManager(client.DB())
	repo.MustValidate()

	app.db = client
	app.repo = repo

	return nil
}

func WithAuth(_ context.Context, app *App) error {
	acfg := app.Config().GetAuth()

	tokens, err := devconnect.NewTokenServiceFromConfig(acfg, app.GetLogger("tokens"))
	if err != nil {
		return err
	}

	provider := devconnect.NewUserProvider(app.repo.Users()).
		WithLogger(app.GetLogger("auth:provider"))

	app.activity = activitymap.NewSink(app.GetLogger("activity"))

	app.auther = devconnect.NewAuthenticator(provider, tokens).
		WithLogger(app.GetLogger("auth")).
		WithActivitySink(app.activity)

	return nil
}

func WithHTTPServer(_ context.Context, app *App) error {
	conf := app.Config()

	app.srv = devconnect.NewServer(app.GetLogger("http"))
	app.srv.Router().WithLogger(app.GetLogger("router"))

	gcfg := conf.GetGithub()
	repos := github.New(github.Config{
		ClientID:     gcfg.GetClientID(),
		ClientSecret: gcfg.GetClientSecret(),
		BaseURL:      gcfg.GetBaseURL(),
		UserAgent:    gcfg.GetUserAgent(),
		Timeout:      gcfg.GetTimeout(),
	}).WithLogger(app.GetLogger("github"))

	register := devconnect.NewRegisterUserHandler(app.repo, app.auther).
		WithLogger(app.GetLogger("users")).
		WithActivitySink(app.activity)

	profiles := devconnect.NewProfileService(app.repo).
		WithLogger(app.GetLogger("profiles")).
		WithActivitySink(app.activity)

	posts := devconnect.NewPostService(app.repo).
		WithLogger(app.GetLogger("posts"))

	devconnect.RegisterRoutes(app.srv.Router(),
		devconnect.WithRepository(app.repo),
		devconnect.WithAuther(app.auther),
		devconnect.WithRegisterHandler(register),
		devconnect.WithProfileService(profiles),
		devconnect.WithPostService(posts),
		devconnect.WithRepoLookup(repos),
		devconnect.WithGate(devconnect.NewAuthGate(app.auther, conf.GetAuth(), app.GetLogger("gate"))),
		devconnect.WithHashidUserIDs(conf.GetAuth().GetHashidUserIDs()),
		devconnect.WithControllerDebug(conf.GetServer().GetDebug()),
		devconnect.WithControllerLogger(app.GetLogger("http:ctrl")),
	)

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
