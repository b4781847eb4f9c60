package main

import (
	"context"
	"embed"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/xdoubleu/essentia/v2/pkg/database/postgres"
	"github.com/xdoubleu/essentia/v2/pkg/threading"
	"github.com/xhit/go-str2duration/v2"
	"calsync.casaflow.app/internal/auth"
	"calsync.casaflow.app/internal/config"
	"calsync.casaflow.app/internal/jobs"
	"calsync.casaflow.app/internal/repositories"
	"calsync.casaflow.app/internal/services"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

type Application struct {
	logger       *slog.Logger
	ctx          context.Context
	ctxCancel    context.CancelFunc
	db           postgres.DB
	Config       config.Config
	Services     *services.Services
	Repositories *repositories.Repositories
	jobQueue     *threading.JobQueue
}

func NewApplication(
	logger *slog.Logger,
	cfg config.Config,
	db postgres.DB,
	authService auth.Service,
) *Application {
	//nolint:mnd //no magic number
	jobQueue := threading.NewJobQueue(logger, 1, 100)

	//nolint:exhaustruct //other fields are optional
	app := &Application{
		logger:   logger,
		Config:   cfg,
		jobQueue: jobQueue,
	}

	app.setContext()
	app.setDB(db, authService)
	app.setJobs()

	return app
}

func (app *Application) setDB(
	db postgres.DB,
	authService auth.Service,
) {
	spandb := postgres.NewSpanDB(db)
	app.db = spandb

	app.Repositories = repositories.New(app.db)
	app.Services = services.New(
		app.logger,
		app.Config,
		app.jobQueue,
		app.Repositories,
		authService,
	)
}

func (app *Application) setJobs() {
	interval, err := str2duration.ParseDuration(app.Config.SyncInterval)
	if err != nil {
		panic(err)
	}

	staleGrace, err := str2duration.ParseDuration(app.Config.StaleSyncGrace)
	if err != nil {
		panic(err)
	}

	err = app.jobQueue.AddJob(
		jobs.NewSyncJob(
			app.Services.Feeds,
			app.Services.Sync,
			app.Repositories.SyncState,
			interval,
			staleGrace,
		),
		app.Services.WebSocket.UpdateState,
	)
	if err != nil {
		panic(err)
	}

	app.Services.WebSocket.RegisterTopics(app.jobQueue.FetchJobIDs())
}

func (app *Application) setContext() {
	ctx, cancel := context.WithCancel(context.Background())
	app.ctx = ctx
	app.ctxCancel = cancel
}

func (app *Application) ApplyMigrations(db *pgxpool.Pool) error {
	migrationsDB := stdlib.OpenDBFromPool(db)

	goose.SetLogger(slog.NewLogLogger(app.logger.Handler(), slog.LevelInfo))

	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect(string(goose.DialectPostgres)); err != nil {
		return err
	}

	if err := goose.Up(migrationsDB, "migrations"); err != nil {
		return err
	}

	return nil
}

func (app *Application) GetName() string {
	return "calsync"
}
