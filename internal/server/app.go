// Package server initializes and runs the Keepsake server: it loads
// configuration, opens the database and runs migrations, wires the object
// store, mailer and services together, and serves the HTTP API until an OS
// signal asks it to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dwianugrah/keepsake/internal/logging"
	"github.com/dwianugrah/keepsake/internal/server/blobstore"
	"github.com/dwianugrah/keepsake/internal/server/config"
	"github.com/dwianugrah/keepsake/internal/server/httpapi"
	"github.com/dwianugrah/keepsake/internal/server/mailer"
	"github.com/dwianugrah/keepsake/internal/server/repositories/repomanager"
	"github.com/dwianugrah/keepsake/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	blobs := blobstore.NewS3Store(blobstore.Options{
		Region:       c.S3Region,
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
		Bucket:       c.S3Bucket,
		BaseEndpoint: c.S3BaseEndpoint,
	})

	mail, err := mailer.NewSESMailer(ctx, c.MailRegion, c.MailFrom)
	if err != nil {
		return nil, fmt.Errorf("mailer init error: %w", err)
	}
	if !mail.Enabled() {
		logger.Info(ctx, "outbound email disabled, no sender configured")
	}

	clock := services.SystemClock{}
	vaults := services.NewVaultService(db, repos, blobs, clock, logger)
	grants := services.NewGrantService(db, repos, mail, clock, logger)
	letters := services.NewLetterService(db, repos, mail, clock, logger)
	children := services.NewChildService(db, repos, blobs, logger)

	srv := httpapi.NewServer(c.EndpointAddr, vaults, grants, letters, children, c.SecretKey, logger)

	return &App{config: c, logger: logger, db: db, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
