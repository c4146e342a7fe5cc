package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/onlyoffice-confluence/callback"
	"github.com/jrsteele09/onlyoffice-confluence/confluence"
	"github.com/jrsteele09/onlyoffice-confluence/hostauth"
	"github.com/jrsteele09/onlyoffice-confluence/internal/config"
	"github.com/jrsteele09/onlyoffice-confluence/internal/retry"
	"github.com/jrsteele09/onlyoffice-confluence/server"
	"github.com/jrsteele09/onlyoffice-confluence/tenants"
	"github.com/jrsteele09/onlyoffice-confluence/tenants/postgres"
	tenantrepofakes "github.com/jrsteele09/onlyoffice-confluence/tenants/repofakes"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("error running server")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c.GetEnv())
	displayAppname(c.GetAppName())

	ctx := context.Background()
	repo, closeRepo, err := tenantRepo(ctx, c)
	if err != nil {
		return err
	}
	defer closeRepo()

	var forge *hostauth.ForgeVerifier
	if appID := c.GetForgeAppID(); appID != "" {
		forge = hostauth.NewForgeVerifier(ctx, appID, c.GetForgeJWKSURL(), nil)
	} else {
		log.Warn().Msg("FORGE_APP_ID not set, forge remote routes are disabled")
	}

	handler, err := server.New(c, server.Deps{
		Tenants:    repo,
		Hosts:      confluence.NewFactory(c.GetConnectAppKey(), nil, retry.ConnectTimeoutOnce()),
		Forge:      forge,
		Downloader: callback.NewHTTPDownloader(nil, retry.ConnectTimeoutOnce(), 0),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(srv) }()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

// tenantRepo opens the Postgres store when DATABASE_URL is set and falls
// back to memory otherwise.
func tenantRepo(ctx context.Context, c config.Config) (tenants.Repo, func(), error) {
	dsn := c.GetDatabaseURL()
	if dsn == "" {
		log.Warn().Msg("DATABASE_URL not set, tenants are kept in memory")
		return tenantrepofakes.NewFakeTenantRepo(), func() {}, nil
	}

	if err := postgres.Migrate(ctx, dsn); err != nil {
		return nil, nil, fmt.Errorf("postgres.Migrate: %w", err)
	}
	sealer, err := postgres.NewSealer(c.GetSettingsMasterKey())
	if err != nil {
		return nil, nil, err
	}
	if sealer == nil {
		log.Warn().Msg("SETTINGS_MASTER_KEY not set, tenant secrets are stored unsealed")
	}
	db, err := postgres.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres.New: %w", err)
	}
	return postgres.NewTenantRepo(db, sealer), db.Close, nil
}

func setupLogging(env string) {
	zerolog.TimeFieldFormat = time.RFC3339
	if env == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
