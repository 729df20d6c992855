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
	"github.com/jrsteele09/go-monologue/apiclient"
	"github.com/jrsteele09/go-monologue/internal/config"
	"github.com/jrsteele09/go-monologue/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	// .env must be loaded before LOG_LEVEL is read
	envErr := config.LoadEnv()
	c := config.New()
	setupLogging(c)
	if envErr != nil {
		log.Info().Err(envErr).Msg("No .env file loaded, using process environment")
	}
	displayAppname(c.GetAppName())

	baseURL, err := c.GetAPIBaseURL()
	if err != nil {
		return fmt.Errorf("resolve API base URL: %w", err)
	}
	log.Info().Str("api", baseURL).Msg("Using monologue API")
	api := apiclient.New(baseURL, &http.Client{Timeout: c.GetAPITimeout()})

	ctx, stop := context.WithCancel(context.Background())
	store, closeStore, err := server.BootstrapStorage(ctx, c)
	if err != nil {
		stop()
		return err
	}
	// The janitor is stopped before its store is closed.
	defer func() {
		stop()
		if err := closeStore(); err != nil {
			log.Err(err).Msg("Failed to close browser storage")
		}
	}()

	handler, err := server.New(c, api, store)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- listenAndServe(httpServer)
	}()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func setupLogging(c config.EnvConfig) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
