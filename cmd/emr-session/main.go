package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/careflow/go-emr-client/api"
	"github.com/careflow/go-emr-client/internal/config"
	"github.com/careflow/go-emr-client/session"
	"github.com/careflow/go-emr-client/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "emr-session",
		Short: "EMR client session manager",
	}
	rootCmd.AddCommand(runCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Sign in and keep the session alive until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
}

func run() error {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}
	displayAppname(cfg.GetAppName())

	backend, err := store.NewFileBackend(filepath.Join(cfg.GetStateDir(), "session.json"), log)
	if err != nil {
		return fmt.Errorf("store.NewFileBackend: %w", err)
	}
	defer backend.Close()

	st, err := store.New(backend)
	if err != nil {
		return fmt.Errorf("store.New: %w", err)
	}

	executor, err := api.NewHTTPExecutor(cfg.GetAPIBaseURL(), st, log)
	if err != nil {
		return fmt.Errorf("api.NewHTTPExecutor: %w", err)
	}

	manager, err := session.NewManager(cfg, executor, st, session.WithLogger(log))
	if err != nil {
		return fmt.Errorf("session.NewManager: %w", err)
	}
	manager.OnStateChange(func(s session.State) {
		log.Info().Stringer("state", s).Msg("Session state")
	})

	ctx := context.Background()
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("manager.Start: %w", err)
	}
	defer manager.Close()
	log.Info().Stringer("state", manager.CurrentState()).Msg("Session mounted")

	if manager.CurrentState() != session.StateAuthenticated {
		username := os.Getenv("EMR_USERNAME")
		password := os.Getenv("EMR_PASSWORD")
		if username != "" {
			res := manager.SignIn(ctx, api.Credentials{Username: username, Password: password})
			if !res.Ok() {
				log.Warn().Int("status", res.Status).Err(res.Err).Msg("Sign-in failed")
			} else if user := manager.Identity(); user != nil {
				log.Info().Str("user", user.FullName()).Msg("Signed in")
			}
		}
	}

	waitForStopSignal()

	if manager.CurrentState() == session.StateAuthenticated {
		if err := manager.SignOut(ctx); err != nil {
			log.Warn().Err(err).Msg("Sign-out failed")
		}
	}
	log.Info().Msg("Session stopped")
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
