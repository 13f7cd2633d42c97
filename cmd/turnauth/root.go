package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/runash/turnauth/adapters/signer"
	"github.com/runash/turnauth/config"
	"github.com/runash/turnauth/ports"
	"github.com/runash/turnauth/service"
)

type flags struct {
	envFile  string
	secret   string
	ttl      time.Duration
	logLevel string
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:           "turnauth",
		Short:         "TURN credential service",
		Long:          "Issues time-limited TURN REST API credentials for RunAsh streaming clients",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&f.envFile, "env-file", ".env", "optional dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVarP(&f.secret, "secret", "s", "", "TURN shared secret (overrides TURN_SECRET)")
	rootCmd.PersistentFlags().DurationVar(&f.ttl, "ttl", 0, "credential validity (overrides TURN_CREDENTIAL_TTL)")
	rootCmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	rootCmd.AddCommand(newServeCmd(f), newIssueCmd(f), newRelayCmd(f))

	return rootCmd
}

// loadConfig merges the environment with command line overrides and validates the result
func loadConfig(f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.envFile)
	if err != nil {
		return nil, err
	}

	if f.secret != "" {
		cfg.SharedSecret = f.secret
	}
	if f.ttl != 0 {
		cfg.CredentialTTL = f.ttl
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := initLog(cfg.LogLevel); err != nil {
		return nil, err
	}

	return cfg, nil
}

func initLog(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return nil
}

func newCredentialService(cfg *config.Config, limiter ports.Limiter, eventPub ports.EventPublisher) *service.CredentialService {
	return service.NewCredentialService(
		service.Config{
			CredentialTTL: cfg.CredentialTTL,
			URIs:          cfg.TurnURIs,
			RateLimit:     cfg.RateLimit,
			RateWindow:    cfg.RateWindow,
		},
		signer.NewHMACSigner(cfg.SharedSecret),
		ports.SystemClock{},
		limiter,
		eventPub,
	)
}

func waitForExitSignal() {
	osSigs := make(chan os.Signal, 1)
	signal.Notify(osSigs, syscall.SIGINT, syscall.SIGTERM)
	<-osSigs
}
