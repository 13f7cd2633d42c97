package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/runash/turnauth/adapters/events"
	"github.com/runash/turnauth/adapters/store"
	"github.com/runash/turnauth/adapters/tokenizer"
	"github.com/runash/turnauth/config"
	"github.com/runash/turnauth/ports"
	transport "github.com/runash/turnauth/transport/http"
)

func newServeCmd(f *flags) *cobra.Command {
	var listenAddress string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the TURN credentials HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			if listenAddress != "" {
				cfg.ListenAddress = listenAddress
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&listenAddress, "listen-address", "l", "", "HTTP listen address (overrides TURNAUTH_LISTEN_ADDRESS)")

	return cmd
}

// newServer wires the HTTP server from cfg. cleanup releases the Redis client and publisher.
func newServer(ctx context.Context, cfg *config.Config) (srv *http.Server, cleanup func(), err error) {
	if err := cfg.RequireSecret(); err != nil {
		// issuance fails closed per request
		log.Warn("no TURN shared secret configured, every credential request will fail")
	}

	var closers []func() error
	cleanup = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.WithError(err).Warn("failed to release resource")
			}
		}
	}
	defer func() {
		if err != nil {
			cleanup()
		}
	}()

	var (
		limiter  ports.Limiter        = store.NewMemoryStore()
		eventPub ports.EventPublisher = events.NoopPublisher{}
	)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse redis url: %w", err)
		}

		redisClient := redis.NewClient(opts)
		closers = append(closers, redisClient.Close)

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			events.NewLogrusAdapter(log.StandardLogger()),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create redis publisher: %w", err)
		}
		closers = append(closers, publisher.Close)

		limiter = store.NewRedisStore(redisClient)
		eventPub = events.NewWatermillPublisher(publisher)
	}

	var sessionTokenizer ports.Tokenizer
	if cfg.SessionKey != "" {
		sessionTokenizer = tokenizer.NewJWTTokenizer([]byte(cfg.SessionKey))
	} else {
		log.Info("session authentication disabled, callers are identified by ip")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	credentialService := newCredentialService(cfg, limiter, eventPub)
	router, err := transport.SetupRouter(credentialService, sessionTokenizer, reg, cfg.TrustedProxies)
	if err != nil {
		return nil, nil, err
	}

	srv = &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return srv, cleanup, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	srv, cleanup, err := newServer(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("serving turn credentials on %s", cfg.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan struct{})
	go func() {
		waitForExitSignal()
		close(sigCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to serve: %w", err)
	case <-sigCh:
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}

	return nil
}
