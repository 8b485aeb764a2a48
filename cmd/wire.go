package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/bnema/rotorpool/internal/adapters/provision/fake"
	statusadapter "github.com/bnema/rotorpool/internal/adapters/render/status"
	tomlstore "github.com/bnema/rotorpool/internal/adapters/store/toml"
	"github.com/bnema/rotorpool/internal/domain"
	"github.com/bnema/rotorpool/internal/ports"
	"github.com/bnema/rotorpool/internal/scheduler"
)

type app struct {
	scheduler    *scheduler.Scheduler
	log          zerolog.Logger
	renderStatus func(scheduler.PoolStatus, []domain.Account, statusadapter.RenderOptions) (string, error)
	now          func() time.Time
}

func wireApp() (*app, error) {
	store, err := tomlstore.NewStore(viper.New())
	if err != nil {
		return nil, fmt.Errorf("wire pool store: %w", err)
	}

	logger := newLogger()

	// The remote provider integration is pluggable; the built-in provisioner
	// simulates session lifecycle locally.
	sched := scheduler.New(store, fake.New(), ports.SystemClock{}, logger)
	if err := sched.Load(context.Background()); err != nil {
		return nil, fmt.Errorf("load pool: %w", err)
	}

	return &app{
		scheduler:    sched,
		log:          logger,
		renderStatus: statusadapter.Render,
		now:          time.Now,
	}, nil
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(envOrDefault("ROTOR_LOG", "info")); err == nil {
		level = parsed
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
