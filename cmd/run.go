package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/bnema/rotorpool/internal/adapters/provision/fake"
	tomlstore "github.com/bnema/rotorpool/internal/adapters/store/toml"
	"github.com/bnema/rotorpool/internal/ports"
	"github.com/bnema/rotorpool/internal/scheduler"
)

func newRunCmd(app *app) *cobra.Command {
	var poolPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the rotation daemon until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sched := app.scheduler
			if poolPath != "" {
				store, err := tomlstore.NewStoreAt(poolPath)
				if err != nil {
					return fmt.Errorf("open pool store: %w", err)
				}

				sched = scheduler.New(store, fake.New(), ports.SystemClock{}, app.log)
				if err := sched.Load(cmd.Context()); err != nil {
					return fmt.Errorf("load pool: %w", err)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// First tick runs under the spinner so the operator sees the pool
			// come up before the daemon goes quiet.
			if err := runWarmupSpinner(ctx, cmd.OutOrStdout(), func(ctx context.Context) error {
				sched.Tick(ctx, app.now())
				return ctx.Err()
			}); err != nil {
				return err
			}

			events, unsubscribe := sched.Subscribe(0)
			defer unsubscribe()

			go func() {
				for ev := range events {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s %s: %s\n",
						ev.Time.Format("15:04:05"), ev.Severity, ev.Kind, ev.Message)
				}
			}()

			// The midnight sweep guarantees daily quota resets land on time
			// even when the tick interval is long.
			sweeper := cron.New(cron.WithLocation(time.UTC))
			if _, err := sweeper.AddFunc("0 0 * * *", func() {
				sched.Tick(context.Background(), app.now())
			}); err != nil {
				return fmt.Errorf("schedule midnight sweep: %w", err)
			}
			sweeper.Start()
			defer sweeper.Stop()

			return sched.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&poolPath, "pool", "", "pool file path (defaults to the configured location)")

	return cmd
}
