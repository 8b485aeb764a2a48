package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	statusadapter "github.com/bnema/rotorpool/internal/adapters/render/status"
	"github.com/bnema/rotorpool/internal/domain"
)

func newPoolCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Inspect and control the pool",
	}

	cmd.AddCommand(
		newPoolStatusCmd(app),
		newPoolSettingsCmd(app),
		newPoolSetActiveCmd(app),
		newPoolEndSessionCmd(app),
		newPoolPauseCmd(app),
		newPoolResumeCmd(app),
		newPoolPrestartCmd(app),
		newPoolStatsCmd(app),
	)

	return cmd
}

func newPoolStatusCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pool and account status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, err := app.renderStatus(
				app.scheduler.PoolStatus(),
				app.scheduler.Accounts(),
				statusadapter.RenderOptions{Now: app.now()},
			)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}
}

func newPoolSettingsCmd(app *app) *cobra.Command {
	var (
		strategy     string
		cooldown     time.Duration
		threshold    float64
		autoFailover bool
		autoRotate   bool
		tickInterval time.Duration
		prestartLead time.Duration
	)

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or update pool settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			current := app.scheduler.PoolStatus().Settings

			if cmd.Flags().NFlag() > 0 {
				updated := current
				if cmd.Flags().Changed("strategy") {
					updated.Strategy = domain.Strategy(strategy)
				}
				if cmd.Flags().Changed("cooldown") {
					updated.CooldownDuration = cooldown
				}
				if cmd.Flags().Changed("low-quota-threshold") {
					updated.LowQuotaThresholdPct = threshold
				}
				if cmd.Flags().Changed("auto-failover") {
					updated.AutoFailover = autoFailover
				}
				if cmd.Flags().Changed("auto-rotate-low-quota") {
					updated.AutoRotateOnLowQuota = autoRotate
				}
				if cmd.Flags().Changed("tick-interval") {
					updated.TickInterval = tickInterval
				}
				if cmd.Flags().Changed("prestart-lead") {
					updated.PrestartLeadTime = prestartLead
				}
				if err := app.scheduler.UpdateSettings(cmd.Context(), updated); err != nil {
					return err
				}
				current = updated
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(),
				"strategy: %s\ncooldown: %s\nlow-quota threshold: %.0f%%\nauto-failover: %t\nauto-rotate on low quota: %t\ntick interval: %s\nprestart lead: %s\n",
				current.Strategy, current.CooldownDuration, current.LowQuotaThresholdPct,
				current.AutoFailover, current.AutoRotateOnLowQuota, current.TickInterval, current.PrestartLeadTime)
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "", "rotation strategy: priority, round_robin, least_used")
	cmd.Flags().DurationVar(&cooldown, "cooldown", 0, "cooldown duration after exhaustion or session-max")
	cmd.Flags().Float64Var(&threshold, "low-quota-threshold", 0, "percent used that triggers a soft rotation")
	cmd.Flags().BoolVar(&autoFailover, "auto-failover", false, "fail over to the emergency account when the pool is exhausted")
	cmd.Flags().BoolVar(&autoRotate, "auto-rotate-low-quota", false, "rotate before hard quota exhaustion")
	cmd.Flags().DurationVar(&tickInterval, "tick-interval", 0, "daemon tick interval")
	cmd.Flags().DurationVar(&prestartLead, "prestart-lead", 0, "lead time before a switch to prestart the next candidate")

	return cmd
}

func newPoolSetActiveCmd(app *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "set-active <id>",
		Short: "Manually make an account the session holder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.scheduler.SetActive(cmd.Context(), domain.AccountID(args[0]), force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "skip the eligibility check (manual recovery flows)")
	return cmd
}

func newPoolEndSessionCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "end-session",
		Short: "Deliberately stop the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.scheduler.EndSession(cmd.Context())
		},
	}
}

func newPoolPauseCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <id>",
		Short: "Pause the running account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.scheduler.PauseAccount(cmd.Context(), domain.AccountID(args[0]))
		},
	}
}

func newPoolResumeCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <id>",
		Short: "Resume a paused account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.scheduler.ResumeAccount(cmd.Context(), domain.AccountID(args[0]))
		},
	}
}

func newPoolPrestartCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prestart",
		Short: "Warm up the next rotation candidate ahead of a switch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.scheduler.PrestartNext()
			return nil
		},
	}
}

func newPoolStatsCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate pool counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats := app.scheduler.Stats()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(),
				"events: %d\nsessions started: %d\nsessions ended: %d\nrotations: %d\nemergency activations: %d\nprestarts: %d\nquota resets: %d\nprovision failures: %d\nsince: %s\n",
				stats.TotalEvents, stats.SessionsStarted, stats.SessionsEnded, stats.Rotations,
				stats.EmergencyActivations, stats.Prestarts, stats.QuotaResets, stats.ProvisionFailures,
				stats.CollectedSince.Format(time.RFC3339))
			return nil
		},
	}
}
