package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/rotorpool/internal/domain"
)

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage pool accounts",
	}

	cmd.AddCommand(
		newAccountAddCmd(app),
		newAccountListCmd(app),
		newAccountRemoveCmd(app),
		newAccountEnableCmd(app),
		newAccountDisableCmd(app),
		newAccountRecoverCmd(app),
		newAccountResetQuotaCmd(app),
	)

	return cmd
}

func newAccountAddCmd(app *app) *cobra.Command {
	var (
		id         string
		name       string
		provider   string
		tier       string
		priority   int
		dailyLimit time.Duration
		maxSession time.Duration
		emergency  bool
		disabled   bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an account to the pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			added, err := app.scheduler.AddAccount(cmd.Context(), domain.Account{
				ID:             domain.AccountID(id),
				Name:           name,
				Provider:       provider,
				Tier:           tier,
				Priority:       priority,
				Enabled:        !disabled,
				Emergency:      emergency,
				DailyLimit:     dailyLimit,
				MaxSessionTime: maxSession,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added account %s (%s)\n", added.Name, added.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "account id (generated when omitted)")
	cmd.Flags().StringVar(&name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&provider, "provider", "", "provider label")
	cmd.Flags().StringVar(&tier, "tier", "", "provider tier")
	cmd.Flags().IntVar(&priority, "priority", 0, "selection priority, lower is preferred")
	cmd.Flags().DurationVar(&dailyLimit, "daily-limit", 0, "daily usage allowance, e.g. 12h")
	cmd.Flags().DurationVar(&maxSession, "max-session", 0, "maximum single-session length, e.g. 2h")
	cmd.Flags().BoolVar(&emergency, "emergency", false, "designate as the emergency fallback")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "add outside of rotation")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newAccountListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pool accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, acc := range app.scheduler.Accounts() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\tpriority=%d\tused=%s/%s\n",
					acc.ID, acc.Name, acc.Status, acc.Priority, acc.UsedToday, acc.DailyLimit)
			}
			return nil
		},
	}
}

func newAccountRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove an account (ends its session first if running)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.scheduler.RemoveAccount(cmd.Context(), domain.AccountID(args[0]))
		},
	}
}

func newAccountEnableCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "enable <id>",
		Short: "Return an account to rotation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.scheduler.SetEnabled(cmd.Context(), domain.AccountID(args[0]), true)
		},
	}
}

func newAccountDisableCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disable <id>",
		Short: "Take an account out of rotation without losing its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.scheduler.SetEnabled(cmd.Context(), domain.AccountID(args[0]), false)
		},
	}
}

func newAccountRecoverCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recover <id>",
		Short: "Health-check a suspended or errored account and return it to rotation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.scheduler.RecoverAccount(cmd.Context(), domain.AccountID(args[0])); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Account %s recovered\n", args[0])
			return nil
		},
	}
}

func newAccountResetQuotaCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-quota <id>",
		Short: "Reset an account's daily quota immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.scheduler.ResetDailyQuota(cmd.Context(), domain.AccountID(args[0]))
		},
	}
}
