package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "rotor",
		Short:         "rotor: rotate a pool of quota-limited compute accounts",
		Long:          "rotor manages a pool of time- and quota-limited compute accounts, keeps one session active by rotating across them, prestarts the next candidate, and fails over to an emergency account when the pool is exhausted.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newAccountCmd(app),
		newPoolCmd(app),
		newEventsCmd(app),
		newRunCmd(app),
	)

	return rootCmd
}
