package cli

import (
	"context"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	envFile  string
	logLevel string
}

// NewRootCmd builds the expensetracker command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "expensetracker",
		Short: "Track personal expenses against a monthly budget",
		Long: `expensetracker records transactions, keeps a monthly budget and shows a
dashboard of this month's spending and the last seven days.

Configuration comes from the environment (optionally a .env file):
DATA_BACKEND, DATA_DIR, SQLITE_DB_PATH, STORAGE_KEY, PORT, AMQP_URL, LOG_LEVEL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Env file loaded before reading configuration")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(opts),
		newInitCmd(opts),
		newAddCmd(opts),
		newBudgetCmd(opts),
		newDashboardCmd(opts),
		newListCmd(opts),
		newWatchCmd(opts),
	)
	return root
}

// Execute runs the root command with signal-aware context.
func Execute() error {
	ctx, stop := SignalContext(context.Background())
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
