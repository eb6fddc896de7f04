package commands

import (
	"github.com/spf13/cobra"
)

var (
	backtestYears int
	backtestJSON  bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest SYMBOL",
	Short: "Replay the rubric over history",
	Long: `Replays the screening rubric at every filing date in the window, trading on
BUY and SELL signals, and compares the result with buy and hold.

Example:
  span backtest AAPL
  span backtest AAPL --years 5 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.Flags().IntVar(&backtestYears, "years", 0, "lookback in years (default from BACKTEST_DEFAULT_YEARS)")
	backtestCmd.Flags().BoolVar(&backtestJSON, "json", false, "print the full result as JSON")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Shutdown(ctx)

	result, err := a.Backtest(ctx, args[0], backtestYears)
	if err != nil {
		return err
	}
	if backtestJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	return writeBacktest(cmd.OutOrStdout(), result)
}
