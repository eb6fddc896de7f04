package commands

import (
	"github.com/spf13/cobra"
)

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze SYMBOL",
	Short: "Screen a ticker now",
	Long: `Runs the five checks against the latest financials and daily bars and prints
each check with its status, the overall signal and its confidence.

Example:
  span analyze BRK-B
  span analyze NVDA --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the full result as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Shutdown(ctx)

	result, err := a.Analyze(ctx, args[0])
	if err != nil {
		return err
	}
	if analyzeJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	return writeScreening(cmd.OutOrStdout(), result)
}
