package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"span-screener/models"
)

const dateLayout = "2006-01-02"

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeScreening(w io.Writer, r *models.ScreeningResult) error {
	fmt.Fprintf(w, "%s (%s)  price %.2f  as of %s  [%s]\n\n", r.Symbol, r.Name, r.Price, r.AsOf.Format(dateLayout), r.Cadence)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHECK\tLIGHT\tDETAIL")
	for _, c := range r.Checks {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, c.Light, c.Detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nSignal: %s (%s confidence)\n%s\n", r.Signal, r.Confidence, r.Reasoning)
	return err
}

func writeBacktest(w io.Writer, r *models.BacktestResult) error {
	fmt.Fprintf(w, "%s (%s)  %s to %s  [%s]\n\n", r.Symbol, r.Name,
		r.StartDate.Format(dateLayout), r.EndDate.Format(dateLayout), r.Cadence)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tSIGNAL\tCONFIDENCE\tPRICE\tCHECKS\tACTION")
	for _, s := range r.Signals {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\t%s\n",
			s.Date.Format(dateLayout), s.Signal, s.Confidence, s.Price, s.ChecksSummary, s.Action)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Initial investment\t%.2f\n", r.InitialInvestment)
	fmt.Fprintf(tw, "Strategy\t%.2f\t%+.2f%%\n", r.StrategyFinal, r.StrategyReturnPct)
	fmt.Fprintf(tw, "Buy and hold\t%.2f\t%+.2f%%\n", r.BuyAndHoldFinal, r.BuyAndHoldReturnPct)
	fmt.Fprintf(tw, "Outperformance\t%+.2f%%\n", r.OutperformancePct)
	fmt.Fprintf(tw, "Trades\t%d (%d won, %d lost)\n", r.TotalTrades, r.WinningTrades, r.LosingTrades)
	if r.WinRatePct != nil {
		fmt.Fprintf(tw, "Win rate\t%.2f%%\n", *r.WinRatePct)
	}
	fmt.Fprintf(tw, "Max drawdown\t%.2f%%\n", r.MaxDrawdownPct)
	fmt.Fprintf(tw, "Final position\t%s\n", r.FinalPosition)
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%s\n", r.Summary)
	return err
}
