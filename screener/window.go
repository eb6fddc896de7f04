package screener

import (
	"sort"

	"span-screener/models"
)

const (
	QuarterlyWindow = 4
	AnnualWindow    = 1
)

// DetectCadence reports annual when any record is a fiscal-year ("FY") record
func DetectCadence(records []models.QuarterlyFinancial) models.Cadence {
	for _, r := range records {
		if r.IsAnnual() {
			return models.CadenceAnnual
		}
	}
	return models.CadenceQuarterly
}

// WindowSize is the number of records that make up one trailing year
func WindowSize(c models.Cadence) int {
	if c == models.CadenceAnnual {
		return AnnualWindow
	}
	return QuarterlyWindow
}

// Windows are the trailing year and the year before it, newest record first
type Windows struct {
	Cadence  models.Cadence
	Size     int
	Trailing []models.QuarterlyFinancial
	Prior    []models.QuarterlyFinancial
}

// PriorComplete reports whether the prior window spans a full year
func (w Windows) PriorComplete() bool {
	return len(w.Prior) == w.Size
}

// SortNewestFirst orders records by period end, newest first
func SortNewestFirst(records []models.QuarterlyFinancial) []models.QuarterlyFinancial {
	out := make([]models.QuarterlyFinancial, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool { return out[i].EndDate.After(out[j].EndDate) })
	return out
}

// SelectWindows splits records into trailing and prior windows.
// Any fiscal-year record makes the whole history annual. Windows are cut from every
// record, newest first, whatever its period. ok requires a full window plus extra records.
func SelectWindows(records []models.QuarterlyFinancial, extra int) (Windows, bool) {
	if len(records) == 0 {
		return Windows{}, false
	}
	newest := SortNewestFirst(records)
	cadence := DetectCadence(newest)
	size := WindowSize(cadence)

	w := Windows{
		Cadence:  cadence,
		Size:     size,
		Trailing: newest[:min(size, len(newest))],
	}
	if len(newest) > size {
		w.Prior = newest[size:min(2*size, len(newest))]
	}
	// partial trailing window for callers that accept a short history
	return w, len(newest) >= size+extra
}

// sumPresent adds the item across records, treating missing values as zero.
// ok is false when every record is missing the item.
func sumPresent(records []models.QuarterlyFinancial, item func(models.QuarterlyFinancial) *float64) (float64, bool) {
	total, present := 0.0, false
	for _, r := range records {
		if v := item(r); v != nil {
			total += *v
			present = true
		}
	}
	return total, present
}

// sumComplete adds the item across records. ok is false when any record is missing it.
func sumComplete(records []models.QuarterlyFinancial, item func(models.QuarterlyFinancial) *float64) (float64, bool) {
	if len(records) == 0 {
		return 0, false
	}
	total := 0.0
	for _, r := range records {
		v := item(r)
		if v == nil {
			return 0, false
		}
		total += *v
	}
	return total, true
}

func revenueOf(r models.QuarterlyFinancial) *float64         { return r.Revenue }
func grossProfitOf(r models.QuarterlyFinancial) *float64     { return r.GrossProfit }
func operatingIncomeOf(r models.QuarterlyFinancial) *float64 { return r.OperatingIncome }
func netIncomeOf(r models.QuarterlyFinancial) *float64       { return r.NetIncome }
func operatingCashOf(r models.QuarterlyFinancial) *float64   { return r.OperatingCashFlow }
func capexOf(r models.QuarterlyFinancial) *float64           { return r.CapitalExpenditure }
