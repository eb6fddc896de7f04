package screener

import (
	"math"

	"span-screener/models"
)

const (
	// CashDebtCap is reported when there is cash but no debt at all
	CashDebtCap = 10.0

	// MaxPFCF marks P/FCF values above it as degenerate
	MaxPFCF = 1000.0
)

// Snapshot is everything known about a symbol at one evaluation point
type Snapshot struct {
	Price   float64
	Windows Windows
	Profile *models.CompanyProfile
	SMA50   *float64
	RSI14   *float64
}

// Project derives the screening metrics from a snapshot. Each metric is
// computed by its own helper and is nil when its preconditions do not hold.
func Project(s Snapshot) models.ScreeningMetrics {
	trailing := s.Windows.Trailing

	revenue, hasRevenue := sumPresent(trailing, revenueOf)
	netIncome, hasNetIncome := sumPresent(trailing, netIncomeOf)

	m := models.ScreeningMetrics{
		SMA50: finite(s.SMA50),
		RSI14: finite(s.RSI14),
	}
	if hasRevenue {
		m.TTMRevenue = finite(&revenue)
	}
	if hasNetIncome {
		m.TTMNetIncome = finite(&netIncome)
	}

	m.MarketCap = marketCap(s.Price, s.Profile)
	m.EPS = eps(m.TTMNetIncome, s.Profile)
	m.PERatio = peRatio(s.Price, m.EPS)
	m.PSRatio = psRatio(m.MarketCap, m.TTMRevenue)

	m.GrossMarginPct = marginPct(trailing, grossProfitOf, m.TTMRevenue)
	m.OperatingMarginPct = marginPct(trailing, operatingIncomeOf, m.TTMRevenue)
	m.ProfitMarginPct = marginPct(trailing, netIncomeOf, m.TTMRevenue)

	fcf := freeCashFlow(trailing)
	m.FCFMarginPct = fcfMarginPct(fcf, m.TTMRevenue)
	m.PFCFRatio = pfcfRatio(m.MarketCap, fcf)

	m.RevenueGrowthPct = revenueGrowthPct(s.Windows)

	latest := latestRecord(trailing)
	m.Cash = cash(latest)
	m.TotalDebt = totalDebt(latest)
	m.CashDebtRatio = cashDebtRatio(m.Cash, m.TotalDebt)

	return m
}

// finite drops NaN and infinite values
func finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	out := *v
	return &out
}

func ratio(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	v := num / den
	return finite(&v)
}

// marketCap needs a positive price and share count, else falls back to the profile value
func marketCap(price float64, profile *models.CompanyProfile) *float64 {
	if profile == nil {
		return nil
	}
	if price > 0 && profile.SharesOutstanding != nil && *profile.SharesOutstanding > 0 {
		v := price * *profile.SharesOutstanding
		return finite(&v)
	}
	if profile.MarketCap != nil && *profile.MarketCap > 0 {
		return finite(profile.MarketCap)
	}
	return nil
}

// eps needs trailing net income and a positive share count
func eps(netIncome *float64, profile *models.CompanyProfile) *float64 {
	if netIncome == nil || profile == nil || profile.SharesOutstanding == nil || *profile.SharesOutstanding <= 0 {
		return nil
	}
	return ratio(*netIncome, *profile.SharesOutstanding)
}

// peRatio is only meaningful for positive earnings
func peRatio(price float64, eps *float64) *float64 {
	if eps == nil || *eps <= 0 || price <= 0 {
		return nil
	}
	return ratio(price, *eps)
}

// psRatio needs a market cap and positive trailing revenue
func psRatio(mcap, revenue *float64) *float64 {
	if mcap == nil || revenue == nil || *revenue <= 0 {
		return nil
	}
	return ratio(*mcap, *revenue)
}

// marginPct sums the line item over the window (missing as zero) against positive revenue
func marginPct(trailing []models.QuarterlyFinancial, item func(models.QuarterlyFinancial) *float64, revenue *float64) *float64 {
	if revenue == nil || *revenue <= 0 {
		return nil
	}
	line, ok := sumPresent(trailing, item)
	if !ok {
		return nil
	}
	return ratio(line*100, *revenue)
}

// freeCashFlow is operating cash flow less the magnitude of capital expenditure.
// Missing capex counts as zero; missing operating cash flow makes it undefined.
func freeCashFlow(trailing []models.QuarterlyFinancial) *float64 {
	ocf, ok := sumPresent(trailing, operatingCashOf)
	if !ok {
		return nil
	}
	capex, _ := sumPresent(trailing, capexOf)
	v := ocf - math.Abs(capex)
	return finite(&v)
}

func fcfMarginPct(fcf, revenue *float64) *float64 {
	if fcf == nil || revenue == nil || *revenue <= 0 {
		return nil
	}
	return ratio(*fcf*100, *revenue)
}

// pfcfRatio needs positive free cash flow and is dropped above MaxPFCF
func pfcfRatio(mcap, fcf *float64) *float64 {
	if mcap == nil || fcf == nil || *fcf <= 0 {
		return nil
	}
	v := ratio(*mcap, *fcf)
	if v == nil || *v > MaxPFCF {
		return nil
	}
	return v
}

// revenueGrowthPct compares the trailing window with a complete prior window.
// Both windows must report revenue for every period and prior revenue must be positive.
func revenueGrowthPct(w Windows) *float64 {
	if !w.PriorComplete() || len(w.Trailing) != w.Size {
		return nil
	}
	recent, ok := sumComplete(w.Trailing, revenueOf)
	if !ok {
		return nil
	}
	prior, ok := sumComplete(w.Prior, revenueOf)
	if !ok || prior <= 0 {
		return nil
	}
	return ratio((recent-prior)*100, prior)
}

func latestRecord(trailing []models.QuarterlyFinancial) *models.QuarterlyFinancial {
	if len(trailing) == 0 {
		return nil
	}
	return &trailing[0]
}

func cash(latest *models.QuarterlyFinancial) *float64 {
	if latest == nil {
		return nil
	}
	return finite(latest.CashAndEquivalents)
}

// totalDebt is long-term debt plus current liabilities; a missing part counts as zero
func totalDebt(latest *models.QuarterlyFinancial) *float64 {
	if latest == nil || (latest.LongTermDebt == nil && latest.CurrentLiabilities == nil) {
		return nil
	}
	v := 0.0
	if latest.LongTermDebt != nil {
		v += *latest.LongTermDebt
	}
	if latest.CurrentLiabilities != nil {
		v += *latest.CurrentLiabilities
	}
	return finite(&v)
}

// cashDebtRatio clamps to CashDebtCap when debt is zero and cash positive
func cashDebtRatio(cash, debt *float64) *float64 {
	if cash == nil || debt == nil || *debt < 0 {
		return nil
	}
	if *debt == 0 {
		if *cash > 0 {
			return models.Float(CashDebtCap)
		}
		return nil
	}
	return ratio(*cash, *debt)
}
