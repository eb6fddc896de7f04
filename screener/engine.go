package screener

import (
	"fmt"

	"span-screener/models"
)

// Rubric thresholds
const (
	GrossMarginGreen   = 50.0
	GrossMarginYellow  = 30.0
	ProfitMarginYellow = 10.0

	PSGreen        = 10.0
	PSStretch      = 20.0
	PSComboJustify = 30.0

	GrowthGreen  = 20.0
	GrowthYellow = 10.0

	CashDebtGreen  = 1.0
	CashDebtYellow = 0.5

	RSIOversold   = 30.0
	RSIOverbought = 70.0
)

// Engine applies the five-check rubric to projected metrics
type Engine struct{}

// NewEngine creates a screening engine
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate runs every check whose inputs are available, in rubric order
func (e *Engine) Evaluate(m models.ScreeningMetrics, price float64) []models.CheckResult {
	checks := make([]models.CheckResult, 0, 5)
	for _, check := range []func(models.ScreeningMetrics, float64) (models.CheckResult, bool){
		checkMargins,
		checkPriceToSales,
		checkRevenueGrowth,
		checkCashDebt,
		checkTechnicals,
	} {
		if result, ok := check(m, price); ok {
			checks = append(checks, result)
		}
	}
	return checks
}

func checkMargins(m models.ScreeningMetrics, _ float64) (models.CheckResult, bool) {
	if m.GrossMarginPct == nil {
		return models.CheckResult{}, false
	}
	gm := *m.GrossMarginPct
	result := models.CheckResult{Name: models.CheckMargins}

	switch {
	case gm >= GrossMarginGreen:
		result.Light = models.LightGreen
		result.Detail = fmt.Sprintf("Gross margin %.1f%% >= %.0f%%", gm, GrossMarginGreen)
	case gm > GrossMarginYellow && m.ProfitMarginPct != nil && *m.ProfitMarginPct > ProfitMarginYellow:
		result.Light = models.LightYellow
		result.Detail = fmt.Sprintf("Gross margin %.1f%% with profit margin %.1f%%", gm, *m.ProfitMarginPct)
	default:
		result.Light = models.LightRed
		if m.ProfitMarginPct != nil {
			result.Detail = fmt.Sprintf("Gross margin %.1f%%, profit margin %.1f%%", gm, *m.ProfitMarginPct)
		} else {
			result.Detail = fmt.Sprintf("Gross margin %.1f%%", gm)
		}
	}
	return result, true
}

// PSCombo is revenue growth plus FCF margin, each zero when unknown
func PSCombo(m models.ScreeningMetrics) float64 {
	combo := 0.0
	if m.RevenueGrowthPct != nil {
		combo += *m.RevenueGrowthPct
	}
	if m.FCFMarginPct != nil {
		combo += *m.FCFMarginPct
	}
	return combo
}

func checkPriceToSales(m models.ScreeningMetrics, _ float64) (models.CheckResult, bool) {
	if m.PSRatio == nil {
		return models.CheckResult{}, false
	}
	ps := *m.PSRatio
	combo := PSCombo(m)
	result := models.CheckResult{Name: models.CheckPriceToSales}

	switch {
	case ps <= PSGreen:
		result.Light = models.LightGreen
		result.Detail = fmt.Sprintf("P/S %.1f <= %.0f", ps, PSGreen)
	case ps <= PSStretch && combo > PSComboJustify:
		result.Light = models.LightGreen
		result.Detail = fmt.Sprintf("P/S %.1f justified by growth + FCF margin %.1f%%", ps, combo)
	case ps <= PSStretch:
		result.Light = models.LightYellow
		result.Detail = fmt.Sprintf("P/S %.1f with growth + FCF margin %.1f%% <= %.0f%%", ps, combo, PSComboJustify)
	default:
		result.Light = models.LightRed
		result.Detail = fmt.Sprintf("P/S %.1f > %.0f", ps, PSStretch)
	}
	return result, true
}

func checkRevenueGrowth(m models.ScreeningMetrics, _ float64) (models.CheckResult, bool) {
	if m.RevenueGrowthPct == nil {
		return models.CheckResult{}, false
	}
	g := *m.RevenueGrowthPct
	result := models.CheckResult{
		Name:   models.CheckRevenueGrowth,
		Detail: fmt.Sprintf("YoY revenue growth %.1f%%", g),
	}

	switch {
	case g >= GrowthGreen:
		result.Light = models.LightGreen
	case g >= GrowthYellow:
		result.Light = models.LightYellow
	default:
		result.Light = models.LightRed
	}
	return result, true
}

func checkCashDebt(m models.ScreeningMetrics, _ float64) (models.CheckResult, bool) {
	if m.CashDebtRatio == nil {
		return models.CheckResult{}, false
	}
	r := *m.CashDebtRatio
	result := models.CheckResult{
		Name:   models.CheckCashDebt,
		Detail: fmt.Sprintf("Cash/debt %.2f", r),
	}

	switch {
	case r >= CashDebtGreen:
		result.Light = models.LightGreen
	case r > CashDebtYellow:
		result.Light = models.LightYellow
	default:
		result.Light = models.LightRed
	}
	return result, true
}

// checkTechnicals follows the four-branch table: price below SMA50 is YELLOW unless RSI is oversold
func checkTechnicals(m models.ScreeningMetrics, price float64) (models.CheckResult, bool) {
	if m.SMA50 == nil || m.RSI14 == nil || price <= 0 {
		return models.CheckResult{}, false
	}
	sma, rsi := *m.SMA50, *m.RSI14
	result := models.CheckResult{
		Name:   models.CheckTechnicals,
		Detail: fmt.Sprintf("Price %.2f vs SMA50 %.2f, RSI14 %.1f", price, sma, rsi),
	}

	switch {
	case price > sma && rsi >= RSIOversold && rsi <= RSIOverbought:
		result.Light = models.LightGreen
	case price > sma && rsi > RSIOverbought:
		result.Light = models.LightYellow
	case price < sma && rsi < RSIOversold:
		result.Light = models.LightRed
	default:
		result.Light = models.LightYellow
	}
	return result, true
}

// DeriveSignal applies the half-or-more rule, checking reds first
func DeriveSignal(checks []models.CheckResult) models.Signal {
	total := len(checks)
	if total == 0 {
		return models.SignalHold
	}
	greens, _, reds := models.CountLights(checks)
	half := float64(total) / 2.0

	switch {
	case float64(reds) >= half:
		return models.SignalSell
	case float64(greens) >= half:
		return models.SignalBuy
	default:
		return models.SignalHold
	}
}

// DeriveConfidence is HIGH when every check is green or every check is red,
// MEDIUM when at most one check differs from the most common light
func DeriveConfidence(checks []models.CheckResult) models.Confidence {
	total := len(checks)
	if total == 0 {
		return models.ConfidenceLow
	}
	greens, yellows, reds := models.CountLights(checks)

	if greens == total || reds == total {
		return models.ConfidenceHigh
	}
	if total-max(greens, yellows, reds) <= 1 {
		return models.ConfidenceMedium
	}
	return models.ConfidenceLow
}

// Reasoning summarizes the light counts, e.g. "3/5 checks GREEN, 1/5 YELLOW, 1/5 RED"
func Reasoning(checks []models.CheckResult) string {
	total := len(checks)
	greens, yellows, reds := models.CountLights(checks)
	return fmt.Sprintf("%d/%d checks GREEN, %d/%d YELLOW, %d/%d RED", greens, total, yellows, total, reds, total)
}
