package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountLights(t *testing.T) {
	checks := []CheckResult{
		{Name: CheckMargins, Light: LightGreen},
		{Name: CheckPriceToSales, Light: LightGreen},
		{Name: CheckRevenueGrowth, Light: LightYellow},
		{Name: CheckCashDebt, Light: LightRed},
		{Name: CheckTechnicals, Light: LightYellow},
	}

	greens, yellows, reds := CountLights(checks)
	assert.Equal(t, 2, greens)
	assert.Equal(t, 2, yellows)
	assert.Equal(t, 1, reds)
}

func TestCountLights_Empty(t *testing.T) {
	greens, yellows, reds := CountLights(nil)
	assert.Zero(t, greens)
	assert.Zero(t, yellows)
	assert.Zero(t, reds)
}
