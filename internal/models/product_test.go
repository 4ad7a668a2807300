package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productWithTarget(target string) Product {
	return Product{
		ID:          1,
		Name:        "Notebook",
		TargetPrice: decimal.NewNullDecimal(decimal.RequireFromString(target)),
	}
}

func TestEvaluateAlertBoundary(t *testing.T) {
	p := productWithTarget("100.00")

	eval, ok := EvaluateAlert(p, decimal.RequireFromString("100.00"))
	require.True(t, ok, "preço igual ao alvo deve alertar")
	assert.True(t, eval.Savings.IsZero())
	assert.True(t, eval.SavingsPercent.IsZero())

	_, ok = EvaluateAlert(p, decimal.RequireFromString("100.01"))
	assert.False(t, ok)
}

func TestEvaluateAlertSavings(t *testing.T) {
	eval, ok := EvaluateAlert(productWithTarget("200"), decimal.RequireFromString("150"))
	require.True(t, ok)
	assert.True(t, eval.Savings.Equal(decimal.NewFromInt(50)))
	assert.True(t, eval.SavingsPercent.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, "Notebook", eval.Product.Name)
}

func TestEvaluateAlertWithoutTarget(t *testing.T) {
	_, ok := EvaluateAlert(Product{ID: 2}, decimal.NewFromInt(1))
	assert.False(t, ok)
}

func TestSeriesMinMax(t *testing.T) {
	now := time.Now()
	series := []PriceObservation{
		{Price: decimal.RequireFromString("10.5"), ObservedAt: now},
		{Price: decimal.RequireFromString("8.25"), ObservedAt: now.Add(time.Hour)},
		{Price: decimal.RequireFromString("12"), ObservedAt: now.Add(2 * time.Hour)},
	}

	min, max := SeriesMinMax(series)
	require.True(t, min.Valid)
	require.True(t, max.Valid)
	assert.Equal(t, "8.25", min.Decimal.String())
	assert.Equal(t, "12", max.Decimal.String())

	min, max = SeriesMinMax(nil)
	assert.False(t, min.Valid)
	assert.False(t, max.Valid)
}
