package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"monitor-precos/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactory cria um Store vazio para cada subteste
type storeFactory func(t *testing.T) Store

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, newTestSQLite)
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func addTestProduct(t *testing.T, s Store, url, target string) models.Product {
	t.Helper()
	p := models.Product{OwnerID: 42, URL: url, Name: "Produto " + url, StoreTag: "generic"}
	if target != "" {
		p.TargetPrice = decimal.NewNullDecimal(price(target))
	}
	id, err := s.AddProduct(context.Background(), p)
	require.NoError(t, err)
	p.ID = id
	return p
}

func runStoreSuite(t *testing.T, newStore storeFactory) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("AddAndGetProduct", func(t *testing.T) {
		s := newStore(t)
		p := addTestProduct(t, s, "https://loja.com/a", "99.90")

		got, err := s.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.URL, got.URL)
		assert.Equal(t, int64(42), got.OwnerID)
		assert.True(t, got.Active)
		require.True(t, got.TargetPrice.Valid)
		assert.Equal(t, "99.9", got.TargetPrice.Decimal.String())
		assert.False(t, got.CurrentPrice.Valid)
	})

	t.Run("DuplicateURLRejectedPerOwner", func(t *testing.T) {
		s := newStore(t)
		addTestProduct(t, s, "https://loja.com/a", "")

		_, err := s.AddProduct(ctx, models.Product{OwnerID: 42, URL: "https://loja.com/a"})
		assert.ErrorIs(t, err, ErrDuplicateProduct)

		_, err = s.AddProduct(ctx, models.Product{OwnerID: 7, URL: "https://loja.com/a"})
		assert.NoError(t, err)
	})

	t.Run("GetUnknownProduct", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetProduct(ctx, 999)
		assert.ErrorIs(t, err, ErrProductNotFound)
		assert.ErrorIs(t, s.DeactivateProduct(ctx, 999), ErrProductNotFound)
	})

	t.Run("AppendOnlySeries", func(t *testing.T) {
		s := newStore(t)
		p := addTestProduct(t, s, "https://loja.com/a", "")

		prices := []string{"10.00", "12.50", "9.99", "9.99", "11"}
		for i, pr := range prices {
			require.NoError(t, s.AppendObservation(ctx, p.ID, price(pr), base.Add(time.Duration(i)*time.Hour)))
		}

		series, err := s.Series(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, series, len(prices))
		for i := range series {
			assert.True(t, series[i].Price.Equal(price(prices[i])), "posição %d", i)
			if i > 0 {
				assert.False(t, series[i].ObservedAt.Before(series[i-1].ObservedAt))
			}
		}

		latest, err := s.LatestPrice(ctx, p.ID)
		require.NoError(t, err)
		require.True(t, latest.Valid)
		assert.Equal(t, "11", latest.Decimal.String())

		min, max, err := s.MinMax(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "9.99", min.Decimal.String())
		assert.Equal(t, "12.5", max.Decimal.String())

		got, err := s.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "11", got.CurrentPrice.Decimal.String())
		assert.False(t, got.LastChecked.IsZero())
	})

	t.Run("KeepsFullPricePrecision", func(t *testing.T) {
		s := newStore(t)
		p := addTestProduct(t, s, "https://loja.com/a", "1.235")

		require.NoError(t, s.AppendObservation(ctx, p.ID, price("1.234"), base))
		require.NoError(t, s.AppendObservation(ctx, p.ID, price("0.004"), base.Add(time.Hour)))

		series, err := s.Series(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, series, 2)
		assert.Equal(t, "1.234", series[0].Price.String())
		assert.Equal(t, "0.004", series[1].Price.String())

		latest, err := s.LatestPrice(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "0.004", latest.Decimal.String())

		got, err := s.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "1.235", got.TargetPrice.Decimal.String())
		assert.Equal(t, "0.004", got.CurrentPrice.Decimal.String())
	})

	t.Run("AddProductWithPrice", func(t *testing.T) {
		s := newStore(t)
		p := models.Product{OwnerID: 42, URL: "https://loja.com/a", Name: "A", TargetPrice: decimal.NewNullDecimal(price("50"))}

		id, err := s.AddProductWithPrice(ctx, p, price("45.90"), base)
		require.NoError(t, err)

		series, err := s.Series(ctx, id)
		require.NoError(t, err)
		require.Len(t, series, 1)
		assert.Equal(t, "45.9", series[0].Price.String())

		got, err := s.GetProduct(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "45.9", got.CurrentPrice.Decimal.String())
		assert.True(t, got.Active)

		_, err = s.AddProductWithPrice(ctx, p, price("40"), base)
		assert.ErrorIs(t, err, ErrDuplicateProduct)

		// Preço inválido não deixa produto sem histórico
		other := p
		other.URL = "https://loja.com/b"
		_, err = s.AddProductWithPrice(ctx, other, decimal.Zero, base)
		assert.ErrorIs(t, err, ErrInvalidPrice)
		products, err := s.ListProducts(ctx, 42)
		require.NoError(t, err)
		assert.Len(t, products, 1)
	})

	t.Run("SameTimestampKeepsAppendOrder", func(t *testing.T) {
		s := newStore(t)
		p := addTestProduct(t, s, "https://loja.com/a", "")

		require.NoError(t, s.AppendObservation(ctx, p.ID, price("5"), base))
		require.NoError(t, s.AppendObservation(ctx, p.ID, price("6"), base))

		latest, err := s.LatestPrice(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "6", latest.Decimal.String())
	})

	t.Run("RejectsBackfillAndInvalidPrice", func(t *testing.T) {
		s := newStore(t)
		p := addTestProduct(t, s, "https://loja.com/a", "")

		require.NoError(t, s.AppendObservation(ctx, p.ID, price("5"), base))
		assert.ErrorIs(t, s.AppendObservation(ctx, p.ID, price("4"), base.Add(-time.Minute)), ErrOutOfOrder)
		assert.ErrorIs(t, s.AppendObservation(ctx, p.ID, decimal.Zero, base.Add(time.Minute)), ErrInvalidPrice)
		assert.ErrorIs(t, s.AppendObservation(ctx, p.ID, price("-1"), base.Add(time.Minute)), ErrInvalidPrice)
		assert.ErrorIs(t, s.AppendObservation(ctx, 999, price("1"), base), ErrProductNotFound)

		series, err := s.Series(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, series, 1)
	})

	t.Run("EmptyHistory", func(t *testing.T) {
		s := newStore(t)
		p := addTestProduct(t, s, "https://loja.com/a", "")

		latest, err := s.LatestPrice(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, latest.Valid)

		series, err := s.Series(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, series)

		min, max, err := s.MinMax(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, min.Valid)
		assert.False(t, max.Valid)
	})

	t.Run("AlertsBoundary", func(t *testing.T) {
		s := newStore(t)
		equal := addTestProduct(t, s, "https://loja.com/igual", "100.00")
		above := addTestProduct(t, s, "https://loja.com/acima", "100.00")
		noTarget := addTestProduct(t, s, "https://loja.com/sem-alvo", "")
		noHistory := addTestProduct(t, s, "https://loja.com/sem-historico", "100.00")
		inactive := addTestProduct(t, s, "https://loja.com/inativo", "100.00")
		_ = noHistory

		require.NoError(t, s.AppendObservation(ctx, equal.ID, price("100.00"), base))
		require.NoError(t, s.AppendObservation(ctx, above.ID, price("90.00"), base))
		require.NoError(t, s.AppendObservation(ctx, above.ID, price("100.01"), base.Add(time.Hour)))
		require.NoError(t, s.AppendObservation(ctx, noTarget.ID, price("1.00"), base))
		require.NoError(t, s.AppendObservation(ctx, inactive.ID, price("1.00"), base))
		require.NoError(t, s.DeactivateProduct(ctx, inactive.ID))

		alerts, err := s.Alerts(ctx)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, equal.ID, alerts[0].Product.ID)
		assert.True(t, alerts[0].Savings.IsZero())
	})

	t.Run("DeactivatePreservesHistory", func(t *testing.T) {
		s := newStore(t)
		p := addTestProduct(t, s, "https://loja.com/a", "")
		require.NoError(t, s.AppendObservation(ctx, p.ID, price("3"), base))
		require.NoError(t, s.DeactivateProduct(ctx, p.ID))

		active, err := s.ActiveProducts(ctx)
		require.NoError(t, err)
		assert.Empty(t, active)

		listed, err := s.ListProducts(ctx, 42)
		require.NoError(t, err)
		assert.Empty(t, listed)

		series, err := s.Series(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, series, 1)
	})

	t.Run("ListProductsByOwner", func(t *testing.T) {
		s := newStore(t)
		addTestProduct(t, s, "https://loja.com/a", "")
		_, err := s.AddProduct(ctx, models.Product{OwnerID: 7, URL: "https://loja.com/b"})
		require.NoError(t, err)

		mine, err := s.ListProducts(ctx, 42)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, "https://loja.com/a", mine[0].URL)

		all, err := s.ActiveProducts(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("ConcurrentAppendsDifferentProducts", func(t *testing.T) {
		s := newStore(t)
		a := addTestProduct(t, s, "https://loja.com/a", "")
		b := addTestProduct(t, s, "https://loja.com/b", "")

		const n = 20
		var wg sync.WaitGroup
		for _, id := range []int64{a.ID, b.ID} {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				for i := 0; i < n; i++ {
					assert.NoError(t, s.AppendObservation(ctx, id, price("1.5"), time.Now()))
				}
			}(id)
		}
		wg.Wait()

		for _, id := range []int64{a.ID, b.ID} {
			series, err := s.Series(ctx, id)
			require.NoError(t, err)
			assert.Len(t, series, n)
		}
	})
}
