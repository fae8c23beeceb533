package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsolidate(t *testing.T) {
	period := Period{Start: date(2024, 1, 1), End: date(2024, 1, 10)}

	t.Run("total equals sum of per-plan bills", func(t *testing.T) {
		items := []Item{
			{PlanName: "Basic", Location: "Austin", Price: 9.995},
			{PlanName: "Green", Location: "Dallas", Price: 3.333},
			{PlanName: "Night", Location: "Houston", Price: 0.125},
		}

		result, err := Consolidate(items, period)
		require.NoError(t, err)

		sum := decimal.Zero
		for _, it := range items {
			amount, err := CalculateBill(it.Price, period.Start, period.End)
			require.NoError(t, err)
			sum = sum.Add(amount)
		}
		assert.True(t, sum.Equal(result.Total), "want %s got %s", sum, result.Total)
		assert.Len(t, result.Lines, 3)
	})

	t.Run("synthesizes pseudo plan", func(t *testing.T) {
		items := []Item{
			{PlanName: "Basic", Location: "Austin", Price: 10},
			{PlanName: "Green", Location: "Dallas", Price: 2.5},
		}

		result, err := Consolidate(items, period)
		require.NoError(t, err)

		assert.Equal(t, ConsolidatedPlanName, result.PlanName)
		assert.Equal(t, "Austin, Dallas", result.Location)
		assert.Equal(t, "12.50", FormatMoney(result.Price))
		assert.Equal(t, "125.00", FormatMoney(result.Total))
		assert.Equal(t, 10, result.Lines[0].Days)
		assert.Equal(t, "100.00", FormatMoney(result.Lines[0].Amount))
	})

	t.Run("additivity over many periods", func(t *testing.T) {
		items := []Item{
			{PlanName: "A", Location: "X", Price: 1.005},
			{PlanName: "B", Location: "Y", Price: 2.675},
		}
		for days := 0; days < 40; days++ {
			p := Period{Start: date(2024, 1, 1), End: date(2024, 1, 1).Add(time.Duration(days) * 24 * time.Hour)}
			result, err := Consolidate(items, p)
			require.NoError(t, err)

			a, _ := CalculateBill(items[0].Price, p.Start, p.End)
			b, _ := CalculateBill(items[1].Price, p.Start, p.End)
			assert.True(t, a.Add(b).Equal(result.Total))
		}
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := Consolidate(nil, period)
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("invalid range", func(t *testing.T) {
		_, err := Consolidate([]Item{{PlanName: "A", Price: 1}}, Period{Start: date(2024, 2, 1), End: date(2024, 1, 1)})
		assert.ErrorIs(t, err, ErrInvalidRange)
	})
}
