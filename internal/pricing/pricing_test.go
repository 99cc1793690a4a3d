package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cleanpress/laundry-pos/internal/models"
)

func TestCalculate_ItemsOnly(t *testing.T) {
	items := []models.LaundryItem{
		{Name: "Thobe", Quantity: 2, Price: 5},
		{Name: "Shirt", Quantity: 1, Price: 3},
	}

	totals := Calculate(items, 0)

	require.InDelta(t, 13.00, totals.Subtotal, 1e-9)
	require.InDelta(t, 1.95, totals.Tax, 1e-9)
	require.InDelta(t, 14.95, totals.Total, 1e-9)
}

func TestCalculate_TotalsInvariant(t *testing.T) {
	cases := []struct {
		name       string
		items      []models.LaundryItem
		adjustment float64
	}{
		{"no items positive adjustment", nil, 25},
		{"discount", []models.LaundryItem{{Name: "Abaya", Quantity: 3, Price: 12.5}}, -5},
		{"surcharge", []models.LaundryItem{{Name: "Blanket", Quantity: 1, Price: 40}}, 10},
		{"empty", nil, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			totals := Calculate(tc.items, tc.adjustment)

			var itemsTotal float64
			for _, item := range tc.items {
				itemsTotal += item.Price * float64(item.Quantity)
			}

			require.InDelta(t, itemsTotal+tc.adjustment, totals.Subtotal, 1e-9)
			require.InDelta(t, totals.Subtotal*TaxRate, totals.Tax, 1e-9)
			require.InDelta(t, totals.Subtotal+totals.Tax, totals.Total, 1e-9)
		})
	}
}
