package pricing

import (
	"github.com/cleanpress/laundry-pos/internal/models"
)

// TaxRate is the fixed VAT rate applied to every order
const TaxRate = 0.15

// Totals is the money snapshot computed once at order creation
type Totals struct {
	Subtotal float64
	Tax      float64
	Total    float64
}

// Calculate derives subtotal, tax and total from line items and a manual
// adjustment. Pure function; no rounding is applied here, presentation
// rounding is a display concern.
func Calculate(items []models.LaundryItem, adjustment float64) Totals {
	var itemsTotal float64

	for _, item := range items {
		itemsTotal += item.Price * float64(item.Quantity)
	}

	subtotal := itemsTotal + adjustment
	tax := subtotal * TaxRate

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal + tax,
	}
}
