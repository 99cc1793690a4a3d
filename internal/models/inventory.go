package models

// InventoryItem is a consumable tracked for low-stock alerts
type InventoryItem struct {
	ID        string  `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	Stock     float64 `db:"stock" json:"stock"`
	Unit      string  `db:"unit" json:"unit"`
	Threshold float64 `db:"threshold" json:"threshold"`
}

// IsLow reports whether the stock is at or below the reorder threshold
func (i *InventoryItem) IsLow() bool {
	return i.Stock <= i.Threshold
}
