package models

// OrderStats is the dashboard summary: counters and money aggregates over
// all orders, plus the low-stock item count merged in by the service
type OrderStats struct {
	TotalOrders   int     `db:"total_orders" json:"total_orders"`
	OpenOrders    int     `db:"open_orders" json:"open_orders"`
	PaidRevenue   float64 `db:"paid_revenue" json:"paid_revenue"`
	CollectedTax  float64 `db:"collected_tax" json:"collected_tax"`
	PendingAmount float64 `db:"pending_amount" json:"pending_amount"`
	LowStockItems int     `db:"-" json:"low_stock_items"`
}
