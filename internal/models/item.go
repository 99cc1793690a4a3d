package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// LaundryItem is a single line item on an order
type LaundryItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// NewLaundryItem creates a line item with a generated id
func NewLaundryItem(name string, quantity int, price float64) LaundryItem {
	return LaundryItem{
		ID:       GenerateID("itm"),
		Name:     name,
		Quantity: quantity,
		Price:    price,
	}
}

// ItemList is a slice of line items stored as a JSONB column
type ItemList []LaundryItem

// Value implements driver.Valuer for JSONB storage
func (l ItemList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB storage
func (l *ItemList) Scan(src interface{}) error {
	if src == nil {
		*l = ItemList{}
		return nil
	}

	var data []byte

	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for ItemList: %T", src)
	}

	return json.Unmarshal(data, l)
}
