package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

// OrderStatusUnset is the status of a freshly created order. It serializes as null.
const (
	OrderStatusUnset      OrderStatus = ""
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusCompleted  OrderStatus = "Completed"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

var validStatuses = map[OrderStatus]struct{}{
	OrderStatusProcessing: {},
	OrderStatusShipped:    {},
	OrderStatusCompleted:  {},
	OrderStatusCancelled:  {},
}

// ParseOrderStatus accepts exactly one of the four assignable status literals.
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if _, ok := validStatuses[st]; !ok {
		return OrderStatusUnset, fmt.Errorf("invalid order status %q", s)
	}
	return st, nil
}

func (s OrderStatus) Valid() bool {
	_, ok := validStatuses[s]
	return ok
}

func (s OrderStatus) MarshalJSON() ([]byte, error) {
	if s == OrderStatusUnset {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

func (s *OrderStatus) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = OrderStatusUnset
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = OrderStatus(raw)
	return nil
}

// LineItem is one entry of an order's product list. The lifecycle stores the
// list as an opaque blob; this type is a read-side view for consumers.
type LineItem struct {
	ProductID int64           `json:"product_id"`
	EAN       string          `json:"ean"`
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
}

type Order struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	OrderDate   time.Time       `json:"order_date"`
	ProductList json.RawMessage `json:"product_list"`
	Status      OrderStatus     `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"-"`
	UpdatedAt   time.Time       `json:"-"`
}

// LineItems decodes the product list. Unknown or malformed items are the
// caller's concern; the order itself never validates them.
func (o Order) LineItems() ([]LineItem, error) {
	var items []LineItem
	if len(o.ProductList) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(o.ProductList, &items); err != nil {
		return nil, fmt.Errorf("decode product list: %w", err)
	}
	return items, nil
}
