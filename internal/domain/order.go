package domain

// Order statuses. An order row is never deleted; it only moves forward
// through these states (cancellation excepted).
const (
	OrderPending    = "pending"
	OrderPaid       = "paid"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

func ValidOrderStatus(s string) bool {
	switch s {
	case OrderPending, OrderPaid, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// TerminalOrderStatus reports whether tracking sync should stop touching
// the order.
func TerminalOrderStatus(s string) bool {
	return s == OrderDelivered || s == OrderCancelled
}

type Order struct {
	ID            string  `db:"id" json:"id"`
	SessionID     string  `db:"session_id" json:"-"`
	CustomerName  string  `db:"customer_name" json:"customerName"`
	CustomerEmail string  `db:"customer_email" json:"customerEmail"`
	ShippingAddr  string  `db:"shipping_addr" json:"shippingAddr,omitempty"`
	CountryCode   string  `db:"country_code" json:"countryCode,omitempty"`
	Total         float64 `db:"total" json:"total"`
	Status        string  `db:"status" json:"status"`

	// Supplier-side fields, written by fulfillment and tracking sync.
	CJOrderNum     string `db:"cj_order_num" json:"cjOrderNum,omitempty"`
	CJStatus       string `db:"cj_status" json:"cjStatus,omitempty"`
	TrackingNumber string `db:"tracking_number" json:"trackingNumber,omitempty"`
	Carrier        string `db:"carrier" json:"carrier,omitempty"`
	ShippedAt      string `db:"shipped_at" json:"shippedAt,omitempty"`
	DeliveredAt    string `db:"delivered_at" json:"deliveredAt,omitempty"`

	CreatedAt string `db:"created_at" json:"createdAt"`
}

type OrderItem struct {
	OrderID   string  `db:"order_id" json:"-"`
	ProductID string  `db:"product_id" json:"productId"`
	VariantID string  `db:"variant_id" json:"variantId,omitempty"`
	Qty       int     `db:"qty" json:"qty"`
	Price     float64 `db:"price" json:"price"`
}
