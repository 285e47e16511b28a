package repos

import (
	"github.com/MALKOO0044/shopixo-sub004/internal/domain"

	"github.com/jmoiron/sqlx"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

func (r *OrderRepo) q(s string) string { return r.db.Rebind(s) }

const orderCols = `
  id, COALESCE(session_id,'') AS session_id, customer_name, customer_email,
  shipping_addr, country_code, total, status, cj_order_num, cj_status,
  tracking_number, carrier, shipped_at, delivered_at, created_at`

func (r *OrderRepo) Create(o domain.Order, items []domain.OrderItem) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(r.q(`
	  INSERT INTO orders
	    (id, session_id, customer_name, customer_email, shipping_addr,
	     country_code, total, status, created_at)
	  VALUES (?,?,?,?,?,?,?,?,?)
	`), o.ID, o.SessionID, o.CustomerName, o.CustomerEmail, o.ShippingAddr,
		o.CountryCode, o.Total, o.Status, now()); err != nil {
		return err
	}
	for _, it := range items {
		if _, err := tx.Exec(r.q(`
		  INSERT INTO order_items(order_id, product_id, variant_id, qty, price)
		  VALUES (?,?,?,?,?)
		`), o.ID, it.ProductID, it.VariantID, it.Qty, it.Price); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *OrderRepo) Get(id string) (domain.Order, error) {
	var o domain.Order
	err := r.db.Get(&o, r.q(`SELECT `+orderCols+` FROM orders WHERE id = ?`), id)
	return o, err
}

func (r *OrderRepo) Items(orderID string) ([]domain.OrderItem, error) {
	var out []domain.OrderItem
	err := r.db.Select(&out, r.q(`
	  SELECT order_id, product_id, variant_id, qty, price
	  FROM order_items
	  WHERE order_id = ?
	`), orderID)
	return out, err
}

func (r *OrderRepo) ListLatest(limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []domain.Order
	err := r.db.Select(&out, r.q(`
	  SELECT `+orderCols+` FROM orders ORDER BY created_at DESC LIMIT ?
	`), limit)
	return out, err
}

func (r *OrderRepo) ListBySession(sessionID string) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.Select(&out, r.q(`
	  SELECT `+orderCols+` FROM orders WHERE session_id = ? ORDER BY created_at DESC
	`), sessionID)
	return out, err
}

func (r *OrderRepo) ListByUser(userID string) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.Select(&out, r.q(`
	  SELECT `+orderCols+`
	  FROM orders o
	  WHERE o.session_id IN (SELECT id FROM sessions WHERE user_id = ?)
	  ORDER BY o.created_at DESC
	`), userID)
	return out, err
}

func (r *OrderRepo) UpdateStatus(id, status string) error {
	_, err := r.db.Exec(r.q(`UPDATE orders SET status = ? WHERE id = ?`), status, id)
	return err
}

// SetCJOrder records the supplier order number and status. The WHERE guard
// makes the write first-wins: once a supplier order number is stored a
// second fulfillment attempt cannot overwrite it.
func (r *OrderRepo) SetCJOrder(id, cjOrderNum, cjStatus string) (bool, error) {
	res, err := r.db.Exec(r.q(`
	  UPDATE orders SET cj_order_num = ?, cj_status = ?, status = ?
	  WHERE id = ? AND cj_order_num = ''
	`), cjOrderNum, cjStatus, domain.OrderProcessing, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// TrackingUpdate carries write-backs from tracking sync and webhooks.
// Empty fields are skipped: tracking writes are additive and a query miss
// must never erase previously stored data.
type TrackingUpdate struct {
	CJStatus       string
	TrackingNumber string
	Carrier        string
	Status         string
	ShippedAt      string
	DeliveredAt    string
}

func (r *OrderRepo) ApplyTracking(id string, u TrackingUpdate) error {
	set := ``
	args := []any{}
	add := func(col, v string) {
		if v == "" {
			return
		}
		if set != `` {
			set += `, `
		}
		set += col + ` = ?`
		args = append(args, v)
	}
	add("cj_status", u.CJStatus)
	add("tracking_number", u.TrackingNumber)
	add("carrier", u.Carrier)
	add("status", u.Status)
	add("shipped_at", u.ShippedAt)
	add("delivered_at", u.DeliveredAt)
	if set == `` {
		return nil
	}
	args = append(args, id)
	_, err := r.db.Exec(r.q(`UPDATE orders SET `+set+` WHERE id = ?`), args...)
	return err
}

// ListPendingTracking returns orders that have been placed with the
// supplier but have not reached a terminal local status.
func (r *OrderRepo) ListPendingTracking(limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.Order
	err := r.db.Select(&out, r.q(`
	  SELECT `+orderCols+`
	  FROM orders
	  WHERE cj_order_num != '' AND status NOT IN (?, ?)
	  ORDER BY created_at ASC
	  LIMIT ?
	`), domain.OrderDelivered, domain.OrderCancelled, limit)
	return out, err
}

// ListFulfillable returns paid orders with no supplier order yet; backs the
// admin retry endpoint.
func (r *OrderRepo) ListFulfillable(limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.Order
	err := r.db.Select(&out, r.q(`
	  SELECT `+orderCols+`
	  FROM orders
	  WHERE status = ? AND cj_order_num = ''
	  ORDER BY created_at ASC
	  LIMIT ?
	`), domain.OrderPaid, limit)
	return out, err
}
