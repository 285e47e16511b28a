package repos

import (
	"github.com/jmoiron/sqlx"
)

type CartRepo struct{ db *sqlx.DB }

func NewCartRepo(db *sqlx.DB) *CartRepo { return &CartRepo{db: db} }

func (r *CartRepo) q(s string) string { return r.db.Rebind(s) }

type CartItemRow struct {
	ProductID  string  `db:"product_id" json:"productId"`
	VariantID  string  `db:"variant_id" json:"variantId,omitempty"`
	Title      string  `db:"title" json:"title"`
	Qty        int     `db:"qty" json:"qty"`
	PriceAtAdd float64 `db:"price_at_add" json:"priceAtAdd"`
	Subtotal   float64 `db:"subtotal" json:"subtotal"`
}

func (r *CartRepo) EnsureCart(sessionID string) (string, error) {
	var cartID string
	if err := r.db.Get(&cartID, r.q(`SELECT id FROM carts WHERE session_id = ?`), sessionID); err == nil {
		return cartID, nil
	}
	_, err := r.db.Exec(r.q(`INSERT INTO carts(id, session_id, updated_at) VALUES(?,?,?)`),
		sessionID, sessionID, now())
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

func (r *CartRepo) UpsertItem(cartID, productID, variantID string, qty int, price float64) error {
	_, err := r.db.Exec(r.q(`
	  INSERT INTO cart_items(cart_id, product_id, variant_id, qty, price_at_add, created_at)
	  VALUES(?,?,?,?,?,?)
	  ON CONFLICT(cart_id, product_id, variant_id) DO UPDATE
	  SET qty = cart_items.qty + excluded.qty, updated_at = excluded.created_at
	`), cartID, productID, variantID, qty, price, now())
	return err
}

func (r *CartRepo) Items(cartID string) ([]CartItemRow, error) {
	rows := []CartItemRow{}
	err := r.db.Select(&rows, r.q(`
	  SELECT ci.product_id, ci.variant_id, p.title, ci.qty, ci.price_at_add,
	         (ci.qty * ci.price_at_add) AS subtotal
	  FROM cart_items ci JOIN products p ON p.id = ci.product_id
	  WHERE ci.cart_id = ?
	`), cartID)
	return rows, err
}

func (r *CartRepo) Clear(cartID string) error {
	_, err := r.db.Exec(r.q(`DELETE FROM cart_items WHERE cart_id = ?`), cartID)
	return err
}
