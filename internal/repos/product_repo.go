package repos

import (
	"database/sql"

	"github.com/MALKOO0044/shopixo-sub004/internal/domain"

	"github.com/jmoiron/sqlx"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) q(s string) string { return r.db.Rebind(s) }

const productCols = `
  id, category_id, title, slug, description, price, stock, images_json,
  video_url, active, cj_product_id, created_at, COALESCE(updated_at,'') AS updated_at`

func (r *ProductRepo) Get(id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.Get(&p, r.q(`SELECT `+productCols+` FROM products WHERE id = ?`), id)
	return p, err
}

func (r *ProductRepo) GetBySlug(slug string) (domain.Product, error) {
	var p domain.Product
	err := r.db.Get(&p, r.q(`SELECT `+productCols+` FROM products WHERE slug = ? AND active`), slug)
	return p, err
}

// GetByCJProductID resolves the local row a supplier item maps onto.
// Returns sql.ErrNoRows when the product has never been imported.
func (r *ProductRepo) GetByCJProductID(cjID string) (domain.Product, error) {
	var p domain.Product
	err := r.db.Get(&p, r.q(`SELECT `+productCols+` FROM products WHERE cj_product_id = ?`), cjID)
	return p, err
}

func (r *ProductRepo) SlugTaken(slug string) (bool, error) {
	var id string
	err := r.db.Get(&id, r.q(`SELECT id FROM products WHERE slug = ?`), slug)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *ProductRepo) List(catID, q string, limit, offset int) ([]domain.Product, error) {
	where := `active`
	args := []any{}
	if catID != "" {
		where += ` AND category_id = ?`
		args = append(args, catID)
	}
	if q != "" {
		where += ` AND (LOWER(title) LIKE ? OR LOWER(description) LIKE ?)`
		args = append(args, "%"+q+"%", "%"+q+"%")
	}
	args = append(args, limit, offset)

	var out []domain.Product
	err := r.db.Select(&out, r.q(`
	  SELECT `+productCols+`
	  FROM products
	  WHERE `+where+`
	  ORDER BY created_at DESC
	  LIMIT ? OFFSET ?
	`), args...)
	return out, err
}

func (r *ProductRepo) Insert(p domain.Product) error {
	_, err := r.db.Exec(r.q(`
	  INSERT INTO products
	    (id, category_id, title, slug, description, price, stock, images_json,
	     video_url, active, cj_product_id, created_at)
	  VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
	`), p.ID, p.CategoryID, p.Title, p.Slug, p.Description, p.Price, p.Stock,
		p.ImagesJSON, p.VideoURL, p.Active, p.CJProductID, now())
	return err
}

// UpdateFields applies a partial update; only the keys present in fields
// are written. Used by the sync service to respect overwrite options.
func (r *ProductRepo) UpdateFields(id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	set := ``
	args := []any{}
	for _, col := range []string{"title", "description", "price", "stock", "images_json", "video_url", "active"} {
		if v, ok := fields[col]; ok {
			if set != `` {
				set += `, `
			}
			set += col + ` = ?`
			args = append(args, v)
		}
	}
	if set == `` {
		return nil
	}
	args = append(args, now(), id)
	_, err := r.db.Exec(r.q(`UPDATE products SET `+set+`, updated_at = ? WHERE id = ?`), args...)
	return err
}

// ListImported pages through products that came from the supplier,
// oldest first, so stock scans cover the whole catalog deterministically.
func (r *ProductRepo) ListImported(limit, offset int) ([]domain.Product, error) {
	var out []domain.Product
	err := r.db.Select(&out, r.q(`
	  SELECT `+productCols+`
	  FROM products
	  WHERE cj_product_id != ''
	  ORDER BY created_at, id
	  LIMIT ? OFFSET ?
	`), limit, offset)
	return out, err
}

// DecrementStock reserves qty units; returns false when stock is short.
// The guard keeps concurrent checkouts from driving stock negative.
func (r *ProductRepo) DecrementStock(id string, qty int) (bool, error) {
	res, err := r.db.Exec(r.q(`
	  UPDATE products SET stock = stock - ?, updated_at = ? WHERE id = ? AND stock >= ?
	`), qty, now(), id, qty)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *ProductRepo) SetStock(id string, stock int) error {
	_, err := r.db.Exec(r.q(`UPDATE products SET stock = ?, updated_at = ? WHERE id = ?`), stock, now(), id)
	return err
}

// ---------- Variants ----------

func (r *ProductRepo) Variants(productID string) ([]domain.ProductVariant, error) {
	var out []domain.ProductVariant
	err := r.db.Select(&out, r.q(`
	  SELECT id, product_id, cj_variant_id, name, price, stock
	  FROM product_variants
	  WHERE product_id = ?
	  ORDER BY name
	`), productID)
	return out, err
}

func (r *ProductRepo) GetVariant(id string) (domain.ProductVariant, error) {
	var v domain.ProductVariant
	err := r.db.Get(&v, r.q(`
	  SELECT id, product_id, cj_variant_id, name, price, stock
	  FROM product_variants
	  WHERE id = ?
	`), id)
	return v, err
}

func (r *ProductRepo) UpsertVariant(v domain.ProductVariant) error {
	_, err := r.db.Exec(r.q(`
	  INSERT INTO product_variants(id, product_id, cj_variant_id, name, price, stock)
	  VALUES (?,?,?,?,?,?)
	  ON CONFLICT(id) DO UPDATE SET name = excluded.name, price = excluded.price, stock = excluded.stock
	`), v.ID, v.ProductID, v.CJVariantID, v.Name, v.Price, v.Stock)
	return err
}

func (r *ProductRepo) SetVariantStock(id string, stock int) error {
	_, err := r.db.Exec(r.q(`UPDATE product_variants SET stock = ? WHERE id = ?`), stock, id)
	return err
}
