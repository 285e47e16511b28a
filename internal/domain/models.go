package domain

type Category struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	CreatedAt string `db:"created_at" json:"createdAt"`
	UpdatedAt string `db:"updated_at" json:"updatedAt,omitempty"`
}

type Product struct {
	ID          string  `db:"id" json:"id"`
	CategoryID  string  `db:"category_id" json:"categoryId"`
	Title       string  `db:"title" json:"title"`
	Slug        string  `db:"slug" json:"slug"`
	Description string  `db:"description" json:"description,omitempty"`
	Price       float64 `db:"price" json:"price"`
	Stock       int     `db:"stock" json:"stock"`
	ImagesJSON  string  `db:"images_json" json:"-"`
	VideoURL    string  `db:"video_url" json:"videoUrl,omitempty"`
	Active      bool    `db:"active" json:"active"`
	CJProductID string  `db:"cj_product_id" json:"cjProductId,omitempty"`
	CreatedAt   string  `db:"created_at" json:"createdAt"`
	UpdatedAt   string  `db:"updated_at" json:"updatedAt,omitempty"`
}

type ProductVariant struct {
	ID          string  `db:"id" json:"id"`
	ProductID   string  `db:"product_id" json:"productId"`
	CJVariantID string  `db:"cj_variant_id" json:"cjVariantId,omitempty"`
	Name        string  `db:"name" json:"name"`
	Price       float64 `db:"price" json:"price"`
	Stock       int     `db:"stock" json:"stock"`
}

type Availability struct {
	Status string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Qty    int    `json:"qty,omitempty"`
}
