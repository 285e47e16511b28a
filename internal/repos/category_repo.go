package repos

import (
	"github.com/MALKOO0044/shopixo-sub004/internal/domain"

	"github.com/jmoiron/sqlx"
)

type CategoryRepo struct{ db *sqlx.DB }

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo { return &CategoryRepo{db: db} }

func (r *CategoryRepo) q(s string) string { return r.db.Rebind(s) }

func (r *CategoryRepo) List() ([]domain.Category, error) {
	var out []domain.Category
	err := r.db.Select(&out, `
	  SELECT id, name, created_at, COALESCE(updated_at,'') AS updated_at
	  FROM categories
	  ORDER BY name
	`)
	return out, err
}

func (r *CategoryRepo) Ensure(id, name string) error {
	_, err := r.db.Exec(r.q(`
	  INSERT INTO categories(id, name, created_at)
	  VALUES(?, ?, ?)
	  ON CONFLICT(id) DO NOTHING
	`), id, name, now())
	return err
}
