package services

import (
	"github.com/MALKOO0044/shopixo-sub004/internal/domain"
	"github.com/MALKOO0044/shopixo-sub004/internal/repos"
)

const maxPageSize = 60

type CatalogService struct {
	Products   *repos.ProductRepo
	Categories *repos.CategoryRepo
}

func NewCatalogService(products *repos.ProductRepo, categories *repos.CategoryRepo) *CatalogService {
	return &CatalogService{Products: products, Categories: categories}
}

func (s *CatalogService) ListCategories() ([]domain.Category, error) {
	return s.Categories.List()
}

func (s *CatalogService) ListProducts(categoryID, query string, page, pageSize int) ([]domain.Product, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = 24
	}
	return s.Products.List(categoryID, query, pageSize, (page-1)*pageSize)
}

// ProductDetail is a product plus its purchasable variants.
type ProductDetail struct {
	domain.Product
	Variants []domain.ProductVariant `json:"variants"`
}

func (s *CatalogService) BySlug(slug string) (ProductDetail, error) {
	p, err := s.Products.GetBySlug(slug)
	if err != nil {
		return ProductDetail{}, err
	}
	vs, err := s.Products.Variants(p.ID)
	if err != nil {
		return ProductDetail{}, err
	}
	return ProductDetail{Product: p, Variants: vs}, nil
}
