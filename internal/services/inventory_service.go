package services

import (
	"github.com/MALKOO0044/shopixo-sub004/internal/domain"
	"github.com/MALKOO0044/shopixo-sub004/internal/repos"
)

const lowStockThreshold = 5

type InventoryService struct {
	Products *repos.ProductRepo
}

func NewInventoryService(products *repos.ProductRepo) *InventoryService {
	return &InventoryService{Products: products}
}

// Availability maps raw stock onto the badge the storefront shows.
func (s *InventoryService) Availability(productID string) (domain.Availability, error) {
	p, err := s.Products.Get(productID)
	if err != nil {
		return domain.Availability{}, err
	}
	return availabilityFor(p.Stock), nil
}

func availabilityFor(stock int) domain.Availability {
	switch {
	case stock >= lowStockThreshold:
		return domain.Availability{Status: "IN_STOCK", Qty: stock}
	case stock > 0:
		return domain.Availability{Status: "LOW_STOCK", Qty: stock}
	default:
		return domain.Availability{Status: "OUT_OF_STOCK", Qty: 0}
	}
}

func (s *InventoryService) SetStock(productID string, stock int) error {
	if stock < 0 {
		stock = 0
	}
	if _, err := s.Products.Get(productID); err != nil {
		return err
	}
	return s.Products.SetStock(productID, stock)
}
