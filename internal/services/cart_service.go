package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/MALKOO0044/shopixo-sub004/internal/repos"
)

var ErrNotFound = errors.New("not found")

type CartService struct {
	Carts    *repos.CartRepo
	Products *repos.ProductRepo
}

func NewCartService(carts *repos.CartRepo, products *repos.ProductRepo) *CartService {
	return &CartService{Carts: carts, Products: products}
}

// CartView is the cart as the storefront renders it.
type CartView struct {
	Items []repos.CartItemRow `json:"items"`
	Total float64             `json:"total"`
}

func (s *CartService) View(sessionID string) (CartView, error) {
	cartID, err := s.Carts.EnsureCart(sessionID)
	if err != nil {
		return CartView{}, err
	}
	items, err := s.Carts.Items(cartID)
	if err != nil {
		return CartView{}, err
	}
	v := CartView{Items: items}
	for _, it := range items {
		v.Total += it.Subtotal
	}
	return v, nil
}

// Add snapshots the current price into the cart line. Variant prices win
// over the product price when a variant is chosen.
func (s *CartService) Add(sessionID, productID, variantID string, qty int) error {
	if qty < 1 || qty > 99 {
		return fmt.Errorf("qty out of range")
	}
	p, err := s.Products.Get(productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if !p.Active {
		return ErrNotFound
	}
	price := p.Price
	if variantID != "" {
		v, err := s.Products.GetVariant(variantID)
		if err != nil || v.ProductID != productID {
			return ErrNotFound
		}
		price = v.Price
	}
	cartID, err := s.Carts.EnsureCart(sessionID)
	if err != nil {
		return err
	}
	return s.Carts.UpsertItem(cartID, productID, variantID, qty, price)
}

func (s *CartService) Clear(sessionID string) error {
	cartID, err := s.Carts.EnsureCart(sessionID)
	if err != nil {
		return err
	}
	return s.Carts.Clear(cartID)
}
