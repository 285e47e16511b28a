package services

import (
	"errors"
	"fmt"

	"github.com/MALKOO0044/shopixo-sub004/internal/domain"
	applog "github.com/MALKOO0044/shopixo-sub004/internal/log"
	"github.com/MALKOO0044/shopixo-sub004/internal/repos"

	"github.com/google/uuid"
)

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrOutOfStock    = errors.New("insufficient stock")
	ErrBadTransition = errors.New("invalid status transition")
)

type OrderService struct {
	Orders   *repos.OrderRepo
	Carts    *repos.CartRepo
	Products *repos.ProductRepo
	Audit    *repos.AuditRepo
}

func NewOrderService(orders *repos.OrderRepo, carts *repos.CartRepo, products *repos.ProductRepo, audit *repos.AuditRepo) *OrderService {
	return &OrderService{Orders: orders, Carts: carts, Products: products, Audit: audit}
}

type CheckoutInput struct {
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	ShippingAddr  string `json:"shippingAddr"`
	CountryCode   string `json:"countryCode"`
}

// Place turns a session's cart into a pending order. The total is computed
// server-side from the snapshotted line prices; stock is reserved per line
// with a guarded decrement and rolled back if a later line is short.
func (s *OrderService) Place(sessionID string, in CheckoutInput) (domain.Order, error) {
	cartID, err := s.Carts.EnsureCart(sessionID)
	if err != nil {
		return domain.Order{}, err
	}
	lines, err := s.Carts.Items(cartID)
	if err != nil {
		return domain.Order{}, err
	}
	if len(lines) == 0 {
		return domain.Order{}, ErrEmptyCart
	}

	var reserved []repos.CartItemRow
	rollback := func() {
		for _, l := range reserved {
			// negative qty puts the reserved units back
			if _, err := s.Products.DecrementStock(l.ProductID, -l.Qty); err != nil {
				applog.Sync("order.stock.rollback.fail", err, map[string]any{"product_id": l.ProductID})
			}
		}
	}

	total := 0.0
	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		ok, err := s.Products.DecrementStock(l.ProductID, l.Qty)
		if err != nil {
			rollback()
			return domain.Order{}, err
		}
		if !ok {
			rollback()
			return domain.Order{}, fmt.Errorf("%w: %s", ErrOutOfStock, l.ProductID)
		}
		reserved = append(reserved, l)
		total += l.Subtotal
		items = append(items, domain.OrderItem{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Qty:       l.Qty,
			Price:     l.PriceAtAdd,
		})
	}

	o := domain.Order{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		ShippingAddr:  in.ShippingAddr,
		CountryCode:   in.CountryCode,
		Total:         total,
		Status:        domain.OrderPending,
	}
	if err := s.Orders.Create(o, items); err != nil {
		rollback()
		return domain.Order{}, err
	}
	if err := s.Carts.Clear(cartID); err != nil {
		applog.Sync("order.cart.clear.fail", err, map[string]any{"order_id": o.ID})
	}
	return o, nil
}

// MarkPaid is driven by the payment webhook; only a pending order can
// become paid, so replayed webhooks are harmless.
func (s *OrderService) MarkPaid(orderID string) (domain.Order, error) {
	o, err := s.Orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if o.Status == domain.OrderPending {
		if err := s.Orders.UpdateStatus(orderID, domain.OrderPaid); err != nil {
			return domain.Order{}, err
		}
		o.Status = domain.OrderPaid
	}
	return o, nil
}

// SetStatus is the admin override; it validates the value but not the
// transition graph, since support sometimes has to move orders backwards.
func (s *OrderService) SetStatus(actor, orderID, status string) error {
	if !domain.ValidOrderStatus(status) {
		return ErrBadTransition
	}
	if _, err := s.Orders.Get(orderID); err != nil {
		return err
	}
	if err := s.Orders.UpdateStatus(orderID, status); err != nil {
		return err
	}
	_ = s.Audit.Record(actor, "order.status", map[string]any{"order_id": orderID, "status": status})
	return nil
}
