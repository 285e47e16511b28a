package services

import (
	"context"
	"fmt"

	"github.com/MALKOO0044/shopixo-sub004/internal/cj"
	"github.com/MALKOO0044/shopixo-sub004/internal/domain"
	applog "github.com/MALKOO0044/shopixo-sub004/internal/log"
	"github.com/MALKOO0044/shopixo-sub004/internal/repos"
)

// ReasonDisabled is the fixed refusal when the kill switch is set.
const ReasonDisabled = "disabled"

// FulfillmentResult reports the outcome of one fulfillment attempt. A
// refusal (kill switch, unmapped item, wrong status) is not an error: the
// call fails closed with a reason and no supplier order is placed.
type FulfillmentResult struct {
	OK         bool   `json:"ok"`
	Reason     string `json:"reason,omitempty"`
	CJOrderNum string `json:"cjOrderNum,omitempty"`
}

// FulfillmentService places supplier orders for paid local orders.
type FulfillmentService struct {
	Orders   *repos.OrderRepo
	Products *repos.ProductRepo
	Settings *repos.SettingsRepo
	Audit    *repos.AuditRepo
	Supplier Supplier
}

func NewFulfillmentService(orders *repos.OrderRepo, products *repos.ProductRepo, settings *repos.SettingsRepo, audit *repos.AuditRepo, sup Supplier) *FulfillmentService {
	return &FulfillmentService{Orders: orders, Products: products, Settings: settings, Audit: audit, Supplier: sup}
}

// ShippingOverride optionally replaces the address stored on the order.
type ShippingOverride struct {
	CustomerName string `json:"customerName,omitempty"`
	Address      string `json:"address,omitempty"`
	CountryCode  string `json:"countryCode,omitempty"`
	Zip          string `json:"zip,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

// CreateCJOrder fulfills one local order with the supplier. The kill
// switch is consulted before any network call. Idempotent: the local order
// id is the supplier-side order number, and a previously stored supplier
// order number short-circuits before placing anything.
func (s *FulfillmentService) CreateCJOrder(ctx context.Context, orderID string, ship *ShippingOverride) (FulfillmentResult, error) {
	disabled, err := s.Settings.Bool(repos.SettingKillSwitch)
	if err != nil {
		return FulfillmentResult{}, err
	}
	if disabled {
		return FulfillmentResult{OK: false, Reason: ReasonDisabled}, nil
	}

	o, err := s.Orders.Get(orderID)
	if err != nil {
		return FulfillmentResult{}, err
	}
	if o.CJOrderNum != "" {
		return FulfillmentResult{OK: true, CJOrderNum: o.CJOrderNum, Reason: "already fulfilled"}, nil
	}
	if o.Status != domain.OrderPaid {
		return FulfillmentResult{OK: false, Reason: fmt.Sprintf("order status is %q, want %q", o.Status, domain.OrderPaid)}, nil
	}

	items, err := s.Orders.Items(orderID)
	if err != nil {
		return FulfillmentResult{}, err
	}
	if len(items) == 0 {
		return FulfillmentResult{OK: false, Reason: "order has no items"}, nil
	}

	// Every line must resolve to a supplier variant id, or nothing is
	// placed at all.
	lines := make([]cj.OrderLine, 0, len(items))
	for _, it := range items {
		vid, reason := s.resolveVariant(it)
		if vid == "" {
			return FulfillmentResult{OK: false, Reason: reason}, nil
		}
		lines = append(lines, cj.OrderLine{Vid: vid, Quantity: it.Qty})
	}

	req := cj.OrderRequest{
		OrderNumber:  o.ID,
		CountryCode:  o.CountryCode,
		CustomerName: o.CustomerName,
		Address:      o.ShippingAddr,
		Products:     lines,
	}
	if ship != nil {
		if ship.CustomerName != "" {
			req.CustomerName = ship.CustomerName
		}
		if ship.Address != "" {
			req.Address = ship.Address
		}
		if ship.CountryCode != "" {
			req.CountryCode = ship.CountryCode
		}
		req.Zip = ship.Zip
		req.Phone = ship.Phone
	}

	cjOrderID, err := s.Supplier.CreateOrder(ctx, req)
	if err != nil {
		return FulfillmentResult{}, fmt.Errorf("cj order create: %w", err)
	}

	claimed, err := s.Orders.SetCJOrder(o.ID, cjOrderID, "CREATED")
	if err != nil {
		return FulfillmentResult{}, err
	}
	if !claimed {
		// A concurrent attempt stored its number first; report that one.
		cur, err := s.Orders.Get(o.ID)
		if err != nil {
			return FulfillmentResult{}, err
		}
		return FulfillmentResult{OK: true, CJOrderNum: cur.CJOrderNum, Reason: "already fulfilled"}, nil
	}

	if s.Audit != nil {
		_ = s.Audit.Record("fulfillment", "cj.order.create", map[string]any{
			"order_id": o.ID, "cj_order": cjOrderID, "lines": len(lines),
		})
	}
	applog.Sync("cj.order.create", nil, map[string]any{"order_id": o.ID, "cj_order": cjOrderID})

	return FulfillmentResult{OK: true, CJOrderNum: cjOrderID}, nil
}

// resolveVariant maps a line item to its supplier variant id. An explicit
// variant wins; otherwise a product with exactly one mapped variant
// resolves to it.
func (s *FulfillmentService) resolveVariant(it domain.OrderItem) (vid, reason string) {
	if it.VariantID != "" {
		v, err := s.Products.GetVariant(it.VariantID)
		if err != nil || v.CJVariantID == "" {
			return "", fmt.Sprintf("item %s: variant not supplier-mapped", it.ProductID)
		}
		return v.CJVariantID, ""
	}

	p, err := s.Products.Get(it.ProductID)
	if err != nil {
		return "", fmt.Sprintf("item %s: product not found", it.ProductID)
	}
	if p.CJProductID == "" {
		return "", fmt.Sprintf("item %s: product not supplier-mapped", it.ProductID)
	}
	variants, err := s.Products.Variants(p.ID)
	if err != nil {
		return "", fmt.Sprintf("item %s: %v", it.ProductID, err)
	}
	mapped := ""
	for _, v := range variants {
		if v.CJVariantID == "" {
			continue
		}
		if mapped != "" {
			return "", fmt.Sprintf("item %s: ambiguous variant, none selected", it.ProductID)
		}
		mapped = v.CJVariantID
	}
	if mapped == "" {
		return "", fmt.Sprintf("item %s: no supplier variant", it.ProductID)
	}
	return mapped, ""
}

// RetrySummary reports a batch fulfillment pass.
type RetrySummary struct {
	Total      int               `json:"total"`
	Successful int               `json:"successful"`
	Skipped    int               `json:"skipped"`
	Failed     int               `json:"failed"`
	Reasons    map[string]string `json:"reasons,omitempty"`
}

// RetryPending walks paid orders with no supplier order yet and attempts
// each one; a failure on one order does not abort the rest.
func (s *FulfillmentService) RetryPending(ctx context.Context, limit int) (RetrySummary, error) {
	orders, err := s.Orders.ListFulfillable(limit)
	if err != nil {
		return RetrySummary{}, err
	}
	sum := RetrySummary{Total: len(orders), Reasons: map[string]string{}}
	for _, o := range orders {
		res, err := s.CreateCJOrder(ctx, o.ID, nil)
		switch {
		case err != nil:
			sum.Failed++
			sum.Reasons[o.ID] = err.Error()
			applog.Sync("cj.retry.fail", err, map[string]any{"order_id": o.ID})
		case !res.OK:
			if res.Reason == ReasonDisabled {
				// Kill switch set mid-batch: nothing further will succeed.
				sum.Skipped += len(orders) - sum.Successful - sum.Failed
				sum.Reasons["batch"] = ReasonDisabled
				return sum, nil
			}
			sum.Skipped++
			sum.Reasons[o.ID] = res.Reason
		default:
			sum.Successful++
		}
	}
	return sum, nil
}
