package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MALKOO0044/shopixo-sub004/internal/domain"
	applog "github.com/MALKOO0044/shopixo-sub004/internal/log"
	"github.com/MALKOO0044/shopixo-sub004/internal/repos"
)

// TrackingService polls supplier order status and writes tracking fields
// back onto local orders. Writes are purely additive: a query miss never
// removes data already stored.
type TrackingService struct {
	Orders   *repos.OrderRepo
	Supplier Supplier
}

func NewTrackingService(orders *repos.OrderRepo, sup Supplier) *TrackingService {
	return &TrackingService{Orders: orders, Supplier: sup}
}

// SyncOrder refreshes one order from the supplier.
func (s *TrackingService) SyncOrder(ctx context.Context, orderID string) error {
	o, err := s.Orders.Get(orderID)
	if err != nil {
		return err
	}
	if o.CJOrderNum == "" {
		return fmt.Errorf("order %s has no supplier order", orderID)
	}

	st, err := s.Supplier.QueryOrder(ctx, o.CJOrderNum)
	if err != nil {
		return err
	}

	u := repos.TrackingUpdate{
		CJStatus:       st.Status,
		TrackingNumber: st.TrackNumber,
		Carrier:        st.LogisticName,
	}
	switch normalizeCJStatus(st.Status) {
	case domain.OrderShipped:
		u.Status = domain.OrderShipped
		u.ShippedAt = firstTimestamp(st.ShippedAt, o.ShippedAt)
	case domain.OrderDelivered:
		u.Status = domain.OrderDelivered
		u.DeliveredAt = firstTimestamp(st.DeliveredAt, o.DeliveredAt)
	}
	return s.Orders.ApplyTracking(orderID, u)
}

// BatchSummary reports a tracking sweep.
type BatchSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// SyncAllPending processes up to limit orders awaiting tracking,
// sequentially; one failure does not abort the rest.
func (s *TrackingService) SyncAllPending(ctx context.Context, limit int) (BatchSummary, error) {
	orders, err := s.Orders.ListPendingTracking(limit)
	if err != nil {
		return BatchSummary{}, err
	}
	sum := BatchSummary{Total: len(orders)}
	for _, o := range orders {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if err := s.SyncOrder(ctx, o.ID); err != nil {
			sum.Failed++
			applog.Sync("cj.tracking.fail", err, map[string]any{"order_id": o.ID})
			continue
		}
		sum.Successful++
	}
	return sum, nil
}

// normalizeCJStatus maps the supplier's status vocabulary onto local order
// statuses; unknown values map to "" (no local transition).
func normalizeCJStatus(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SHIPPED", "DISPATCHED", "IN_TRANSIT", "TRACKING":
		return domain.OrderShipped
	case "DELIVERED", "COMPLETED", "RECEIVED":
		return domain.OrderDelivered
	default:
		return ""
	}
}

// firstTimestamp keeps an already-stored value, otherwise prefers the
// supplier's and finally stamps now.
func firstTimestamp(supplier, existing string) string {
	if existing != "" {
		return ""
	}
	if supplier != "" {
		return supplier
	}
	return time.Now().UTC().Format(time.RFC3339)
}
