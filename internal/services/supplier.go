package services

import (
	"context"

	"github.com/MALKOO0044/shopixo-sub004/internal/cj"
)

// Supplier is the slice of the CJ client the services consume; tests swap
// in fakes without touching the network.
type Supplier interface {
	SearchProducts(ctx context.Context, keyword string, page, pageSize int) (*cj.SearchPage, error)
	QueryProduct(ctx context.Context, pid string) (*cj.RawItem, error)
	CreateOrder(ctx context.Context, req cj.OrderRequest) (string, error)
	QueryOrder(ctx context.Context, cjOrderID string) (*cj.OrderStatus, error)
}
