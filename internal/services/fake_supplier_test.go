package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MALKOO0044/shopixo-sub004/internal/cj"
	"github.com/MALKOO0044/shopixo-sub004/internal/domain"
	"github.com/MALKOO0044/shopixo-sub004/internal/repos"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// fakeSupplier satisfies the Supplier interface with canned responses and
// call counters, so service tests never touch the network.
type fakeSupplier struct {
	searchFn func(keyword string, page, pageSize int) (*cj.SearchPage, error)
	queryFn  func(pid string) (*cj.RawItem, error)
	orderFn  func(req cj.OrderRequest) (string, error)
	statusFn func(cjOrderID string) (*cj.OrderStatus, error)

	searchCalls int
	queryCalls  int
	orderCalls  int
	statusCalls int
}

func (f *fakeSupplier) SearchProducts(_ context.Context, keyword string, page, pageSize int) (*cj.SearchPage, error) {
	f.searchCalls++
	if f.searchFn == nil {
		return &cj.SearchPage{}, nil
	}
	return f.searchFn(keyword, page, pageSize)
}

func (f *fakeSupplier) QueryProduct(_ context.Context, pid string) (*cj.RawItem, error) {
	f.queryCalls++
	if f.queryFn == nil {
		return nil, errors.New("no query stub")
	}
	return f.queryFn(pid)
}

func (f *fakeSupplier) CreateOrder(_ context.Context, req cj.OrderRequest) (string, error) {
	f.orderCalls++
	if f.orderFn == nil {
		return "CJ-1", nil
	}
	return f.orderFn(req)
}

func (f *fakeSupplier) QueryOrder(_ context.Context, cjOrderID string) (*cj.OrderStatus, error) {
	f.statusCalls++
	if f.statusFn == nil {
		return &cj.OrderStatus{}, nil
	}
	return f.statusFn(cjOrderID)
}

func localProduct(id, slug string, stock int) domain.Product {
	return domain.Product{
		ID:         id,
		CategoryID: "general",
		Title:      slug,
		Slug:       slug,
		Price:      10,
		Stock:      stock,
		ImagesJSON: "[]",
		Active:     true,
	}
}

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
