package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MALKOO0044/shopixo-sub004/internal/cj"
	"github.com/MALKOO0044/shopixo-sub004/internal/domain"
	"github.com/MALKOO0044/shopixo-sub004/internal/repos"
	"github.com/MALKOO0044/shopixo-sub004/internal/services"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fulfillEnv struct {
	orders   *repos.OrderRepo
	products *repos.ProductRepo
	settings *repos.SettingsRepo
	sup      *fakeSupplier
	svc      *services.FulfillmentService
}

func newFulfillEnv(t *testing.T, db *sqlx.DB) *fulfillEnv {
	t.Helper()
	e := &fulfillEnv{
		orders:   repos.NewOrderRepo(db),
		products: repos.NewProductRepo(db),
		settings: repos.NewSettingsRepo(db),
		sup:      &fakeSupplier{},
	}
	e.svc = services.NewFulfillmentService(e.orders, e.products, e.settings, repos.NewAuditRepo(db), e.sup)
	return e
}

// seedPaidOrder stores a supplier-mapped product with one variant and a
// paid order holding one unit of it.
func (e *fulfillEnv) seedPaidOrder(t *testing.T, orderID string) {
	t.Helper()
	p := localProduct("prod-1", "mapped-widget", 10)
	p.CJProductID = "cj-100"
	require.NoError(t, e.products.Insert(p))
	require.NoError(t, e.products.UpsertVariant(domain.ProductVariant{
		ID: "v-cv-1", ProductID: "prod-1", CJVariantID: "cv-1", Name: "Default", Price: 10, Stock: 10,
	}))
	require.NoError(t, e.orders.Create(domain.Order{
		ID: orderID, SessionID: "s1", CustomerName: "Dana", CustomerEmail: "d@x.test",
		ShippingAddr: "1 Main St", CountryCode: "US", Total: 10, Status: domain.OrderPaid,
	}, []domain.OrderItem{{ProductID: "prod-1", Qty: 1}}))
}

func TestCreateCJOrderPlacesSupplierOrder(t *testing.T) {
	e := newFulfillEnv(t, testDB(t))
	e.seedPaidOrder(t, "ord-1")

	var got cj.OrderRequest
	e.sup.orderFn = func(req cj.OrderRequest) (string, error) {
		got = req
		return "CJ-500", nil
	}

	res, err := e.svc.CreateCJOrder(context.Background(), "ord-1", nil)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "CJ-500", res.CJOrderNum)

	// The local order id travels upstream as the idempotency key.
	assert.Equal(t, "ord-1", got.OrderNumber)
	require.Len(t, got.Products, 1)
	assert.Equal(t, "cv-1", got.Products[0].Vid)

	o, err := e.orders.Get("ord-1")
	require.NoError(t, err)
	assert.Equal(t, "CJ-500", o.CJOrderNum)
	assert.Equal(t, domain.OrderProcessing, o.Status)
}

func TestCreateCJOrderKillSwitchSkipsNetwork(t *testing.T) {
	e := newFulfillEnv(t, testDB(t))
	e.seedPaidOrder(t, "ord-1")
	require.NoError(t, e.settings.Put(repos.SettingKillSwitch, true))

	res, err := e.svc.CreateCJOrder(context.Background(), "ord-1", nil)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, services.ReasonDisabled, res.Reason)
	assert.Equal(t, 0, e.sup.orderCalls, "kill switch must stop before any supplier call")
}

func TestCreateCJOrderIdempotent(t *testing.T) {
	e := newFulfillEnv(t, testDB(t))
	e.seedPaidOrder(t, "ord-1")

	first, err := e.svc.CreateCJOrder(context.Background(), "ord-1", nil)
	require.NoError(t, err)
	require.True(t, first.OK)

	second, err := e.svc.CreateCJOrder(context.Background(), "ord-1", nil)
	require.NoError(t, err)
	assert.True(t, second.OK)
	assert.Equal(t, first.CJOrderNum, second.CJOrderNum)
	assert.Equal(t, 1, e.sup.orderCalls, "a fulfilled order must not be placed twice")
}

func TestCreateCJOrderFailsClosedOnUnmappedItem(t *testing.T) {
	e := newFulfillEnv(t, testDB(t))

	require.NoError(t, e.products.Insert(localProduct("prod-2", "manual-item", 5)))
	require.NoError(t, e.orders.Create(domain.Order{
		ID: "ord-2", SessionID: "s1", CustomerName: "Dana", CustomerEmail: "d@x.test",
		ShippingAddr: "1 Main St", CountryCode: "US", Total: 10, Status: domain.OrderPaid,
	}, []domain.OrderItem{{ProductID: "prod-2", Qty: 1}}))

	res, err := e.svc.CreateCJOrder(context.Background(), "ord-2", nil)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Contains(t, res.Reason, "not supplier-mapped")
	assert.Equal(t, 0, e.sup.orderCalls)
}

func TestCreateCJOrderRequiresPaidStatus(t *testing.T) {
	e := newFulfillEnv(t, testDB(t))
	e.seedPaidOrder(t, "ord-1")
	require.NoError(t, e.orders.UpdateStatus("ord-1", domain.OrderPending))

	res, err := e.svc.CreateCJOrder(context.Background(), "ord-1", nil)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, 0, e.sup.orderCalls)
}

func TestCreateCJOrderShippingOverride(t *testing.T) {
	e := newFulfillEnv(t, testDB(t))
	e.seedPaidOrder(t, "ord-1")

	var got cj.OrderRequest
	e.sup.orderFn = func(req cj.OrderRequest) (string, error) {
		got = req
		return "CJ-501", nil
	}

	_, err := e.svc.CreateCJOrder(context.Background(), "ord-1", &services.ShippingOverride{
		Address: "9 Override Ave", Zip: "90210",
	})
	require.NoError(t, err)
	assert.Equal(t, "9 Override Ave", got.Address)
	assert.Equal(t, "90210", got.Zip)
	assert.Equal(t, "Dana", got.CustomerName, "fields not overridden come from the order")
}

func TestRetryPendingSummarizes(t *testing.T) {
	e := newFulfillEnv(t, testDB(t))
	e.seedPaidOrder(t, "ord-1")

	// Second paid order with an unmapped product: skipped, not failed.
	require.NoError(t, e.products.Insert(localProduct("prod-2", "manual-item", 5)))
	require.NoError(t, e.orders.Create(domain.Order{
		ID: "ord-2", SessionID: "s1", CustomerName: "Dana", CustomerEmail: "d@x.test",
		ShippingAddr: "1 Main St", CountryCode: "US", Total: 10, Status: domain.OrderPaid,
	}, []domain.OrderItem{{ProductID: "prod-2", Qty: 1}}))

	sum, err := e.svc.RetryPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Total)
	assert.Equal(t, 1, sum.Successful)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 0, sum.Failed)
}

func TestRetryPendingCountsFailures(t *testing.T) {
	e := newFulfillEnv(t, testDB(t))
	e.seedPaidOrder(t, "ord-1")
	e.sup.orderFn = func(cj.OrderRequest) (string, error) {
		return "", errors.New("upstream down")
	}

	sum, err := e.svc.RetryPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Contains(t, sum.Reasons["ord-1"], "upstream down")
}
