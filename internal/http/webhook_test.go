package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MALKOO0044/shopixo-sub004/internal/cj"
	"github.com/MALKOO0044/shopixo-sub004/internal/config"
	"github.com/MALKOO0044/shopixo-sub004/internal/domain"
	"github.com/MALKOO0044/shopixo-sub004/internal/repos"
)

func seedOrder(t *testing.T, ta *testApp, id string, status string, cjNum string) {
	t.Helper()
	orders := repos.NewOrderRepo(ta.db)
	if err := orders.Create(domain.Order{
		ID: id, SessionID: "s1", CustomerName: "Dana", CustomerEmail: "d@x.test",
		ShippingAddr: "1 Main St", CountryCode: "US", Total: 10, Status: status,
	}, nil); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	if cjNum != "" {
		if _, err := orders.SetCJOrder(id, cjNum, "CREATED"); err != nil {
			t.Fatalf("set cj order: %v", err)
		}
		if err := orders.UpdateStatus(id, status); err != nil {
			t.Fatalf("restore status: %v", err)
		}
	}
}

func TestCJWebhookSignedShippedEvent(t *testing.T) {
	cfg := config.Config{Env: "production", CJWebhookSecret: "hooksecret"}
	ta := newTestApp(t, cfg)
	seedOrder(t, ta, "42", domain.OrderProcessing, "CJ-42")

	body, _ := json.Marshal(map[string]any{
		"event": "shipped",
		"data":  map[string]any{"orderId": 42, "trackingNo": "ABC123", "carrier": "DHL"},
	})
	req := httptest.NewRequest("POST", "/api/cj/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-cj-signature", cj.Sign("hooksecret", body))
	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if out["received"] != true || out["verified"] != true {
		t.Fatalf("unexpected response: %v", out)
	}

	o, err := repos.NewOrderRepo(ta.db).Get("42")
	if err != nil {
		t.Fatal(err)
	}
	if o.TrackingNumber != "ABC123" || o.Carrier != "DHL" {
		t.Fatalf("tracking not applied: %+v", o)
	}
	if o.Status != domain.OrderShipped {
		t.Fatalf("expected shipped, got %s", o.Status)
	}
}

func TestCJWebhookRejectsBadSignatureInProduction(t *testing.T) {
	cfg := config.Config{Env: "production", CJWebhookSecret: "hooksecret"}
	ta := newTestApp(t, cfg)

	body := []byte(`{"event":"shipped","data":{"orderId":"42"}}`)

	// Wrong signature.
	req := httptest.NewRequest("POST", "/api/cj/webhook", bytes.NewReader(body))
	req.Header.Set("x-cj-signature", cj.Sign("wrongsecret", body))
	resp, _ := ta.app.Test(req, -1)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad signature, got %d", resp.StatusCode)
	}

	// Missing signature.
	req = httptest.NewRequest("POST", "/api/cj/webhook", bytes.NewReader(body))
	resp, _ = ta.app.Test(req, -1)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unsigned, got %d", resp.StatusCode)
	}
}

func TestCJWebhookUnsignedAcceptedInDevelopment(t *testing.T) {
	ta := newTestApp(t, config.Config{Env: "development"})
	seedOrder(t, ta, "42", domain.OrderProcessing, "CJ-42")

	resp, out := ta.request(t, "POST", "/api/cj/webhook", map[string]any{
		"event": "delivered",
		"data":  map[string]any{"orderId": "42", "trackingNo": "ABC123"},
	}, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if out["verified"] != false {
		t.Fatalf("expected verified=false, got %v", out)
	}

	o, _ := repos.NewOrderRepo(ta.db).Get("42")
	if o.Status != domain.OrderDelivered {
		t.Fatalf("expected delivered, got %s", o.Status)
	}
}

func TestPaymentWebhookMarksPaidAndFulfills(t *testing.T) {
	cfg := config.Config{Env: "development"}
	ta := newTestApp(t, cfg)

	// A pending order over a supplier-mapped product.
	products := repos.NewProductRepo(ta.db)
	p := domain.Product{
		ID: "prod-1", CategoryID: "general", Title: "Widget", Slug: "widget",
		Price: 10, Stock: 10, ImagesJSON: "[]", Active: true, CJProductID: "cj-1",
	}
	if err := products.Insert(p); err != nil {
		t.Fatal(err)
	}
	if err := products.UpsertVariant(domain.ProductVariant{
		ID: "v-cv-1", ProductID: "prod-1", CJVariantID: "cv-1", Name: "Default", Price: 10, Stock: 10,
	}); err != nil {
		t.Fatal(err)
	}
	orders := repos.NewOrderRepo(ta.db)
	if err := orders.Create(domain.Order{
		ID: "ord-1", SessionID: "s1", CustomerName: "Dana", CustomerEmail: "d@x.test",
		ShippingAddr: "1 Main St", CountryCode: "US", Total: 10, Status: domain.OrderPending,
	}, []domain.OrderItem{{ProductID: "prod-1", Qty: 1}}); err != nil {
		t.Fatal(err)
	}

	resp, _ := ta.request(t, "POST", "/api/payment/webhook", map[string]any{
		"event": "payment.succeeded", "orderId": "ord-1",
	}, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	o, err := orders.Get("ord-1")
	if err != nil {
		t.Fatal(err)
	}
	if o.CJOrderNum == "" {
		t.Fatal("expected fulfillment to have placed a supplier order")
	}
	if o.Status != domain.OrderProcessing {
		t.Fatalf("expected processing, got %s", o.Status)
	}
	if ta.sup.orderCalls != 1 {
		t.Fatalf("expected 1 supplier order call, got %d", ta.sup.orderCalls)
	}
}
