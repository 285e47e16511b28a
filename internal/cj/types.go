package cj

import "encoding/json"

// envelope is the common CJ API 2.0 response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Result  bool            `json:"result"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e envelope) ok() bool { return e.Result && e.Code == 200 }

type authData struct {
	AccessToken            string `json:"accessToken"`
	AccessTokenExpiryDate  string `json:"accessTokenExpiryDate"`
	RefreshToken           string `json:"refreshToken"`
	RefreshTokenExpiryDate string `json:"refreshTokenExpiryDate"`
}

// RawItem covers the field-name variations across CJ's list, query and
// myProduct endpoints. Only the aliases actually observed are mapped; the
// mapper collapses them into one shape.
type RawItem struct {
	Pid        string       `json:"pid"`
	ProductID  string       `json:"productId"`
	ID         string       `json:"id"`
	NameEn     string       `json:"productNameEn"`
	Name       string       `json:"productName"`
	NameAlt    string       `json:"nameEn"`
	SKU        string       `json:"productSku"`
	SellPrice  any          `json:"sellPrice"` // string, number, or "1.20 -- 3.40" range
	Image      string       `json:"productImage"`
	BigImage   string       `json:"bigImage"`
	ImageSet   any          `json:"productImageSet"` // []string or JSON-encoded array string
	Video      string       `json:"productVideo"`
	Category   string       `json:"categoryName"`
	CategoryID string       `json:"categoryId"`
	Variants   []RawVariant `json:"variants"`
}

type RawVariant struct {
	Vid       string `json:"vid"`
	VariantID string `json:"variantId"`
	Name      string `json:"variantNameEn"`
	NameAlt   string `json:"variantName"`
	SKU       string `json:"variantSku"`
	SellPrice any    `json:"variantSellPrice"`
	Stock     int    `json:"variantStandard,omitempty"`
	Inventory int    `json:"inventory"`
}

type productListData struct {
	PageNum  int       `json:"pageNum"`
	PageSize int       `json:"pageSize"`
	Total    int       `json:"total"`
	List     []RawItem `json:"list"`
}

// SearchPage is one page of supplier search results.
type SearchPage struct {
	Items   []RawItem
	Total   int
	HasMore bool
}

// OrderRequest is the payload for placing one supplier order covering all
// line items of a local order.
type OrderRequest struct {
	OrderNumber  string      `json:"orderNumber"` // local order id; CJ rejects reuse
	CountryCode  string      `json:"shippingCountryCode"`
	CustomerName string      `json:"shippingCustomerName"`
	Address      string      `json:"shippingAddress"`
	Zip          string      `json:"shippingZip,omitempty"`
	Phone        string      `json:"shippingPhone,omitempty"`
	LogisticName string      `json:"logisticName,omitempty"`
	Products     []OrderLine `json:"products"`
}

type OrderLine struct {
	Vid      string `json:"vid"`
	Quantity int    `json:"quantity"`
}

type orderCreateData struct {
	OrderID string `json:"orderId"`
}

// OrderStatus is the supplier-side view of a previously placed order.
type OrderStatus struct {
	OrderID      string `json:"orderId"`
	OrderNum     string `json:"orderNum"`
	Status       string `json:"orderStatus"`
	TrackNumber  string `json:"trackNumber"`
	LogisticName string `json:"logisticName"`
	ShippedAt    string `json:"deliveryTime"`
	DeliveredAt  string `json:"completeTime"`
}
