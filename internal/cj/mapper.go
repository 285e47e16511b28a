package cj

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// MappedProduct is the normalized internal representation of a supplier
// item, ready for the sync service.
type MappedProduct struct {
	CJProductID string
	Title       string
	Price       float64
	Images      []string
	VideoURL    string
	Category    string
	Variants    []MappedVariant
}

type MappedVariant struct {
	CJVariantID string
	Name        string
	Price       float64
	Stock       int
}

// MapItem normalizes one raw supplier item. The three CJ endpoints return
// the same item under different field names; missing required fields
// (product id, title, price) yield nil rather than an error, and callers
// must check for it.
func MapItem(item *RawItem) *MappedProduct {
	if item == nil {
		return nil
	}

	pid := firstNonEmpty(item.Pid, item.ProductID, item.ID)
	title := firstNonEmpty(item.NameEn, item.NameAlt, item.Name)
	price, ok := parsePrice(item.SellPrice)
	if pid == "" || title == "" || !ok {
		return nil
	}

	m := &MappedProduct{
		CJProductID: pid,
		Title:       strings.TrimSpace(title),
		Price:       price,
		VideoURL:    item.Video,
		Category:    item.Category,
		Images:      parseImages(item),
	}

	for _, v := range item.Variants {
		vid := firstNonEmpty(v.Vid, v.VariantID)
		if vid == "" {
			continue
		}
		vp, ok := parsePrice(v.SellPrice)
		if !ok {
			vp = price
		}
		stock := v.Inventory
		if stock == 0 {
			stock = v.Stock
		}
		m.Variants = append(m.Variants, MappedVariant{
			CJVariantID: vid,
			Name:        firstNonEmpty(v.Name, v.NameAlt, v.SKU),
			Price:       vp,
			Stock:       stock,
		})
	}

	return m
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// parsePrice handles the shapes CJ actually sends: a number, a numeric
// string, or a "1.20 -- 3.40" range (take the low end).
func parsePrice(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if t < 0 {
			return 0, false
		}
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if i := strings.Index(s, "--"); i >= 0 {
			s = strings.TrimSpace(s[:i])
		}
		if s == "" {
			return 0, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil || d.IsNegative() {
			return 0, false
		}
		return d.InexactFloat64(), true
	default:
		return 0, false
	}
}

// parseImages collects image URLs from whichever field the endpoint used.
// productImageSet may arrive as a JSON array or as a string containing a
// JSON-encoded array.
func parseImages(item *RawItem) []string {
	var out []string
	seen := map[string]bool{}
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u != "" && !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}

	add(item.Image)
	add(item.BigImage)

	switch set := item.ImageSet.(type) {
	case []any:
		for _, v := range set {
			if s, ok := v.(string); ok {
				add(s)
			}
		}
	case string:
		var list []string
		if err := json.Unmarshal([]byte(set), &list); err == nil {
			for _, s := range list {
				add(s)
			}
		} else {
			add(set)
		}
	}

	return out
}
