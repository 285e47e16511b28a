package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/MALKOO0044/shopixo-sub004/internal/cj"
	"github.com/MALKOO0044/shopixo-sub004/internal/domain"
	applog "github.com/MALKOO0044/shopixo-sub004/internal/log"
	"github.com/MALKOO0044/shopixo-sub004/internal/repos"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// UpsertOptions select which fields may overwrite an existing row, so a
// re-sync doesn't clobber manual admin edits.
type UpsertOptions struct {
	UpdateImages bool `json:"updateImages"`
	UpdateVideo  bool `json:"updateVideo"`
	UpdatePrice  bool `json:"updatePrice"`
}

type UpsertResult struct {
	ProductID string `json:"productId"`
	Updated   bool   `json:"updated"`
}

// SyncService maps supplier items into the local catalog.
type SyncService struct {
	Products   *repos.ProductRepo
	Categories *repos.CategoryRepo
	Audit      *repos.AuditRepo
	Supplier   Supplier
}

func NewSyncService(products *repos.ProductRepo, cats *repos.CategoryRepo, audit *repos.AuditRepo, sup Supplier) *SyncService {
	return &SyncService{Products: products, Categories: cats, Audit: audit, Supplier: sup}
}

// UpsertFromCJ inserts or updates the catalog row for a mapped product.
// rawPayload, when non-nil, is persisted to the audit side table; failure
// there is logged and swallowed.
func (s *SyncService) UpsertFromCJ(mapped *cj.MappedProduct, rawPayload []byte, opts UpsertOptions) (UpsertResult, error) {
	if mapped == nil {
		return UpsertResult{}, fmt.Errorf("nil mapped product")
	}

	if s.Audit != nil && rawPayload != nil {
		if err := s.Audit.SaveRawPayload(mapped.CJProductID, rawPayload); err != nil {
			applog.Sync("cj.raw.save.fail", err, map[string]any{"pid": mapped.CJProductID})
		}
	}

	existing, err := s.Products.GetByCJProductID(mapped.CJProductID)
	switch err {
	case nil:
		return s.update(existing, mapped, opts)
	case sql.ErrNoRows:
		return s.insert(mapped)
	default:
		return UpsertResult{}, err
	}
}

func (s *SyncService) update(existing domain.Product, mapped *cj.MappedProduct, opts UpsertOptions) (UpsertResult, error) {
	fields := map[string]any{}
	if opts.UpdatePrice {
		fields["price"] = mapped.Price
	}
	if opts.UpdateImages {
		fields["images_json"] = encodeImages(mapped.Images)
	}
	if opts.UpdateVideo && mapped.VideoURL != "" {
		fields["video_url"] = mapped.VideoURL
	}
	if err := s.Products.UpdateFields(existing.ID, fields); err != nil {
		return UpsertResult{}, err
	}
	if err := s.upsertVariants(existing.ID, mapped); err != nil {
		return UpsertResult{}, err
	}
	return UpsertResult{ProductID: existing.ID, Updated: true}, nil
}

func (s *SyncService) insert(mapped *cj.MappedProduct) (UpsertResult, error) {
	catID := "general"
	if mapped.Category != "" {
		catID = slug.Make(mapped.Category)
		if err := s.Categories.Ensure(catID, mapped.Category); err != nil {
			return UpsertResult{}, err
		}
	}

	sl, err := s.uniqueSlug(mapped.Title)
	if err != nil {
		return UpsertResult{}, err
	}

	stock := 0
	for _, v := range mapped.Variants {
		stock += v.Stock
	}

	p := domain.Product{
		ID:          uuid.NewString(),
		CategoryID:  catID,
		Title:       mapped.Title,
		Slug:        sl,
		Price:       mapped.Price,
		Stock:       stock,
		ImagesJSON:  encodeImages(mapped.Images),
		VideoURL:    mapped.VideoURL,
		Active:      true,
		CJProductID: mapped.CJProductID,
	}
	if err := s.Products.Insert(p); err != nil {
		return UpsertResult{}, err
	}
	if err := s.upsertVariants(p.ID, mapped); err != nil {
		return UpsertResult{}, err
	}
	return UpsertResult{ProductID: p.ID, Updated: false}, nil
}

func (s *SyncService) upsertVariants(productID string, mapped *cj.MappedProduct) error {
	for _, v := range mapped.Variants {
		err := s.Products.UpsertVariant(domain.ProductVariant{
			ID:          "v-" + v.CJVariantID, // deterministic, so re-syncs hit the same row
			ProductID:   productID,
			CJVariantID: v.CJVariantID,
			Name:        v.Name,
			Price:       v.Price,
			Stock:       v.Stock,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// uniqueSlug derives a URL slug from the title, suffixing -2, -3, ... on
// collision.
func (s *SyncService) uniqueSlug(title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "product"
	}
	candidate := base
	for i := 2; ; i++ {
		taken, err := s.Products.SlugTaken(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// ImportProduct fetches one supplier item by pid and upserts it. Backs the
// admin import action for discovery-job candidates.
func (s *SyncService) ImportProduct(ctx context.Context, pid string, opts UpsertOptions) (UpsertResult, error) {
	item, err := s.Supplier.QueryProduct(ctx, pid)
	if err != nil {
		return UpsertResult{}, err
	}
	mapped := cj.MapItem(item)
	if mapped == nil {
		return UpsertResult{}, fmt.Errorf("cj item %s has no usable mapping", pid)
	}
	raw, _ := json.Marshal(item)
	return s.UpsertFromCJ(mapped, raw, opts)
}

// RefreshStock re-queries one imported product and writes fresh stock
// numbers onto the product and its variants.
func (s *SyncService) RefreshStock(ctx context.Context, productID string) error {
	p, err := s.Products.Get(productID)
	if err != nil {
		return err
	}
	if p.CJProductID == "" {
		return fmt.Errorf("product %s is not supplier-mapped", productID)
	}
	item, err := s.Supplier.QueryProduct(ctx, p.CJProductID)
	if err != nil {
		return err
	}
	mapped := cj.MapItem(item)
	if mapped == nil {
		return fmt.Errorf("cj item %s has no usable mapping", p.CJProductID)
	}

	total := 0
	for _, v := range mapped.Variants {
		total += v.Stock
		if err := s.Products.SetVariantStock("v-"+v.CJVariantID, v.Stock); err != nil {
			return err
		}
	}
	return s.Products.SetStock(productID, total)
}

func encodeImages(images []string) string {
	if len(images) == 0 {
		return "[]"
	}
	b, err := json.Marshal(images)
	if err != nil {
		return "[]"
	}
	return string(b)
}
