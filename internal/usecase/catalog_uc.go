package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/geocheapest/marketplace/internal/domain"
)

// CatalogEntry is one card in the browse view: a canonical product paired
// with its current best offer.
type CatalogEntry struct {
	ProductID      uuid.UUID
	Name           string
	NormalizedName string
	UPC            string
	MarketplaceID  string
	Category       string
	Segment        string
	ImageURL       string
	ListingID      string
	Source         domain.ListingSource
	Price          decimal.Decimal
	InStock        bool
}

// DeduplicateEntries collapses catalog entries that describe the same item
// under different identifiers. Three lookup maps (UPC, marketplace id,
// normalized name) are consulted in that order; when an entry matches an
// existing group, the displayed entry is replaced only if the newcomer is
// in stock and the incumbent is not, or both match on stock and the
// newcomer is cheaper. The newcomer's identifiers are unioned into the
// group's maps unconditionally, so transitive chains across identifier
// classes collapse into a single entry no matter the input order.
func DeduplicateEntries(entries []CatalogEntry) []CatalogEntry {
	result := make([]CatalogEntry, 0, len(entries))
	byUPC := make(map[string]int)
	byMarketplaceID := make(map[string]int)
	byName := make(map[string]int)

	find := func(e CatalogEntry) (int, bool) {
		if e.UPC != "" {
			if idx, ok := byUPC[e.UPC]; ok {
				return idx, true
			}
		}
		if e.MarketplaceID != "" {
			if idx, ok := byMarketplaceID[e.MarketplaceID]; ok {
				return idx, true
			}
		}
		if e.NormalizedName != "" {
			if idx, ok := byName[e.NormalizedName]; ok {
				return idx, true
			}
		}
		return 0, false
	}
	register := func(e CatalogEntry, idx int) {
		if e.UPC != "" {
			byUPC[e.UPC] = idx
		}
		if e.MarketplaceID != "" {
			byMarketplaceID[e.MarketplaceID] = idx
		}
		if e.NormalizedName != "" {
			byName[e.NormalizedName] = idx
		}
	}

	for _, e := range entries {
		idx, ok := find(e)
		if !ok {
			result = append(result, e)
			register(e, len(result)-1)
			continue
		}
		if betterOffer(e, result[idx]) {
			result[idx] = e
		}
		register(e, idx)
	}
	return result
}

// betterOffer reports whether the challenger should replace the incumbent:
// stock availability first, then price. Ties keep the incumbent.
func betterOffer(challenger, incumbent CatalogEntry) bool {
	if challenger.InStock != incumbent.InStock {
		return challenger.InStock
	}
	return challenger.Price.LessThan(incumbent.Price)
}

// CatalogUC builds the deduplicated browse view.
type CatalogUC struct {
	Products domain.ProductRepo
	Resolver *ResolverUC
}

const browseConcurrency = 8

// Browse lists a page of products, resolves each product's best offer
// concurrently and runs the dedup pass over the assembled entries. Products
// with no eligible listing are omitted rather than failing the page.
func (uc *CatalogUC) Browse(ctx context.Context, filter domain.ProductFilter) ([]CatalogEntry, error) {
	products, err := uc.Products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	entries := make([]*CatalogEntry, len(products))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(browseConcurrency)
	for i, p := range products {
		g.Go(func() error {
			best, err := uc.Resolver.BestListing(gctx, p.ID)
			if err != nil {
				if errors.Is(err, domain.ErrNoEligibleListing) {
					return nil
				}
				return err
			}
			entries[i] = &CatalogEntry{
				ProductID:      p.ID,
				Name:           p.Name,
				NormalizedName: p.NormalizedName,
				UPC:            p.UPC,
				MarketplaceID:  p.MarketplaceID,
				Category:       p.Category,
				Segment:        p.Segment,
				ImageURL:       p.ImageURL,
				ListingID:      best.ID,
				Source:         best.Source,
				Price:          best.Price,
				InStock:        best.InStock || best.IsPreorder,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve best listings: %w", err)
	}

	flat := make([]CatalogEntry, 0, len(entries))
	for _, e := range entries {
		if e != nil {
			flat = append(flat, *e)
		}
	}
	return DeduplicateEntries(flat), nil
}
