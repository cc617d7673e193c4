package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/geocheapest/marketplace/internal/domain"
)

// CanonicalUC resolves raw listing attributes to a canonical product id.
// Lookup order is fixed: UPC, then marketplace item id, then normalized
// name. Races between concurrent creates are settled by the partial unique
// indexes on products; the loser retries its identifiers and updates the
// surviving row.
type CanonicalUC struct {
	Products domain.ProductRepo
}

const canonicalCreateRetries = 2

func (uc *CanonicalUC) Resolve(ctx context.Context, raw domain.RawProduct) (uuid.UUID, error) {
	for attempt := 0; ; attempt++ {
		existing, err := uc.lookup(ctx, raw)
		if err != nil {
			return uuid.Nil, err
		}
		if existing != nil {
			if err := uc.refresh(ctx, existing, raw); err != nil {
				return uuid.Nil, err
			}
			return existing.ID, nil
		}

		p := &domain.Product{
			ID:             uuid.New(),
			Name:           raw.Name,
			NormalizedName: domain.NormalizeName(raw.Name),
			UPC:            raw.UPC,
			MarketplaceID:  raw.MarketplaceID,
			Category:       raw.Category,
			Segment:        raw.Segment,
			Description:    raw.Description,
			ImageURL:       raw.ImageURL,
		}
		err = uc.Products.Create(ctx, p)
		if err == nil {
			return p.ID, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < canonicalCreateRetries {
			log.Debug().Str("name", raw.Name).Msg("canonical create raced, retrying lookup")
			continue
		}
		return uuid.Nil, fmt.Errorf("create product: %w", err)
	}
}

// lookup walks the identifier priority chain. A UPC hit and a marketplace-id
// hit pointing at different rows is reported as an ambiguity and resolved in
// favor of the UPC.
func (uc *CanonicalUC) lookup(ctx context.Context, raw domain.RawProduct) (*domain.Product, error) {
	var byUPC *domain.Product
	if raw.UPC != "" {
		p, err := uc.Products.FindByUPC(ctx, raw.UPC)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("find by upc: %w", err)
		}
		byUPC = p
	}
	if raw.MarketplaceID != "" {
		p, err := uc.Products.FindByMarketplaceID(ctx, raw.MarketplaceID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("find by marketplace id: %w", err)
		}
		if p != nil {
			if byUPC != nil && byUPC.ID != p.ID {
				conflict := &domain.AmbiguousIdentifierError{
					UPC:           raw.UPC,
					MarketplaceID: raw.MarketplaceID,
					UPCProduct:    byUPC.ID,
					MarketProduct: p.ID,
				}
				log.Warn().Err(conflict).Msg("identifier conflict, keeping upc match")
				return byUPC, nil
			}
			if byUPC == nil {
				return p, nil
			}
		}
	}
	if byUPC != nil {
		return byUPC, nil
	}
	if raw.Name != "" {
		p, err := uc.Products.FindByNormalizedName(ctx, domain.NormalizeName(raw.Name))
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("find by normalized name: %w", err)
		}
		return p, nil
	}
	return nil, nil
}

// refresh backfills identifiers and display attributes that the stored row
// is missing and the raw record carries. Present values are never blanked.
func (uc *CanonicalUC) refresh(ctx context.Context, p *domain.Product, raw domain.RawProduct) error {
	changed := false
	if p.UPC == "" && raw.UPC != "" {
		if _, err := uc.Products.FindByUPC(ctx, raw.UPC); errors.Is(err, domain.ErrNotFound) {
			p.UPC = raw.UPC
			changed = true
		}
	}
	if p.MarketplaceID == "" && raw.MarketplaceID != "" {
		if _, err := uc.Products.FindByMarketplaceID(ctx, raw.MarketplaceID); errors.Is(err, domain.ErrNotFound) {
			p.MarketplaceID = raw.MarketplaceID
			changed = true
		}
	}
	if raw.ImageURL != "" && p.ImageURL != raw.ImageURL {
		p.ImageURL = raw.ImageURL
		changed = true
	}
	if raw.Category != "" && raw.Category != "Other" && p.Category != raw.Category {
		p.Category = raw.Category
		changed = true
	}
	if raw.Segment != "" && p.Segment != raw.Segment {
		p.Segment = raw.Segment
		changed = true
	}
	if raw.Description != "" && p.Description == "" {
		p.Description = raw.Description
		changed = true
	}
	if !changed {
		return nil
	}
	if err := uc.Products.Update(ctx, p); err != nil {
		return fmt.Errorf("refresh product %s: %w", p.ID, err)
	}
	return nil
}
