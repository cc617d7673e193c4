package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/geocheapest/marketplace/internal/domain"
)

// SyncUC ingests raw listings from storefronts and the marketplace into the
// catalog. Each listing write is a single row, so a cancelled context stops
// between batches and never leaves a half-written record.
type SyncUC struct {
	Canonical   *CanonicalUC
	Listings    domain.ListingRepo
	Stores      domain.StoreRepo
	Storefront  domain.StorefrontConnector
	Marketplace domain.MarketplaceConnector
	Rules       domain.IngestionRules

	inflight sync.Map
}

// SyncReport counts the outcomes of one sync run.
type SyncReport struct {
	Upserted int
	Skipped  map[domain.SkipReason]int
}

// SyncStorefront pulls every listing page for one store. Overlapping runs
// for the same store are rejected with ErrSyncInProgress rather than
// interleaved.
func (uc *SyncUC) SyncStorefront(ctx context.Context, storeID string) (*SyncReport, error) {
	if _, busy := uc.inflight.LoadOrStore(storeID, struct{}{}); busy {
		log.Info().Str("store", storeID).Msg("sync already running, trigger skipped")
		return nil, domain.ErrSyncInProgress
	}
	defer uc.inflight.Delete(storeID)

	store, err := uc.Stores.FindByID(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", storeID, err)
	}

	report := &SyncReport{Skipped: make(map[domain.SkipReason]int)}
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		batch, next, err := uc.Storefront.FetchListings(ctx, *store, cursor)
		if err != nil {
			return report, fmt.Errorf("fetch listings for %s: %w", storeID, err)
		}
		for _, raw := range batch {
			raw.StoreID = store.ID
			if raw.StoreName == "" {
				raw.StoreName = store.Name
			}
			rec, skipped := raw.Normalize(uc.Rules)
			if skipped != nil {
				report.Skipped[*skipped]++
				continue
			}
			if err := uc.upsert(ctx, rec); err != nil {
				return report, err
			}
			report.Upserted++
		}
		if next == "" {
			break
		}
		cursor = next
	}
	log.Info().
		Str("store", storeID).
		Int("upserted", report.Upserted).
		Interface("skipped", report.Skipped).
		Msg("storefront sync finished")
	return report, nil
}

// RefreshMarketplace re-pulls every active marketplace listing from the
// upstream item API so prices and stock flags stay current.
func (uc *SyncUC) RefreshMarketplace(ctx context.Context) (*SyncReport, error) {
	const guard = "marketplace"
	if _, busy := uc.inflight.LoadOrStore(guard, struct{}{}); busy {
		return nil, domain.ErrSyncInProgress
	}
	defer uc.inflight.Delete(guard)

	listings, err := uc.Listings.BySource(ctx, domain.SourceMarketplace, domain.ListingActive)
	if err != nil {
		return nil, fmt.Errorf("active marketplace listings: %w", err)
	}
	report := &SyncReport{Skipped: make(map[domain.SkipReason]int)}
	for _, l := range listings {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		raw, err := uc.Marketplace.ItemDetails(ctx, l.SourceItemID)
		if err != nil {
			log.Warn().Err(err).Str("item", l.SourceItemID).Msg("marketplace item not refreshed")
			continue
		}
		rec, skipped := raw.Normalize(uc.Rules)
		if skipped != nil {
			report.Skipped[*skipped]++
			continue
		}
		if err := uc.upsert(ctx, rec); err != nil {
			return report, err
		}
		report.Upserted++
	}
	log.Info().Int("refreshed", report.Upserted).Msg("marketplace refresh finished")
	return report, nil
}

// RunMarketplaceSync refreshes marketplace listings on a timer until the
// context is cancelled.
func (uc *SyncUC) RunMarketplaceSync(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("marketplace sync loop stopped")
			return
		case <-ticker.C:
			if _, err := uc.RefreshMarketplace(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("marketplace refresh failed")
			}
		}
	}
}

// IngestMarketplaceURL scrapes one marketplace product page and adds its
// listing to the catalog.
func (uc *SyncUC) IngestMarketplaceURL(ctx context.Context, pageURL string) (*domain.Listing, error) {
	raw, err := uc.Marketplace.ScrapeProduct(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", pageURL, err)
	}
	rec, skipped := raw.Normalize(uc.Rules)
	if skipped != nil {
		if *skipped == domain.SkipInvalidPrice {
			return nil, fmt.Errorf("listing %s: %w", raw.ItemID, domain.ErrInvalidPrice)
		}
		return nil, fmt.Errorf("listing rejected: %s", *skipped)
	}
	if err := uc.upsert(ctx, rec); err != nil {
		return nil, err
	}
	return &rec.Listing, nil
}

// ApplyListingUpdate handles a single storefront product change pushed by
// the vendor instead of waiting for the next full sync.
func (uc *SyncUC) ApplyListingUpdate(ctx context.Context, raw domain.VendorListing) error {
	rec, skipped := raw.Normalize(uc.Rules)
	if skipped != nil {
		if *skipped == domain.SkipInvalidPrice || *skipped == domain.SkipNoIdentifier {
			log.Warn().Str("item", raw.ItemID).Str("reason", string(*skipped)).Msg("listing update dropped")
		}
		return nil
	}
	return uc.upsert(ctx, rec)
}

// ApplyInventoryUpdate adjusts only the quantity of a vendor listing.
func (uc *SyncUC) ApplyInventoryUpdate(ctx context.Context, sourceItemID string, quantity int) error {
	return uc.Listings.UpdateQuantityBySourceItem(ctx, domain.SourceVendor, sourceItemID, quantity)
}

// MarkStorefrontProductDeleted retires a vendor listing logically. The row
// stays for order history.
func (uc *SyncUC) MarkStorefrontProductDeleted(ctx context.Context, sourceItemID string) error {
	return uc.Listings.MarkDeletedBySourceItem(ctx, domain.SourceVendor, sourceItemID)
}

func (uc *SyncUC) upsert(ctx context.Context, rec *domain.NormalizedRecord) error {
	productID, err := uc.Canonical.Resolve(ctx, rec.Product)
	if err != nil {
		return fmt.Errorf("canonicalize %q: %w", rec.Product.Name, err)
	}
	rec.Listing.ProductID = productID
	if err := uc.Listings.Put(ctx, &rec.Listing); err != nil {
		return fmt.Errorf("upsert listing %s: %w", rec.Listing.ID, err)
	}
	return nil
}
