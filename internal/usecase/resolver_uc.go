package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/geocheapest/marketplace/internal/domain"
)

// ResolverUC answers "which offer should the buyer see" for one canonical
// product. Vendor and marketplace listings are fetched concurrently; the
// cheapest eligible listing wins, vendor source breaking price ties.
type ResolverUC struct {
	Listings domain.ListingRepo
}

func (uc *ResolverUC) BestListing(ctx context.Context, productID uuid.UUID) (*domain.Listing, error) {
	listings, err := uc.fetchAll(ctx, productID)
	if err != nil {
		return nil, err
	}
	eligible := listings[:0]
	for _, l := range listings {
		if l.Eligible() {
			eligible = append(eligible, l)
		}
	}
	if len(eligible) == 0 {
		return nil, domain.ErrNoEligibleListing
	}
	sortListings(eligible)
	best := eligible[0]
	return &best, nil
}

// AllListings returns every active listing for the product detail view,
// sorted the same way BestListing ranks them.
func (uc *ResolverUC) AllListings(ctx context.Context, productID uuid.UUID) ([]domain.Listing, error) {
	listings, err := uc.fetchAll(ctx, productID)
	if err != nil {
		return nil, err
	}
	sortListings(listings)
	return listings, nil
}

func (uc *ResolverUC) fetchAll(ctx context.Context, productID uuid.UUID) ([]domain.Listing, error) {
	var vendor, market []domain.Listing
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vendor, err = uc.Listings.ByProduct(gctx, productID, domain.SourceVendor, domain.ListingActive)
		return err
	})
	g.Go(func() error {
		var err error
		market, err = uc.Listings.ByProduct(gctx, productID, domain.SourceMarketplace, domain.ListingActive)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch listings for %s: %w", productID, err)
	}
	return append(vendor, market...), nil
}

func sortListings(ls []domain.Listing) {
	sort.SliceStable(ls, func(i, j int) bool {
		cmp := ls[i].Price.Cmp(ls[j].Price)
		if cmp != 0 {
			return cmp < 0
		}
		return ls[i].Source == domain.SourceVendor && ls[j].Source != domain.SourceVendor
	})
}
