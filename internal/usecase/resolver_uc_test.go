package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocheapest/marketplace/internal/domain"
)

func listing(productID uuid.UUID, id string, source domain.ListingSource, price string, qty int, inStock bool) domain.Listing {
	return domain.Listing{
		ID:        id,
		ProductID: productID,
		Source:    source,
		Status:    domain.ListingActive,
		Price:     decimal.RequireFromString(price),
		Quantity:  qty,
		InStock:   inStock,
	}
}

func TestBestListingPicksCheapest(t *testing.T) {
	repo := newFakeListingRepo()
	productID := uuid.New()
	repo.add(listing(productID, "vendor:1", domain.SourceVendor, "149.91", 5, true))
	repo.add(listing(productID, "marketplace:B01", domain.SourceMarketplace, "139.99", 0, true))

	uc := &ResolverUC{Listings: repo}
	best, err := uc.BestListing(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, "marketplace:B01", best.ID)
	assert.True(t, best.Price.Equal(decimal.RequireFromString("139.99")))
}

func TestBestListingVendorWinsPriceTie(t *testing.T) {
	repo := newFakeListingRepo()
	productID := uuid.New()
	repo.add(listing(productID, "marketplace:B01", domain.SourceMarketplace, "99.99", 0, true))
	repo.add(listing(productID, "vendor:1", domain.SourceVendor, "99.99", 2, true))

	uc := &ResolverUC{Listings: repo}
	best, err := uc.BestListing(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceVendor, best.Source)
}

func TestBestListingEligibility(t *testing.T) {
	repo := newFakeListingRepo()
	productID := uuid.New()

	// Cheapest vendor listing has no stock; cheapest marketplace listing is
	// scraped as unavailable.
	repo.add(listing(productID, "vendor:1", domain.SourceVendor, "10.00", 0, false))
	repo.add(listing(productID, "marketplace:B01", domain.SourceMarketplace, "11.00", 0, false))
	repo.add(listing(productID, "vendor:2", domain.SourceVendor, "12.00", 1, true))

	uc := &ResolverUC{Listings: repo}
	best, err := uc.BestListing(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, "vendor:2", best.ID)
}

func TestBestListingPreorderCounts(t *testing.T) {
	repo := newFakeListingRepo()
	productID := uuid.New()
	pre := listing(productID, "vendor:1", domain.SourceVendor, "10.00", 0, false)
	pre.IsPreorder = true
	repo.add(pre)

	uc := &ResolverUC{Listings: repo}
	best, err := uc.BestListing(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, "vendor:1", best.ID)
}

func TestBestListingNoneEligible(t *testing.T) {
	repo := newFakeListingRepo()
	productID := uuid.New()
	repo.add(listing(productID, "vendor:1", domain.SourceVendor, "10.00", 0, false))

	uc := &ResolverUC{Listings: repo}
	_, err := uc.BestListing(context.Background(), productID)
	assert.ErrorIs(t, err, domain.ErrNoEligibleListing)
}

func TestAllListingsSorted(t *testing.T) {
	repo := newFakeListingRepo()
	productID := uuid.New()
	repo.add(listing(productID, "vendor:1", domain.SourceVendor, "20.00", 1, true))
	repo.add(listing(productID, "marketplace:B01", domain.SourceMarketplace, "15.00", 0, true))
	repo.add(listing(productID, "vendor:2", domain.SourceVendor, "15.00", 1, true))

	uc := &ResolverUC{Listings: repo}
	all, err := uc.AllListings(context.Background(), productID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "vendor:2", all[0].ID, "vendor breaks the tie at 15.00")
	assert.Equal(t, "marketplace:B01", all[1].ID)
	assert.Equal(t, "vendor:1", all[2].ID)
}
