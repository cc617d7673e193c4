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

func entry(name, upc, mid, price string, inStock bool) CatalogEntry {
	return CatalogEntry{
		ProductID:      uuid.New(),
		Name:           name,
		NormalizedName: domain.NormalizeName(name),
		UPC:            upc,
		MarketplaceID:  mid,
		Price:          decimal.RequireFromString(price),
		InStock:        inStock,
	}
}

func TestDeduplicateEntriesByEachIdentifier(t *testing.T) {
	t.Run("upc", func(t *testing.T) {
		out := DeduplicateEntries([]CatalogEntry{
			entry("Box A", "111111111111", "", "20.00", true),
			entry("Box B", "111111111111", "", "18.00", true),
		})
		require.Len(t, out, 1)
		assert.True(t, out[0].Price.Equal(decimal.RequireFromString("18.00")))
	})
	t.Run("marketplace id", func(t *testing.T) {
		out := DeduplicateEntries([]CatalogEntry{
			entry("Box A", "", "B000000001", "20.00", true),
			entry("Box B", "", "B000000001", "25.00", true),
		})
		require.Len(t, out, 1)
		assert.Equal(t, "Box A", out[0].Name, "pricier duplicate does not replace")
	})
	t.Run("normalized name", func(t *testing.T) {
		out := DeduplicateEntries([]CatalogEntry{
			entry("Booster  Box!", "", "", "20.00", true),
			entry("booster box", "", "", "19.00", true),
		})
		assert.Len(t, out, 1)
	})
}

func TestDeduplicateEntriesStockBeatsPrice(t *testing.T) {
	out := DeduplicateEntries([]CatalogEntry{
		entry("Box A", "111111111111", "", "15.00", false),
		entry("Box B", "111111111111", "", "30.00", true),
	})
	require.Len(t, out, 1)
	assert.True(t, out[0].InStock)
	assert.True(t, out[0].Price.Equal(decimal.RequireFromString("30.00")))
}

// Entries chained across identifier classes must land in one group even
// though no single entry carries all identifiers: A shares a UPC with B, B
// shares a marketplace id with C.
func TestDeduplicateEntriesTransitiveChain(t *testing.T) {
	a := entry("Alpha Box", "555555555555", "", "22.00", true)
	b := entry("Beta Box", "555555555555", "B000000042", "21.00", true)
	c := entry("Gamma Box", "", "B000000042", "20.00", true)

	out := DeduplicateEntries([]CatalogEntry{a, b, c})
	require.Len(t, out, 1)
	assert.True(t, out[0].Price.Equal(decimal.RequireFromString("20.00")))

	// Same set, reversed order, still one group.
	out = DeduplicateEntries([]CatalogEntry{c, b, a})
	assert.Len(t, out, 1)
}

func TestDeduplicateEntriesUnionEvenWhenNotReplacing(t *testing.T) {
	// B loses the replace decision against A but its marketplace id must
	// still join the group so C collapses too.
	a := entry("Alpha Box", "555555555555", "", "10.00", true)
	b := entry("Beta Box", "555555555555", "B000000042", "50.00", true)
	c := entry("Gamma Box", "", "B000000042", "60.00", true)

	out := DeduplicateEntries([]CatalogEntry{a, b, c})
	require.Len(t, out, 1)
	assert.Equal(t, "Alpha Box", out[0].Name)
}

func TestDeduplicateEntriesKeepsDistinctProducts(t *testing.T) {
	out := DeduplicateEntries([]CatalogEntry{
		entry("Alpha Box", "111111111111", "", "10.00", true),
		entry("Beta Box", "222222222222", "", "12.00", true),
		entry("Gamma Box", "", "B000000001", "14.00", true),
	})
	assert.Len(t, out, 3)
}

func TestBrowseResolvesAndDeduplicates(t *testing.T) {
	products := newFakeProductRepo()
	listings := newFakeListingRepo()
	ctx := context.Background()

	dup1 := domain.Product{ID: uuid.New(), Name: "Twin Box", NormalizedName: "twin box", UPC: "777777777777"}
	dup2 := domain.Product{ID: uuid.New(), Name: "Twin Box Import", NormalizedName: "twin box import", UPC: "777777777777"}
	solo := domain.Product{ID: uuid.New(), Name: "Solo Box", NormalizedName: "solo box"}
	noOffer := domain.Product{ID: uuid.New(), Name: "Ghost Box", NormalizedName: "ghost box"}
	for _, p := range []domain.Product{dup1, dup2, solo, noOffer} {
		products.add(p)
	}

	listings.add(listing(dup1.ID, "vendor:1", domain.SourceVendor, "30.00", 1, true))
	listings.add(listing(dup2.ID, "marketplace:B01", domain.SourceMarketplace, "26.00", 0, true))
	listings.add(listing(solo.ID, "vendor:2", domain.SourceVendor, "12.00", 4, true))

	uc := &CatalogUC{Products: products, Resolver: &ResolverUC{Listings: listings}}
	out, err := uc.Browse(ctx, domain.ProductFilter{})
	require.NoError(t, err)

	require.Len(t, out, 2, "duplicates merged, offerless product dropped")
	byName := map[string]CatalogEntry{}
	for _, e := range out {
		byName[e.Name] = e
	}
	assert.Contains(t, byName, "Solo Box")
	twin, ok := byName["Twin Box Import"]
	require.True(t, ok, "cheaper in-stock source shown")
	assert.True(t, twin.Price.Equal(decimal.RequireFromString("26.00")))
}
