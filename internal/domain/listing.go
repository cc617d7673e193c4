package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ListingSource string

const (
	SourceVendor      ListingSource = "vendor"
	SourceMarketplace ListingSource = "marketplace"
)

type ListingStatus string

const (
	ListingActive   ListingStatus = "active"
	ListingInactive ListingStatus = "inactive"
	ListingDeleted  ListingStatus = "deleted"
)

// Listing is a single offer of a canonical product from one source. The
// primary key is "{source}:{sourceItemID}" so re-ingesting the same upstream
// record always lands on the same row.
type Listing struct {
	ID               string          `gorm:"size:120;primaryKey"`
	ProductID        uuid.UUID       `gorm:"type:uuid;index"`
	Source           ListingSource   `gorm:"size:20;index"`
	SourceName       string          `gorm:"size:100"`
	StoreID          string          `gorm:"size:64;index"`
	SourceItemID     string          `gorm:"size:64"`
	UPC              string          `gorm:"size:20"`
	Price            decimal.Decimal `gorm:"type:decimal(12,2)"`
	Quantity         int
	InStock          bool
	IsPreorder       bool
	Status           ListingStatus   `gorm:"size:20;index"`
	ShippingEstimate decimal.Decimal `gorm:"type:decimal(12,2)"`
	URL              string          `gorm:"size:512"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ListingKey builds the composite listing id for a source item.
func ListingKey(source ListingSource, sourceItemID string) string {
	return fmt.Sprintf("%s:%s", source, sourceItemID)
}

// Eligible reports whether the listing can be offered to a buyer. Vendor
// inventory is authoritative so quantity gates it; marketplace stock is a
// scraped boolean.
func (l Listing) Eligible() bool {
	if l.Status != ListingActive {
		return false
	}
	if l.Source == SourceVendor {
		return l.Quantity > 0 || l.IsPreorder
	}
	return l.InStock
}

// SkipReason explains why ingestion dropped a raw record. Skips are expected
// outcomes, not errors, so callers can count them per sync run.
type SkipReason string

const (
	SkipNoIdentifier   SkipReason = "no_identifier"
	SkipInvalidPrice   SkipReason = "invalid_price"
	SkipOutOfStock     SkipReason = "out_of_stock"
	SkipLowRating      SkipReason = "low_rating"
	SkipUnvettedSeller SkipReason = "unvetted_seller"
)

// IngestionRules holds the thresholds applied to marketplace records before
// they enter the catalog.
type IngestionRules struct {
	MinSellerRating float64
	MinReviewCount  int
	VettedSellers   map[string]bool
	RequireVetted   bool
	SkipOutOfStock  bool
}

// NormalizedRecord pairs the canonical-product attributes with the listing
// row derived from one raw record.
type NormalizedRecord struct {
	Product RawProduct
	Listing Listing
}

// VendorListing is the raw shape produced by a storefront connector.
type VendorListing struct {
	StoreID     string
	StoreName   string
	ItemID      string
	VariantID   string
	Title       string
	Description string
	ProductType string
	Tags        []string
	Barcode     string
	Price       string
	Quantity    int
	IsPreorder  bool
	ImageURL    string
	URL         string
}

// Normalize maps a storefront record into the internal listing shape.
// Records with no usable identifier or an unparsable or non-positive price
// are skipped, never errored.
func (v VendorListing) Normalize(IngestionRules) (*NormalizedRecord, *SkipReason) {
	upc := strings.TrimSpace(v.Barcode)
	title := strings.TrimSpace(v.Title)
	if upc == "" && title == "" {
		return nil, skip(SkipNoIdentifier)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(v.Price))
	if err != nil || !price.IsPositive() {
		return nil, skip(SkipInvalidPrice)
	}
	itemID := v.ItemID
	if v.VariantID != "" {
		itemID = v.ItemID + "/" + v.VariantID
	}
	return &NormalizedRecord{
		Product: RawProduct{
			Name:        title,
			Description: v.Description,
			Category:    DetectCategory(title, v.ProductType, v.Tags),
			Segment:     ClassifySegment(title, v.ProductType, v.Tags),
			ImageURL:    v.ImageURL,
			UPC:         upc,
		},
		Listing: Listing{
			ID:           ListingKey(SourceVendor, itemID),
			Source:       SourceVendor,
			SourceName:   v.StoreName,
			StoreID:      v.StoreID,
			SourceItemID: itemID,
			UPC:          upc,
			Price:        price.Round(2),
			Quantity:     v.Quantity,
			InStock:      v.Quantity > 0,
			IsPreorder:   v.IsPreorder,
			Status:       ListingActive,
			URL:          v.URL,
		},
	}, nil
}

// MarketplaceListing is the raw shape produced by a marketplace connector or
// page scraper.
type MarketplaceListing struct {
	ItemID           string
	Title            string
	UPC              string
	Price            string
	Currency         string
	InStock          bool
	SellerName       string
	SellerRating     float64
	SellerReviews    int
	ShippingEstimate string
	ImageURL         string
	URL              string
}

// Normalize maps a marketplace record into the internal listing shape,
// applying the seller-quality thresholds.
func (m MarketplaceListing) Normalize(rules IngestionRules) (*NormalizedRecord, *SkipReason) {
	itemID := strings.TrimSpace(m.ItemID)
	upc := strings.TrimSpace(m.UPC)
	if itemID == "" {
		return nil, skip(SkipNoIdentifier)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(m.Price))
	if err != nil || !price.IsPositive() {
		return nil, skip(SkipInvalidPrice)
	}
	if rules.SkipOutOfStock && !m.InStock {
		return nil, skip(SkipOutOfStock)
	}
	if m.SellerName != "" {
		if rules.RequireVetted && !rules.VettedSellers[strings.ToLower(m.SellerName)] {
			if m.SellerRating < rules.MinSellerRating || m.SellerReviews < rules.MinReviewCount {
				return nil, skip(SkipLowRating)
			}
		}
	} else if rules.RequireVetted {
		return nil, skip(SkipUnvettedSeller)
	}
	shipping := decimal.Zero
	if m.ShippingEstimate != "" {
		if s, err := decimal.NewFromString(m.ShippingEstimate); err == nil && !s.IsNegative() {
			shipping = s.Round(2)
		}
	}
	return &NormalizedRecord{
		Product: RawProduct{
			Name:          strings.TrimSpace(m.Title),
			Category:      DetectCategory(m.Title, "", nil),
			Segment:       ClassifySegment(m.Title, "", nil),
			ImageURL:      m.ImageURL,
			UPC:           upc,
			MarketplaceID: itemID,
		},
		Listing: Listing{
			ID:               ListingKey(SourceMarketplace, itemID),
			Source:           SourceMarketplace,
			SourceName:       m.SellerName,
			SourceItemID:     itemID,
			UPC:              upc,
			Price:            price.Round(2),
			InStock:          m.InStock,
			Status:           ListingActive,
			ShippingEstimate: shipping,
			URL:              m.URL,
		},
	}, nil
}

func skip(r SkipReason) *SkipReason { return &r }
