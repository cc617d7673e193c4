package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductRepo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByUPC(ctx context.Context, upc string) (*Product, error)
	FindByMarketplaceID(ctx context.Context, marketplaceID string) (*Product, error)
	FindByNormalizedName(ctx context.Context, normalized string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	List(ctx context.Context, filter ProductFilter) ([]Product, error)
	IncrementSales(ctx context.Context, id uuid.UUID, qty int) error
}

// ProductFilter narrows catalog queries. Zero values mean no constraint.
type ProductFilter struct {
	Category string
	Segment  string
	Query    string
	Limit    int
	Offset   int
}

type ListingRepo interface {
	Get(ctx context.Context, id string) (*Listing, error)
	ByProduct(ctx context.Context, productID uuid.UUID, source ListingSource, status ListingStatus) ([]Listing, error)
	BySource(ctx context.Context, source ListingSource, status ListingStatus) ([]Listing, error)
	Put(ctx context.Context, l *Listing) error
	UpdateQuantityBySourceItem(ctx context.Context, source ListingSource, sourceItemID string, quantity int) error
	MarkDeletedBySourceItem(ctx context.Context, source ListingSource, sourceItemID string) error
}

type StoreRepo interface {
	FindByID(ctx context.Context, id string) (*Store, error)
	ListActive(ctx context.Context) ([]Store, error)
	Save(ctx context.Context, s *Store) error
}

type OrderRepo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByPaymentRef(ctx context.Context, ref string) (*Order, error)
	Create(ctx context.Context, o *Order) error
	Update(ctx context.Context, o *Order) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status OrderStatus) error
}

type PayoutRepo interface {
	ByOrder(ctx context.Context, orderID uuid.UUID) ([]Payout, error)
	Create(ctx context.Context, p *Payout) error
	Update(ctx context.Context, p *Payout) error
}

// ShippingConnector quotes delivery of a parcel from a store to a buyer.
type ShippingConnector interface {
	Quote(ctx context.Context, origin Store, dest Address, parcel Parcel) (decimal.Decimal, error)
}

// ChargeRequest describes a multi-vendor cart to collect payment for.
type ChargeRequest struct {
	OrderID     uuid.UUID
	Currency    string
	Amount      decimal.Decimal
	Description string
	CustomerRef string
}

// PaymentConnector is the processor-facing port used for checkout,
// settlement transfers and refunds.
type PaymentConnector interface {
	ChargeMultiVendorCart(ctx context.Context, req ChargeRequest) (paymentRef string, checkoutURL string, err error)
	FeeForPayment(ctx context.Context, paymentRef string) (decimal.Decimal, error)
	Transfer(ctx context.Context, connectAccount string, amount decimal.Decimal, currency string, orderID uuid.UUID) (transferRef string, err error)
	ReverseTransfer(ctx context.Context, transferRef string) error
	Refund(ctx context.Context, paymentRef string) error
}

// StorefrontConnector pulls a page of raw vendor listings for a store.
// A nil cursor starts from the beginning; an empty next cursor ends paging.
type StorefrontConnector interface {
	FetchListings(ctx context.Context, store Store, cursor string) (records []VendorListing, next string, err error)
}

// MarketplaceConnector fetches a single marketplace item, either by id or by
// scraping a product page URL.
type MarketplaceConnector interface {
	ItemDetails(ctx context.Context, itemID string) (*MarketplaceListing, error)
	ScrapeProduct(ctx context.Context, pageURL string) (*MarketplaceListing, error)
}

// LedgerExporter renders the payouts of one order to a spreadsheet.
type LedgerExporter interface {
	Export(order Order, payouts []Payout) ([]byte, error)
}
