package app

import (
	"gorm.io/gorm"

	"github.com/geocheapest/marketplace/internal/adapters/connector/amazon"
	"github.com/geocheapest/marketplace/internal/adapters/connector/storefront"
	"github.com/geocheapest/marketplace/internal/adapters/export"
	"github.com/geocheapest/marketplace/internal/adapters/payments/stripeconnect"
	"github.com/geocheapest/marketplace/internal/adapters/repo/postgres"
	"github.com/geocheapest/marketplace/internal/adapters/shipping/shippo"
	"github.com/geocheapest/marketplace/internal/config"
	"github.com/geocheapest/marketplace/internal/domain"
	"github.com/geocheapest/marketplace/internal/usecase"
)

type App struct {
	DB         *gorm.DB
	Cfg        *config.Config
	Catalog    *usecase.CatalogUC
	Resolver   *usecase.ResolverUC
	Cart       *usecase.CartUC
	Settlement *usecase.SettlementUC
	Sync       *usecase.SyncUC
	Stores     domain.StoreRepo
}

func New(db *gorm.DB, cfg *config.Config) (*App, error) {
	rates, err := cfg.ParseRates()
	if err != nil {
		return nil, err
	}

	products := postgres.NewProductRepo(db)
	listings := postgres.NewListingRepo(db)
	stores := postgres.NewStoreRepo(db)
	orders := postgres.NewOrderRepo(db)
	payouts := postgres.NewPayoutRepo(db)

	shipping := shippo.NewConnector(cfg.ShippoAPIKey)
	payments := stripeconnect.NewConnector(cfg.StripeSecretKey, cfg.StripeSuccessURL, cfg.StripeCancelURL)
	storefrontClient := storefront.NewClient(cfg.StorefrontAPIVersion, cfg.SyncBatchSize)
	marketplaceScraper := amazon.NewScraper()

	canonical := &usecase.CanonicalUC{Products: products}
	resolver := &usecase.ResolverUC{Listings: listings}

	return &App{
		DB:       db,
		Cfg:      cfg,
		Resolver: resolver,
		Catalog:  &usecase.CatalogUC{Products: products, Resolver: resolver},
		Cart: &usecase.CartUC{
			Listings: listings,
			Stores:   stores,
			Shipping: shipping,
		},
		Settlement: &usecase.SettlementUC{
			Orders:   orders,
			Payouts:  payouts,
			Stores:   stores,
			Products: products,
			Payments: payments,
			Ledger:   export.NewLedgerWriter(),
			Rates:    rates,
			Currency: cfg.Currency,
		},
		Sync: &usecase.SyncUC{
			Canonical:   canonical,
			Listings:    listings,
			Stores:      stores,
			Storefront:  storefrontClient,
			Marketplace: marketplaceScraper,
			Rules: domain.IngestionRules{
				MinSellerRating: cfg.MinSellerRating,
				MinReviewCount:  cfg.MinReviewCount,
				VettedSellers:   cfg.VettedSellerSet(),
				RequireVetted:   len(cfg.VettedSellers) > 0,
				SkipOutOfStock:  false,
			},
		},
		Stores: stores,
	}, nil
}

// Migrate creates the schema. The partial unique indexes back the
// canonicalizer's create-then-retry path: an identifier may be absent on
// many rows but can only ever point at one product.
func (a *App) Migrate() error {
	if err := a.DB.AutoMigrate(
		&domain.Product{}, &domain.Listing{}, &domain.Store{},
		&domain.Order{}, &domain.OrderLine{}, &domain.Payout{},
	); err != nil {
		return err
	}

	stmts := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_products_upc_unique ON products (upc) WHERE upc IS NOT NULL AND upc <> ''",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_products_marketplace_id_unique ON products (marketplace_id) WHERE marketplace_id IS NOT NULL AND marketplace_id <> ''",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_products_normalized_name_unique ON products (normalized_name) WHERE normalized_name IS NOT NULL AND normalized_name <> ''",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_payouts_order_store_unique ON payouts (order_id, store_id)",
		"CREATE INDEX IF NOT EXISTS idx_listings_source_item ON listings (source, source_item_id)",
	}
	for _, stmt := range stmts {
		if err := a.DB.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
