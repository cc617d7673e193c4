package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Config is the full runtime configuration, populated from the environment.
// A local .env file is loaded first when present.
type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required"`
	Currency    string `env:"CURRENCY" envDefault:"CAD"`

	StripeSecretKey  string `env:"STRIPE_SECRET_KEY"`
	StripeSuccessURL string `env:"STRIPE_SUCCESS_URL" envDefault:"https://geocheapest.ca/checkout/success"`
	StripeCancelURL  string `env:"STRIPE_CANCEL_URL" envDefault:"https://geocheapest.ca/checkout/cancel"`

	ShippoAPIKey string `env:"SHIPPO_API_KEY"`

	StorefrontAPIVersion string        `env:"STOREFRONT_API_VERSION" envDefault:"2024-01"`
	SyncInterval         time.Duration `env:"SYNC_INTERVAL" envDefault:"6h"`
	SyncBatchSize        int           `env:"SYNC_BATCH_SIZE" envDefault:"250"`

	CommissionSealed  string `env:"COMMISSION_RATE_SEALED" envDefault:"0.045"`
	CommissionSingles string `env:"COMMISSION_RATE_SINGLES" envDefault:"0.02"`
	CardPercentFee    string `env:"CARD_PERCENT_FEE" envDefault:"0.029"`
	CardFixedFee      string `env:"CARD_FIXED_FEE" envDefault:"0.30"`

	MinSellerRating float64  `env:"MIN_SELLER_RATING" envDefault:"4.0"`
	MinReviewCount  int      `env:"MIN_REVIEW_COUNT" envDefault:"50"`
	VettedSellers   []string `env:"VETTED_SELLERS" envSeparator:","`
}

// Rates holds the settlement constants parsed to decimals once at startup.
type Rates struct {
	CommissionSealed  decimal.Decimal
	CommissionSingles decimal.Decimal
	CardPercentFee    decimal.Decimal
	CardFixedFee      decimal.Decimal
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file, using environment")
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ParseRates validates the rate strings. Done once in wiring so usecases
// never deal with malformed config.
func (c *Config) ParseRates() (Rates, error) {
	var r Rates
	var err error
	if r.CommissionSealed, err = decimal.NewFromString(c.CommissionSealed); err != nil {
		return r, fmt.Errorf("commission rate sealed: %w", err)
	}
	if r.CommissionSingles, err = decimal.NewFromString(c.CommissionSingles); err != nil {
		return r, fmt.Errorf("commission rate singles: %w", err)
	}
	if r.CardPercentFee, err = decimal.NewFromString(c.CardPercentFee); err != nil {
		return r, fmt.Errorf("card percent fee: %w", err)
	}
	if r.CardFixedFee, err = decimal.NewFromString(c.CardFixedFee); err != nil {
		return r, fmt.Errorf("card fixed fee: %w", err)
	}
	return r, nil
}

// VettedSellerSet lower-cases the allowlist for case-insensitive matching.
func (c *Config) VettedSellerSet() map[string]bool {
	set := make(map[string]bool, len(c.VettedSellers))
	for _, s := range c.VettedSellers {
		if s = strings.TrimSpace(s); s != "" {
			set[strings.ToLower(s)] = true
		}
	}
	return set
}
