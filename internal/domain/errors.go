package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrNoEligibleListing   = errors.New("no eligible listing")
	ErrInvalidPrice        = errors.New("invalid price")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrSyncInProgress      = errors.New("sync already in progress")
)

// AmbiguousIdentifierError signals that a raw record's UPC and marketplace id
// point at two different canonical products. Resolution always favors the
// UPC match; the conflict is surfaced so it can be logged, never merged
// silently.
type AmbiguousIdentifierError struct {
	UPC           string
	MarketplaceID string
	UPCProduct    uuid.UUID
	MarketProduct uuid.UUID
}

func (e *AmbiguousIdentifierError) Error() string {
	return fmt.Sprintf("identifier conflict: upc %s -> product %s, marketplace id %s -> product %s",
		e.UPC, e.UPCProduct, e.MarketplaceID, e.MarketProduct)
}

// CartItemUnavailableError aborts cart optimization when a requested product
// has no eligible listing from any source.
type CartItemUnavailableError struct {
	ProductID uuid.UUID
}

func (e *CartItemUnavailableError) Error() string {
	return fmt.Sprintf("no eligible listing for product %s", e.ProductID)
}

func (e *CartItemUnavailableError) Unwrap() error { return ErrNoEligibleListing }
