package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/geocheapest/marketplace/internal/domain"
)

type CartItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// CartSelection is the chosen offer for one cart item, with the shipping
// attributed to it.
type CartSelection struct {
	Item      CartItem
	Listing   domain.Listing
	UnitPrice decimal.Decimal
	Shipping  decimal.Decimal
	Subtotal  decimal.Decimal
}

const (
	StrategySplit  = "split"
	StrategyBundle = "bundle"
)

type OptimizedCart struct {
	Strategy   string
	Selections []CartSelection
	Subtotal   decimal.Decimal
	Shipping   decimal.Decimal
	Total      decimal.Decimal
	Savings    decimal.Decimal
}

// CartUC picks the cheapest way to fulfil a cart. Split prices every item
// independently at its best delivered cost. Bundle prices the whole cart
// from a single vendor with one shipment. The cheaper of the two wins.
type CartUC struct {
	Listings domain.ListingRepo
	Stores   domain.StoreRepo
	Shipping domain.ShippingConnector
}

// Rough packed weight used for quoting when the upstream listing carries no
// weight of its own.
const itemWeightG = 150

type itemOffers struct {
	item   CartItem
	offers []offer
}

type offer struct {
	listing  domain.Listing
	shipping decimal.Decimal
	subtotal decimal.Decimal
}

func (uc *CartUC) Optimize(ctx context.Context, items []CartItem, dest domain.Address) (*OptimizedCart, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("empty cart")
	}

	perItem := make([]itemOffers, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(browseConcurrency)
	for i, it := range items {
		g.Go(func() error {
			offers, err := uc.offersFor(gctx, it, dest)
			if err != nil {
				return err
			}
			perItem[i] = itemOffers{item: it, offers: offers}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	split, err := buildSplit(perItem)
	if err != nil {
		return nil, err
	}
	bundle := uc.buildBundle(ctx, perItem, dest)

	chosen, alternative := split, bundle
	if bundle != nil && bundle.Total.LessThan(split.Total) {
		chosen, alternative = bundle, split
	}
	if alternative != nil && alternative.Total.GreaterThan(chosen.Total) {
		chosen.Savings = alternative.Total.Sub(chosen.Total)
	}
	log.Info().
		Str("strategy", chosen.Strategy).
		Str("total", chosen.Total.StringFixed(2)).
		Str("savings", chosen.Savings.StringFixed(2)).
		Int("items", len(items)).
		Msg("cart optimized")
	return chosen, nil
}

// offersFor prices every eligible listing of one item at its delivered cost.
// Vendor listings are quoted live per origin store; marketplace listings
// carry their own shipping estimate.
func (uc *CartUC) offersFor(ctx context.Context, it CartItem, dest domain.Address) ([]offer, error) {
	vendor, err := uc.Listings.ByProduct(ctx, it.ProductID, domain.SourceVendor, domain.ListingActive)
	if err != nil {
		return nil, fmt.Errorf("vendor listings for %s: %w", it.ProductID, err)
	}
	market, err := uc.Listings.ByProduct(ctx, it.ProductID, domain.SourceMarketplace, domain.ListingActive)
	if err != nil {
		return nil, fmt.Errorf("marketplace listings for %s: %w", it.ProductID, err)
	}

	qty := decimal.NewFromInt(int64(it.Quantity))
	var offers []offer
	for _, l := range append(vendor, market...) {
		if !l.Eligible() {
			continue
		}
		if l.Source == domain.SourceVendor && !l.IsPreorder && l.Quantity < it.Quantity {
			continue
		}
		shipping := l.ShippingEstimate
		if l.Source == domain.SourceVendor {
			shipping, err = uc.quoteFromStore(ctx, l.StoreID, dest, it.Quantity)
			if err != nil {
				log.Warn().Err(err).Str("listing", l.ID).Msg("skipping unquotable listing")
				continue
			}
		}
		offers = append(offers, offer{
			listing:  l,
			shipping: shipping,
			subtotal: l.Price.Mul(qty).Add(shipping).Round(2),
		})
	}
	if len(offers) == 0 {
		return nil, &domain.CartItemUnavailableError{ProductID: it.ProductID}
	}
	return offers, nil
}

func (uc *CartUC) quoteFromStore(ctx context.Context, storeID string, dest domain.Address, qty int) (decimal.Decimal, error) {
	store, err := uc.Stores.FindByID(ctx, storeID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("store %s: %w", storeID, err)
	}
	return uc.Shipping.Quote(ctx, *store, dest, domain.Parcel{ItemCount: qty, WeightG: qty * itemWeightG})
}

// buildSplit picks the cheapest delivered offer per item independently.
func buildSplit(perItem []itemOffers) (*OptimizedCart, error) {
	cart := &OptimizedCart{Strategy: StrategySplit}
	for _, io := range perItem {
		best := io.offers[0]
		for _, o := range io.offers[1:] {
			if o.subtotal.LessThan(best.subtotal) {
				best = o
			}
		}
		cart.Selections = append(cart.Selections, CartSelection{
			Item:      io.item,
			Listing:   best.listing,
			UnitPrice: best.listing.Price,
			Shipping:  best.shipping,
			Subtotal:  best.subtotal,
		})
		cart.Subtotal = cart.Subtotal.Add(best.listing.Price.Mul(decimal.NewFromInt(int64(io.item.Quantity))))
		cart.Shipping = cart.Shipping.Add(best.shipping)
	}
	cart.Subtotal = cart.Subtotal.Round(2)
	cart.Shipping = cart.Shipping.Round(2)
	cart.Total = cart.Subtotal.Add(cart.Shipping)
	return cart, nil
}

// buildBundle tries every vendor that can satisfy the whole cart and prices
// it as one shipment from that vendor. Returns nil when no vendor qualifies.
func (uc *CartUC) buildBundle(ctx context.Context, perItem []itemOffers, dest domain.Address) *OptimizedCart {
	byStore := make(map[string][]offer)
	for _, io := range perItem {
		cheapest := make(map[string]offer)
		for _, o := range io.offers {
			if o.listing.Source != domain.SourceVendor {
				continue
			}
			cur, ok := cheapest[o.listing.StoreID]
			if !ok || o.listing.Price.LessThan(cur.listing.Price) {
				cheapest[o.listing.StoreID] = o
			}
		}
		for storeID, o := range cheapest {
			byStore[storeID] = append(byStore[storeID], o)
		}
	}

	totalQty := 0
	for _, io := range perItem {
		totalQty += io.item.Quantity
	}

	var best *OptimizedCart
	for storeID, offers := range byStore {
		if len(offers) != len(perItem) {
			continue
		}
		shipping, err := uc.quoteFromStore(ctx, storeID, dest, totalQty)
		if err != nil {
			log.Warn().Err(err).Str("store", storeID).Msg("bundle quote failed, store skipped")
			continue
		}
		cart := &OptimizedCart{Strategy: StrategyBundle, Shipping: shipping.Round(2)}
		for i, o := range offers {
			qty := decimal.NewFromInt(int64(perItem[i].item.Quantity))
			sel := CartSelection{
				Item:      perItem[i].item,
				Listing:   o.listing,
				UnitPrice: o.listing.Price,
				Subtotal:  o.listing.Price.Mul(qty).Round(2),
			}
			if i == 0 {
				sel.Shipping = cart.Shipping
				sel.Subtotal = sel.Subtotal.Add(cart.Shipping)
			}
			cart.Selections = append(cart.Selections, sel)
			cart.Subtotal = cart.Subtotal.Add(o.listing.Price.Mul(qty))
		}
		cart.Subtotal = cart.Subtotal.Round(2)
		cart.Total = cart.Subtotal.Add(cart.Shipping)
		if best == nil || cart.Total.LessThan(best.Total) {
			best = cart
		}
	}
	return best
}
