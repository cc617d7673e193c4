package shippo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/geocheapest/marketplace/internal/domain"
)

const apiBase = "https://api.goshippo.com"

// Carriers whose rates we trust for Canadian domestic delivery.
var supportedProviders = map[string]bool{
	"canada post": true,
	"purolator":   true,
	"ups":         true,
}

// Connector quotes shipments through the Shippo rates API. Without an API
// key, or when the API fails twice, it degrades to a flat provincial
// estimate so carts can still be priced.
type Connector struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewConnector(apiKey string) *Connector {
	return &Connector{
		apiKey:     apiKey,
		baseURL:    apiBase,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type shipmentReq struct {
	AddressFrom shippoAddress  `json:"address_from"`
	AddressTo   shippoAddress  `json:"address_to"`
	Parcels     []shippoParcel `json:"parcels"`
	Async       bool           `json:"async"`
}

type shippoAddress struct {
	Name    string `json:"name,omitempty"`
	Street1 string `json:"street1"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

type shippoParcel struct {
	Length       string `json:"length"`
	Width        string `json:"width"`
	Height       string `json:"height"`
	DistanceUnit string `json:"distance_unit"`
	Weight       string `json:"weight"`
	MassUnit     string `json:"mass_unit"`
}

type shipmentResp struct {
	Rates []struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
		Provider string `json:"provider"`
	} `json:"rates"`
}

// Quote returns the cheapest supported-carrier CAD rate for the shipment.
// The API is retried once before falling back to the estimate.
func (c *Connector) Quote(ctx context.Context, origin domain.Store, dest domain.Address, parcel domain.Parcel) (decimal.Decimal, error) {
	if c.apiKey == "" {
		return Estimate(dest.Province, parcel.ItemCount), nil
	}
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		rate, err := c.fetchCheapestRate(ctx, origin, dest, parcel)
		if err == nil {
			return rate, nil
		}
		lastErr = err
	}
	log.Warn().Err(lastErr).Str("store", origin.ID).Str("province", dest.Province).
		Msg("rate lookup failed, using estimate")
	return Estimate(dest.Province, parcel.ItemCount), nil
}

func (c *Connector) fetchCheapestRate(ctx context.Context, origin domain.Store, dest domain.Address, parcel domain.Parcel) (decimal.Decimal, error) {
	weightKG := float64(parcel.WeightG) / 1000
	if weightKG <= 0 {
		weightKG = 0.15
	}
	payload := shipmentReq{
		AddressFrom: shippoAddress{
			Name:    origin.Name,
			Street1: "-",
			City:    "-",
			State:   origin.Province,
			Zip:     origin.PostalCode,
			Country: "CA",
		},
		AddressTo: shippoAddress{
			Name:    dest.Name,
			Street1: dest.Street,
			City:    dest.City,
			State:   dest.Province,
			Zip:     dest.PostalCode,
			Country: "CA",
		},
		Parcels: []shippoParcel{{
			Length:       "25",
			Width:        "20",
			Height:       "10",
			DistanceUnit: "cm",
			Weight:       fmt.Sprintf("%.2f", weightKG),
			MassUnit:     "kg",
		}},
		Async: false,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return decimal.Zero, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/shipments/", bytes.NewReader(body))
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Authorization", "ShippoToken "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return decimal.Zero, fmt.Errorf("%w: shippo status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var out shipmentResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return decimal.Zero, fmt.Errorf("decode rates: %w", err)
	}

	var cheapest *decimal.Decimal
	for _, r := range out.Rates {
		if r.Currency != "CAD" || !supportedProviders[strings.ToLower(r.Provider)] {
			continue
		}
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			continue
		}
		if cheapest == nil || amount.LessThan(*cheapest) {
			cheapest = &amount
		}
	}
	if cheapest == nil {
		return decimal.Zero, fmt.Errorf("no usable rate among %d", len(out.Rates))
	}
	return cheapest.Round(2), nil
}

var provinceMultipliers = map[string]string{
	"ON": "1.0",
	"QC": "1.1",
	"BC": "1.3",
	"AB": "1.2",
	"MB": "1.2",
	"SK": "1.2",
	"NS": "1.3",
	"NB": "1.3",
	"NL": "1.5",
	"PE": "1.4",
	"NT": "2.0",
	"YT": "2.0",
	"NU": "2.5",
}

var (
	estimateBase    = decimal.RequireFromString("11.00")
	estimatePerItem = decimal.RequireFromString("3.50")
)

// Estimate is the offline shipping formula: a base rate plus a per-item
// increment, scaled by the destination province.
func Estimate(province string, itemCount int) decimal.Decimal {
	if itemCount < 1 {
		itemCount = 1
	}
	mult, ok := provinceMultipliers[strings.ToUpper(province)]
	if !ok {
		mult = "1.2"
	}
	extra := estimatePerItem.Mul(decimal.NewFromInt(int64(itemCount - 1)))
	return estimateBase.Add(extra).Mul(decimal.RequireFromString(mult)).Round(2)
}
