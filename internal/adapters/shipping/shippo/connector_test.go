package shippo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocheapest/marketplace/internal/domain"
)

func TestEstimate(t *testing.T) {
	cases := []struct {
		province string
		items    int
		want     string
	}{
		{"ON", 1, "11.00"},
		{"ON", 3, "18.00"},
		{"QC", 1, "12.10"},
		{"BC", 2, "18.85"},
		{"NU", 1, "27.50"},
		{"XX", 1, "13.20"},
		{"on", 1, "11.00"},
		{"ON", 0, "11.00"},
	}
	for _, tc := range cases {
		got := Estimate(tc.province, tc.items)
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)),
			"%s x%d: got %s want %s", tc.province, tc.items, got, tc.want)
	}
}

func TestQuoteWithoutKeyUsesEstimate(t *testing.T) {
	c := NewConnector("")
	got, err := c.Quote(context.Background(), domain.Store{ID: "st_a", Province: "ON"},
		domain.Address{Province: "QC"}, domain.Parcel{ItemCount: 1, WeightG: 150})
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("12.10")), "got %s", got)
}

func TestQuotePicksCheapestSupportedCADRate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shipments/", r.URL.Path)
		assert.Equal(t, "ShippoToken test-key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"rates": []map[string]string{
				{"amount": "9.10", "currency": "USD", "provider": "UPS"},
				{"amount": "8.25", "currency": "CAD", "provider": "FlyByNight"},
				{"amount": "12.40", "currency": "CAD", "provider": "Canada Post"},
				{"amount": "11.95", "currency": "CAD", "provider": "Purolator"},
			},
		})
	}))
	defer ts.Close()

	c := &Connector{apiKey: "test-key", baseURL: ts.URL, httpClient: &http.Client{Timeout: time.Second}}
	got, err := c.Quote(context.Background(), domain.Store{ID: "st_a", Province: "ON", PostalCode: "M5V 2T6"},
		domain.Address{Street: "1 Main St", City: "Montreal", Province: "QC", PostalCode: "H2X 1Y4"},
		domain.Parcel{ItemCount: 2, WeightG: 300})
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("11.95")),
		"foreign-currency and unsupported carriers ignored, got %s", got)
}

func TestQuoteRetriesThenFallsBack(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	c := &Connector{apiKey: "test-key", baseURL: ts.URL, httpClient: &http.Client{Timeout: time.Second}}
	got, err := c.Quote(context.Background(), domain.Store{ID: "st_a", Province: "ON"},
		domain.Address{Province: "ON"}, domain.Parcel{ItemCount: 1, WeightG: 150})
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "one retry before degrading")
	assert.True(t, got.Equal(decimal.RequireFromString("11.00")), "got %s", got)
}
