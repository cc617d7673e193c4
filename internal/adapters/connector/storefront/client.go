package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/geocheapest/marketplace/internal/domain"
)

// Client pulls product pages from a vendor's storefront admin API. Paging
// follows the Link header cursor convention.
type Client struct {
	apiVersion string
	pageSize   int
	httpClient *http.Client
}

func NewClient(apiVersion string, pageSize int) *Client {
	if pageSize <= 0 {
		pageSize = 250
	}
	return &Client{
		apiVersion: apiVersion,
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type productsResp struct {
	Products []struct {
		ID          int64    `json:"id"`
		Title       string   `json:"title"`
		BodyHTML    string   `json:"body_html"`
		ProductType string   `json:"product_type"`
		Tags        string   `json:"tags"`
		Status      string   `json:"status"`
		Variants    []struct {
			ID                int64  `json:"id"`
			Price             string `json:"price"`
			Barcode           string `json:"barcode"`
			InventoryQuantity int    `json:"inventory_quantity"`
			InventoryPolicy   string `json:"inventory_policy"`
		} `json:"variants"`
		Images []struct {
			Src string `json:"src"`
		} `json:"images"`
		Handle string `json:"handle"`
	} `json:"products"`
}

var pageInfoRe = regexp.MustCompile(`<[^>]*[?&]page_info=([^&>]+)[^>]*>;\s*rel="next"`)

func (c *Client) FetchListings(ctx context.Context, store domain.Store, cursor string) ([]domain.VendorListing, string, error) {
	endpoint := fmt.Sprintf("%s/admin/api/%s/products.json", baseURL(store.Domain), c.apiVersion)
	q := url.Values{"limit": {strconv.Itoa(c.pageSize)}}
	if cursor != "" {
		q.Set("page_info", cursor)
	} else {
		q.Set("status", "active")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("X-Shopify-Access-Token", store.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w: storefront status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var out productsResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, "", fmt.Errorf("decode products: %w", err)
	}

	var listings []domain.VendorListing
	for _, p := range out.Products {
		if p.Status != "" && p.Status != "active" {
			continue
		}
		imageURL := ""
		if len(p.Images) > 0 {
			imageURL = p.Images[0].Src
		}
		tags := splitTags(p.Tags)
		for _, v := range p.Variants {
			listings = append(listings, domain.VendorListing{
				StoreID:     store.ID,
				StoreName:   store.Name,
				ItemID:      strconv.FormatInt(p.ID, 10),
				VariantID:   strconv.FormatInt(v.ID, 10),
				Title:       p.Title,
				Description: p.BodyHTML,
				ProductType: p.ProductType,
				Tags:        tags,
				Barcode:     v.Barcode,
				Price:       v.Price,
				Quantity:    v.InventoryQuantity,
				IsPreorder:  v.InventoryQuantity <= 0 && v.InventoryPolicy == "continue",
				ImageURL:    imageURL,
				URL:         fmt.Sprintf("%s/products/%s", baseURL(store.Domain), p.Handle),
			})
		}
	}
	next := nextCursor(resp.Header.Get("Link"))
	log.Debug().Str("store", store.ID).Int("listings", len(listings)).Bool("more", next != "").
		Msg("storefront page fetched")
	return listings, next, nil
}

func baseURL(domain string) string {
	if strings.Contains(domain, "://") {
		return strings.TrimSuffix(domain, "/")
	}
	return "https://" + domain
}

func nextCursor(linkHeader string) string {
	m := pageInfoRe.FindStringSubmatch(linkHeader)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, t := range regexp.MustCompile(`\s*,\s*`).Split(raw, -1) {
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
