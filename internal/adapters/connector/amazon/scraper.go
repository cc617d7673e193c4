package amazon

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/geocheapest/marketplace/internal/domain"
)

// Scraper extracts a marketplace listing from a public product page. There
// is no official item API on this tier, so the detail page is the source of
// truth for price and stock.
type Scraper struct {
	baseURL    string
	httpClient *http.Client
}

func NewScraper() *Scraper {
	return &Scraper{
		baseURL:    "https://www.amazon.ca",
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

var (
	asinRe  = regexp.MustCompile(`/dp/([A-Z0-9]{10})`)
	priceRe = regexp.MustCompile(`[\d,]+\.\d{2}`)
	upcRe   = regexp.MustCompile(`\b(\d{12,13})\b`)
)

func (s *Scraper) ItemDetails(ctx context.Context, itemID string) (*domain.MarketplaceListing, error) {
	return s.ScrapeProduct(ctx, fmt.Sprintf("%s/dp/%s", s.baseURL, itemID))
}

func (s *Scraper) ScrapeProduct(ctx context.Context, pageURL string) (*domain.MarketplaceListing, error) {
	m := asinRe.FindStringSubmatch(pageURL)
	if len(m) < 2 {
		return nil, fmt.Errorf("no item id in url %s", pageURL)
	}
	itemID := m[1]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-CA,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: page status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	listing := &domain.MarketplaceListing{
		ItemID:   itemID,
		Title:    strings.TrimSpace(doc.Find("#productTitle").First().Text()),
		Price:    extractPrice(doc),
		Currency: "CAD",
		InStock:  extractAvailability(doc),
		URL:      pageURL,
	}
	if listing.Title == "" {
		return nil, fmt.Errorf("page for %s has no title, likely blocked", itemID)
	}
	if src, ok := doc.Find("#landingImage").Attr("src"); ok {
		listing.ImageURL = src
	}
	if seller := strings.TrimSpace(doc.Find("#sellerProfileTriggerId").First().Text()); seller != "" {
		listing.SellerName = seller
	} else {
		listing.SellerName = "Amazon.ca"
		listing.SellerRating = 5.0
		listing.SellerReviews = 1000000
	}
	listing.UPC = extractUPC(doc)

	log.Debug().Str("item", itemID).Str("price", listing.Price).Bool("in_stock", listing.InStock).
		Msg("product page scraped")
	return listing, nil
}

func extractPrice(doc *goquery.Document) string {
	for _, sel := range []string{".a-price .a-offscreen", "#priceblock_ourprice", "#price_inside_buybox"} {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if m := priceRe.FindString(text); m != "" {
			return strings.ReplaceAll(m, ",", "")
		}
	}
	return ""
}

func extractAvailability(doc *goquery.Document) bool {
	text := strings.ToLower(strings.TrimSpace(doc.Find("#availability").First().Text()))
	if text == "" {
		return doc.Find("#add-to-cart-button").Length() > 0
	}
	return strings.Contains(text, "in stock") || strings.Contains(text, "left in stock")
}

// extractUPC walks the product detail tables looking for a UPC/EAN row.
func extractUPC(doc *goquery.Document) string {
	upc := ""
	doc.Find("#productDetails_detailBullets_sections1 tr, #detailBullets_feature_div li").
		EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text := sel.Text()
			if !strings.Contains(strings.ToUpper(text), "UPC") && !strings.Contains(strings.ToUpper(text), "EAN") {
				return true
			}
			if m := upcRe.FindString(text); m != "" {
				upc = m
				return false
			}
			return true
		})
	return upc
}
