package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Product is the canonical record that unifies every listing of the same
// physical item across storefronts and the marketplace. Identity is carried
// by three identifier classes in strict priority order: UPC, marketplace
// item id, normalized name.
type Product struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name           string    `gorm:"size:255;not null"`
	NormalizedName string    `gorm:"size:255"`
	UPC            string    `gorm:"size:20"`
	MarketplaceID  string    `gorm:"size:20"`
	Category       string    `gorm:"size:100;index"`
	Segment        string    `gorm:"size:30"`
	Description    string    `gorm:"type:text"`
	ImageURL       string    `gorm:"size:512"`
	TotalSales     int       `gorm:"default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Segments drive the commission class applied at settlement time.
const (
	SegmentSealed      = "sealed"
	SegmentSingles     = "singles"
	SegmentGraded      = "graded"
	SegmentAccessories = "accessories"
)

var (
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9\s]`)
	spacesRe   = regexp.MustCompile(`\s+`)
)

// NormalizeName lower-cases, strips punctuation and collapses whitespace so
// cosmetic title differences across sources map to the same identifier.
func NormalizeName(name string) string {
	n := nonAlnumRe.ReplaceAllString(strings.ToLower(name), "")
	return strings.TrimSpace(spacesRe.ReplaceAllString(n, " "))
}

// ClassifySegment buckets a listing into a product segment using keyword
// rules over title, product type and tags. Unmatched listings default to
// sealed, the most common segment.
func ClassifySegment(title, productType string, tags []string) string {
	text := strings.ToLower(strings.Join(append([]string{title, productType}, tags...), " "))
	switch {
	case containsAny(text, "graded", "psa ", "bgs ", "cgc "):
		return SegmentGraded
	case containsAny(text, "single", "singles", "foil", "holo rare", "promo card"):
		return SegmentSingles
	case containsAny(text, "sleeve", "deck box", "binder", "playmat", "toploader", "accessor"):
		return SegmentAccessories
	default:
		return SegmentSealed
	}
}

var categoryKeywords = []struct {
	needle   string
	category string
}{
	{"pokémon", "Pokemon"},
	{"pokemon", "Pokemon"},
	{"yu-gi-oh", "Yu-Gi-Oh"},
	{"yugioh", "Yu-Gi-Oh"},
	{"magic: the gathering", "Magic: The Gathering"},
	{"mtg", "Magic: The Gathering"},
	{"one piece", "One Piece"},
	{"lorcana", "Lorcana"},
	{"flesh and blood", "Flesh and Blood"},
}

// DetectCategory guesses the game from free-form listing text, returning
// "Other" when nothing matches.
func DetectCategory(title, productType string, tags []string) string {
	text := strings.ToLower(strings.Join(append([]string{title, productType}, tags...), " "))
	for _, kw := range categoryKeywords {
		if strings.Contains(text, kw.needle) {
			return kw.category
		}
	}
	return "Other"
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// RawProduct carries the canonical-product attributes extracted from a raw
// listing. It is the input to the canonicalizer.
type RawProduct struct {
	Name          string
	Description   string
	Category      string
	Segment       string
	ImageURL      string
	UPC           string
	MarketplaceID string
}
