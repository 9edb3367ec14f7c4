// Package criteria evaluates shop rule sets against products.
package criteria

import (
	"strings"
	"time"
	"unicode"

	"storefront/internal/domain"
)

const day = 24 * time.Hour

// Matches reports whether p satisfies every rule present in r. Absent rules
// are skipped and an empty rule set accepts every product. now is the
// reference time for recency rules.
func Matches(p domain.Product, r domain.RuleSet, now time.Time) bool {
	// numeric checks first, text last
	if r.PriceMin != nil && p.Price < *r.PriceMin {
		return false
	}
	if r.PriceMax != nil && p.Price > *r.PriceMax {
		return false
	}
	// products without reviews are never excluded by rating
	if r.MinRating != nil && p.ReviewCount > 0 && p.Rating < *r.MinRating {
		return false
	}
	if r.MinReviews != nil && p.ReviewCount < *r.MinReviews {
		return false
	}
	if r.HasDiscount && !HasDiscount(p) {
		return false
	}
	if r.IsTrending != nil && p.IsTrending != *r.IsTrending {
		return false
	}
	if r.DaysSinceAdded != nil && p.DateAdded != nil {
		age := now.Sub(*p.DateAdded).Hours() / day.Hours()
		if age > *r.DaysSinceAdded {
			return false
		}
	}
	if phrase := strings.TrimSpace(r.CategoryMatch); phrase != "" && !CategoryMatch(p, phrase) {
		return false
	}
	if len(r.BrandMatch) > 0 && !BrandMatch(p.Brand, r.BrandMatch) {
		return false
	}
	return true
}

// HasDiscount is true for an explicit discount or an original price above the
// current one.
func HasDiscount(p domain.Product) bool {
	if p.Discount > 0 {
		return true
	}
	return p.OriginalPrice != nil && *p.OriginalPrice > p.Price
}

// CategoryMatch looks for phrase in the product's category, type and name.
// The whole phrase may appear as a substring, or every token of it may appear
// independently. Separators inside the product text are kept as is, so
// "sweat-shirt" does not satisfy "sweatshirt" but "sweatshirt" satisfies
// "sweat-shirt".
func CategoryMatch(p domain.Product, phrase string) bool {
	haystack := strings.ToLower(p.Category + " " + p.ProductType + " " + p.Name)
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return true
	}
	if strings.Contains(haystack, phrase) {
		return true
	}
	tokens := Tokenize(phrase)
	if len(tokens) == 0 {
		return false
	}
	for _, tok := range tokens {
		if !strings.Contains(haystack, tok) {
			return false
		}
	}
	return true
}

// Tokenize splits s on whitespace, hyphens and underscores into lowercase words.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	})
}

// BrandMatch compares brand against the list in both directions, ignoring case.
// A blank brand never matches; blank entries in the list are ignored.
func BrandMatch(brand string, brands []string) bool {
	b := strings.ToLower(strings.TrimSpace(brand))
	if b == "" {
		return false
	}
	for _, want := range brands {
		w := strings.ToLower(strings.TrimSpace(want))
		if w == "" {
			continue
		}
		if strings.Contains(b, w) || strings.Contains(w, b) {
			return true
		}
	}
	return false
}
