package domain

import (
	"strings"
	"time"
)

type MajorCategory string

const (
	Affordable MajorCategory = "AFFORDABLE"
	Luxury     MajorCategory = "LUXURY"
	// AllMajor marks a shop or category that is not scoped to one major category.
	AllMajor MajorCategory = "ALL"
)

// DeriveMajorCategory applies the branding rule: any non-blank brand makes a product LUXURY.
func DeriveMajorCategory(brand string) MajorCategory {
	if strings.TrimSpace(brand) != "" {
		return Luxury
	}
	return Affordable
}

// Applies reports whether a scope admits products of the given major category.
// The empty scope and ALL admit everything.
func (m MajorCategory) Applies(to MajorCategory) bool {
	return m == "" || m == AllMajor || m == to
}

type Product struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	Price         float64       `json:"price"`
	OriginalPrice *float64      `json:"originalPrice,omitempty"`
	Discount      float64       `json:"discount"`
	Rating        float64       `json:"rating"`
	ReviewCount   int           `json:"reviewCount"`
	Category      string        `json:"category"`
	Subcategory   string        `json:"subcategory,omitempty"`
	ProductType   string        `json:"productType,omitempty"`
	Brand         string        `json:"brand,omitempty"`
	MajorCategory MajorCategory `json:"majorCategory"`
	IsTrending    bool          `json:"isTrending"`
	Active        bool          `json:"isActive"`
	DateAdded     *time.Time    `json:"dateAdded,omitempty"`
	// AssignedShops is derived by reassignment and never edited directly.
	AssignedShops []string `json:"assignedShops"`
	CreatedAt     string   `json:"createdAt,omitempty"`
	UpdatedAt     string   `json:"updatedAt,omitempty"`
}

// RuleSet is the closed set of shop criteria. A nil field is not evaluated.
type RuleSet struct {
	PriceMin       *float64 `json:"priceMin,omitempty" yaml:"priceMin,omitempty"`
	PriceMax       *float64 `json:"priceMax,omitempty" yaml:"priceMax,omitempty"`
	MinRating      *float64 `json:"minRating,omitempty" yaml:"minRating,omitempty"`
	MinReviews     *int     `json:"minReviews,omitempty" yaml:"minReviews,omitempty"`
	HasDiscount    bool     `json:"hasDiscount,omitempty" yaml:"hasDiscount,omitempty"`
	DaysSinceAdded *float64 `json:"daysSinceAdded,omitempty" yaml:"daysSinceAdded,omitempty"`
	CategoryMatch  string   `json:"categoryMatch,omitempty" yaml:"categoryMatch,omitempty"`
	BrandMatch     []string `json:"brandMatch,omitempty" yaml:"brandMatch,omitempty"`
	IsTrending     *bool    `json:"isTrending,omitempty" yaml:"isTrending,omitempty"`
}

// Shop is a rule-defined collection of products.
type Shop struct {
	Slug          string        `json:"slug" yaml:"slug"`
	Name          string        `json:"name" yaml:"name"`
	Route         string        `json:"route,omitempty" yaml:"route"`
	MajorCategory MajorCategory `json:"majorCategory,omitempty" yaml:"majorCategory"`
	ShopType      string        `json:"shopType,omitempty" yaml:"shopType"`
	Criteria      RuleSet       `json:"criteria" yaml:"criteria"`
	DefaultSort   string        `json:"defaultSort,omitempty" yaml:"defaultSort"`
	ParentSlug    string        `json:"parentShopSlug,omitempty" yaml:"parentShopSlug"`
}

type Subcategory struct {
	Name         string `json:"name" db:"name"`
	Slug         string `json:"slug" db:"slug"`
	ProductCount int    `json:"productCount" db:"product_count"`
	Active       bool   `json:"isActive" db:"active"`
}

// Category is a taxonomy node. ProductCount and the subcategory counts are a
// display snapshot and are not required to agree with each other.
type Category struct {
	Slug          string        `json:"slug"`
	Name          string        `json:"name"`
	MajorCategory MajorCategory `json:"majorCategory"`
	Active        bool          `json:"isActive"`
	ProductCount  int           `json:"productCount"`
	Subcategories []Subcategory `json:"subcategories"`
	UpdatedAt     string        `json:"updatedAt,omitempty"`
}

// Slugify lowercases s and collapses whitespace runs into single hyphens.
func Slugify(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}
