package services

import (
	"context"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repos"
)

const (
	SuggestionLimit = 5
	SearchLimit     = 100
)

type ProductSearcher interface {
	Search(ctx context.Context, q repos.SearchQuery) ([]domain.Product, error)
}

type CategoryLister interface {
	ListActive(ctx context.Context) ([]domain.Category, error)
}

// Suggestion is a lightweight type-ahead hit.
type Suggestion struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Brand    string `json:"brand,omitempty"`
	Category string `json:"category"`
}

type CategoryHit struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type SubcategoryHit struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	CategoryName string `json:"categoryName"`
	CategorySlug string `json:"categorySlug"`
}

type SearchResult struct {
	Products      []domain.Product `json:"products"`
	Categories    []CategoryHit    `json:"categories"`
	Subcategories []SubcategoryHit `json:"subcategories"`
}

// SearchService answers keyword lookups over products and the category tree.
type SearchService struct {
	Products   ProductSearcher
	Categories CategoryLister
}

func NewSearchService(products ProductSearcher, categories CategoryLister) *SearchService {
	return &SearchService{Products: products, Categories: categories}
}

// Suggest returns up to SuggestionLimit product names matching term. A blank
// term yields no suggestions.
func (s *SearchService) Suggest(ctx context.Context, term string) ([]Suggestion, error) {
	out := []Suggestion{}
	term = strings.TrimSpace(term)
	if term == "" {
		return out, nil
	}
	ps, err := s.Products.Search(ctx, repos.SearchQuery{Term: term, Limit: SuggestionLimit})
	if err != nil {
		return nil, err
	}
	for _, p := range ps {
		out = append(out, Suggestion{Type: "product", ID: p.ID, Name: p.Name, Brand: p.Brand, Category: p.Category})
	}
	return out, nil
}

// Search matches term against products (descriptions included), category
// names and slugs, and active subcategories of every active category.
func (s *SearchService) Search(ctx context.Context, term string) (SearchResult, error) {
	res := SearchResult{
		Products:      []domain.Product{},
		Categories:    []CategoryHit{},
		Subcategories: []SubcategoryHit{},
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return res, nil
	}
	ps, err := s.Products.Search(ctx, repos.SearchQuery{Term: term, WithDescription: true, Limit: SearchLimit})
	if err != nil {
		return SearchResult{}, err
	}
	res.Products = ps

	cats, err := s.Categories.ListActive(ctx)
	if err != nil {
		return SearchResult{}, err
	}
	needle := strings.ToLower(term)
	contains := func(vals ...string) bool {
		for _, v := range vals {
			if strings.Contains(strings.ToLower(v), needle) {
				return true
			}
		}
		return false
	}
	for _, c := range cats {
		if contains(c.Name, c.Slug) {
			res.Categories = append(res.Categories, CategoryHit{Name: c.Name, Slug: c.Slug})
		}
		for _, sc := range c.Subcategories {
			if sc.Active && contains(sc.Name, sc.Slug) {
				res.Subcategories = append(res.Subcategories, SubcategoryHit{
					Name: sc.Name, Slug: sc.Slug, CategoryName: c.Name, CategorySlug: c.Slug,
				})
			}
		}
	}
	return res, nil
}
