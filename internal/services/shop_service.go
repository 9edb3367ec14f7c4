package services

import (
	"context"

	"storefront/internal/domain"
	"storefront/internal/repos"
)

const (
	DefaultPageSize = 6
	MaxPageSize     = 60
)

type ShopStore interface {
	ListAll(ctx context.Context) ([]domain.Shop, error)
	Get(ctx context.Context, slug string) (domain.Shop, error)
}

type ShopProductLister interface {
	ListByShop(ctx context.Context, slug string, q repos.ShopQuery) ([]domain.Product, int, error)
}

// ProductPage is one page of a shop listing.
type ProductPage struct {
	Shop     domain.Shop      `json:"shop"`
	Products []domain.Product `json:"products"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
	Total    int              `json:"total"`
	Pages    int              `json:"pages"`
	HasMore  bool             `json:"hasMore"`
}

type ShopService struct {
	Shops  ShopStore
	Lister ShopProductLister
}

func NewShopService(shops ShopStore, products ShopProductLister) *ShopService {
	return &ShopService{Shops: shops, Lister: products}
}

func (s *ShopService) List(ctx context.Context) ([]domain.Shop, error) {
	return s.Shops.ListAll(ctx)
}

func (s *ShopService) Get(ctx context.Context, slug string) (domain.Shop, error) {
	return s.Shops.Get(ctx, slug)
}

// Children returns the shops grouped under parent, in definition order.
func (s *ShopService) Children(ctx context.Context, parent string) ([]domain.Shop, error) {
	all, err := s.Shops.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := []domain.Shop{}
	for _, sh := range all {
		if sh.ParentSlug == parent {
			out = append(out, sh)
		}
	}
	return out, nil
}

// Products lists page (1-based) of the shop's products. An empty sort uses
// the shop's default.
func (s *ShopService) Products(ctx context.Context, slug string, q repos.ShopQuery, page int) (ProductPage, error) {
	shop, err := s.Shops.Get(ctx, slug)
	if err != nil {
		return ProductPage{}, err
	}
	if page < 1 {
		page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if q.Sort == "" || !repos.SortKnown(q.Sort) {
		q.Sort = shop.DefaultSort
	}
	q.Offset = (page - 1) * q.Limit

	items, total, err := s.Lister.ListByShop(ctx, slug, q)
	if err != nil {
		return ProductPage{}, err
	}
	pages := (total + q.Limit - 1) / q.Limit
	return ProductPage{
		Shop:     shop,
		Products: items,
		Page:     page,
		Limit:    q.Limit,
		Total:    total,
		Pages:    pages,
		HasMore:  page < pages,
	}, nil
}
