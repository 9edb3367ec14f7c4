package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/validate"
)

// ProductWriter is the product persistence the write path needs.
type ProductWriter interface {
	FindByID(ctx context.Context, id string) (domain.Product, error)
	Create(ctx context.Context, p domain.Product) error
	Update(ctx context.Context, p domain.Product) error
	Delete(ctx context.Context, id string) error
	RecordReview(ctx context.Context, id string, rating float64) error
}

type CategoryEnsurer interface {
	Ensure(ctx context.Context, name, productType string, major domain.MajorCategory) error
}

// Reassigner recomputes the shop membership of one product.
type Reassigner interface {
	ReassignOne(ctx context.Context, id string) ([]string, error)
}

// ProductInput is the editable part of a product.
type ProductInput struct {
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Price         float64    `json:"price"`
	OriginalPrice *float64   `json:"originalPrice"`
	Discount      float64    `json:"discount"`
	Category      string     `json:"category"`
	Subcategory   string     `json:"subcategory"`
	ProductType   string     `json:"productType"`
	Brand         string     `json:"brand"`
	IsTrending    bool       `json:"isTrending"`
	Active        *bool      `json:"isActive"`
	DateAdded     *time.Time `json:"dateAdded"`
}

func (in ProductInput) normalize() (ProductInput, error) {
	var ok bool
	if in.Name, ok = validate.Name(in.Name); !ok {
		return in, fmt.Errorf("%w: name", domain.ErrValidation)
	}
	if in.Category, ok = validate.Name(in.Category); !ok {
		return in, fmt.Errorf("%w: category", domain.ErrValidation)
	}
	if in.Description, ok = validate.Text(in.Description, 2000); !ok {
		return in, fmt.Errorf("%w: description", domain.ErrValidation)
	}
	if !validate.Price(in.Price) || !validate.Price(in.Discount) {
		return in, fmt.Errorf("%w: price", domain.ErrValidation)
	}
	if in.OriginalPrice != nil && !validate.Price(*in.OriginalPrice) {
		return in, fmt.Errorf("%w: originalPrice", domain.ErrValidation)
	}
	in.Subcategory = strings.TrimSpace(in.Subcategory)
	in.ProductType = strings.TrimSpace(in.ProductType)
	in.Brand = strings.TrimSpace(in.Brand)
	if in.Subcategory == "" {
		in.Subcategory = domain.Slugify(in.ProductType)
	}
	return in, nil
}

func (in ProductInput) apply(p *domain.Product) {
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.OriginalPrice = in.OriginalPrice
	p.Discount = in.Discount
	p.Category = in.Category
	p.Subcategory = in.Subcategory
	p.ProductType = in.ProductType
	p.Brand = in.Brand
	p.MajorCategory = domain.DeriveMajorCategory(in.Brand)
	p.IsTrending = in.IsTrending
	if in.Active != nil {
		p.Active = *in.Active
	}
	if in.DateAdded != nil {
		t := in.DateAdded.UTC()
		p.DateAdded = &t
	}
}

// CatalogService owns product writes. Every write that can change rule
// inputs is followed by an explicit reassignment.
type CatalogService struct {
	Prods    ProductWriter
	Cats     CategoryEnsurer
	Assigner Reassigner
	Now      func() time.Time
}

func NewCatalogService(prods ProductWriter, cats CategoryEnsurer, assigner Reassigner) *CatalogService {
	return &CatalogService{Prods: prods, Cats: cats, Assigner: assigner, Now: time.Now}
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.Prods.FindByID(ctx, id)
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (domain.Product, error) {
	in, err := in.normalize()
	if err != nil {
		return domain.Product{}, err
	}
	p := domain.Product{ID: uuid.NewString(), Active: true, AssignedShops: []string{}}
	in.apply(&p)
	if p.DateAdded == nil {
		now := s.Now().UTC()
		p.DateAdded = &now
	}
	if err := s.Prods.Create(ctx, p); err != nil {
		return domain.Product{}, err
	}
	s.afterWrite(ctx, &p)
	return p, nil
}

// MaxBulkProducts caps one CreateProducts batch.
const MaxBulkProducts = 500

// BulkFailure reports one rejected item of a bulk create by its position.
type BulkFailure struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

type BulkResult struct {
	Created []domain.Product `json:"created"`
	Failed  []BulkFailure    `json:"failed"`
}

// CreateProducts creates every valid item of ins. A rejected item is
// reported and does not stop the rest; each created product is reassigned
// like a single create.
func (s *CatalogService) CreateProducts(ctx context.Context, ins []ProductInput) (BulkResult, error) {
	if len(ins) == 0 {
		return BulkResult{}, fmt.Errorf("%w: empty batch", domain.ErrValidation)
	}
	if len(ins) > MaxBulkProducts {
		return BulkResult{}, fmt.Errorf("%w: batch larger than %d", domain.ErrValidation, MaxBulkProducts)
	}
	res := BulkResult{Created: []domain.Product{}, Failed: []BulkFailure{}}
	for i, in := range ins {
		if err := ctx.Err(); err != nil {
			res.Failed = append(res.Failed, BulkFailure{Index: i, Error: err.Error()})
			continue
		}
		p, err := s.CreateProduct(ctx, in)
		if err != nil {
			msg := err.Error()
			if !errors.Is(err, domain.ErrValidation) {
				applog.Error(nil, "product.bulk.item.fail", err, map[string]any{"index": i})
				msg = "could not be stored"
			}
			res.Failed = append(res.Failed, BulkFailure{Index: i, Error: msg})
			continue
		}
		res.Created = append(res.Created, p)
	}
	applog.Info(nil, "product.bulk.done", map[string]any{
		"total":   len(ins),
		"created": len(res.Created),
		"failed":  len(res.Failed),
	})
	return res, nil
}

// UpdateProduct replaces the editable attributes of id. Rating and review
// count are kept; an omitted dateAdded or isActive keeps the stored value.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, in ProductInput) (domain.Product, error) {
	in, err := in.normalize()
	if err != nil {
		return domain.Product{}, err
	}
	p, err := s.Prods.FindByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	in.apply(&p)
	if err := s.Prods.Update(ctx, p); err != nil {
		return domain.Product{}, err
	}
	s.afterWrite(ctx, &p)
	return p, nil
}

// DeleteProduct removes id. Category counts catch up on the next aggregation.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	return s.Prods.Delete(ctx, id)
}

// RecordReview folds rating into the product's average and reassigns it.
func (s *CatalogService) RecordReview(ctx context.Context, id string, rating float64) (domain.Product, error) {
	if !validate.Rating(rating) {
		return domain.Product{}, fmt.Errorf("%w: rating", domain.ErrValidation)
	}
	if err := s.Prods.RecordReview(ctx, id, rating); err != nil {
		return domain.Product{}, err
	}
	p, err := s.Prods.FindByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	s.reassign(ctx, &p)
	return p, nil
}

func (s *CatalogService) afterWrite(ctx context.Context, p *domain.Product) {
	if s.Cats != nil {
		if err := s.Cats.Ensure(ctx, p.Category, p.ProductType, domain.AllMajor); err != nil {
			applog.Error(nil, "category.ensure.fail", err, map[string]any{"product_id": p.ID, "category": p.Category})
		}
	}
	s.reassign(ctx, p)
}

// reassign failures leave membership stale until the next full pass; the
// write itself already succeeded.
func (s *CatalogService) reassign(ctx context.Context, p *domain.Product) {
	slugs, err := s.Assigner.ReassignOne(ctx, p.ID)
	if err != nil {
		applog.Error(nil, "reassign.one.fail", err, map[string]any{"product_id": p.ID})
		return
	}
	if slugs == nil {
		slugs = []string{}
	}
	p.AssignedShops = slugs
}
