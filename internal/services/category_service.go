package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"storefront/internal/cache"
	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/metrics"
	"storefront/internal/repos"
)

// ProductCounter counts active products by category identity.
type ProductCounter interface {
	CountActive(ctx context.Context, f repos.CountFilter) (int, error)
}

type CategoryStore interface {
	ListActive(ctx context.Context) ([]domain.Category, error)
	GetBySlug(ctx context.Context, slug string) (domain.Category, error)
	Save(ctx context.Context, c domain.Category) error
}

// CategoryAggregator recomputes product counts for the category tree and
// stores the result.
type CategoryAggregator struct {
	Products   ProductCounter
	Categories CategoryStore
}

func NewCategoryAggregator(products ProductCounter, categories CategoryStore) *CategoryAggregator {
	return &CategoryAggregator{Products: products, Categories: categories}
}

// Compute counts every active category and returns the visible ones ordered
// by product count, then name.
func (a *CategoryAggregator) Compute(ctx context.Context) ([]domain.Category, error) {
	started := time.Now()
	defer func() { metrics.CategoryComputeDuration.Observe(time.Since(started).Seconds()) }()

	cats, err := a.Categories.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]domain.Category, 0, len(cats))
	for _, c := range cats {
		counted, err := a.count(ctx, c)
		if err != nil {
			return nil, err
		}
		if counted.ProductCount > 0 || len(c.Subcategories) > 0 {
			out = append(out, counted)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ProductCount != out[j].ProductCount {
			return out[i].ProductCount > out[j].ProductCount
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// ComputeOne counts a single active category.
func (a *CategoryAggregator) ComputeOne(ctx context.Context, slug string) (domain.Category, error) {
	c, err := a.Categories.GetBySlug(ctx, slug)
	if err != nil {
		return domain.Category{}, err
	}
	return a.count(ctx, c)
}

// count fills in c's counts, saves them and returns c with only its active
// subcategories. The category total and the subcategory totals are separate
// queries and are not reconciled.
func (a *CategoryAggregator) count(ctx context.Context, c domain.Category) (domain.Category, error) {
	catIDs := identities(c.Slug, c.Name)
	n, err := a.Products.CountActive(ctx, repos.CountFilter{Categories: catIDs})
	if err != nil {
		return domain.Category{}, fmt.Errorf("count category %s: %w", c.Slug, err)
	}
	c.ProductCount = n

	subs := make([]domain.Subcategory, 0, len(c.Subcategories))
	for _, s := range c.Subcategories {
		if !s.Active {
			continue
		}
		subIDs := identities(s.Slug, s.Name)
		sn, err := a.Products.CountActive(ctx, repos.CountFilter{Categories: catIDs, Subcategories: subIDs})
		if err != nil {
			return domain.Category{}, fmt.Errorf("count subcategory %s/%s: %w", c.Slug, s.Slug, err)
		}
		if sn == 0 {
			// product category text often disagrees with the parent
			sn, err = a.Products.CountActive(ctx, repos.CountFilter{Subcategories: subIDs})
			if err != nil {
				return domain.Category{}, fmt.Errorf("count subcategory %s: %w", s.Slug, err)
			}
		}
		s.ProductCount = sn
		subs = append(subs, s)
	}
	c.Subcategories = subs

	if err := a.Categories.Save(ctx, c); err != nil {
		return domain.Category{}, fmt.Errorf("save category %s: %w", c.Slug, err)
	}
	return c, nil
}

func identities(slug, name string) []string {
	ids := []string{strings.ToLower(strings.TrimSpace(slug))}
	if n := strings.ToLower(strings.TrimSpace(name)); n != "" && n != ids[0] {
		ids = append(ids, n)
	}
	return ids
}

// CategoryService serves the category tree through a stale-while-revalidate
// snapshot.
type CategoryService struct {
	Agg      *CategoryAggregator
	snapshot *cache.Snapshot[[]domain.Category]
}

func NewCategoryService(agg *CategoryAggregator, opts ...cache.Option) *CategoryService {
	base := []cache.Option{
		cache.WithRefreshErrorHandler(func(err error) {
			applog.Error(nil, "category.refresh.fail", err, nil)
		}),
		cache.WithLoadObserver(func(d time.Duration) {
			applog.Info(nil, "category.refresh.done", map[string]any{"duration_ms": d.Milliseconds()})
		}),
	}
	return &CategoryService{
		Agg:      agg,
		snapshot: cache.New(agg.Compute, append(base, opts...)...),
	}
}

// GetCategories returns the cached tree filtered to major. An empty major or
// ALL returns every category; otherwise categories scoped to major or to ALL.
func (s *CategoryService) GetCategories(ctx context.Context, major domain.MajorCategory, force bool) ([]domain.Category, error) {
	cats, err := s.snapshot.Get(ctx, force)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(cats))
	for _, c := range cats {
		if major == "" || major == domain.AllMajor || c.MajorCategory == major || c.MajorCategory == domain.AllMajor {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetCategoryBySlug counts one category synchronously, bypassing the snapshot.
func (s *CategoryService) GetCategoryBySlug(ctx context.Context, slug string) (domain.Category, error) {
	return s.Agg.ComputeOne(ctx, slug)
}

// Refresh forces a recompute and waits for it.
func (s *CategoryService) Refresh(ctx context.Context) ([]domain.Category, error) {
	return s.snapshot.Get(ctx, true)
}

func (s *CategoryService) State() cache.State { return s.snapshot.State() }

func (s *CategoryService) Stats() cache.Stats { return s.snapshot.Stats() }

// Wait blocks until any background refresh has finished.
func (s *CategoryService) Wait() { s.snapshot.Wait() }
