package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"storefront/internal/criteria"
	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/metrics"
)

// ItemStore is the product persistence the assignment engine needs.
type ItemStore interface {
	FindByID(ctx context.Context, id string) (domain.Product, error)
	FindActive(ctx context.Context) ([]domain.Product, error)
	UpdateMembership(ctx context.Context, id string, slugs []string) error
	UpdateMajorCategory(ctx context.Context, id string, major domain.MajorCategory) error
}

// ShopSource lists the collection definitions products are matched against.
type ShopSource interface {
	ListAll(ctx context.Context) ([]domain.Shop, error)
}

// BatchSummary reports a full reassignment run. Succeeded+Failed == Total.
type BatchSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

type AssignmentService struct {
	Items   ItemStore
	Shops   ShopSource
	Workers int
	Now     func() time.Time
}

func NewAssignmentService(items ItemStore, shops ShopSource, workers int) *AssignmentService {
	if workers < 1 {
		workers = 1
	}
	return &AssignmentService{Items: items, Shops: shops, Workers: workers, Now: time.Now}
}

// Assign returns the sorted slugs of every shop p qualifies for. Shops scoped
// to a major category only consider products of that category.
func Assign(p domain.Product, shops []domain.Shop, now time.Time) []string {
	major := domain.DeriveMajorCategory(p.Brand)
	seen := make(map[string]struct{}, len(shops))
	out := make([]string, 0, len(shops))
	for _, s := range shops {
		if !s.MajorCategory.Applies(major) {
			continue
		}
		if _, dup := seen[s.Slug]; dup {
			continue
		}
		if criteria.Matches(p, s.Criteria, now) {
			seen[s.Slug] = struct{}{}
			out = append(out, s.Slug)
		}
	}
	sort.Strings(out)
	return out
}

// ReassignOne recomputes and stores the shop membership of a single product.
// An unknown id is a no-op and yields nil, nil.
func (s *AssignmentService) ReassignOne(ctx context.Context, id string) ([]string, error) {
	p, err := s.Items.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		metrics.ReassignTotal.WithLabelValues("missing").Inc()
		return nil, nil
	}
	if err != nil {
		metrics.ReassignTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load product %s: %w", id, err)
	}
	shops, err := s.Shops.ListAll(ctx)
	if err != nil {
		metrics.ReassignTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load shops: %w", err)
	}
	slugs, err := s.apply(ctx, p, shops, s.now())
	if err != nil {
		metrics.ReassignTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.ReassignTotal.WithLabelValues("ok").Inc()
	return slugs, nil
}

// ReassignAll recomputes membership for every active product. Shop
// definitions are loaded once per run. A failing product is logged and
// counted, and the run continues. The returned error is only set when the
// run could not start.
func (s *AssignmentService) ReassignAll(ctx context.Context) (BatchSummary, error) {
	started := time.Now()
	shops, err := s.Shops.ListAll(ctx)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("load shops: %w", err)
	}
	items, err := s.Items.FindActive(ctx)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("load products: %w", err)
	}
	now := s.now()

	var succeeded, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.Workers)
	for i := range items {
		p := items[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				failed.Add(1)
				return nil
			}
			if _, err := s.apply(ctx, p, shops, now); err != nil {
				failed.Add(1)
				metrics.ReassignTotal.WithLabelValues("error").Inc()
				applog.Error(nil, "reassign.item.fail", err, map[string]any{
					"product_id": p.ID,
					"name":       p.Name,
				})
				return nil
			}
			succeeded.Add(1)
			metrics.ReassignTotal.WithLabelValues("ok").Inc()
			return nil
		})
	}
	_ = g.Wait()

	sum := BatchSummary{
		Total:     len(items),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
	}
	elapsed := time.Since(started)
	metrics.ReassignAllDuration.Observe(elapsed.Seconds())
	applog.Info(nil, "reassign.all.done", map[string]any{
		"total":       sum.Total,
		"succeeded":   sum.Succeeded,
		"failed":      sum.Failed,
		"shops":       len(shops),
		"duration_ms": elapsed.Milliseconds(),
	})
	return sum, nil
}

func (s *AssignmentService) apply(ctx context.Context, p domain.Product, shops []domain.Shop, now time.Time) ([]string, error) {
	if major := domain.DeriveMajorCategory(p.Brand); p.MajorCategory != major {
		if err := s.Items.UpdateMajorCategory(ctx, p.ID, major); err != nil {
			return nil, fmt.Errorf("update major category of %s: %w", p.ID, err)
		}
	}
	slugs := Assign(p, shops, now)
	if err := s.Items.UpdateMembership(ctx, p.ID, slugs); err != nil {
		return nil, fmt.Errorf("store membership of %s: %w", p.ID, err)
	}
	return slugs, nil
}

func (s *AssignmentService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
