package repos

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

type CategoryRepo struct{ db *sqlx.DB }

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo { return &CategoryRepo{db: db} }

type categoryRow struct {
	Slug          string `db:"slug"`
	Name          string `db:"name"`
	MajorCategory string `db:"major_category"`
	Active        bool   `db:"active"`
	ProductCount  int    `db:"product_count"`
	UpdatedAt     string `db:"updated_at"`
}

type subcategoryRow struct {
	CategorySlug string `db:"category_slug"`
	domain.Subcategory
}

// ListActive returns active categories with all of their subcategories.
func (r *CategoryRepo) ListActive(ctx context.Context) ([]domain.Category, error) {
	var rows []categoryRow
	if err := r.db.SelectContext(ctx, &rows, `
	  SELECT slug, name, major_category, active, product_count, COALESCE(updated_at,'') AS updated_at
	  FROM categories
	  WHERE active = 1
	  ORDER BY name
	`); err != nil {
		return nil, err
	}
	var subs []subcategoryRow
	if err := r.db.SelectContext(ctx, &subs, `
	  SELECT s.category_slug, s.slug, s.name, s.product_count, s.active
	  FROM subcategories s
	  JOIN categories c ON c.slug = s.category_slug AND c.active = 1
	  ORDER BY s.category_slug, s.position, s.slug
	`); err != nil {
		return nil, err
	}
	bySlug := make(map[string][]domain.Subcategory, len(rows))
	for _, s := range subs {
		bySlug[s.CategorySlug] = append(bySlug[s.CategorySlug], s.Subcategory)
	}
	out := make([]domain.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain(bySlug[row.Slug]))
	}
	return out, nil
}

// GetBySlug returns an active category or domain.ErrNotFound.
func (r *CategoryRepo) GetBySlug(ctx context.Context, slug string) (domain.Category, error) {
	var row categoryRow
	err := r.db.GetContext(ctx, &row, `
	  SELECT slug, name, major_category, active, product_count, COALESCE(updated_at,'') AS updated_at
	  FROM categories
	  WHERE slug = ? AND active = 1
	`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Category{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Category{}, err
	}
	var subs []domain.Subcategory
	if err := r.db.SelectContext(ctx, &subs, `
	  SELECT slug, name, product_count, active
	  FROM subcategories
	  WHERE category_slug = ?
	  ORDER BY position, slug
	`, slug); err != nil {
		return domain.Category{}, err
	}
	return row.toDomain(subs), nil
}

func (row categoryRow) toDomain(subs []domain.Subcategory) domain.Category {
	if subs == nil {
		subs = []domain.Subcategory{}
	}
	return domain.Category{
		Slug:          row.Slug,
		Name:          row.Name,
		MajorCategory: domain.MajorCategory(row.MajorCategory),
		Active:        row.Active,
		ProductCount:  row.ProductCount,
		Subcategories: subs,
		UpdatedAt:     row.UpdatedAt,
	}
}

// Save persists the count snapshot of a category and its subcategories.
func (r *CategoryRepo) Save(ctx context.Context, c domain.Category) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(timeLayout)
	if _, err := tx.ExecContext(ctx,
		`UPDATE categories SET product_count = ?, updated_at = ? WHERE slug = ?`,
		c.ProductCount, now, c.Slug); err != nil {
		return err
	}
	for _, s := range c.Subcategories {
		if _, err := tx.ExecContext(ctx,
			`UPDATE subcategories SET product_count = ? WHERE category_slug = ? AND slug = ?`,
			s.ProductCount, c.Slug, s.Slug); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Ensure creates the category named name if it does not exist and registers
// productType as a subcategory when it is missing. Counts are left alone.
func (r *CategoryRepo) Ensure(ctx context.Context, name, productType string, major domain.MajorCategory) error {
	slug := domain.Slugify(name)
	if slug == "" {
		return nil
	}
	if major == "" {
		major = domain.AllMajor
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO categories(slug, name, major_category) VALUES (?, ?, ?)
		ON CONFLICT(slug) DO NOTHING
	`, slug, name, string(major)); err != nil {
		return err
	}
	if subSlug := domain.Slugify(productType); subSlug != "" {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO subcategories(category_slug, slug, name, position)
			SELECT ?, ?, ?, COALESCE(MAX(position) + 1, 0) FROM subcategories WHERE category_slug = ?
			ON CONFLICT(category_slug, slug) DO NOTHING
		`, slug, subSlug, productType, slug); err != nil {
			return err
		}
	}
	return tx.Commit()
}
