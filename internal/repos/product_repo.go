package repos

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

// sqlite's own datetime layout, kept for every stored timestamp so ORDER BY works lexically
const timeLayout = "2006-01-02 15:04:05"

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

type productRow struct {
	ID            string          `db:"id"`
	Name          string          `db:"name"`
	Description   sql.NullString  `db:"description"`
	Price         float64         `db:"price"`
	OriginalPrice sql.NullFloat64 `db:"original_price"`
	Discount      float64         `db:"discount"`
	Rating        float64         `db:"rating"`
	ReviewCount   int             `db:"review_count"`
	Category      string          `db:"category"`
	Subcategory   string          `db:"subcategory"`
	ProductType   string          `db:"product_type"`
	Brand         string          `db:"brand"`
	MajorCategory string          `db:"major_category"`
	IsTrending    bool            `db:"is_trending"`
	Active        bool            `db:"active"`
	DateAdded     sql.NullString  `db:"date_added"`
	CreatedAt     sql.NullString  `db:"created_at"`
	UpdatedAt     sql.NullString  `db:"updated_at"`
}

const productColumns = `
    p.id, p.name, p.description, p.price, p.original_price, p.discount, p.rating, p.review_count,
    p.category, p.subcategory, p.product_type, p.brand, p.major_category, p.is_trending, p.active,
    p.date_added, p.created_at, p.updated_at`

func (r productRow) toDomain() domain.Product {
	p := domain.Product{
		ID:            r.ID,
		Name:          r.Name,
		Description:   r.Description.String,
		Price:         r.Price,
		Discount:      r.Discount,
		Rating:        r.Rating,
		ReviewCount:   r.ReviewCount,
		Category:      r.Category,
		Subcategory:   r.Subcategory,
		ProductType:   r.ProductType,
		Brand:         r.Brand,
		MajorCategory: domain.MajorCategory(r.MajorCategory),
		IsTrending:    r.IsTrending,
		Active:        r.Active,
		CreatedAt:     r.CreatedAt.String,
		UpdatedAt:     r.UpdatedAt.String,
		AssignedShops: []string{},
	}
	if r.OriginalPrice.Valid {
		v := r.OriginalPrice.Float64
		p.OriginalPrice = &v
	}
	if t, ok := parseTime(r.DateAdded.String); ok {
		p.DateAdded = &t
	}
	return p
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

// FindByID loads a product with its current shop membership.
func (r *ProductRepo) FindByID(ctx context.Context, id string) (domain.Product, error) {
	var row productRow
	err := r.db.GetContext(ctx, &row, `SELECT `+productColumns+` FROM products p WHERE p.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, err
	}
	p := row.toDomain()
	if err := r.db.SelectContext(ctx, &p.AssignedShops,
		`SELECT shop_slug FROM product_shops WHERE product_id = ? ORDER BY shop_slug`, id); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

// FindActive returns every active product with its membership.
func (r *ProductRepo) FindActive(ctx context.Context) ([]domain.Product, error) {
	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT `+productColumns+` FROM products p WHERE p.active = 1 ORDER BY p.id`); err != nil {
		return nil, err
	}
	var links []struct {
		ProductID string `db:"product_id"`
		ShopSlug  string `db:"shop_slug"`
	}
	if err := r.db.SelectContext(ctx, &links,
		`SELECT product_id, shop_slug FROM product_shops ORDER BY product_id, shop_slug`); err != nil {
		return nil, err
	}
	byProduct := make(map[string][]string, len(rows))
	for _, l := range links {
		byProduct[l.ProductID] = append(byProduct[l.ProductID], l.ShopSlug)
	}
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		p := row.toDomain()
		if slugs, ok := byProduct[p.ID]; ok {
			p.AssignedShops = slugs
		}
		out = append(out, p)
	}
	return out, nil
}

// UpdateMembership replaces the stored shop set of a product.
func (r *ProductRepo) UpdateMembership(ctx context.Context, id string, slugs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM product_shops WHERE product_id = ?`, id); err != nil {
		return err
	}
	for _, slug := range slugs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO product_shops(product_id, shop_slug) VALUES (?, ?) ON CONFLICT DO NOTHING`, id, slug); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *ProductRepo) UpdateMajorCategory(ctx context.Context, id string, major domain.MajorCategory) error {
	_, err := r.db.ExecContext(ctx, `UPDATE products SET major_category = ? WHERE id = ?`, string(major), id)
	return err
}

// CountFilter selects active products by lowercase identity. Empty lists do
// not constrain.
type CountFilter struct {
	Categories    []string
	Subcategories []string
}

// CountActive counts active products whose category is one of f.Categories
// and whose subcategory or product type is one of f.Subcategories, ignoring case.
func (r *ProductRepo) CountActive(ctx context.Context, f CountFilter) (int, error) {
	where := `active = 1`
	args := []any{}
	if len(f.Categories) > 0 {
		where += ` AND LOWER(category) IN (?)`
		args = append(args, f.Categories)
	}
	if len(f.Subcategories) > 0 {
		where += ` AND (LOWER(subcategory) IN (?) OR LOWER(product_type) IN (?))`
		args = append(args, f.Subcategories, f.Subcategories)
	}
	query, args, err := sqlx.In(`SELECT COUNT(*) FROM products WHERE `+where, args...)
	if err != nil {
		return 0, err
	}
	var n int
	err = r.db.GetContext(ctx, &n, r.db.Rebind(query), args...)
	return n, err
}

func (r *ProductRepo) Create(ctx context.Context, p domain.Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products(
			id, name, description, price, original_price, discount, rating, review_count,
			category, subcategory, product_type, brand, major_category, is_trending, active, date_added
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Description, p.Price, p.OriginalPrice, p.Discount, p.Rating, p.ReviewCount,
		p.Category, p.Subcategory, p.ProductType, p.Brand, string(p.MajorCategory), p.IsTrending, p.Active,
		formatTime(p.DateAdded))
	return err
}

// Update overwrites the editable attributes. Rating and review count are only
// changed through RecordReview.
func (r *ProductRepo) Update(ctx context.Context, p domain.Product) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET
			name = ?, description = ?, price = ?, original_price = ?, discount = ?,
			category = ?, subcategory = ?, product_type = ?, brand = ?, major_category = ?,
			is_trending = ?, active = ?, date_added = ?, updated_at = ?
		WHERE id = ?
	`, p.Name, p.Description, p.Price, p.OriginalPrice, p.Discount,
		p.Category, p.Subcategory, p.ProductType, p.Brand, string(p.MajorCategory),
		p.IsTrending, p.Active, formatTime(p.DateAdded), time.Now().UTC().Format(timeLayout), p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the product and its membership rows.
func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM product_shops WHERE product_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordReview folds one rating into the running average.
func (r *ProductRepo) RecordReview(ctx context.Context, id string, rating float64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET
			rating = (rating * review_count + ?) / (review_count + 1),
			review_count = review_count + 1,
			updated_at = ?
		WHERE id = ?
	`, rating, time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ShopQuery narrows and orders a shop's product listing.
type ShopQuery struct {
	Sort     string
	MinPrice *float64
	MaxPrice *float64
	Brands   []string
	Limit    int
	Offset   int
}

var sortClauses = map[string]string{
	"popular":       `p.rating DESC, p.review_count DESC, p.id`,
	"newest":        `p.date_added DESC, p.id`,
	"price-low":     `p.price ASC, p.id`,
	"price-high":    `p.price DESC, p.id`,
	"discount-high": `p.discount DESC, (COALESCE(p.original_price, p.price) - p.price) DESC, p.id`,
}

// SortKnown reports whether s names a supported listing order.
func SortKnown(s string) bool {
	_, ok := sortClauses[s]
	return ok
}

// ListByShop returns one page of active products assigned to the shop and the
// total number of matches.
func (r *ProductRepo) ListByShop(ctx context.Context, slug string, q ShopQuery) ([]domain.Product, int, error) {
	where := `ps.shop_slug = ? AND p.active = 1`
	args := []any{slug}
	if q.MinPrice != nil {
		where += ` AND p.price >= ?`
		args = append(args, *q.MinPrice)
	}
	if q.MaxPrice != nil {
		where += ` AND p.price <= ?`
		args = append(args, *q.MaxPrice)
	}
	if len(q.Brands) > 0 {
		lower := make([]string, 0, len(q.Brands))
		for _, b := range q.Brands {
			lower = append(lower, strings.ToLower(strings.TrimSpace(b)))
		}
		where += ` AND LOWER(p.brand) IN (?)`
		args = append(args, lower)
	}
	from := ` FROM products p JOIN product_shops ps ON ps.product_id = p.id WHERE ` + where

	countQ, countArgs, err := sqlx.In(`SELECT COUNT(*)`+from, args...)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(countQ), countArgs...); err != nil {
		return nil, 0, err
	}

	order, ok := sortClauses[q.Sort]
	if !ok {
		order = sortClauses["popular"]
	}
	listQ, listArgs, err := sqlx.In(`SELECT `+productColumns+from+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(listQ), listArgs...); err != nil {
		return nil, 0, err
	}
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchQuery matches active products whose name, brand, category or
// subcategory contains Term, ignoring case. WithDescription widens the match
// to descriptions.
type SearchQuery struct {
	Term            string
	WithDescription bool
	Limit           int
}

// Search returns matching products, most recently created first.
func (r *ProductRepo) Search(ctx context.Context, q SearchQuery) ([]domain.Product, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(q.Term))) + "%"
	fields := []string{"p.name", "p.brand", "p.category", "p.subcategory"}
	if q.WithDescription {
		fields = append(fields, "COALESCE(p.description, '')")
	}
	conds := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for _, f := range fields {
		conds = append(conds, `LOWER(`+f+`) LIKE ? ESCAPE '\'`)
		args = append(args, pattern)
	}
	args = append(args, q.Limit)

	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT `+productColumns+`
		FROM products p
		WHERE p.active = 1 AND (`+strings.Join(conds, ` OR `)+`)
		ORDER BY p.created_at DESC, p.rowid DESC
		LIMIT ?`, args...); err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
