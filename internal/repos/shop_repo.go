package repos

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
	applog "storefront/internal/log"
)

type ShopRepo struct{ db *sqlx.DB }

func NewShopRepo(db *sqlx.DB) *ShopRepo { return &ShopRepo{db: db} }

type shopRow struct {
	Slug          string         `db:"slug"`
	Name          string         `db:"name"`
	Route         sql.NullString `db:"route"`
	MajorCategory string         `db:"major_category"`
	ShopType      sql.NullString `db:"shop_type"`
	CriteriaJSON  string         `db:"criteria_json"`
	DefaultSort   string         `db:"default_sort"`
	ParentSlug    sql.NullString `db:"parent_slug"`
}

const shopColumns = `slug, name, route, major_category, shop_type, criteria_json, default_sort, parent_slug`

func (r shopRow) toDomain() (domain.Shop, error) {
	s := domain.Shop{
		Slug:          r.Slug,
		Name:          r.Name,
		Route:         r.Route.String,
		MajorCategory: domain.MajorCategory(r.MajorCategory),
		ShopType:      r.ShopType.String,
		DefaultSort:   r.DefaultSort,
		ParentSlug:    r.ParentSlug.String,
	}
	if r.CriteriaJSON != "" {
		if err := json.Unmarshal([]byte(r.CriteriaJSON), &s.Criteria); err != nil {
			return domain.Shop{}, fmt.Errorf("shop %s criteria: %w", r.Slug, err)
		}
	}
	return s, nil
}

// ListAll returns every shop definition in creation order. A shop whose
// stored criteria cannot be decoded is logged and left out.
func (r *ShopRepo) ListAll(ctx context.Context) ([]domain.Shop, error) {
	var rows []shopRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+shopColumns+` FROM shops ORDER BY created_at, rowid`); err != nil {
		return nil, err
	}
	out := make([]domain.Shop, 0, len(rows))
	for _, row := range rows {
		s, err := row.toDomain()
		if err != nil {
			applog.Error(nil, "shop.criteria.invalid", err, map[string]any{"slug": row.Slug})
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *ShopRepo) Get(ctx context.Context, slug string) (domain.Shop, error) {
	var row shopRow
	err := r.db.GetContext(ctx, &row, `SELECT `+shopColumns+` FROM shops WHERE slug = ?`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Shop{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Shop{}, err
	}
	return row.toDomain()
}

// InsertMissing adds shops whose slug is not stored yet and reports how many
// were inserted.
func (r *ShopRepo) InsertMissing(shops []domain.Shop) (int, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for _, s := range shops {
		crit, err := json.Marshal(s.Criteria)
		if err != nil {
			return 0, err
		}
		sort := s.DefaultSort
		if sort == "" {
			sort = "popular"
		}
		res, err := tx.Exec(`
			INSERT INTO shops(slug, name, route, major_category, shop_type, criteria_json, default_sort, parent_slug)
			VALUES (?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''))
			ON CONFLICT(slug) DO NOTHING
		`, s.Slug, s.Name, s.Route, string(s.MajorCategory), s.ShopType, string(crit), sort, s.ParentSlug)
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	return inserted, tx.Commit()
}
