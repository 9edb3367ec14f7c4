package repos

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

func mockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "sqlite"), mock
}

func TestProductRepo_UpdateMembershipRollsBack(t *testing.T) {
	db, mock := mockDB(t)
	repo := NewProductRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM product_shops WHERE product_id = ?`)).
		WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO product_shops(product_id, shop_slug)`)).
		WithArgs("p1", "deals").WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	err := repo.UpdateMembership(context.Background(), "p1", []string{"deals", "offers"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_FindByIDNotFound(t *testing.T) {
	db, mock := mockDB(t)
	repo := NewProductRepo(db)

	mock.ExpectQuery(`SELECT .+ FROM products p WHERE p.id = \?`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_UpdateMissingRow(t *testing.T) {
	db, mock := mockDB(t)
	repo := NewProductRepo(db)

	mock.ExpectExec(`UPDATE products SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), domain.Product{ID: "ghost", Name: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_CountActiveExpandsIdentities(t *testing.T) {
	db, mock := mockDB(t)
	repo := NewProductRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT COUNT(*) FROM products WHERE active = 1 AND LOWER(category) IN (?, ?) AND (LOWER(subcategory) IN (?) OR LOWER(product_type) IN (?))`)).
		WithArgs("clothing", "apparel", "sweatshirts", "sweatshirts").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(4))

	n, err := repo.CountActive(context.Background(), CountFilter{
		Categories:    []string{"clothing", "apparel"},
		Subcategories: []string{"sweatshirts"},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepo_SaveRollsBackOnSubcategoryError(t *testing.T) {
	db, mock := mockDB(t)
	repo := NewCategoryRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE categories SET product_count = ?`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE subcategories SET product_count = ?`)).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), domain.Category{
		Slug:          "clothing",
		ProductCount:  3,
		Subcategories: []domain.Subcategory{{Slug: "t-shirts", ProductCount: 2}},
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
