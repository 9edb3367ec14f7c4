package services_test

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repos"
	"storefront/internal/services"
)

type stack struct {
	db      *sqlx.DB
	prods   *repos.ProductRepo
	cats    *repos.CategoryRepo
	assign  *services.AssignmentService
	catalog *services.CatalogService
	shops   *services.ShopService
	catsSvc *services.CategoryService
}

// memdb opens a seeded in-memory store and wires the services over it.
func memdb(t *testing.T) stack {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	prods := repos.NewProductRepo(db)
	cats := repos.NewCategoryRepo(db)
	shopRepo := repos.NewShopRepo(db)
	assign := services.NewAssignmentService(prods, shopRepo, 2)
	return stack{
		db:      db,
		prods:   prods,
		cats:    cats,
		assign:  assign,
		catalog: services.NewCatalogService(prods, cats, assign),
		shops:   services.NewShopService(shopRepo, prods),
		catsSvc: services.NewCategoryService(services.NewCategoryAggregator(prods, cats)),
	}
}

func TestReassignAll_SeededCatalog(t *testing.T) {
	s := memdb(t)
	ctx := context.Background()

	sum, err := s.assign.ReassignAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, services.BatchSummary{Total: 6, Succeeded: 6}, sum)

	want := map[string][]string{
		"p-tee-001": {"affordable", "best-sellers", "deals", "fresh-arrival", "new-arrivals",
			"offers", "todays-deal", "trending", "under-999"},
		"p-sweat-001": {"affordable", "best-sellers", "deals", "offers", "under-999"},
		"p-snk-001":   {"luxury-shop"},
		"p-snk-002":   {"affordable", "new-arrivals", "under-999"},
		"p-frag-001":  {"luxury-fragrances", "luxury-shop"},
		"p-watch-001": {"luxury-shop", "luxury-watches"},
	}
	for id, slugs := range want {
		p, err := s.prods.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, slugs, p.AssignedShops, id)
	}

	// second pass over an unchanged catalog is a no-op
	again, err := s.assign.ReassignAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, sum, again)
	p, err := s.prods.FindByID(ctx, "p-tee-001")
	require.NoError(t, err)
	assert.Equal(t, want["p-tee-001"], p.AssignedShops)
}

func TestReassign_MalformedShopRuleIsSkipped(t *testing.T) {
	s := memdb(t)
	ctx := context.Background()

	_, err := s.db.Exec(`INSERT INTO shops(slug, name, criteria_json) VALUES ('bad', 'Bad', '{"priceMin":"cheap"}')`)
	require.NoError(t, err)

	slugs, err := s.assign.ReassignOne(ctx, "p-tee-001")
	require.NoError(t, err)
	assert.Len(t, slugs, 9)
	assert.NotContains(t, slugs, "bad")

	sum, err := s.assign.ReassignAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, services.BatchSummary{Total: 6, Succeeded: 6}, sum)
}

func TestCatalog_CreateAssignsAndEnsuresCategory(t *testing.T) {
	s := memdb(t)
	ctx := context.Background()

	p, err := s.catalog.CreateProduct(ctx, services.ProductInput{
		Name:        "Linen Shirt",
		Price:       450,
		Category:    "Clothing",
		ProductType: "Shirt",
		IsTrending:  true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, domain.Affordable, p.MajorCategory)
	assert.Equal(t, "shirt", p.Subcategory)
	assert.True(t, p.Active)
	require.NotNil(t, p.DateAdded)
	assert.Equal(t, []string{"affordable", "fresh-arrival", "new-arrivals", "trending", "under-999"}, p.AssignedShops)

	stored, err := s.prods.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.AssignedShops, stored.AssignedShops)

	cat, err := s.cats.GetBySlug(ctx, "clothing")
	require.NoError(t, err)
	var subSlugs []string
	for _, sc := range cat.Subcategories {
		subSlugs = append(subSlugs, sc.Slug)
	}
	assert.Equal(t, []string{"t-shirts", "sweatshirts", "shirt"}, subSlugs)
}

func TestCatalog_CreateNewCategory(t *testing.T) {
	s := memdb(t)
	ctx := context.Background()

	_, err := s.catalog.CreateProduct(ctx, services.ProductInput{
		Name: "Silk Scarf", Price: 300, Category: "Accessories", ProductType: "Scarves",
	})
	require.NoError(t, err)

	cat, err := s.catsSvc.GetCategoryBySlug(ctx, "accessories")
	require.NoError(t, err)
	assert.Equal(t, 1, cat.ProductCount)
	require.Len(t, cat.Subcategories, 1)
	assert.Equal(t, "scarves", cat.Subcategories[0].Slug)
	assert.Equal(t, 1, cat.Subcategories[0].ProductCount)
}

func TestCatalog_CreateProductsContinuesPastBadItems(t *testing.T) {
	s := memdb(t)
	ctx := context.Background()

	res, err := s.catalog.CreateProducts(ctx, []services.ProductInput{
		{Name: "Bulk Tee", Price: 300, Category: "Clothing", ProductType: "T-Shirts"},
		{Name: "", Price: 10, Category: "Clothing"},
		{Name: "Bulk Watch", Price: 9000, Category: "Watches", Brand: "Casio"},
	})
	require.NoError(t, err)
	require.Len(t, res.Created, 2)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 1, res.Failed[0].Index)
	assert.Contains(t, res.Failed[0].Error, "name")

	assert.Contains(t, res.Created[0].AssignedShops, "affordable")
	assert.Equal(t, []string{"luxury-shop", "luxury-watches"}, res.Created[1].AssignedShops)

	stored, err := s.prods.FindByID(ctx, res.Created[1].ID)
	require.NoError(t, err)
	assert.Equal(t, res.Created[1].AssignedShops, stored.AssignedShops)
}

func TestCatalog_CreateProductsRejectsBadBatch(t *testing.T) {
	s := memdb(t)
	ctx := context.Background()

	_, err := s.catalog.CreateProducts(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.catalog.CreateProducts(ctx, make([]services.ProductInput, services.MaxBulkProducts+1))
	assert.ErrorIs(t, err, domain.ErrValidation)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	res, err := s.catalog.CreateProducts(cancelled, []services.ProductInput{
		{Name: "A", Price: 1, Category: "Clothing"},
		{Name: "B", Price: 1, Category: "Clothing"},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Len(t, res.Failed, 2)
}

func TestCatalog_UpdateMovesToLuxury(t *testing.T) {
	s := memdb(t)
	ctx := context.Background()

	p, err := s.catalog.CreateProduct(ctx, services.ProductInput{
		Name: "Linen Shirt", Price: 450, Category: "Clothing", ProductType: "Shirt",
	})
	require.NoError(t, err)

	upd, err := s.catalog.UpdateProduct(ctx, p.ID, services.ProductInput{
		Name: "Linen Shirt", Price: 1500, Category: "Clothing", ProductType: "Shirt", Brand: "Zara",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Luxury, upd.MajorCategory)
	assert.Equal(t, []string{"luxury-shop"}, upd.AssignedShops)
	assert.Equal(t, p.DateAdded.Unix(), upd.DateAdded.Unix(), "omitted dateAdded keeps the stored value")

	stored, err := s.prods.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Luxury, stored.MajorCategory)
}

func TestCatalog_UpdateMissing(t *testing.T) {
	s := memdb(t)
	_, err := s.catalog.UpdateProduct(context.Background(), "nope", services.ProductInput{
		Name: "x", Price: 1, Category: "Clothing",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalog_Validation(t *testing.T) {
	s := memdb(t)
	ctx := context.Background()

	cases := map[string]services.ProductInput{
		"no name":        {Price: 1, Category: "Clothing"},
		"no category":    {Name: "x", Price: 1},
		"negative price": {Name: "x", Price: -1, Category: "Clothing"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.catalog.CreateProduct(ctx, in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestCatalog_ReviewsPromoteToBestSellers(t *testing.T) {
	s := memdb(t)
	ctx := context.Background()

	p, err := s.catalog.CreateProduct(ctx, services.ProductInput{
		Name: "Canvas Tote", Price: 450, Category: "Bags", ProductType: "Tote",
	})
	require.NoError(t, err)
	assert.NotContains(t, p.AssignedShops, "best-sellers")

	for i := 0; i < 5; i++ {
		p, err = s.catalog.RecordReview(ctx, p.ID, 5)
		require.NoError(t, err)
	}
	assert.Equal(t, 5, p.ReviewCount)
	assert.InDelta(t, 5.0, p.Rating, 1e-9)
	assert.Equal(t, []string{"affordable", "best-sellers", "fresh-arrival", "new-arrivals", "under-999"}, p.AssignedShops)

	_, err = s.catalog.RecordReview(ctx, p.ID, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = s.catalog.RecordReview(ctx, "nope", 4)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalog_Delete(t *testing.T) {
	s := memdb(t)
	ctx := context.Background()
	_, err := s.assign.ReassignAll(ctx)
	require.NoError(t, err)

	require.NoError(t, s.catalog.DeleteProduct(ctx, "p-snk-002"))
	_, err = s.catalog.GetProduct(ctx, "p-snk-002")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.catalog.DeleteProduct(ctx, "p-snk-002"), domain.ErrNotFound)

	var links int
	require.NoError(t, s.db.Get(&links, `SELECT COUNT(*) FROM product_shops WHERE product_id = 'p-snk-002'`))
	assert.Zero(t, links)
}

func TestShopService_ProductsPaging(t *testing.T) {
	s := memdb(t)
	ctx := context.Background()
	_, err := s.assign.ReassignAll(ctx)
	require.NoError(t, err)

	page, err := s.shops.Products(ctx, "affordable", repos.ShopQuery{Sort: "price-low", Limit: 2}, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.True(t, page.HasMore)
	assert.Equal(t, []string{"p-tee-001", "p-snk-002"}, ids(page.Products))

	page, err = s.shops.Products(ctx, "affordable", repos.ShopQuery{Sort: "price-low", Limit: 2}, 2)
	require.NoError(t, err)
	assert.False(t, page.HasMore)
	assert.Equal(t, []string{"p-sweat-001"}, ids(page.Products))

	// shop default sort is popular: rating desc
	page, err = s.shops.Products(ctx, "affordable", repos.ShopQuery{}, 1)
	require.NoError(t, err)
	assert.Equal(t, services.DefaultPageSize, page.Limit)
	assert.Equal(t, []string{"p-sweat-001", "p-tee-001", "p-snk-002"}, ids(page.Products))

	page, err = s.shops.Products(ctx, "affordable", repos.ShopQuery{MinPrice: f(600), Sort: "price-high"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-sweat-001", "p-snk-002"}, ids(page.Products))

	page, err = s.shops.Products(ctx, "luxury-shop", repos.ShopQuery{Brands: []string{"nike", "TISSOT"}, Sort: "price-low"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-snk-001", "p-watch-001"}, ids(page.Products))

	_, err = s.shops.Products(ctx, "nope", repos.ShopQuery{}, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestShopService_Children(t *testing.T) {
	s := memdb(t)
	kids, err := s.shops.Children(context.Background(), "luxury-shop")
	require.NoError(t, err)
	var got []string
	for _, k := range kids {
		got = append(got, k.Slug)
	}
	assert.Equal(t, []string{"luxury-fragrances", "luxury-lipsticks", "luxury-eyewear", "luxury-skincare", "luxury-watches"}, got)
}

func TestCategoryService_SeededTree(t *testing.T) {
	s := memdb(t)
	ctx := context.Background()

	all, err := s.catsSvc.GetCategories(ctx, "", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"clothing", "footwear", "fragrances", "watches"}, slugs(all))
	assert.Equal(t, 2, all[0].ProductCount)

	lux, err := s.catsSvc.GetCategories(ctx, domain.Luxury, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"footwear", "fragrances", "watches"}, slugs(lux))

	stored, err := s.cats.GetBySlug(ctx, "footwear")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.ProductCount, "counts are persisted")
	assert.Equal(t, 2, stored.Subcategories[0].ProductCount)
}

func ids(ps []domain.Product) []string {
	out := []string{}
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}
