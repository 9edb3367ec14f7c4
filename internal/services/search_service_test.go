package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/repos"
	"storefront/internal/services"
)

func TestSearch_ProductsCategoriesAndSubcategories(t *testing.T) {
	s := memdb(t)
	search := services.NewSearchService(s.prods, s.cats)
	ctx := context.Background()

	res, err := search.Search(ctx, "Sneakers")
	require.NoError(t, err)
	assert.Equal(t, []string{"p-snk-002", "p-snk-001"}, ids(res.Products), "newest first")
	assert.Empty(t, res.Categories)
	assert.Equal(t, []services.SubcategoryHit{
		{Name: "Sneakers", Slug: "sneakers", CategoryName: "Footwear", CategorySlug: "footwear"},
	}, res.Subcategories)

	res, err = search.Search(ctx, "watch")
	require.NoError(t, err)
	assert.Equal(t, []string{"p-watch-001"}, ids(res.Products))
	assert.Equal(t, []services.CategoryHit{{Name: "Watches", Slug: "watches"}}, res.Categories)
	assert.Empty(t, res.Subcategories)

	// brand match
	res, err = search.Search(ctx, "tissot")
	require.NoError(t, err)
	assert.Equal(t, []string{"p-watch-001"}, ids(res.Products))
}

func TestSearch_BlankTermIsEmpty(t *testing.T) {
	s := memdb(t)
	search := services.NewSearchService(s.prods, s.cats)

	res, err := search.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.NotNil(t, res.Products)
	assert.Empty(t, res.Products)
	assert.NotNil(t, res.Subcategories)

	sug, err := search.Suggest(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, sug)
	assert.Empty(t, sug)
}

func TestSearch_WildcardsAreLiteral(t *testing.T) {
	s := memdb(t)
	search := services.NewSearchService(s.prods, s.cats)

	for _, term := range []string{"%", "_", `\`} {
		res, err := search.Search(context.Background(), term)
		require.NoError(t, err)
		assert.Empty(t, res.Products, term)
	}
}

func TestSearch_DescriptionOnlyInFullSearch(t *testing.T) {
	s := memdb(t)
	search := services.NewSearchService(s.prods, s.cats)
	ctx := context.Background()

	belt, err := s.catalog.CreateProduct(ctx, services.ProductInput{
		Name: "Belt", Description: "Hand stitched leather", Price: 250, Category: "Accessories",
	})
	require.NoError(t, err)
	_, err = s.catalog.CreateProduct(ctx, services.ProductInput{
		Name: "Stitched Wallet", Price: 150, Category: "Accessories", Active: b(false),
	})
	require.NoError(t, err)

	res, err := search.Search(ctx, "stitched")
	require.NoError(t, err)
	assert.Equal(t, []string{belt.ID}, ids(res.Products), "inactive products are not found")

	sug, err := search.Suggest(ctx, "stitched")
	require.NoError(t, err)
	assert.Empty(t, sug)
}

func TestSuggest_LimitedAndTyped(t *testing.T) {
	s := memdb(t)
	search := services.NewSearchService(s.prods, s.cats)
	ctx := context.Background()

	sug, err := search.Suggest(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, sug, services.SuggestionLimit)

	sug, err = search.Suggest(ctx, "nike")
	require.NoError(t, err)
	assert.Equal(t, []services.Suggestion{
		{Type: "product", ID: "p-snk-001", Name: "Court Sneakers", Brand: "Nike", Category: "footwear"},
	}, sug)
}

func TestProductRepoSearch_Limit(t *testing.T) {
	s := memdb(t)
	ps, err := s.prods.Search(context.Background(), repos.SearchQuery{Term: "e", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, ps, 2)
}
