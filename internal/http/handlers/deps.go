package handlers

import (
	"github.com/jmoiron/sqlx"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/repos"
	"storefront/internal/services"
)

type Deps struct {
	CategoryHandler *CategoryHandler
	ShopHandler     *ShopHandler
	ProductHandler  *ProductHandler
	AdminHandler    *AdminHandler
	SearchHandler   *SearchHandler

	Auth       *services.AdminAuth
	Assign     *services.AssignmentService
	Categories *services.CategoryService
}

func NewDeps(db *sqlx.DB, cfg config.Config) *Deps {
	catRepo := repos.NewCategoryRepo(db)
	prodRepo := repos.NewProductRepo(db)
	shopRepo := repos.NewShopRepo(db)

	assignSvc := services.NewAssignmentService(prodRepo, shopRepo, cfg.ReassignWorkers)
	catalogSvc := services.NewCatalogService(prodRepo, catRepo, assignSvc)
	shopSvc := services.NewShopService(shopRepo, prodRepo)
	catSvc := services.NewCategoryService(
		services.NewCategoryAggregator(prodRepo, catRepo),
		cache.WithTTL(cfg.CategoryTTL),
	)

	return &Deps{
		CategoryHandler: &CategoryHandler{Categories: catSvc, Shops: shopSvc},
		ShopHandler:     &ShopHandler{Shops: shopSvc},
		ProductHandler:  &ProductHandler{Catalog: catalogSvc},
		AdminHandler:    &AdminHandler{Catalog: catalogSvc, Assign: assignSvc, Categories: catSvc},
		SearchHandler:   &SearchHandler{Search: services.NewSearchService(prodRepo, catRepo)},

		Auth:       services.NewAdminAuth(cfg.AdminKeyHash),
		Assign:     assignSvc,
		Categories: catSvc,
	}
}
