package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/repos"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type ShopHandler struct {
	Shops *services.ShopService
}

// GET /api/v1/shops
func (h *ShopHandler) List(c *fiber.Ctx) error {
	shops, err := h.Shops.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"shops": shops, "count": len(shops)})
}

// GET /api/v1/shops/:slug
func (h *ShopHandler) Detail(c *fiber.Ctx) error {
	slug, ok := validate.Slug(c.Params("slug"))
	if !ok {
		return invalid(c, "slug", c.Params("slug"))
	}
	shop, err := h.Shops.Get(c.UserContext(), slug)
	if err != nil {
		return err
	}
	children, err := h.Shops.Children(c.UserContext(), slug)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"shop": shop, "children": children})
}

// GET /api/v1/shops/:slug/products?sort=&minPrice=&maxPrice=&brand=&page=&limit=
func (h *ShopHandler) Products(c *fiber.Ctx) error {
	slug, ok := validate.Slug(c.Params("slug"))
	if !ok {
		return invalid(c, "slug", c.Params("slug"))
	}
	sort, ok := validate.Sort(c.Query("sort"))
	if !ok {
		return invalid(c, "sort", c.Query("sort"))
	}
	minPrice, ok := validate.OptFloat(c.Query("minPrice"))
	if !ok {
		return invalid(c, "minPrice", c.Query("minPrice"))
	}
	maxPrice, ok := validate.OptFloat(c.Query("maxPrice"))
	if !ok {
		return invalid(c, "maxPrice", c.Query("maxPrice"))
	}
	q := repos.ShopQuery{
		Sort:     sort,
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Brands:   validate.List(c.Query("brand")),
		Limit:    validate.Limit(c.Query("limit"), services.DefaultPageSize, services.MaxPageSize),
	}
	page, err := h.Shops.Products(c.UserContext(), slug, q, validate.Page(c.Query("page")))
	if err != nil {
		return err
	}
	return c.JSON(page)
}
