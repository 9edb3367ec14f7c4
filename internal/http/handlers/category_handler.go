package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/domain"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type CategoryHandler struct {
	Categories *services.CategoryService
	Shops      *services.ShopService
}

// GET /
func (h *CategoryHandler) Home(c *fiber.Ctx) error {
	cats, err := h.Categories.GetCategories(c.UserContext(), "", false)
	if err != nil {
		return err
	}
	shops, err := h.Shops.List(c.UserContext())
	if err != nil {
		return err
	}
	top := make([]domain.Shop, 0, len(shops))
	for _, s := range shops {
		if s.ParentSlug == "" {
			top = append(top, s)
		}
	}
	return render(c, "home", fiber.Map{"Categories": cats, "Shops": top})
}

// GET /api/v1/categories?majorCategory=&refresh=
func (h *CategoryHandler) List(c *fiber.Ctx) error {
	major, ok := validate.MajorCategory(c.Query("majorCategory"))
	if !ok {
		return invalid(c, "majorCategory", c.Query("majorCategory"))
	}
	cats, err := h.Categories.GetCategories(c.UserContext(), domain.MajorCategory(major), c.QueryBool("refresh"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"categories": cats, "count": len(cats)})
}

// GET /api/v1/categories/:slug
func (h *CategoryHandler) Detail(c *fiber.Ctx) error {
	slug, ok := validate.Slug(c.Params("slug"))
	if !ok {
		return invalid(c, "slug", c.Params("slug"))
	}
	cat, err := h.Categories.GetCategoryBySlug(c.UserContext(), slug)
	if err != nil {
		return err
	}
	return c.JSON(cat)
}
