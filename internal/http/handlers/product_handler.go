package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

// GET /api/v1/products/:id
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return invalid(c, "id", c.Params("id"))
	}
	p, err := h.Catalog.GetProduct(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// POST /api/v1/products/:id/reviews {"rating": 1..5}
func (h *ProductHandler) Review(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return invalid(c, "id", c.Params("id"))
	}
	var body struct {
		Rating float64 `json:"rating"`
	}
	if err := c.BodyParser(&body); err != nil {
		return invalid(c, "body", nil)
	}
	p, err := h.Catalog.RecordReview(c.UserContext(), id, body.Rating)
	if err != nil {
		return err
	}
	applog.Info(c, "product.review", map[string]any{"product_id": id, "rating": body.Rating})
	return c.Status(fiber.StatusCreated).JSON(p)
}
