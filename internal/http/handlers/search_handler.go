package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/services"
	"storefront/internal/validate"
)

type SearchHandler struct {
	Search *services.SearchService
}

// query returns the validated term; a blank q is "" with no error.
func query(c *fiber.Ctx) (string, error) {
	raw := c.Query("q")
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	q, ok := validate.Q(raw)
	if !ok {
		return "", invalid(c, "q", raw)
	}
	return q, nil
}

// GET /api/v1/search?q=
func (h *SearchHandler) Products(c *fiber.Ctx) error {
	q, err := query(c)
	if err != nil {
		return err
	}
	res, err := h.Search.Search(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// GET /api/v1/search/suggestions?q=
func (h *SearchHandler) Suggestions(c *fiber.Ctx) error {
	q, err := query(c)
	if err != nil {
		return err
	}
	out, err := h.Search.Suggest(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"suggestions": out, "count": len(out)})
}
