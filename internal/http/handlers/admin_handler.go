package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type AdminHandler struct {
	Catalog    *services.CatalogService
	Assign     *services.AssignmentService
	Categories *services.CategoryService
}

func (h *AdminHandler) input(c *fiber.Ctx) (services.ProductInput, error) {
	var in services.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return in, invalid(c, "body", nil)
	}
	return in, nil
}

// POST /api/v1/admin/products
func (h *AdminHandler) CreateProduct(c *fiber.Ctx) error {
	in, err := h.input(c)
	if err != nil {
		return err
	}
	p, err := h.Catalog.CreateProduct(c.UserContext(), in)
	if err != nil {
		return err
	}
	applog.Audit(c, "product.create", map[string]any{"product_id": p.ID, "shops": p.AssignedShops})
	return c.Status(fiber.StatusCreated).JSON(p)
}

// POST /api/v1/admin/products/bulk [ {...}, ... ]
func (h *AdminHandler) CreateProducts(c *fiber.Ctx) error {
	var ins []services.ProductInput
	if err := c.BodyParser(&ins); err != nil {
		return invalid(c, "body", nil)
	}
	res, err := h.Catalog.CreateProducts(c.UserContext(), ins)
	if err != nil {
		return err
	}
	applog.Audit(c, "product.bulk.create", map[string]any{"created": len(res.Created), "failed": len(res.Failed)})
	if len(res.Created) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(res)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// PUT /api/v1/admin/products/:id
func (h *AdminHandler) UpdateProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return invalid(c, "id", c.Params("id"))
	}
	in, err := h.input(c)
	if err != nil {
		return err
	}
	p, err := h.Catalog.UpdateProduct(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	applog.Audit(c, "product.update", map[string]any{"product_id": id, "shops": p.AssignedShops})
	return c.JSON(p)
}

// DELETE /api/v1/admin/products/:id
func (h *AdminHandler) DeleteProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return invalid(c, "id", c.Params("id"))
	}
	if err := h.Catalog.DeleteProduct(c.UserContext(), id); err != nil {
		return err
	}
	applog.Audit(c, "product.delete", map[string]any{"product_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

// POST /api/v1/admin/products/:id/reassign
func (h *AdminHandler) ReassignProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return invalid(c, "id", c.Params("id"))
	}
	slugs, err := h.Assign.ReassignOne(c.UserContext(), id)
	if err != nil {
		return err
	}
	if slugs == nil {
		return domain.ErrNotFound
	}
	applog.Audit(c, "product.reassign", map[string]any{"product_id": id, "shops": slugs})
	return c.JSON(fiber.Map{"id": id, "shops": slugs})
}

// POST /api/v1/admin/reassign
func (h *AdminHandler) ReassignAll(c *fiber.Ctx) error {
	sum, err := h.Assign.ReassignAll(c.UserContext())
	if err != nil {
		return err
	}
	applog.Audit(c, "reassign.all", map[string]any{"total": sum.Total, "failed": sum.Failed})
	return c.JSON(sum)
}

// POST /api/v1/admin/categories/refresh
func (h *AdminHandler) RefreshCategories(c *fiber.Ctx) error {
	cats, err := h.Categories.Refresh(c.UserContext())
	if err != nil {
		return err
	}
	applog.Audit(c, "category.refresh", map[string]any{"count": len(cats)})
	return c.JSON(fiber.Map{"categories": cats, "count": len(cats)})
}
