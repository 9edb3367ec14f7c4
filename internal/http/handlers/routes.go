package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	applog "storefront/internal/log"
)

// Register mounts every route on app. Global middleware stays with the caller.
func Register(app *fiber.App, d *Deps) {
	app.Get("/", d.CategoryHandler.Home)
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")

	// forced recomputes scan the whole catalog
	refreshLimiter := limiter.New(limiter.Config{
		Max:        5,
		Expiration: time.Minute,
		Next:       func(c *fiber.Ctx) bool { return !c.QueryBool("refresh") },
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|refresh"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.refresh.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	})
	api.Get("/categories", refreshLimiter, d.CategoryHandler.List)
	api.Get("/categories/:slug", d.CategoryHandler.Detail)

	api.Get("/shops", d.ShopHandler.List)
	api.Get("/shops/:slug", d.ShopHandler.Detail)
	api.Get("/shops/:slug/products", d.ShopHandler.Products)

	api.Get("/search", d.SearchHandler.Products)
	api.Get("/search/suggestions", d.SearchHandler.Suggestions)

	api.Get("/products/:id", d.ProductHandler.Detail)
	api.Post("/products/:id/reviews", limiter.New(limiter.Config{
		Max:        10,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|review"
		},
	}), d.ProductHandler.Review)

	admin := api.Group("/admin", RequireAdmin(d.Auth))
	admin.Post("/products", d.AdminHandler.CreateProduct)
	admin.Post("/products/bulk", d.AdminHandler.CreateProducts)
	admin.Put("/products/:id", d.AdminHandler.UpdateProduct)
	admin.Delete("/products/:id", d.AdminHandler.DeleteProduct)
	admin.Post("/products/:id/reassign", d.AdminHandler.ReassignProduct)
	admin.Post("/reassign", d.AdminHandler.ReassignAll)
	admin.Post("/categories/refresh", d.AdminHandler.RefreshCategories)

	app.Use(func(c *fiber.Ctx) error {
		return ErrorHandler(c, fiber.NewError(fiber.StatusNotFound, "Page not found"))
	})
}
