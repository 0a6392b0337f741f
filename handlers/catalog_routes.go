// handlers/catalog_routes.go
package handlers

import (
	"recycle-rewards-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCatalogRoutes(app *fiber.App, catalog *services.CatalogService) {
	app.Get("/prizes", func(c *fiber.Ctx) error {
		listings, err := catalog.ListListings(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(listings)
	})

	app.Get("/prizes/:slug", func(c *fiber.Ctx) error {
		p, err := catalog.GetListingBySlug(c.UserContext(), c.Params("slug"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	})
}
