// handlers/classify_routes.go
package handlers

import (
	"io"

	"recycle-rewards-system/services"

	"github.com/gofiber/fiber/v2"
)

const maxScanBytes = 10 << 20

func SetupClassifyRoutes(app *fiber.App, awards *services.AwardService) {
	app.Post("/classify", func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return badRequest(c, "file is required", err)
		}
		if fh.Size > maxScanBytes {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "image too large"})
		}
		f, err := fh.Open()
		if err != nil {
			return badRequest(c, "cannot read upload", err)
		}
		defer f.Close()

		image, err := io.ReadAll(io.LimitReader(f, maxScanBytes))
		if err != nil {
			return badRequest(c, "cannot read upload", err)
		}

		result, err := awards.ClassifyAndAward(c.UserContext(), c.FormValue("user_id"), image, fh.Header.Get("Content-Type"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(result)
	})
}
