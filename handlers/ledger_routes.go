// handlers/ledger_routes.go
package handlers

import (
	"strings"

	"recycle-rewards-system/services"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

// userKey accepts either field; clients of the old API send "email".
func (r registerRequest) userKey() string {
	if strings.TrimSpace(r.UserID) != "" {
		return r.UserID
	}
	return r.Email
}

type creditRequest struct {
	UserID string `json:"user_id"`
	Amount *int64 `json:"amount"`
}

type redeemRequest struct {
	UserID string `json:"user_id"`
	Prize  string `json:"prize"`
}

// SetupLedgerRoutes wires account, balance, redemption and history routes.
func SetupLedgerRoutes(app *fiber.App, accounts *services.AccountService, awards *services.AwardService,
	redemptions *services.RedemptionService, history *services.HistoryService) {

	app.Post("/register", func(c *fiber.Ctx) error {
		var req registerRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON", err)
		}
		acct, err := accounts.Register(c.UserContext(), req.userKey(), req.DisplayName, req.Password)
		if err != nil {
			return respondError(c, err)
		}
		bal := acct.Balance()
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"user_id":          acct.UserID,
			"display_name":     acct.DisplayName,
			"spendable_points": bal.Spendable,
			"lifetime_points":  bal.Lifetime,
		})
	})

	app.Post("/login", func(c *fiber.Ctx) error {
		var req registerRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON", err)
		}
		bal, err := accounts.Authenticate(c.UserContext(), req.userKey(), req.Password)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(bal)
	})

	app.Get("/users/:user_id/points", func(c *fiber.Ctx) error {
		bal, err := accounts.GetBalance(c.UserContext(), c.Params("user_id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(bal)
	})

	app.Post("/points/credit", func(c *fiber.Ctx) error {
		var req creditRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON", err)
		}
		if req.Amount == nil {
			return badRequest(c, "amount is required", nil)
		}
		bal, err := awards.AwardPoints(c.UserContext(), req.UserID, *req.Amount)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(bal)
	})

	app.Post("/points/redeem", func(c *fiber.Ctx) error {
		var req redeemRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON", err)
		}
		if strings.TrimSpace(req.Prize) == "" {
			return badRequest(c, "prize is required", nil)
		}
		bal, err := redemptions.Redeem(c.UserContext(), req.UserID, req.Prize)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(bal)
	})

	app.Get("/history/:user_id", func(c *fiber.Ctx) error {
		events, err := services.Collect(history.HistoryFor(c.UserContext(), c.Params("user_id")))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(events)
	})
}
