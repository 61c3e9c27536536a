package records

import (
	"github.com/EJ-pro/Walky/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		walks, err := svc.Recent(c.Context(), auth.UserID(c), c.QueryInt("limit", defaultRecentLimit))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(walks)
	})

	r.Get("/today", authMiddleware, func(c *fiber.Ctx) error {
		totals, err := svc.Today(c.Context(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(totals)
	})

	r.Get("/weekly", authMiddleware, func(c *fiber.Ctx) error {
		summary, err := svc.Weekly(c.Context(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(summary)
	})
}
