package profile

import (
	"errors"

	"github.com/EJ-pro/Walky/internal/auth"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

func httpError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}

func parse(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	if err := validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		p, err := svc.Get(c.Context(), auth.UserID(c))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(p)
	})

	r.Put("/", authMiddleware, func(c *fiber.Ctx) error {
		var req UpdateRequest
		if err := parse(c, &req); err != nil {
			return err
		}
		p, err := svc.Update(c.Context(), auth.UserID(c), req)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(p)
	})

	r.Post("/photo", authMiddleware, func(c *fiber.Ctx) error {
		var req PhotoRequest
		if err := parse(c, &req); err != nil {
			return err
		}
		out, err := svc.ReplacePhoto(c.Context(), auth.UserID(c), req.FileName)
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(out)
	})
}
