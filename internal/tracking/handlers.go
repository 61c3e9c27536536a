package tracking

import (
	"errors"

	"github.com/EJ-pro/Walky/internal/auth"
	"github.com/EJ-pro/Walky/internal/walk"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNoSession):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, walk.ErrNotStarted):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrPersist):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
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
	r.Get("/session", authMiddleware, func(c *fiber.Ctx) error {
		snap, err := svc.Snapshot(c.Context(), auth.UserID(c))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(snap)
	})

	r.Post("/session/start-location", authMiddleware, func(c *fiber.Ctx) error {
		var req StartLocationRequest
		if err := parse(c, &req); err != nil {
			return err
		}
		snap, err := svc.StartLocation(c.Context(), auth.UserID(c), req.Lat, req.Lng)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(snap)
	})

	r.Post("/session/start", authMiddleware, func(c *fiber.Ctx) error {
		var req StartRequest
		if len(c.Body()) > 0 {
			if err := parse(c, &req); err != nil {
				return err
			}
		}
		snap, err := svc.Start(c.Context(), auth.UserID(c), walk.ParseMode(req.Mode), walk.ParseStepSource(req.StepSource))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(snap)
	})

	r.Post("/session/pause", authMiddleware, func(c *fiber.Ctx) error {
		snap, err := svc.TogglePause(c.Context(), auth.UserID(c))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(snap)
	})

	r.Post("/session/samples", authMiddleware, func(c *fiber.Ctx) error {
		var req SamplesRequest
		if err := parse(c, &req); err != nil {
			return err
		}
		accepted, snap, err := svc.Samples(c.Context(), auth.UserID(c), req.Samples)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(SamplesResponse{Accepted: accepted, Snapshot: snap})
	})

	r.Post("/session/steps", authMiddleware, func(c *fiber.Ctx) error {
		var req StepsRequest
		if err := parse(c, &req); err != nil {
			return err
		}
		snap, err := svc.SensorSteps(c.Context(), auth.UserID(c), req.Cumulative)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(snap)
	})

	r.Post("/session/finish", authMiddleware, func(c *fiber.Ctx) error {
		rec, err := svc.Finish(c.Context(), auth.UserID(c))
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	})

	r.Post("/session/discard", authMiddleware, func(c *fiber.Ctx) error {
		snap, err := svc.Discard(c.Context(), auth.UserID(c))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(snap)
	})
}
