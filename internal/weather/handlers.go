package weather

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Fetcher is satisfied by *Client.
type Fetcher interface {
	Current(lat, lng float64) (Current, error)
}

func RegisterRoutes(r fiber.Router, client Fetcher, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
		if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return fiber.NewError(fiber.StatusBadRequest, "lat and lng required")
		}

		current, err := client.Current(lat, lng)
		switch {
		case errors.Is(err, ErrNotConfigured):
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		case err != nil:
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(current)
	})
}
