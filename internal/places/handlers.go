package places

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"backend-urbexqueens/internal/auth"
	"backend-urbexqueens/internal/placestate"
	"backend-urbexqueens/internal/shared/apperr"
	"backend-urbexqueens/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/places", authMiddleware, func(c *fiber.Ctx) error {
		var req Place
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name required")
		}
		req.CreatedBy = auth.UserID(c)
		req.IsVerified = false
		place, err := svc.Catalog().CreatePlace(c.Context(), req)
		if err != nil {
			return apperr.HTTPError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(place)
	})

	r.Get("/places/search", func(c *fiber.Ctx) error {
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
		if errLat != nil || errLng != nil {
			return fiber.NewError(fiber.StatusBadRequest, "lat and lng required")
		}
		radius, _ := strconv.ParseFloat(c.Query("radius_km"), 64)
		if radius <= 0 {
			radius = 5
		}
		results, err := svc.Catalog().Search(c.Context(), lat, lng, radius)
		if err != nil {
			return apperr.HTTPError(err)
		}
		return c.JSON(results)
	})

	r.Get("/places/:id", func(c *fiber.Ctx) error {
		place, err := svc.Catalog().GetPlace(c.Context(), c.Params("id"))
		if err != nil {
			return apperr.HTTPError(err)
		}
		return c.JSON(place)
	})

	r.Get("/me/places", authMiddleware, func(c *fiber.Ctx) error {
		snap, err := svc.Snapshot(c.Context(), auth.UserID(c))
		if err != nil {
			return apperr.HTTPError(err)
		}
		return c.JSON(snap)
	})

	r.Put("/me/places/:placeID/:field", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Value            *bool `json:"value"`
			SkipAchievements bool  `json:"skip_achievements"`
		}
		if err := c.BodyParser(&body); err != nil || body.Value == nil {
			return fiber.NewError(fiber.StatusBadRequest, "value required")
		}
		err := svc.SetFlag(c.Context(), auth.UserID(c), c.Params("placeID"), c.Params("field"), *body.Value,
			SetFlagOptions{SkipAchievements: body.SkipAchievements})
		if err != nil {
			return apperr.HTTPError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/me/places/ws", authMiddleware, websocket.New(func(c *websocket.Conn) {
		userID, _ := c.Locals("user_id").(string)
		updates := make(chan []byte, 16)

		unsubscribe := svc.Subscribe(context.Background(), userID, func(raw placestate.Raw) {
			payload, err := json.Marshal(placestate.NormalizeAndDedupe(raw).List)
			if err != nil {
				slog.Error("encode place state", "user_id", userID, "error", err)
				return
			}
			select {
			case updates <- payload:
			default:
			}
		})

		stream.Pump(c, updates, func() {
			unsubscribe()
			close(updates)
		})
	}))
}
