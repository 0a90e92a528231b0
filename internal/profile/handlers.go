package profile

import (
	"backend-urbexqueens/internal/auth"
	"backend-urbexqueens/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/me/profile", authMiddleware, func(c *fiber.Ctx) error {
		p, err := svc.Get(c.Context(), auth.UserID(c))
		if err != nil {
			return apperr.HTTPError(err)
		}
		return c.JSON(p)
	})

	r.Put("/me/profile", authMiddleware, func(c *fiber.Ctx) error {
		var req Update
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		p, err := svc.Update(c.Context(), auth.UserID(c), req)
		if err != nil {
			return apperr.HTTPError(err)
		}
		return c.JSON(p)
	})

	r.Get("/users/:uid", func(c *fiber.Ctx) error {
		p, err := svc.Get(c.Context(), c.Params("uid"))
		if err != nil {
			return apperr.HTTPError(err)
		}
		return c.JSON(p)
	})
}
