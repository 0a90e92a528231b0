package achievement

import (
	"backend-urbexqueens/internal/auth"
	"backend-urbexqueens/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, evaluator *Evaluator, authMiddleware fiber.Handler) {
	r.Get("/me/achievements", authMiddleware, func(c *fiber.Ctx) error {
		awards, err := evaluator.List(c.Context(), auth.UserID(c))
		if err != nil {
			return apperr.HTTPError(err)
		}
		return c.JSON(awards)
	})
}
