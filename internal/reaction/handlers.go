package reaction

import (
	"backend-urbexqueens/internal/auth"
	"backend-urbexqueens/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	toggle := func(kind Kind) fiber.Handler {
		return func(c *fiber.Ctx) error {
			var body struct {
				Emoji string `json:"emoji"`
			}
			if err := c.BodyParser(&body); err != nil || body.Emoji == "" {
				return fiber.NewError(fiber.StatusBadRequest, "emoji required")
			}
			if err := svc.Toggle(c.Context(), kind, c.Params("id"), auth.UserID(c), body.Emoji); err != nil {
				return apperr.HTTPError(err)
			}
			return c.SendStatus(fiber.StatusNoContent)
		}
	}

	r.Post("/posts/:id/reactions", authMiddleware, toggle(KindPost))
	r.Post("/stories/:id/reactions", authMiddleware, toggle(KindStory))
}
