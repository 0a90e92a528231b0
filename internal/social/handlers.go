package social

import (
	"context"
	"encoding/json"

	"backend-urbexqueens/internal/auth"
	"backend-urbexqueens/internal/shared/apperr"
	"backend-urbexqueens/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/follow/:uid", authMiddleware, func(c *fiber.Ctx) error {
		requestID, err := svc.FollowOrRequest(c.Context(), auth.UserID(c), c.Params("uid"))
		if err != nil {
			return apperr.HTTPError(err)
		}
		if requestID != "" {
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"request_id": requestID, "status": StatusPending})
		}
		return c.SendStatus(fiber.StatusCreated)
	})

	r.Delete("/follow/:uid", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Unfollow(c.Context(), auth.UserID(c), c.Params("uid")); err != nil {
			return apperr.HTTPError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/requests", authMiddleware, func(c *fiber.Ctx) error {
		requests, err := svc.PendingRequests(c.Context(), auth.UserID(c))
		if err != nil {
			return apperr.HTTPError(err)
		}
		return c.JSON(requests)
	})

	r.Post("/requests/:id/accept", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.AcceptFollowRequest(c.Context(), auth.UserID(c), c.Params("id")); err != nil {
			return apperr.HTTPError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/requests/:id/decline", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.DeclineFollowRequest(c.Context(), auth.UserID(c), c.Params("id")); err != nil {
			return apperr.HTTPError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/users/:uid/followers", func(c *fiber.Ctx) error {
		edges, err := svc.Followers(c.Context(), c.Params("uid"))
		if err != nil {
			return apperr.HTTPError(err)
		}
		return c.JSON(edges)
	})

	r.Get("/users/:uid/following", func(c *fiber.Ctx) error {
		edges, err := svc.Following(c.Context(), c.Params("uid"))
		if err != nil {
			return apperr.HTTPError(err)
		}
		return c.JSON(edges)
	})

	r.Get("/ws/:kind", authMiddleware, func(c *fiber.Ctx) error {
		switch c.Params("kind") {
		case "followers", "following", "requests":
			return c.Next()
		}
		return fiber.NewError(fiber.StatusNotFound, "unknown listener")
	}, websocket.New(func(c *websocket.Conn) {
		userID, _ := c.Locals("user_id").(string)
		updates := make(chan []byte, 16)
		push := func(v any) {
			payload, err := json.Marshal(v)
			if err != nil {
				return
			}
			select {
			case updates <- payload:
			default:
			}
		}

		ctx := context.Background()
		var unsubscribe func()
		switch c.Params("kind") {
		case "followers":
			unsubscribe = svc.ListenFollowers(ctx, userID, func(edges []FollowEdge) { push(edges) })
		case "following":
			unsubscribe = svc.ListenFollowing(ctx, userID, func(edges []FollowEdge) { push(edges) })
		default:
			unsubscribe = svc.ListenFollowRequests(ctx, userID, func(reqs []FollowRequest) { push(reqs) })
		}

		stream.Pump(c, updates, func() {
			unsubscribe()
			close(updates)
		})
	}))
}
