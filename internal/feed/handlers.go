package feed

import (
	"strconv"

	"backend-urbexqueens/internal/auth"
	"backend-urbexqueens/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/posts", authMiddleware, func(c *fiber.Ctx) error {
		var req Post
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		req.UserID = auth.UserID(c)
		post, err := svc.CreatePost(c.Context(), req)
		if err != nil {
			return apperr.HTTPError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(post)
	})

	r.Post("/posts/:id/photos", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			PhotoURL string `json:"photo_url"`
		}
		if err := c.BodyParser(&body); err != nil || body.PhotoURL == "" {
			return fiber.NewError(fiber.StatusBadRequest, "photo_url required")
		}
		photo, err := svc.AddPhoto(c.Context(), auth.UserID(c), c.Params("id"), body.PhotoURL)
		if err != nil {
			return apperr.HTTPError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(photo)
	})

	r.Post("/stories", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			MediaURL string `json:"media_url"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		story, err := svc.CreateStory(c.Context(), auth.UserID(c), body.MediaURL)
		if err != nil {
			return apperr.HTTPError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(story)
	})

	r.Get("/feed", authMiddleware, func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit"))
		page, err := svc.Page(c.Context(), auth.UserID(c), c.Query("cursor"), limit)
		if err != nil {
			return apperr.HTTPError(err)
		}
		return c.JSON(page)
	})

	r.Get("/stories", authMiddleware, func(c *fiber.Ctx) error {
		stories, err := svc.ActiveStories(c.Context(), auth.UserID(c))
		if err != nil {
			return apperr.HTTPError(err)
		}
		return c.JSON(stories)
	})

	r.Get("/posts/nearby", func(c *fiber.Ctx) error {
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
		if errLat != nil || errLng != nil {
			return fiber.NewError(fiber.StatusBadRequest, "lat and lng required")
		}
		radius, _ := strconv.ParseFloat(c.Query("radius_km"), 64)
		if radius <= 0 {
			radius = 5
		}
		posts, err := svc.Nearby(c.Context(), lat, lng, radius)
		if err != nil {
			return apperr.HTTPError(err)
		}
		return c.JSON(posts)
	})
}
