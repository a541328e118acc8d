package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/helloneovia/immocible-sub000/internal/models"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 50
)

func buildPaginationMeta(page, limit, total int) models.PaginationMeta {
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return models.PaginationMeta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

func parsePositiveInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// parseActorID reads the authenticated user id set by the auth middleware.
func parseActorID(c *fiber.Ctx) (int64, error) {
	raw, _ := c.Locals("user_id").(string)
	return strconv.ParseInt(raw, 10, 64)
}

func actorRole(c *fiber.Ctx) string {
	role, _ := c.Locals("role").(string)
	return role
}
