package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helloneovia/immocible-sub000/internal/models"
	"github.com/helloneovia/immocible-sub000/internal/services"
)

type MatchHandler struct {
	matchService *services.MatchService
}

func NewMatchHandler(matchService *services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

// ListMatches returns the caller's matches: a buyer sees listings matched to
// their search, an agency sees buyers matched to its listings.
func (h *MatchHandler) ListMatches(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var matches []models.MatchDetail
	switch actorRole(c) {
	case models.RoleBuyer:
		matches, err = h.matchService.ListForBuyer(c.Context(), actorID)
	case models.RoleAgency:
		matches, err = h.matchService.ListForAgency(c.Context(), actorID)
	default:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load matches"})
	}

	return c.JSON(fiber.Map{"matches": matches})
}
