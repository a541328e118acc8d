package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/helloneovia/immocible-sub000/internal/models"
	"github.com/helloneovia/immocible-sub000/internal/services"
)

type disclosureViewer interface {
	BuildProfileView(ctx context.Context, agencyID, buyerID int64) (*models.ProfileView, error)
}

// ProfileHandler serves the disclosure-aware buyer profile to agencies. A
// not-yet-unlocked profile is a normal masked response, never an error.
type ProfileHandler struct {
	disclosure disclosureViewer
}

func NewProfileHandler(disclosure disclosureViewer) *ProfileHandler {
	return &ProfileHandler{disclosure: disclosure}
}

func (h *ProfileHandler) GetBuyerProfile(c *fiber.Ctx) error {
	if actorRole(c) != models.RoleAgency {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	agencyID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	buyerID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || buyerID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid buyer id"})
	}

	view, err := h.disclosure.BuildProfileView(c.Context(), agencyID, buyerID)
	if err != nil {
		if errors.Is(err, services.ErrBuyerNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Buyer not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load profile"})
	}

	return c.JSON(fiber.Map{"profile": view})
}
