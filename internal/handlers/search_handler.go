package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/helloneovia/immocible-sub000/internal/models"
	"github.com/helloneovia/immocible-sub000/internal/repository"
	"github.com/helloneovia/immocible-sub000/internal/services"
)

type SearchHandler struct {
	searchRepo   *repository.SearchRepository
	matchService *services.MatchService
}

func NewSearchHandler(
	searchRepo *repository.SearchRepository,
	matchService *services.MatchService,
) *SearchHandler {
	return &SearchHandler{
		searchRepo:   searchRepo,
		matchService: matchService,
	}
}

type upsertSearchRequest struct {
	PriceMin      float64        `json:"price_min"`
	PriceMax      float64        `json:"price_max"`
	SurfaceMin    float64        `json:"surface_min"`
	SurfaceMax    float64        `json:"surface_max"`
	PropertyTypes []string       `json:"property_types"`
	Rooms         []int          `json:"rooms"`
	Localities    []string       `json:"localities"`
	Attributes    map[string]any `json:"attributes"`
}

func (h *SearchHandler) UpsertSearch(c *fiber.Ctx) error {
	if actorRole(c) != models.RoleBuyer {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	buyerID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req upsertSearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.PriceMax < 0 || req.PriceMin < 0 || (req.PriceMax > 0 && req.PriceMin > req.PriceMax) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid price range"})
	}

	search, err := h.searchRepo.UpsertActive(c.Context(), repository.UpsertSearchInput{
		BuyerID:       buyerID,
		PriceMin:      req.PriceMin,
		PriceMax:      req.PriceMax,
		SurfaceMin:    req.SurfaceMin,
		SurfaceMax:    req.SurfaceMax,
		PropertyTypes: req.PropertyTypes,
		Rooms:         req.Rooms,
		Localities:    req.Localities,
		Attributes:    req.Attributes,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save search"})
	}

	if err := h.matchService.RecomputeForSearch(c.Context(), search); err != nil {
		log.Printf("match recompute for search %d: %v", search.ID, err)
	}

	return c.JSON(fiber.Map{"search": search})
}

func (h *SearchHandler) GetSearch(c *fiber.Ctx) error {
	if actorRole(c) != models.RoleBuyer {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	buyerID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	search, err := h.searchRepo.GetActiveByBuyer(c.Context(), buyerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No active search"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load search"})
	}

	return c.JSON(fiber.Map{"search": search})
}

func (h *SearchHandler) DeactivateSearch(c *fiber.Ctx) error {
	if actorRole(c) != models.RoleBuyer {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	buyerID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	if err := h.searchRepo.Deactivate(c.Context(), buyerID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to deactivate search"})
	}

	if err := h.matchService.ClearForBuyer(c.Context(), buyerID); err != nil {
		log.Printf("match cleanup for buyer %d: %v", buyerID, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
