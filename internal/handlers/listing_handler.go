package handlers

import (
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/helloneovia/immocible-sub000/internal/models"
	"github.com/helloneovia/immocible-sub000/internal/repository"
	"github.com/helloneovia/immocible-sub000/internal/services"
)

type ListingHandler struct {
	listingRepo  *repository.ListingRepository
	matchService *services.MatchService
}

func NewListingHandler(
	listingRepo *repository.ListingRepository,
	matchService *services.MatchService,
) *ListingHandler {
	return &ListingHandler{
		listingRepo:  listingRepo,
		matchService: matchService,
	}
}

type listingRequest struct {
	Title        string  `json:"title"`
	Price        float64 `json:"price"`
	Surface      float64 `json:"surface"`
	PropertyType string  `json:"property_type"`
	Rooms        int     `json:"rooms"`
	City         string  `json:"city"`
	PostalCode   string  `json:"postal_code"`
	Status       string  `json:"status"`
}

func (h *ListingHandler) CreateListing(c *fiber.Ctx) error {
	if actorRole(c) != models.RoleAgency {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	agencyID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req listingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Price <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Price must be positive"})
	}

	listing, err := h.listingRepo.Create(c.Context(), repository.CreateListingInput{
		AgencyID:     agencyID,
		Title:        strings.TrimSpace(req.Title),
		Price:        req.Price,
		Surface:      req.Surface,
		PropertyType: strings.TrimSpace(req.PropertyType),
		Rooms:        req.Rooms,
		City:         strings.TrimSpace(req.City),
		PostalCode:   strings.TrimSpace(req.PostalCode),
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create listing"})
	}

	if err := h.matchService.RecomputeForListing(c.Context(), listing); err != nil {
		log.Printf("match recompute for listing %d: %v", listing.ID, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"listing": listing})
}

func (h *ListingHandler) UpdateListing(c *fiber.Ctx) error {
	if actorRole(c) != models.RoleAgency {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	agencyID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	listingID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || listingID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid listing id"})
	}

	var req listingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Price <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Price must be positive"})
	}
	if req.Status == "" {
		req.Status = models.ListingAvailable
	}
	if req.Status != models.ListingAvailable && req.Status != models.ListingUnavailable {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status"})
	}

	listing, err := h.listingRepo.Update(c.Context(), listingID, agencyID, repository.UpdateListingInput{
		Title:        strings.TrimSpace(req.Title),
		Price:        req.Price,
		Surface:      req.Surface,
		PropertyType: strings.TrimSpace(req.PropertyType),
		Rooms:        req.Rooms,
		City:         strings.TrimSpace(req.City),
		PostalCode:   strings.TrimSpace(req.PostalCode),
		Status:       req.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listing not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update listing"})
	}

	if err := h.matchService.RecomputeForListing(c.Context(), listing); err != nil {
		log.Printf("match recompute for listing %d: %v", listing.ID, err)
	}

	return c.JSON(fiber.Map{"listing": listing})
}

// GetListing serves a listing detail. Owners see their own listings in any
// status; other callers only see available ones.
func (h *ListingHandler) GetListing(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	listingID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || listingID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid listing id"})
	}

	listing, err := h.listingRepo.GetByID(c.Context(), listingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listing not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load listing"})
	}
	if listing.Status != models.ListingAvailable && listing.AgencyID != actorID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listing not found"})
	}

	return c.JSON(fiber.Map{"listing": listing})
}

func (h *ListingHandler) ListMyListings(c *fiber.Ctx) error {
	if actorRole(c) != models.RoleAgency {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	agencyID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	listings, err := h.listingRepo.ListByAgency(c.Context(), agencyID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load listings"})
	}

	return c.JSON(fiber.Map{"listings": listings})
}
