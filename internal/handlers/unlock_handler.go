package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/helloneovia/immocible-sub000/internal/models"
	"github.com/helloneovia/immocible-sub000/internal/services"
)

type unlockPaymentService interface {
	StartUnlock(ctx context.Context, agencyID, buyerID int64) (string, error)
	VerifyUnlock(ctx context.Context, sessionID string) (*services.VerifyResult, error)
	RefundPayment(ctx context.Context, actorID int64, sessionID string) (*models.Payment, error)
}

type unlockLedgerReader interface {
	ListByAgency(ctx context.Context, agencyID int64) ([]models.UnlockRecord, error)
}

type UnlockHandler struct {
	payments unlockPaymentService
	unlocks  unlockLedgerReader
}

func NewUnlockHandler(payments unlockPaymentService, unlocks unlockLedgerReader) *UnlockHandler {
	return &UnlockHandler{payments: payments, unlocks: unlocks}
}

// ListUnlocks returns the agency's unlock history.
func (h *UnlockHandler) ListUnlocks(c *fiber.Ctx) error {
	if actorRole(c) != models.RoleAgency {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	agencyID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	unlocks, err := h.unlocks.ListByAgency(c.Context(), agencyID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load unlocks"})
	}

	return c.JSON(fiber.Map{"unlocks": unlocks})
}

type startUnlockRequest struct {
	BuyerID int64 `json:"buyer_id"`
}

type verifyUnlockRequest struct {
	SessionID string `json:"session_id"`
}

func (h *UnlockHandler) StartUnlock(c *fiber.Ctx) error {
	if actorRole(c) != models.RoleAgency {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	agencyID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req startUnlockRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.BuyerID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid buyer id"})
	}

	checkoutURL, err := h.payments.StartUnlock(c.Context(), agencyID, req.BuyerID)
	if err != nil {
		return mapUnlockError(c, err)
	}

	return c.JSON(fiber.Map{"checkout_url": checkoutURL})
}

// VerifyUnlock is hit by the checkout success page and by webhook retries.
// Replays for an already-processed session return success without new writes.
func (h *UnlockHandler) VerifyUnlock(c *fiber.Ctx) error {
	if _, err := parseActorID(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req verifyUnlockRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing session id"})
	}

	result, err := h.payments.VerifyUnlock(c.Context(), req.SessionID)
	if err != nil {
		return mapUnlockError(c, err)
	}

	return c.JSON(result)
}

func (h *UnlockHandler) RefundPayment(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID := strings.TrimSpace(c.Params("sessionID"))
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing session id"})
	}

	payment, err := h.payments.RefundPayment(c.Context(), actorID, sessionID)
	if err != nil {
		return mapUnlockError(c, err)
	}

	return c.JSON(fiber.Map{"payment": payment})
}

func mapUnlockError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrBuyerNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Buyer not found"})
	case errors.Is(err, services.ErrAlreadyUnlocked):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Contact already unlocked"})
	case errors.Is(err, services.ErrMalformedSession):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Malformed checkout session"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Payment is not refundable"})
	case errors.Is(err, services.ErrUpstream):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Payment provider unavailable"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Payment not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process payment request"})
	}
}
