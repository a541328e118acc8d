package services

import (
	"context"
	"strings"

	"github.com/helloneovia/immocible-sub000/internal/models"
	"github.com/helloneovia/immocible-sub000/internal/repository"
)

const (
	scorePriceWithinBudget = 30
	scoreLocalityMatch     = 25
	scoreTypeMatch         = 15
	scoreSurfaceSufficient = 10
	scoreRoomsMatch        = 10
)

type MatchResult struct {
	Score       int
	Reasons     []string
	Suggestions []string
}

// ScoreListing rates a listing against a buyer's search. The model is purely
// additive: each criterion contributes a fixed weight when satisfied,
// independently of the others, so the result is deterministic for a given
// input pair.
func ScoreListing(search *models.SearchCriteria, listing *models.Listing) MatchResult {
	var result MatchResult

	if search.PriceMax > 0 && listing.Price <= search.PriceMax {
		result.Score += scorePriceWithinBudget
		result.Reasons = append(result.Reasons, "Prix dans votre budget")
	} else if search.PriceMax > 0 && listing.Price <= search.PriceMax*1.1 {
		result.Suggestions = append(result.Suggestions, "Prix légèrement au-dessus de votre budget")
	}

	if containsFold(search.Localities, listing.City) {
		result.Score += scoreLocalityMatch
		result.Reasons = append(result.Reasons, "Localisation recherchée")
	}

	if containsFold(search.PropertyTypes, listing.PropertyType) {
		result.Score += scoreTypeMatch
		result.Reasons = append(result.Reasons, "Type de bien correspondant")
	}

	if search.SurfaceMin > 0 && listing.Surface >= search.SurfaceMin {
		result.Score += scoreSurfaceSufficient
		result.Reasons = append(result.Reasons, "Surface suffisante")
	} else if search.SurfaceMin > 0 && listing.Surface >= search.SurfaceMin*0.9 {
		result.Suggestions = append(result.Suggestions, "Surface proche de votre minimum")
	}

	if containsInt(search.Rooms, listing.Rooms) {
		result.Score += scoreRoomsMatch
		result.Reasons = append(result.Reasons, "Nombre de pièces correspondant")
	}

	return result
}

func containsFold(values []string, target string) bool {
	target = strings.TrimSpace(target)
	for _, value := range values {
		if strings.EqualFold(strings.TrimSpace(value), target) && target != "" {
			return true
		}
	}
	return false
}

func containsInt(values []int, target int) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

type activeSearchLister interface {
	ListActive(ctx context.Context) ([]models.SearchCriteria, error)
}

type availableListingLister interface {
	ListAvailable(ctx context.Context) ([]models.Listing, error)
}

type matchStore interface {
	Upsert(ctx context.Context, input repository.UpsertMatchInput) (*models.Match, error)
	Delete(ctx context.Context, buyerID, listingID int64) error
	DeleteForListing(ctx context.Context, listingID int64) error
	DeleteForBuyer(ctx context.Context, buyerID int64) error
	ListByBuyer(ctx context.Context, buyerID int64) ([]models.MatchDetail, error)
	ListForAgency(ctx context.Context, agencyID int64) ([]models.MatchDetail, error)
}

// MatchService maintains the stored matches. Recomputation runs when a
// listing or a search changes, never inside a read request, so reads stay a
// simple indexed lookup.
type MatchService struct {
	searchRepo  activeSearchLister
	listingRepo availableListingLister
	matchRepo   matchStore
}

func NewMatchService(
	searchRepo activeSearchLister,
	listingRepo availableListingLister,
	matchRepo matchStore,
) *MatchService {
	return &MatchService{
		searchRepo:  searchRepo,
		listingRepo: listingRepo,
		matchRepo:   matchRepo,
	}
}

// RecomputeForListing refreshes matches between one listing and every active
// search. A pair scoring 0 is never materialized; a stale stored match whose
// score dropped to 0 is removed.
func (s *MatchService) RecomputeForListing(ctx context.Context, listing *models.Listing) error {
	if listing.Status != models.ListingAvailable {
		return s.matchRepo.DeleteForListing(ctx, listing.ID)
	}

	searches, err := s.searchRepo.ListActive(ctx)
	if err != nil {
		return err
	}

	for i := range searches {
		search := &searches[i]
		if err := s.upsertOrClear(ctx, search, listing); err != nil {
			return err
		}
	}

	return nil
}

// RecomputeForSearch refreshes matches between one buyer's search and every
// available listing.
func (s *MatchService) RecomputeForSearch(ctx context.Context, search *models.SearchCriteria) error {
	listings, err := s.listingRepo.ListAvailable(ctx)
	if err != nil {
		return err
	}

	for i := range listings {
		listing := &listings[i]
		if err := s.upsertOrClear(ctx, search, listing); err != nil {
			return err
		}
	}

	return nil
}

func (s *MatchService) upsertOrClear(
	ctx context.Context,
	search *models.SearchCriteria,
	listing *models.Listing,
) error {
	result := ScoreListing(search, listing)
	if result.Score == 0 {
		return s.matchRepo.Delete(ctx, search.BuyerID, listing.ID)
	}

	_, err := s.matchRepo.Upsert(ctx, repository.UpsertMatchInput{
		BuyerID:     search.BuyerID,
		ListingID:   listing.ID,
		SearchID:    search.ID,
		Score:       result.Score,
		Reasons:     result.Reasons,
		Suggestions: result.Suggestions,
	})
	return err
}

// ClearForBuyer drops a buyer's matches when their search is deactivated.
func (s *MatchService) ClearForBuyer(ctx context.Context, buyerID int64) error {
	return s.matchRepo.DeleteForBuyer(ctx, buyerID)
}

func (s *MatchService) ListForBuyer(ctx context.Context, buyerID int64) ([]models.MatchDetail, error) {
	return s.matchRepo.ListByBuyer(ctx, buyerID)
}

func (s *MatchService) ListForAgency(ctx context.Context, agencyID int64) ([]models.MatchDetail, error) {
	return s.matchRepo.ListForAgency(ctx, agencyID)
}
