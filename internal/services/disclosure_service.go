package services

import (
	"context"
	"errors"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/helloneovia/immocible-sub000/internal/models"
)

// Mask literals returned in place of a buyer's real contact fields until the
// requesting agency has paid to unlock them.
const (
	MaskedEmail = "***@***.***"
	MaskedPhone = "** ** ** ** **"
)

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type activeSearchReader interface {
	GetActiveByBuyer(ctx context.Context, buyerID int64) (*models.SearchCriteria, error)
}

type unlockLedger interface {
	Exists(ctx context.Context, agencyID, buyerID int64) (bool, error)
	Create(ctx context.Context, agencyID, buyerID int64, amount float64) (bool, error)
}

type settingsSource interface {
	Snapshot(ctx context.Context) (models.Settings, error)
}

// DisclosureService builds the disclosure-aware buyer view served to
// agencies: identity and city are always visible so the agency can decide
// whether to pay, contact fields stay masked until the unlock ledger has a
// row for the pair.
type DisclosureService struct {
	userRepo   userReader
	searchRepo activeSearchReader
	unlockRepo unlockLedger
	settings   settingsSource
}

func NewDisclosureService(
	userRepo userReader,
	searchRepo activeSearchReader,
	unlockRepo unlockLedger,
	settings settingsSource,
) *DisclosureService {
	return &DisclosureService{
		userRepo:   userRepo,
		searchRepo: searchRepo,
		unlockRepo: unlockRepo,
		settings:   settings,
	}
}

// UnlockPrice derives the contact unlock price from the buyer's stated max
// budget: max(1, round(priceMax * percent / 100)). The floor of 1 keeps a
// buyer with no budget on file unlockable at a nominal price.
func UnlockPrice(priceMax, percent float64) float64 {
	price := math.Round(priceMax * percent / 100)
	if price < 1 {
		return 1
	}
	return price
}

func (s *DisclosureService) BuildProfileView(
	ctx context.Context,
	agencyID int64,
	buyerID int64,
) (*models.ProfileView, error) {
	buyer, err := s.userRepo.GetByID(ctx, buyerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBuyerNotFound
		}
		return nil, err
	}
	if buyer.Role != models.RoleBuyer {
		return nil, ErrBuyerNotFound
	}

	// a buyer without an active search is still unlockable at the floor price
	var search *models.SearchCriteria
	search, err = s.searchRepo.GetActiveByBuyer(ctx, buyerID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		search = nil
	}

	settings, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	priceMax := 0.0
	if search != nil {
		priceMax = search.PriceMax
	}

	unlocked, err := s.unlockRepo.Exists(ctx, agencyID, buyerID)
	if err != nil {
		return nil, err
	}

	view := &models.ProfileView{
		BuyerID:     buyer.ID,
		FullName:    buyer.FullName,
		City:        buyer.City,
		Email:       MaskedEmail,
		Phone:       MaskedPhone,
		Unlocked:    unlocked,
		UnlockPrice: UnlockPrice(priceMax, settings.UnlockPricePercent),
		Search:      search,
	}
	if unlocked {
		view.Email = buyer.Email
		view.Phone = buyer.Phone
	}

	return view, nil
}
