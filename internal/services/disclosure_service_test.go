package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/helloneovia/immocible-sub000/internal/models"
)

type stubUserStore struct {
	users           map[int64]*models.User
	getErr          error
	lastSubUserID   int64
	lastSubPlan     *string
	lastSubEndDate  *time.Time
	subUpdateCalled bool
}

func (s *stubUserStore) GetByID(_ context.Context, id int64) (*models.User, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (s *stubUserStore) UpdateSubscription(_ context.Context, userID int64, plan *string, endDate *time.Time) error {
	s.subUpdateCalled = true
	s.lastSubUserID = userID
	s.lastSubPlan = plan
	s.lastSubEndDate = endDate
	return nil
}

type stubSearchReader struct {
	search *models.SearchCriteria
	err    error
}

func (s *stubSearchReader) GetActiveByBuyer(_ context.Context, _ int64) (*models.SearchCriteria, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.search == nil {
		return nil, pgx.ErrNoRows
	}
	return s.search, nil
}

type stubUnlockLedger struct {
	exists      bool
	existsErr   error
	createCalls int
	lastAgency  int64
	lastBuyer   int64
	lastAmount  float64
}

func (s *stubUnlockLedger) Exists(_ context.Context, _, _ int64) (bool, error) {
	return s.exists, s.existsErr
}

func (s *stubUnlockLedger) Create(_ context.Context, agencyID, buyerID int64, amount float64) (bool, error) {
	s.createCalls++
	s.lastAgency = agencyID
	s.lastBuyer = buyerID
	s.lastAmount = amount
	return true, nil
}

type stubSettingsSource struct {
	settings models.Settings
}

func (s *stubSettingsSource) Snapshot(_ context.Context) (models.Settings, error) {
	return s.settings, nil
}

func testBuyer() *models.User {
	return &models.User{
		ID:       42,
		Email:    "jean.dupont@example.com",
		Role:     models.RoleBuyer,
		FullName: "Jean Dupont",
		City:     "Lyon",
		Phone:    "0612345678",
	}
}

func TestUnlockPrice(t *testing.T) {
	cases := []struct {
		priceMax float64
		percent  float64
		want     float64
	}{
		{300000, 0.01, 30},
		{250000, 0.01, 25},
		{456789, 0.01, 46},
		{0, 0.01, 1},
		{5000, 0.01, 1},
		{300000, 0.02, 60},
	}

	for _, tc := range cases {
		if got := UnlockPrice(tc.priceMax, tc.percent); got != tc.want {
			t.Fatalf("UnlockPrice(%v, %v) = %v, want %v", tc.priceMax, tc.percent, got, tc.want)
		}
	}
}

func TestBuildProfileViewMasksContactUntilUnlocked(t *testing.T) {
	service := NewDisclosureService(
		&stubUserStore{users: map[int64]*models.User{42: testBuyer()}},
		&stubSearchReader{search: &models.SearchCriteria{BuyerID: 42, PriceMax: 300000}},
		&stubUnlockLedger{exists: false},
		&stubSettingsSource{settings: models.DefaultSettings()},
	)

	view, err := service.BuildProfileView(context.Background(), 9, 42)
	if err != nil {
		t.Fatalf("BuildProfileView: %v", err)
	}

	if view.Unlocked {
		t.Fatalf("expected locked view")
	}
	if view.Email != MaskedEmail || view.Phone != MaskedPhone {
		t.Fatalf("contact not masked: %q %q", view.Email, view.Phone)
	}
	if view.FullName != "Jean Dupont" || view.City != "Lyon" {
		t.Fatalf("identity fields must stay visible: %+v", view)
	}
	if view.UnlockPrice != 30 {
		t.Fatalf("expected unlock price 30, got %v", view.UnlockPrice)
	}
}

func TestBuildProfileViewRevealsContactOnceUnlocked(t *testing.T) {
	service := NewDisclosureService(
		&stubUserStore{users: map[int64]*models.User{42: testBuyer()}},
		&stubSearchReader{search: &models.SearchCriteria{BuyerID: 42, PriceMax: 300000}},
		&stubUnlockLedger{exists: true},
		&stubSettingsSource{settings: models.DefaultSettings()},
	)

	view, err := service.BuildProfileView(context.Background(), 9, 42)
	if err != nil {
		t.Fatalf("BuildProfileView: %v", err)
	}

	if !view.Unlocked {
		t.Fatalf("expected unlocked view")
	}
	if view.Email != "jean.dupont@example.com" || view.Phone != "0612345678" {
		t.Fatalf("expected real contact details, got %q %q", view.Email, view.Phone)
	}
}

func TestBuildProfileViewWithoutSearchUsesFloorPrice(t *testing.T) {
	service := NewDisclosureService(
		&stubUserStore{users: map[int64]*models.User{42: testBuyer()}},
		&stubSearchReader{},
		&stubUnlockLedger{},
		&stubSettingsSource{settings: models.DefaultSettings()},
	)

	view, err := service.BuildProfileView(context.Background(), 9, 42)
	if err != nil {
		t.Fatalf("BuildProfileView: %v", err)
	}

	if view.UnlockPrice != 1 {
		t.Fatalf("expected floor price 1, got %v", view.UnlockPrice)
	}
	if view.Search != nil {
		t.Fatalf("expected no search in view, got %+v", view.Search)
	}
}

func TestBuildProfileViewUnknownBuyer(t *testing.T) {
	service := NewDisclosureService(
		&stubUserStore{users: map[int64]*models.User{}},
		&stubSearchReader{},
		&stubUnlockLedger{},
		&stubSettingsSource{settings: models.DefaultSettings()},
	)

	_, err := service.BuildProfileView(context.Background(), 9, 42)
	if !errors.Is(err, ErrBuyerNotFound) {
		t.Fatalf("expected ErrBuyerNotFound, got %v", err)
	}
}

func TestBuildProfileViewRejectsNonBuyerTarget(t *testing.T) {
	agency := &models.User{ID: 42, Role: models.RoleAgency, Email: "contact@agence.fr"}
	service := NewDisclosureService(
		&stubUserStore{users: map[int64]*models.User{42: agency}},
		&stubSearchReader{},
		&stubUnlockLedger{},
		&stubSettingsSource{settings: models.DefaultSettings()},
	)

	_, err := service.BuildProfileView(context.Background(), 9, 42)
	if !errors.Is(err, ErrBuyerNotFound) {
		t.Fatalf("expected ErrBuyerNotFound, got %v", err)
	}
}
