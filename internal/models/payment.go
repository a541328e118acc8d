package models

import "time"

const (
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"

	PlanUnlockContact = "unlock_contact"
)

// Payment is the append-only audit log of monetary events. The provider's
// checkout session id carries a unique index so the same session can never be
// processed into two rows.
type Payment struct {
	ID                int64     `json:"id"`
	ProviderSessionID string    `json:"provider_session_id"`
	PaymentIntentID   string    `json:"payment_intent_id"`
	UserID            int64     `json:"user_id"`
	Amount            float64   `json:"amount"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	Plan              string    `json:"plan"`
	CreatedAt         time.Time `json:"created_at"`
}

// UnlockRecord is the sole source of truth for "this agency may see this
// buyer's contact details". Immutable once created.
type UnlockRecord struct {
	ID        int64     `json:"id"`
	AgencyID  int64     `json:"agency_id"`
	BuyerID   int64     `json:"buyer_id"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileView is the disclosure-aware view of a buyer returned to an agency.
// Name and city are always visible; email and phone are masked until the
// agency has paid to unlock them.
type ProfileView struct {
	BuyerID     int64           `json:"buyer_id"`
	FullName    string          `json:"full_name"`
	City        string          `json:"city"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone"`
	Unlocked    bool            `json:"unlocked"`
	UnlockPrice float64         `json:"unlock_price"`
	Search      *SearchCriteria `json:"search,omitempty"`
}
