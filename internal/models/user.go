package models

import "time"

const (
	RoleBuyer  = "buyer"
	RoleAgency = "agency"
)

type User struct {
	ID                  int64      `json:"id"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	Role                string     `json:"role"`
	FullName            string     `json:"full_name"`
	City                string     `json:"city"`
	Phone               string     `json:"phone"`
	SubscriptionPlan    *string    `json:"subscription_plan,omitempty"`
	SubscriptionEndDate *time.Time `json:"subscription_end_date,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// HasActiveSubscription reports whether the user holds a paid plan whose end
// date is still in the future.
func (u *User) HasActiveSubscription(now time.Time) bool {
	return u.SubscriptionPlan != nil && u.SubscriptionEndDate != nil &&
		u.SubscriptionEndDate.After(now)
}

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
