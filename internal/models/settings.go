package models

// Settings is the cached configuration snapshot read through the settings
// store. UnlockPricePercent is expressed as a percentage of the buyer's max
// budget: 0.01 means 0.01%, so the unlock price for a 300 000 budget is
// round(300000 * 0.01 / 100) = 30.
type Settings struct {
	UnlockPricePercent float64            `json:"unlock_price_percent"`
	PlanPrices         map[string]float64 `json:"plan_prices"`
	// PlanConversationLimits caps conversations an agency may open per
	// calendar month. A negative limit means unlimited.
	PlanConversationLimits map[string]int `json:"plan_conversation_limits"`
}

// DefaultSettings are the fallbacks used when the settings table has no
// override for a key.
func DefaultSettings() Settings {
	return Settings{
		UnlockPricePercent: 0.01,
		PlanPrices: map[string]float64{
			"starter":   49,
			"pro":       99,
			"unlimited": 199,
		},
		PlanConversationLimits: map[string]int{
			"starter":   10,
			"pro":       50,
			"unlimited": -1,
		},
	}
}
