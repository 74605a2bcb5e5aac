package model

// CustomField mirrors the provider's display metadata entries.
type CustomField struct {
	DisplayName  string `json:"display_name"`
	VariableName string `json:"variable_name"`
	Value        string `json:"value"`
}

// CheckoutMetadata is the correlation metadata embedded in the provider
// transaction so that either verification path can re-link the payment to an
// internal user and plan. UserID is always the internal id, never the
// provider's.
type CheckoutMetadata struct {
	UserID        string        `json:"userId"`
	PlanID        string        `json:"planId"`
	PlanCode      string        `json:"planCode"`
	Interval      Interval      `json:"interval"`
	PromoEligible bool          `json:"promoEligible"`
	CustomFields  []CustomField `json:"custom_fields,omitempty"`
}

// CheckoutSession is created once per checkout attempt and consumed exactly
// once by either verification path. The provider is its store of record; it
// is never persisted locally.
type CheckoutSession struct {
	Reference   string
	Email       string
	Amount      int64 // minor currency units
	Currency    string
	PlanCode    string
	CallbackURL string
	Metadata    CheckoutMetadata
}
