package models

// RegistrationResult is the outcome of a /start registration.
type RegistrationResult struct {
	IsNew    bool
	Referrer *int64
}

type ReferralStats struct {
	Code          string `json:"code"`
	ReferredBy    *int64 `json:"referred_by,omitempty"`
	ReferralCount int64  `json:"referral_count"`
}
