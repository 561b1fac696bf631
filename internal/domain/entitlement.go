package domain

import "time"

// Entitlement is the active subscription grant bounding how many conversions
// an account may perform in its current billing period. History is preserved:
// the latest row for an account supersedes prior ones for evaluation.
type Entitlement struct {
	ID              string    `json:"id"`
	AccountID       string    `json:"accountId"`
	PlanTier        string    `json:"planTier"`
	CreditsTotal    int       `json:"creditsTotal"`
	CreditsUsed     int       `json:"creditsUsed"`
	PeriodStart     time.Time `json:"periodStart"`
	PeriodEnd       time.Time `json:"periodEnd"`
	SubscriptionRef string    `json:"subscriptionRef"` // external gateway subscription ID
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Active reports whether the entitlement grants conversions at the given time.
func (e *Entitlement) Active(now time.Time) bool {
	return !now.Before(e.PeriodStart) && now.Before(e.PeriodEnd) &&
		e.CreditsUsed < e.CreditsTotal
}

// CreditsRemaining returns the unconsumed credit count.
func (e *Entitlement) CreditsRemaining() int {
	if e.CreditsUsed >= e.CreditsTotal {
		return 0
	}
	return e.CreditsTotal - e.CreditsUsed
}

// CreateSubscriptionRequest is the input for starting a subscription.
type CreateSubscriptionRequest struct {
	PlanTier string `json:"plan_tier" validate:"required,oneof=basic standard premium"`
}

// ConfirmSubscriptionRequest finalizes a subscription after the payer approved
// it on the gateway's page.
type ConfirmSubscriptionRequest struct {
	SubscriptionRef string `json:"subscription_ref" validate:"required"`
	PlanTier        string `json:"plan_tier" validate:"required,oneof=basic standard premium"`
}

// SubscriptionLinkResponse returns the URL the payer must visit to approve.
type SubscriptionLinkResponse struct {
	SubscriptionID string `json:"subscription_id"`
	ApprovalURL    string `json:"approval_url"`
}

// EntitlementSummary is the public view of an entitlement. The ID is included
// so the client can address the cancellation endpoint.
type EntitlementSummary struct {
	ID           string    `json:"id,omitempty"`
	PlanTier     string    `json:"plan_tier"`
	CreditsUsed  int       `json:"credits_used"`
	CreditsTotal int       `json:"credits_total"`
	PeriodEnd    time.Time `json:"period_end"`
}

// Summary converts an entitlement to its public view. A nil entitlement maps
// to the "none" tier.
func (e *Entitlement) Summary() *EntitlementSummary {
	if e == nil {
		return &EntitlementSummary{PlanTier: PlanNone}
	}
	return &EntitlementSummary{
		ID:           e.ID,
		PlanTier:     e.PlanTier,
		CreditsUsed:  e.CreditsUsed,
		CreditsTotal: e.CreditsTotal,
		PeriodEnd:    e.PeriodEnd,
	}
}
