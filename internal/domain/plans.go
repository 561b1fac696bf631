package domain

// Plan tiers. "none" means no active subscription.
const (
	PlanNone     = "none"
	PlanBasic    = "basic"
	PlanStandard = "standard"
	PlanPremium  = "premium"
)

// Plan is a monthly subscription plan granting conversion credits.
type Plan struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Conversions int    `json:"conversions"` // credits granted per period
	PriceMXN    int    `json:"priceMxn"`    // monthly price in MXN centavos (20000 = $200)
	Description string `json:"description"`
	Popular     bool   `json:"popular"`
}

// AvailablePlans returns all purchasable plans.
func AvailablePlans() []Plan {
	return []Plan{
		{
			ID:          PlanBasic,
			Name:        "Básico",
			Conversions: 200,
			PriceMXN:    20000, // $200/mo
			Description: "200 conversiones mensuales",
			Popular:     false,
		},
		{
			ID:          PlanStandard,
			Name:        "Estándar",
			Conversions: 400,
			PriceMXN:    30000, // $300/mo
			Description: "400 conversiones mensuales",
			Popular:     true,
		},
		{
			ID:          PlanPremium,
			Name:        "Premium",
			Conversions: 600,
			PriceMXN:    35000, // $350/mo
			Description: "600 conversiones mensuales",
			Popular:     false,
		},
	}
}

// GetPlan returns the plan for a given ID, or false if it is not purchasable.
func GetPlan(id string) (Plan, bool) {
	for _, p := range AvailablePlans() {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}
