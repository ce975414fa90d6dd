package identity

import (
	"strings"
	"time"

	"github.com/mada-pay/mada_pay/internal/domain"
)

// Plan is the subscription tier of a user.
type Plan string

const (
	PlanStandard Plan = "standard"
	PlanPlus     Plan = "plus"
	PlanPremium  Plan = "premium"
	PlanMetal    Plan = "metal"
	PlanUltra    Plan = "ultra"
)

// ParsePlan accepts a plan name; empty means standard.
func ParsePlan(s string) (Plan, error) {
	switch p := Plan(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PlanStandard, nil
	case PlanStandard, PlanPlus, PlanPremium, PlanMetal, PlanUltra:
		return p, nil
	default:
		return "", domain.Fail(domain.ErrInvalidRequest, "unknown subscription plan %q", s)
	}
}

// User represents a registered wallet owner.
type User struct {
	ID                  int64
	Name                string
	Email               string
	Phone               string
	PasswordHash        []byte
	Plan                Plan
	MobileMoneyNumber   string
	MobileMoneyProvider string
	CreatedAt           time.Time
}

// Registration is the onboarding request.
type Registration struct {
	Name                string
	Email               string
	Phone               string
	Password            string
	Plan                string
	MobileMoneyNumber   string
	MobileMoneyProvider string
}
