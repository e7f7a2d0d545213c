package domain

import "time"

// Plan is an organization's subscription tier. The value is written by
// billing events outside this service; seat policy only reads it.
type Plan string

const (
	PlanNone    Plan = "none"
	PlanBasic   Plan = "basic"
	PlanPro     Plan = "pro"
	PlanPremium Plan = "premium"
)

type Organization struct {
	ID        string
	Name      string
	Plan      Plan
	CreatedAt time.Time
	UpdatedAt time.Time
}
