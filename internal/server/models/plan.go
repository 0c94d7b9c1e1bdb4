// Package models defines server-side data models persisted in the
// database.
package models

import "time"

// Plan is a subscription tier determining the daily usage allowance and
// artifact retention length.
type Plan string

const (
	PlanFree     Plan = "free"
	PlanPro      Plan = "pro"
	PlanBusiness Plan = "business"
)

// businessRetention stands in for "effectively unlimited". It is a plain
// duration, deliberately not a sentinel value.
const businessRetention = 10 * 365 * 24 * time.Hour

// Valid reports whether p is a known tier.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanBusiness:
		return true
	}
	return false
}

// Retention returns how long artifacts produced under this plan remain
// resolvable. Unknown plans fall back to the free tier's retention.
func (p Plan) Retention() time.Duration {
	switch p {
	case PlanPro:
		return 7 * 24 * time.Hour
	case PlanBusiness:
		return businessRetention
	default:
		return 24 * time.Hour
	}
}

// Unlimited reports whether the plan has no daily operation cap.
func (p Plan) Unlimited() bool {
	return p == PlanPro || p == PlanBusiness
}
