package service

import "github.com/chatforge/chatforge/internal/dashboard/domain"

// UnlimitedSeats is the sentinel capacity for plans without a seat cap.
const UnlimitedSeats = -1

// SeatCapacity maps a subscription tier to its seat cap. Unrecognized
// plan values fall back to the most restrictive tier rather than
// failing: billing may introduce tiers before this service learns them.
func SeatCapacity(plan domain.Plan) int {
	switch plan {
	case domain.PlanBasic:
		return 10
	case domain.PlanPro:
		return 20
	case domain.PlanPremium:
		return UnlimitedSeats
	default: // none and anything unrecognized
		return 1
	}
}

// SeatUsage counts occupied seats. A seat is held by an active member or
// a live pending invitation.
func SeatUsage(activeCount, pendingCount int) int {
	return activeCount + pendingCount
}

// HasAvailableSeats reports whether one more seat can be taken.
func HasAvailableSeats(plan domain.Plan, activeCount, pendingCount int) bool {
	capacity := SeatCapacity(plan)
	if capacity == UnlimitedSeats {
		return true
	}
	return SeatUsage(activeCount, pendingCount) < capacity
}

// RemainingSeats returns how many seats are left, clamped at zero, or
// UnlimitedSeats for uncapped plans.
func RemainingSeats(plan domain.Plan, activeCount, pendingCount int) int {
	capacity := SeatCapacity(plan)
	if capacity == UnlimitedSeats {
		return UnlimitedSeats
	}
	remaining := capacity - SeatUsage(activeCount, pendingCount)
	if remaining < 0 {
		return 0
	}
	return remaining
}
