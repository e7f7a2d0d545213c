package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chatforge/chatforge/internal/dashboard/domain"
)

func TestSeatCapacity(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1, SeatCapacity(domain.PlanNone))
	require.Equal(t, 10, SeatCapacity(domain.PlanBasic))
	require.Equal(t, 20, SeatCapacity(domain.PlanPro))
	require.Equal(t, UnlimitedSeats, SeatCapacity(domain.PlanPremium))

	// Unrecognized tiers collapse to the most restrictive capacity
	// rather than granting seats by accident.
	require.Equal(t, 1, SeatCapacity(domain.Plan("enterprise-trial")))
	require.Equal(t, 1, SeatCapacity(domain.Plan("")))
}

func TestHasAvailableSeats(t *testing.T) {
	t.Parallel()

	t.Run("pending invitations count as seats", func(t *testing.T) {
		require.True(t, HasAvailableSeats(domain.PlanBasic, 9, 0))
		require.False(t, HasAvailableSeats(domain.PlanBasic, 9, 1))
		require.False(t, HasAvailableSeats(domain.PlanBasic, 10, 0))
	})

	t.Run("premium is never full", func(t *testing.T) {
		require.True(t, HasAvailableSeats(domain.PlanPremium, 10000, 5000))
	})

	t.Run("free tier holds exactly one seat", func(t *testing.T) {
		require.True(t, HasAvailableSeats(domain.PlanNone, 0, 0))
		require.False(t, HasAvailableSeats(domain.PlanNone, 1, 0))
		require.False(t, HasAvailableSeats(domain.PlanNone, 0, 1))
	})
}

func TestRemainingSeats(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1, RemainingSeats(domain.PlanBasic, 8, 1))
	require.Equal(t, UnlimitedSeats, RemainingSeats(domain.PlanPremium, 8, 1))

	// Usage above capacity (plan downgrade) clamps at zero instead of
	// going negative.
	require.Equal(t, 0, RemainingSeats(domain.PlanBasic, 12, 3))
}
