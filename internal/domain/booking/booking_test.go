package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusSets(t *testing.T) {
	assert.True(t, IsOccupyingStatus("Active"))
	assert.True(t, IsOccupyingStatus(" CONFIRMED "))
	assert.False(t, IsOccupyingStatus("completed"))

	for _, s := range []string{"active", "Confirmed", "EXPIRED", "completed"} {
		assert.True(t, IsRevenueEligible(s), s)
	}
	assert.False(t, IsRevenueEligible("cancelled"))
	assert.False(t, IsRevenueEligible("pending"))
}

func TestStay_IsActiveOn(t *testing.T) {
	b := Booking{CheckInDate: "01-03-2024", CheckOutDate: "05-03-2024", Status: "Active"}
	stay, err := b.Stay(time.UTC)
	require.NoError(t, err)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"day before check-in", time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC), false},
		{"check-in day", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"mid stay", time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC), true},
		{"check-out day", time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC), false},
		{"after check-out", time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stay.IsActiveOn(tt.at))
		})
	}

	cancelled := stay
	cancelled.Status = "cancelled"
	assert.False(t, cancelled.IsActiveOn(time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)))
}

func TestBooking_StayRejectsBadDates(t *testing.T) {
	b := Booking{Code: "B-0001", CheckInDate: "2024-03-01", CheckOutDate: "05-03-2024"}
	_, err := b.Stay(time.UTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "B-0001")
}
