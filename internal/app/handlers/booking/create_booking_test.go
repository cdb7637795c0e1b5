package booking_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingapp "eventbook/internal/app/handlers/booking"
	"eventbook/internal/app/middleware"
	domainbooking "eventbook/internal/domain/booking"
)

func createCommand(eventTime string) bookingapp.CreateBookingCommand {
	return bookingapp.CreateBookingCommand{
		SupplierID:    "S1",
		PackageID:     "pkg-gold",
		EventName:     "Wedding",
		EventLocation: "Luanda",
		EventDate:     "2026-03-11",
		EventTime:     eventTime,
		GuestCount:    80,
	}
}

func TestEventTimeIsFreeText(t *testing.T) {
	v := middleware.NewStructValidator()
	ctx := context.Background()

	for _, eventTime := range []string{"", "16:00", "evening, after church", "from 4pm until late"} {
		assert.NoError(t, v.Validate(ctx, createCommand(eventTime)), eventTime)
	}

	err := v.Validate(ctx, createCommand(strings.Repeat("x", 101)))
	require.ErrorIs(t, err, domainbooking.ErrValidation)
}
