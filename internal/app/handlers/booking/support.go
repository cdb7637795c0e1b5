package booking

import (
	"context"
	"fmt"

	"eventbook/internal/app/services/auth"
	domainbooking "eventbook/internal/domain/booking"
	"eventbook/internal/domain/shared/calendar"
)

var (
	clientOnly     = []domainbooking.Role{domainbooking.RoleClient}
	supplierOnly   = []domainbooking.Role{domainbooking.RoleSupplier}
	anyParticipant = []domainbooking.Role{domainbooking.RoleClient, domainbooking.RoleSupplier, domainbooking.RoleOperator}
)

func actorFrom(ctx context.Context) (domainbooking.Actor, error) {
	actor, ok := auth.ActorFrom(ctx)
	if !ok {
		return domainbooking.Actor{}, auth.ErrUnauthorized
	}
	return actor, nil
}

func parseDate(field, raw string) (calendar.Date, error) {
	d, err := calendar.Parse(raw)
	if err != nil {
		return calendar.Date{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", domainbooking.ErrValidation, field)
	}
	return d, nil
}
