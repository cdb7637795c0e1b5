package middleware

import (
	"context"
	"fmt"

	"eventbook/internal/app/commands"
	"eventbook/internal/app/queries"
	"eventbook/internal/app/services/auth"
	domainbooking "eventbook/internal/domain/booking"
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return next.Ask(ctx, q)
		})
	}
}

// RoleRestricted is implemented by messages only some roles may send.
type RoleRestricted interface {
	AllowedRoles() []domainbooking.Role
}

// RoleAuthorizer requires an authenticated actor on ctx and, for
// RoleRestricted messages, one of the allowed roles. Ownership of individual
// bookings is checked by the domain.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Authorize(ctx context.Context, message any) error {
	actor, ok := auth.ActorFrom(ctx)
	if !ok {
		return auth.ErrUnauthorized
	}
	restricted, ok := message.(RoleRestricted)
	if !ok {
		return nil
	}
	for _, role := range restricted.AllowedRoles() {
		if role == actor.Role {
			return nil
		}
	}
	return fmt.Errorf("%w: role %s", domainbooking.ErrPermissionDenied, actor.Role)
}
