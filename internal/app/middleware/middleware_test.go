package middleware_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventbook/internal/app/commands"
	"eventbook/internal/app/middleware"
	appoutbox "eventbook/internal/app/outbox"
	"eventbook/internal/app/services/auth"
	domainbooking "eventbook/internal/domain/booking"
	"eventbook/internal/infra/storage/memory"
)

type receipt struct {
	Serial int `json:"serial"`
}

type createThing struct {
	Name  string `validate:"required"`
	Count int    `validate:"gt=0"`
	Token string
}

func (createThing) Key() string              { return "test.create" }
func (c createThing) IdempotencyKey() string { return c.Token }
func (createThing) ResultPrototype() any     { return &receipt{} }

func (createThing) AllowedRoles() []domainbooking.Role {
	return []domainbooking.Role{domainbooking.RoleClient}
}

type countingBus struct {
	calls int
	fail  error
}

func (b *countingBus) Dispatch(context.Context, commands.Command) (any, error) {
	b.calls++
	if b.fail != nil {
		return nil, b.fail
	}
	return &receipt{Serial: b.calls}, nil
}

func asClient(id string) context.Context {
	return auth.WithActor(context.Background(), domainbooking.Actor{ID: id, Role: domainbooking.RoleClient})
}

func TestIdempotencyReplaysSuccess(t *testing.T) {
	base := &countingBus{}
	bus := middleware.ChainCommands(base, middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil))
	cmd := createThing{Name: "x", Count: 1, Token: "k-1"}

	first, err := bus.Dispatch(asClient("c1"), cmd)
	require.NoError(t, err)
	second, err := bus.Dispatch(asClient("c1"), cmd)
	require.NoError(t, err)
	assert.Equal(t, 1, base.calls)
	assert.Equal(t, first, second)

	_, err = bus.Dispatch(asClient("c2"), cmd)
	require.NoError(t, err)
	assert.Equal(t, 2, base.calls, "keys are scoped per caller")

	_, err = bus.Dispatch(asClient("c1"), createThing{Name: "x", Count: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, base.calls, "commands without a key always run")
}

func TestIdempotencySkipsFailures(t *testing.T) {
	base := &countingBus{fail: domainbooking.ErrDateConflict}
	bus := middleware.ChainCommands(base, middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil))
	cmd := createThing{Name: "x", Count: 1, Token: "k-1"}

	_, err := bus.Dispatch(asClient("c1"), cmd)
	require.ErrorIs(t, err, domainbooking.ErrDateConflict)
	base.fail = nil
	res, err := bus.Dispatch(asClient("c1"), cmd)
	require.NoError(t, err)
	assert.Equal(t, &receipt{Serial: 2}, res)
}

func TestStructValidation(t *testing.T) {
	base := &countingBus{}
	bus := middleware.ChainCommands(base, middleware.Validation(middleware.NewStructValidator()))

	_, err := bus.Dispatch(context.Background(), createThing{Count: 0})
	require.ErrorIs(t, err, domainbooking.ErrValidation)
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "count must be greater than 0")
	assert.Zero(t, base.calls)

	_, err = bus.Dispatch(context.Background(), createThing{Name: "x", Count: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, base.calls)
}

func TestRoleAuthorization(t *testing.T) {
	base := &countingBus{}
	bus := middleware.ChainCommands(base, middleware.Authorization(middleware.RoleAuthorizer{}))
	cmd := createThing{Name: "x", Count: 1}

	_, err := bus.Dispatch(context.Background(), cmd)
	require.ErrorIs(t, err, auth.ErrUnauthorized)

	supplierCtx := auth.WithActor(context.Background(), domainbooking.Actor{ID: "S1", Role: domainbooking.RoleSupplier})
	_, err = bus.Dispatch(supplierCtx, cmd)
	require.ErrorIs(t, err, domainbooking.ErrPermissionDenied)

	_, err = bus.Dispatch(asClient("c1"), cmd)
	require.NoError(t, err)
	assert.Equal(t, 1, base.calls)
}

func TestChainOrder(t *testing.T) {
	var trace []string
	mark := func(name string) middleware.CommandMiddleware {
		return func(next commands.Bus) commands.Bus {
			return dispatchFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
				trace = append(trace, name)
				return next.Dispatch(ctx, cmd)
			})
		}
	}
	bus := middleware.ChainCommands(&countingBus{}, mark("outer"), mark("inner"))
	_, err := bus.Dispatch(context.Background(), createThing{})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, trace)
}

type dispatchFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f dispatchFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

func TestOutboxFlushOnlyAfterSuccess(t *testing.T) {
	box := memory.NewOutbox()
	base := &countingBus{fail: errors.New("boom")}
	bus := middleware.ChainCommands(base, middleware.OutboxFlush(box))

	require.NoError(t, box.Add(context.Background(), appoutbox.EventRecord{ID: "e1", Name: "test.created"}))
	_, err := bus.Dispatch(context.Background(), createThing{})
	require.Error(t, err)
	assert.Empty(t, box.Records())

	base.fail = nil
	_, err = bus.Dispatch(context.Background(), createThing{})
	require.NoError(t, err)
	assert.Len(t, box.Records(), 1)
}
