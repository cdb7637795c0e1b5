package settlement_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventbook/internal/domain/settlement"
	"eventbook/internal/domain/shared/calendar"
	"eventbook/internal/domain/shared/money"
)

var eventDate = calendar.MustParse("2025-12-01")

func scenarioPolicy() settlement.Policy {
	return settlement.Policy{
		ID: "scenario",
		Tiers: []settlement.Tier{
			{DaysBeforeEvent: 7, Refund: 5000},
			{DaysBeforeEvent: 0, Refund: 0},
		},
		PlatformFee: 1000,
	}
}

func input(paid int64, daysBefore int) settlement.Input {
	return settlement.Input{
		TotalPrice: money.Must(10000, "AOA"),
		PaidAmount: money.Must(paid, "AOA"),
		EventDate:  eventDate,
		Today:      eventDate.AddDays(-daysBefore),
		Initiator:  settlement.InitiatorClient,
	}
}

func TestComputeCancelTenDaysAhead(t *testing.T) {
	res, err := settlement.Compute(scenarioPolicy(), input(10000, 10))
	require.NoError(t, err)

	assert.Equal(t, 10, res.DaysToEvent)
	assert.Equal(t, int64(5000), res.RefundAmount.Amount)
	assert.Equal(t, int64(500), res.PlatformFee.Amount)
	assert.Equal(t, int64(4500), res.SupplierPayout.Amount)
	assert.True(t, res.Balanced(money.Must(10000, "AOA")))
	assert.Contains(t, res.Message, "50%")
}

func TestComputeNothingPaid(t *testing.T) {
	res, err := settlement.Compute(scenarioPolicy(), input(0, 10))
	require.NoError(t, err)

	assert.Zero(t, res.RefundAmount.Amount)
	assert.Zero(t, res.PlatformFee.Amount)
	assert.Zero(t, res.SupplierPayout.Amount)
	assert.Equal(t, int64(10000), res.Forfeited.Amount)
}

func TestComputeCancelTwoDaysAhead(t *testing.T) {
	res, err := settlement.Compute(scenarioPolicy(), input(8000, 2))
	require.NoError(t, err)

	assert.Zero(t, res.RefundAmount.Amount)
	assert.Equal(t, int64(800), res.PlatformFee.Amount)
	assert.Equal(t, int64(7200), res.SupplierPayout.Amount)
	assert.Equal(t, int64(2000), res.Forfeited.Amount)
	assert.True(t, res.Balanced(money.Must(8000, "AOA")))
}

func TestComputeAfterEventUsesStrictestTier(t *testing.T) {
	res, err := settlement.Compute(scenarioPolicy(), input(10000, -3))
	require.NoError(t, err)

	assert.Equal(t, 0, res.DaysToEvent)
	assert.Zero(t, res.RefundAmount.Amount)
	assert.Equal(t, int64(1000), res.PlatformFee.Amount)
}

func TestComputeEmptyPolicyRefundsNothing(t *testing.T) {
	policy := settlement.Policy{PlatformFee: 1500}
	res, err := settlement.Compute(policy, input(10000, 60))
	require.NoError(t, err)

	assert.False(t, res.TierMatched)
	assert.Zero(t, res.RefundAmount.Amount)
	assert.Equal(t, int64(1500), res.PlatformFee.Amount)
	assert.Equal(t, int64(8500), res.SupplierPayout.Amount)
}

func TestComputeSupplierCancellationRefundsInFull(t *testing.T) {
	in := input(6000, 1)
	in.Initiator = settlement.InitiatorSupplier
	res, err := settlement.Compute(scenarioPolicy(), in)
	require.NoError(t, err)

	assert.Equal(t, int64(6000), res.RefundAmount.Amount)
	assert.Zero(t, res.PlatformFee.Amount)
	assert.Zero(t, res.SupplierPayout.Amount)
}

func TestComputeRoundsRefundAndFeeIndependently(t *testing.T) {
	policy := settlement.Policy{
		Tiers:       []settlement.Tier{{DaysBeforeEvent: 0, Refund: 3333}},
		PlatformFee: 1250,
	}
	in := input(1001, 5)
	res, err := settlement.Compute(policy, in)
	require.NoError(t, err)

	// 1001 * 0.3333 = 333.63 -> 334; retained 667 * 0.125 = 83.375 -> 83
	assert.Equal(t, int64(334), res.RefundAmount.Amount)
	assert.Equal(t, int64(83), res.PlatformFee.Amount)
	assert.Equal(t, int64(584), res.SupplierPayout.Amount)
}

func TestComputeIsDeterministic(t *testing.T) {
	first, err := settlement.Compute(scenarioPolicy(), input(7777, 9))
	require.NoError(t, err)
	second, err := settlement.Compute(scenarioPolicy(), input(7777, 9))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComputeAccountingIdentityHolds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		total := rng.Int63n(5_000_000) + 1
		paid := rng.Int63n(total + 1)
		policy := settlement.Policy{
			Tiers: []settlement.Tier{
				{DaysBeforeEvent: 30, Refund: money.Rate(rng.Int63n(10001))},
				{DaysBeforeEvent: 7, Refund: money.Rate(rng.Int63n(10001))},
				{DaysBeforeEvent: 0, Refund: money.Rate(rng.Int63n(10001))},
			},
			PlatformFee: money.Rate(rng.Int63n(10001)),
		}
		in := settlement.Input{
			TotalPrice: money.Must(total, "AOA"),
			PaidAmount: money.Must(paid, "AOA"),
			EventDate:  eventDate,
			Today:      eventDate.AddDays(-rng.Intn(60) + 10),
			Initiator:  settlement.InitiatorClient,
		}
		res, err := settlement.Compute(policy, in)
		require.NoError(t, err)
		require.Truef(t, res.Balanced(in.PaidAmount), "unbalanced split for paid=%d: %+v", paid, res)
	}
}

func TestComputeRejectsMalformedPolicy(t *testing.T) {
	cases := map[string]settlement.Policy{
		"unsorted tiers": {Tiers: []settlement.Tier{{DaysBeforeEvent: 0}, {DaysBeforeEvent: 7}}},
		"negative days":  {Tiers: []settlement.Tier{{DaysBeforeEvent: -1}}},
		"refund > 100%":  {Tiers: []settlement.Tier{{DaysBeforeEvent: 1, Refund: 10001}}},
		"negative fee":   {PlatformFee: -1},
	}
	for name, policy := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := settlement.Compute(policy, input(100, 1))
			assert.ErrorIs(t, err, settlement.ErrInvalidPolicy)
		})
	}
}

func TestComputeRejectsOverpaidInput(t *testing.T) {
	in := input(10000, 3)
	in.PaidAmount = money.Must(10001, "AOA")
	_, err := settlement.Compute(scenarioPolicy(), in)
	assert.ErrorIs(t, err, settlement.ErrInvalidInput)
}

func TestPlatformDefaultIsValid(t *testing.T) {
	assert.NoError(t, settlement.PlatformDefault().Validate())
}
