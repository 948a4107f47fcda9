package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/roulette-settlement-poc/internal/play-service/catalog"
)

// transferRecorder registra as chamadas de custódia feitas pelo motor
type transferRecorder struct {
	calls    []uint64
	failWith error
}

func (t *transferRecorder) fn(ctx context.Context, amount uint64) error {
	if t.failWith != nil {
		return t.failWith
	}
	t.calls = append(t.calls, amount)
	return nil
}

func straightUp(outcome uint8, stake uint64) catalog.Bet {
	return catalog.Bet{Category: 6, Differentiator: outcome, Outcomes: []uint8{outcome}, StakeCents: stake}
}

func newRound(t *testing.T, eng *Engine, counters *Counters, bets ...catalog.Bet) (*Round, *transferRecorder) {
	t.Helper()
	r := eng.OpenRound("user-1", 1, counters)
	rec := &transferRecorder{}
	require.NoError(t, eng.PlaceBets(context.Background(), r, bets, rec.fn, counters))
	return r, rec
}

func TestPlaceBets_SingleTransferForBatch(t *testing.T) {
	eng := New(catalog.Default())
	var counters Counters

	_, rec := newRound(t, eng, &counters,
		straightUp(17, 1000),
		straightUp(20, 500),
		straightUp(3, 500),
	)

	require.Len(t, rec.calls, 1, "uma única movimentação custodial por lote")
	assert.Equal(t, uint64(2000), rec.calls[0])
	assert.Equal(t, uint64(2000), counters.TotalVolumeCents)
}

func TestPlaceBets_EmptyBatchKeepsRoundOpen(t *testing.T) {
	eng := New(catalog.Default())
	var counters Counters

	r, rec := newRound(t, eng, &counters)
	assert.Equal(t, PhaseOpen, r.Phase)
	assert.Empty(t, rec.calls, "total zero não movimenta custódia")
	assert.Zero(t, r.TotalStakedCents)
}

func TestPlaceBets_InvalidBatchLeavesNoTrace(t *testing.T) {
	eng := New(catalog.Default())
	var counters Counters
	r := eng.OpenRound("user-1", 1, &counters)
	rec := &transferRecorder{}

	bad := straightUp(17, 1000)
	bad.StakeCents = 1 // abaixo do mínimo
	err := eng.PlaceBets(context.Background(), r, []catalog.Bet{straightUp(20, 500), bad}, rec.fn, &counters)

	require.ErrorIs(t, err, catalog.ErrStakeBounds)
	assert.Empty(t, rec.calls, "lote inválido não pode tocar a custódia")
	assert.Empty(t, r.Bets)
	assert.Zero(t, r.TotalStakedCents)
	assert.Equal(t, [NumOutcomes][NumTiers]uint64{}, r.Buckets)
	assert.Zero(t, counters.TotalVolumeCents)
	assert.Equal(t, PhaseOpen, r.Phase)
}

func TestPlaceBets_CustodyFailureLeavesNoTrace(t *testing.T) {
	eng := New(catalog.Default())
	var counters Counters
	r := eng.OpenRound("user-1", 1, &counters)
	rec := &transferRecorder{failWith: errors.New("insufficient funds")}

	err := eng.PlaceBets(context.Background(), r, []catalog.Bet{straightUp(17, 1000)}, rec.fn, &counters)

	require.ErrorIs(t, err, ErrCustodyTransfer)
	assert.Empty(t, r.Bets)
	assert.Zero(t, counters.TotalVolumeCents)
	assert.Equal(t, PhaseOpen, r.Phase)
}

func TestPlaceBets_AfterResolveFails(t *testing.T) {
	eng := New(catalog.Default())
	var counters Counters
	r, _ := newRound(t, eng, &counters, straightUp(17, 1000))
	require.NoError(t, eng.Resolve(r, 17))

	err := eng.PlaceBets(context.Background(), r, []catalog.Bet{straightUp(3, 500)}, nil, &counters)
	assert.ErrorIs(t, err, ErrRoundNotOpen)
}

// aposta de 10_00 no número certo paga 10_00*(35+1) = 360_00
func TestComputeRewards_StraightUpWin(t *testing.T) {
	eng := New(catalog.Default())
	var counters Counters
	r, _ := newRound(t, eng, &counters, straightUp(17, 1000))

	require.NoError(t, eng.Resolve(r, 17))
	require.NoError(t, eng.ComputeRewards(r, &counters))

	assert.Equal(t, uint64(36_000), r.TotalRewardCents)
	assert.Zero(t, r.TreasuryMarginCents)
	assert.Zero(t, counters.TreasuryCents)
	assert.Equal(t, PhaseRewarded, r.Phase)
}

func TestComputeRewards_MixedBatchOnZero(t *testing.T) {
	eng := New(catalog.Default())
	var counters Counters

	evens := make([]uint8, 18)
	for i := range evens {
		evens[i] = uint8(2 * (i + 1))
	}
	r, _ := newRound(t, eng, &counters,
		straightUp(0, 500),
		catalog.Bet{Category: 0, Differentiator: 0, Outcomes: evens, StakeCents: 300},
	)

	require.NoError(t, eng.Resolve(r, 0))
	require.NoError(t, eng.ComputeRewards(r, &counters))

	// só o straight-up cobre o zero: 500*(35+1); o even-money perde
	assert.Equal(t, uint64(18_000), r.TotalRewardCents)
	assert.Zero(t, r.TreasuryMarginCents, "prêmio acima do apostado zera a margem")
}

func TestComputeRewards_LossFeedsTreasury(t *testing.T) {
	eng := New(catalog.Default())
	var counters Counters
	r, _ := newRound(t, eng, &counters, straightUp(17, 1000), straightUp(3, 500))

	require.NoError(t, eng.Resolve(r, 20))
	require.NoError(t, eng.ComputeRewards(r, &counters))

	assert.Zero(t, r.TotalRewardCents)
	assert.Equal(t, uint64(1500), r.TreasuryMarginCents)
	assert.Equal(t, uint64(1500), counters.TreasuryCents)
}

func TestComputeRewards_ZeroStakeRound(t *testing.T) {
	eng := New(catalog.Default())
	var counters Counters
	r, _ := newRound(t, eng, &counters)

	require.NoError(t, eng.Resolve(r, 5))
	require.NoError(t, eng.ComputeRewards(r, &counters))

	assert.Zero(t, r.TotalRewardCents)
	assert.Zero(t, r.TreasuryMarginCents)
	assert.Equal(t, PhaseRewarded, r.Phase)
}

func TestResolve_Twice(t *testing.T) {
	eng := New(catalog.Default())
	var counters Counters
	r, _ := newRound(t, eng, &counters, straightUp(17, 1000))

	require.NoError(t, eng.Resolve(r, 17))
	assert.ErrorIs(t, eng.Resolve(r, 20), ErrAlreadyResolved)
	assert.Equal(t, uint8(17), r.WinningOutcome, "número vencedor não pode mudar")
}

func TestResolve_OutcomeOutOfRange(t *testing.T) {
	eng := New(catalog.Default())
	var counters Counters
	r, _ := newRound(t, eng, &counters, straightUp(17, 1000))
	assert.ErrorIs(t, eng.Resolve(r, NumOutcomes), ErrBadOutcome)
}

func TestComputeRewards_RequiresResolve(t *testing.T) {
	eng := New(catalog.Default())
	var counters Counters
	r, _ := newRound(t, eng, &counters, straightUp(17, 1000))
	assert.ErrorIs(t, eng.ComputeRewards(r, &counters), ErrNotResolved)
}

func TestComputeRewards_AtMostOnce(t *testing.T) {
	eng := New(catalog.Default())
	var counters Counters
	r, _ := newRound(t, eng, &counters, straightUp(17, 1000))
	require.NoError(t, eng.Resolve(r, 17))
	require.NoError(t, eng.ComputeRewards(r, &counters))

	assert.ErrorIs(t, eng.ComputeRewards(r, &counters), ErrDoubleReward)
	assert.Zero(t, counters.TreasuryCents, "segunda chamada não pode tocar a tesouraria")
}

// o snapshot congelado na resolução blinda o prêmio contra mudanças de payout
func TestResolve_FreezesMultipliers(t *testing.T) {
	cat := catalog.Default()
	eng := New(cat)
	var counters Counters
	r, _ := newRound(t, eng, &counters, straightUp(17, 1000))
	require.NoError(t, eng.Resolve(r, 17))

	require.NoError(t, cat.SetPayouts([]uint8{6}, []uint64{40}))
	require.NoError(t, eng.ComputeRewards(r, &counters))

	assert.Equal(t, uint64(36_000), r.TotalRewardCents, "usa o multiplicador vigente na resolução")
}

func TestRewardFor_MatchesStoredReward(t *testing.T) {
	eng := New(catalog.Default())
	var counters Counters
	r, _ := newRound(t, eng, &counters, straightUp(17, 1000), straightUp(3, 500))
	require.NoError(t, eng.Resolve(r, 17))
	require.NoError(t, eng.ComputeRewards(r, &counters))

	again, err := RewardFor(r, r.WinningOutcome)
	require.NoError(t, err)
	assert.Equal(t, r.TotalRewardCents, again)
}

func TestOpenRound_SequentialIDs(t *testing.T) {
	eng := New(catalog.Default())
	counters := Counters{RoundSeq: 41}

	r1 := eng.OpenRound("a", 1, &counters)
	r2 := eng.OpenRound("b", 1, &counters)
	assert.Equal(t, uint64(42), r1.RoundID)
	assert.Equal(t, uint64(43), r2.RoundID)
	assert.Equal(t, uint64(43), counters.RoundSeq)
}

func TestAddChecked_Overflow(t *testing.T) {
	_, err := AddChecked(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ErrOverflow)

	v, err := AddChecked(math.MaxUint64-1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), v)
}

func TestMulChecked_Overflow(t *testing.T) {
	_, err := MulChecked(math.MaxUint64/2+1, 2)
	assert.ErrorIs(t, err, ErrOverflow)

	v, err := MulChecked(0, math.MaxUint64)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestRewardFor_Overflow(t *testing.T) {
	r := &Round{Multipliers: [NumTiers]uint8{1, 2, 5, 8, 11, 17, 35}}
	r.Buckets[17][6] = math.MaxUint64 / 2
	_, err := RewardFor(r, 17)
	assert.ErrorIs(t, err, ErrOverflow)
}
