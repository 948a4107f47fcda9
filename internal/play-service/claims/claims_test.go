package claims

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/roulette-settlement-poc/internal/play-service/catalog"
	"github.com/radieske/roulette-settlement-poc/internal/play-service/engine"
)

// winningRound monta uma rodada liquidada com straight-up vencedor no 17
func winningRound(t *testing.T) *engine.Round {
	t.Helper()
	eng := engine.New(catalog.Default())
	var counters engine.Counters
	r := eng.OpenRound("user-1", 1, &counters)
	bet := catalog.Bet{Category: 6, Differentiator: 17, Outcomes: []uint8{17}, StakeCents: 1000}
	require.NoError(t, eng.PlaceBets(context.Background(), r, []catalog.Bet{bet}, nil, &counters))
	require.NoError(t, eng.Resolve(r, 17))
	require.NoError(t, eng.ComputeRewards(r, &counters))
	return r
}

// losingRound monta uma rodada liquidada sem bucket vencedor
func losingRound(t *testing.T) *engine.Round {
	t.Helper()
	eng := engine.New(catalog.Default())
	var counters engine.Counters
	r := eng.OpenRound("user-1", 2, &counters)
	bet := catalog.Bet{Category: 6, Differentiator: 3, Outcomes: []uint8{3}, StakeCents: 1000}
	require.NoError(t, eng.PlaceBets(context.Background(), r, []catalog.Bet{bet}, nil, &counters))
	require.NoError(t, eng.Resolve(r, 20))
	require.NoError(t, eng.ComputeRewards(r, &counters))
	return r
}

// stuckRound monta uma rodada com stake retido e sem resolução
func stuckRound(t *testing.T) *engine.Round {
	t.Helper()
	eng := engine.New(catalog.Default())
	var counters engine.Counters
	r := eng.OpenRound("user-1", 3, &counters)
	bet := catalog.Bet{Category: 6, Differentiator: 9, Outcomes: []uint8{9}, StakeCents: 700}
	require.NoError(t, eng.PlaceBets(context.Background(), r, []catalog.Bet{bet}, nil, &counters))
	return r
}

func TestClaimable_WinningRound(t *testing.T) {
	r := winningRound(t)
	ok, amount := Claimable(r)
	assert.True(t, ok)
	assert.Equal(t, uint64(36_000), amount)
	assert.False(t, Refundable(r), "rodada resolvida nunca é reembolsável")
}

func TestClaimable_LosingRound(t *testing.T) {
	r := losingRound(t)
	ok, amount := Claimable(r)
	assert.False(t, ok)
	assert.Zero(t, amount)
	assert.False(t, Refundable(r))
}

func TestRefundable_StuckRound(t *testing.T) {
	r := stuckRound(t)
	assert.True(t, Refundable(r))
	ok, _ := Claimable(r)
	assert.False(t, ok, "sacável e reembolsável são disjuntos")
}

func TestClaimable_NilRound(t *testing.T) {
	ok, amount := Claimable(nil)
	assert.False(t, ok)
	assert.Zero(t, amount)
	assert.False(t, Refundable(nil))
}

func TestSettle_PaysRewardOnce(t *testing.T) {
	r := winningRound(t)

	amount, kind, err := Settle(r)
	require.NoError(t, err)
	assert.Equal(t, uint64(36_000), amount)
	assert.Equal(t, KindReward, kind)
	assert.Equal(t, engine.PhaseClaimed, r.Phase)

	_, _, err = Settle(r)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
}

func TestSettle_RefundsStuckStake(t *testing.T) {
	r := stuckRound(t)

	amount, kind, err := Settle(r)
	require.NoError(t, err)
	assert.Equal(t, uint64(700), amount)
	assert.Equal(t, KindRefund, kind)
	assert.Equal(t, engine.PhaseRefunded, r.Phase)

	_, _, err = Settle(r)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
}

func TestSettle_NothingDue(t *testing.T) {
	r := losingRound(t)
	_, _, err := Settle(r)
	assert.ErrorIs(t, err, ErrNotClaimableOrRefundable)
	assert.False(t, r.Phase.Settled(), "rodada sem valor devido permanece como está")
}

// o valor fixado na liquidação é a fonte de verdade; divergência aborta o saque
func TestSettle_RewardMismatch(t *testing.T) {
	r := winningRound(t)
	r.TotalRewardCents = 1 // corrompido

	_, _, err := Settle(r)
	assert.ErrorIs(t, err, ErrRewardMismatch)
	assert.False(t, r.Phase.Settled())
}

func TestTotalClaimable_CheckpointAtCurrent(t *testing.T) {
	load := func(epoch uint64) (*engine.Round, error) {
		t.Fatalf("checkpoint == epoch corrente não pode carregar rodadas (epoch %d)", epoch)
		return nil, nil
	}
	ok, total, err := TotalClaimable(7, 7, load)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, total)
}

func TestTotalClaimable_SumsPendingEpochs(t *testing.T) {
	rounds := map[uint64]*engine.Round{
		1: winningRound(t), // 36_000
		2: losingRound(t),  // nada
		3: stuckRound(t),   // 700 de reembolso
	}
	load := func(epoch uint64) (*engine.Round, error) { return rounds[epoch], nil }

	ok, total, err := TotalClaimable(0, 3, load)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(36_700), total)
}

func TestSettleAll_SecondPassPaysNothing(t *testing.T) {
	rounds := map[uint64]*engine.Round{
		1: winningRound(t),
		2: losingRound(t),
		3: stuckRound(t),
	}
	load := func(epoch uint64) (*engine.Round, error) { return rounds[epoch], nil }

	total, touched, err := SettleAll(0, 3, load)
	require.NoError(t, err)
	assert.Equal(t, uint64(36_700), total)
	require.Len(t, touched, 2, "a rodada perdida não é tocada")
	assert.Equal(t, engine.PhaseClaimed, rounds[1].Phase)
	assert.Equal(t, engine.PhaseRefunded, rounds[3].Phase)

	total, touched, err = SettleAll(0, 3, load)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, touched)
}

func TestSettleAll_SkipsMissingEpochs(t *testing.T) {
	r := winningRound(t)
	load := func(epoch uint64) (*engine.Round, error) {
		if epoch == 4 {
			return r, nil
		}
		return nil, nil
	}

	total, touched, err := SettleAll(0, 5, load)
	require.NoError(t, err)
	assert.Equal(t, uint64(36_000), total)
	assert.Len(t, touched, 1)
}
