package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource devolve sempre a mesma leitura (ou erro) configurada
type fakeSource struct {
	rd  Reading
	err error
}

func (f *fakeSource) LatestRoundData(ctx context.Context, modulus uint64) (Reading, error) {
	return f.rd, f.err
}

var fixedNow = time.UnixMilli(1_700_000_000_000)

func newTestAdapter(rd Reading, allowed time.Duration) *Adapter {
	a := NewAdapter(&fakeSource{rd: rd}, allowed)
	a.now = func() time.Time { return fixedNow }
	return a
}

func TestResolveOutcome_FreshReading(t *testing.T) {
	a := newTestAdapter(Reading{RoundID: 10, Value: 17, TimestampMs: fixedNow.UnixMilli()}, time.Minute)

	outcome, hwm, err := a.ResolveOutcome(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, uint8(17), outcome)
	assert.Equal(t, uint64(10), hwm)
}

func TestResolveOutcome_ModuloReduction(t *testing.T) {
	a := newTestAdapter(Reading{RoundID: 10, Value: 74, TimestampMs: fixedNow.UnixMilli()}, time.Minute)

	outcome, _, err := a.ResolveOutcome(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), outcome) // 74 % 37
}

func TestResolveOutcome_StaleReading(t *testing.T) {
	old := fixedNow.Add(-2 * time.Minute).UnixMilli()
	a := newTestAdapter(Reading{RoundID: 10, Value: 5, TimestampMs: old}, time.Minute)

	_, _, err := a.ResolveOutcome(context.Background(), 0)
	assert.ErrorIs(t, err, ErrStaleData)
}

// desvio é absoluto: timestamp no futuro além da janela também é rejeitado
func TestResolveOutcome_FutureDrift(t *testing.T) {
	future := fixedNow.Add(2 * time.Minute).UnixMilli()
	a := newTestAdapter(Reading{RoundID: 10, Value: 5, TimestampMs: future}, time.Minute)

	_, _, err := a.ResolveOutcome(context.Background(), 0)
	assert.ErrorIs(t, err, ErrStaleData)
}

func TestResolveOutcome_DriftAtBoundary(t *testing.T) {
	edge := fixedNow.Add(-time.Minute).UnixMilli()
	a := newTestAdapter(Reading{RoundID: 10, Value: 5, TimestampMs: edge}, time.Minute)

	_, _, err := a.ResolveOutcome(context.Background(), 0)
	assert.NoError(t, err, "desvio exatamente na janela ainda é aceito")
}

func TestResolveOutcome_NonMonotonicRound(t *testing.T) {
	a := newTestAdapter(Reading{RoundID: 5, Value: 5, TimestampMs: fixedNow.UnixMilli()}, time.Minute)

	_, _, err := a.ResolveOutcome(context.Background(), 6)
	assert.ErrorIs(t, err, ErrNonMonotonicRound)
}

// round id repetido não é regressão (a fonte pode ser lida mais de uma vez)
func TestResolveOutcome_EqualRoundID(t *testing.T) {
	a := newTestAdapter(Reading{RoundID: 6, Value: 12, TimestampMs: fixedNow.UnixMilli()}, time.Minute)

	outcome, hwm, err := a.ResolveOutcome(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, uint8(12), outcome)
	assert.Equal(t, uint64(6), hwm)
}

func TestResolveOutcome_FetchError(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	a := NewAdapter(src, time.Minute)

	_, _, err := a.ResolveOutcome(context.Background(), 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStaleData)
	assert.NotErrorIs(t, err, ErrNonMonotonicRound)
}

func TestSetStaleness(t *testing.T) {
	a := NewAdapter(&fakeSource{}, time.Minute)
	a.SetStaleness(5 * time.Second)
	assert.Equal(t, 5*time.Second, a.Staleness())
}
