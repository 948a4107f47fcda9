package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// WheelModulus reduz a leitura do oráculo às 37 posições da roda
const WheelModulus = 37

var (
	ErrStaleData         = errors.New("oracle data outside staleness window")
	ErrNonMonotonicRound = errors.New("oracle round id lower than last accepted")
)

// Adapter aplica as garantias de consumo sobre a fonte: janela de frescor do
// timestamp e monotonicidade do round id. A marca d'água aceita é estado do
// chamador (persistida junto da rodada); o adapter apenas valida e propõe a
// nova marca.
type Adapter struct {
	src       Source
	allowedNs atomic.Int64
	now       func() time.Time
}

func NewAdapter(src Source, allowed time.Duration) *Adapter {
	a := &Adapter{src: src, now: time.Now}
	a.allowedNs.Store(int64(allowed))
	return a
}

// SetStaleness ajusta a janela de frescor (admin)
func (a *Adapter) SetStaleness(d time.Duration) { a.allowedNs.Store(int64(d)) }

// Staleness devolve a janela vigente
func (a *Adapter) Staleness() time.Duration { return time.Duration(a.allowedNs.Load()) }

// ResolveOutcome busca a leitura mais recente e a valida.
// Falha com ErrStaleData se o timestamp desviar além da janela permitida e
// com ErrNonMonotonicRound se o round id regredir em relação a lastAccepted
// (proteção contra replay); nesses casos lastAccepted permanece como está.
// No sucesso devolve o número já reduzido mod 37 e a nova marca d'água.
func (a *Adapter) ResolveOutcome(ctx context.Context, lastAccepted uint64) (uint8, uint64, error) {
	rd, err := a.src.LatestRoundData(ctx, WheelModulus)
	if err != nil {
		return 0, 0, fmt.Errorf("oracle fetch: %w", err)
	}

	ts := time.UnixMilli(rd.TimestampMs)
	drift := a.now().Sub(ts)
	if drift < 0 {
		drift = -drift
	}
	if drift > a.Staleness() {
		return 0, 0, fmt.Errorf("%w: reading ts %s, drift %s", ErrStaleData, ts.UTC().Format(time.RFC3339), drift)
	}

	if rd.RoundID < lastAccepted {
		return 0, 0, fmt.Errorf("%w: got %d, last accepted %d", ErrNonMonotonicRound, rd.RoundID, lastAccepted)
	}

	// a fonte promete valor já reduzido; o motor reduz de novo mod 37
	return uint8(rd.Value % WheelModulus), rd.RoundID, nil
}
