package claims

import (
	"errors"
	"fmt"

	"github.com/radieske/roulette-settlement-poc/internal/play-service/engine"
)

var (
	ErrAlreadyClaimed           = errors.New("round already claimed")
	ErrNotClaimableOrRefundable = errors.New("round not claimable or refundable")
	ErrRewardMismatch           = errors.New("recomputed reward diverges from stored reward")
)

// Kind distingue pagamento de prêmio e devolução de stake
type Kind string

const (
	KindReward Kind = "REWARD"
	KindRefund Kind = "REFUND"
)

// Claimable indica se a rodada tem prêmio sacável e quanto.
// O valor é recomputado dos buckets (leitura) e precisa bater com o
// TotalRewardCents fixado na liquidação — ver Settle.
func Claimable(r *engine.Round) (bool, uint64) {
	if r == nil || r.Phase.Settled() {
		return false, 0
	}
	if r.Phase < engine.PhaseResolved {
		return false, 0
	}
	amount, err := engine.RewardFor(r, r.WinningOutcome)
	if err != nil {
		return false, 0
	}
	return amount > 0, amount
}

// Refundable indica stake retido sem resolução (ex.: falha de oráculo).
// Por construção é disjunto de Claimable: resolução implica não-reembolsável.
func Refundable(r *engine.Round) bool {
	if r == nil || r.Phase.Settled() {
		return false
	}
	return r.TotalStakedCents != 0 && r.Phase < engine.PhaseResolved
}

// Settle marca a rodada como paga (no máximo uma vez) e devolve o valor
// devido: prêmio se sacável, stake integral se reembolsável
func Settle(r *engine.Round) (uint64, Kind, error) {
	if r == nil {
		return 0, "", ErrNotClaimableOrRefundable
	}
	if r.Phase.Settled() {
		return 0, "", ErrAlreadyClaimed
	}
	if ok, amount := Claimable(r); ok {
		// a recomputação é conveniência de leitura, nunca segunda fonte de verdade
		if r.Phase >= engine.PhaseRewarded && amount != r.TotalRewardCents {
			return 0, "", fmt.Errorf("%w: recomputed %d, stored %d", ErrRewardMismatch, amount, r.TotalRewardCents)
		}
		r.Phase = engine.PhaseClaimed
		return amount, KindReward, nil
	}
	if Refundable(r) {
		r.Phase = engine.PhaseRefunded
		return r.TotalStakedCents, KindRefund, nil
	}
	return 0, "", ErrNotClaimableOrRefundable
}

// RoundLoader carrega a rodada de um epoch do usuário (nil se inexistente)
type RoundLoader func(epoch uint64) (*engine.Round, error)

// TotalClaimable soma os valores pendentes nos epochs estritamente acima do
// checkpoint até o epoch corrente. checkpoint == corrente devolve (false, 0)
// sem carregar rodada alguma.
func TotalClaimable(checkpoint, currentEpoch uint64, load RoundLoader) (bool, uint64, error) {
	if currentEpoch <= checkpoint {
		return false, 0, nil
	}
	var total uint64
	for ep := checkpoint + 1; ep <= currentEpoch; ep++ {
		r, err := load(ep)
		if err != nil {
			return false, 0, err
		}
		var amount uint64
		if ok, a := Claimable(r); ok {
			amount = a
		} else if Refundable(r) {
			amount = r.TotalStakedCents
		} else {
			continue
		}
		total, err = engine.AddChecked(total, amount)
		if err != nil {
			return false, 0, err
		}
	}
	return total > 0, total, nil
}

// SettleAll liquida tudo que estiver pendente acima do checkpoint, mutando as
// rodadas afetadas, e devolve o total agregado. Rodadas já pagas ou sem valor
// são puladas; o chamador persiste as fases e avança o checkpoint.
func SettleAll(checkpoint, currentEpoch uint64, load RoundLoader) (uint64, []*engine.Round, error) {
	var total uint64
	var touched []*engine.Round
	for ep := checkpoint + 1; ep <= currentEpoch; ep++ {
		r, err := load(ep)
		if err != nil {
			return 0, nil, err
		}
		if r == nil {
			continue
		}
		amount, _, err := Settle(r)
		if errors.Is(err, ErrAlreadyClaimed) || errors.Is(err, ErrNotClaimableOrRefundable) {
			continue
		}
		if err != nil {
			return 0, nil, err
		}
		total, err = engine.AddChecked(total, amount)
		if err != nil {
			return 0, nil, err
		}
		touched = append(touched, r)
	}
	return total, touched, nil
}
