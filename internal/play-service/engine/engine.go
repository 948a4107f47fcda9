package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/radieske/roulette-settlement-poc/internal/play-service/catalog"
)

const (
	NumOutcomes = catalog.NumOutcomes
	NumTiers    = catalog.NumCategories
)

var (
	ErrRoundNotOpen    = errors.New("round not open for bets")
	ErrAlreadyResolved = errors.New("round already resolved")
	ErrNotResolved     = errors.New("round not resolved")
	ErrDoubleReward    = errors.New("reward already computed for round")
	ErrBadOutcome      = errors.New("winning outcome out of wheel range")
	ErrOverflow        = errors.New("amount overflow")
	ErrCustodyTransfer = errors.New("custody transfer failed")
)

// Phase é a máquina de estados explícita da rodada. O guard "prêmio calculado
// no máximo uma vez" vive aqui, e não num sentinela de valor zero: uma rodada
// cujo prêmio real é zero continua distinguível de "ainda não calculado".
type Phase uint8

const (
	PhaseOpen Phase = iota
	PhaseBetsPlaced
	PhaseResolved
	PhaseRewarded
	PhaseClaimed
	PhaseRefunded
)

func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "OPEN"
	case PhaseBetsPlaced:
		return "BETS_PLACED"
	case PhaseResolved:
		return "RESOLVED"
	case PhaseRewarded:
		return "REWARDED"
	case PhaseClaimed:
		return "CLAIMED"
	case PhaseRefunded:
		return "REFUNDED"
	}
	return fmt.Sprintf("PHASE(%d)", uint8(p))
}

// PhaseFromString é o inverso de String (carga do banco)
func PhaseFromString(s string) (Phase, error) {
	for p := PhaseOpen; p <= PhaseRefunded; p++ {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown round phase %q", s)
}

// Settled indica que a rodada já foi paga (prêmio ou reembolso)
func (p Phase) Settled() bool { return p == PhaseClaimed || p == PhaseRefunded }

// Round é o agregado de uma jogada: identidade (user, epoch), apostas,
// buckets de acumulação [posição][tier] e resultado da resolução.
// Tier é a dimensão de payout; com 7 multiplicadores distintos o tier
// coincide com o índice da categoria.
type Round struct {
	UserID  string
	Epoch   uint64
	RoundID uint64

	Bets             []catalog.Bet
	TotalStakedCents uint64
	Buckets          [NumOutcomes][NumTiers]uint64

	Phase               Phase
	WinningOutcome      uint8
	Multipliers         [NumTiers]uint8 // snapshot congelado na resolução
	TotalRewardCents    uint64
	TreasuryMarginCents uint64
}

// Counters agrupa os contadores globais do motor. Estado explícito, sem
// singletons: o chamador carrega, passa por referência e persiste.
type Counters struct {
	RoundSeq         uint64
	TreasuryCents    uint64
	TotalVolumeCents uint64
}

// TransferFunc executa a movimentação custodial do total do lote.
// É chamada no máximo uma vez por PlaceBets.
type TransferFunc func(ctx context.Context, amountCents uint64) error

// Engine orquestra o ciclo de vida das rodadas contra o catálogo
type Engine struct {
	cat *catalog.Catalog
}

func New(cat *catalog.Catalog) *Engine { return &Engine{cat: cat} }

// AddChecked soma valores sem permitir wraparound
func AddChecked(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// MulChecked multiplica valores sem permitir wraparound
func MulChecked(a, b uint64) (uint64, error) {
	if a != 0 && b > math.MaxUint64/a {
		return 0, ErrOverflow
	}
	return a * b, nil
}

// OpenRound aloca uma rodada vazia para (user, epoch) com o próximo id global
func (e *Engine) OpenRound(userID string, epoch uint64, counters *Counters) *Round {
	counters.RoundSeq++
	return &Round{
		UserID:  userID,
		Epoch:   epoch,
		RoundID: counters.RoundSeq,
		Phase:   PhaseOpen,
	}
}

// PlaceBets valida e acumula o lote de apostas na rodada.
// Sequência: valida o lote inteiro, dispara a custódia uma única vez com o
// total, e só então acumula. Nenhuma aposta é registrada sem transferência
// bem-sucedida; qualquer erro deixa a rodada intocada.
func (e *Engine) PlaceBets(ctx context.Context, r *Round, bets []catalog.Bet, transfer TransferFunc, counters *Counters) error {
	if r.Phase != PhaseOpen {
		return ErrRoundNotOpen
	}

	if err := e.cat.ValidateBatch(bets); err != nil {
		return err
	}

	var total uint64
	for _, b := range bets {
		t, err := AddChecked(total, b.StakeCents)
		if err != nil {
			return fmt.Errorf("batch total: %w", err)
		}
		total = t
	}

	// custódia: uma única chamada para o total do lote (nada a mover se zero)
	if total > 0 && transfer != nil {
		if err := transfer(ctx, total); err != nil {
			return fmt.Errorf("%w: %v", ErrCustodyTransfer, err)
		}
	}

	for _, b := range bets {
		tier := int(b.Category)
		for _, o := range b.Outcomes {
			sum, err := AddChecked(r.Buckets[o][tier], b.StakeCents)
			if err != nil {
				return fmt.Errorf("bucket outcome %d tier %d: %w", o, tier, err)
			}
			r.Buckets[o][tier] = sum
		}
		r.Bets = append(r.Bets, b)
	}
	r.TotalStakedCents = total

	vol, err := AddChecked(counters.TotalVolumeCents, total)
	if err != nil {
		return fmt.Errorf("total volume: %w", err)
	}
	counters.TotalVolumeCents = vol

	if len(bets) > 0 {
		r.Phase = PhaseBetsPlaced
	}
	return nil
}

// Resolve fixa o número vencedor, uma única vez, e congela o snapshot de
// multiplicadores usado em qualquer recomputação futura do prêmio
func (e *Engine) Resolve(r *Round, outcome uint8) error {
	if r.Phase != PhaseOpen && r.Phase != PhaseBetsPlaced {
		return ErrAlreadyResolved
	}
	if outcome >= NumOutcomes {
		return fmt.Errorf("%w: %d", ErrBadOutcome, outcome)
	}
	r.WinningOutcome = outcome
	r.Multipliers = e.cat.Multipliers()
	r.Phase = PhaseResolved
	return nil
}

// ComputeRewards calcula prêmio e margem da casa, uma única vez por rodada.
// Para cada tier, o bucket do número vencedor paga stake*(multiplicador+1)
// (principal + ganho). A margem é totalStaked-prêmio com piso em zero e vai
// para a tesouraria global.
func (e *Engine) ComputeRewards(r *Round, counters *Counters) error {
	if r.Phase != PhaseResolved {
		if r.Phase > PhaseResolved {
			return ErrDoubleReward
		}
		return ErrNotResolved
	}
	// guarda defensiva herdada: nunca alcançável com a máquina de fases íntegra
	if r.TotalRewardCents != 0 {
		return ErrDoubleReward
	}

	reward, err := RewardFor(r, r.WinningOutcome)
	if err != nil {
		return err
	}

	r.TotalRewardCents = reward
	if r.TotalStakedCents > reward {
		r.TreasuryMarginCents = r.TotalStakedCents - reward
	} else {
		r.TreasuryMarginCents = 0
	}

	tre, err := AddChecked(counters.TreasuryCents, r.TreasuryMarginCents)
	if err != nil {
		return fmt.Errorf("treasury: %w", err)
	}
	counters.TreasuryCents = tre

	r.Phase = PhaseRewarded
	return nil
}

// RewardFor recalcula o prêmio de uma rodada para um número, somente leitura.
// Usada tanto no cálculo oficial quanto na consulta de claim, garantindo que
// a recomputação seja idêntica ao valor fixado.
func RewardFor(r *Round, outcome uint8) (uint64, error) {
	if outcome >= NumOutcomes {
		return 0, fmt.Errorf("%w: %d", ErrBadOutcome, outcome)
	}
	var total uint64
	for tier := 0; tier < NumTiers; tier++ {
		staked := r.Buckets[outcome][tier]
		if staked == 0 {
			continue
		}
		pay, err := MulChecked(staked, uint64(r.Multipliers[tier])+1)
		if err != nil {
			return 0, fmt.Errorf("tier %d: %w", tier, err)
		}
		total, err = AddChecked(total, pay)
		if err != nil {
			return 0, fmt.Errorf("tier %d: %w", tier, err)
		}
	}
	return total, nil
}
