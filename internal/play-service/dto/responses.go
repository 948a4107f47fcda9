package dto

// PlayResponse é o resultado da jogada liquidada
type PlayResponse struct {
	RoundID             uint64 `json:"round_id"`
	Epoch               uint64 `json:"epoch"`
	WinningOutcome      uint8  `json:"winning_outcome"`
	TotalStakedCents    uint64 `json:"total_staked_cents"`
	TotalRewardCents    uint64 `json:"total_reward_cents"`
	TreasuryMarginCents uint64 `json:"treasury_margin_cents"`
	Phase               string `json:"phase"`
}

// RoundStatus é a visão de consulta de uma rodada
type RoundStatus struct {
	RoundID             uint64 `json:"round_id"`
	UserID              string `json:"user_id"`
	Epoch               uint64 `json:"epoch"`
	Phase               string `json:"phase"`
	WinningOutcome      uint8  `json:"winning_outcome"`
	BetCount            int    `json:"bet_count"`
	TotalStakedCents    uint64 `json:"total_staked_cents"`
	TotalRewardCents    uint64 `json:"total_reward_cents"`
	TreasuryMarginCents uint64 `json:"treasury_margin_cents"`
	Claimable           bool   `json:"claimable"`
	ClaimableCents      uint64 `json:"claimable_cents"`
	Refundable          bool   `json:"refundable"`
}

type TotalClaimableResponse struct {
	UserID       string `json:"user_id"`
	Checkpoint   uint64 `json:"checkpoint"`
	CurrentEpoch uint64 `json:"current_epoch"`
	Claimable    bool   `json:"claimable"`
	AmountCents  uint64 `json:"amount_cents"`
}

type ClaimResponse struct {
	UserID     string `json:"user_id"`
	PaidCents  uint64 `json:"paid_cents"`
	Kind       string `json:"kind"`
	FromEpoch  uint64 `json:"from_epoch"`
	ToEpoch    uint64 `json:"to_epoch"`
	RoundCount int    `json:"round_count"`
}

type CatalogEntry struct {
	Category       uint8  `json:"category"`
	Name           string `json:"name"`
	OutcomeCount   uint8  `json:"outcome_count"`
	Multiplier     uint8  `json:"multiplier"`
	Differentiator int    `json:"differentiator_count"`
	MinStakeCents  uint64 `json:"min_stake_cents"`
	MaxStakeCents  uint64 `json:"max_stake_cents"`
}

type TreasuryResponse struct {
	PaidCents uint64 `json:"paid_cents"`
	To        string `json:"to"`
}
