package events

// Evento publicado após a liquidação atômica de uma rodada (aposta+sorteio+prêmio)
type RoundSettled struct {
	RoundID             uint64 `json:"round_id"`
	UserID              string `json:"user_id"`
	Epoch               uint64 `json:"epoch"`
	WinningOutcome      uint8  `json:"winning_outcome"`
	BetCount            int    `json:"bet_count"`
	TotalStakedCents    uint64 `json:"total_staked_cents"`
	TotalRewardCents    uint64 `json:"total_reward_cents"`
	TreasuryMarginCents uint64 `json:"treasury_margin_cents"`
	OracleRoundID       uint64 `json:"oracle_round_id"`
	TsUnixMs            int64  `json:"ts_unix_ms"`
}
