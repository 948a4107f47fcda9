package dto

// BetInput é uma aposta do lote enviado pelo cliente
type BetInput struct {
	Category       uint8   `json:"category"`
	Differentiator uint8   `json:"differentiator"`
	Outcomes       []uint8 `json:"outcomes"`
	StakeCents     uint64  `json:"stake_cents"`
}

// PlayRequest dispara a jogada atômica: abre rodada, aposta, sorteia e liquida
type PlayRequest struct {
	UserID string     `json:"userId"`
	Bets   []BetInput `json:"bets"`
}

// AdminBatchUpdate carrega arrays paralelos (categoria, valor) para
// atualização atômica de payout/min/max
type AdminBatchUpdate struct {
	Categories []uint8  `json:"categories"`
	Values     []uint64 `json:"values"`
}

type StalenessUpdate struct {
	AllowedMs int64 `json:"allowed_ms"`
}

type TreasuryWithdrawRequest struct {
	To string `json:"to,omitempty"` // default: conta de tesouraria da config
}

type EmergencyWithdrawRequest struct {
	To          string `json:"to"`
	AmountCents uint64 `json:"amount_cents"`
}
