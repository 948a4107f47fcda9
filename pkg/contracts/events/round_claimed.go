package events

// Evento emitido quando o usuário saca prêmio ou reembolso de rodadas
type RoundClaimed struct {
	UserID     string `json:"user_id"`
	FromEpoch  uint64 `json:"from_epoch"`
	ToEpoch    uint64 `json:"to_epoch"`
	PaidCents  uint64 `json:"paid_cents"`
	Kind       string `json:"kind"` // "REWARD" | "REFUND" | "BULK"
	RoundCount int    `json:"round_count"`
	TsUnixMs   int64  `json:"ts_unix_ms"`
}
