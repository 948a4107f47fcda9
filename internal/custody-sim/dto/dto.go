package dto

type DepositRequest struct {
	UserID      string `json:"userId"`
	AmountCents uint64 `json:"amount_cents"`
	ExternalRef string `json:"external_ref,omitempty"` // opcional p/ rastreio
}

type TransferRequest struct {
	From        string `json:"from"`
	To          string `json:"to"`
	AmountCents uint64 `json:"amount_cents"`
	ExternalRef string `json:"external_ref"` // ex: play:user:epoch
}

type BalanceResponse struct {
	UserID       string `json:"userId"`
	BalanceCents uint64 `json:"balance_cents"`
}

type TransferResponse struct {
	TransferID string `json:"transfer_id"`
	Status     string `json:"status"`
}
