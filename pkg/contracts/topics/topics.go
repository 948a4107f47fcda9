package topics

const (
	// Rodadas
	RoundSettled = "round_settled"
	RoundClaimed = "round_claimed"

	// DLQs
	RoundSettledDLQ = "round_settled_dlq"
)
