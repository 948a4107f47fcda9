package repo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/radieske/roulette-settlement-poc/internal/play-service/engine"
)

// roundRow é o espelho persistido de engine.Round. Buckets e multiplicadores
// viajam como JSONB; as apostas individuais ficam em round_bets.
type roundRow struct {
	UserID              string
	Epoch               uint64
	RoundID             uint64
	Phase               string
	TotalStakedCents    uint64
	Buckets             []byte
	Multipliers         []byte
	WinningOutcome      int16
	TotalRewardCents    uint64
	TreasuryMarginCents uint64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func toRow(r *engine.Round) (roundRow, error) {
	buckets, err := json.Marshal(r.Buckets)
	if err != nil {
		return roundRow{}, fmt.Errorf("marshal buckets: %w", err)
	}
	mults, err := json.Marshal(r.Multipliers)
	if err != nil {
		return roundRow{}, fmt.Errorf("marshal multipliers: %w", err)
	}
	return roundRow{
		UserID:              r.UserID,
		Epoch:               r.Epoch,
		RoundID:             r.RoundID,
		Phase:               r.Phase.String(),
		TotalStakedCents:    r.TotalStakedCents,
		Buckets:             buckets,
		Multipliers:         mults,
		WinningOutcome:      int16(r.WinningOutcome),
		TotalRewardCents:    r.TotalRewardCents,
		TreasuryMarginCents: r.TreasuryMarginCents,
	}, nil
}

func fromRow(row roundRow) (*engine.Round, error) {
	phase, err := engine.PhaseFromString(row.Phase)
	if err != nil {
		return nil, err
	}
	r := &engine.Round{
		UserID:              row.UserID,
		Epoch:               row.Epoch,
		RoundID:             row.RoundID,
		Phase:               phase,
		TotalStakedCents:    row.TotalStakedCents,
		WinningOutcome:      uint8(row.WinningOutcome),
		TotalRewardCents:    row.TotalRewardCents,
		TreasuryMarginCents: row.TreasuryMarginCents,
	}
	if err := json.Unmarshal(row.Buckets, &r.Buckets); err != nil {
		return nil, fmt.Errorf("unmarshal buckets: %w", err)
	}
	if err := json.Unmarshal(row.Multipliers, &r.Multipliers); err != nil {
		return nil, fmt.Errorf("unmarshal multipliers: %w", err)
	}
	return r, nil
}
