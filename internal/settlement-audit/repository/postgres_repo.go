package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/radieske/roulette-settlement-poc/pkg/contracts/events"
)

// PostgresRepo implementa a trilha de auditoria das liquidações
// DB: conexão com o banco de dados
type PostgresRepo struct {
	DB *sql.DB
}

// NewPostgresRepo retorna uma instância de repositório Postgres
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS settlement_history (
	round_id              BIGINT      NOT NULL,
	user_id               TEXT        NOT NULL,
	epoch                 BIGINT      NOT NULL,
	winning_outcome       SMALLINT    NOT NULL,
	bet_count             INT         NOT NULL,
	total_staked_cents    BIGINT      NOT NULL,
	total_reward_cents    BIGINT      NOT NULL,
	treasury_margin_cents BIGINT      NOT NULL,
	oracle_round_id       BIGINT      NOT NULL,
	settled_at            TIMESTAMPTZ NOT NULL,
	recorded_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, epoch)
);
`

// EnsureSchema cria a tabela de histórico na subida do worker
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, schema)
	return err
}

// InsertHistory grava a liquidação no histórico; reentrega do mesmo evento
// não duplica (ON CONFLICT DO NOTHING)
func (r *PostgresRepo) InsertHistory(ctx context.Context, e events.RoundSettled) error {
	const q = `
		INSERT INTO settlement_history
		  (round_id, user_id, epoch, winning_outcome, bet_count,
		   total_staked_cents, total_reward_cents, treasury_margin_cents,
		   oracle_round_id, settled_at)
		VALUES
		  ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (user_id, epoch) DO NOTHING
	`
	_, err := r.DB.ExecContext(ctx, q,
		e.RoundID, e.UserID, e.Epoch, e.WinningOutcome, e.BetCount,
		e.TotalStakedCents, e.TotalRewardCents, e.TreasuryMarginCents,
		e.OracleRoundID, time.UnixMilli(e.TsUnixMs),
	)
	return err
}
