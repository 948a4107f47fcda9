package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/radieske/roulette-settlement-poc/internal/play-service/catalog"
	"github.com/radieske/roulette-settlement-poc/internal/play-service/engine"
)

var ErrRoundNotFound = errors.New("round not found")

// Queryer aceita tanto *sql.DB quanto *sql.Tx; operações do fluxo de jogada
// rodam sempre dentro de uma transação aberta pelo chamador
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Postgres implementa a persistência do núcleo de liquidação
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de rodadas
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) DB() *sql.DB { return p.db }

func (p *Postgres) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return p.db.BeginTx(ctx, nil)
}

// LoadCounters carrega os contadores globais; forUpdate serializa jogadas
// concorrentes sobre a sequência de rodadas e a tesouraria
func (p *Postgres) LoadCounters(ctx context.Context, q Queryer, forUpdate bool) (engine.Counters, error) {
	query := `SELECT round_seq, treasury_cents, total_volume_cents FROM engine_counters WHERE id`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var c engine.Counters
	err := q.QueryRowContext(ctx, query).Scan(&c.RoundSeq, &c.TreasuryCents, &c.TotalVolumeCents)
	return c, err
}

func (p *Postgres) SaveCounters(ctx context.Context, q Queryer, c engine.Counters) error {
	_, err := q.ExecContext(ctx,
		`UPDATE engine_counters SET round_seq=$1, treasury_cents=$2, total_volume_cents=$3 WHERE id`,
		c.RoundSeq, c.TreasuryCents, c.TotalVolumeCents)
	return err
}

// NextEpoch incrementa e devolve o contador de epochs do usuário (começa em 1)
func (p *Postgres) NextEpoch(ctx context.Context, q Queryer, userID string) (uint64, error) {
	var epoch uint64
	err := q.QueryRowContext(ctx, `
		INSERT INTO user_state (user_id, epoch_seq) VALUES ($1, 1)
		ON CONFLICT (user_id) DO UPDATE SET epoch_seq = user_state.epoch_seq + 1
		RETURNING epoch_seq`, userID).Scan(&epoch)
	return epoch, err
}

// UserState devolve (epoch corrente, checkpoint de claim); usuário sem
// histórico devolve zeros
func (p *Postgres) UserState(ctx context.Context, q Queryer, userID string, forUpdate bool) (epochSeq, checkpoint uint64, err error) {
	query := `SELECT epoch_seq, claim_checkpoint FROM user_state WHERE user_id=$1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	err = q.QueryRowContext(ctx, query, userID).Scan(&epochSeq, &checkpoint)
	if err == sql.ErrNoRows {
		return 0, 0, nil
	}
	return epochSeq, checkpoint, err
}

// AdvanceCheckpoint move a marca de claim em bloco do usuário
func (p *Postgres) AdvanceCheckpoint(ctx context.Context, q Queryer, userID string, to uint64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE user_state SET claim_checkpoint=$1 WHERE user_id=$2`, to, userID)
	return err
}

// InsertRound persiste a rodada liquidada e suas apostas
func (p *Postgres) InsertRound(ctx context.Context, q Queryer, r *engine.Round) error {
	row, err := toRow(r)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO rounds
		  (user_id, epoch, round_id, phase, total_staked_cents, buckets, multipliers,
		   winning_outcome, total_reward_cents, treasury_margin_cents)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		row.UserID, row.Epoch, row.RoundID, row.Phase, row.TotalStakedCents,
		row.Buckets, row.Multipliers, row.WinningOutcome, row.TotalRewardCents,
		row.TreasuryMarginCents)
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}

	for i, b := range r.Bets {
		outcomes, merr := json.Marshal(b.Outcomes)
		if merr != nil {
			return fmt.Errorf("marshal bet outcomes: %w", merr)
		}
		if _, err = q.ExecContext(ctx, `
			INSERT INTO round_bets (user_id, epoch, seq, category, differentiator, outcomes, stake_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			r.UserID, r.Epoch, i, b.Category, b.Differentiator, outcomes, b.StakeCents); err != nil {
			return fmt.Errorf("insert round bet %d: %w", i, err)
		}
	}
	return nil
}

// GetRound carrega a rodada (user, epoch); (nil, nil) se não existir
func (p *Postgres) GetRound(ctx context.Context, q Queryer, userID string, epoch uint64, forUpdate bool) (*engine.Round, error) {
	query := `
		SELECT user_id, epoch, round_id, phase, total_staked_cents, buckets, multipliers,
		       winning_outcome, total_reward_cents, treasury_margin_cents
		FROM rounds WHERE user_id=$1 AND epoch=$2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var row roundRow
	err := q.QueryRowContext(ctx, query, userID, epoch).Scan(
		&row.UserID, &row.Epoch, &row.RoundID, &row.Phase, &row.TotalStakedCents,
		&row.Buckets, &row.Multipliers, &row.WinningOutcome, &row.TotalRewardCents,
		&row.TreasuryMarginCents)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r, err := fromRow(row)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT category, differentiator, outcomes, stake_cents
		FROM round_bets WHERE user_id=$1 AND epoch=$2 ORDER BY seq`, userID, epoch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var b catalog.Bet
		var outcomes []byte
		if err := rows.Scan(&b.Category, &b.Differentiator, &outcomes, &b.StakeCents); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(outcomes, &b.Outcomes); err != nil {
			return nil, fmt.Errorf("unmarshal bet outcomes: %w", err)
		}
		r.Bets = append(r.Bets, b)
	}
	return r, rows.Err()
}

// UpdateRoundPhase grava a transição de fase (claim/refund)
func (p *Postgres) UpdateRoundPhase(ctx context.Context, q Queryer, userID string, epoch uint64, phase engine.Phase) error {
	res, err := q.ExecContext(ctx,
		`UPDATE rounds SET phase=$1, updated_at=NOW() WHERE user_id=$2 AND epoch=$3`,
		phase.String(), userID, epoch)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRoundNotFound
	}
	return nil
}

// SaveCategoryParams persiste os campos ajustáveis do catálogo (upsert em lote)
func (p *Postgres) SaveCategoryParams(ctx context.Context, q Queryer, ps []catalog.Params) error {
	for _, cp := range ps {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO category_params (category, multiplier, min_stake_cents, max_stake_cents)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (category) DO UPDATE SET
			  multiplier      = EXCLUDED.multiplier,
			  min_stake_cents = EXCLUDED.min_stake_cents,
			  max_stake_cents = EXCLUDED.max_stake_cents`,
			cp.Category, cp.Multiplier, cp.MinStakeCents, cp.MaxStakeCents); err != nil {
			return fmt.Errorf("save category %d: %w", cp.Category, err)
		}
	}
	return nil
}

// LoadCategoryParams carrega os ajustes persistidos (vazio no primeiro boot)
func (p *Postgres) LoadCategoryParams(ctx context.Context, q Queryer) ([]catalog.Params, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT category, multiplier, min_stake_cents, max_stake_cents FROM category_params ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []catalog.Params
	for rows.Next() {
		var cp catalog.Params
		if err := rows.Scan(&cp.Category, &cp.Multiplier, &cp.MinStakeCents, &cp.MaxStakeCents); err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

func (p *Postgres) SetPaused(ctx context.Context, q Queryer, paused bool) error {
	_, err := q.ExecContext(ctx, `UPDATE engine_flags SET paused=$1 WHERE id`, paused)
	return err
}

func (p *Postgres) Paused(ctx context.Context, q Queryer) (bool, error) {
	var paused bool
	err := q.QueryRowContext(ctx, `SELECT paused FROM engine_flags WHERE id`).Scan(&paused)
	return paused, err
}

func (p *Postgres) SetStalenessMs(ctx context.Context, q Queryer, ms int64) error {
	_, err := q.ExecContext(ctx, `UPDATE engine_flags SET oracle_staleness_ms=$1 WHERE id`, ms)
	return err
}

func (p *Postgres) StalenessMs(ctx context.Context, q Queryer) (int64, error) {
	var ms int64
	err := q.QueryRowContext(ctx, `SELECT oracle_staleness_ms FROM engine_flags WHERE id`).Scan(&ms)
	return ms, err
}

// OracleHWM devolve a marca d'água de round do oráculo
func (p *Postgres) OracleHWM(ctx context.Context, q Queryer, forUpdate bool) (uint64, error) {
	query := `SELECT last_round_id FROM oracle_state WHERE id`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var hwm uint64
	err := q.QueryRowContext(ctx, query).Scan(&hwm)
	return hwm, err
}

func (p *Postgres) SetOracleHWM(ctx context.Context, q Queryer, v uint64) error {
	_, err := q.ExecContext(ctx, `UPDATE oracle_state SET last_round_id=$1 WHERE id`, v)
	return err
}
