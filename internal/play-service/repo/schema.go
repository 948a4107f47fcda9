package repo

import "context"

// schema do núcleo de liquidação. Tudo que o usuário pode sacar vive aqui;
// Redis é só cache.
const schema = `
CREATE TABLE IF NOT EXISTS rounds (
	user_id               TEXT        NOT NULL,
	epoch                 BIGINT      NOT NULL,
	round_id              BIGINT      NOT NULL,
	phase                 TEXT        NOT NULL,
	total_staked_cents    BIGINT      NOT NULL DEFAULT 0,
	buckets               JSONB       NOT NULL,
	multipliers           JSONB       NOT NULL,
	winning_outcome       SMALLINT    NOT NULL DEFAULT 0,
	total_reward_cents    BIGINT      NOT NULL DEFAULT 0,
	treasury_margin_cents BIGINT      NOT NULL DEFAULT 0,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, epoch)
);

CREATE TABLE IF NOT EXISTS round_bets (
	user_id        TEXT     NOT NULL,
	epoch          BIGINT   NOT NULL,
	seq            INT      NOT NULL,
	category       SMALLINT NOT NULL,
	differentiator SMALLINT NOT NULL,
	outcomes       JSONB    NOT NULL,
	stake_cents    BIGINT   NOT NULL,
	PRIMARY KEY (user_id, epoch, seq)
);

CREATE TABLE IF NOT EXISTS user_state (
	user_id          TEXT PRIMARY KEY,
	epoch_seq        BIGINT NOT NULL DEFAULT 0,
	claim_checkpoint BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS engine_counters (
	id                 BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (id),
	round_seq          BIGINT NOT NULL DEFAULT 0,
	treasury_cents     BIGINT NOT NULL DEFAULT 0,
	total_volume_cents BIGINT NOT NULL DEFAULT 0
);
INSERT INTO engine_counters (id) VALUES (TRUE) ON CONFLICT DO NOTHING;

CREATE TABLE IF NOT EXISTS category_params (
	category        SMALLINT PRIMARY KEY,
	multiplier      SMALLINT NOT NULL,
	min_stake_cents BIGINT   NOT NULL,
	max_stake_cents BIGINT   NOT NULL
);

CREATE TABLE IF NOT EXISTS engine_flags (
	id                  BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (id),
	paused              BOOLEAN NOT NULL DEFAULT FALSE,
	oracle_staleness_ms BIGINT  NOT NULL DEFAULT 60000
);
INSERT INTO engine_flags (id) VALUES (TRUE) ON CONFLICT DO NOTHING;

CREATE TABLE IF NOT EXISTS oracle_state (
	id            BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (id),
	last_round_id BIGINT NOT NULL DEFAULT 0
);
INSERT INTO oracle_state (id) VALUES (TRUE) ON CONFLICT DO NOTHING;
`

// EnsureSchema cria as tabelas e linhas singleton na subida do serviço
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}
