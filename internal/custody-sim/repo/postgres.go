package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// Postgres implementa as contas custodiadas do simulador
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
)

const schema = `
CREATE TABLE IF NOT EXISTS custody_accounts (
	user_id       TEXT PRIMARY KEY,
	balance_cents BIGINT NOT NULL DEFAULT 0,
	version       BIGINT NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS custody_ledger (
	id             TEXT PRIMARY KEY,
	from_account   TEXT,
	to_account     TEXT,
	amount_cents   BIGINT NOT NULL,
	operation_type TEXT   NOT NULL,
	external_ref   TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema cria as tabelas do simulador na subida
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

// GetOrCreateAccount retorna o saldo de um usuário, criando a conta se não existir
func (p *Postgres) GetOrCreateAccount(ctx context.Context, userID string) (uint64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var bal uint64
	err = tx.QueryRowContext(ctx, `SELECT balance_cents FROM custody_accounts WHERE user_id=$1`, userID).Scan(&bal)
	if err == sql.ErrNoRows {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO custody_accounts(user_id, balance_cents) VALUES($1, 0)`, userID); err != nil {
			return 0, err
		}
		bal = 0
	} else if err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return bal, nil
}

// Deposit credita saldo na conta do usuário e registra no ledger
func (p *Postgres) Deposit(ctx context.Context, userID string, amount uint64, externalRef string) (uint64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO custody_accounts(user_id, balance_cents) VALUES($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
		  balance_cents = custody_accounts.balance_cents + EXCLUDED.balance_cents,
		  version = custody_accounts.version + 1`, userID, amount); err != nil {
		return 0, err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO custody_ledger(id, to_account, amount_cents, operation_type, external_ref)
		VALUES($1,$2,$3,'DEPOSIT',$4)`,
		uuid.NewString(), userID, amount, externalRef); err != nil {
		return 0, err
	}

	var newBalance uint64
	if err = tx.QueryRowContext(ctx,
		`SELECT balance_cents FROM custody_accounts WHERE user_id=$1`, userID).Scan(&newBalance); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Transfer move saldo entre contas com lock pessimista na conta de origem.
// Falha com ErrInsufficientFunds sem efeito algum se o saldo não cobre.
func (p *Postgres) Transfer(ctx context.Context, from, to string, amount uint64, externalRef string) (string, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var balance uint64
	err = tx.QueryRowContext(ctx,
		`SELECT balance_cents FROM custody_accounts WHERE user_id=$1 FOR UPDATE`, from).Scan(&balance)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	if balance < amount {
		return "", ErrInsufficientFunds
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE custody_accounts SET balance_cents = balance_cents - $1, version = version + 1
		WHERE user_id=$2`, amount, from); err != nil {
		return "", err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO custody_accounts(user_id, balance_cents) VALUES($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
		  balance_cents = custody_accounts.balance_cents + EXCLUDED.balance_cents,
		  version = custody_accounts.version + 1`, to, amount); err != nil {
		return "", err
	}

	transferID := uuid.NewString()
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO custody_ledger(id, from_account, to_account, amount_cents, operation_type, external_ref)
		VALUES($1,$2,$3,$4,'TRANSFER',$5)`,
		transferID, from, to, amount, externalRef); err != nil {
		return "", err
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return transferID, nil
}
