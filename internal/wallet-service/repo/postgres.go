package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Postgres implementa o armazém de valor fungível: saldos por (conta, token),
// semântica transfer/approve/allowance e o faucet com cooldown.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var (
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrFaucetCooldown        = errors.New("faucet cooldown active")
	ErrFaucetDry             = errors.New("faucet reserve insufficient")
	ErrInvalidAmount         = errors.New("invalid amount")
)

// FaucetAccount é a conta reservada que guarda o estoque do faucet.
const FaucetAccount = "faucet"

// Balance retorna o saldo de uma conta num token; conta sem linha tem saldo 0.
func (p *Postgres) Balance(ctx context.Context, account, token string) (int64, error) {
	var bal int64
	err := p.db.QueryRowContext(ctx,
		`SELECT balance FROM balances WHERE account=$1 AND token=$2`, account, token).Scan(&bal)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return bal, err
}

// Transfer move saldo entre contas no mesmo token, com lock pessimista na
// conta de origem e registro no ledger.
func (p *Postgres) Transfer(ctx context.Context, from, to, token string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := transferLocked(ctx, tx, from, to, token, amount, "transfer"); err != nil {
		return err
	}

	return tx.Commit()
}

// Approve registra a allowance de um spender sobre o saldo do owner (upsert).
func (p *Postgres) Approve(ctx context.Context, owner, spender, token string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO allowances (owner_account, spender_account, token, amount)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (owner_account, spender_account, token)
		DO UPDATE SET amount = EXCLUDED.amount`,
		owner, spender, token, amount)
	return err
}

// Allowance retorna a allowance corrente (0 se nunca aprovada).
func (p *Postgres) Allowance(ctx context.Context, owner, spender, token string) (int64, error) {
	var amount int64
	err := p.db.QueryRowContext(ctx, `
		SELECT amount FROM allowances
		WHERE owner_account=$1 AND spender_account=$2 AND token=$3`,
		owner, spender, token).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return amount, err
}

// TransferFrom gasta allowance: move saldo do owner para o destino em nome do
// spender, consumindo a allowance na mesma transação.
func (p *Postgres) TransferFrom(ctx context.Context, spender, owner, to, token string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var allowed int64
	err = tx.QueryRowContext(ctx, `
		SELECT amount FROM allowances
		WHERE owner_account=$1 AND spender_account=$2 AND token=$3 FOR UPDATE`,
		owner, spender, token).Scan(&allowed)
	if err == sql.ErrNoRows || (err == nil && allowed < amount) {
		return ErrInsufficientAllowance
	}
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE allowances SET amount = amount - $1
		WHERE owner_account=$2 AND spender_account=$3 AND token=$4`,
		amount, owner, spender, token); err != nil {
		return err
	}

	if err := transferLocked(ctx, tx, owner, to, token, amount, "transfer_from:"+spender); err != nil {
		return err
	}

	return tx.Commit()
}

// Mint credita saldo novo numa conta (emissão de token de teste).
func (p *Postgres) Mint(ctx context.Context, account, token string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := creditLocked(ctx, tx, account, token, amount); err != nil {
		return err
	}
	if err := ledgerInsert(ctx, tx, account, token, "MINT", amount, "mint"); err != nil {
		return err
	}

	return tx.Commit()
}

// FaucetClaim entrega o drip configurado para uma conta, no máximo uma vez por
// janela de cooldown, enquanto houver estoque na conta do faucet.
func (p *Postgres) FaucetClaim(ctx context.Context, account string) (amount int64, token string, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, "", err
	}
	defer tx.Rollback()

	var drip int64
	var cooldownSecs int64
	if err = tx.QueryRowContext(ctx, `
		SELECT token, drip_amount, cooldown_seconds FROM faucet_config WHERE id=1`,
	).Scan(&token, &drip, &cooldownSecs); err != nil {
		return 0, "", err
	}

	var lastClaim time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT last_claim_at FROM faucet_claims WHERE account=$1 FOR UPDATE`,
		account).Scan(&lastClaim)
	if err != nil && err != sql.ErrNoRows {
		return 0, "", err
	}
	if err == nil && time.Since(lastClaim) < time.Duration(cooldownSecs)*time.Second {
		return 0, "", ErrFaucetCooldown
	}

	var reserve int64
	err = tx.QueryRowContext(ctx, `
		SELECT balance FROM balances WHERE account=$1 AND token=$2 FOR UPDATE`,
		FaucetAccount, token).Scan(&reserve)
	if err == sql.ErrNoRows || (err == nil && reserve < drip) {
		return 0, "", ErrFaucetDry
	}
	if err != nil {
		return 0, "", err
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE balances SET balance = balance - $1 WHERE account=$2 AND token=$3`,
		drip, FaucetAccount, token); err != nil {
		return 0, "", err
	}
	if err = creditLocked(ctx, tx, account, token, drip); err != nil {
		return 0, "", err
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO faucet_claims (account, last_claim_at) VALUES ($1, NOW())
		ON CONFLICT (account) DO UPDATE SET last_claim_at = NOW()`,
		account); err != nil {
		return 0, "", err
	}
	if err = ledgerInsert(ctx, tx, account, token, "FAUCET", drip, "faucet claim"); err != nil {
		return 0, "", err
	}

	if err = tx.Commit(); err != nil {
		return 0, "", err
	}
	return drip, token, nil
}

// SetFaucetParams ajusta drip e cooldown do faucet (operação do owner).
// Valores <= 0 mantêm o parâmetro atual.
func (p *Postgres) SetFaucetParams(ctx context.Context, dripAmount, cooldownSeconds int64) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE faucet_config SET
			drip_amount      = CASE WHEN $1 > 0 THEN $1 ELSE drip_amount END,
			cooldown_seconds = CASE WHEN $2 > 0 THEN $2 ELSE cooldown_seconds END
		WHERE id=1`, dripAmount, cooldownSeconds)
	return err
}

// FaucetParams retorna a configuração corrente do faucet.
func (p *Postgres) FaucetParams(ctx context.Context) (token string, dripAmount, cooldownSeconds int64, err error) {
	err = p.db.QueryRowContext(ctx, `
		SELECT token, drip_amount, cooldown_seconds FROM faucet_config WHERE id=1`,
	).Scan(&token, &dripAmount, &cooldownSeconds)
	return token, dripAmount, cooldownSeconds, err
}

// transferLocked debita from e credita to dentro da transação corrente,
// registrando as duas pontas no ledger.
func transferLocked(ctx context.Context, tx *sql.Tx, from, to, token string, amount int64, desc string) error {
	var bal int64
	err := tx.QueryRowContext(ctx, `
		SELECT balance FROM balances WHERE account=$1 AND token=$2 FOR UPDATE`,
		from, token).Scan(&bal)
	if err == sql.ErrNoRows || (err == nil && bal < amount) {
		return ErrInsufficientFunds
	}
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE balances SET balance = balance - $1 WHERE account=$2 AND token=$3`,
		amount, from, token); err != nil {
		return err
	}
	if err = creditLocked(ctx, tx, to, token, amount); err != nil {
		return err
	}
	if err = ledgerInsert(ctx, tx, from, token, "DEBIT", amount, desc+":"+to); err != nil {
		return err
	}
	return ledgerInsert(ctx, tx, to, token, "CREDIT", amount, desc+":"+from)
}

// creditLocked credita uma conta criando a linha de saldo se necessário.
func creditLocked(ctx context.Context, tx *sql.Tx, account, token string, amount int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO balances (account, token, balance) VALUES ($1,$2,$3)
		ON CONFLICT (account, token) DO UPDATE SET balance = balances.balance + EXCLUDED.balance`,
		account, token, amount)
	return err
}

func ledgerInsert(ctx context.Context, tx *sql.Tx, account, token, op string, amount int64, desc string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_ledger (id, account, token, operation_type, amount, description)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		uuid.NewString(), account, token, op, amount, desc)
	return err
}
