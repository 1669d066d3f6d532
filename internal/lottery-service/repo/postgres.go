package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/radieske/lottery-platform-poc/internal/lottery-service/engine"
)

// Postgres implementa o ledger de apostas, o prize pool e o registro de
// jogadores. Toda mutação roda numa única transação: ou tudo comita, ou nada.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var (
	// Erros de estado
	ErrPaused          = errors.New("system paused")
	ErrWagerNotFound   = errors.New("wager not found")
	ErrAlreadySettled  = errors.New("wager already settled")
	ErrInvalidLimits   = errors.New("invalid bet limits")
	ErrInvalidGasLimit = errors.New("invalid callback gas limit")
	ErrPoolExceeded    = errors.New("removal exceeds pool balance")
	ErrProtectedToken  = errors.New("cannot rescue the value token")

	// Falhas de transferência do armazém de valor (não são erros de validação)
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInsufficientFunds     = errors.New("insufficient funds")

	// Erro de integridade: payout maior que o saldo do pool na hora do débito.
	// Indica defeito de contabilidade; a liquidação inteira aborta.
	ErrPoolShortfall = errors.New("pool shortfall at disbursement")
)

// GetConfig lê os parâmetros vigentes do jogo.
func (p *Postgres) GetConfig(ctx context.Context) (Config, error) {
	var c Config
	err := p.db.QueryRowContext(ctx, `
		SELECT min_bet, max_bet, callback_gas_limit, confirmations, num_words, value_token, paused
		FROM lottery_config WHERE id=1`,
	).Scan(&c.MinBet, &c.MaxBet, &c.CallbackGasLimit, &c.Confirmations, &c.NumWords, &c.ValueToken, &c.Paused)
	return c, err
}

// PlaceWager executa a entrada de uma aposta já validada nos números:
// confere pausa e limites, consome allowance, debita o jogador, divide o
// stake entre tesouro e pool, registra o jogador e insere a aposta pendente.
// Tudo na mesma transação; qualquer rejeição deixa o estado intocado.
func (p *Postgres) PlaceWager(ctx context.Context, correlationID int64, player string, stake int64, numbers []uint8) (newPlayer bool, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var cfg Config
	if err = tx.QueryRowContext(ctx, `
		SELECT min_bet, max_bet, value_token, paused FROM lottery_config WHERE id=1`,
	).Scan(&cfg.MinBet, &cfg.MaxBet, &cfg.ValueToken, &cfg.Paused); err != nil {
		return false, err
	}
	if cfg.Paused {
		return false, ErrPaused
	}
	if err = engine.ValidateStake(stake, cfg.MinBet, cfg.MaxBet); err != nil {
		return false, err
	}

	// Escrow: allowance jogador→motor, depois débito do saldo
	var allowed int64
	err = tx.QueryRowContext(ctx, `
		SELECT amount FROM allowances
		WHERE owner_account=$1 AND spender_account=$2 AND token=$3 FOR UPDATE`,
		player, SpenderAccount, cfg.ValueToken).Scan(&allowed)
	if err == sql.ErrNoRows || (err == nil && allowed < stake) {
		return false, ErrInsufficientAllowance
	}
	if err != nil {
		return false, err
	}
	if _, err = tx.ExecContext(ctx, `
		UPDATE allowances SET amount = amount - $1
		WHERE owner_account=$2 AND spender_account=$3 AND token=$4`,
		stake, player, SpenderAccount, cfg.ValueToken); err != nil {
		return false, err
	}

	var balance int64
	err = tx.QueryRowContext(ctx, `
		SELECT balance FROM balances WHERE account=$1 AND token=$2 FOR UPDATE`,
		player, cfg.ValueToken).Scan(&balance)
	if err == sql.ErrNoRows || (err == nil && balance < stake) {
		return false, ErrInsufficientFunds
	}
	if err != nil {
		return false, err
	}
	if _, err = tx.ExecContext(ctx, `
		UPDATE balances SET balance = balance - $1 WHERE account=$2 AND token=$3`,
		stake, player, cfg.ValueToken); err != nil {
		return false, err
	}

	// Split 10/90: as duas partes somam exatamente o stake
	treasuryCut, poolCut := engine.SplitStake(stake)
	if err = credit(ctx, tx, TreasuryAccount, cfg.ValueToken, treasuryCut); err != nil {
		return false, err
	}
	if err = credit(ctx, tx, PoolAccount, cfg.ValueToken, poolCut); err != nil {
		return false, err
	}
	if err = ledgerInsert(ctx, tx, player, cfg.ValueToken, "ESCROW", stake,
		fmt.Sprintf("wager:%d", correlationID)); err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO players (account) VALUES ($1) ON CONFLICT (account) DO NOTHING`, player)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		newPlayer = true
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO wagers (id, player, stake, chosen_numbers, settled, match_count, payout)
		VALUES ($1,$2,$3,$4,false,0,0)`,
		correlationID, player, stake, pq.Array(toInt64s(numbers))); err != nil {
		return false, err
	}

	if err = tx.Commit(); err != nil {
		return false, err
	}
	return newPlayer, nil
}

// SettleWager liquida uma aposta pendente a partir das palavras do oráculo.
// O flag settled é o guard de idempotência: a segunda chamada para o mesmo id
// devolve ErrAlreadySettled sem tocar em nada. Um payout maior que o saldo do
// pool aborta a transação inteira (ErrPoolShortfall) — sem payout parcial,
// sem clamping.
func (p *Postgres) SettleWager(ctx context.Context, correlationID int64, words []uint64) (SettlementResult, error) {
	var out SettlementResult

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return out, err
	}
	defer tx.Rollback()

	var chosen pq.Int64Array
	var settled bool
	err = tx.QueryRowContext(ctx, `
		SELECT player, stake, chosen_numbers, settled FROM wagers WHERE id=$1 FOR UPDATE`,
		correlationID).Scan(&out.Player, &out.Stake, &chosen, &settled)
	if err == sql.ErrNoRows {
		return out, ErrWagerNotFound
	}
	if err != nil {
		return out, err
	}
	if settled {
		return out, ErrAlreadySettled
	}

	var valueToken string
	if err = tx.QueryRowContext(ctx,
		`SELECT value_token FROM lottery_config WHERE id=1`).Scan(&valueToken); err != nil {
		return out, err
	}

	out.CorrelationID = correlationID
	out.ChosenNumbers = toUint8s(chosen)
	out.DrawnNumbers = engine.DeriveDrawnNumbers(words)
	out.MatchCount = engine.MatchCount(out.ChosenNumbers, out.DrawnNumbers)
	out.Payout = engine.CalculatePrize(out.MatchCount, out.Stake)

	if _, err = tx.ExecContext(ctx, `
		UPDATE wagers SET settled=true, match_count=$1, payout=$2, drawn_numbers=$3, settled_at=NOW()
		WHERE id=$4`,
		out.MatchCount, out.Payout, pq.Array(toInt64s(out.DrawnNumbers)), correlationID); err != nil {
		return out, err
	}

	if out.Payout > 0 {
		var poolBal int64
		err = tx.QueryRowContext(ctx, `
			SELECT balance FROM balances WHERE account=$1 AND token=$2 FOR UPDATE`,
			PoolAccount, valueToken).Scan(&poolBal)
		if err == sql.ErrNoRows || (err == nil && poolBal < out.Payout) {
			return out, ErrPoolShortfall
		}
		if err != nil {
			return out, err
		}
		if _, err = tx.ExecContext(ctx, `
			UPDATE balances SET balance = balance - $1 WHERE account=$2 AND token=$3`,
			out.Payout, PoolAccount, valueToken); err != nil {
			return out, err
		}
		if err = credit(ctx, tx, out.Player, valueToken, out.Payout); err != nil {
			return out, err
		}
		if err = ledgerInsert(ctx, tx, out.Player, valueToken, "PAYOUT", out.Payout,
			fmt.Sprintf("wager:%d", correlationID)); err != nil {
			return out, err
		}
	}

	if err = tx.Commit(); err != nil {
		return out, err
	}
	return out, nil
}

// ---- Governança ----

// UpdateBetLimits troca os limites de aposta; vale só para apostas futuras.
func (p *Postgres) UpdateBetLimits(ctx context.Context, minBet, maxBet int64) error {
	if minBet <= 0 || minBet > maxBet {
		return ErrInvalidLimits
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE lottery_config SET min_bet=$1, max_bet=$2 WHERE id=1`, minBet, maxBet)
	return err
}

// UpdateCallbackGasLimit é pass-through para o gateway; só exige positividade.
func (p *Postgres) UpdateCallbackGasLimit(ctx context.Context, limit int64) error {
	if limit <= 0 {
		return ErrInvalidGasLimit
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE lottery_config SET callback_gas_limit=$1 WHERE id=1`, limit)
	return err
}

// SetPaused liga/desliga a pausa. Pausa bloqueia só a entrada de apostas;
// liquidações em voo continuam.
func (p *Postgres) SetPaused(ctx context.Context, paused bool) error {
	_, err := p.db.ExecContext(ctx, `UPDATE lottery_config SET paused=$1 WHERE id=1`, paused)
	return err
}

// RebindToken troca o token aceito. O saldo do pool NÃO migra: fica retido
// sob o token antigo. Escotilha de teste/migração, não de operação normal.
func (p *Postgres) RebindToken(ctx context.Context, token string) error {
	_, err := p.db.ExecContext(ctx, `UPDATE lottery_config SET value_token=$1 WHERE id=1`, token)
	return err
}

// FundPool move saldo do owner para o pool.
func (p *Postgres) FundPool(ctx context.Context, amount int64) error {
	return p.moveValueToken(ctx, OwnerAccount, PoolAccount, amount, "pool fund", ErrInsufficientFunds)
}

// DefundPool move saldo do pool de volta ao owner; falha se exceder o saldo.
func (p *Postgres) DefundPool(ctx context.Context, amount int64) error {
	return p.moveValueToken(ctx, PoolAccount, OwnerAccount, amount, "pool defund", ErrPoolExceeded)
}

// EmergencyWithdraw drena o pool inteiro para o owner e devolve o valor
// retirado. Escotilha para migração/incidente.
func (p *Postgres) EmergencyWithdraw(ctx context.Context) (int64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var token string
	if err = tx.QueryRowContext(ctx,
		`SELECT value_token FROM lottery_config WHERE id=1`).Scan(&token); err != nil {
		return 0, err
	}

	var bal int64
	err = tx.QueryRowContext(ctx, `
		SELECT balance FROM balances WHERE account=$1 AND token=$2 FOR UPDATE`,
		PoolAccount, token).Scan(&bal)
	if err == sql.ErrNoRows {
		return 0, tx.Commit() // pool nunca creditado, nada a drenar
	}
	if err != nil {
		return 0, err
	}
	if bal == 0 {
		return 0, tx.Commit()
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE balances SET balance = 0 WHERE account=$1 AND token=$2`, PoolAccount, token); err != nil {
		return 0, err
	}
	if err = credit(ctx, tx, OwnerAccount, token, bal); err != nil {
		return 0, err
	}
	if err = ledgerInsert(ctx, tx, OwnerAccount, token, "EMERGENCY_WITHDRAW", bal, "pool drained"); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return bal, nil
}

// RescueTokens recupera saldos de qualquer token que NÃO seja o value token
// parados nas contas do motor (enviados por engano). Resgatar o value token é
// rejeitado para impedir drenagem de fundos reais rotulada de "resgate".
func (p *Postgres) RescueTokens(ctx context.Context, token, to string) (int64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var valueToken string
	if err = tx.QueryRowContext(ctx,
		`SELECT value_token FROM lottery_config WHERE id=1`).Scan(&valueToken); err != nil {
		return 0, err
	}
	if token == valueToken {
		return 0, ErrProtectedToken
	}

	var total int64
	for _, account := range []string{PoolAccount, TreasuryAccount} {
		var bal int64
		err = tx.QueryRowContext(ctx, `
			SELECT balance FROM balances WHERE account=$1 AND token=$2 FOR UPDATE`,
			account, token).Scan(&bal)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return 0, err
		}
		if bal == 0 {
			continue
		}
		if _, err = tx.ExecContext(ctx, `
			UPDATE balances SET balance = 0 WHERE account=$1 AND token=$2`, account, token); err != nil {
			return 0, err
		}
		total += bal
	}

	if total > 0 {
		if err = credit(ctx, tx, to, token, total); err != nil {
			return 0, err
		}
		if err = ledgerInsert(ctx, tx, to, token, "RESCUE", total, "misdirected funds"); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

// moveValueToken transfere o value token entre duas contas do motor/owner.
func (p *Postgres) moveValueToken(ctx context.Context, from, to string, amount int64, desc string, short error) error {
	if amount <= 0 {
		return ErrInvalidLimits
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var token string
	if err = tx.QueryRowContext(ctx,
		`SELECT value_token FROM lottery_config WHERE id=1`).Scan(&token); err != nil {
		return err
	}

	var bal int64
	err = tx.QueryRowContext(ctx, `
		SELECT balance FROM balances WHERE account=$1 AND token=$2 FOR UPDATE`,
		from, token).Scan(&bal)
	if err == sql.ErrNoRows || (err == nil && bal < amount) {
		return short
	}
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE balances SET balance = balance - $1 WHERE account=$2 AND token=$3`,
		amount, from, token); err != nil {
		return err
	}
	if err = credit(ctx, tx, to, token, amount); err != nil {
		return err
	}
	if err = ledgerInsert(ctx, tx, to, token, "POOL_MOVE", amount, desc); err != nil {
		return err
	}

	return tx.Commit()
}

// ---- Consultas (sem efeito colateral) ----

func (p *Postgres) GetWager(ctx context.Context, correlationID int64) (Wager, error) {
	w, err := scanWager(p.db.QueryRowContext(ctx, `
		SELECT id, player, stake, chosen_numbers, settled, match_count, payout, drawn_numbers, created_at, settled_at
		FROM wagers WHERE id=$1`, correlationID))
	if err == sql.ErrNoRows {
		return w, ErrWagerNotFound
	}
	return w, err
}

// ListWagers retorna o ledger completo em páginas, mais recente primeiro.
func (p *Postgres) ListWagers(ctx context.Context, limit, offset int) ([]Wager, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, player, stake, chosen_numbers, settled, match_count, payout, drawn_numbers, created_at, settled_at
		FROM wagers ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWagers(rows)
}

// RecentDraws retorna as últimas liquidações (insumo de histórico/leaderboard).
func (p *Postgres) RecentDraws(ctx context.Context, limit int) ([]Wager, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, player, stake, chosen_numbers, settled, match_count, payout, drawn_numbers, created_at, settled_at
		FROM wagers WHERE settled ORDER BY settled_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWagers(rows)
}

func (p *Postgres) PlayerCount(ctx context.Context) (int64, error) {
	var n int64
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM players`).Scan(&n)
	return n, err
}

// PoolBalance lê o saldo do pool no token vigente.
func (p *Postgres) PoolBalance(ctx context.Context) (int64, error) {
	var bal int64
	err := p.db.QueryRowContext(ctx, `
		SELECT COALESCE(b.balance, 0)
		FROM lottery_config c
		LEFT JOIN balances b ON b.account=$1 AND b.token=c.value_token
		WHERE c.id=1`, PoolAccount).Scan(&bal)
	return bal, err
}

// PlayerStats agrega o ledger de apostas de um jogador; derivado, não
// armazenado, para não criar segunda fonte de verdade.
func (p *Postgres) PlayerStats(ctx context.Context, player string) (PlayerStats, error) {
	st := PlayerStats{Player: player}
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE payout > 0),
		       COALESCE(SUM(payout), 0),
		       COALESCE(MAX(match_count), 0)
		FROM wagers WHERE player=$1`, player,
	).Scan(&st.TotalWagers, &st.Wins, &st.TotalWinnings, &st.BestMatch)
	return st, err
}

// ---- Helpers ----

type rowScanner interface{ Scan(dest ...any) error }

func scanWager(r rowScanner) (Wager, error) {
	var w Wager
	var chosen, drawn pq.Int64Array
	err := r.Scan(&w.ID, &w.Player, &w.Stake, &chosen, &w.Settled,
		&w.MatchCount, &w.Payout, &drawn, &w.CreatedAt, &w.SettledAt)
	if err != nil {
		return w, err
	}
	w.ChosenNumbers = toUint8s(chosen)
	if drawn != nil {
		w.DrawnNumbers = toUint8s(drawn)
	}
	return w, nil
}

func collectWagers(rows *sql.Rows) ([]Wager, error) {
	var out []Wager
	for rows.Next() {
		w, err := scanWager(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func credit(ctx context.Context, tx *sql.Tx, account, token string, amount int64) error {
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

func toInt64s(in []uint8) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

func toUint8s(in []int64) []uint8 {
	out := make([]uint8, len(in))
	for i, v := range in {
		out[i] = uint8(v)
	}
	return out
}
