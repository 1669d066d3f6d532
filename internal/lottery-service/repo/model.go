package repo

import "time"

// Contas reservadas do motor no armazém de valor. O pool e o tesouro são
// contas comuns de saldo: a não-negatividade do pool é o próprio guard de
// saldo, sem segunda fonte de verdade.
const (
	OwnerAccount    = "owner"
	SpenderAccount  = "lottery"
	PoolAccount     = "lottery:pool"
	TreasuryAccount = "lottery:treasury"
)

// Wager é o registro persistido de uma aposta. Append-only: settled só
// transita false→true e match_count/payout/drawn_numbers são write-once.
type Wager struct {
	ID            int64
	Player        string
	Stake         int64
	ChosenNumbers []uint8
	Settled       bool
	MatchCount    int
	Payout        int64
	DrawnNumbers  []uint8 // nil até a liquidação
	CreatedAt     time.Time
	SettledAt     *time.Time
}

// Config são os parâmetros do jogo controlados pela governança, lidos pelo
// motor a cada aposta.
type Config struct {
	MinBet           int64
	MaxBet           int64
	CallbackGasLimit int64
	Confirmations    int
	NumWords         int
	ValueToken       string
	Paused           bool
}

// SettlementResult resume uma liquidação concluída, insumo dos eventos
// NumbersDrawn / PrizeAwarded.
type SettlementResult struct {
	CorrelationID int64
	Player        string
	Stake         int64
	ChosenNumbers []uint8
	DrawnNumbers  []uint8
	MatchCount    int
	Payout        int64
}

// PlayerStats é um agregado derivado do ledger de apostas, nunca armazenado.
type PlayerStats struct {
	Player        string
	TotalWagers   int64
	Wins          int64
	TotalWinnings int64
	BestMatch     int
}
