package dto

import "time"

type PlaceBetResponse struct {
	CorrelationID int64  `json:"correlation_id"`
	Status        string `json:"status"`
}

// Campos de lista de números usam []int: []uint8 é []byte para o
// encoding/json e serializaria como base64, ilegível fora de Go.
type WagerResponse struct {
	CorrelationID int64      `json:"correlation_id"`
	Player        string     `json:"player"`
	Stake         int64      `json:"stake"`
	ChosenNumbers []int      `json:"chosen_numbers"`
	Settled       bool       `json:"settled"`
	MatchCount    int        `json:"match_count"`
	Payout        int64      `json:"payout"`
	DrawnNumbers  []int      `json:"drawn_numbers,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	SettledAt     *time.Time `json:"settled_at,omitempty"`
}

type PoolResponse struct {
	Balance int64 `json:"balance"`
}

type LimitsResponse struct {
	MinBet int64 `json:"min_bet"`
	MaxBet int64 `json:"max_bet"`
}

type PlayerCountResponse struct {
	Count int64 `json:"count"`
}

type PlayerStatsResponse struct {
	Player        string `json:"player"`
	TotalWagers   int64  `json:"total_wagers"`
	Wins          int64  `json:"wins"`
	TotalWinnings int64  `json:"total_winnings"`
	BestMatch     int    `json:"best_match"`
}

type AmountResponse struct {
	Amount int64  `json:"amount"`
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
