package events

import "time"

// Evento emitido pelo settlement-worker para toda liquidação concluída,
// tenha ou não prêmio.
type NumbersDrawn struct {
	CorrelationID int64     `json:"correlation_id"`
	DrawnNumbers  []int     `json:"drawn_numbers"` // []int para serializar como array JSON
	Ts            time.Time `json:"ts"`
}

// Evento emitido apenas quando payout > 0.
type PrizeAwarded struct {
	CorrelationID int64     `json:"correlation_id"`
	Player        string    `json:"player"`
	Payout        int64     `json:"payout"`
	MatchCount    int       `json:"match_count"`
	Ts            time.Time `json:"ts"`
}
