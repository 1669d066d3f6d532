package events

// Campos de lista de números usam []int: []uint8 é []byte para o
// encoding/json e serializaria como base64, ilegível fora de Go.
type WagerPlaced struct {
	CorrelationID int64  `json:"correlation_id"`
	Player        string `json:"player"`
	Stake         int64  `json:"stake"`
	ChosenNumbers []int  `json:"chosen_numbers"`
	TsUnixMs      int64  `json:"ts_unix_ms"`
}

type NewPlayer struct {
	Player   string `json:"player"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}
