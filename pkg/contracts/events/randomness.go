package events

// Pedido de entropia publicado pelo lottery-service no tópico
// "randomness_requested". O correlation id é emitido pelo gateway no momento
// do pedido e é a chave da aposta pendente.
type RandomnessRequested struct {
	CorrelationID    int64 `json:"correlation_id"`
	NumWords         int   `json:"num_words"`
	Confirmations    int   `json:"confirmations"`
	CallbackGasLimit int64 `json:"callback_gas_limit"`
	TsUnixMs         int64 `json:"ts_unix_ms"`
}

// Resposta do oráculo no tópico "randomness_fulfilled". OracleKey identifica
// a instância configurada do gateway; o worker rejeita qualquer outra origem.
type RandomnessFulfilled struct {
	CorrelationID int64    `json:"correlation_id"`
	RandomWords   []uint64 `json:"random_words"`
	OracleKey     string   `json:"oracle_key"`
	TsUnixMs      int64    `json:"ts_unix_ms"`
}
