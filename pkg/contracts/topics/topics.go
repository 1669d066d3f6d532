package topics

const (
	// Oráculo de aleatoriedade (request/fulfill)
	RandomnessRequested = "randomness_requested"
	RandomnessFulfilled = "randomness_fulfilled"

	// Eventos públicos do motor de liquidação
	WagerPlaced  = "wager_placed"
	NumbersDrawn = "numbers_drawn"
	PrizeAwarded = "prize_awarded"
	NewPlayer    = "new_player"

	// DLQs
	RandomnessFulfilledDLQ = "randomness_fulfilled_dlq"
)
