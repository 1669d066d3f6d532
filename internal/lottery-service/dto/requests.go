package dto

type PlaceBetRequest struct {
	Player  string  `json:"player"`
	Stake   int64   `json:"stake"`
	Numbers []uint8 `json:"numbers"`
}

type BetLimitsRequest struct {
	MinBet int64 `json:"min_bet"`
	MaxBet int64 `json:"max_bet"`
}

type CallbackGasLimitRequest struct {
	CallbackGasLimit int64 `json:"callback_gas_limit"`
}

type PoolFundsRequest struct {
	Amount int64 `json:"amount"`
}

type RescueRequest struct {
	Token string `json:"token"`
	To    string `json:"to"`
}

type RebindTokenRequest struct {
	Token string `json:"token"`
}
