package dto

type BalanceResponse struct {
	Account string `json:"account"`
	Token   string `json:"token"`
	Balance int64  `json:"balance"`
}

type AllowanceResponse struct {
	Owner     string `json:"owner"`
	Spender   string `json:"spender"`
	Token     string `json:"token"`
	Allowance int64  `json:"allowance"`
}

type FaucetClaimResponse struct {
	Account string `json:"account"`
	Token   string `json:"token"`
	Amount  int64  `json:"amount"`
}

type FaucetParamsResponse struct {
	Token           string `json:"token"`
	DripAmount      int64  `json:"drip_amount"`
	CooldownSeconds int64  `json:"cooldown_seconds"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
