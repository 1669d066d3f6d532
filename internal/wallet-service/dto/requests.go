package dto

type TransferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Token  string `json:"token"`
	Amount int64  `json:"amount"`
}

type ApproveRequest struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Token   string `json:"token"`
	Amount  int64  `json:"amount"`
}

type TransferFromRequest struct {
	Spender string `json:"spender"`
	Owner   string `json:"owner"`
	To      string `json:"to"`
	Token   string `json:"token"`
	Amount  int64  `json:"amount"`
}

type MintRequest struct {
	Account string `json:"account"`
	Token   string `json:"token"`
	Amount  int64  `json:"amount"`
}

type FaucetClaimRequest struct {
	Account string `json:"account"`
}

type FaucetParamsRequest struct {
	DripAmount      int64 `json:"drip_amount,omitempty"`
	CooldownSeconds int64 `json:"cooldown_seconds,omitempty"`
}
