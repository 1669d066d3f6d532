package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/lottery-platform-poc/internal/wallet-service/dto"
	"github.com/radieske/lottery-platform-poc/internal/wallet-service/repo"
)

// Repo define a interface de operações do armazém de valor usadas pelo handler HTTP
type Repo interface {
	Balance(ctx context.Context, account, token string) (int64, error)
	Transfer(ctx context.Context, from, to, token string, amount int64) error
	Approve(ctx context.Context, owner, spender, token string, amount int64) error
	Allowance(ctx context.Context, owner, spender, token string) (int64, error)
	TransferFrom(ctx context.Context, spender, owner, to, token string, amount int64) error
	Mint(ctx context.Context, account, token string, amount int64) error
	FaucetClaim(ctx context.Context, account string) (amount int64, token string, err error)
	SetFaucetParams(ctx context.Context, dripAmount, cooldownSeconds int64) error
	FaucetParams(ctx context.Context) (token string, dripAmount, cooldownSeconds int64, err error)
}

// Server expõe endpoints HTTP do armazém de valor fungível
type Server struct {
	log        *zap.Logger
	repo       Repo
	ownerToken string
}

// NewServer instancia o servidor HTTP de wallet
func NewServer(log *zap.Logger, repo Repo, ownerToken string) *Server {
	return &Server{log: log, repo: repo, ownerToken: ownerToken}
}

// Router retorna o mux HTTP com as rotas da API de wallet
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/wallet", s.getBalance)                 // GET ?account=&token=
	mux.HandleFunc("/wallet/transfer", s.transfer)          // POST
	mux.HandleFunc("/wallet/approve", s.approve)            // POST
	mux.HandleFunc("/wallet/allowance", s.getAllowance)     // GET ?owner=&spender=&token=
	mux.HandleFunc("/wallet/transfer-from", s.transferFrom) // POST
	mux.HandleFunc("/wallet/mint", s.mint)                  // POST (owner)
	mux.HandleFunc("/wallet/faucet", s.faucetClaim)         // POST
	mux.HandleFunc("/wallet/faucet/params", s.faucetParams) // GET | POST (owner)
	return mux
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("account")
	token := r.URL.Query().Get("token")
	if account == "" || token == "" {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD")
		return
	}
	bal, err := s.repo.Balance(r.Context(), account, token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL")
		return
	}
	writeJSON(w, dto.BalanceResponse{Account: account, Token: token, Balance: bal})
}

func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON")
		return
	}
	if req.From == "" || req.To == "" || req.Token == "" || req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD")
		return
	}
	if err := s.repo.Transfer(r.Context(), req.From, req.To, req.Token, req.Amount); err != nil {
		s.walletError(w, err)
		return
	}
	bal, _ := s.repo.Balance(r.Context(), req.From, req.Token)
	writeJSON(w, dto.BalanceResponse{Account: req.From, Token: req.Token, Balance: bal})
}

func (s *Server) approve(w http.ResponseWriter, r *http.Request) {
	var req dto.ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON")
		return
	}
	if req.Owner == "" || req.Spender == "" || req.Token == "" || req.Amount < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD")
		return
	}
	if err := s.repo.Approve(r.Context(), req.Owner, req.Spender, req.Token, req.Amount); err != nil {
		s.walletError(w, err)
		return
	}
	writeJSON(w, dto.AllowanceResponse{Owner: req.Owner, Spender: req.Spender, Token: req.Token, Allowance: req.Amount})
}

func (s *Server) getAllowance(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	spender := r.URL.Query().Get("spender")
	token := r.URL.Query().Get("token")
	if owner == "" || spender == "" || token == "" {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD")
		return
	}
	amount, err := s.repo.Allowance(r.Context(), owner, spender, token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL")
		return
	}
	writeJSON(w, dto.AllowanceResponse{Owner: owner, Spender: spender, Token: token, Allowance: amount})
}

func (s *Server) transferFrom(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferFromRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON")
		return
	}
	if req.Spender == "" || req.Owner == "" || req.To == "" || req.Token == "" || req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD")
		return
	}
	if err := s.repo.TransferFrom(r.Context(), req.Spender, req.Owner, req.To, req.Token, req.Amount); err != nil {
		s.walletError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"TRANSFERRED"}`))
}

// mint emite token de teste; gate do owner porque cria valor do nada
func (s *Server) mint(w http.ResponseWriter, r *http.Request) {
	if !s.isOwner(r) {
		writeError(w, http.StatusForbidden, "NOT_OWNER")
		return
	}
	var req dto.MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON")
		return
	}
	if req.Account == "" || req.Token == "" || req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD")
		return
	}
	if err := s.repo.Mint(r.Context(), req.Account, req.Token, req.Amount); err != nil {
		s.walletError(w, err)
		return
	}
	bal, _ := s.repo.Balance(r.Context(), req.Account, req.Token)
	writeJSON(w, dto.BalanceResponse{Account: req.Account, Token: req.Token, Balance: bal})
}

func (s *Server) faucetClaim(w http.ResponseWriter, r *http.Request) {
	var req dto.FaucetClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON")
		return
	}
	if req.Account == "" {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD")
		return
	}
	amount, token, err := s.repo.FaucetClaim(r.Context(), req.Account)
	if err != nil {
		s.walletError(w, err)
		return
	}
	writeJSON(w, dto.FaucetClaimResponse{Account: req.Account, Token: token, Amount: amount})
}

func (s *Server) faucetParams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		token, drip, cooldown, err := s.repo.FaucetParams(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "INTERNAL")
			return
		}
		writeJSON(w, dto.FaucetParamsResponse{Token: token, DripAmount: drip, CooldownSeconds: cooldown})
	case http.MethodPost:
		if !s.isOwner(r) {
			writeError(w, http.StatusForbidden, "NOT_OWNER")
			return
		}
		var req dto.FaucetParamsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_JSON")
			return
		}
		if req.DripAmount <= 0 && req.CooldownSeconds <= 0 {
			writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD")
			return
		}
		if err := s.repo.SetFaucetParams(r.Context(), req.DripAmount, req.CooldownSeconds); err != nil {
			s.walletError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"UPDATED"}`))
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")
	}
}

func (s *Server) isOwner(r *http.Request) bool {
	return s.ownerToken != "" && r.Header.Get("X-Owner-Token") == s.ownerToken
}

// walletError traduz sentinelas do repo em códigos estáveis de erro
func (s *Server) walletError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrInsufficientFunds):
		writeError(w, http.StatusConflict, "INSUFFICIENT_FUNDS")
	case errors.Is(err, repo.ErrInsufficientAllowance):
		writeError(w, http.StatusConflict, "INSUFFICIENT_ALLOWANCE")
	case errors.Is(err, repo.ErrFaucetCooldown):
		writeError(w, http.StatusConflict, "FAUCET_COOLDOWN")
	case errors.Is(err, repo.ErrFaucetDry):
		writeError(w, http.StatusConflict, "FAUCET_DRY")
	case errors.Is(err, repo.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "INVALID_AMOUNT")
	default:
		s.log.Error("wallet op failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL")
	}
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: code})
}
