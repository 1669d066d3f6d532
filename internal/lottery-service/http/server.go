package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/radieske/lottery-platform-poc/internal/lottery-service/dto"
	"github.com/radieske/lottery-platform-poc/internal/lottery-service/engine"
	"github.com/radieske/lottery-platform-poc/internal/lottery-service/oracle"
	"github.com/radieske/lottery-platform-poc/internal/lottery-service/repo"
	"github.com/radieske/lottery-platform-poc/pkg/contracts/events"
)

// Repo define as operações de persistência usadas pelos handlers.
type Repo interface {
	GetConfig(ctx context.Context) (repo.Config, error)
	PlaceWager(ctx context.Context, correlationID int64, player string, stake int64, numbers []uint8) (newPlayer bool, err error)

	GetWager(ctx context.Context, correlationID int64) (repo.Wager, error)
	ListWagers(ctx context.Context, limit, offset int) ([]repo.Wager, error)
	RecentDraws(ctx context.Context, limit int) ([]repo.Wager, error)
	PlayerCount(ctx context.Context) (int64, error)
	PoolBalance(ctx context.Context) (int64, error)
	PlayerStats(ctx context.Context, player string) (repo.PlayerStats, error)

	UpdateBetLimits(ctx context.Context, minBet, maxBet int64) error
	UpdateCallbackGasLimit(ctx context.Context, limit int64) error
	SetPaused(ctx context.Context, paused bool) error
	RebindToken(ctx context.Context, token string) error
	FundPool(ctx context.Context, amount int64) error
	DefundPool(ctx context.Context, amount int64) error
	EmergencyWithdraw(ctx context.Context) (int64, error)
	RescueTokens(ctx context.Context, token, to string) (int64, error)
}

// Publisher publica os registros públicos do motor.
type Publisher interface {
	PublishWagerPlaced(ctx context.Context, e events.WagerPlaced) error
	PublishNewPlayer(ctx context.Context, e events.NewPlayer) error
}

// Server expõe a API pública do motor de apostas e a superfície de governança.
type Server struct {
	log        *zap.Logger
	repo       Repo
	gateway    oracle.Gateway
	publ       Publisher
	ownerToken string
}

func NewServer(log *zap.Logger, r Repo, g oracle.Gateway, p Publisher, ownerToken string) *Server {
	return &Server{log: log, repo: r, gateway: g, publ: p, ownerToken: ownerToken}
}

// Router retorna o mux HTTP com as rotas públicas e de governança.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bets", s.bets)           // POST placeBet | GET ledger completo
	mux.HandleFunc("/bets/", s.getBet)        // GET /bets/{correlationId}
	mux.HandleFunc("/draws", s.recentDraws)   // GET ?limit=
	mux.HandleFunc("/pool", s.getPool)        // GET
	mux.HandleFunc("/limits", s.getLimits)    // GET
	mux.HandleFunc("/players/count", s.playerCount)
	mux.HandleFunc("/players/", s.playerStats) // GET /players/{player}/stats
	s.adminRoutes(mux)
	return mux
}

func (s *Server) bets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.placeBet(w, r)
	case http.MethodGet:
		s.listBets(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")
	}
}

// placeBet valida a aposta, faz o escrow do stake, emite o pedido de entropia
// e devolve o correlation id da aposta pendente.
func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON")
		return
	}
	if req.Player == "" || req.Stake <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD")
		return
	}

	// Validação pura dos números antes de qualquer mutação
	if err := engine.ValidateNumbers(req.Numbers); err != nil {
		s.apiError(w, err)
		return
	}

	cfg, err := s.repo.GetConfig(r.Context())
	if err != nil {
		s.apiError(w, err)
		return
	}

	// O gateway emite o id antes da transação; o pedido só é publicado após
	// o commit, então o fulfillment nunca precede a própria entrada.
	correlationID, err := s.gateway.NewRequestID()
	if err != nil {
		s.apiError(w, err)
		return
	}

	newPlayer, err := s.repo.PlaceWager(r.Context(), correlationID, req.Player, req.Stake, req.Numbers)
	if err != nil {
		s.apiError(w, err)
		return
	}

	if err := s.gateway.PublishRequest(r.Context(), events.RandomnessRequested{
		CorrelationID:    correlationID,
		NumWords:         cfg.NumWords,
		Confirmations:    cfg.Confirmations,
		CallbackGasLimit: cfg.CallbackGasLimit,
	}); err != nil {
		// Aposta já escrowed e pendente; sem caminho de refund por timeout
		// (limitação documentada), então só registra para o operador.
		s.log.Error("randomness request publish failed",
			zap.Int64("correlationId", correlationID), zap.Error(err))
	}

	if err := s.publ.PublishWagerPlaced(r.Context(), events.WagerPlaced{
		CorrelationID: correlationID,
		Player:        req.Player,
		Stake:         req.Stake,
		ChosenNumbers: toInts(req.Numbers),
	}); err != nil {
		s.log.Warn("wager_placed publish failed",
			zap.Int64("correlationId", correlationID), zap.Error(err))
	}
	if newPlayer {
		if err := s.publ.PublishNewPlayer(r.Context(), events.NewPlayer{Player: req.Player}); err != nil {
			s.log.Warn("new_player publish failed",
				zap.String("player", req.Player), zap.Error(err))
		}
	}

	writeJSON(w, dto.PlaceBetResponse{CorrelationID: correlationID, Status: "PENDING_DRAW"})
}

func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)
	wagers, err := s.repo.ListWagers(r.Context(), limit, offset)
	if err != nil {
		s.apiError(w, err)
		return
	}
	writeJSON(w, wagersResponse(wagers))
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")
		return
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/bets/"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_CORRELATION_ID")
		return
	}
	wager, err := s.repo.GetWager(r.Context(), id)
	if err != nil {
		s.apiError(w, err)
		return
	}
	writeJSON(w, wagerResponse(wager))
}

func (s *Server) recentDraws(w http.ResponseWriter, r *http.Request) {
	wagers, err := s.repo.RecentDraws(r.Context(), queryInt(r, "limit", 20))
	if err != nil {
		s.apiError(w, err)
		return
	}
	writeJSON(w, wagersResponse(wagers))
}

func (s *Server) getPool(w http.ResponseWriter, r *http.Request) {
	bal, err := s.repo.PoolBalance(r.Context())
	if err != nil {
		s.apiError(w, err)
		return
	}
	writeJSON(w, dto.PoolResponse{Balance: bal})
}

func (s *Server) getLimits(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.repo.GetConfig(r.Context())
	if err != nil {
		s.apiError(w, err)
		return
	}
	writeJSON(w, dto.LimitsResponse{MinBet: cfg.MinBet, MaxBet: cfg.MaxBet})
}

func (s *Server) playerCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.repo.PlayerCount(r.Context())
	if err != nil {
		s.apiError(w, err)
		return
	}
	writeJSON(w, dto.PlayerCountResponse{Count: n})
}

func (s *Server) playerStats(w http.ResponseWriter, r *http.Request) {
	// path: /players/{player}/stats
	rest := strings.TrimPrefix(r.URL.Path, "/players/")
	player := strings.TrimSuffix(rest, "/stats")
	if player == "" || player == rest {
		writeError(w, http.StatusNotFound, "NOT_FOUND")
		return
	}
	st, err := s.repo.PlayerStats(r.Context(), player)
	if err != nil {
		s.apiError(w, err)
		return
	}
	writeJSON(w, dto.PlayerStatsResponse{
		Player:        st.Player,
		TotalWagers:   st.TotalWagers,
		Wins:          st.Wins,
		TotalWinnings: st.TotalWinnings,
		BestMatch:     st.BestMatch,
	})
}

// apiError traduz sentinelas em códigos estáveis; chamadores decidem pelo
// código, nunca por texto livre.
func (s *Server) apiError(w http.ResponseWriter, err error) {
	switch {
	// validação (erro do chamador, corrigível)
	case errors.Is(err, engine.ErrStakeOutOfRange):
		writeError(w, http.StatusBadRequest, "STAKE_OUT_OF_RANGE")
	case errors.Is(err, engine.ErrWrongNumberCount):
		writeError(w, http.StatusBadRequest, "WRONG_NUMBER_COUNT")
	case errors.Is(err, engine.ErrNumberOutOfRange):
		writeError(w, http.StatusBadRequest, "NUMBER_OUT_OF_RANGE")
	case errors.Is(err, engine.ErrDuplicateNumber):
		writeError(w, http.StatusBadRequest, "DUPLICATE_NUMBER")

	// falhas de transferência do escrow (não são validação)
	case errors.Is(err, repo.ErrInsufficientAllowance):
		writeError(w, http.StatusConflict, "TRANSFER_FAILED_ALLOWANCE")
	case errors.Is(err, repo.ErrInsufficientFunds):
		writeError(w, http.StatusConflict, "TRANSFER_FAILED_BALANCE")

	// estado
	case errors.Is(err, repo.ErrPaused):
		writeError(w, http.StatusConflict, "PAUSED")
	case errors.Is(err, repo.ErrWagerNotFound):
		writeError(w, http.StatusNotFound, "WAGER_NOT_FOUND")
	case errors.Is(err, repo.ErrAlreadySettled):
		writeError(w, http.StatusConflict, "ALREADY_SETTLED")
	case errors.Is(err, repo.ErrInvalidLimits):
		writeError(w, http.StatusBadRequest, "INVALID_LIMITS")
	case errors.Is(err, repo.ErrInvalidGasLimit):
		writeError(w, http.StatusBadRequest, "INVALID_GAS_LIMIT")
	case errors.Is(err, repo.ErrPoolExceeded):
		writeError(w, http.StatusConflict, "POOL_EXCEEDED")
	case errors.Is(err, repo.ErrProtectedToken):
		writeError(w, http.StatusConflict, "PROTECTED_TOKEN")

	default:
		s.log.Error("lottery op failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL")
	}
}

func wagerResponse(w repo.Wager) dto.WagerResponse {
	return dto.WagerResponse{
		CorrelationID: w.ID,
		Player:        w.Player,
		Stake:         w.Stake,
		ChosenNumbers: toInts(w.ChosenNumbers),
		Settled:       w.Settled,
		MatchCount:    w.MatchCount,
		Payout:        w.Payout,
		DrawnNumbers:  toInts(w.DrawnNumbers),
		CreatedAt:     w.CreatedAt,
		SettledAt:     w.SettledAt,
	}
}

// toInts converte a representação interna para o tipo de wire; []uint8 é
// []byte para o encoding/json e sairia como base64.
func toInts(in []uint8) []int {
	if in == nil {
		return nil
	}
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}

func wagersResponse(ws []repo.Wager) []dto.WagerResponse {
	out := make([]dto.WagerResponse, 0, len(ws))
	for _, w := range ws {
		out = append(out, wagerResponse(w))
	}
	return out
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
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
