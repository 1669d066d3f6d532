package http

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/lottery-platform-poc/internal/lottery-service/dto"
)

// Superfície de governança: toda rota exige o token do owner. Cada operação é
// independente e aplica-se prospectivamente (apostas pendentes não mudam).
func (s *Server) adminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/admin/limits", s.ownerOnly(s.updateLimits))
	mux.HandleFunc("/admin/callback-gas-limit", s.ownerOnly(s.updateCallbackGasLimit))
	mux.HandleFunc("/admin/pool/fund", s.ownerOnly(s.fundPool))
	mux.HandleFunc("/admin/pool/defund", s.ownerOnly(s.defundPool))
	mux.HandleFunc("/admin/pause", s.ownerOnly(s.setPaused(true)))
	mux.HandleFunc("/admin/unpause", s.ownerOnly(s.setPaused(false)))
	mux.HandleFunc("/admin/emergency-withdraw", s.ownerOnly(s.emergencyWithdraw))
	mux.HandleFunc("/admin/rescue", s.ownerOnly(s.rescueTokens))
	mux.HandleFunc("/admin/token", s.ownerOnly(s.rebindToken))
}

func (s *Server) ownerOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")
			return
		}
		if s.ownerToken == "" || r.Header.Get("X-Owner-Token") != s.ownerToken {
			writeError(w, http.StatusForbidden, "NOT_OWNER")
			return
		}
		next(w, r)
	}
}

func (s *Server) updateLimits(w http.ResponseWriter, r *http.Request) {
	var req dto.BetLimitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON")
		return
	}
	if err := s.repo.UpdateBetLimits(r.Context(), req.MinBet, req.MaxBet); err != nil {
		s.apiError(w, err)
		return
	}
	writeJSON(w, dto.LimitsResponse{MinBet: req.MinBet, MaxBet: req.MaxBet})
}

func (s *Server) updateCallbackGasLimit(w http.ResponseWriter, r *http.Request) {
	var req dto.CallbackGasLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON")
		return
	}
	if err := s.repo.UpdateCallbackGasLimit(r.Context(), req.CallbackGasLimit); err != nil {
		s.apiError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"UPDATED"}`))
}

func (s *Server) fundPool(w http.ResponseWriter, r *http.Request) {
	var req dto.PoolFundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON")
		return
	}
	if err := s.repo.FundPool(r.Context(), req.Amount); err != nil {
		s.apiError(w, err)
		return
	}
	writeJSON(w, dto.AmountResponse{Amount: req.Amount, Status: "FUNDED"})
}

func (s *Server) defundPool(w http.ResponseWriter, r *http.Request) {
	var req dto.PoolFundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON")
		return
	}
	if err := s.repo.DefundPool(r.Context(), req.Amount); err != nil {
		s.apiError(w, err)
		return
	}
	writeJSON(w, dto.AmountResponse{Amount: req.Amount, Status: "DEFUNDED"})
}

func (s *Server) setPaused(paused bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.repo.SetPaused(r.Context(), paused); err != nil {
			s.apiError(w, err)
			return
		}
		status := "UNPAUSED"
		if paused {
			status = "PAUSED"
		}
		s.log.Info("pause switch", zap.Bool("paused", paused))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"` + status + `"}`))
	}
}

func (s *Server) emergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	amount, err := s.repo.EmergencyWithdraw(r.Context())
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.log.Warn("emergency withdraw", zap.Int64("amount", amount))
	writeJSON(w, dto.AmountResponse{Amount: amount, Status: "WITHDRAWN"})
}

func (s *Server) rescueTokens(w http.ResponseWriter, r *http.Request) {
	var req dto.RescueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON")
		return
	}
	if req.Token == "" || req.To == "" {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD")
		return
	}
	amount, err := s.repo.RescueTokens(r.Context(), req.Token, req.To)
	if err != nil {
		s.apiError(w, err)
		return
	}
	writeJSON(w, dto.AmountResponse{Amount: amount, Status: "RESCUED"})
}

// rebindToken troca o token aceito. Atenção: o saldo do pool não migra e fica
// retido sob o token antigo — escotilha de teste/migração.
func (s *Server) rebindToken(w http.ResponseWriter, r *http.Request) {
	var req dto.RebindTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD")
		return
	}
	if err := s.repo.RebindToken(r.Context(), req.Token); err != nil {
		s.apiError(w, err)
		return
	}
	s.log.Warn("value token rebound; pool balance stays under the old token",
		zap.String("token", req.Token))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"REBOUND"}`))
}
