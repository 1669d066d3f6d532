package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/radieske/lottery-platform-poc/internal/lottery-service/dto"
	"github.com/radieske/lottery-platform-poc/internal/lottery-service/engine"
	"github.com/radieske/lottery-platform-poc/internal/lottery-service/repo"
	"github.com/radieske/lottery-platform-poc/pkg/contracts/events"
)

const testOwnerToken = "owner-test-token"

// fakeRepo reproduz em memória a semântica transacional do Postgres: ou a
// aposta entra inteira, ou nada muda.
type fakeRepo struct {
	cfg        repo.Config
	balances   map[string]int64 // conta -> saldo no value token
	allowances map[string]int64 // jogador -> allowance para o motor
	wagers     map[int64]*repo.Wager
	players    map[string]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		cfg: repo.Config{
			MinBet:           5,
			MaxBet:           1000,
			CallbackGasLimit: 200_000,
			Confirmations:    3,
			NumWords:         2,
			ValueToken:       "DEGEN",
		},
		balances:   map[string]int64{},
		allowances: map[string]int64{},
		wagers:     map[int64]*repo.Wager{},
		players:    map[string]bool{},
	}
}

func (f *fakeRepo) GetConfig(context.Context) (repo.Config, error) { return f.cfg, nil }

func (f *fakeRepo) PlaceWager(_ context.Context, id int64, player string, stake int64, numbers []uint8) (bool, error) {
	if f.cfg.Paused {
		return false, repo.ErrPaused
	}
	if err := engine.ValidateStake(stake, f.cfg.MinBet, f.cfg.MaxBet); err != nil {
		return false, err
	}
	if f.allowances[player] < stake {
		return false, repo.ErrInsufficientAllowance
	}
	if f.balances[player] < stake {
		return false, repo.ErrInsufficientFunds
	}
	f.allowances[player] -= stake
	f.balances[player] -= stake
	treasuryCut, poolCut := engine.SplitStake(stake)
	f.balances[repo.TreasuryAccount] += treasuryCut
	f.balances[repo.PoolAccount] += poolCut

	newPlayer := !f.players[player]
	f.players[player] = true
	f.wagers[id] = &repo.Wager{ID: id, Player: player, Stake: stake, ChosenNumbers: numbers}
	return newPlayer, nil
}

func (f *fakeRepo) GetWager(_ context.Context, id int64) (repo.Wager, error) {
	w, ok := f.wagers[id]
	if !ok {
		return repo.Wager{}, repo.ErrWagerNotFound
	}
	return *w, nil
}

func (f *fakeRepo) ListWagers(context.Context, int, int) ([]repo.Wager, error) {
	out := make([]repo.Wager, 0, len(f.wagers))
	for _, w := range f.wagers {
		out = append(out, *w)
	}
	return out, nil
}

func (f *fakeRepo) RecentDraws(context.Context, int) ([]repo.Wager, error) { return nil, nil }

func (f *fakeRepo) PlayerCount(context.Context) (int64, error) {
	return int64(len(f.players)), nil
}

func (f *fakeRepo) PoolBalance(context.Context) (int64, error) {
	return f.balances[repo.PoolAccount], nil
}

func (f *fakeRepo) PlayerStats(_ context.Context, player string) (repo.PlayerStats, error) {
	st := repo.PlayerStats{Player: player}
	for _, w := range f.wagers {
		if w.Player != player {
			continue
		}
		st.TotalWagers++
		if w.Payout > 0 {
			st.Wins++
			st.TotalWinnings += w.Payout
		}
		if w.MatchCount > st.BestMatch {
			st.BestMatch = w.MatchCount
		}
	}
	return st, nil
}

func (f *fakeRepo) UpdateBetLimits(_ context.Context, minBet, maxBet int64) error {
	if minBet <= 0 || minBet > maxBet {
		return repo.ErrInvalidLimits
	}
	f.cfg.MinBet, f.cfg.MaxBet = minBet, maxBet
	return nil
}

func (f *fakeRepo) UpdateCallbackGasLimit(_ context.Context, limit int64) error {
	if limit <= 0 {
		return repo.ErrInvalidGasLimit
	}
	f.cfg.CallbackGasLimit = limit
	return nil
}

func (f *fakeRepo) SetPaused(_ context.Context, paused bool) error {
	f.cfg.Paused = paused
	return nil
}

func (f *fakeRepo) RebindToken(_ context.Context, token string) error {
	f.cfg.ValueToken = token
	return nil
}

func (f *fakeRepo) FundPool(_ context.Context, amount int64) error {
	if f.balances[repo.OwnerAccount] < amount {
		return repo.ErrInsufficientFunds
	}
	f.balances[repo.OwnerAccount] -= amount
	f.balances[repo.PoolAccount] += amount
	return nil
}

func (f *fakeRepo) DefundPool(_ context.Context, amount int64) error {
	if f.balances[repo.PoolAccount] < amount {
		return repo.ErrPoolExceeded
	}
	f.balances[repo.PoolAccount] -= amount
	f.balances[repo.OwnerAccount] += amount
	return nil
}

func (f *fakeRepo) EmergencyWithdraw(context.Context) (int64, error) {
	amount := f.balances[repo.PoolAccount]
	f.balances[repo.PoolAccount] = 0
	f.balances[repo.OwnerAccount] += amount
	return amount, nil
}

func (f *fakeRepo) RescueTokens(_ context.Context, token, _ string) (int64, error) {
	if token == f.cfg.ValueToken {
		return 0, repo.ErrProtectedToken
	}
	return 0, nil
}

// fakeGateway emite ids sequenciais e grava os pedidos publicados.
type fakeGateway struct {
	nextID   int64
	requests []events.RandomnessRequested
}

func (g *fakeGateway) NewRequestID() (int64, error) {
	g.nextID++
	return g.nextID, nil
}

func (g *fakeGateway) PublishRequest(_ context.Context, req events.RandomnessRequested) error {
	g.requests = append(g.requests, req)
	return nil
}

type fakePublisher struct {
	placed  []events.WagerPlaced
	players []events.NewPlayer
}

func (p *fakePublisher) PublishWagerPlaced(_ context.Context, e events.WagerPlaced) error {
	p.placed = append(p.placed, e)
	return nil
}

func (p *fakePublisher) PublishNewPlayer(_ context.Context, e events.NewPlayer) error {
	p.players = append(p.players, e)
	return nil
}

type testEnv struct {
	repo    *fakeRepo
	gateway *fakeGateway
	publ    *fakePublisher
	handler http.Handler
}

func newTestEnv() *testEnv {
	r := newFakeRepo()
	g := &fakeGateway{}
	p := &fakePublisher{}
	return &testEnv{
		repo:    r,
		gateway: g,
		publ:    p,
		handler: NewServer(zap.NewNop(), r, g, p, testOwnerToken).Router(),
	}
}

func (e *testEnv) fund(player string, balance, allowance int64) {
	e.repo.balances[player] = balance
	e.repo.allowances[player] = allowance
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e.Error
}

func asOwner() map[string]string {
	return map[string]string{"X-Owner-Token": testOwnerToken}
}

func TestPlaceBetHappyPath(t *testing.T) {
	env := newTestEnv()
	env.fund("alice", 100, 100)

	rec := doJSON(t, env.handler, http.MethodPost, "/bets",
		`{"player":"alice","stake":10,"numbers":[1,2,3,4,5,6]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp dto.PlaceBetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PENDING_DRAW", resp.Status)
	assert.NotZero(t, resp.CorrelationID)

	// escrow + split exatos
	assert.Equal(t, int64(90), env.repo.balances["alice"])
	assert.Equal(t, int64(1), env.repo.balances[repo.TreasuryAccount])
	assert.Equal(t, int64(9), env.repo.balances[repo.PoolAccount])

	// pedido de entropia e eventos públicos
	require.Len(t, env.gateway.requests, 1)
	assert.Equal(t, resp.CorrelationID, env.gateway.requests[0].CorrelationID)
	assert.Equal(t, int64(200_000), env.gateway.requests[0].CallbackGasLimit)
	require.Len(t, env.publ.placed, 1)
	require.Len(t, env.publ.players, 1, "primeiro wager registra NewPlayer")

	// segunda aposta do mesmo jogador não reemite NewPlayer
	rec = doJSON(t, env.handler, http.MethodPost, "/bets",
		`{"player":"alice","stake":10,"numbers":[7,8,9,10,11,12]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.publ.players, 1)
}

func TestPlaceBetValidationErrors(t *testing.T) {
	env := newTestEnv()
	env.fund("alice", 1000, 1000)

	cases := []struct {
		name string
		body string
		code string
	}{
		{"below min bet", `{"player":"alice","stake":4,"numbers":[1,2,3,4,5,6]}`, "STAKE_OUT_OF_RANGE"},
		{"above max bet", `{"player":"alice","stake":1001,"numbers":[1,2,3,4,5,6]}`, "STAKE_OUT_OF_RANGE"},
		{"five numbers", `{"player":"alice","stake":10,"numbers":[1,2,3,4,5]}`, "WRONG_NUMBER_COUNT"},
		{"seven numbers", `{"player":"alice","stake":10,"numbers":[1,2,3,4,5,6,7]}`, "WRONG_NUMBER_COUNT"},
		{"zero not allowed", `{"player":"alice","stake":10,"numbers":[0,2,3,4,5,6]}`, "NUMBER_OUT_OF_RANGE"},
		{"above 99", `{"player":"alice","stake":10,"numbers":[1,2,3,4,5,100]}`, "NUMBER_OUT_OF_RANGE"},
		{"duplicate", `{"player":"alice","stake":10,"numbers":[1,1,3,4,5,6]}`, "DUPLICATE_NUMBER"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, env.handler, http.MethodPost, "/bets", tc.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.code, errCode(t, rec))
		})
	}

	// nenhuma rejeição pode ter movido fundos
	assert.Equal(t, int64(1000), env.repo.balances["alice"])
	assert.Zero(t, env.repo.balances[repo.PoolAccount])
	assert.Zero(t, env.repo.balances[repo.TreasuryAccount])
	assert.Empty(t, env.gateway.requests)
}

func TestPlaceBetTransferFailures(t *testing.T) {
	env := newTestEnv()

	// sem allowance
	env.fund("alice", 100, 0)
	rec := doJSON(t, env.handler, http.MethodPost, "/bets",
		`{"player":"alice","stake":10,"numbers":[1,2,3,4,5,6]}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "TRANSFER_FAILED_ALLOWANCE", errCode(t, rec))

	// allowance ok, saldo insuficiente
	env.fund("alice", 5, 100)
	rec = doJSON(t, env.handler, http.MethodPost, "/bets",
		`{"player":"alice","stake":10,"numbers":[1,2,3,4,5,6]}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "TRANSFER_FAILED_BALANCE", errCode(t, rec))
}

func TestPauseBlocksIntakeOnly(t *testing.T) {
	env := newTestEnv()
	env.fund("alice", 100, 100)

	rec := doJSON(t, env.handler, http.MethodPost, "/admin/pause", "", asOwner())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, env.handler, http.MethodPost, "/bets",
		`{"player":"alice","stake":10,"numbers":[1,2,3,4,5,6]}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "PAUSED", errCode(t, rec))
	assert.Equal(t, int64(100), env.repo.balances["alice"], "nenhum escrow durante a pausa")

	rec = doJSON(t, env.handler, http.MethodPost, "/admin/unpause", "", asOwner())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, env.handler, http.MethodPost, "/bets",
		`{"player":"alice","stake":10,"numbers":[1,2,3,4,5,6]}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRequiresOwnerToken(t *testing.T) {
	env := newTestEnv()

	paths := []string{
		"/admin/limits", "/admin/callback-gas-limit", "/admin/pool/fund",
		"/admin/pool/defund", "/admin/pause", "/admin/unpause",
		"/admin/emergency-withdraw", "/admin/rescue", "/admin/token",
	}
	for _, path := range paths {
		rec := doJSON(t, env.handler, http.MethodPost, path, `{}`, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
		assert.Equal(t, "NOT_OWNER", errCode(t, rec), path)
	}
}

func TestUpdateLimitsRejectsMinAboveMax(t *testing.T) {
	env := newTestEnv()

	rec := doJSON(t, env.handler, http.MethodPost, "/admin/limits",
		`{"min_bet":100,"max_bet":10}`, asOwner())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_LIMITS", errCode(t, rec))
	assert.Equal(t, int64(5), env.repo.cfg.MinBet, "limites vigentes intactos")

	rec = doJSON(t, env.handler, http.MethodPost, "/admin/limits",
		`{"min_bet":10,"max_bet":500}`, asOwner())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(10), env.repo.cfg.MinBet)
	assert.Equal(t, int64(500), env.repo.cfg.MaxBet)
}

func TestDefundPoolGuard(t *testing.T) {
	env := newTestEnv()
	env.repo.balances[repo.PoolAccount] = 50

	rec := doJSON(t, env.handler, http.MethodPost, "/admin/pool/defund",
		`{"amount":80}`, asOwner())
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "POOL_EXCEEDED", errCode(t, rec))
	assert.Equal(t, int64(50), env.repo.balances[repo.PoolAccount])

	rec = doJSON(t, env.handler, http.MethodPost, "/admin/pool/defund",
		`{"amount":30}`, asOwner())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(20), env.repo.balances[repo.PoolAccount])
	assert.Equal(t, int64(30), env.repo.balances[repo.OwnerAccount])
}

func TestRescueProtectsValueToken(t *testing.T) {
	env := newTestEnv()

	rec := doJSON(t, env.handler, http.MethodPost, "/admin/rescue",
		`{"token":"DEGEN","to":"owner"}`, asOwner())
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "PROTECTED_TOKEN", errCode(t, rec))

	rec = doJSON(t, env.handler, http.MethodPost, "/admin/rescue",
		`{"token":"WETH","to":"owner"}`, asOwner())
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQuerySurface(t *testing.T) {
	env := newTestEnv()
	env.fund("alice", 100, 100)

	rec := doJSON(t, env.handler, http.MethodPost, "/bets",
		`{"player":"alice","stake":10,"numbers":[1,2,3,4,5,6]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var placed dto.PlaceBetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &placed))

	rec = doJSON(t, env.handler, http.MethodGet, "/bets/"+jsonInt(placed.CorrelationID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var wager dto.WagerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wager))
	assert.Equal(t, "alice", wager.Player)
	assert.False(t, wager.Settled)

	rec = doJSON(t, env.handler, http.MethodGet, "/bets/999999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "WAGER_NOT_FOUND", errCode(t, rec))

	rec = doJSON(t, env.handler, http.MethodGet, "/pool", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pool dto.PoolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pool))
	assert.Equal(t, int64(9), pool.Balance)

	rec = doJSON(t, env.handler, http.MethodGet, "/players/count", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var count dto.PlayerCountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &count))
	assert.Equal(t, int64(1), count.Count)

	rec = doJSON(t, env.handler, http.MethodGet, "/players/alice/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats dto.PlayerStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalWagers)
	assert.Zero(t, stats.Wins)

	rec = doJSON(t, env.handler, http.MethodGet, "/limits", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var limits dto.LimitsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &limits))
	assert.Equal(t, int64(5), limits.MinBet)
	assert.Equal(t, int64(1000), limits.MaxBet)
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// Listas de números têm que sair como array JSON numérico: []uint8 é []byte
// para o encoding/json e serializaria como base64, ilegível para consumidores
// fora de Go.
func TestNumberFieldsEncodeAsJSONArrays(t *testing.T) {
	env := newTestEnv()
	env.fund("alice", 100, 100)

	rec := doJSON(t, env.handler, http.MethodPost, "/bets",
		`{"player":"alice","stake":10,"numbers":[1,2,3,4,5,6]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var placed dto.PlaceBetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &placed))

	rec = doJSON(t, env.handler, http.MethodGet, "/bets/"+jsonInt(placed.CorrelationID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"chosen_numbers":[1,2,3,4,5,6]`)
	assert.NotContains(t, body, "AQIDBAUG", "base64 de {1..6} não pode aparecer no wire")

	// o evento público carrega os números da mesma forma
	require.Len(t, env.publ.placed, 1)
	b, err := json.Marshal(env.publ.placed[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), `"chosen_numbers":[1,2,3,4,5,6]`)
}

type erringPublisher struct{}

func (erringPublisher) PublishWagerPlaced(context.Context, events.WagerPlaced) error {
	return errors.New("broker down")
}

func (erringPublisher) PublishNewPlayer(context.Context, events.NewPlayer) error {
	return errors.New("broker down")
}

// Falha ao publicar os registros públicos não derruba a entrada (a aposta já
// comitou), mas tem que ficar registrada para o operador.
func TestPublishFailureLoggedNotFatal(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := newFakeRepo()
	r.balances["alice"] = 100
	r.allowances["alice"] = 100
	handler := NewServer(zap.New(core), r, &fakeGateway{}, erringPublisher{}, testOwnerToken).Router()

	rec := doJSON(t, handler, http.MethodPost, "/bets",
		`{"player":"alice","stake":10,"numbers":[1,2,3,4,5,6]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, "aposta comitada responde OK mesmo com broker fora")

	assert.Equal(t, 1, logs.FilterMessage("wager_placed publish failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("new_player publish failed").Len())
}
