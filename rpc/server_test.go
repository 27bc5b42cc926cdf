package rpc

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"launchpad/adapters/memory"
	"launchpad/core/types"
	"launchpad/native/launch"
	"launchpad/state"
	"launchpad/storage"
)

const (
	adminHex = "0x00000000000000000000000000000000000000a0"
	makerHex = "0x0000000000000000000000000000000000000001"
	mintHex  = "0x00000000000000000000000000000000000000f0"
)

func newTestServer(t *testing.T) (*Server, *state.LaunchStore) {
	t.Helper()
	store := state.NewLaunchStore(storage.NewMemDB())
	params := launch.DefaultParams()
	if err := store.ParamsPut(&params); err != nil {
		t.Fatalf("seed params: %v", err)
	}

	engine := launch.NewEngine()
	engine.SetState(store)
	engine.SetPoolBackend(memory.NewPoolBackend())
	engine.SetTokenBackend(memory.NewTokenBackend())

	var admin, treasury, vault [20]byte
	admin[19] = 0xA0
	treasury[19] = 0xB0
	vault[19] = 0xC0
	engine.SetAdmin(admin)
	engine.SetTreasury(treasury)
	engine.SetVaultAuthority(vault)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return NewServer(engine, logger, RateLimit{RequestsPerMinute: 10_000, Burst: 100}), store
}

func post(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func createProposal(t *testing.T, handler http.Handler) launch.Proposal {
	t.Helper()
	rec := post(t, handler, "/v1/launch/create-proposal", map[string]string{
		"maker":       makerHex,
		"tokenMint":   mintHex,
		"tokenName":   "Wave",
		"tokenSymbol": "WAVE",
		"tokenUri":    "https://example.com/wave.json",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body)
	}
	var proposal launch.Proposal
	if err := json.Unmarshal(rec.Body.Bytes(), &proposal); err != nil {
		t.Fatalf("decode proposal: %v", err)
	}
	return proposal
}

func fund(t *testing.T, store *state.LaunchStore, hexAddr string, amount uint64) [20]byte {
	t.Helper()
	addr, err := parseAddress(hexAddr)
	if err != nil {
		t.Fatalf("parse %s: %v", hexAddr, err)
	}
	account := &types.Account{Balance: new(big.Int).SetUint64(amount)}
	if err := store.PutAccount(addr[:], account); err != nil {
		t.Fatalf("fund %s: %v", hexAddr, err)
	}
	return addr
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing request id header")
	}
}

func TestCreateAndFetchProposal(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	proposal := createProposal(t, router)
	if proposal.TokenName != "Wave" {
		t.Fatalf("token name = %q", proposal.TokenName)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/launch/proposal/"+proposal.ID.Hex(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("fetch status = %d body=%s", rec.Code, rec.Body)
	}

	var fetched launch.Proposal
	if err := json.Unmarshal(rec.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fetched.ID != proposal.ID {
		t.Fatalf("fetched id mismatch")
	}
}

func TestCreateProposalRejectsBadAddress(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	rec := post(t, router, "/v1/launch/create-proposal", map[string]string{
		"maker":     "not-hex",
		"tokenMint": mintHex,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUnknownProposalIs404(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	rec := post(t, router, "/v1/launch/contribute", map[string]string{
		"caller":   makerHex,
		"proposal": "0x" + strings.Repeat("11", 32),
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if !strings.Contains(body.Error, launch.ErrProposalNotFound.Error()) {
		t.Fatalf("error body = %q", body.Error)
	}
}

func TestContributeFullFlowAndConflicts(t *testing.T) {
	server, store := newTestServer(t)
	router := server.Router()
	proposal := createProposal(t, router)

	backerHex := "0x0000000000000000000000000000000000000010"
	fund(t, store, backerHex, launch.DefaultParams().AmountPerBacker)

	rec := post(t, router, "/v1/launch/contribute", map[string]string{
		"caller":   backerHex,
		"proposal": proposal.ID.Hex(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("contribute status = %d body=%s", rec.Code, rec.Body)
	}
	var record launch.BackerRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	wantDeposit := launch.DefaultParams().AmountPerBacker - launch.DefaultParams().ProtocolFee
	if record.DepositAmount != wantDeposit {
		t.Fatalf("deposit = %d, want %d", record.DepositAmount, wantDeposit)
	}

	// Backing twice is a state conflict, not a validation failure.
	fund(t, store, backerHex, launch.DefaultParams().AmountPerBacker)
	rec = post(t, router, "/v1/launch/contribute", map[string]string{
		"caller":   backerHex,
		"proposal": proposal.ID.Hex(),
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("double back status = %d, want 409", rec.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if !strings.Contains(body.Error, launch.ErrAlreadyBacked.Error()) {
		t.Fatalf("error body = %q", body.Error)
	}

	// An unfunded backer cannot cover the contribution.
	rec = post(t, router, "/v1/launch/contribute", map[string]string{
		"caller":   "0x0000000000000000000000000000000000000011",
		"proposal": proposal.ID.Hex(),
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("unfunded status = %d, want 409", rec.Code)
	}
}

func TestRejectRequiresAdmin(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()
	proposal := createProposal(t, router)

	rec := post(t, router, "/v1/launch/reject-proposal", map[string]string{
		"caller":   makerHex,
		"proposal": proposal.ID.Hex(),
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin status = %d, want 403", rec.Code)
	}

	rec = post(t, router, "/v1/launch/reject-proposal", map[string]string{
		"caller":   adminHex,
		"proposal": proposal.ID.Hex(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d body=%s", rec.Code, rec.Body)
	}
}

func TestLaunchPoolOverHTTP(t *testing.T) {
	server, store := newTestServer(t)
	router := server.Router()
	proposal := createProposal(t, router)

	backerHex := "0x0000000000000000000000000000000000000010"
	fund(t, store, backerHex, launch.DefaultParams().AmountPerBacker)
	rec := post(t, router, "/v1/launch/contribute", map[string]string{
		"caller":   backerHex,
		"proposal": proposal.ID.Hex(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("contribute status = %d body=%s", rec.Code, rec.Body)
	}

	rec = post(t, router, "/v1/launch/launch-pool", map[string]string{
		"caller":   makerHex,
		"proposal": proposal.ID.Hex(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("launch status = %d body=%s", rec.Code, rec.Body)
	}
	var launched launch.Proposal
	if err := json.Unmarshal(rec.Body.Bytes(), &launched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !launched.IsPoolLaunched {
		t.Fatalf("proposal not launched: %+v", launched)
	}

	// Fetch the backer record through the query route.
	req := httptest.NewRequest(http.MethodGet, "/v1/launch/proposal/"+proposal.ID.Hex()+"/backer/"+backerHex, nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, req)
	if getRec.Code != http.StatusOK {
		t.Fatalf("backer fetch status = %d body=%s", getRec.Code, getRec.Body)
	}
}

func TestSetConfigValidation(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	bad := launch.DefaultParams()
	bad.MinBackers = 0
	rec := post(t, router, "/v1/launch/set-config", map[string]interface{}{
		"caller": adminHex,
		"params": bad,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid params status = %d, want 400", rec.Code)
	}

	good := launch.DefaultParams()
	good.MaxBackers = 123
	rec = post(t, router, "/v1/launch/set-config", map[string]interface{}{
		"caller": adminHex,
		"params": good,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("valid params status = %d body=%s", rec.Code, rec.Body)
	}
}
