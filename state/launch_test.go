package state

import (
	"errors"
	"math/big"
	"reflect"
	"testing"

	"launchpad/core/types"
	"launchpad/native/launch"
	"launchpad/storage"
)

func newStore() *LaunchStore {
	return NewLaunchStore(storage.NewMemDB())
}

func TestProposalRoundTrip(t *testing.T) {
	store := newStore()
	var maker [20]byte
	maker[19] = 0x01
	proposal := &launch.Proposal{
		ID:                       launch.NewProposalID(maker, 3),
		Maker:                    maker,
		Sequence:                 3,
		TimeStarted:              1_700_000_000,
		IsPoolLaunched:           true,
		LaunchTimestamp:          1_700_086_400,
		TotalBackers:             12,
		TotalBacking:             96_000_000,
		CurrentCycle:             2,
		MilestoneActive:          true,
		MilestoneUnitsAssigned:   1_000,
		MilestoneBackersWeighted: 7,
		MilestoneReputationSum:   525,
		TokenName:                "Wave",
		TokenSymbol:              "WAVE",
		TokenURI:                 "https://example.com/wave.json",
	}
	proposal.TokenMint[19] = 0xF0

	if _, ok, err := store.ProposalGet(proposal.ID); err != nil || ok {
		t.Fatalf("missing proposal: ok=%v err=%v", ok, err)
	}
	if err := store.ProposalPut(proposal); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, ok, err := store.ProposalGet(proposal.ID)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(proposal, loaded) {
		t.Fatalf("round trip mismatch:\nput %+v\ngot %+v", proposal, loaded)
	}
}

func TestBackerRoundTripAndDelete(t *testing.T) {
	store := newStore()
	var maker, backer [20]byte
	maker[19], backer[19] = 0x01, 0x10
	record := &launch.BackerRecord{
		Proposal:              launch.NewProposalID(maker, 0),
		Backer:                backer,
		DepositAmount:         8_000_000,
		PendingClaim:          35_000_000,
		SettleCycle:           2,
		UpdatedCycle:          2,
		InitialAirdropGranted: true,
		CreatedAt:             1_700_000_000,
	}
	if err := store.BackerPut(record); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, ok, err := store.BackerGet(record.Proposal, backer)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(record, loaded) {
		t.Fatalf("round trip mismatch:\nput %+v\ngot %+v", record, loaded)
	}

	if err := store.BackerDelete(record.Proposal, backer); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, err := store.BackerGet(record.Proposal, backer); err != nil || ok {
		t.Fatalf("deleted record still present: ok=%v err=%v", ok, err)
	}
}

func TestParamsRoundTrip(t *testing.T) {
	store := newStore()
	if _, ok, err := store.ParamsGet(); err != nil || ok {
		t.Fatalf("unexpected params on empty store: ok=%v err=%v", ok, err)
	}
	params := launch.DefaultParams()
	params.MaxBackers = 77
	if err := store.ParamsPut(&params); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, ok, err := store.ParamsGet()
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if *loaded != params {
		t.Fatalf("round trip mismatch:\nput %+v\ngot %+v", params, loaded)
	}
}

func TestMakerAndQuotaRoundTrip(t *testing.T) {
	store := newStore()
	var addr [20]byte
	addr[19] = 0x01

	if err := store.MakerPut(&launch.MakerRecord{Maker: addr, ProposalCount: 4}); err != nil {
		t.Fatalf("maker put: %v", err)
	}
	maker, ok, err := store.MakerGet(addr)
	if err != nil || !ok {
		t.Fatalf("maker get: ok=%v err=%v", ok, err)
	}
	if maker.ProposalCount != 4 {
		t.Fatalf("proposal count = %d, want 4", maker.ProposalCount)
	}

	if err := store.QuotaPut(&launch.BackerQuota{Backer: addr, ActiveCount: 3}); err != nil {
		t.Fatalf("quota put: %v", err)
	}
	quota, ok, err := store.QuotaGet(addr)
	if err != nil || !ok {
		t.Fatalf("quota get: ok=%v err=%v", ok, err)
	}
	if quota.ActiveCount != 3 {
		t.Fatalf("active count = %d, want 3", quota.ActiveCount)
	}
}

func TestAccountDefaultsToZeroBalance(t *testing.T) {
	store := newStore()
	addr := []byte("unknown-address-0000")

	account, err := store.GetAccount(addr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if account.Balance == nil || account.Balance.Sign() != 0 {
		t.Fatalf("fresh account balance = %v, want 0", account.Balance)
	}

	account.Nonce = 9
	account.Balance = big.NewInt(123_456)
	if err := store.PutAccount(addr, account); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, err := store.GetAccount(addr)
	if err != nil {
		t.Fatalf("get stored: %v", err)
	}
	if loaded.Nonce != 9 || loaded.Balance.Cmp(big.NewInt(123_456)) != 0 {
		t.Fatalf("stored account = %+v", loaded)
	}

	if err := store.PutAccount(addr, &types.Account{}); err != nil {
		t.Fatalf("put nil balance: %v", err)
	}
	loaded, err = store.GetAccount(addr)
	if err != nil || loaded.Balance.Sign() != 0 {
		t.Fatalf("nil balance round trip = %+v err=%v", loaded, err)
	}
}

func TestCorruptValueSurfacesError(t *testing.T) {
	db := storage.NewMemDB()
	store := NewLaunchStore(db)
	var maker [20]byte
	id := launch.NewProposalID(maker, 0)
	if err := db.Put(proposalKey(id), []byte{0xff, 0xff}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := store.ProposalGet(id); err == nil {
		t.Fatalf("expected decode error for corrupt value")
	}
	if _, err := db.Get([]byte("missing")); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing key err = %v, want storage.ErrNotFound", err)
	}
}
