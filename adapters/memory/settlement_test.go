package memory

import (
	"math/big"
	"testing"

	"launchpad/core/types"
	"launchpad/native/launch"
	"launchpad/state"
	"launchpad/storage"
)

func testAddr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

// Drives a full launch through the real store and both memory backends, then
// claims position fees. The harvested value has to land on the vault before
// the engine splits it, without anyone funding the vault by hand.
func TestClaimPositionFeeSettlesThroughVault(t *testing.T) {
	var (
		admin    = testAddr(0xA0)
		treasury = testAddr(0xB0)
		vault    = testAddr(0xC0)
		maker    = testAddr(0x01)
		mint     = testAddr(0xF0)
		backer   = testAddr(0x10)
	)

	store := state.NewLaunchStore(storage.NewMemDB())
	params := launch.DefaultParams()
	params.AmountPerBacker = 10_000_000
	params.ProtocolFee = 2_000_000
	if err := store.ParamsPut(&params); err != nil {
		t.Fatalf("seed params: %v", err)
	}

	pools := NewPoolBackend()
	tokens := NewTokenBackend()
	pools.BindSettlement(tokens, store, vault)

	engine := launch.NewEngine()
	engine.SetState(store)
	engine.SetPoolBackend(pools)
	engine.SetTokenBackend(tokens)
	engine.SetAdmin(admin)
	engine.SetTreasury(treasury)
	engine.SetVaultAuthority(vault)
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })

	proposal, err := engine.CreateProposal(maker, mint, "Wave", "WAVE", "https://example.com/wave.json")
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	account := &types.Account{Balance: new(big.Int).SetUint64(params.AmountPerBacker)}
	if err := store.PutAccount(backer[:], account); err != nil {
		t.Fatalf("fund backer: %v", err)
	}
	if _, err := engine.Contribute(backer, proposal.ID); err != nil {
		t.Fatalf("contribute: %v", err)
	}
	if _, err := engine.LaunchPool(maker, proposal.ID); err != nil {
		t.Fatalf("launch pool: %v", err)
	}

	factor, err := params.DecimalsFactor()
	if err != nil {
		t.Fatalf("decimals factor: %v", err)
	}
	makerBase := tokens.Balance(mint, maker)
	if makerBase != params.MakerTokenAmount*factor {
		t.Fatalf("maker allocation = %d, want %d", makerBase, params.MakerTokenAmount*factor)
	}

	if err := pools.AccrueFees(proposal.ID, 7, 5); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	settlement, err := engine.ClaimPositionFee(maker, proposal.ID)
	if err != nil {
		t.Fatalf("claim position fee: %v", err)
	}
	if settlement.BaseTreasury != 4 || settlement.BaseMaker != 3 {
		t.Fatalf("base split = %d/%d, want 4/3", settlement.BaseTreasury, settlement.BaseMaker)
	}
	if settlement.QuoteTreasury != 3 || settlement.QuoteMaker != 2 {
		t.Fatalf("quote split = %d/%d, want 3/2", settlement.QuoteTreasury, settlement.QuoteMaker)
	}

	if got := tokens.Balance(mint, treasury); got != 4 {
		t.Fatalf("treasury base = %d, want 4", got)
	}
	if got := tokens.Balance(mint, maker); got != makerBase+3 {
		t.Fatalf("maker base = %d, want %d", got, makerBase+3)
	}

	balance := func(addr [20]byte) uint64 {
		account, err := store.GetAccount(addr[:])
		if err != nil {
			t.Fatalf("get account %x: %v", addr[19], err)
		}
		if account == nil || account.Balance == nil {
			return 0
		}
		return account.Balance.Uint64()
	}
	// Treasury held the 2M protocol fee before the quote split landed.
	if got := balance(treasury); got != 2_000_003 {
		t.Fatalf("treasury balance = %d, want 2000003", got)
	}
	if got := balance(maker); got != 2 {
		t.Fatalf("maker balance = %d, want 2", got)
	}
	if got := balance(vault); got != 0 {
		t.Fatalf("vault balance = %d, want 0", got)
	}
}
