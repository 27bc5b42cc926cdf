package launch

import (
	"errors"
	"testing"
)

func TestTierPercent(t *testing.T) {
	cases := []struct {
		bp   uint64
		want uint64
	}{
		{0, 0},
		{2_499, 0},
		{2_500, 25},
		{4_999, 25},
		{5_000, 50},
		{6_999, 50},
		{7_000, 75},
		{9_999, 75},
		{10_000, 100},
		{25_000, 100},
	}
	for _, tc := range cases {
		if got := TierPercent(tc.bp); got != tc.want {
			t.Fatalf("TierPercent(%d) = %d, want %d", tc.bp, got, tc.want)
		}
	}
}

// launchWithBackers drives a proposal to the launched state with n backers.
func launchWithBackers(t *testing.T, env *testEnv, n int) (*Proposal, [][20]byte) {
	t.Helper()
	proposal := env.createProposal(t)
	backers := make([][20]byte, 0, n)
	for i := 0; i < n; i++ {
		backer := addr(byte(0x10 + i))
		env.contribute(t, proposal.ID, backer)
		backers = append(backers, backer)
	}
	env.launch(t, proposal.ID)
	return proposal, backers
}

func TestInitializeMilestoneGuards(t *testing.T) {
	env := newTestEnv(t)
	proposal := env.createProposal(t)

	if _, err := env.engine.InitializeMilestone(adminAddr, proposal.ID); !errors.Is(err, ErrPoolNotLaunched) {
		t.Fatalf("pre-launch err = %v, want ErrPoolNotLaunched", err)
	}

	env.contribute(t, proposal.ID, addr(0x10))
	env.launch(t, proposal.ID)

	if _, err := env.engine.InitializeMilestone(makerAddr, proposal.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-admin err = %v, want ErrUnauthorized", err)
	}
	if _, err := env.engine.InitializeMilestone(adminAddr, proposal.ID); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := env.engine.InitializeMilestone(adminAddr, proposal.ID); !errors.Is(err, ErrMilestoneActive) {
		t.Fatalf("double init err = %v, want ErrMilestoneActive", err)
	}
}

func TestMilestoneCycleDistributesAndBurns(t *testing.T) {
	env := newTestEnv(t)
	proposal, backers := launchWithBackers(t, env, 4)

	if _, err := env.engine.InitializeMilestone(adminAddr, proposal.ID); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	params := testParams()
	factor, _ := params.DecimalsFactor()
	perBacker := params.AirdropPerMilestone / 4
	expectedBase := perBacker * factor

	// Two perfect holders, one at half, one at zero.
	holdings := []uint64{expectedBase, expectedBase, expectedBase / 2, 0}
	wantPct := []uint64{100, 100, 50, 0}
	for i, backer := range backers {
		record, err := env.engine.SnapshotBacker(adminAddr, proposal.ID, backer, holdings[i])
		if err != nil {
			t.Fatalf("snapshot backer %d: %v", i, err)
		}
		wantClaim := perBacker * wantPct[i] / 100
		if record.PendingClaim != wantClaim {
			t.Fatalf("backer %d pending claim = %d, want %d", i, record.PendingClaim, wantClaim)
		}
		if record.SettleCycle != 1 {
			t.Fatalf("backer %d settle cycle = %d, want 1", i, record.SettleCycle)
		}
	}

	burned, err := env.engine.EndMilestone(adminAddr, proposal.ID)
	if err != nil {
		t.Fatalf("end milestone: %v", err)
	}
	// Reputation sums to 250 of a possible 400, so 150 units burn.
	wantBurn := uint64(150) * factor
	if burned != wantBurn {
		t.Fatalf("burned = %d, want %d", burned, wantBurn)
	}
	if env.tokens.burned != wantBurn {
		t.Fatalf("token backend burned = %d, want %d", env.tokens.burned, wantBurn)
	}

	updated, err := env.engine.Proposal(proposal.ID)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if updated.CurrentCycle != 1 || updated.MilestoneActive {
		t.Fatalf("unexpected post-cycle state: %+v", updated)
	}
	// All per-cycle counters reset so the next cycle starts clean.
	if updated.MilestoneUnitsAssigned != 0 || updated.MilestoneBackersWeighted != 0 || updated.MilestoneReputationSum != 0 {
		t.Fatalf("stale milestone counters: %+v", updated)
	}
}

func TestSnapshotBackerIdempotentPerCycle(t *testing.T) {
	env := newTestEnv(t)
	proposal, backers := launchWithBackers(t, env, 2)

	if _, err := env.engine.InitializeMilestone(adminAddr, proposal.ID); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := env.engine.SnapshotBacker(adminAddr, proposal.ID, backers[0], 0); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if _, err := env.engine.SnapshotBacker(adminAddr, proposal.ID, backers[0], 0); !errors.Is(err, ErrAmountAlreadyUpdated) {
		t.Fatalf("repeat snapshot err = %v, want ErrAmountAlreadyUpdated", err)
	}
}

func TestSnapshotBackerCoversMissedCycles(t *testing.T) {
	env := newTestEnv(t)
	proposal, backers := launchWithBackers(t, env, 2)
	params := testParams()
	factor, _ := params.DecimalsFactor()
	perBacker := params.AirdropPerMilestone / 2

	// Cycle 1: only the first backer settles before the cycle would close, so
	// settle both to let it close, but give the second a zero score.
	if _, err := env.engine.InitializeMilestone(adminAddr, proposal.ID); err != nil {
		t.Fatalf("initialize cycle 1: %v", err)
	}
	if _, err := env.engine.SnapshotBacker(adminAddr, proposal.ID, backers[0], perBacker*factor); err != nil {
		t.Fatalf("snapshot backer 0: %v", err)
	}
	if _, err := env.engine.SnapshotBacker(adminAddr, proposal.ID, backers[1], 0); err != nil {
		t.Fatalf("snapshot backer 1: %v", err)
	}
	if _, err := env.engine.EndMilestone(adminAddr, proposal.ID); err != nil {
		t.Fatalf("end cycle 1: %v", err)
	}

	// Cycle 2: the expected holdings double for a backer judged against two
	// unsettled cycles only if they skipped one. Backer 0 settled cycle 1, so
	// their expectation stays at one cycle's worth.
	if _, err := env.engine.InitializeMilestone(adminAddr, proposal.ID); err != nil {
		t.Fatalf("initialize cycle 2: %v", err)
	}
	record, err := env.engine.SnapshotBacker(adminAddr, proposal.ID, backers[0], perBacker*factor)
	if err != nil {
		t.Fatalf("snapshot cycle 2: %v", err)
	}
	if record.SettleCycle != 2 {
		t.Fatalf("settle cycle = %d, want 2", record.SettleCycle)
	}
	if record.PendingClaim != perBacker*2 {
		t.Fatalf("pending claim = %d, want %d", record.PendingClaim, perBacker*2)
	}
}

func TestEndMilestoneRequiresAllBackersSettled(t *testing.T) {
	env := newTestEnv(t)
	proposal, backers := launchWithBackers(t, env, 2)

	if _, err := env.engine.EndMilestone(adminAddr, proposal.ID); !errors.Is(err, ErrNoMilestoneActive) {
		t.Fatalf("inactive err = %v, want ErrNoMilestoneActive", err)
	}
	if _, err := env.engine.InitializeMilestone(adminAddr, proposal.ID); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := env.engine.SnapshotBacker(adminAddr, proposal.ID, backers[0], 0); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if _, err := env.engine.EndMilestone(adminAddr, proposal.ID); !errors.Is(err, ErrNotAllBackersSettled) {
		t.Fatalf("partial err = %v, want ErrNotAllBackersSettled", err)
	}
}

func TestClaimAirdropPaysAndZeroes(t *testing.T) {
	env := newTestEnv(t)
	proposal, backers := launchWithBackers(t, env, 1)
	params := testParams()
	factor, _ := params.DecimalsFactor()
	perBacker := params.AirdropPerMilestone

	if _, err := env.engine.InitializeMilestone(adminAddr, proposal.ID); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := env.engine.SnapshotBacker(adminAddr, proposal.ID, backers[0], perBacker*factor); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	amount, err := env.engine.ClaimAirdrop(backers[0], proposal.ID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if amount != perBacker*factor {
		t.Fatalf("claim amount = %d, want %d", amount, perBacker*factor)
	}
	if got := env.tokens.balance(mintAddr, backers[0]); got != amount {
		t.Fatalf("backer token balance = %d, want %d", got, amount)
	}
	if _, err := env.engine.ClaimAirdrop(backers[0], proposal.ID); !errors.Is(err, ErrNothingToClaim) {
		t.Fatalf("repeat claim err = %v, want ErrNothingToClaim", err)
	}
}
