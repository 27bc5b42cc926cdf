package launch

import "math/big"

// TierPercent maps a basis-point ratio of actual to expected holdings onto
// the discrete reward percentage. The mapping is monotone in bp.
func TierPercent(bp uint64) uint64 {
	switch {
	case bp >= 10_000:
		return 100
	case bp >= 7_000:
		return 75
	case bp >= 5_000:
		return 50
	case bp >= 2_500:
		return 25
	default:
		return 0
	}
}

// InitializeMilestone opens a new allocation cycle. The previous cycle must
// have been closed and the per-cycle counters start from zero.
func (e *Engine) InitializeMilestone(authority [20]byte, id ProposalID) (*Proposal, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if authority != e.admin {
		return nil, ErrUnauthorized
	}
	proposal, err := e.proposal(id)
	if err != nil {
		return nil, err
	}
	if proposal.IsRejected {
		return nil, ErrProposalRejected
	}
	if !proposal.IsPoolLaunched {
		return nil, ErrPoolNotLaunched
	}
	if proposal.MilestoneActive {
		return nil, ErrMilestoneActive
	}
	proposal.MilestoneActive = true
	proposal.MilestoneUnitsAssigned = 0
	proposal.MilestoneBackersWeighted = 0
	proposal.MilestoneReputationSum = 0
	if err := e.state.ProposalPut(proposal); err != nil {
		return nil, err
	}
	e.emit(MilestoneStartedEvent(id.Hex(), proposal.activeCycle()))
	return proposal.Clone(), nil
}

// SnapshotBacker settles one backer for the active cycle. holdings is the
// backer's current qualifying token balance in base units. Settlement is
// idempotent per backer per cycle and order-independent across backers.
func (e *Engine) SnapshotBacker(authority [20]byte, id ProposalID, backer [20]byte, holdings uint64) (*BackerRecord, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if authority != e.admin {
		return nil, ErrUnauthorized
	}
	params, err := e.params()
	if err != nil {
		return nil, err
	}
	proposal, err := e.proposal(id)
	if err != nil {
		return nil, err
	}
	if !proposal.IsPoolLaunched {
		return nil, ErrPoolNotLaunched
	}
	if !proposal.MilestoneActive {
		return nil, ErrNoMilestoneActive
	}
	record, ok, err := e.state.BackerGet(id, backer)
	if err != nil {
		return nil, err
	}
	if !ok || record == nil {
		return nil, ErrBackerNotFound
	}
	cycle := proposal.activeCycle()
	if record.SettleCycle >= cycle {
		return nil, ErrAmountAlreadyUpdated
	}
	if proposal.TotalBackers == 0 {
		return nil, ErrNumericalOverflow
	}

	perBacker := params.AirdropPerMilestone / proposal.TotalBackers
	unsettled := cycle - record.SettleCycle
	factor, err := params.DecimalsFactor()
	if err != nil {
		return nil, err
	}
	expectedUnits, err := checkedMul(perBacker, unsettled)
	if err != nil {
		return nil, err
	}
	expectedBase, err := checkedMul(expectedUnits, factor)
	if err != nil {
		return nil, err
	}

	var pct uint64
	if expectedBase > 0 {
		// holdings × 10000 can exceed 64 bits; the ratio itself cannot once
		// capped at the top tier.
		ratio := new(big.Int).Mul(new(big.Int).SetUint64(holdings), big.NewInt(BpsDenominator))
		ratio.Quo(ratio, new(big.Int).SetUint64(expectedBase))
		bp := uint64(BpsDenominator)
		if ratio.IsUint64() && ratio.Uint64() < BpsDenominator {
			bp = ratio.Uint64()
		}
		pct = TierPercent(bp)
	}

	allocUnits, err := checkedMul(perBacker, pct)
	if err != nil {
		return nil, err
	}
	allocUnits /= 100

	if allocUnits > 0 {
		record.PendingClaim, err = checkedAdd(record.PendingClaim, allocUnits)
		if err != nil {
			return nil, err
		}
		proposal.MilestoneUnitsAssigned, err = checkedAdd(proposal.MilestoneUnitsAssigned, allocUnits)
		if err != nil {
			return nil, err
		}
	}
	record.SettleCycle = cycle
	record.UpdatedCycle = cycle
	record.InitialAirdropGranted = true
	proposal.MilestoneBackersWeighted, err = checkedAdd(proposal.MilestoneBackersWeighted, 1)
	if err != nil {
		return nil, err
	}
	if proposal.MilestoneBackersWeighted > proposal.TotalBackers {
		return nil, ErrAmountAlreadyUpdated
	}
	proposal.MilestoneReputationSum, err = checkedAdd(proposal.MilestoneReputationSum, pct)
	if err != nil {
		return nil, err
	}
	if err := e.state.BackerPut(record); err != nil {
		return nil, err
	}
	if err := e.state.ProposalPut(proposal); err != nil {
		return nil, err
	}
	e.emit(BackerSettledEvent(id.Hex(), hexAddr(backer), cycle, allocUnits, pct))
	return record.Clone(), nil
}

// EndMilestone closes the active cycle once every backer has been settled and
// burns the shortfall that reputation scoring withheld. The burn happens
// exactly once per cycle; the cycle counter then advances.
func (e *Engine) EndMilestone(authority [20]byte, id ProposalID) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	if e.tokens == nil {
		return 0, ErrPoolNotConfigured
	}
	if authority != e.admin {
		return 0, ErrUnauthorized
	}
	params, err := e.params()
	if err != nil {
		return 0, err
	}
	proposal, err := e.proposal(id)
	if err != nil {
		return 0, err
	}
	if !proposal.IsPoolLaunched {
		return 0, ErrPoolNotLaunched
	}
	if proposal.IsRejected {
		return 0, ErrProposalRejected
	}
	if !proposal.MilestoneActive {
		return 0, ErrNoMilestoneActive
	}
	if proposal.MilestoneBackersWeighted != proposal.TotalBackers {
		return 0, ErrNotAllBackersSettled
	}

	factor, err := params.DecimalsFactor()
	if err != nil {
		return 0, err
	}
	maxReputation, err := checkedMul(proposal.MilestoneBackersWeighted, 100)
	if err != nil {
		return 0, err
	}
	// A negative shortfall is meaningless; the subtraction saturates.
	var shortfallUnits uint64
	if maxReputation > proposal.MilestoneReputationSum {
		shortfallUnits = maxReputation - proposal.MilestoneReputationSum
	}
	burnAmount, err := checkedMul(shortfallUnits, factor)
	if err != nil {
		return 0, err
	}
	if burnAmount > 0 {
		if err := e.tokens.Burn(proposal.TokenMint, e.vaultAuthority, burnAmount); err != nil {
			return 0, err
		}
	}

	proposal.MilestoneActive = false
	proposal.MilestoneUnitsAssigned = 0
	proposal.MilestoneBackersWeighted = 0
	proposal.MilestoneReputationSum = 0
	proposal.CurrentCycle, err = checkedAdd(proposal.CurrentCycle, 1)
	if err != nil {
		return 0, err
	}
	if err := e.state.ProposalPut(proposal); err != nil {
		return 0, err
	}
	e.emit(MilestoneEndedEvent(id.Hex(), proposal.CurrentCycle, burnAmount))
	return burnAmount, nil
}

// ClaimAirdrop pays out the backer's pending allocation from the token vault,
// scaled to token-decimal precision.
func (e *Engine) ClaimAirdrop(backer [20]byte, id ProposalID) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	if e.tokens == nil {
		return 0, ErrPoolNotConfigured
	}
	params, err := e.params()
	if err != nil {
		return 0, err
	}
	proposal, err := e.proposal(id)
	if err != nil {
		return 0, err
	}
	if !proposal.IsPoolLaunched {
		return 0, ErrPoolNotLaunched
	}
	record, ok, err := e.state.BackerGet(id, backer)
	if err != nil {
		return 0, err
	}
	if !ok || record == nil {
		return 0, ErrBackerNotFound
	}
	if record.PendingClaim == 0 {
		return 0, ErrNothingToClaim
	}
	factor, err := params.DecimalsFactor()
	if err != nil {
		return 0, err
	}
	amount, err := checkedMul(record.PendingClaim, factor)
	if err != nil {
		return 0, err
	}
	if err := e.tokens.ProvisionAccount(backer, proposal.TokenMint); err != nil {
		return 0, err
	}
	if err := e.tokens.Transfer(proposal.TokenMint, e.vaultAuthority, backer, amount); err != nil {
		return 0, err
	}
	record.PendingClaim = 0
	if err := e.state.BackerPut(record); err != nil {
		return 0, err
	}
	e.emit(AirdropClaimedEvent(id.Hex(), hexAddr(backer), amount))
	return amount, nil
}
