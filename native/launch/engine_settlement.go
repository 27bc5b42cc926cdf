package launch

import (
	"launchpad/native/liquidity"
)

// refundSplit derives the fee-adjusted refund for a deposit. The two parts
// must reconcile back to the deposit within one unit of rounding error.
func refundSplit(deposited uint64, feeBps uint16) (RefundBreakdown, error) {
	numerator, err := checkedMul(deposited, BpsDenominator)
	if err != nil {
		return RefundBreakdown{}, err
	}
	refund := numerator / (BpsDenominator + uint64(feeBps))
	feeProduct, err := checkedMul(refund, uint64(feeBps))
	if err != nil {
		return RefundBreakdown{}, err
	}
	fee := feeProduct / BpsDenominator
	total, err := checkedAdd(refund, fee)
	if err != nil {
		return RefundBreakdown{}, err
	}
	var diff uint64
	if total > deposited {
		diff = total - deposited
	} else {
		diff = deposited - total
	}
	if diff > 1 {
		return RefundBreakdown{}, ErrRefundMismatch
	}
	return RefundBreakdown{Refund: refund, Fee: fee}, nil
}

// Refund returns a rejected proposal's deposit to the backer net of the
// refund fee, releases the backer's quota slot and reclaims the record.
func (e *Engine) Refund(backer [20]byte, id ProposalID) (*RefundBreakdown, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	params, err := e.params()
	if err != nil {
		return nil, err
	}
	proposal, err := e.proposal(id)
	if err != nil {
		return nil, err
	}
	if !proposal.IsRejected {
		return nil, ErrProposalNotRejected
	}
	record, ok, err := e.state.BackerGet(id, backer)
	if err != nil {
		return nil, err
	}
	if !ok || record == nil {
		return nil, ErrBackerNotFound
	}

	breakdown, err := refundSplit(record.DepositAmount, params.RefundFeeBps)
	if err != nil {
		return nil, err
	}
	if err := e.moveValue(e.vaultAuthority, backer, breakdown.Refund); err != nil {
		return nil, err
	}
	if err := e.moveValue(e.vaultAuthority, e.treasury, breakdown.Fee); err != nil {
		return nil, err
	}

	proposal.TotalBacking, err = checkedSub(proposal.TotalBacking, record.DepositAmount)
	if err != nil {
		return nil, err
	}
	proposal.TotalBackers, err = checkedSub(proposal.TotalBackers, 1)
	if err != nil {
		return nil, err
	}
	if err := e.state.ProposalPut(proposal); err != nil {
		return nil, err
	}

	quota, ok, err := e.state.QuotaGet(backer)
	if err != nil {
		return nil, err
	}
	if ok && quota != nil && quota.ActiveCount > 0 {
		quota.ActiveCount--
		if err := e.state.QuotaPut(quota); err != nil {
			return nil, err
		}
	}
	if err := e.state.BackerDelete(id, backer); err != nil {
		return nil, err
	}
	e.emit(BackerRefundedEvent(id.Hex(), hexAddr(backer), breakdown.Refund, breakdown.Fee))
	return &breakdown, nil
}

// ClaimPositionFee realises accrued pool position fees and splits each asset
// evenly between the protocol treasury and the proposal maker. The wrapped
// native unwrap happens inside the pool adapter; the engine only sees settled
// amounts.
func (e *Engine) ClaimPositionFee(caller [20]byte, id ProposalID) (*FeeSettlement, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if e.pool == nil || e.tokens == nil {
		return nil, ErrPoolNotConfigured
	}
	proposal, err := e.proposal(id)
	if err != nil {
		return nil, err
	}
	if caller != proposal.Maker && caller != e.admin {
		return nil, ErrUnauthorized
	}
	if !proposal.IsPoolLaunched {
		return nil, ErrPoolNotLaunched
	}

	baseFees, quoteFees, err := e.pool.ClaimPositionFee(id)
	if err != nil {
		return nil, err
	}
	settlement := &FeeSettlement{}
	if baseFees == 0 && quoteFees == 0 {
		return settlement, nil
	}

	settlement.BaseTreasury, settlement.BaseMaker = liquidity.SplitEven(baseFees)
	settlement.QuoteTreasury, settlement.QuoteMaker = liquidity.SplitEven(quoteFees)

	if settlement.BaseTreasury > 0 {
		if err := e.tokens.Transfer(proposal.TokenMint, e.vaultAuthority, e.treasury, settlement.BaseTreasury); err != nil {
			return nil, err
		}
	}
	if settlement.BaseMaker > 0 {
		if err := e.tokens.Transfer(proposal.TokenMint, e.vaultAuthority, proposal.Maker, settlement.BaseMaker); err != nil {
			return nil, err
		}
	}
	if settlement.QuoteTreasury > 0 {
		if err := e.moveValue(e.vaultAuthority, e.treasury, settlement.QuoteTreasury); err != nil {
			return nil, err
		}
	}
	if settlement.QuoteMaker > 0 {
		if err := e.moveValue(e.vaultAuthority, proposal.Maker, settlement.QuoteMaker); err != nil {
			return nil, err
		}
	}
	e.emit(FeesCollectedEvent(id.Hex(), hexAddr(proposal.Maker), baseFees, quoteFees))
	return settlement, nil
}
