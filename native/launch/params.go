package launch

import "fmt"

// BpsDenominator is the fixed basis-point denominator used across fee and
// reputation calculations.
const BpsDenominator = 10_000

// Params is the global tunable configuration read by every operation. Engines
// receive an immutable snapshot per invocation; only SetParams mutates the
// persisted singleton.
type Params struct {
	AmountPerBacker      uint64 `json:"amountPerBacker"`
	ProtocolFee          uint64 `json:"protocolFee"`
	TotalMint            uint64 `json:"totalMint"`
	TotalPoolTokens      uint64 `json:"totalPoolTokens"`
	MakerTokenAmount     uint64 `json:"makerTokenAmount"`
	AirdropPerMilestone  uint64 `json:"airdropPerMilestone"`
	MinBackers           uint64 `json:"minBackers"`
	MaxBackers           uint64 `json:"maxBackers"`
	MaxBackedProposals   uint64 `json:"maxBackedProposals"`
	RefundFeeBps         uint16 `json:"refundFeeBps"`
	PoolBaseFeeNumerator uint64 `json:"poolBaseFeeNumerator"`
	TokenDecimals        uint8  `json:"tokenDecimals"`
	BackingPeriodSecs    int64  `json:"backingPeriodSecs"`
	UnlockDelaySecs      int64  `json:"unlockDelaySecs"`
}

// DefaultParams mirrors the protocol genesis configuration.
func DefaultParams() Params {
	return Params{
		AmountPerBacker:      998_997_760,
		ProtocolFee:          2_000_000,
		TotalMint:            1_000_000_000,
		TotalPoolTokens:      150_000_000,
		MakerTokenAmount:     10_000_000,
		AirdropPerMilestone:  140_000_000,
		MinBackers:           1,
		MaxBackers:           1000,
		MaxBackedProposals:   10,
		RefundFeeBps:         100,
		PoolBaseFeeNumerator: 2_500_000,
		TokenDecimals:        9,
		BackingPeriodSecs:    86_400,
		UnlockDelaySecs:      86_400,
	}
}

// Validate rejects configurations that would wedge the state machine.
func (p Params) Validate() error {
	if p.AmountPerBacker == 0 {
		return fmt.Errorf("%w: zero contribution amount", ErrParamsNotSet)
	}
	if p.ProtocolFee >= p.AmountPerBacker {
		return fmt.Errorf("%w: protocol fee swallows contribution", ErrParamsNotSet)
	}
	if p.MinBackers == 0 || p.MinBackers > p.MaxBackers {
		return fmt.Errorf("%w: invalid backer bounds", ErrParamsNotSet)
	}
	if p.TotalPoolTokens+p.MakerTokenAmount+p.AirdropPerMilestone > p.TotalMint {
		return fmt.Errorf("%w: supply split exceeds total mint", ErrParamsNotSet)
	}
	if p.RefundFeeBps > BpsDenominator {
		return fmt.Errorf("%w: refund fee above 100%%", ErrParamsNotSet)
	}
	if p.TokenDecimals > 18 {
		return fmt.Errorf("%w: unsupported token decimals", ErrParamsNotSet)
	}
	if p.BackingPeriodSecs <= 0 || p.UnlockDelaySecs <= 0 {
		return fmt.Errorf("%w: non-positive time window", ErrParamsNotSet)
	}
	return nil
}

// DepositAmount is the per-backer contribution net of the protocol fee.
func (p Params) DepositAmount() (uint64, error) {
	if p.ProtocolFee > p.AmountPerBacker {
		return 0, ErrNumericalOverflow
	}
	return p.AmountPerBacker - p.ProtocolFee, nil
}

// DecimalsFactor returns 10^TokenDecimals with overflow checking.
func (p Params) DecimalsFactor() (uint64, error) {
	factor := uint64(1)
	for i := uint8(0); i < p.TokenDecimals; i++ {
		next := factor * 10
		if next/10 != factor {
			return 0, ErrNumericalOverflow
		}
		factor = next
	}
	return factor, nil
}
