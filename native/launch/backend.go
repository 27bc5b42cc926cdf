package launch

import "github.com/holiman/uint256"

// PoolParams carries everything the external constant-product pool program
// needs to open a pool for a launched proposal.
type PoolParams struct {
	Proposal         ProposalID
	BaseMint         [20]byte
	BaseAmount       uint64
	QuoteAmount      uint64
	SqrtPrice        *uint256.Int
	SqrtMinPrice     *uint256.Int
	SqrtMaxPrice     *uint256.Int
	Liquidity        *uint256.Int
	BaseFeeNumerator uint64
}

// PoolBackend abstracts the external pool program. Failures propagate
// unchanged and abort the triggering transition.
type PoolBackend interface {
	// CreatePool opens the pool at the supplied price and liquidity.
	CreatePool(params PoolParams) error
	// ClaimPositionFee realises accrued position fees into the vault authority
	// and reports the claimed delta for the base and quote assets. Wrapped
	// native value is unwrapped inside the adapter before it reports.
	ClaimPositionFee(proposal ProposalID) (baseFees uint64, quoteFees uint64, err error)
	// PoolExists reports whether a valid pool is live for the proposal.
	PoolExists(proposal ProposalID) (bool, error)
	// SqrtPriceBounds returns the program's allowed sqrt price interval.
	SqrtPriceBounds() (min, max *uint256.Int)
}

// TokenBackend abstracts token supply operations on the launched mint.
type TokenBackend interface {
	// Mint creates amount token units at the holder account of to.
	Mint(mint [20]byte, to [20]byte, amount uint64) error
	// Burn destroys amount token units held by from.
	Burn(mint [20]byte, from [20]byte, amount uint64) error
	// Transfer moves token units between holder accounts.
	Transfer(mint [20]byte, from [20]byte, to [20]byte, amount uint64) error
	// ProvisionAccount ensures a holder account exists for owner.
	ProvisionAccount(owner [20]byte, mint [20]byte) error
}
