// Package memory provides in-process pool and token backends. They give the
// daemon a deterministic environment when no external pool program is wired,
// and back the engine tests.
package memory

import (
	"errors"
	"math/big"
	"sync"

	"github.com/holiman/uint256"

	"launchpad/core/types"
	"launchpad/native/launch"
	"launchpad/native/liquidity"
)

var (
	// ErrPoolExists is returned when a pool is opened twice for one proposal.
	ErrPoolExists = errors.New("memory: pool already exists")
	// ErrPoolMissing is returned when fees are claimed on an unknown pool.
	ErrPoolMissing = errors.New("memory: pool not found")
)

type poolRecord struct {
	params       launch.PoolParams
	pendingBase  uint64
	pendingQuote uint64
}

// ValueLedger is the slice of the account store the backend needs to credit
// harvested quote value. *state.LaunchStore satisfies it.
type ValueLedger interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// PoolBackend is a deterministic in-memory launch.PoolBackend.
type PoolBackend struct {
	mu     sync.Mutex
	pools  map[launch.ProposalID]*poolRecord
	tokens *TokenBackend
	ledger ValueLedger
	vault  [20]byte
}

// NewPoolBackend returns an empty pool backend.
func NewPoolBackend() *PoolBackend {
	return &PoolBackend{pools: make(map[launch.ProposalID]*poolRecord)}
}

// BindSettlement connects the backend to the token ledger and account store so
// ClaimPositionFee can land harvested fees on the vault authority. The daemon
// binds this at startup; an unbound backend only drains its counters.
func (p *PoolBackend) BindSettlement(tokens *TokenBackend, ledger ValueLedger, vault [20]byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens = tokens
	p.ledger = ledger
	p.vault = vault
}

// CreatePool records the pool parameters for the proposal.
func (p *PoolBackend) CreatePool(params launch.PoolParams) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pools[params.Proposal]; ok {
		return ErrPoolExists
	}
	p.pools[params.Proposal] = &poolRecord{params: params}
	return nil
}

// AccrueFees queues position fees for the next ClaimPositionFee call. Tests
// use it to simulate trading activity.
func (p *PoolBackend) AccrueFees(proposal launch.ProposalID, base, quote uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	record, ok := p.pools[proposal]
	if !ok {
		return ErrPoolMissing
	}
	record.pendingBase += base
	record.pendingQuote += quote
	return nil
}

// ClaimPositionFee drains the accrued fees, credits them to the vault
// authority when a settlement binding is present, and reports the deltas.
func (p *PoolBackend) ClaimPositionFee(proposal launch.ProposalID) (uint64, uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	record, ok := p.pools[proposal]
	if !ok {
		return 0, 0, ErrPoolMissing
	}
	base, quote := record.pendingBase, record.pendingQuote
	if p.tokens != nil && base > 0 {
		if err := p.tokens.Mint(record.params.BaseMint, p.vault, base); err != nil {
			return 0, 0, err
		}
	}
	if p.ledger != nil && quote > 0 {
		if err := p.creditVault(quote); err != nil {
			return 0, 0, err
		}
	}
	record.pendingBase = 0
	record.pendingQuote = 0
	return base, quote, nil
}

func (p *PoolBackend) creditVault(amount uint64) error {
	account, err := p.ledger.GetAccount(p.vault[:])
	if err != nil {
		return err
	}
	if account == nil {
		account = &types.Account{Balance: big.NewInt(0)}
	}
	if account.Balance == nil {
		account.Balance = big.NewInt(0)
	}
	account.Balance = new(big.Int).Add(account.Balance, new(big.Int).SetUint64(amount))
	return p.ledger.PutAccount(p.vault[:], account)
}

// PoolExists reports whether a pool was created for the proposal.
func (p *PoolBackend) PoolExists(proposal launch.ProposalID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.pools[proposal]
	return ok, nil
}

// RemovePool drops the pool record. Tests use it to exercise the
// emergency-unlock path where the pool is gone.
func (p *PoolBackend) RemovePool(proposal launch.ProposalID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pools, proposal)
}

// SqrtPriceBounds returns the default program price interval.
func (p *PoolBackend) SqrtPriceBounds() (*uint256.Int, *uint256.Int) {
	return new(uint256.Int).Set(liquidity.DefaultMinSqrtPrice), new(uint256.Int).Set(liquidity.DefaultMaxSqrtPrice)
}

// Pool returns a copy of the recorded pool parameters, if any.
func (p *PoolBackend) Pool(proposal launch.ProposalID) (launch.PoolParams, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	record, ok := p.pools[proposal]
	if !ok {
		return launch.PoolParams{}, false
	}
	return record.params, true
}

var _ launch.PoolBackend = (*PoolBackend)(nil)
