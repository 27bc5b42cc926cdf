package memory

import (
	"errors"
	"sync"

	"launchpad/native/launch"
)

var (
	// ErrInsufficientBalance is returned when a burn or transfer exceeds the
	// holder's balance.
	ErrInsufficientBalance = errors.New("memory: insufficient token balance")
	// ErrSupplyOverflow is returned when a mint would overflow total supply.
	ErrSupplyOverflow = errors.New("memory: token supply overflow")
)

type holderKey struct {
	mint  [20]byte
	owner [20]byte
}

// TokenBackend is an in-memory launch.TokenBackend with a per-mint holder
// ledger and tracked total supply.
type TokenBackend struct {
	mu       sync.Mutex
	balances map[holderKey]uint64
	supply   map[[20]byte]uint64
}

// NewTokenBackend returns an empty token ledger.
func NewTokenBackend() *TokenBackend {
	return &TokenBackend{
		balances: make(map[holderKey]uint64),
		supply:   make(map[[20]byte]uint64),
	}
}

// Mint credits amount units to the holder account of to.
func (t *TokenBackend) Mint(mint [20]byte, to [20]byte, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.supply[mint]+amount < t.supply[mint] {
		return ErrSupplyOverflow
	}
	t.supply[mint] += amount
	t.balances[holderKey{mint: mint, owner: to}] += amount
	return nil
}

// Burn destroys amount units held by from.
func (t *TokenBackend) Burn(mint [20]byte, from [20]byte, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := holderKey{mint: mint, owner: from}
	if t.balances[key] < amount {
		return ErrInsufficientBalance
	}
	t.balances[key] -= amount
	t.supply[mint] -= amount
	return nil
}

// Transfer moves amount units between holder accounts.
func (t *TokenBackend) Transfer(mint [20]byte, from [20]byte, to [20]byte, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	fromKey := holderKey{mint: mint, owner: from}
	if t.balances[fromKey] < amount {
		return ErrInsufficientBalance
	}
	t.balances[fromKey] -= amount
	t.balances[holderKey{mint: mint, owner: to}] += amount
	return nil
}

// ProvisionAccount ensures a holder account exists for owner. The map-backed
// ledger treats missing accounts as zero-balance, so this only records the key.
func (t *TokenBackend) ProvisionAccount(owner [20]byte, mint [20]byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := holderKey{mint: mint, owner: owner}
	if _, ok := t.balances[key]; !ok {
		t.balances[key] = 0
	}
	return nil
}

// Balance reports the holder balance for owner on mint.
func (t *TokenBackend) Balance(mint [20]byte, owner [20]byte) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[holderKey{mint: mint, owner: owner}]
}

// Supply reports the outstanding supply of mint.
func (t *TokenBackend) Supply(mint [20]byte) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.supply[mint]
}

var _ launch.TokenBackend = (*TokenBackend)(nil)
