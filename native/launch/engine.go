package launch

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"launchpad/core/events"
	"launchpad/core/types"
	"launchpad/native/common"
	"launchpad/native/liquidity"
)

type engineState interface {
	ParamsGet() (*Params, bool, error)
	ParamsPut(params *Params) error
	ProposalGet(id ProposalID) (*Proposal, bool, error)
	ProposalPut(proposal *Proposal) error
	MakerGet(maker [20]byte) (*MakerRecord, bool, error)
	MakerPut(record *MakerRecord) error
	BackerGet(id ProposalID, backer [20]byte) (*BackerRecord, bool, error)
	BackerPut(record *BackerRecord) error
	BackerDelete(id ProposalID, backer [20]byte) error
	QuotaGet(backer [20]byte) (*BackerQuota, bool, error)
	QuotaPut(quota *BackerQuota) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Engine wires the proposal state machine, backer ledger and settlement logic
// with persistence, external capabilities and event emission.
type Engine struct {
	state          engineState
	emitter        events.Emitter
	pool           PoolBackend
	tokens         TokenBackend
	nowFn          func() int64
	admin          [20]byte
	treasury       [20]byte
	vaultAuthority [20]byte
}

// NewEngine constructs a launch engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPoolBackend configures the external pool capability.
func (e *Engine) SetPoolBackend(pool PoolBackend) { e.pool = pool }

// SetTokenBackend configures the external token capability.
func (e *Engine) SetTokenBackend(tokens TokenBackend) { e.tokens = tokens }

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetAdmin configures the authority allowed to drive admin transitions.
func (e *Engine) SetAdmin(addr [20]byte) { e.admin = addr }

// SetTreasury configures the protocol fee treasury.
func (e *Engine) SetTreasury(addr [20]byte) { e.treasury = addr }

// SetVaultAuthority configures the protocol-controlled vault that holds raised
// funds and reserved token supply.
func (e *Engine) SetVaultAuthority(addr [20]byte) { e.vaultAuthority = addr }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) params() (Params, error) {
	if e == nil || e.state == nil {
		return Params{}, ErrNilState
	}
	params, ok, err := e.state.ParamsGet()
	if err != nil {
		return Params{}, err
	}
	if !ok || params == nil {
		return Params{}, ErrParamsNotSet
	}
	return *params, nil
}

func (e *Engine) proposal(id ProposalID) (*Proposal, error) {
	proposal, ok, err := e.state.ProposalGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || proposal == nil {
		return nil, ErrProposalNotFound
	}
	return proposal, nil
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

// moveValue shifts settlement-asset units between state accounts and fails
// before any mutation when the source cannot cover the amount.
func (e *Engine) moveValue(from, to [20]byte, amount uint64) error {
	if amount == 0 {
		return nil
	}
	value := new(big.Int).SetUint64(amount)
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	if fromAcc.Balance.Cmp(value) < 0 {
		return ErrInsufficientFunds
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	toAcc = ensureAccount(toAcc)
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, value)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, value)
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrNumericalOverflow
	}
	return sum, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrNumericalOverflow
	}
	return a - b, nil
}

func checkedMul(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	product := a * b
	if product/a != b {
		return 0, ErrNumericalOverflow
	}
	return product, nil
}

// CreateProposal registers a new campaign for the maker, mints the full token
// supply into the protocol vault and starts the backing window.
func (e *Engine) CreateProposal(maker [20]byte, tokenMint [20]byte, name, symbol, uri string) (*Proposal, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if e.tokens == nil {
		return nil, ErrPoolNotConfigured
	}
	params, err := e.params()
	if err != nil {
		return nil, err
	}
	if len(name) > maxTokenNameLen || len(symbol) > maxTokenSymbolLen || len(uri) > maxTokenURILen {
		return nil, ErrMetadataTooLong
	}
	record, ok, err := e.state.MakerGet(maker)
	if err != nil {
		return nil, err
	}
	if !ok || record == nil {
		record = &MakerRecord{Maker: maker}
	}
	id := NewProposalID(maker, record.ProposalCount)
	if existing, ok, err := e.state.ProposalGet(id); err != nil {
		return nil, err
	} else if ok && existing != nil {
		return nil, ErrProposalExists
	}

	factor, err := params.DecimalsFactor()
	if err != nil {
		return nil, err
	}
	supply, err := checkedMul(params.TotalMint, factor)
	if err != nil {
		return nil, err
	}
	if err := e.tokens.ProvisionAccount(e.vaultAuthority, tokenMint); err != nil {
		return nil, err
	}
	if err := e.tokens.Mint(tokenMint, e.vaultAuthority, supply); err != nil {
		return nil, err
	}

	proposal := &Proposal{
		ID:          id,
		Maker:       maker,
		Sequence:    record.ProposalCount,
		TokenMint:   tokenMint,
		TimeStarted: e.now(),
		TokenName:   name,
		TokenSymbol: symbol,
		TokenURI:    uri,
	}
	if err := e.state.ProposalPut(proposal); err != nil {
		return nil, err
	}
	record.ProposalCount, err = checkedAdd(record.ProposalCount, 1)
	if err != nil {
		return nil, err
	}
	if err := e.state.MakerPut(record); err != nil {
		return nil, err
	}
	e.emit(ProposalCreatedEvent(proposal.ID.Hex(), hexAddr(maker), proposal.Sequence, name, symbol))
	return proposal.Clone(), nil
}

// Contribute backs a proposal with the fixed per-backer contribution. The
// deposit net of the protocol fee moves into the vault, the fee into the
// treasury, and the backer's cross-proposal quota is charged transactionally.
func (e *Engine) Contribute(backer [20]byte, id ProposalID) (*BackerRecord, error) {
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
	if backer == proposal.Maker {
		return nil, ErrCannotBackOwn
	}
	if elapsed := e.now() - proposal.TimeStarted; elapsed >= params.BackingPeriodSecs {
		return nil, ErrBackingEnded
	}
	if proposal.IsRejected {
		return nil, ErrProposalRejected
	}
	if proposal.IsPoolLaunched {
		return nil, ErrPoolAlreadyLaunched
	}
	if proposal.TotalBackers >= params.MaxBackers {
		return nil, ErrBackingGoalReached
	}
	if existing, ok, err := e.state.BackerGet(id, backer); err != nil {
		return nil, err
	} else if ok && existing != nil {
		return nil, ErrAlreadyBacked
	}

	quota, ok, err := e.state.QuotaGet(backer)
	if err != nil {
		return nil, err
	}
	if !ok || quota == nil {
		quota = &BackerQuota{Backer: backer}
	}
	next, err := common.CheckIncrement(
		common.Quota{MaxActive: params.MaxBackedProposals},
		common.QuotaNow{ActiveCount: quota.ActiveCount},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %d active", ErrMaxBackedProposals, quota.ActiveCount)
	}

	deposit, err := params.DepositAmount()
	if err != nil {
		return nil, err
	}
	// Both transfer legs must be covered before either runs, otherwise a
	// failed fee leg would strand the deposit in the vault.
	total, err := checkedAdd(deposit, params.ProtocolFee)
	if err != nil {
		return nil, err
	}
	account, err := e.state.GetAccount(backer[:])
	if err != nil {
		return nil, err
	}
	account = ensureAccount(account)
	if account.Balance.Cmp(new(big.Int).SetUint64(total)) < 0 {
		return nil, ErrInsufficientFunds
	}
	if err := e.moveValue(backer, e.vaultAuthority, deposit); err != nil {
		return nil, err
	}
	if err := e.moveValue(backer, e.treasury, params.ProtocolFee); err != nil {
		return nil, err
	}

	record := &BackerRecord{
		Proposal:      id,
		Backer:        backer,
		DepositAmount: deposit,
		CreatedAt:     e.now(),
	}
	if err := e.state.BackerPut(record); err != nil {
		return nil, err
	}
	proposal.TotalBacking, err = checkedAdd(proposal.TotalBacking, deposit)
	if err != nil {
		return nil, err
	}
	proposal.TotalBackers, err = checkedAdd(proposal.TotalBackers, 1)
	if err != nil {
		return nil, err
	}
	if err := e.state.ProposalPut(proposal); err != nil {
		return nil, err
	}
	quota.ActiveCount = next.ActiveCount
	if err := e.state.QuotaPut(quota); err != nil {
		return nil, err
	}
	e.emit(ProposalBackedEvent(id.Hex(), hexAddr(backer), deposit, proposal.TotalBackers))
	return record.Clone(), nil
}

// RejectProposal marks an unlaunched proposal rejected. Rejection is terminal
// and idempotent-guarded.
func (e *Engine) RejectProposal(authority [20]byte, id ProposalID) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if authority != e.admin {
		return ErrUnauthorized
	}
	proposal, err := e.proposal(id)
	if err != nil {
		return err
	}
	if proposal.IsPoolLaunched {
		return ErrPoolAlreadyLaunched
	}
	if proposal.IsRejected {
		return ErrAlreadyRejected
	}
	proposal.IsRejected = true
	if err := e.state.ProposalPut(proposal); err != nil {
		return err
	}
	e.emit(ProposalRejectedEvent(id.Hex(), hexAddr(proposal.Maker)))
	return nil
}

// LaunchPool converts the raised capital and the reserved token allocation
// into a live constant-product pool. A launch attempt after the backing
// window with too few backers rejects the proposal instead.
func (e *Engine) LaunchPool(caller [20]byte, id ProposalID) (*Proposal, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if e.pool == nil || e.tokens == nil {
		return nil, ErrPoolNotConfigured
	}
	params, err := e.params()
	if err != nil {
		return nil, err
	}
	proposal, err := e.proposal(id)
	if err != nil {
		return nil, err
	}
	if caller != proposal.Maker && caller != e.admin {
		return nil, ErrUnauthorized
	}

	if elapsed := e.now() - proposal.TimeStarted; elapsed >= params.BackingPeriodSecs &&
		proposal.TotalBackers < params.MinBackers && !proposal.IsRejected {
		proposal.IsRejected = true
		if err := e.state.ProposalPut(proposal); err != nil {
			return nil, err
		}
		e.emit(ProposalRejectedEvent(id.Hex(), hexAddr(proposal.Maker)))
	}
	if proposal.IsRejected {
		return nil, ErrProposalRejected
	}
	if proposal.IsPoolLaunched {
		return nil, ErrPoolAlreadyLaunched
	}
	if proposal.TotalBackers < params.MinBackers {
		return nil, ErrTargetNotMet
	}

	factor, err := params.DecimalsFactor()
	if err != nil {
		return nil, err
	}
	baseAmount, err := checkedMul(params.TotalPoolTokens, factor)
	if err != nil {
		return nil, err
	}
	quoteAmount := proposal.TotalBacking

	minPrice, maxPrice := e.pool.SqrtPriceBounds()
	sqrtPrice, err := liquidity.DeriveSqrtPrice(baseAmount, quoteAmount, minPrice, maxPrice)
	if err != nil {
		return nil, err
	}
	poolLiquidity, err := liquidity.GetLiquidity(baseAmount, quoteAmount, sqrtPrice, minPrice, maxPrice)
	if err != nil {
		return nil, err
	}

	makerAllocation, err := checkedMul(params.MakerTokenAmount, factor)
	if err != nil {
		return nil, err
	}
	if err := e.tokens.ProvisionAccount(proposal.Maker, proposal.TokenMint); err != nil {
		return nil, err
	}
	if err := e.tokens.Transfer(proposal.TokenMint, e.vaultAuthority, proposal.Maker, makerAllocation); err != nil {
		return nil, err
	}

	if err := e.pool.CreatePool(PoolParams{
		Proposal:         id,
		BaseMint:         proposal.TokenMint,
		BaseAmount:       baseAmount,
		QuoteAmount:      quoteAmount,
		SqrtPrice:        sqrtPrice,
		SqrtMinPrice:     minPrice,
		SqrtMaxPrice:     maxPrice,
		Liquidity:        poolLiquidity,
		BaseFeeNumerator: params.PoolBaseFeeNumerator,
	}); err != nil {
		return nil, err
	}
	// The raised quote amount now backs the pool position.
	vaultAcc, err := e.state.GetAccount(e.vaultAuthority[:])
	if err != nil {
		return nil, err
	}
	vaultAcc = ensureAccount(vaultAcc)
	value := new(big.Int).SetUint64(quoteAmount)
	if vaultAcc.Balance.Cmp(value) < 0 {
		return nil, ErrInsufficientFunds
	}
	vaultAcc.Balance = new(big.Int).Sub(vaultAcc.Balance, value)
	if err := e.state.PutAccount(e.vaultAuthority[:], vaultAcc); err != nil {
		return nil, err
	}

	proposal.IsPoolLaunched = true
	proposal.LaunchTimestamp = e.now()
	if err := e.state.ProposalPut(proposal); err != nil {
		return nil, err
	}
	e.emit(CoinLaunchedEvent(id.Hex(), hexAddr(proposal.Maker), quoteAmount, sqrtPrice.String(), poolLiquidity.String()))
	return proposal.Clone(), nil
}

// EmergencyUnlock returns a stuck launched proposal to a pre-launch state so
// the launch can be retried. It requires both that the pool verifier reports
// no live pool and that the configured delay has elapsed since launch.
func (e *Engine) EmergencyUnlock(authority [20]byte, id ProposalID) (*Proposal, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if e.pool == nil {
		return nil, ErrPoolNotConfigured
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
	if proposal.EmergencyUnlocked {
		return nil, ErrAlreadyUnlocked
	}
	exists, err := e.pool.PoolExists(id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrPoolStillExists
	}
	if proposal.LaunchTimestamp == 0 || e.now()-proposal.LaunchTimestamp < params.UnlockDelaySecs {
		return nil, ErrUnlockTooSoon
	}
	proposal.IsPoolLaunched = false
	proposal.LaunchTimestamp = 0
	proposal.MilestoneActive = false
	proposal.EmergencyUnlocked = true
	if err := e.state.ProposalPut(proposal); err != nil {
		return nil, err
	}
	e.emit(PoolUnlockedEvent(id.Hex(), hexAddr(proposal.Maker)))
	return proposal.Clone(), nil
}

// DecrementBackerCount releases one slot of the backer's cross-proposal quota
// once the proposal has resolved (launched or rejected).
func (e *Engine) DecrementBackerCount(backer [20]byte, id ProposalID) (*BackerQuota, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	proposal, err := e.proposal(id)
	if err != nil {
		return nil, err
	}
	if !proposal.IsPoolLaunched && !proposal.IsRejected {
		return nil, ErrProposalUnresolved
	}
	if _, ok, err := e.state.BackerGet(id, backer); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrBackerNotFound
	}
	quota, ok, err := e.state.QuotaGet(backer)
	if err != nil {
		return nil, err
	}
	if !ok || quota == nil {
		quota = &BackerQuota{Backer: backer}
	}
	if quota.ActiveCount > 0 {
		next, err := common.Decrement(common.QuotaNow{ActiveCount: quota.ActiveCount})
		if err != nil {
			return nil, err
		}
		quota.ActiveCount = next.ActiveCount
		if err := e.state.QuotaPut(quota); err != nil {
			return nil, err
		}
	}
	clone := *quota
	return &clone, nil
}

// SetParams replaces the global configuration. Only the admin may call it.
func (e *Engine) SetParams(authority [20]byte, params Params) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if authority != e.admin {
		return ErrUnauthorized
	}
	if err := params.Validate(); err != nil {
		return err
	}
	if err := e.state.ParamsPut(&params); err != nil {
		return err
	}
	e.emit(ParamsUpdatedEvent(hexAddr(authority)))
	return nil
}

// Proposal returns a read-only copy of the proposal.
func (e *Engine) Proposal(id ProposalID) (*Proposal, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	proposal, err := e.proposal(id)
	if err != nil {
		return nil, err
	}
	return proposal.Clone(), nil
}

// Backer returns a read-only copy of the backer record.
func (e *Engine) Backer(id ProposalID, backer [20]byte) (*BackerRecord, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	record, ok, err := e.state.BackerGet(id, backer)
	if err != nil {
		return nil, err
	}
	if !ok || record == nil {
		return nil, ErrBackerNotFound
	}
	return record.Clone(), nil
}
