package state

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"launchpad/core/types"
	"launchpad/native/launch"
	"launchpad/storage"
)

// LaunchStore persists launchpad entities in a key-value database using RLP
// encoding. It implements the launch engine's state interface.
type LaunchStore struct {
	db storage.Database
}

// NewLaunchStore wraps the supplied database.
func NewLaunchStore(db storage.Database) *LaunchStore {
	return &LaunchStore{db: db}
}

// RLP has no signed integer support, so persisted records carry timestamps as
// uint64 and convert at the boundary.
type storedProposal struct {
	ID                [32]byte
	Maker             [20]byte
	Sequence          uint64
	TokenMint         [20]byte
	TimeStarted       uint64
	IsRejected        bool
	IsPoolLaunched    bool
	LaunchTimestamp   uint64
	EmergencyUnlocked bool

	TotalBackers uint64
	TotalBacking uint64

	CurrentCycle             uint64
	MilestoneActive          bool
	MilestoneUnitsAssigned   uint64
	MilestoneBackersWeighted uint64
	MilestoneReputationSum   uint64

	TokenName   string
	TokenSymbol string
	TokenURI    string
}

type storedBacker struct {
	Proposal              [32]byte
	Backer                [20]byte
	DepositAmount         uint64
	PendingClaim          uint64
	SettleCycle           uint64
	UpdatedCycle          uint64
	InitialAirdropGranted bool
	CreatedAt             uint64
}

type storedAccount struct {
	Nonce   uint64
	Balance *big.Int
}

func (s *LaunchStore) get(key []byte, out interface{}) (bool, error) {
	raw, err := s.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *LaunchStore) put(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return s.db.Put(key, encoded)
}

// ParamsGet loads the configuration singleton.
func (s *LaunchStore) ParamsGet() (*launch.Params, bool, error) {
	stored := new(storedParams)
	ok, err := s.get([]byte(paramsKey), stored)
	if !ok || err != nil {
		return nil, false, err
	}
	params := stored.toParams()
	return &params, true, nil
}

// ParamsPut replaces the configuration singleton.
func (s *LaunchStore) ParamsPut(params *launch.Params) error {
	if params == nil {
		return errors.New("state: nil params")
	}
	return s.put([]byte(paramsKey), newStoredParams(*params))
}

// ProposalGet loads a proposal by id.
func (s *LaunchStore) ProposalGet(id launch.ProposalID) (*launch.Proposal, bool, error) {
	stored := new(storedProposal)
	ok, err := s.get(proposalKey(id), stored)
	if !ok || err != nil {
		return nil, false, err
	}
	return stored.toProposal(), true, nil
}

// ProposalPut persists a proposal.
func (s *LaunchStore) ProposalPut(proposal *launch.Proposal) error {
	if proposal == nil {
		return errors.New("state: nil proposal")
	}
	return s.put(proposalKey(proposal.ID), newStoredProposal(proposal))
}

// MakerGet loads the per-maker sequence record.
func (s *LaunchStore) MakerGet(maker [20]byte) (*launch.MakerRecord, bool, error) {
	record := new(launch.MakerRecord)
	ok, err := s.get(makerKey(maker), record)
	if !ok || err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// MakerPut persists the per-maker sequence record.
func (s *LaunchStore) MakerPut(record *launch.MakerRecord) error {
	if record == nil {
		return errors.New("state: nil maker record")
	}
	return s.put(makerKey(record.Maker), record)
}

// BackerGet loads a backer record.
func (s *LaunchStore) BackerGet(id launch.ProposalID, backer [20]byte) (*launch.BackerRecord, bool, error) {
	stored := new(storedBacker)
	ok, err := s.get(backerKey(id, backer), stored)
	if !ok || err != nil {
		return nil, false, err
	}
	return stored.toBacker(), true, nil
}

// BackerPut persists a backer record.
func (s *LaunchStore) BackerPut(record *launch.BackerRecord) error {
	if record == nil {
		return errors.New("state: nil backer record")
	}
	return s.put(backerKey(record.Proposal, record.Backer), newStoredBacker(record))
}

// BackerDelete reclaims a backer record.
func (s *LaunchStore) BackerDelete(id launch.ProposalID, backer [20]byte) error {
	return s.db.Delete(backerKey(id, backer))
}

// QuotaGet loads the cross-proposal concurrency counter for an address.
func (s *LaunchStore) QuotaGet(backer [20]byte) (*launch.BackerQuota, bool, error) {
	quota := new(launch.BackerQuota)
	ok, err := s.get(quotaKey(backer), quota)
	if !ok || err != nil {
		return nil, false, err
	}
	return quota, true, nil
}

// QuotaPut persists the concurrency counter.
func (s *LaunchStore) QuotaPut(quota *launch.BackerQuota) error {
	if quota == nil {
		return errors.New("state: nil quota")
	}
	return s.put(quotaKey(quota.Backer), quota)
}

// GetAccount loads the settlement-asset account for an address. Unknown
// addresses yield a zero-balance account.
func (s *LaunchStore) GetAccount(addr []byte) (*types.Account, error) {
	stored := new(storedAccount)
	ok, err := s.get(accountKey(addr), stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	balance := stored.Balance
	if balance == nil {
		balance = big.NewInt(0)
	}
	return &types.Account{Nonce: stored.Nonce, Balance: balance}, nil
}

// PutAccount persists the settlement-asset account for an address.
func (s *LaunchStore) PutAccount(addr []byte, account *types.Account) error {
	if account == nil {
		return errors.New("state: nil account")
	}
	balance := account.Balance
	if balance == nil {
		balance = big.NewInt(0)
	}
	return s.put(accountKey(addr), &storedAccount{Nonce: account.Nonce, Balance: balance})
}

func newStoredProposal(p *launch.Proposal) *storedProposal {
	return &storedProposal{
		ID:                       p.ID,
		Maker:                    p.Maker,
		Sequence:                 p.Sequence,
		TokenMint:                p.TokenMint,
		TimeStarted:              uint64(p.TimeStarted),
		IsRejected:               p.IsRejected,
		IsPoolLaunched:           p.IsPoolLaunched,
		LaunchTimestamp:          uint64(p.LaunchTimestamp),
		EmergencyUnlocked:        p.EmergencyUnlocked,
		TotalBackers:             p.TotalBackers,
		TotalBacking:             p.TotalBacking,
		CurrentCycle:             p.CurrentCycle,
		MilestoneActive:          p.MilestoneActive,
		MilestoneUnitsAssigned:   p.MilestoneUnitsAssigned,
		MilestoneBackersWeighted: p.MilestoneBackersWeighted,
		MilestoneReputationSum:   p.MilestoneReputationSum,
		TokenName:                p.TokenName,
		TokenSymbol:              p.TokenSymbol,
		TokenURI:                 p.TokenURI,
	}
}

func (sp *storedProposal) toProposal() *launch.Proposal {
	return &launch.Proposal{
		ID:                       sp.ID,
		Maker:                    sp.Maker,
		Sequence:                 sp.Sequence,
		TokenMint:                sp.TokenMint,
		TimeStarted:              int64(sp.TimeStarted),
		IsRejected:               sp.IsRejected,
		IsPoolLaunched:           sp.IsPoolLaunched,
		LaunchTimestamp:          int64(sp.LaunchTimestamp),
		EmergencyUnlocked:        sp.EmergencyUnlocked,
		TotalBackers:             sp.TotalBackers,
		TotalBacking:             sp.TotalBacking,
		CurrentCycle:             sp.CurrentCycle,
		MilestoneActive:          sp.MilestoneActive,
		MilestoneUnitsAssigned:   sp.MilestoneUnitsAssigned,
		MilestoneBackersWeighted: sp.MilestoneBackersWeighted,
		MilestoneReputationSum:   sp.MilestoneReputationSum,
		TokenName:                sp.TokenName,
		TokenSymbol:              sp.TokenSymbol,
		TokenURI:                 sp.TokenURI,
	}
}

func newStoredBacker(b *launch.BackerRecord) *storedBacker {
	return &storedBacker{
		Proposal:              b.Proposal,
		Backer:                b.Backer,
		DepositAmount:         b.DepositAmount,
		PendingClaim:          b.PendingClaim,
		SettleCycle:           b.SettleCycle,
		UpdatedCycle:          b.UpdatedCycle,
		InitialAirdropGranted: b.InitialAirdropGranted,
		CreatedAt:             uint64(b.CreatedAt),
	}
}

func (sb *storedBacker) toBacker() *launch.BackerRecord {
	return &launch.BackerRecord{
		Proposal:              sb.Proposal,
		Backer:                sb.Backer,
		DepositAmount:         sb.DepositAmount,
		PendingClaim:          sb.PendingClaim,
		SettleCycle:           sb.SettleCycle,
		UpdatedCycle:          sb.UpdatedCycle,
		InitialAirdropGranted: sb.InitialAirdropGranted,
		CreatedAt:             int64(sb.CreatedAt),
	}
}

type storedParams struct {
	AmountPerBacker      uint64
	ProtocolFee          uint64
	TotalMint            uint64
	TotalPoolTokens      uint64
	MakerTokenAmount     uint64
	AirdropPerMilestone  uint64
	MinBackers           uint64
	MaxBackers           uint64
	MaxBackedProposals   uint64
	RefundFeeBps         uint16
	PoolBaseFeeNumerator uint64
	TokenDecimals        uint8
	BackingPeriodSecs    uint64
	UnlockDelaySecs      uint64
}

func newStoredParams(p launch.Params) *storedParams {
	return &storedParams{
		AmountPerBacker:      p.AmountPerBacker,
		ProtocolFee:          p.ProtocolFee,
		TotalMint:            p.TotalMint,
		TotalPoolTokens:      p.TotalPoolTokens,
		MakerTokenAmount:     p.MakerTokenAmount,
		AirdropPerMilestone:  p.AirdropPerMilestone,
		MinBackers:           p.MinBackers,
		MaxBackers:           p.MaxBackers,
		MaxBackedProposals:   p.MaxBackedProposals,
		RefundFeeBps:         p.RefundFeeBps,
		PoolBaseFeeNumerator: p.PoolBaseFeeNumerator,
		TokenDecimals:        p.TokenDecimals,
		BackingPeriodSecs:    uint64(p.BackingPeriodSecs),
		UnlockDelaySecs:      uint64(p.UnlockDelaySecs),
	}
}

func (sp *storedParams) toParams() launch.Params {
	return launch.Params{
		AmountPerBacker:      sp.AmountPerBacker,
		ProtocolFee:          sp.ProtocolFee,
		TotalMint:            sp.TotalMint,
		TotalPoolTokens:      sp.TotalPoolTokens,
		MakerTokenAmount:     sp.MakerTokenAmount,
		AirdropPerMilestone:  sp.AirdropPerMilestone,
		MinBackers:           sp.MinBackers,
		MaxBackers:           sp.MaxBackers,
		MaxBackedProposals:   sp.MaxBackedProposals,
		RefundFeeBps:         sp.RefundFeeBps,
		PoolBaseFeeNumerator: sp.PoolBaseFeeNumerator,
		TokenDecimals:        sp.TokenDecimals,
		BackingPeriodSecs:    int64(sp.BackingPeriodSecs),
		UnlockDelaySecs:      int64(sp.UnlockDelaySecs),
	}
}
