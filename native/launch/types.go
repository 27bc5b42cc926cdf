package launch

import (
	"encoding/binary"
	"encoding/hex"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const (
	maxTokenNameLen   = 32
	maxTokenSymbolLen = 10
	maxTokenURILen    = 200
)

// ProposalID is the canonical 32-byte identifier of a proposal, derived from
// the maker address and the maker's proposal sequence number.
type ProposalID [32]byte

// NewProposalID derives the identifier for the maker's n-th proposal.
func NewProposalID(maker [20]byte, sequence uint64) ProposalID {
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], sequence)
	var id ProposalID
	copy(id[:], ethcrypto.Keccak256([]byte("launchpad/proposal"), maker[:], seq[:]))
	return id
}

// Hex renders the identifier as a 0x-prefixed string.
func (id ProposalID) Hex() string {
	return "0x" + hex.EncodeToString(id[:])
}

// Proposal is a single crowdfunding campaign. The record persists indefinitely
// as an audit trail; only backer records are reclaimed.
type Proposal struct {
	ID                ProposalID `json:"id"`
	Maker             [20]byte   `json:"maker"`
	Sequence          uint64     `json:"sequence"`
	TokenMint         [20]byte   `json:"tokenMint"`
	TimeStarted       int64      `json:"timeStarted"`
	IsRejected        bool       `json:"isRejected"`
	IsPoolLaunched    bool       `json:"isPoolLaunched"`
	LaunchTimestamp   int64      `json:"launchTimestamp,omitempty"`
	EmergencyUnlocked bool       `json:"emergencyUnlocked"`

	TotalBackers uint64 `json:"totalBackers"`
	TotalBacking uint64 `json:"totalBacking"`

	CurrentCycle             uint64 `json:"currentCycle"`
	MilestoneActive          bool   `json:"milestoneActive"`
	MilestoneUnitsAssigned   uint64 `json:"milestoneUnitsAssigned"`
	MilestoneBackersWeighted uint64 `json:"milestoneBackersWeighted"`
	MilestoneReputationSum   uint64 `json:"milestoneReputationSum"`

	TokenName   string `json:"tokenName"`
	TokenSymbol string `json:"tokenSymbol"`
	TokenURI    string `json:"tokenUri"`
}

// Clone returns a deep copy of the proposal.
func (p *Proposal) Clone() *Proposal {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// activeCycle is the index of the milestone cycle currently (or next) being
// settled. CurrentCycle counts completed cycles.
func (p *Proposal) activeCycle() uint64 {
	return p.CurrentCycle + 1
}

// BackerRecord is the per-(proposal, backer) contribution and claim ledger
// entry. It is created exactly once per pair and deleted on refund.
type BackerRecord struct {
	Proposal              ProposalID `json:"proposal"`
	Backer                [20]byte   `json:"backer"`
	DepositAmount         uint64     `json:"depositAmount"`
	PendingClaim          uint64     `json:"pendingClaim"`
	SettleCycle           uint64     `json:"settleCycle"`
	UpdatedCycle          uint64     `json:"updatedCycle"`
	InitialAirdropGranted bool       `json:"initialAirdropGranted"`
	CreatedAt             int64      `json:"createdAt"`
}

// Clone returns a deep copy of the backer record.
func (b *BackerRecord) Clone() *BackerRecord {
	if b == nil {
		return nil
	}
	clone := *b
	return &clone
}

// MakerRecord tracks the monotonically increasing proposal sequence per maker.
type MakerRecord struct {
	Maker         [20]byte `json:"maker"`
	ProposalCount uint64   `json:"proposalCount"`
}

// BackerQuota is the per-address count of currently-active backed proposals,
// shared across all proposals.
type BackerQuota struct {
	Backer      [20]byte `json:"backer"`
	ActiveCount uint64   `json:"activeCount"`
}

// RefundBreakdown reports the fee-adjusted pro-rata refund for a backer.
type RefundBreakdown struct {
	Refund uint64 `json:"refund"`
	Fee    uint64 `json:"fee"`
}

// FeeSettlement reports a harvested position fee split between the protocol
// treasury and the proposal maker, per pool asset.
type FeeSettlement struct {
	BaseTreasury  uint64 `json:"baseTreasury"`
	BaseMaker     uint64 `json:"baseMaker"`
	QuoteTreasury uint64 `json:"quoteTreasury"`
	QuoteMaker    uint64 `json:"quoteMaker"`
}
