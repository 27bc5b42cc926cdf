package launch

import (
	"strconv"

	"launchpad/core/events"
	"launchpad/core/types"
)

const (
	// EventTypeProposalCreated is emitted when a maker opens a new campaign.
	EventTypeProposalCreated = "launch.proposal.created"
	// EventTypeProposalBacked is emitted for every accepted contribution.
	EventTypeProposalBacked = "launch.proposal.backed"
	// EventTypeProposalRejected is emitted when a proposal turns terminal.
	EventTypeProposalRejected = "launch.proposal.rejected"
	// EventTypeCoinLaunched is emitted when the liquidity pool goes live.
	EventTypeCoinLaunched = "launch.pool.launched"
	// EventTypePoolUnlocked is emitted on an emergency unlock.
	EventTypePoolUnlocked = "launch.pool.unlocked"
	// EventTypeMilestoneStarted is emitted when an allocation cycle opens.
	EventTypeMilestoneStarted = "launch.milestone.started"
	// EventTypeBackerSettled is emitted per backer snapshot inside a cycle.
	EventTypeBackerSettled = "launch.milestone.settled"
	// EventTypeMilestoneEnded is emitted when a cycle closes and burns.
	EventTypeMilestoneEnded = "launch.milestone.ended"
	// EventTypeAirdropClaimed is emitted when a backer withdraws allocation.
	EventTypeAirdropClaimed = "launch.airdrop.claimed"
	// EventTypeBackerRefunded is emitted per refunded backer.
	EventTypeBackerRefunded = "launch.backer.refunded"
	// EventTypeFeesCollected is emitted after a position fee harvest.
	EventTypeFeesCollected = "launch.fees.collected"
	// EventTypeParamsUpdated is emitted when the configuration changes.
	EventTypeParamsUpdated = "launch.params.updated"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }

// ProposalCreatedEvent announces a new campaign.
func ProposalCreatedEvent(id string, maker string, sequence uint64, name, symbol string) *types.Event {
	return &types.Event{
		Type: EventTypeProposalCreated,
		Attributes: map[string]string{
			"proposal": id,
			"maker":    maker,
			"sequence": formatUint(sequence),
			"name":     name,
			"symbol":   symbol,
		},
	}
}

// ProposalBackedEvent records an accepted contribution.
func ProposalBackedEvent(id string, backer string, deposit uint64, totalBackers uint64) *types.Event {
	return &types.Event{
		Type: EventTypeProposalBacked,
		Attributes: map[string]string{
			"proposal":     id,
			"backer":       backer,
			"deposit":      formatUint(deposit),
			"totalBackers": formatUint(totalBackers),
		},
	}
}

// ProposalRejectedEvent records the terminal rejection of a proposal.
func ProposalRejectedEvent(id string, maker string) *types.Event {
	return &types.Event{
		Type: EventTypeProposalRejected,
		Attributes: map[string]string{
			"proposal": id,
			"maker":    maker,
		},
	}
}

// CoinLaunchedEvent records a successful pool launch.
func CoinLaunchedEvent(id string, maker string, raised uint64, sqrtPrice, liquidity string) *types.Event {
	return &types.Event{
		Type: EventTypeCoinLaunched,
		Attributes: map[string]string{
			"proposal":  id,
			"maker":     maker,
			"raised":    formatUint(raised),
			"sqrtPrice": sqrtPrice,
			"liquidity": liquidity,
		},
	}
}

// PoolUnlockedEvent records an emergency unlock back to a pre-launch state.
func PoolUnlockedEvent(id string, maker string) *types.Event {
	return &types.Event{
		Type: EventTypePoolUnlocked,
		Attributes: map[string]string{
			"proposal": id,
			"maker":    maker,
		},
	}
}

// MilestoneStartedEvent records the opening of an allocation cycle.
func MilestoneStartedEvent(id string, cycle uint64) *types.Event {
	return &types.Event{
		Type: EventTypeMilestoneStarted,
		Attributes: map[string]string{
			"proposal": id,
			"cycle":    formatUint(cycle),
		},
	}
}

// BackerSettledEvent records a per-backer snapshot settlement.
func BackerSettledEvent(id string, backer string, cycle uint64, allocUnits uint64, tierPct uint64) *types.Event {
	return &types.Event{
		Type: EventTypeBackerSettled,
		Attributes: map[string]string{
			"proposal":   id,
			"backer":     backer,
			"cycle":      formatUint(cycle),
			"allocUnits": formatUint(allocUnits),
			"tierPct":    formatUint(tierPct),
		},
	}
}

// MilestoneEndedEvent records the close of a cycle and the shortfall burn.
func MilestoneEndedEvent(id string, cycle uint64, burned uint64) *types.Event {
	return &types.Event{
		Type: EventTypeMilestoneEnded,
		Attributes: map[string]string{
			"proposal": id,
			"cycle":    formatUint(cycle),
			"burned":   formatUint(burned),
		},
	}
}

// AirdropClaimedEvent records a backer withdrawing their pending allocation.
func AirdropClaimedEvent(id string, backer string, amount uint64) *types.Event {
	return &types.Event{
		Type: EventTypeAirdropClaimed,
		Attributes: map[string]string{
			"proposal": id,
			"backer":   backer,
			"amount":   formatUint(amount),
		},
	}
}

// BackerRefundedEvent records a refund payout and its fee portion.
func BackerRefundedEvent(id string, backer string, refund uint64, fee uint64) *types.Event {
	return &types.Event{
		Type: EventTypeBackerRefunded,
		Attributes: map[string]string{
			"proposal": id,
			"backer":   backer,
			"refund":   formatUint(refund),
			"fee":      formatUint(fee),
		},
	}
}

// FeesCollectedEvent records a pool position fee harvest.
func FeesCollectedEvent(id string, maker string, baseFees uint64, quoteFees uint64) *types.Event {
	return &types.Event{
		Type: EventTypeFeesCollected,
		Attributes: map[string]string{
			"proposal":  id,
			"maker":     maker,
			"baseFees":  formatUint(baseFees),
			"quoteFees": formatUint(quoteFees),
		},
	}
}

// ParamsUpdatedEvent records a configuration change.
func ParamsUpdatedEvent(authority string) *types.Event {
	return &types.Event{
		Type: EventTypeParamsUpdated,
		Attributes: map[string]string{
			"authority": authority,
		},
	}
}
