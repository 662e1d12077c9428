package events

import "math/big"

const (
	// TypeMissionCreated is emitted when a mission is registered and its
	// reward pool escrowed.
	TypeMissionCreated = "missions.created"
	// TypeMissionDistributed is emitted after a successful payout batch.
	TypeMissionDistributed = "missions.distributed"
	// TypeMissionFinalized is emitted when a mission transitions to its
	// terminal state.
	TypeMissionFinalized = "missions.finalized"
	// TypeTokenAllowlisted is emitted when the owner adds a reward token.
	TypeTokenAllowlisted = "missions.token.allowed"
	// TypeTokenDelisted is emitted when the owner removes a reward token.
	TypeTokenDelisted = "missions.token.removed"
	// TypeDistributorRotated is emitted when the owner replaces the reward
	// distributor identity.
	TypeDistributorRotated = "missions.distributor.rotated"
)

// MissionCreated captures the key metadata of a newly registered mission.
type MissionCreated struct {
	ID          uint64
	Creator     [20]byte
	Token       []byte
	TokenAmount *big.Int
	TotalPoints uint64
	StartTime   uint64
	EndTime     uint64
}

// EventType implements the Event interface.
func (MissionCreated) EventType() string { return TypeMissionCreated }

// MissionDistributed summarises one payout batch against a mission.
type MissionDistributed struct {
	ID         uint64
	Recipients uint64
	Amount     *big.Int
	Points     uint64
}

// EventType implements the Event interface.
func (MissionDistributed) EventType() string { return TypeMissionDistributed }

// MissionFinalized marks the one-way close of a mission.
type MissionFinalized struct {
	ID     uint64
	Caller [20]byte
}

// EventType implements the Event interface.
func (MissionFinalized) EventType() string { return TypeMissionFinalized }

// TokenAllowlisted records an addition to the reward token allowlist.
type TokenAllowlisted struct {
	Token [20]byte
}

// EventType implements the Event interface.
func (TokenAllowlisted) EventType() string { return TypeTokenAllowlisted }

// TokenDelisted records a removal from the reward token allowlist.
type TokenDelisted struct {
	Token [20]byte
}

// EventType implements the Event interface.
func (TokenDelisted) EventType() string { return TypeTokenDelisted }

// DistributorRotated records a change of the reward distributor identity.
type DistributorRotated struct {
	Previous [20]byte
	Current  [20]byte
}

// EventType implements the Event interface.
func (DistributorRotated) EventType() string { return TypeDistributorRotated }
