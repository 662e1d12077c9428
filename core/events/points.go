package events

const (
	// TypePointsAwarded is emitted for every successful points award.
	TypePointsAwarded = "points.awarded"
	// TypeAchievementUnlocked is emitted once per newly unlocked
	// achievement.
	TypeAchievementUnlocked = "points.achievement.unlocked"
	// TypeIssuerAuthorized is emitted when the owner grants issue rights.
	TypeIssuerAuthorized = "points.issuer.authorized"
	// TypeIssuerRevoked is emitted when the owner revokes issue rights.
	TypeIssuerRevoked = "points.issuer.revoked"
	// TypeMultiplierUpdated is emitted when the global multiplier changes.
	TypeMultiplierUpdated = "points.multiplier.updated"
)

// PointsAwarded captures a single ledger credit after multiplier scaling.
type PointsAwarded struct {
	Recipient  [20]byte
	Issuer     [20]byte
	BasePoints uint64
	Earned     uint64
	NewTotal   uint64
	Reason     string
}

// EventType implements the Event interface.
func (PointsAwarded) EventType() string { return TypePointsAwarded }

// AchievementUnlocked records a threshold crossing for a user.
type AchievementUnlocked struct {
	Recipient     [20]byte
	AchievementID uint32
	Name          string
	Total         uint64
}

// EventType implements the Event interface.
func (AchievementUnlocked) EventType() string { return TypeAchievementUnlocked }

// IssuerAuthorized records an addition to the authorized issuer set.
type IssuerAuthorized struct {
	Issuer [20]byte
}

// EventType implements the Event interface.
func (IssuerAuthorized) EventType() string { return TypeIssuerAuthorized }

// IssuerRevoked records a removal from the authorized issuer set.
type IssuerRevoked struct {
	Issuer [20]byte
}

// EventType implements the Event interface.
func (IssuerRevoked) EventType() string { return TypeIssuerRevoked }

// MultiplierUpdated records a change of the global points multiplier.
type MultiplierUpdated struct {
	Previous uint64
	Current  uint64
}

// EventType implements the Event interface.
func (MultiplierUpdated) EventType() string { return TypeMultiplierUpdated }
