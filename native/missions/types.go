package missions

import (
	"encoding/binary"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// MinMissionDuration is the smallest allowed mission window, expressed in
// block-height units.
const MinMissionDuration = 1008

// Mission is a time-boxed reward campaign with an escrowed funding pool and a
// points budget. The two budgets are independent counters except that funded
// missions pin TotalPoints to TokenAmount at creation.
type Mission struct {
	ID      uint64
	Creator [20]byte
	// FundingToken is the 20-byte reward token contract, or empty for the
	// native currency.
	FundingToken      []byte
	TokenAmount       *big.Int
	AmountDistributed *big.Int
	TotalPoints       uint64
	PointsDistributed uint64
	StartTime         uint64
	EndTime           uint64
	CreatedAt         uint64
	Finalized         bool
}

// Funded reports whether the mission escrows a reward pool. Point-only
// missions carry a zero token amount.
func (m *Mission) Funded() bool {
	return m != nil && m.TokenAmount != nil && m.TokenAmount.Sign() > 0
}

// ActiveAt reports the derived activity predicate: inside [start, end) and not
// finalized.
func (m *Mission) ActiveAt(now uint64) bool {
	if m == nil || m.Finalized {
		return false
	}
	return now >= m.StartTime && now < m.EndTime
}

// RemainingAmount returns the undistributed portion of the reward pool.
func (m *Mission) RemainingAmount() *big.Int {
	if m == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Sub(cloneBigInt(m.TokenAmount), cloneBigInt(m.AmountDistributed))
}

// RemainingPoints returns the undistributed portion of the points budget.
func (m *Mission) RemainingPoints() uint64 {
	if m == nil || m.PointsDistributed >= m.TotalPoints {
		return 0
	}
	return m.TotalPoints - m.PointsDistributed
}

// Clone produces a deep copy so callers cannot mutate stored records.
func (m *Mission) Clone() *Mission {
	if m == nil {
		return nil
	}
	clone := *m
	clone.FundingToken = append([]byte(nil), m.FundingToken...)
	clone.TokenAmount = cloneBigInt(m.TokenAmount)
	clone.AmountDistributed = cloneBigInt(m.AmountDistributed)
	return &clone
}

// Distribution is one (recipient, amount, points) payout tuple within a batch.
type Distribution struct {
	Recipient [20]byte
	Amount    *big.Int
	Points    uint64
}

var vaultSeed = []byte("missions/vault/")

// VaultAddress derives the deterministic escrow address holding a mission's
// reward pool.
func VaultAddress(id uint64) [20]byte {
	buf := make([]byte, len(vaultSeed)+8)
	copy(buf, vaultSeed)
	binary.BigEndian.PutUint64(buf[len(vaultSeed):], id)
	var addr [20]byte
	copy(addr[:], ethcrypto.Keccak256(buf)[12:])
	return addr
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
