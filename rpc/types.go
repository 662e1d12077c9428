package rpc

import (
	"fmt"
	"math/big"
	"strings"

	"missionledger/crypto"
	"missionledger/native/missions"
)

type createMissionParams struct {
	Caller       string `json:"caller"`
	TokenAddress string `json:"tokenAddress,omitempty"`
	TokenAmount  string `json:"tokenAmount,omitempty"`
	TotalPoints  uint64 `json:"totalPoints"`
	StartTime    uint64 `json:"startTime"`
	EndTime      uint64 `json:"endTime"`
}

type tokenParams struct {
	Caller       string `json:"caller,omitempty"`
	TokenAddress string `json:"tokenAddress"`
}

type distributionEntry struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount,omitempty"`
	Points    uint64 `json:"points"`
}

type distributeParams struct {
	Caller        string              `json:"caller"`
	MissionID     uint64              `json:"missionId"`
	TokenContract string              `json:"tokenContract,omitempty"`
	Distributions []distributionEntry `json:"distributions"`
}

type missionIDParams struct {
	Caller    string `json:"caller,omitempty"`
	MissionID uint64 `json:"missionId"`
}

type setDistributorParams struct {
	Caller      string `json:"caller"`
	Distributor string `json:"distributor"`
}

type awardPointsParams struct {
	Caller     string `json:"caller"`
	Recipient  string `json:"recipient"`
	BasePoints uint64 `json:"basePoints"`
	Reason     string `json:"reason,omitempty"`
}

type issuerParams struct {
	Caller string `json:"caller,omitempty"`
	Issuer string `json:"issuer"`
}

type multiplierParams struct {
	Caller string `json:"caller"`
	Value  uint64 `json:"value"`
}

type userParams struct {
	Address string `json:"address"`
}

type achievementIDParams struct {
	AchievementID uint32 `json:"achievementId"`
}

type missionResult struct {
	ID                uint64 `json:"id"`
	Creator           string `json:"creator"`
	TokenAddress      string `json:"tokenAddress,omitempty"`
	TokenAmount       string `json:"tokenAmount"`
	AmountDistributed string `json:"amountDistributed"`
	TotalPoints       uint64 `json:"totalPoints"`
	PointsDistributed uint64 `json:"pointsDistributed"`
	StartTime         uint64 `json:"startTime"`
	EndTime           uint64 `json:"endTime"`
	CreatedAt         uint64 `json:"createdAt"`
	IsFinalized       bool   `json:"isFinalized"`
}

type awardPointsResult struct {
	PointsEarned uint64 `json:"pointsEarned"`
	NewTotal     uint64 `json:"newTotal"`
}

type achievementResult struct {
	ID             uint32 `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	PointsRequired uint64 `json:"pointsRequired"`
}

func decodeBech32(value string) ([20]byte, error) {
	var out [20]byte
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return out, err
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

// decodeOptionalToken resolves the optional token contract parameter. An
// empty string selects the native currency.
func decodeOptionalToken(value string) ([]byte, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return nil, err
	}
	return addr.Bytes(), nil
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}

func formatAccount(addr [20]byte) string {
	return crypto.NewAccountAddress(addr[:]).String()
}

func formatMission(mission *missions.Mission) missionResult {
	result := missionResult{
		ID:                mission.ID,
		Creator:           formatAccount(mission.Creator),
		TokenAmount:       mission.TokenAmount.String(),
		AmountDistributed: mission.AmountDistributed.String(),
		TotalPoints:       mission.TotalPoints,
		PointsDistributed: mission.PointsDistributed,
		StartTime:         mission.StartTime,
		EndTime:           mission.EndTime,
		CreatedAt:         mission.CreatedAt,
		IsFinalized:       mission.Finalized,
	}
	if len(mission.FundingToken) == 20 {
		result.TokenAddress = crypto.NewContractAddress(mission.FundingToken).String()
	}
	return result
}
