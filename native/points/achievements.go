package points

import (
	"sort"

	"missionledger/core/events"
)

// evaluateAchievements appends any newly qualified achievement ids to the
// recipient's unlocked set. The set stays ascending by id with no duplicates,
// so re-running on an unchanged total is a no-op.
func (e *Engine) evaluateAchievements(recipient [20]byte, total uint64) error {
	unlocked, err := e.state.UserAchievements(recipient)
	if err != nil {
		return err
	}
	have := make(map[uint32]struct{}, len(unlocked))
	for _, id := range unlocked {
		have[id] = struct{}{}
	}
	changed := false
	for _, def := range e.achievements {
		if def.PointsRequired > total {
			continue
		}
		if _, ok := have[def.ID]; ok {
			continue
		}
		unlocked = append(unlocked, def.ID)
		have[def.ID] = struct{}{}
		changed = true
		e.emit(events.AchievementUnlocked{
			Recipient:     recipient,
			AchievementID: def.ID,
			Name:          def.Name,
			Total:         total,
		})
	}
	if !changed {
		return nil
	}
	sort.Slice(unlocked, func(i, j int) bool { return unlocked[i] < unlocked[j] })
	return e.state.SetUserAchievements(recipient, unlocked)
}
