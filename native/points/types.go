package points

import "sort"

const (
	// MultiplierDenominator expresses the global multiplier in
	// basis-hundredths: 100 = 1.0x.
	MultiplierDenominator = 100
	// MinMultiplier is the lowest accepted global multiplier (0.5x).
	MinMultiplier = 50
	// MaxMultiplier is the highest accepted global multiplier (5.0x).
	MaxMultiplier = 500
)

// Achievement is one static milestone definition. The table is configuration
// supplied at engine construction and never mutated at runtime.
type Achievement struct {
	ID             uint32
	Name           string
	Description    string
	PointsRequired uint64
}

// DefaultAchievements returns the built-in milestone table. Deployments can
// override it through configuration; in particular the Community Star
// threshold is tunable.
func DefaultAchievements() []Achievement {
	return []Achievement{
		{ID: 1, Name: "First Steps", Description: "Earn your first point", PointsRequired: 1},
		{ID: 2, Name: "Community Star", Description: "Become a recognised community member", PointsRequired: 250},
		{ID: 3, Name: "Point Master", Description: "Accumulate 1,000 points", PointsRequired: 1000},
		{ID: 4, Name: "Super Contributor", Description: "Accumulate 5,000 points", PointsRequired: 5000},
	}
}

// sortAchievements orders the table ascending by id so unlock evaluation and
// query output are deterministic.
func sortAchievements(table []Achievement) []Achievement {
	sorted := append([]Achievement(nil), table...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return sorted
}
