package engine

import (
	"fmt"
	"strings"
)

// AdventureLength selects how many challenges and friendlies an adventure has
type AdventureLength string

const (
	Short  AdventureLength = "short"
	Medium AdventureLength = "medium"
	Long   AdventureLength = "long"
)

// Tier fixes the placement targets and default maze shape of an adventure length
type Tier struct {
	Length     AdventureLength `json:"length"`
	Challenges int             `json:"challenges"`
	Friendlies int             `json:"friendlies"`
	MazeSize   int             `json:"maze_size"`
	Braid      float64         `json:"braid"`
}

var tiers = map[AdventureLength]Tier{
	Short:  {Length: Short, Challenges: 4, Friendlies: 2, MazeSize: 11, Braid: DefaultBraid},
	Medium: {Length: Medium, Challenges: 7, Friendlies: 4, MazeSize: 15, Braid: DefaultBraid},
	Long:   {Length: Long, Challenges: 10, Friendlies: 6, MazeSize: 19, Braid: DefaultBraid},
}

// AdventureLengths lists the tiers from shortest to longest
func AdventureLengths() []AdventureLength {
	return []AdventureLength{Short, Medium, Long}
}

// Valid reports whether l names a known tier
func (l AdventureLength) Valid() bool {
	_, ok := tiers[l]
	return ok
}

// Tier returns the tier for l, falling back to Short for unknown values
func (l AdventureLength) Tier() Tier {
	if t, ok := tiers[l]; ok {
		return t
	}
	return tiers[Short]
}

// ParseAdventureLength parses a tier name. The empty string means Short.
func ParseAdventureLength(s string) (AdventureLength, error) {
	l := AdventureLength(strings.ToLower(strings.TrimSpace(s)))
	if l == "" {
		return Short, nil
	}
	if !l.Valid() {
		return "", fmt.Errorf("unknown adventure length %q (want short, medium or long)", s)
	}
	return l, nil
}

// Entities is the number of cells a tier occupies including start and exit
func (t Tier) Entities() int {
	return 2 + t.Challenges + t.Friendlies
}

// TierFor resolves the tier for a theme, applying the theme's maze size and
// braid overrides. The size never drops below MinimumMazeSize.
func TierFor(theme *Theme, length AdventureLength) Tier {
	t := length.Tier()
	if theme != nil {
		if size, ok := theme.MazeSizes[t.Length]; ok && size > 0 {
			t.MazeSize = size
		}
		if theme.Braid != nil {
			t.Braid = *theme.Braid
		}
	}
	if min := MinimumMazeSize(t); t.MazeSize < min {
		t.MazeSize = min
	}
	return t
}

// MinimumMazeSize returns the smallest odd maze size whose path cells can hold
// every entity of the tier. A size n maze has k*k junction cells plus
// k*k-1 carved corridors, where k = (n-1)/2.
func MinimumMazeSize(t Tier) int {
	need := t.Entities()
	for size := 3; ; size += 2 {
		k := (size - 1) / 2
		if 2*k*k-1 >= need {
			return size
		}
	}
}
