// Package items defines the environmental items that perturb the grid:
// bombs, med-packs, capture devices and terrain-painting spiders.
// Behavior is dispatched on Kind by the engine's item processor.
package items

import (
	"strings"

	"github.com/talgya/arena/internal/combatants"
	"github.com/talgya/arena/internal/world"
)

// ID is a unique item identifier.
type ID uint64

// Kind tags the item variant.
type Kind uint8

const (
	KindBomb Kind = iota
	KindMedPack
	KindCaptureDevice
	KindTerrainSpider
)

var kindNames = [...]string{"bomb", "medpack", "capture", "spider"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind maps an item name back to its kind.
func ParseKind(name string) (Kind, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range kindNames {
		if n == name {
			return Kind(i), true
		}
	}
	return 0, false
}

// State is an item's lifecycle state.
type State uint8

const (
	StateLive State = iota
	StateSpent
)

// NoFuse disables timed activation.
const NoFuse = -1

// Item is one environmental object on a tile.
type Item struct {
	ID         ID        `json:"id"`
	Kind       Kind      `json:"kind"`
	State      State     `json:"state"`
	Position   world.Pos `json:"position"`
	FuseLength int       `json:"fuse_length"`
	Age        int       `json:"age"`
	Kills      int       `json:"kills"`

	// Captured holds frozen copies of combatants taken out of play by a capture device.
	Captured []*combatants.Combatant `json:"captured,omitempty"`

	// Terrain is the tile type a spider paints.
	Terrain world.TileType `json:"terrain"`
}

// New creates a live item.
func New(id ID, kind Kind, p world.Pos, fuse int) *Item {
	return &Item{ID: id, Kind: kind, State: StateLive, Position: p, FuseLength: fuse}
}

// Tick ages the item by one tap and reports whether its fuse is up.
func (it *Item) Tick() bool {
	it.Age++
	return it.FuseLength > 0 && it.Age >= it.FuseLength
}

// Spend marks the item as having fired.
func (it *Item) Spend() {
	it.State = StateSpent
}

// Live reports whether the item is still in play.
func (it *Item) Live() bool {
	return it != nil && it.State == StateLive
}

// Clone returns a deep copy.
func (it *Item) Clone() *Item {
	cp := *it
	if it.Captured != nil {
		cp.Captured = make([]*combatants.Combatant, len(it.Captured))
		for i, c := range it.Captured {
			cp.Captured[i] = c.Clone()
		}
	}
	return &cp
}

// Fuses holds the default fuse length per item kind.
type Fuses struct {
	Bomb    int `yaml:"bomb" json:"bomb"`
	MedPack int `yaml:"medpack" json:"medpack"`
	Capture int `yaml:"capture" json:"capture"`
	Spider  int `yaml:"spider" json:"spider"`
}

// DefaultFuses returns the stock fuse lengths.
func DefaultFuses() Fuses {
	return Fuses{
		Bomb:    3,
		MedPack: NoFuse,
		Capture: 10,
		Spider:  NoFuse,
	}
}

// For returns the fuse configured for kind.
func (f Fuses) For(kind Kind) int {
	switch kind {
	case KindBomb:
		return f.Bomb
	case KindMedPack:
		return f.MedPack
	case KindCaptureDevice:
		return f.Capture
	case KindTerrainSpider:
		return f.Spider
	}
	return NoFuse
}
