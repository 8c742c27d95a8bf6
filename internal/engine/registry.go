package engine

import (
	"sort"

	"github.com/talgya/arena/internal/combatants"
	"github.com/talgya/arena/internal/items"
	"github.com/talgya/arena/internal/world"
)

// Registry is the sparse position index of combatants and items.
// A position holds at most one combatant and at most maxItems items.
type Registry struct {
	Combatants map[world.Pos]*combatants.Combatant
	Items      map[world.Pos][]*items.Item

	maxItems int
}

// NewRegistry creates an empty registry with the given per-tile item cap.
func NewRegistry(maxItems int) *Registry {
	if maxItems < 1 {
		maxItems = 1
	}
	return &Registry{
		Combatants: make(map[world.Pos]*combatants.Combatant),
		Items:      make(map[world.Pos][]*items.Item),
		maxItems:   maxItems,
	}
}

// At returns whatever combatant is indexed at p, live or not.
func (r *Registry) At(p world.Pos) *combatants.Combatant {
	return r.Combatants[p]
}

// Occupant returns the live combatant at p, or nil.
func (r *Registry) Occupant(p world.Pos) *combatants.Combatant {
	if c := r.Combatants[p]; c.Live() {
		return c
	}
	return nil
}

// Place indexes c at p. It refuses to overwrite a live occupant: deciding
// who wins a contested tile belongs to the caller.
func (r *Registry) Place(c *combatants.Combatant, p world.Pos) error {
	if occ := r.Occupant(p); occ != nil && occ != c {
		return &InvariantViolation{Op: "place", Pos: p, Detail: "tile already has a live occupant"}
	}
	c.Position = p
	r.Combatants[p] = c
	return nil
}

// Remove drops whatever combatant is indexed at p and returns it.
func (r *Registry) Remove(p world.Pos) *combatants.Combatant {
	c := r.Combatants[p]
	delete(r.Combatants, p)
	return c
}

// Find locates a combatant by ID. Registries hold a few hundred entries so a scan is fine.
func (r *Registry) Find(id combatants.ID) *combatants.Combatant {
	if id == 0 {
		return nil
	}
	for _, c := range r.Combatants {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Positions returns the occupied positions in ascending order.
func (r *Registry) Positions() []world.Pos {
	out := make([]world.Pos, 0, len(r.Combatants))
	for p := range r.Combatants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Live returns the live combatants ordered by position.
func (r *Registry) Live() []*combatants.Combatant {
	out := make([]*combatants.Combatant, 0, len(r.Combatants))
	for _, p := range r.Positions() {
		if c := r.Combatants[p]; c.Live() {
			out = append(out, c)
		}
	}
	return out
}

// AddItem appends it to its tile. A full tile evicts its oldest item, which is returned.
func (r *Registry) AddItem(it *items.Item) *items.Item {
	p := it.Position
	stack := r.Items[p]
	var evicted *items.Item
	if len(stack) >= r.maxItems {
		evicted = stack[0]
		stack = append(stack[:0:0], stack[1:]...)
	}
	r.Items[p] = append(stack, it)
	return evicted
}

// ItemsAt returns the items on p.
func (r *Registry) ItemsAt(p world.Pos) []*items.Item {
	return r.Items[p]
}

// ClearItems removes and returns every item on p.
func (r *Registry) ClearItems(p world.Pos) []*items.Item {
	stack := r.Items[p]
	delete(r.Items, p)
	return stack
}

// AllItems returns every item ordered by position, then insertion order.
func (r *Registry) AllItems() []*items.Item {
	ps := make([]world.Pos, 0, len(r.Items))
	for p := range r.Items {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })

	var out []*items.Item
	for _, p := range ps {
		out = append(out, r.Items[p]...)
	}
	return out
}

// NumItems counts live items.
func (r *Registry) NumItems() int {
	n := 0
	for _, stack := range r.Items {
		for _, it := range stack {
			if it.Live() {
				n++
			}
		}
	}
	return n
}

// KillAndCompact marks the occupants of positions dead and returns a fresh
// registry holding only live combatants and live items. No empty slot or
// empty item stack survives compaction. The killed combatants are returned
// so the caller can account for them.
func (r *Registry) KillAndCompact(positions ...world.Pos) (*Registry, []*combatants.Combatant) {
	var killed []*combatants.Combatant
	for _, p := range positions {
		if c := r.Occupant(p); c != nil {
			c.State = combatants.StateDead
			killed = append(killed, c)
		}
	}

	out := NewRegistry(r.maxItems)
	for p, c := range r.Combatants {
		if c.Live() && c.Position == p {
			out.Combatants[p] = c
		}
	}
	for p, stack := range r.Items {
		var kept []*items.Item
		for _, it := range stack {
			if it.Live() {
				kept = append(kept, it)
			}
		}
		if len(kept) > 0 {
			out.Items[p] = kept
		}
	}
	return out, killed
}

// Clone deep-copies the registry so a tick can mutate its working set
// without touching the published snapshot.
func (r *Registry) Clone() *Registry {
	out := NewRegistry(r.maxItems)
	for p, c := range r.Combatants {
		out.Combatants[p] = c.Clone()
	}
	for p, stack := range r.Items {
		cp := make([]*items.Item, len(stack))
		for i, it := range stack {
			cp[i] = it.Clone()
		}
		out.Items[p] = cp
	}
	return out
}

// Empty returns a registry with the same item cap and no entries.
func (r *Registry) Empty() *Registry {
	return NewRegistry(r.maxItems)
}
