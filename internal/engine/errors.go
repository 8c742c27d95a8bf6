package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/talgya/arena/internal/world"
)

var (
	// ErrInvalidPlacement is returned by commands that target a position
	// outside the grid, on impassable terrain, or on an occupied tile.
	// The command is a no-op.
	ErrInvalidPlacement = errors.New("invalid placement")

	// ErrInvalidArgument is returned for out-of-range command arguments.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownMap is returned by SetMap for an unregistered map name.
	ErrUnknownMap = errors.New("unknown map")

	// ErrNoPlayer is returned by MovePlayer when no avatar is on the grid.
	ErrNoPlayer = errors.New("no player on the grid")
)

// InvariantViolation reports a programming error such as two live
// combatants contending for one registry slot.
type InvariantViolation struct {
	Op     string
	Pos    world.Pos
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation in %s at %d: %s", e.Op, e.Pos, e.Detail)
}

// invariant panics under strict rules and logs otherwise; the caller then
// clamps the state back into a legal shape.
func (s *Simulation) invariant(err error) {
	if err == nil {
		return
	}
	if s.Rules.StrictInvariants {
		panic(err)
	}
	slog.Error("invariant violation", "tick", s.Tick, "error", err)
}
