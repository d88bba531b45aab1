package movement

import "strings"

// Direction is one of the four discrete movement commands.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

func AllDirections() []Direction {
	return []Direction{Up, Down, Left, Right}
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "Up"
	case Down:
		return "Down"
	case Left:
		return "Left"
	case Right:
		return "Right"
	default:
		return "Unknown"
	}
}

func (d Direction) IsValid() bool {
	return d >= Up && d <= Right
}

// Delta returns the lattice step. Up is north (+Y), Right is east (+X).
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, 1
	case Down:
		return 0, -1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	default:
		return 0, 0
	}
}

func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "north", "n":
		return Up, true
	case "down", "south", "s":
		return Down, true
	case "left", "west", "w":
		return Left, true
	case "right", "east", "e":
		return Right, true
	}
	return 0, false
}
