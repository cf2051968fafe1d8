package levels

// Cell is the content of one grid cell as reported by What.
type Cell int

const (
	Open Cell = 0
	Wall Cell = 1
	Exit Cell = 2
)

// Layout characters.
const (
	WallChar  = '#'
	OpenChar  = '.'
	StartChar = 'S'
	ExitChar  = 'E'
)

// Validation constants
const (
	MinGridSize = 2
	MaxGridSize = 256
)

// Position represents x,y coordinates
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Messages overrides the texts a Grid reports from Move. Empty fields fall
// back to the defaults below.
type Messages struct {
	Blocked string `json:"blocked" yaml:"blocked"`
	Invalid string `json:"invalid" yaml:"invalid"`
	Victory string `json:"victory" yaml:"victory"`
}

const (
	DefaultBlocked = "You bump into a wall."
	DefaultInvalid = "Unknown move %q, use w/a/s/d."
	DefaultVictory = "You found the exit!"
)

// GridConfig describes a grid maze.
type GridConfig struct {
	Layout   []string `json:"layout" yaml:"layout"`
	Messages Messages `json:"messages" yaml:"messages"`
}

// gridState is the per-session state of a Grid level.
type gridState struct {
	pos   Position
	moves int
	won   bool
}
