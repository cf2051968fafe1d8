package levels

import (
	"fmt"
	"unicode"

	"github.com/wricardo/mazed/game/level"
)

// Grid is a maze level built from a text layout. The grid itself is
// immutable and shared by all sessions; each session only owns its
// position.
type Grid struct {
	cells    [][]Cell
	start    Position
	messages Messages
}

// NewGrid validates cfg and builds the level.
func NewGrid(cfg GridConfig) (*Grid, error) {
	if err := ValidateGridConfig(cfg); err != nil {
		return nil, err
	}

	g := &Grid{
		cells:    make([][]Cell, len(cfg.Layout)),
		messages: cfg.Messages,
	}
	if g.messages.Blocked == "" {
		g.messages.Blocked = DefaultBlocked
	}
	if g.messages.Invalid == "" {
		g.messages.Invalid = DefaultInvalid
	}
	if g.messages.Victory == "" {
		g.messages.Victory = DefaultVictory
	}

	for y, row := range cfg.Layout {
		g.cells[y] = make([]Cell, len(row))
		for x := 0; x < len(row); x++ {
			switch row[x] {
			case WallChar:
				g.cells[y][x] = Wall
			case ExitChar:
				g.cells[y][x] = Exit
			case StartChar:
				g.start = Position{X: x, Y: y}
			}
		}
	}
	return g, nil
}

// Start returns the position every session begins at.
func (g *Grid) Start() Position { return g.start }

func (g *Grid) width() int  { return len(g.cells[0]) }
func (g *Grid) height() int { return len(g.cells) }

// canMoveTo checks if a player can stand on the specified coordinates
func (g *Grid) canMoveTo(x, y int) bool {
	if y < 0 || y >= g.height() || x < 0 || x >= g.width() {
		return false
	}
	return g.cells[y][x] != Wall
}

func (g *Grid) Create() (level.State, error) {
	return &gridState{pos: g.start}, nil
}

// Destroy is a no-op: a grid state holds no external resources.
func (g *Grid) Destroy(level.State) {}

// Move moves the player one cell. w/a/s/d move up, left, down and right;
// upper case is accepted. Successful moves report an empty message.
func (g *Grid) Move(s level.State, input rune) level.MoveResult {
	st := s.(*gridState)
	st.moves++

	newX, newY := st.pos.X, st.pos.Y
	switch unicode.ToLower(input) {
	case 'w':
		newY--
	case 's':
		newY++
	case 'a':
		newX--
	case 'd':
		newX++
	default:
		return level.MoveResult{Message: fmt.Sprintf(g.messages.Invalid, input)}
	}

	if !g.canMoveTo(newX, newY) {
		return level.MoveResult{Message: g.messages.Blocked}
	}

	st.pos = Position{X: newX, Y: newY}
	if g.cells[newY][newX] == Exit {
		st.won = true
		return level.MoveResult{Message: g.messages.Victory, Won: true}
	}
	return level.MoveResult{}
}

// What reports the content of cell (x, y): 0 open, 1 wall, 2 exit.
func (g *Grid) What(_ level.State, x, y int) level.QueryResult {
	if y < 0 || y >= g.height() || x < 0 || x >= g.width() {
		return level.Failure(fmt.Sprintf("cell (%d,%d) is outside the maze", x, y))
	}
	return level.Value(int(g.cells[y][x]))
}

func (g *Grid) X(s level.State) level.QueryResult {
	return level.Value(s.(*gridState).pos.X)
}

func (g *Grid) Y(s level.State) level.QueryResult {
	return level.Value(s.(*gridState).pos.Y)
}

func (g *Grid) Width(level.State) level.QueryResult { return level.Value(g.width()) }

func (g *Grid) Height(level.State) level.QueryResult { return level.Value(g.height()) }
