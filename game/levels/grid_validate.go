package levels

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidLayout is wrapped by every layout validation error.
var ErrInvalidLayout = errors.New("invalid grid layout")

// ValidateGridConfig checks a grid configuration for correctness and
// solvability: the layout must be rectangular, contain exactly one start,
// at least one exit, and some exit must be reachable from the start.
func ValidateGridConfig(cfg GridConfig) error {
	if len(cfg.Layout) < MinGridSize || len(cfg.Layout) > MaxGridSize {
		return fmt.Errorf("%w: layout must have between %d and %d rows, got %d",
			ErrInvalidLayout, MinGridSize, MaxGridSize, len(cfg.Layout))
	}

	width := len(cfg.Layout[0])
	if width < MinGridSize || width > MaxGridSize {
		return fmt.Errorf("%w: rows must have between %d and %d cells, got %d",
			ErrInvalidLayout, MinGridSize, MaxGridSize, width)
	}

	starts, exits := 0, 0
	for i, row := range cfg.Layout {
		if len(row) != width {
			return fmt.Errorf("%w: row %d must have %d cells to match row 1, got %d",
				ErrInvalidLayout, i+1, width, len(row))
		}
		for j := 0; j < len(row); j++ {
			switch row[j] {
			case WallChar, OpenChar:
			case StartChar:
				starts++
			case ExitChar:
				exits++
			default:
				return fmt.Errorf("%w: invalid character '%c' at row %d, col %d",
					ErrInvalidLayout, row[j], i+1, j+1)
			}
		}
	}

	if starts != 1 {
		return fmt.Errorf("%w: layout must contain exactly one start (S), got %d", ErrInvalidLayout, starts)
	}
	if exits == 0 {
		return fmt.Errorf("%w: layout must contain at least one exit (E)", ErrInvalidLayout)
	}

	if cfg.Messages.Invalid != "" && !singleQuoteVerb(cfg.Messages.Invalid) {
		return fmt.Errorf("%w: messages.invalid must contain %%q exactly once and no other verb", ErrInvalidLayout)
	}

	if _, ok := ShortestPath(cfg.Layout); !ok {
		return fmt.Errorf("%w: no exit is reachable from the start", ErrInvalidLayout)
	}

	return nil
}

// singleQuoteVerb reports whether format has exactly one verb and it is %q.
func singleQuoteVerb(format string) bool {
	verbs := strings.ReplaceAll(format, "%%", "")
	return strings.Count(verbs, "%") == 1 && strings.Contains(verbs, "%q")
}

var directions = []struct {
	dx, dy int
	key    rune
}{
	{0, -1, 'w'},
	{-1, 0, 'a'},
	{0, 1, 's'},
	{1, 0, 'd'},
}

// ShortestPath returns the w/a/s/d moves of a shortest walk from the start
// to the nearest exit of layout. It reports false if no exit is reachable.
func ShortestPath(layout []string) (string, bool) {
	cells := make([][]Cell, len(layout))
	start := Position{X: -1, Y: -1}
	for y, row := range layout {
		cells[y] = make([]Cell, len(row))
		for x := 0; x < len(row); x++ {
			switch row[x] {
			case WallChar:
				cells[y][x] = Wall
			case ExitChar:
				cells[y][x] = Exit
			case StartChar:
				start = Position{X: x, Y: y}
			}
		}
	}
	if start.X < 0 {
		return "", false
	}
	return SolveCells(cells, start)
}

// SolveCells runs a breadth-first search over cells from start and returns
// the moves leading to the nearest Exit.
func SolveCells(cells [][]Cell, start Position) (string, bool) {
	type step struct {
		from Position
		key  rune
	}

	prev := map[Position]step{start: {from: start}}
	queue := []Position{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cells[cur.Y][cur.X] == Exit {
			var path []rune
			for p := cur; p != start; p = prev[p].from {
				path = append(path, prev[p].key)
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return string(path), true
		}

		for _, d := range directions {
			next := Position{X: cur.X + d.dx, Y: cur.Y + d.dy}
			if next.Y < 0 || next.Y >= len(cells) || next.X < 0 || next.X >= len(cells[next.Y]) {
				continue
			}
			if cells[next.Y][next.X] == Wall {
				continue
			}
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = step{from: cur, key: d.key}
			queue = append(queue, next)
		}
	}
	return "", false
}
