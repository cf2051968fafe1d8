package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/wricardo/mazed/game/levels"
)

// ErrNoPath is returned by Solve when the exit cannot be reached.
var ErrNoPath = errors.New("no path to the exit")

// Solution describes a completed run.
type Solution struct {
	Path    string
	Message string
}

// Solve reads the maze, computes the shortest path from the current
// position to an exit and walks it. It returns once the server ends the
// session on the final move.
func Solve(ctx context.Context, c *Client) (Solution, error) {
	maze, err := c.MazeShaped(ctx)
	if err != nil {
		return Solution{}, fmt.Errorf("read maze: %w", err)
	}
	x, err := c.X(ctx)
	if err != nil {
		return Solution{}, fmt.Errorf("read position: %w", err)
	}
	y, err := c.Y(ctx)
	if err != nil {
		return Solution{}, fmt.Errorf("read position: %w", err)
	}

	cells := make([][]levels.Cell, len(maze))
	for row := range maze {
		cells[row] = make([]levels.Cell, len(maze[row]))
		for col, v := range maze[row] {
			cells[row][col] = levels.Cell(v)
		}
	}
	if y < 0 || y >= len(cells) || x < 0 || x >= len(cells[y]) {
		return Solution{}, fmt.Errorf("position (%d,%d) is outside the maze", x, y)
	}

	path, ok := levels.SolveCells(cells, levels.Position{X: x, Y: y})
	if !ok || path == "" {
		return Solution{}, ErrNoPath
	}

	for i, dir := range path {
		err := c.Move(ctx, dir)
		if err == nil {
			continue
		}
		var serr *ServerError
		if errors.As(err, &serr) && serr.Over() && i == len(path)-1 {
			return Solution{Path: path, Message: serr.Message}, nil
		}
		return Solution{Path: path[:i]}, fmt.Errorf("move %d (%c): %w", i+1, dir, err)
	}
	return Solution{Path: path}, fmt.Errorf("%w: walked %q without finishing", ErrNoPath, path)
}
