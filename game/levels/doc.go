// Package levels contains the level implementations shipped with mazed.
//
// Two kinds are provided:
//   - Blind, registered under the code "test": a level with no visible maze
//     whose every move bumps into a wall. It exists to exercise the host's
//     lifecycle and resource limits.
//   - Grid, a configurable maze built from a text layout. Walls are '#',
//     open cells '.', the start 'S' and the exit 'E'. The player moves with
//     w/a/s/d and wins on reaching an exit.
//
// Core Types:
//
// Both kinds implement level.Level. Grid also implements level.Prober so
// clients can read the maze cell by cell.
//
// Usage:
//
//	grid, err := levels.NewGrid(levels.GridConfig{
//		Layout: []string{
//			"#####",
//			"#S.E#",
//			"#####",
//		},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	state, _ := grid.Create()
//	defer grid.Destroy(state)
//	result := grid.Move(state, 'd')
package levels
