package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"unicode"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mazed/client"
)

func clientFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Value:   "localhost:4000",
			Usage:   "address of the game server",
			Sources: cli.EnvVars("MAZED_SERVER"),
		},
		&cli.StringFlag{
			Name:     "user",
			Usage:    "player name",
			Required: true,
			Sources:  cli.EnvVars("MAZED_USER"),
		},
		&cli.StringFlag{
			Name:     "level",
			Usage:    "level code",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "wait",
			Usage: "wait for a free slot when the level is full",
		},
	}
}

func dialFromFlags(ctx context.Context, cmd *cli.Command) (*client.Client, error) {
	return client.Dial(ctx, cmd.String("server"), client.Options{
		User:  cmd.String("user"),
		Level: cmd.String("level"),
		Wait:  cmd.Bool("wait"),
	})
}

func playCommand(in io.Reader, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "play interactively; every w, a, s or d read from stdin is a move",
		Flags: clientFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := dialFromFlags(ctx, cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			return play(ctx, c, in, out)
		},
	}
}

// play sends one move per non-space character read from in until the
// session ends or in is exhausted.
func play(ctx context.Context, c *client.Client, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "maze is %dx%d\n", c.Width(), c.Height())

	r := bufio.NewReader(in)
	for {
		ch, _, err := r.ReadRune()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if unicode.IsSpace(ch) {
			continue
		}

		err = c.Move(ctx, ch)
		var serr *client.ServerError
		switch {
		case err == nil:
			x, _ := c.X(ctx)
			y, _ := c.Y(ctx)
			fmt.Fprintf(out, "%c -> (%d,%d)\n", ch, x, y)
		case errors.As(err, &serr) && serr.Over():
			fmt.Fprintf(out, "%c: game over: %s\n", ch, serr.Message)
			return nil
		case errors.As(err, &serr):
			fmt.Fprintf(out, "%c: %s\n", ch, serr.Message)
		default:
			return err
		}
	}
}

func solveCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "solve",
		Usage: "read the maze and walk the shortest path to the exit",
		Flags: clientFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := dialFromFlags(ctx, cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			sol, err := client.Solve(ctx, c)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "solved in %d moves: %s\n%s\n", len(sol.Path), sol.Path, sol.Message)
			return nil
		},
	}
}
