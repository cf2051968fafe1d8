package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Verb is the keyword of a command.
type Verb string

const (
	VerbUser Verb = "USER"
	VerbLevl Verb = "LEVL"
	VerbWait Verb = "WAIT"
	VerbGetW Verb = "GETW"
	VerbGetH Verb = "GETH"
	VerbGetX Verb = "GETX"
	VerbGetY Verb = "GETY"
	VerbWhat Verb = "WHAT"
	VerbMaze Verb = "MAZE"
	VerbMove Verb = "MOVE"
	VerbQuit Verb = "QUIT"
)

var arity = map[Verb]int{
	VerbUser: 1,
	VerbLevl: 1,
	VerbWait: 0,
	VerbGetW: 0,
	VerbGetH: 0,
	VerbGetX: 0,
	VerbGetY: 0,
	VerbWhat: 2,
	VerbMaze: 0,
	VerbMove: 1,
	VerbQuit: 0,
}

var (
	ErrEmptyCommand   = errors.New("empty command")
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArguments   = errors.New("bad arguments")
)

// Command is one parsed request line.
type Command struct {
	Verb Verb
	Args []string

	// Set for WHAT and MOVE respectively.
	X, Y  int
	Input rune
}

// ParseCommand parses a request line. Verbs are case-insensitive.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrEmptyCommand
	}

	cmd := Command{Verb: Verb(strings.ToUpper(fields[0])), Args: fields[1:]}
	want, ok := arity[cmd.Verb]
	if !ok {
		return Command{}, fmt.Errorf("%w %q", ErrUnknownCommand, fields[0])
	}
	if len(cmd.Args) != want {
		return Command{}, fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrBadArguments, cmd.Verb, want, len(cmd.Args))
	}

	switch cmd.Verb {
	case VerbWhat:
		x, errX := strconv.Atoi(cmd.Args[0])
		y, errY := strconv.Atoi(cmd.Args[1])
		if errX != nil || errY != nil {
			return Command{}, fmt.Errorf("%w: WHAT takes two integers", ErrBadArguments)
		}
		cmd.X, cmd.Y = x, y
	case VerbMove:
		if utf8.RuneCountInString(cmd.Args[0]) != 1 {
			return Command{}, fmt.Errorf("%w: MOVE takes a single character", ErrBadArguments)
		}
		cmd.Input, _ = utf8.DecodeRuneInString(cmd.Args[0])
	}
	return cmd, nil
}

// String encodes the command as a request line without the newline.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return string(c.Verb)
	}
	return string(c.Verb) + " " + strings.Join(c.Args, " ")
}
