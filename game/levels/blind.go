package levels

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/wricardo/mazed/game/level"
)

const (
	BlindCode           = "test"
	BlindMaxConnections = 2
	BlindMaxDuration    = 10 * time.Second
	BlindMessage        = "Zdi vsude okolo."
)

// Blind is a level without a maze. Every move reports the same message and
// never wins, and every query answers 0.
type Blind struct {
	log zerolog.Logger
}

// NewBlind returns a Blind level writing its diagnostics to logger.
func NewBlind(logger zerolog.Logger) *Blind {
	return &Blind{log: logger}
}

// BlindDescriptor returns the registration record of the built-in "test"
// level.
func BlindDescriptor(logger zerolog.Logger) level.Descriptor {
	return level.Descriptor{
		Code:           BlindCode,
		Name:           "Test",
		Description:    "Walls all around. Nothing to see and no way out.",
		MaxConnections: BlindMaxConnections,
		MaxDuration:    BlindMaxDuration,
		Level:          NewBlind(logger),
	}
}

type blindState struct {
	_ byte
}

func (b *Blind) Create() (level.State, error) {
	return &blindState{}, nil
}

func (b *Blind) Destroy(level.State) {
	b.log.Info().Msg("ok, freeing")
}

func (b *Blind) Move(level.State, rune) level.MoveResult {
	return level.MoveResult{Message: BlindMessage}
}

func (b *Blind) What(level.State, int, int) level.QueryResult { return level.Value(0) }

func (b *Blind) X(level.State) level.QueryResult { return level.Value(0) }

func (b *Blind) Y(level.State) level.QueryResult { return level.Value(0) }

func (b *Blind) Width(level.State) level.QueryResult { return level.Value(0) }

func (b *Blind) Height(level.State) level.QueryResult { return level.Value(0) }
