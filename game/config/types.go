package config

import "github.com/wricardo/mazed/game/levels"

// Level kinds.
const (
	KindGrid = "grid"
	KindTest = "test"
)

// LevelFile is the on-disk definition of one level.
type LevelFile struct {
	Code           string          `json:"code" yaml:"code"`
	Name           string          `json:"name" yaml:"name"`
	Description    string          `json:"description" yaml:"description"`
	Kind           string          `json:"kind" yaml:"kind"`
	MaxConnections int             `json:"max_connections" yaml:"max_connections"`
	MaxDuration    int             `json:"max_duration" yaml:"max_duration"`
	Layout         []string        `json:"layout,omitempty" yaml:"layout,omitempty"`
	Messages       levels.Messages `json:"messages" yaml:"messages"`

	// Source is the file the definition was read from.
	Source string `json:"-" yaml:"-"`
}

// FileResult is the outcome of validating one definition file.
type FileResult struct {
	File string
	Code string
	Err  error
}
