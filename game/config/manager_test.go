package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mazed/game/level"
	"github.com/wricardo/mazed/game/levels"
	"github.com/wricardo/mazed/game/registry"
)

const tardisYAML = `code: tardis
name: Bigger on the inside
description: A corridor with an exit.
max_connections: 3
max_duration: 60
layout:
  - "#####"
  - "#S.E#"
  - "#####"
messages:
  victory: "Out at last."
`

const mirrorJSON = `{
  "code": "mirror",
  "kind": "test",
  "max_connections": 0,
  "max_duration": 0
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml grid", func(t *testing.T) {
		path := writeFile(t, dir, "tardis.yaml", tardisYAML)
		lf, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "tardis", lf.Code)
		assert.Equal(t, KindGrid, lf.Kind)
		assert.Equal(t, 3, lf.MaxConnections)
		assert.Equal(t, 60, lf.MaxDuration)
		assert.Equal(t, "Out at last.", lf.Messages.Victory)
		assert.Equal(t, path, lf.Source)
	})

	t.Run("json test kind", func(t *testing.T) {
		lf, err := LoadFile(writeFile(t, dir, "mirror.json", mirrorJSON))
		require.NoError(t, err)
		assert.Equal(t, "mirror", lf.Code)
		assert.Equal(t, KindTest, lf.Kind)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "nope.yaml"))
		assert.ErrorIs(t, err, ErrLevelNotFound)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := LoadFile(writeFile(t, dir, "level.toml", "code = 'x'"))
		assert.ErrorIs(t, err, ErrUnsupported)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadFile(writeFile(t, dir, "broken.yml", "code: [unterminated"))
		assert.Error(t, err)
	})
}

func TestValidateLevelFile(t *testing.T) {
	grid := []string{"SE", ".."}
	tests := []struct {
		name string
		lf   LevelFile
		ok   bool
	}{
		{"valid grid", LevelFile{Code: "a", Layout: grid}, true},
		{"valid test kind", LevelFile{Code: "b", Kind: KindTest}, true},
		{"missing code", LevelFile{Layout: grid}, false},
		{"code with space", LevelFile{Code: "a b", Layout: grid}, false},
		{"negative connections", LevelFile{Code: "a", Layout: grid, MaxConnections: -1}, false},
		{"negative duration", LevelFile{Code: "a", Layout: grid, MaxDuration: -5}, false},
		{"unknown kind", LevelFile{Code: "a", Kind: "hex"}, false},
		{"test kind with layout", LevelFile{Code: "a", Kind: KindTest, Layout: grid}, false},
		{"grid without layout", LevelFile{Code: "a"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lf := tt.lf
			err := ValidateLevelFile(&lf)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidLevel)
		})
	}
}

func TestDescriptor(t *testing.T) {
	lf := &LevelFile{Code: "tardis", Kind: KindGrid, MaxConnections: 3, MaxDuration: 60, Layout: []string{"SE", ".."}}
	d, err := Descriptor(lf, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "tardis", d.Name)
	assert.Equal(t, 60*time.Second, d.MaxDuration)
	assert.IsType(t, &levels.Grid{}, d.Level)
	assert.NoError(t, d.Validate())
}

func TestPopulate(t *testing.T) {
	t.Run("built-in level without directory", func(t *testing.T) {
		m, err := NewManager("", zerolog.Nop())
		require.NoError(t, err)

		reg := registry.New()
		require.NoError(t, m.Populate(reg))
		d, err := reg.Resolve(levels.BlindCode)
		require.NoError(t, err)
		assert.Equal(t, 2, d.MaxConnections)
		assert.Equal(t, 10*time.Second, d.MaxDuration)
	})

	t.Run("files are registered", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "tardis.yaml", tardisYAML)
		writeFile(t, dir, "mirror.json", mirrorJSON)
		writeFile(t, dir, "README.md", "not a level")

		m, err := NewManager(dir, zerolog.Nop())
		require.NoError(t, err)
		reg := registry.New()
		require.NoError(t, m.Populate(reg))
		assert.Equal(t, 3, reg.Len())

		d, err := reg.Resolve("tardis")
		require.NoError(t, err)
		assert.Equal(t, "Bigger on the inside", d.Name)

		lf, err := m.Get("mirror")
		require.NoError(t, err)
		assert.Equal(t, KindTest, lf.Kind)

		_, err = m.Get("missing")
		assert.ErrorIs(t, err, ErrLevelNotFound)
	})

	t.Run("file reusing built-in code", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "test.yaml", "code: test\nkind: test\n")

		m, err := NewManager(dir, zerolog.Nop())
		require.NoError(t, err)
		err = m.Populate(registry.New())
		var dup *level.DuplicateCodeError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "test", dup.Code)
	})

	t.Run("invalid file aborts", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "bad.yaml", "code: bad\nlayout: [\"S.\", \"..\"]\n")

		m, err := NewManager(dir, zerolog.Nop())
		require.NoError(t, err)
		assert.ErrorIs(t, m.Populate(registry.New()), ErrInvalidLevel)
	})
}

func TestNewManagerMissingDir(t *testing.T) {
	_, err := NewManager(filepath.Join(t.TempDir(), "absent"), zerolog.Nop())
	assert.Error(t, err)

	file := writeFile(t, t.TempDir(), "plain.yaml", tardisYAML)
	_, err = NewManager(file, zerolog.Nop())
	assert.Error(t, err)
}

func TestValidateDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a_tardis.yaml", tardisYAML)
	writeFile(t, dir, "b_tardis_again.yml", tardisYAML)
	writeFile(t, dir, "c_builtin.yaml", "code: test\nkind: test\n")
	writeFile(t, dir, "d_invalid.json", `{"code": "x", "layout": ["S#", "#E"]}`)

	results, err := ValidateDir(dir)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, "tardis", results[0].Code)
	assert.ErrorIs(t, results[1].Err, level.ErrDuplicateCode)
	assert.ErrorIs(t, results[2].Err, level.ErrDuplicateCode)
	assert.ErrorIs(t, results[3].Err, ErrInvalidLevel)
}
