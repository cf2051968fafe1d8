package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/mazed/game/level"
	"github.com/wricardo/mazed/game/levels"
	"github.com/wricardo/mazed/game/registry"
	xlog "github.com/wricardo/mazed/internal/log"
)

var (
	ErrLevelNotFound = errors.New("level definition not found")
	ErrInvalidLevel  = errors.New("invalid level definition")
	ErrUnsupported   = errors.New("unsupported level file format")
)

// Manager handles level definition loading and caching
type Manager struct {
	levelsDir string
	logger    zerolog.Logger
	files     map[string]*LevelFile
	mu        sync.RWMutex
}

// NewManager creates a manager reading definitions from levelsDir. An empty
// levelsDir means no definition files; only the built-in level is served.
func NewManager(levelsDir string, logger zerolog.Logger) (*Manager, error) {
	if levelsDir != "" {
		info, err := os.Stat(levelsDir)
		if err != nil {
			return nil, fmt.Errorf("levels directory %s: %w", levelsDir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("levels directory %s is not a directory", levelsDir)
		}
	}

	return &Manager{
		levelsDir: levelsDir,
		logger:    logger,
		files:     make(map[string]*LevelFile),
	}, nil
}

// IsLevelFile reports whether name has a supported definition extension.
func IsLevelFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// LoadFile reads, decodes and validates a single definition file.
func LoadFile(path string) (*LevelFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrLevelNotFound)
		}
		return nil, fmt.Errorf("failed to read level file: %w", err)
	}

	var lf LevelFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &lf)
	case ".json":
		err = json.Unmarshal(data, &lf)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupported)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := ValidateLevelFile(&lf); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	lf.Source = path
	return &lf, nil
}

// ValidateLevelFile checks a definition and fills in its default kind.
func ValidateLevelFile(lf *LevelFile) error {
	if lf.Code == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidLevel)
	}
	if strings.IndexFunc(lf.Code, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: code %q must not contain whitespace", ErrInvalidLevel, lf.Code)
	}
	if lf.MaxConnections < 0 {
		return fmt.Errorf("%w: max_connections must be >= 0, got %d", ErrInvalidLevel, lf.MaxConnections)
	}
	if lf.MaxDuration < 0 {
		return fmt.Errorf("%w: max_duration must be >= 0, got %d", ErrInvalidLevel, lf.MaxDuration)
	}

	if lf.Kind == "" {
		lf.Kind = KindGrid
	}
	switch lf.Kind {
	case KindGrid:
		cfg := levels.GridConfig{Layout: lf.Layout, Messages: lf.Messages}
		if err := levels.ValidateGridConfig(cfg); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidLevel, err)
		}
	case KindTest:
		if len(lf.Layout) > 0 {
			return fmt.Errorf("%w: kind %q takes no layout", ErrInvalidLevel, lf.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidLevel, lf.Kind)
	}
	return nil
}

// Descriptor builds the registration record for lf.
func Descriptor(lf *LevelFile, logger zerolog.Logger) (level.Descriptor, error) {
	d := level.Descriptor{
		Code:           lf.Code,
		Name:           lf.Name,
		Description:    lf.Description,
		MaxConnections: lf.MaxConnections,
		MaxDuration:    time.Duration(lf.MaxDuration) * time.Second,
	}

	switch lf.Kind {
	case KindTest:
		d.Level = levels.NewBlind(logger.With().Str(xlog.FieldLevel, lf.Code).Logger())
	case KindGrid, "":
		grid, err := levels.NewGrid(levels.GridConfig{Layout: lf.Layout, Messages: lf.Messages})
		if err != nil {
			return level.Descriptor{}, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
		}
		d.Level = grid
	default:
		return level.Descriptor{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidLevel, lf.Kind)
	}
	if d.Name == "" {
		d.Name = d.Code
	}
	return d, nil
}

// LoadAll loads every definition file in the levels directory, sorted by
// file name. It stops at the first invalid file.
func (m *Manager) LoadAll() ([]*LevelFile, error) {
	if m.levelsDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(m.levelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read levels directory: %w", err)
	}

	var files []*LevelFile
	for _, entry := range entries {
		if entry.IsDir() || !IsLevelFile(entry.Name()) {
			continue
		}
		lf, err := LoadFile(filepath.Join(m.levelsDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, lf)
	}

	m.mu.Lock()
	m.files = make(map[string]*LevelFile, len(files))
	for _, lf := range files {
		m.files[lf.Code] = lf
	}
	m.mu.Unlock()

	return files, nil
}

// Get returns a previously loaded definition by level code.
func (m *Manager) Get(code string) (*LevelFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lf, ok := m.files[code]
	if !ok {
		return nil, fmt.Errorf("%q: %w", code, ErrLevelNotFound)
	}
	return lf, nil
}

// Populate registers the built-in test level followed by every definition
// in the levels directory. A repeated code fails with
// *level.DuplicateCodeError.
func (m *Manager) Populate(reg *registry.Registry) error {
	if err := reg.Register(levels.BlindDescriptor(m.logger.With().Str(xlog.FieldLevel, levels.BlindCode).Logger())); err != nil {
		return err
	}

	files, err := m.LoadAll()
	if err != nil {
		return err
	}

	for _, lf := range files {
		d, err := Descriptor(lf, m.logger)
		if err != nil {
			return fmt.Errorf("%s: %w", lf.Source, err)
		}
		if err := reg.Register(d); err != nil {
			return fmt.Errorf("%s: %w", lf.Source, err)
		}
		m.logger.Debug().
			Str(xlog.FieldLevel, d.Code).
			Str("file", lf.Source).
			Int("max_connections", d.MaxConnections).
			Dur("max_duration", d.MaxDuration).
			Msg("registered level")
	}
	return nil
}

// ValidateDir validates every definition file in dir independently and
// reports one result per file. Codes repeated across files, or equal to the
// built-in level's code, are reported as duplicates.
func ValidateDir(dir string) ([]FileResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read levels directory: %w", err)
	}

	seen := map[string]string{levels.BlindCode: "built-in"}
	var results []FileResult
	for _, entry := range entries {
		if entry.IsDir() || !IsLevelFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		res := FileResult{File: path}

		lf, err := LoadFile(path)
		switch {
		case err != nil:
			res.Err = err
		case seen[lf.Code] != "":
			res.Code = lf.Code
			res.Err = fmt.Errorf("%w (first defined in %s)", &level.DuplicateCodeError{Code: lf.Code}, seen[lf.Code])
		default:
			res.Code = lf.Code
			seen[lf.Code] = path
		}
		results = append(results, res)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })
	return results, nil
}
