package adapter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	m "zest.dev/pkg/zest/internal/model"
)

const resultExt = ".yaml"

// ResultStore persists the result tree of each root suite.
type ResultStore interface {
	// Save writes run to dir, replacing any previous run of the same root.
	Save(dir m.Path, run m.Run) error
	// LoadAll reads every stored run in dir, ordered by root name. A missing
	// dir yields no runs.
	LoadAll(dir m.Path) ([]m.Run, error)
}

// YAMLResultStore stores one YAML document per root suite.
type YAMLResultStore struct {
	fs FSAdapter
}

// NewYAMLResultStore constructs a YAMLResultStore backed by fs.
func NewYAMLResultStore(fs FSAdapter) *YAMLResultStore {
	return &YAMLResultStore{fs: fs}
}

// Save implements ResultStore.
func (s *YAMLResultStore) Save(dir m.Path, run m.Run) error {
	if run.Root == nil {
		return fmt.Errorf("run %s has no result", run.ID)
	}

	data, err := yaml.Marshal(run)
	if err != nil {
		slog.Error("Failed to encode run", "run", run.ID, "error", err)
		return fmt.Errorf("encode run %s: %w", run.ID, err)
	}

	path := s.fs.JoinPath(string(dir), run.Root.Name+resultExt)
	if err := s.fs.WriteFile(path, data, 0o600); err != nil {
		slog.Error("Failed to write run", "path", path, "error", err)
		return fmt.Errorf("write %s: %w", path, err)
	}

	slog.Debug("saved run", "path", path, "run", run.ID)

	return nil
}

// LoadAll implements ResultStore.
func (s *YAMLResultStore) LoadAll(dir m.Path) ([]m.Run, error) {
	if _, err := s.fs.FileInfo(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}

	var paths []string

	err := s.fs.Walk(dir, false, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && strings.HasSuffix(path, resultExt) {
			paths = append(paths, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	sort.Strings(paths)

	runs := make([]m.Run, 0, len(paths))

	for _, path := range paths {
		run, err := s.load(m.Path(path))
		if err != nil {
			return nil, err
		}

		runs = append(runs, run)
	}

	return runs, nil
}

func (s *YAMLResultStore) load(path m.Path) (m.Run, error) {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return m.Run{}, fmt.Errorf("read %s: %w", path, err)
	}

	var run m.Run
	if err := yaml.Unmarshal(data, &run); err != nil {
		slog.Error("Failed to decode run", "path", path, "error", err)
		return m.Run{}, fmt.Errorf("decode %s: %w", filepath.Base(string(path)), err)
	}

	if run.Root == nil {
		return m.Run{}, fmt.Errorf("decode %s: missing root result", filepath.Base(string(path)))
	}

	run.Root.Seal()

	return run, nil
}
