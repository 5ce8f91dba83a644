package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StateFileName is the name of the persisted configuration inside the state directory.
const StateFileName = "codeql_config"

const (
	stateDirPerm  = 0o755
	stateFilePerm = 0o644
)

// YAML core schema tags.
const (
	tagString = "!!str"
	tagBool   = "!!bool"
	tagNull   = "!!null"
)

// Store loads and persists the configuration for one CI job.
type Store struct {
	// StateDir holds the persisted JSON copy.
	StateDir string
	// Workspace is the repository checkout root.
	Workspace string
	// Logger receives load diagnostics; nil disables logging.
	Logger *slog.Logger
}

// StatePath returns the location of the persisted configuration.
func (s *Store) StatePath() string {
	return filepath.Join(s.StateDir, StateFileName)
}

// Load returns the persisted configuration when one exists. Otherwise it
// parses the YAML file at path (relative to the workspace; empty for
// defaults) and persists the result.
func (s *Store) Load(path string) (*Config, error) {
	persisted, err := s.loadPersisted()
	if err != nil {
		return nil, err
	}

	if persisted != nil {
		s.logger().Info("loaded persisted configuration", slog.String("path", s.StatePath()))

		return persisted, nil
	}

	cfg, err := s.initConfig(path)
	if err != nil {
		return nil, err
	}

	s.logger().Info("initialized configuration",
		slog.String("name", cfg.Name),
		slog.Int("additional_queries", len(cfg.AdditionalQueries)),
		slog.Int("external_queries", len(cfg.ExternalQueries)),
		slog.Int("additional_suites", len(cfg.AdditionalSuites)),
	)

	err = s.Save(cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadPersisted returns the configuration saved by an earlier invocation.
func (s *Store) LoadPersisted() (*Config, error) {
	cfg, err := s.loadPersisted()
	if err != nil {
		return nil, err
	}

	if cfg == nil {
		return nil, fmt.Errorf("%s: %w", s.StatePath(), os.ErrNotExist)
	}

	return cfg, nil
}

// Save writes cfg as JSON to the state directory.
func (s *Store) Save(cfg *Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}

	err = os.MkdirAll(s.StateDir, stateDirPerm)
	if err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	err = os.WriteFile(s.StatePath(), data, stateFilePerm)
	if err != nil {
		return fmt.Errorf("write configuration: %w", err)
	}

	return nil
}

func (s *Store) loadPersisted() (*Config, error) {
	data, err := os.ReadFile(s.StatePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil //nolint:nilnil // absence is a valid state.
		}

		return nil, fmt.Errorf("read persisted configuration: %w", err)
	}

	cfg := New()

	err = json.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode persisted configuration: %w", err)
	}

	return cfg, nil
}

func (s *Store) initConfig(path string) (*Config, error) {
	if path == "" {
		return New(), nil
	}

	workspace, err := filepath.Abs(s.Workspace)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}

	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(workspace, resolved)
	}

	resolved = filepath.Clean(resolved)

	if !isWithin(resolved, workspace) {
		return nil, fileError(ErrOutsideWorkspace, resolved, "is outside of the workspace")
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fileError(ErrNotFound, resolved, "does not exist")
		}

		return nil, fmt.Errorf("read configuration %s: %w", resolved, err)
	}

	return Parse(data, resolved, workspace)
}

// Parse validates a YAML document property by property. file names the
// source in error messages and workspace anchors local query paths.
func Parse(data []byte, file, workspace string) (*Config, error) {
	cfg := New()

	var doc yaml.Node

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("parse configuration %s: %w", file, err)
	}

	if doc.Kind == 0 || len(doc.Content) == 0 {
		return cfg, nil
	}

	root := doc.Content[0]
	if isScalar(root, tagNull) {
		return cfg, nil
	}

	if root.Kind != yaml.MappingNode {
		return nil, fileError(ErrInvalidProperty, file, "is invalid: the document must be a mapping")
	}

	props := mappingValues(root)

	if node, ok := props[propName]; ok {
		if !isString(node) || node.Value == "" {
			return nil, nameInvalid(file)
		}

		cfg.Name = node.Value
	}

	if node, ok := props[propDisableDefaultQueries]; ok {
		var flag bool
		if !isScalar(node, tagBool) || node.Decode(&flag) != nil {
			return nil, disableDefaultQueriesInvalid(file)
		}

		cfg.DisableDefaultQueries = flag
	}

	if node, ok := props[propQueries]; ok {
		err = parseQueries(cfg, node, file, workspace)
		if err != nil {
			return nil, err
		}
	}

	if node, ok := props[propPathsIgnore]; ok {
		paths, valid := nonEmptyStrings(node)
		if !valid {
			return nil, pathsIgnoreInvalid(file)
		}

		cfg.PathsIgnore = paths
	}

	if node, ok := props[propPaths]; ok {
		paths, valid := nonEmptyStrings(node)
		if !valid {
			return nil, pathsInvalid(file)
		}

		cfg.Paths = paths
	}

	return cfg, nil
}

func parseQueries(cfg *Config, node *yaml.Node, file, workspace string) error {
	if node.Kind != yaml.SequenceNode {
		return queriesInvalid(file)
	}

	for _, entry := range node.Content {
		if entry.Kind != yaml.MappingNode {
			return queryUsesInvalid(file, "")
		}

		uses, ok := mappingValues(entry)[propUses]
		if !ok || !isString(uses) {
			return queryUsesInvalid(file, "")
		}

		err := cfg.AddQuery(file, workspace, uses.Value)
		if err != nil {
			return err
		}
	}

	return nil
}

func mappingValues(node *yaml.Node) map[string]*yaml.Node {
	values := make(map[string]*yaml.Node, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		values[node.Content[i].Value] = node.Content[i+1]
	}

	return values
}

func nonEmptyStrings(node *yaml.Node) ([]string, bool) {
	if node.Kind != yaml.SequenceNode {
		return nil, false
	}

	values := make([]string, 0, len(node.Content))

	for _, item := range node.Content {
		if !isString(item) || item.Value == "" {
			return nil, false
		}

		values = append(values, item.Value)
	}

	return values, true
}

func isString(node *yaml.Node) bool {
	return isScalar(node, tagString)
}

func isScalar(node *yaml.Node, tag string) bool {
	return node.Kind == yaml.ScalarNode && node.ShortTag() == tag
}

func (s *Store) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return s.Logger
}
