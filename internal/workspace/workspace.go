package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/loopctl/internal/ctxlog"
	"github.com/vk/loopctl/internal/fsutil"
	"github.com/vk/loopctl/internal/source"
	"gopkg.in/yaml.v3"
)

// ErrNotConfigured is returned when the directory holds no readable
// configuration. Callers treat it as "stay inert", not as a failure.
var ErrNotConfigured = errors.New("no loopctl configuration found")

const (
	DefaultProjectFile = "Project.hcl"
	DefaultLiveFile    = "Live.hcl"
)

// FileNames lists the accepted configuration files in lookup order.
var FileNames = []string{"loopctl.hcl", "loopctl.json", "loopctl.yaml", "loopctl.yml"}

// Config is the resolved project configuration.
type Config struct {
	Dir         string
	ProjectFile string
	LiveFile    string
	// Source is the configuration file the values were read from.
	Source string
}

// ProjectPath returns the absolute path of the project unit.
func (c *Config) ProjectPath() string { return filepath.Join(c.Dir, c.ProjectFile) }

// LivePath returns the absolute path of the live unit.
func (c *Config) LivePath() string { return filepath.Join(c.Dir, c.LiveFile) }

// fileConfig mirrors the keys of every supported configuration syntax.
type fileConfig struct {
	Project *string  `hcl:"project,optional" yaml:"project"`
	Live    *string  `hcl:"live,optional" yaml:"live"`
	Track   *string  `hcl:"track,optional" yaml:"track"`
	Remain  hcl.Body `hcl:",remain" yaml:"-"`
}

// Loader reads the configuration of a project directory.
type Loader struct{}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load finds and parses the configuration file in dir. It returns
// ErrNotConfigured when dir is empty, missing, or has no configuration file.
func (l *Loader) Load(ctx context.Context, dir string) (*Config, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Workspace loader started.", "dir", dir)

	if dir == "" {
		return nil, ErrNotConfigured
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		logger.Debug("Project directory is not usable.", "dir", dir, "error", err)
		return nil, ErrNotConfigured
	}

	store := source.NewStore(dir)
	for _, name := range FileNames {
		if !store.Exists(name) {
			continue
		}
		path := filepath.Join(dir, name)
		logger.Debug("Configuration file found.", "path", path)

		raw, err := decodeFile(path)
		if err != nil {
			return nil, err
		}
		cfg, err := resolve(dir, path, raw)
		if err != nil {
			return nil, err
		}
		logger.Debug("Workspace configuration resolved.", "project", cfg.ProjectFile, "live", cfg.LiveFile)
		return cfg, nil
	}

	return nil, ErrNotConfigured
}

func decodeFile(path string) (*fileConfig, error) {
	var raw fileConfig

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return &raw, nil
	}

	parser := hclparse.NewParser()
	var (
		file  *hcl.File
		diags hcl.Diagnostics
	)
	if filepath.Ext(path) == ".json" {
		file, diags = parser.ParseJSONFile(path)
	} else {
		file, diags = parser.ParseHCLFile(path)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %w", path, diags)
	}

	diags = gohcl.DecodeBody(file.Body, nil, &raw)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %w", path, diags)
	}
	return &raw, nil
}

func resolve(dir, source string, raw *fileConfig) (*Config, error) {
	cfg := &Config{
		Dir:         dir,
		ProjectFile: DefaultProjectFile,
		LiveFile:    DefaultLiveFile,
		Source:      source,
	}

	switch {
	case raw.Project != nil && *raw.Project != "":
		cfg.ProjectFile = *raw.Project
	case raw.Track != nil && *raw.Track != "":
		cfg.ProjectFile = *raw.Track
	}
	if raw.Live != nil && *raw.Live != "" {
		cfg.LiveFile = *raw.Live
	}
	cfg.ProjectFile = filepath.Clean(cfg.ProjectFile)
	cfg.LiveFile = filepath.Clean(cfg.LiveFile)

	for _, name := range []string{cfg.ProjectFile, cfg.LiveFile} {
		if _, err := fsutil.ResolveUnder(dir, name); err != nil {
			return nil, fmt.Errorf("invalid configuration in %s: %w", source, err)
		}
	}
	if cfg.ProjectFile == cfg.LiveFile {
		return nil, fmt.Errorf("invalid configuration in %s: project and live units are both %q", source, cfg.ProjectFile)
	}
	return cfg, nil
}
