// Package config loads the gamelist configuration file: the database
// location, logging, the configured systems and optional metadata field
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentic-research/gamelist/api"
	"github.com/agentic-research/gamelist/internal/log"
	"github.com/agentic-research/gamelist/internal/pathid"
	"github.com/hashicorp/hcl/v2/hclsimple"
)

// ErrUnknownSystem is returned by System for an id that is not configured.
var ErrUnknownSystem = errors.New("unknown system")

// DefaultDatabase is used when neither the file nor a flag names a database.
const DefaultDatabase = "~/.gamelist/catalog.db"

// File mirrors the HCL layout of the configuration file.
type File struct {
	Database  string          `hcl:"database,optional"`
	LogLevel  string          `hcl:"log_level,optional"`
	LogFormat string          `hcl:"log_format,optional"`
	LogFile   string          `hcl:"log_file,optional"`
	Systems   []SystemBlock   `hcl:"system,block"`
	Metadata  []MetadataBlock `hcl:"metadata,block"`
}

type SystemBlock struct {
	ID         string   `hcl:"id,label"`
	Path       string   `hcl:"path"`
	Extensions []string `hcl:"extensions"`
}

// MetadataBlock replaces the built-in field list of one kind ("game" or
// "folder").
type MetadataBlock struct {
	Kind   string       `hcl:"kind,label"`
	Fields []FieldBlock `hcl:"field,block"`
}

type FieldBlock struct {
	Key     string  `hcl:"key,label"`
	Type    string  `hcl:"type"`
	Default *string `hcl:"default,optional"`
}

// Config is a validated configuration.
type Config struct {
	Path      string
	Database  string
	LogLevel  string
	LogFormat string
	LogFile   string

	systems map[string]api.System
	decls   api.Declarations
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Database: pathid.ExpandHome(DefaultDatabase),
		systems:  map[string]api.System{},
		decls:    api.DefaultDeclarations(),
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/gamelist/systems.hcl, falling back
// to ~/.config/gamelist/systems.hcl.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "gamelist", "systems.hcl")
	}
	return pathid.ExpandHome("~/.config/gamelist/systems.hcl")
}

// Load decodes and validates the file at path.
func Load(path string) (*Config, error) {
	var f File
	if err := hclsimple.DecodeFile(path, nil, &f); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg, err := FromFile(f)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// FromFile validates a decoded file.
func FromFile(f File) (*Config, error) {
	cfg := Default()
	if f.Database != "" {
		cfg.Database = pathid.ExpandHome(f.Database)
	}
	cfg.LogLevel = f.LogLevel
	if _, err := log.ParseFormat(f.LogFormat); err != nil {
		return nil, err
	}
	cfg.LogFormat = f.LogFormat
	cfg.LogFile = pathid.ExpandHome(f.LogFile)

	for _, sb := range f.Systems {
		if _, dup := cfg.systems[sb.ID]; dup {
			return nil, fmt.Errorf("system %q defined twice", sb.ID)
		}
		if sb.Path == "" {
			return nil, fmt.Errorf("system %q: path is required", sb.ID)
		}
		for _, ext := range sb.Extensions {
			if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
				return nil, fmt.Errorf("system %q: extension %q must start with a dot", sb.ID, ext)
			}
		}
		cfg.systems[sb.ID] = api.System{
			ID:         sb.ID,
			Root:       pathid.ExpandHome(sb.Path),
			Extensions: sb.Extensions,
		}
	}

	seen := make(map[string]bool)
	for _, mb := range f.Metadata {
		if seen[mb.Kind] {
			return nil, fmt.Errorf("metadata %q defined twice", mb.Kind)
		}
		seen[mb.Kind] = true

		fields := make([]api.FieldDecl, 0, len(mb.Fields))
		for _, fb := range mb.Fields {
			t, err := api.ParseFieldType(fb.Type)
			if err != nil {
				return nil, fmt.Errorf("metadata %q field %q: %w", mb.Kind, fb.Key, err)
			}
			fields = append(fields, api.FieldDecl{Key: fb.Key, Type: t, Default: fb.Default})
		}

		switch mb.Kind {
		case "game":
			cfg.decls.Game = fields
		case "folder":
			cfg.decls.Folder = fields
		default:
			return nil, fmt.Errorf("metadata %q: kind must be game or folder", mb.Kind)
		}
	}
	return cfg, nil
}

// System returns the configured system id.
func (c *Config) System(id string) (api.System, error) {
	sys, ok := c.systems[id]
	if !ok {
		return api.System{}, fmt.Errorf("%w %q", ErrUnknownSystem, id)
	}
	return sys, nil
}

// Systems returns every configured system ordered by id.
func (c *Config) Systems() []api.System {
	out := make([]api.System, 0, len(c.systems))
	for _, sys := range c.systems {
		out = append(out, sys)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Declarations returns the metadata fields: the built-in ones, with each
// kind replaced by its metadata block when present.
func (c *Config) Declarations() api.Declarations {
	return c.decls
}
