// Package domain resolves the setting named in a project config.
package domain

import (
	"errors"
	"fmt"
	"sort"

	"worldloom/internal/config"
	"worldloom/internal/domain/frontier"
	"worldloom/internal/engine"
)

var ErrUnknownDomain = errors.New("unknown domain")

type builder struct {
	build  func(schema *config.Schema) (engine.Domain, error)
	schema []byte
}

var registry = map[string]builder{
	frontier.Name: {build: frontier.New, schema: frontier.SchemaYAML},
}

// Names lists the registered domains in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup builds the named domain. A nil schema selects the domain's
// built-in schema.
func Lookup(name string, schema *config.Schema) (engine.Domain, error) {
	b, ok := registry[name]
	if !ok {
		return engine.Domain{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownDomain, name, Names())
	}
	d, err := b.build(schema)
	if err != nil {
		return engine.Domain{}, fmt.Errorf("building domain %s: %w", name, err)
	}
	return d, nil
}

// DefaultSchema returns the raw schema YAML a domain ships with.
func DefaultSchema(name string) ([]byte, error) {
	b, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, name)
	}
	return b.schema, nil
}

// Load resolves the domain of cfg, honoring a schema override.
func Load(cfg *config.ProjectConfig) (engine.Domain, error) {
	var schema *config.Schema
	if path := cfg.SchemaPath(); path != "" {
		var err error
		if schema, err = config.LoadSchema(path); err != nil {
			return engine.Domain{}, err
		}
	}
	return Lookup(cfg.Domain, schema)
}
