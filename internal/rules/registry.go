package rules

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/albapepper/scoracle-games/internal/game"
)

// GameConfig holds the tunable parameters of one game type.
type GameConfig struct {
	Name           string `yaml:"name"`
	Kind           Kind   `yaml:"kind"`
	Target         int    `yaml:"target"`
	DrawEliminates bool   `yaml:"draw_eliminates"`
	TeamsPerEntry  int    `yaml:"teams_per_entry"`
}

type fileConfig struct {
	Games map[string]GameConfig `yaml:"games"`
}

// Registry maps normalized game type slugs to their rules.
type Registry struct {
	games map[string]GameConfig
}

// DefaultRegistry returns the built-in game types.
func DefaultRegistry() *Registry {
	return &Registry{games: map[string]GameConfig{
		"last-man-standing": {Name: "Last Man Standing", Kind: KindElimination, TeamsPerEntry: 1},
		"race-to-33":        {Name: "Race to 33", Kind: KindCumulative, Target: DefaultTarget, TeamsPerEntry: 1},
	}}
}

// LoadRegistry reads game types from a YAML file layered over the defaults.
// An empty path yields the defaults.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return DefaultRegistry(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry parses rules YAML layered over the defaults.
func ParseRegistry(data []byte) (*Registry, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}

	reg := DefaultRegistry()
	for key, gc := range fc.Games {
		slug := game.NormalizeSlug(key)
		if slug == "" {
			return nil, fmt.Errorf("game type %q: empty slug", key)
		}
		switch gc.Kind {
		case KindElimination, KindCumulative:
		default:
			return nil, fmt.Errorf("game type %q: unsupported kind %q", key, gc.Kind)
		}
		if gc.TeamsPerEntry <= 0 {
			gc.TeamsPerEntry = 1
		}
		if gc.Kind == KindCumulative && gc.Target <= 0 {
			gc.Target = DefaultTarget
		}
		if gc.Name == "" {
			gc.Name = key
		}
		reg.games[slug] = gc
	}
	return reg, nil
}

// Config returns the parameters for a game type slug.
func (r *Registry) Config(slug string) (GameConfig, error) {
	gc, ok := r.games[game.NormalizeSlug(slug)]
	if !ok {
		return GameConfig{}, fmt.Errorf("%q: %w", slug, ErrUnknownGameType)
	}
	return gc, nil
}

// Strategy returns the strategy for a game type slug.
func (r *Registry) Strategy(slug string) (Strategy, error) {
	gc, err := r.Config(slug)
	if err != nil {
		return nil, err
	}
	return gc.Strategy(), nil
}

// Strategy builds the strategy described by the config.
func (gc GameConfig) Strategy() Strategy {
	if gc.Kind == KindCumulative {
		return Cumulative{Target: gc.Target}
	}
	return Elimination{DrawEliminates: gc.DrawEliminates}
}

// Slugs lists the registered game types in sorted order.
func (r *Registry) Slugs() []string {
	out := make([]string, 0, len(r.games))
	for s := range r.games {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
