package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/collider/internal/core/observability/log"
	"github.com/zeusync/collider/internal/core/systems/physics"
)

// Config describes a scene run: objects placed in memory, entities bound to
// them, collision rules between entities and a script of moves.
type Config struct {
	LogLevel string         `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	Resolve  ResolveConfig  `json:"resolve,omitempty" yaml:"resolve,omitempty"`
	Watch    WatchConfig    `json:"watch,omitempty" yaml:"watch,omitempty"`
	Objects  []ObjectConfig `json:"objects" yaml:"objects"`
	Entities []EntityConfig `json:"entities" yaml:"entities"`
	Rules    []RuleConfig   `json:"rules,omitempty" yaml:"rules,omitempty"`
	Script   []StepConfig   `json:"script,omitempty" yaml:"script,omitempty"`
}

// ResolveConfig tunes the in-memory finder. Durations in JSON are
// nanoseconds; YAML also accepts "250ms".
type ResolveConfig struct {
	Delay   time.Duration `json:"delay,omitempty" yaml:"delay,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Poll    time.Duration `json:"poll,omitempty" yaml:"poll,omitempty"`
}

type WatchConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
	// Signals lists rule names whose collision signal is watched.
	Signals []string `json:"signals,omitempty" yaml:"signals,omitempty"`
}

type ObjectConfig struct {
	Name     string    `json:"name" yaml:"name"`
	Position []float64 `json:"position" yaml:"position"`
}

type EntityConfig struct {
	ID     string    `json:"id" yaml:"id"`
	Object string    `json:"object" yaml:"object"`
	Size   []float64 `json:"size" yaml:"size"`
}

// RuleConfig applies Enter to the subject's object when it starts colliding
// with any of Others, and Exit when it stops.
type RuleConfig struct {
	Name    string      `json:"name" yaml:"name"`
	Subject string      `json:"subject" yaml:"subject"`
	Others  []string    `json:"others" yaml:"others"`
	Enter   VisualState `json:"enter,omitempty" yaml:"enter,omitempty"`
	Exit    VisualState `json:"exit,omitempty" yaml:"exit,omitempty"`
}

// StepConfig is applied as one batch, then the runner waits Delay.
type StepConfig struct {
	Moves []MoveConfig  `json:"moves" yaml:"moves"`
	Delay time.Duration `json:"delay,omitempty" yaml:"delay,omitempty"`
}

type MoveConfig struct {
	Object string    `json:"object" yaml:"object"`
	To     []float64 `json:"to" yaml:"to"`
}

// LoadJSON loads config from JSON reader.
func LoadJSON(r io.Reader) (*Config, error) {
	var c Config
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode scene json: %w", err)
	}
	return &c, nil
}

// LoadYAML loads config from YAML reader.
func LoadYAML(r io.Reader) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode scene yaml: %w", err)
	}
	return &c, nil
}

// LoadFile picks the decoder by extension; anything but .json is YAML.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadJSON(f)
	}
	return LoadYAML(f)
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	objects := make(map[string]bool, len(c.Objects))
	for i, o := range c.Objects {
		if o.Name == "" {
			add("objects[%d]: name is required", i)
		} else if objects[o.Name] {
			add("objects[%d]: duplicate name %q", i, o.Name)
		}
		objects[o.Name] = true
		if _, err := physics.FromSlice(o.Position); err != nil {
			add("objects[%d] position: %w", i, err)
		}
	}

	entities := make(map[string]bool, len(c.Entities))
	for i, e := range c.Entities {
		if e.ID == "" {
			add("entities[%d]: id is required", i)
		} else if entities[e.ID] {
			add("entities[%d]: duplicate id %q", i, e.ID)
		}
		entities[e.ID] = true
		if e.Object == "" {
			add("entities[%d]: object is required", i)
		}
		size, err := physics.FromSlice(e.Size)
		if err != nil {
			add("entities[%d] size: %w", i, err)
			continue
		}
		if err := physics.ValidateSize(size); err != nil {
			add("entities[%d] size: %w", i, err)
		}
	}

	rules := make(map[string]bool, len(c.Rules))
	for i, r := range c.Rules {
		if r.Name == "" {
			add("rules[%d]: name is required", i)
		} else if rules[r.Name] {
			add("rules[%d]: duplicate name %q", i, r.Name)
		}
		rules[r.Name] = true
		if !entities[r.Subject] {
			add("rules[%d]: unknown subject %q", i, r.Subject)
		}
		for _, o := range r.Others {
			if !entities[o] {
				add("rules[%d]: unknown entity %q", i, o)
			}
		}
	}

	for i, s := range c.Script {
		if s.Delay < 0 {
			add("script[%d]: negative delay", i)
		}
		for j, m := range s.Moves {
			if !objects[m.Object] {
				add("script[%d].moves[%d]: unknown object %q", i, j, m.Object)
			}
			if _, err := physics.FromSlice(m.To); err != nil {
				add("script[%d].moves[%d] to: %w", i, j, err)
			}
		}
	}

	for _, name := range c.Watch.Signals {
		if !rules[name] {
			add("watch: unknown rule %q", name)
		}
	}
	return errors.Join(errs...)
}
