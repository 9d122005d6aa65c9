package taint

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/takin-dev/takin/ir"
)

// Positions a taint transfer can read from or write to, besides
// argument indices.
const (
	PosBase   = -1
	PosResult = -2
)

// Pos is a transfer endpoint: an argument index, or one of the "base"
// and "result" markers.
type Pos int

func (p *Pos) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var i int
	if err := unmarshal(&i); err == nil {
		*p = Pos(i)
		return nil
	}
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	switch s {
	case "base":
		*p = PosBase
	case "result":
		*p = PosResult
	default:
		return fmt.Errorf("invalid taint position %q", s)
	}
	return nil
}

// Source marks calls to Method as producing a taint object of Type.
type Source struct {
	Method string `yaml:"method"`
	Type   string `yaml:"type"`

	method *ir.Method
	typ    ir.Type
}

// Transfer propagates taint between positions of calls to Method,
// re-tagged with Type.
type Transfer struct {
	Method string `yaml:"method"`
	From   Pos    `yaml:"from"`
	To     Pos    `yaml:"to"`
	Type   string `yaml:"type"`

	method *ir.Method
	typ    ir.Type
}

// Sink marks argument Index of calls to Method as a taint sink.
type Sink struct {
	Method string `yaml:"method"`
	Index  int    `yaml:"index"`

	method *ir.Method
}

// Config is the taint specification: sources, transfers and sinks.
// Methods are identified as "Class.name".
type Config struct {
	Sources   []Source   `yaml:"sources"`
	Transfers []Transfer `yaml:"transfers"`
	Sinks     []Sink     `yaml:"sinks"`
}

// LoadConfig reads and resolves a taint configuration file against the
// program. Any unresolvable method or type is a configuration error.
func LoadConfig(path string, program *ir.Program) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read taint config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal taint config %s: %w", path, err)
	}
	if err := cfg.resolve(program); err != nil {
		return nil, fmt.Errorf("invalid taint config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) resolve(program *ir.Program) error {
	resolveMethod := func(sig string) (*ir.Method, error) {
		m := program.MethodBySignature(sig)
		if m == nil {
			return nil, fmt.Errorf("unknown method %q", sig)
		}
		return m, nil
	}
	resolveType := func(name string) (ir.Type, error) {
		t := program.TypeByName(name)
		if t == nil {
			return nil, fmt.Errorf("unknown type %q", name)
		}
		return t, nil
	}

	var err error
	for i := range c.Sources {
		s := &c.Sources[i]
		if s.method, err = resolveMethod(s.Method); err != nil {
			return err
		}
		if s.typ, err = resolveType(s.Type); err != nil {
			return err
		}
	}
	for i := range c.Transfers {
		t := &c.Transfers[i]
		if t.method, err = resolveMethod(t.Method); err != nil {
			return err
		}
		if t.typ, err = resolveType(t.Type); err != nil {
			return err
		}
		switch {
		case t.From == PosBase && t.To == PosResult:
		case t.From >= 0 && (t.To == PosBase || t.To == PosResult):
		default:
			return fmt.Errorf("unsupported transfer %d -> %d on %s", t.From, t.To, t.Method)
		}
	}
	for i := range c.Sinks {
		s := &c.Sinks[i]
		if s.method, err = resolveMethod(s.Method); err != nil {
			return err
		}
		if s.Index < 0 {
			return fmt.Errorf("negative sink index on %s", s.Method)
		}
	}
	return nil
}
