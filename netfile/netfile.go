// Package netfile parses a YAML net description into the net-building
// calls of package gspn, the way the teacher corpus's petrifile/v1 loader
// turns a YAML document into calls against its own net builder.
package netfile

import (
	"fmt"
	"io"
	"math/rand"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"gspn"
	"gspn/samplers"
)

// Document is the on-disk shape of a net description.
type Document struct {
	Name        string             `yaml:"name"`
	Types       []string           `yaml:"types"`
	Places      []PlaceSpec        `yaml:"places"`
	Transitions []TransitionSpec   `yaml:"transitions"`
	Arcs        []ArcSpec          `yaml:"arcs"`
}

type PlaceSpec struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Policy string `yaml:"policy"` // "FIFO" (default) or "LIFO"
}

type TransitionSpec struct {
	Name     string        `yaml:"name"`
	Kind     string        `yaml:"kind"` // "immediate" or "timed"
	Priority int           `yaml:"priority"`
	Weight   float64       `yaml:"weight"`
	Sampler  *SamplerSpec  `yaml:"sampler"`
}

// SamplerSpec names one of the built-in samplers package distributions.
type SamplerSpec struct {
	Dist string  `yaml:"dist"` // "deterministic", "uniform", "exponential"
	D    float64 `yaml:"d"`
	Lo   float64 `yaml:"lo"`
	Hi   float64 `yaml:"hi"`
	Rate float64 `yaml:"rate"`
}

type ArcSpec struct {
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"` // "test", "inhibitor", "destructor", "constructor", "transfer"
	Transition string `yaml:"transition"`
	Place      string `yaml:"place"`  // test, inhibitor, destructor, constructor
	Input      string `yaml:"input"`  // transfer only
	Output     string `yaml:"output"` // transfer only
}

// Load parses r as a net description and issues the gspn net-building
// calls in dependency order (types, then places, then transitions, then
// arcs), surfacing gspn's own sentinel errors rather than loader-specific
// ones beyond position context.
func Load(r io.Reader, rng *rand.Rand, logger *zap.Logger) (*gspn.Net, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("netfile: parsing document: %w", err)
	}

	net := gspn.NewNet(doc.Name, rng, logger)

	types := make(map[string]*gspn.TokenType, len(doc.Types))
	for _, name := range doc.Types {
		t, err := net.AddType(name)
		if err != nil {
			return nil, fmt.Errorf("netfile: type %q: %w", name, err)
		}
		types[name] = t
	}

	for _, ps := range doc.Places {
		typ, ok := types[ps.Type]
		if !ok {
			return nil, fmt.Errorf("netfile: place %q references unknown type %q", ps.Name, ps.Type)
		}
		policy := gspn.FIFO
		if ps.Policy == "LIFO" {
			policy = gspn.LIFO
		}
		if _, err := net.AddPlace(ps.Name, typ, policy); err != nil {
			return nil, fmt.Errorf("netfile: place %q: %w", ps.Name, err)
		}
	}

	for _, ts := range doc.Transitions {
		switch ts.Kind {
		case "immediate":
			if _, err := net.AddImmediateTransition(ts.Name, ts.Priority, ts.Weight); err != nil {
				return nil, fmt.Errorf("netfile: transition %q: %w", ts.Name, err)
			}
		case "timed":
			sampler, err := buildSampler(ts.Sampler, rng)
			if err != nil {
				return nil, fmt.Errorf("netfile: transition %q: %w", ts.Name, err)
			}
			if _, err := net.AddTimedTransition(ts.Name, sampler); err != nil {
				return nil, fmt.Errorf("netfile: transition %q: %w", ts.Name, err)
			}
		default:
			return nil, fmt.Errorf("netfile: transition %q has unknown kind %q", ts.Name, ts.Kind)
		}
	}

	for _, as := range doc.Arcs {
		var err error
		switch as.Kind {
		case "test":
			_, err = net.AddTest(as.Name, as.Transition, as.Place)
		case "inhibitor":
			_, err = net.AddInhibitor(as.Name, as.Place, as.Transition)
		case "destructor":
			_, err = net.AddDestructor(as.Name, as.Transition, as.Place)
		case "constructor":
			_, err = net.AddConstructor(as.Name, as.Transition, as.Place)
		case "transfer":
			_, err = net.AddTransfer(as.Name, as.Transition, as.Input, as.Output)
		default:
			err = fmt.Errorf("netfile: arc %q has unknown kind %q", as.Name, as.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("netfile: arc %q: %w", as.Name, err)
		}
	}

	return net, nil
}

func buildSampler(spec *SamplerSpec, rng *rand.Rand) (gspn.Sampler, error) {
	if spec == nil {
		return nil, fmt.Errorf("netfile: timed transition missing a sampler")
	}
	switch spec.Dist {
	case "deterministic":
		return samplers.Deterministic(spec.D), nil
	case "uniform":
		return samplers.Uniform(rng, spec.Lo, spec.Hi), nil
	case "exponential":
		return samplers.Exponential(rng, spec.Rate), nil
	default:
		return nil, fmt.Errorf("netfile: unknown sampler distribution %q", spec.Dist)
	}
}
