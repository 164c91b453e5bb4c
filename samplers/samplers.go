// Package samplers provides a handful of example nullary samplers
// satisfying gspn.Sampler, built as thin adapters over
// gonum.org/v1/gonum/stat/distuv. They exist for tests, examples and the
// netfile loader's built-in distribution names — the core consumes any
// func() float64, never this package specifically.
package samplers

import (
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// Deterministic always returns d.
func Deterministic(d float64) func() float64 {
	return func() float64 { return d }
}

// expRandSource adapts a *math/rand.Rand to the golang.org/x/exp/rand.Source
// interface that gonum's distuv package expects.
type expRandSource struct{ r *rand.Rand }

func (s expRandSource) Uint64() uint64   { return s.r.Uint64() }
func (s expRandSource) Seed(seed uint64) { s.r.Seed(int64(seed)) }

// Uniform draws from the continuous uniform distribution on [lo, hi).
func Uniform(rng *rand.Rand, lo, hi float64) func() float64 {
	d := distuv.Uniform{Min: lo, Max: hi, Src: expRandSource{rng}}
	return d.Rand
}

// Exponential draws from the exponential distribution with the given rate
// (mean 1/rate).
func Exponential(rng *rand.Rand, rate float64) func() float64 {
	d := distuv.Exponential{Rate: rate, Src: expRandSource{rng}}
	return d.Rand
}
