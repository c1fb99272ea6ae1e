package ids

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// ErrExhausted is returned when no unused id could be produced.
var ErrExhausted = errors.New("id space exhausted")

// Set is the collection of ids already in use.
type Set map[uint64]struct{}

// Generator produces an id that is not in existing.
type Generator interface {
	Next(existing Set) (uint64, error)
}

// Strategy names accepted by New
const (
	StrategySequential = "sequential"
	StrategyRandom     = "random"
)

// Defaults for the random strategy
const (
	DefaultRandomMax     uint64 = 100000
	DefaultRandomRetries        = 32
)

// New returns the generator for a strategy name. An empty name selects the
// sequential strategy. randomMax is only used by the random strategy, zero
// means DefaultRandomMax.
func New(strategy string, randomMax uint64) (Generator, error) {
	switch strategy {
	case StrategySequential, "":
		return Sequential{}, nil
	case StrategyRandom:
		return NewRandom(randomMax), nil
	default:
		return nil, fmt.Errorf("unknown id strategy: %q (supported: %s, %s)", strategy, StrategySequential, StrategyRandom)
	}
}

// Sequential hands out max(existing)+1.
type Sequential struct{}

// Next implements Generator.
func (Sequential) Next(existing Set) (uint64, error) {
	var highest uint64
	for id := range existing {
		if id > highest {
			highest = id
		}
	}
	if highest == math.MaxUint64 {
		return 0, fmt.Errorf("%w: largest id is %d", ErrExhausted, highest)
	}
	return highest + 1, nil
}

// Random draws ids uniformly from [1, Max].
type Random struct {
	Max     uint64
	Retries int

	// intN returns a value in [0, n); rand.Uint64N when nil
	intN func(n uint64) uint64
}

// NewRandom creates a Random generator with the default retry budget.
func NewRandom(upper uint64) *Random {
	if upper == 0 {
		upper = DefaultRandomMax
	}
	return &Random{Max: upper, Retries: DefaultRandomRetries}
}

// Next implements Generator.
func (r *Random) Next(existing Set) (uint64, error) {
	upper := r.Max
	if upper == 0 {
		upper = DefaultRandomMax
	}
	retries := r.Retries
	if retries <= 0 {
		retries = DefaultRandomRetries
	}
	intN := r.intN
	if intN == nil {
		intN = rand.Uint64N
	}

	for i := 0; i < retries; i++ {
		candidate := intN(upper) + 1
		if _, taken := existing[candidate]; !taken {
			return candidate, nil
		}
	}
	return 0, fmt.Errorf("%w: no free id in [1, %d] after %d attempts", ErrExhausted, upper, retries)
}
