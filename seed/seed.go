// Package seed makes experiment runs reproducible by seeding every random
// source a run draws from.
package seed

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/sardine-ai/go-experiment-kit/device"
	"github.com/sirupsen/logrus"
)

// ErrSeedOutOfRange is returned for seeds outside the unsigned 32 bit range.
var ErrSeedOutOfRange = errors.New("seed out of range")

const (
	MinSeed int64 = 0
	MaxSeed int64 = math.MaxUint32
)

// Seeder is a random source that can be reseeded.
type Seeder interface {
	Seed(seed uint32)
}

// SeederFunc adapts a function to Seeder.
type SeederFunc func(seed uint32)

func (f SeederFunc) Seed(seed uint32) { f(seed) }

// The sources are reseeded in place so handles taken from General and
// Numeric before Set follow the new seed.
var (
	pcgSource    = rand.NewPCG(0, 0)
	chachaSource = rand.NewChaCha8([32]byte{})
	general      = rand.New(pcgSource)
	numeric      = rand.New(chachaSource)

	mu       sync.Mutex
	seeders  = map[string]Seeder{}
	current  uint32
	isSeeded bool
)

// General returns the general purpose generator. It is not safe for
// concurrent use.
func General() *rand.Rand {
	return general
}

// Numeric returns the generator used to fill numeric arrays. It is not safe
// for concurrent use.
func Numeric() *rand.Rand {
	return numeric
}

// Register adds a named random source that Set reseeds. Registering a name
// again replaces the previous source.
func Register(name string, s Seeder) {
	mu.Lock()
	defer mu.Unlock()
	seeders[name] = s
}

// Unregister removes a source added with Register.
func Unregister(name string) {
	mu.Lock()
	defer mu.Unlock()
	delete(seeders, name)
}

// Current returns the seed applied by the last successful Set.
func Current() (uint32, bool) {
	mu.Lock()
	defer mu.Unlock()
	return current, isSeeded
}

// Set seeds the general purpose and numeric generators and every registered
// source. Accelerator generators are seeded too when useAccelerator is set and
// an accelerator is present.
func Set(seed int64, useAccelerator bool) error {
	return SetContext(context.Background(), seed, useAccelerator)
}

// SetContext is Set with a context bounding the accelerator probe.
func SetContext(ctx context.Context, seed int64, useAccelerator bool) error {
	if seed < MinSeed || seed > MaxSeed {
		return fmt.Errorf("seed %d is not in bounds, accepted seeds are %d to %d: %w", seed, MinSeed, MaxSeed, ErrSeedOutOfRange)
	}
	s := uint32(seed)

	mu.Lock()
	pcgSource.Seed(uint64(s), uint64(s))
	chachaSource.Seed(chachaKey(s))
	registered := make(map[string]Seeder, len(seeders))
	for name, seeder := range seeders {
		registered[name] = seeder
	}
	current = s
	isSeeded = true
	mu.Unlock()

	// Seeders run unlocked so they may call back into this package.
	for name, seeder := range registered {
		logrus.WithField("source", name).Debug("seeding registered source")
		seeder.Seed(s)
	}

	if useAccelerator && device.Available(ctx) {
		if err := device.SeedAll(ctx, s); err != nil {
			return fmt.Errorf("seeding accelerators: %w", err)
		}
	}

	logrus.WithField("seed", s).Info("random seed set")
	return nil
}

// chachaKey spreads the 32 bit seed over the 256 bit ChaCha8 key.
func chachaKey(s uint32) [32]byte {
	var key [32]byte
	for i := 0; i < len(key); i += 4 {
		binary.LittleEndian.PutUint32(key[i:], s)
	}
	return key
}
