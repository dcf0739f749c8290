package device

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
)

// Prober lists the accelerators attached to the host.
type Prober interface {
	Probe(ctx context.Context) ([]Device, error)
}

// Selector caches the probed accelerators and hands out devices.
type Selector struct {
	mu         sync.Mutex
	prober     Prober
	devices    []Device
	probed     bool
	generators map[int]*generator
}

// generator keeps the PCG source next to its Rand so SeedAll can reseed
// handles callers already hold.
type generator struct {
	src *rand.PCG
	rng *rand.Rand
}

// NewSelector returns a Selector that probes accelerators with prober on first use.
func NewSelector(prober Prober) *Selector {
	return &Selector{prober: prober}
}

// Devices returns the accelerators found by the prober. A failed probe is
// logged and treated as no accelerators so callers fall back to the CPU.
func (s *Selector) Devices(ctx context.Context) []Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.devicesLocked(ctx))
}

func (s *Selector) devicesLocked(ctx context.Context) []Device {
	if s.probed {
		return s.devices
	}
	devices, err := s.prober.Probe(ctx)
	if err != nil {
		logrus.WithError(err).Warn("error probing accelerators, falling back to cpu")
		devices = nil
	}
	s.devices = devices
	s.probed = true
	logrus.WithField("count", len(devices)).Debug("probed accelerators")
	return devices
}

// Refresh drops the cached probe result.
func (s *Selector) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probed = false
	s.devices = nil
}

// Count returns the number of visible accelerators.
func (s *Selector) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(s.Devices(ctx)), nil
}

// Available reports whether at least one accelerator is visible.
func (s *Selector) Available(ctx context.Context) bool {
	return len(s.Devices(ctx)) > 0
}

// Get returns accelerator index when useAccelerator is set and accelerators
// exist, and the CPU otherwise. The CPU occupies slot 0 when there is no
// accelerator, so any index >= max(count, 1) or below zero is rejected.
func (s *Selector) Get(ctx context.Context, useAccelerator bool, index int) (Device, error) {
	devices := s.Devices(ctx)
	count := len(devices)

	if index < 0 || index >= max(count, 1) {
		return Device{}, fmt.Errorf("device %d requested, %d accelerator(s) available: %w", index, count, ErrDeviceIndex)
	}
	if useAccelerator && count > 0 {
		d := devices[index]
		logrus.WithField("device", d.String()).Info("using accelerator")
		return d, nil
	}

	logrus.WithField("device", CPUDevice.String()).Info("using cpu")
	return CPUDevice, nil
}

// SeedAll reseeds one generator per visible accelerator.
func (s *Selector) SeedAll(ctx context.Context, seed uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	devices := s.devicesLocked(ctx)
	if s.generators == nil {
		s.generators = make(map[int]*generator, len(devices))
	}
	for _, d := range devices {
		// Each device gets its own stream so kernels on different cards do not
		// draw identical numbers.
		g, ok := s.generators[d.Index]
		if !ok {
			src := rand.NewPCG(0, 0)
			g = &generator{src: src, rng: rand.New(src)}
			s.generators[d.Index] = g
		}
		g.src.Seed(uint64(seed), uint64(d.Index))
	}
	return nil
}

// Generator returns the generator seeded for accelerator index by SeedAll.
func (s *Selector) Generator(index int) (*rand.Rand, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.generators[index]
	if !ok {
		return nil, false
	}
	return g.rng, true
}
