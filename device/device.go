// Package device picks the compute device a training run should use.
package device

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the class of a compute device.
type Kind string

const (
	CPU  Kind = "cpu"
	CUDA Kind = "cuda"
)

// ErrDeviceIndex is returned when the requested device index is not available.
var ErrDeviceIndex = errors.New("device index out of range")

// Device identifies a compute device.
type Device struct {
	Kind      Kind
	Index     int
	Name      string
	MemoryMiB uint64
}

// CPUDevice is the general purpose fallback device.
var CPUDevice = Device{Kind: CPU, Name: "cpu"}

// String formats the device the way training frameworks expect it, e.g. "cuda:1".
func (d Device) String() string {
	if d.Kind == CPU {
		return string(CPU)
	}
	return fmt.Sprintf("%s:%d", d.Kind, d.Index)
}

// IsAccelerator reports whether d is not the CPU.
func (d Device) IsAccelerator() bool {
	return d.Kind != CPU
}

// Parse parses "cpu", "cuda", "gpu", "cuda:N" or "gpu:N".
func Parse(s string) (Device, error) {
	kind, index, hasIndex := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")
	switch kind {
	case "cpu":
		if hasIndex {
			return Device{}, fmt.Errorf("parse device %q: cpu takes no index", s)
		}
		return CPUDevice, nil
	case "cuda", "gpu":
		d := Device{Kind: CUDA}
		if hasIndex {
			i, err := strconv.Atoi(index)
			if err != nil || i < 0 {
				return Device{}, fmt.Errorf("parse device %q: invalid index", s)
			}
			d.Index = i
		}
		return d, nil
	default:
		return Device{}, fmt.Errorf("parse device %q: unknown kind", s)
	}
}

var defaultSelector = NewSelector(&NvidiaSMIProber{})

// Default returns the process wide selector backed by nvidia-smi.
func Default() *Selector {
	return defaultSelector
}

// Get selects a device with the default selector.
func Get(ctx context.Context, useAccelerator bool, index int) (Device, error) {
	return defaultSelector.Get(ctx, useAccelerator, index)
}

// Count returns the number of accelerators visible to the default selector.
func Count(ctx context.Context) (int, error) {
	return defaultSelector.Count(ctx)
}

// Available reports whether the default selector sees any accelerator.
func Available(ctx context.Context) bool {
	return defaultSelector.Available(ctx)
}

// SeedAll seeds one generator per accelerator visible to the default selector.
func SeedAll(ctx context.Context, seed uint32) error {
	return defaultSelector.SeedAll(ctx, seed)
}
