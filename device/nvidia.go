package device

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// EnvVisibleDevices restricts and renumbers the accelerators a process sees.
const EnvVisibleDevices = "CUDA_VISIBLE_DEVICES"

// NvidiaSMIProber lists NVIDIA GPUs through the nvidia-smi binary.
type NvidiaSMIProber struct {
	// Binary overrides the nvidia-smi executable, looked up on PATH when empty.
	Binary string
}

// Probe returns the visible GPUs. A host without nvidia-smi has no GPUs.
func (p *NvidiaSMIProber) Probe(ctx context.Context) ([]Device, error) {
	binary := p.Binary
	if binary == "" {
		binary = "nvidia-smi"
	}
	path, err := exec.LookPath(binary)
	if errors.Is(err, exec.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, path,
		"--query-gpu=index,name,memory.total",
		"--format=csv,noheader,nounits")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", binary, err)
	}

	devices, err := parseQuery(out)
	if err != nil {
		return nil, err
	}
	visible, set := os.LookupEnv(EnvVisibleDevices)
	if !set {
		return devices, nil
	}
	return filterVisible(devices, visible), nil
}

// parseQuery parses "index, name, memory" CSV lines.
func parseQuery(out []byte) ([]Device, error) {
	var devices []Device
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 3 {
			return nil, fmt.Errorf("unexpected nvidia-smi line %q", line)
		}
		index, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("unexpected nvidia-smi index in %q: %w", line, err)
		}
		// Memory is reported as "[N/A]" on some virtualized GPUs.
		memory, _ := strconv.ParseUint(strings.TrimSpace(fields[2]), 10, 64)
		devices = append(devices, Device{
			Kind:      CUDA,
			Index:     index,
			Name:      strings.TrimSpace(fields[1]),
			MemoryMiB: memory,
		})
	}
	return devices, scanner.Err()
}

// filterVisible keeps the devices listed in a CUDA_VISIBLE_DEVICES value, in
// that order, renumbered from zero. Parsing stops at the first unknown entry
// the same way the CUDA runtime does.
func filterVisible(devices []Device, visible string) []Device {
	visible = strings.TrimSpace(visible)
	if visible == "" {
		return nil
	}

	byIndex := make(map[int]Device, len(devices))
	for _, d := range devices {
		byIndex[d.Index] = d
	}

	var filtered []Device
	for _, entry := range strings.Split(visible, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(entry))
		if err != nil || i < 0 {
			break
		}
		d, ok := byIndex[i]
		if !ok {
			break
		}
		d.Index = len(filtered)
		filtered = append(filtered, d)
	}
	return filtered
}
