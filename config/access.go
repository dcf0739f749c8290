package config

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a dotted key does not resolve to a value.
var ErrNotFound = errors.New("key not found")

// Get resolves a dotted key such as "trainer.optimizer.lr". Sequence
// elements are addressed by index, e.g. "layers.0.width".
func (c Config) Get(key string) (interface{}, bool) {
	var current interface{} = map[string]interface{}(c)
	for _, part := range strings.Split(key, ".") {
		switch node := current.(type) {
		case map[string]interface{}:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			current = next
		case Config:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			current = next
		case []interface{}:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			current = node[i]
		default:
			return nil, false
		}
	}
	return current, true
}

// Set stores value under a dotted key, creating intermediate mappings as
// needed. It fails on a nil Config, on empty key segments and if an
// intermediate key holds a non-mapping value.
func (c Config) Set(key string, value interface{}) error {
	if c == nil {
		return errors.New("nil config")
	}
	parts := strings.Split(key, ".")
	if slices.Contains(parts, "") {
		return fmt.Errorf("cannot set %q: empty key segment", key)
	}
	node := map[string]interface{}(c)
	for i, part := range parts[:len(parts)-1] {
		next, ok := node[part]
		if !ok {
			child := map[string]interface{}{}
			node[part] = child
			node = child
			continue
		}
		switch child := next.(type) {
		case map[string]interface{}:
			node = child
		case Config:
			node = child
		default:
			return fmt.Errorf("cannot set %q: %q is a %T", key, strings.Join(parts[:i+1], "."), next)
		}
	}
	node[parts[len(parts)-1]] = value
	return nil
}

// Merge deep-merges other into c. Mappings are merged key by key, any other
// value in other replaces the one in c.
func (c Config) Merge(other Config) {
	mergeMaps(c, other)
}

func mergeMaps(dst, src map[string]interface{}) {
	for key, value := range src {
		srcMap, srcIsMap := asMap(value)
		dstMap, dstIsMap := asMap(dst[key])
		if srcIsMap && dstIsMap {
			mergeMaps(dstMap, srcMap)
			continue
		}
		dst[key] = value
	}
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case Config:
		return m, true
	}
	return nil, false
}

// ApplyOverrides applies "dotted.key=value" overrides. Values are decoded as
// YAML so "lr=0.1" yields a float and "tags=[a, b]" a sequence.
func (c Config) ApplyOverrides(overrides []string) error {
	for _, override := range overrides {
		key, raw, ok := strings.Cut(override, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fmt.Errorf("invalid override %q: expected key=value", override)
		}

		var value interface{}
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return fmt.Errorf("invalid override %q: %w", override, err)
		}
		if err := c.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Decode copies the value under key into out, which must be a pointer. An
// empty key decodes the whole document.
func (c Config) Decode(key string, out interface{}) error {
	var value interface{} = c
	if key != "" {
		v, ok := c.Get(key)
		if !ok {
			return fmt.Errorf("%q: %w", key, ErrNotFound)
		}
		value = v
	}

	data, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}
