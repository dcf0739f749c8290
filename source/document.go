package source

import (
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// document holds the parsed and raw form of one YAML file. Every repository
// embeds it so a failed refresh never clobbers the last good copy.
type document struct {
	sync.RWMutex
	data    map[string]interface{}
	rawData []byte
}

// GetData returns the top level value stored under key.
func (d *document) GetData(key string) (interface{}, bool) {
	d.RLock()
	defer d.RUnlock()
	value, ok := d.data[key]
	return value, ok
}

// GetRawData returns the raw YAML bytes of the last successful refresh.
func (d *document) GetRawData() []byte {
	d.RLock()
	defer d.RUnlock()
	return d.rawData
}

// replace parses raw outside the lock and swaps it in only on success.
func (d *document) replace(raw []byte) error {
	var parsed map[string]interface{}
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		logrus.Debug("error unmarshalling file")
		return err
	}
	if parsed == nil {
		parsed = map[string]interface{}{}
	}

	d.Lock()
	d.data = parsed
	d.rawData = raw
	d.Unlock()
	return nil
}
