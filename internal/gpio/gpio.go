// Package gpio implements the emulated GPIO backend described in spec §6:
// a JSON file of {"GPIOnn":{"State":"high"|"low"}} entries covering the
// fixed pin-label enumeration, rescanned when its content changes. Device
// plug-ins (siren, magnetic contact sensor) read/write pins through this
// abstraction instead of touching real hardware.
package gpio

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Label enumerates the allowed pin labels from spec §6.
type Label string

const (
	GPIO05 Label = "GPIO05"
	GPIO06 Label = "GPIO06"
	GPIO14 Label = "GPIO14"
	GPIO15 Label = "GPIO15"
	GPIO18 Label = "GPIO18"
	GPIO23 Label = "GPIO23"
	GPIO24 Label = "GPIO24"
	GPIO25 Label = "GPIO25"
)

// ValidLabels is the fixed pin-label enumeration; NewController uses it to
// seed a fresh emulated GPIO file. Devices configuration is checked against
// the same labels by the devicesConfig schema in internal/schema.
var ValidLabels = map[Label]struct{}{
	GPIO05: {}, GPIO06: {}, GPIO14: {}, GPIO15: {}, GPIO18: {}, GPIO23: {}, GPIO24: {}, GPIO25: {},
}

// State is the logical level of a pin.
type State string

const (
	High State = "high"
	Low  State = "low"
)

type pinState struct {
	State State `json:"State"`
}

// Controller is the emulated GPIO backend: an in-memory mirror of a JSON
// file on disk, rescanned on content change and flushed on every write.
type Controller struct {
	mu      sync.Mutex
	path    string
	pins    map[Label]State
	modTime int64
	size    int64
}

// NewController loads (or creates) the emulated GPIO file at path.
func NewController(path string) (*Controller, error) {
	c := &Controller{path: path, pins: make(map[Label]State)}
	if err := c.reload(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		// No file yet: start every known pin low (safe default) and
		// persist it so later reads are stable.
		for label := range ValidLabels {
			c.pins[label] = Low
		}
		if err := c.flushLocked(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Rescan reloads the backing file if its size/mtime changed since the last
// read. Called once per worker tick alongside device polling.
func (c *Controller) Rescan() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := os.Stat(c.path)
	if err != nil {
		return err
	}
	if info.ModTime().UnixNano() == c.modTime && info.Size() == c.size {
		return nil
	}
	return c.reload()
}

// reload must be called with mu held (or during construction before any
// other goroutine has a reference).
func (c *Controller) reload() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}

	var raw map[string]pinState
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("gpio: parsing %s: %w", c.path, err)
	}

	pins := make(map[Label]State, len(raw))
	for k, v := range raw {
		pins[Label(k)] = v.State
	}
	c.pins = pins

	if info, statErr := os.Stat(c.path); statErr == nil {
		c.modTime = info.ModTime().UnixNano()
		c.size = info.Size()
	}
	return nil
}

// Read returns the current level of label, defaulting to Low if unknown.
func (c *Controller) Read(label Label) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.pins[label]; ok {
		return s
	}
	return Low
}

// Write sets label to state and persists the whole pin map.
func (c *Controller) Write(label Label, state State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pins[label] = state
	return c.flushLocked()
}

func (c *Controller) flushLocked() error {
	raw := make(map[string]pinState, len(c.pins))
	for k, v := range c.pins {
		raw[string(k)] = pinState{State: v}
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("gpio: writing %s: %w", c.path, err)
	}
	if info, statErr := os.Stat(c.path); statErr == nil {
		c.modTime = info.ModTime().UnixNano()
		c.size = info.Size()
	}
	return nil
}
