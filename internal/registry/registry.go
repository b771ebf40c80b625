package registry

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/lumenlab/lumen/internal/device"
	"github.com/lumenlab/lumen/internal/discovery"
	"github.com/lumenlab/lumen/internal/faults"
	"github.com/lumenlab/lumen/internal/logging"
	"github.com/lumenlab/lumen/internal/protocol"
)

// Searcher is the discovery collaborator. The production implementation is
// discovery.Engine.
type Searcher interface {
	Search(policy discovery.Policy) ([][]byte, error)
}

// NameProvider supplies one candidate alias per call during alias
// assignment. The collision flag tells the provider that its previous
// candidate was already taken and a different one is needed. An empty
// candidate means "use the device id as its own alias".
type NameProvider func(collision bool) string

// Brightness levels used by the alias-assignment choreography.
const (
	dimBright    = 1
	markerBright = 100
)

// Registry is the owner of all known devices and alias bindings.
type Registry struct {
	searcher Searcher

	mu                sync.Mutex
	devices           map[string]*device.Device
	savedAliasToID    map[string]string
	liveAliasToDevice map[string]*device.Device
}

// New builds an empty registry around a searcher.
func New(searcher Searcher) *Registry {
	return &Registry{
		searcher:          searcher,
		devices:           make(map[string]*device.Device),
		savedAliasToID:    make(map[string]string),
		liveAliasToDevice: make(map[string]*device.Device),
	}
}

// Discover runs one discovery pass. All previously known devices are
// closed and dropped first; the pass then parses every returned payload,
// registers the devices it can, and rebuilds the live alias map. It
// returns the number of devices registered.
func (r *Registry) Discover(policy discovery.Policy) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, dev := range r.devices {
		dev.Close()
	}
	r.devices = make(map[string]*device.Device)
	r.liveAliasToDevice = make(map[string]*device.Device)

	payloads, err := r.searcher.Search(policy)
	if err != nil {
		return 0, err
	}

	for _, payload := range payloads {
		props, err := discovery.ParseAdvertisement(payload)
		if err != nil {
			logging.Warn("advertisement discarded", zap.Error(err))
			continue
		}
		id := props["id"]
		if _, exists := r.devices[id]; exists {
			// The same device answered more than once within the pass.
			continue
		}
		dev, err := device.New(props)
		if err != nil {
			logging.Warn("device unreachable, skipped",
				zap.String("device_id", id),
				zap.String("addr", props.Addr()),
				zap.Error(err),
			)
			continue
		}
		r.devices[id] = dev
	}

	r.rebuildAliases()
	logging.Info("discovery pass finished",
		zap.Int("payloads", len(payloads)),
		zap.Int("devices", len(r.devices)),
	)
	return len(r.devices), nil
}

// Devices returns the known devices sorted by id.
func (r *Registry) Devices() []*device.Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*device.Device, 0, len(r.devices))
	for _, dev := range r.devices {
		out = append(out, dev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Resolve finds a device by alias first, then by protocol id.
func (r *Registry) Resolve(nameOrID string) (*device.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if dev, ok := r.liveAliasToDevice[nameOrID]; ok {
		return dev, nil
	}
	if dev, ok := r.devices[nameOrID]; ok {
		return dev, nil
	}
	return nil, faults.Validationf("no known device matches %q", nameOrID)
}

// AliasFor returns the alias bound to a device id, if any.
func (r *Registry) AliasFor(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for alias, bound := range r.savedAliasToID {
		if bound == id {
			return alias, true
		}
	}
	return "", false
}

// Aliases returns a copy of the saved alias bindings.
func (r *Registry) Aliases() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]string, len(r.savedAliasToID))
	for alias, id := range r.savedAliasToID {
		out[alias] = id
	}
	return out
}

// Bind records one alias binding directly. An alias already bound to a
// different device is a duplicate-alias error; rebinding the same device
// is a no-op.
func (r *Registry) Bind(alias, nameOrID string) error {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return faults.Validationf("alias must not be empty")
	}

	dev, err := r.Resolve(nameOrID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if bound, taken := r.savedAliasToID[alias]; taken && bound != dev.ID() {
		return faults.DuplicateAlias(alias)
	}
	r.savedAliasToID[alias] = dev.ID()
	r.liveAliasToDevice[alias] = dev
	return nil
}

// AssignAliases walks every known device and asks the provider to name it.
// The device under assignment is first dimmed, then raised to a bright
// marker so the operator can tell which light is being named. A candidate
// that collides with an existing alias re-invokes the provider with the
// collision flag set until an unused candidate arrives; the empty
// candidate always resolves to the device's own id. Each device is
// restored to its pre-choreography state afterwards, and once every device
// is named they are all switched on.
func (r *Registry) AssignAliases(provider NameProvider) error {
	if provider == nil {
		return faults.Validationf("nil name provider")
	}

	for _, dev := range r.Devices() {
		before := dev.State()

		r.sendBestEffort(dev, func() (*protocol.Command, error) {
			return protocol.SetPower(true, protocol.EffectSudden, 0)
		})
		r.sendBestEffort(dev, func() (*protocol.Command, error) {
			return protocol.SetBrightness(dimBright, protocol.EffectSudden, 0)
		})
		r.sendBestEffort(dev, func() (*protocol.Command, error) {
			return protocol.SetBrightness(markerBright, protocol.EffectSudden, 0)
		})

		collision := false
		for {
			candidate := strings.TrimSpace(provider(collision))
			if candidate == "" {
				candidate = dev.ID()
				r.mu.Lock()
				r.savedAliasToID[candidate] = dev.ID()
				r.mu.Unlock()
				break
			}
			r.mu.Lock()
			bound, taken := r.savedAliasToID[candidate]
			if taken && bound != dev.ID() {
				r.mu.Unlock()
				collision = true
				continue
			}
			r.savedAliasToID[candidate] = dev.ID()
			r.mu.Unlock()
			break
		}

		if before.Bright >= protocol.MinBright {
			r.sendBestEffort(dev, func() (*protocol.Command, error) {
				return protocol.SetBrightness(before.Bright, protocol.EffectSudden, 0)
			})
		}
		r.sendBestEffort(dev, func() (*protocol.Command, error) {
			return protocol.SetPower(before.Power, protocol.EffectSudden, 0)
		})
	}

	r.mu.Lock()
	r.rebuildAliases()
	r.mu.Unlock()

	for _, dev := range r.Devices() {
		r.sendBestEffort(dev, func() (*protocol.Command, error) {
			return protocol.SetPower(true, protocol.EffectSudden, 0)
		})
	}
	return nil
}

// Close cancels every known device.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, dev := range r.devices {
		dev.Close()
	}
	r.devices = make(map[string]*device.Device)
	r.liveAliasToDevice = make(map[string]*device.Device)
}

// rebuildAliases derives the live alias map from the saved bindings and
// the current device map. Caller holds the lock.
func (r *Registry) rebuildAliases() {
	r.liveAliasToDevice = make(map[string]*device.Device)
	for alias, id := range r.savedAliasToID {
		if dev, ok := r.devices[id]; ok {
			r.liveAliasToDevice[alias] = dev
		}
	}
}

// sendBestEffort builds and sends one choreography command, logging
// instead of failing the pass when it cannot be delivered.
func (r *Registry) sendBestEffort(dev *device.Device, build func() (*protocol.Command, error)) {
	cmd, err := build()
	if err != nil {
		logging.Warn("choreography command rejected",
			zap.String("device_id", dev.ID()),
			zap.Error(err),
		)
		return
	}
	if err := dev.Communicate(cmd); err != nil {
		logging.Warn("choreography command not delivered",
			zap.String("device_id", dev.ID()),
			zap.Error(err),
		)
	}
}
