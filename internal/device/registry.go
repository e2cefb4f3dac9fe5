package device

import (
	"sort"
	"sync"
	"time"

	"github.com/lumensync/lumen-core/internal/color"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the authoritative in-memory set of known devices.
//
// Discovery creates and refreshes entries; the dispatcher applies optimistic
// state updates on command success and marks devices offline on exhausted
// retries. Readers always get deep copies, so a snapshot taken while
// discovery is running is safe to hold.
//
// The registry is deliberately not persisted: the LAN is re-scanned on
// startup and stale addresses would be worse than none.
//
// All public methods are thread-safe.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Device
	logger  Logger

	// subsMu guards the change subscribers separately from mu, so
	// callbacks run outside the registry lock and may call back in.
	subsMu  sync.Mutex
	subs    map[int]func(Device)
	nextSub int
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]*Device),
		subs:    make(map[int]func(Device)),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// OnChange registers a callback fired after every state-affecting
// mutation, with a copy of the updated device. Any number of subscribers
// may register; each receives every change. The returned function removes
// this subscription. Callbacks run on the mutating goroutine and must
// return quickly.
func (r *Registry) OnChange(fn func(Device)) (remove func()) {
	r.subsMu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.subsMu.Unlock()

	return func() {
		r.subsMu.Lock()
		delete(r.subs, id)
		r.subsMu.Unlock()
	}
}

// Upsert creates the device or refreshes an existing entry in place.
//
// For an existing device the identity and capability fields are taken from
// d (empty Name and IP are ignored so a sparse discovery response cannot
// blank out known values) while the cached State is preserved. FirstSeen is
// set once; LastSeen always advances. Returns a copy of the stored device
// and whether it was newly created.
func (r *Registry) Upsert(d *Device) (*Device, bool, error) {
	if d == nil || d.ID == "" {
		return nil, false, ErrInvalidDevice
	}

	now := time.Now().UTC()

	r.mu.Lock()
	existing, ok := r.devices[d.ID]
	var stored *Device
	if !ok {
		stored = d.DeepCopy()
		if stored.FirstSeen.IsZero() {
			stored.FirstSeen = now
		}
		stored.LastSeen = now
		r.devices[d.ID] = stored
	} else {
		if d.Name != "" {
			existing.Name = d.Name
		}
		if d.Model != "" {
			existing.Model = d.Model
		}
		if d.IP != "" {
			existing.IP = d.IP
		}
		existing.LANEnabled = d.LANEnabled
		existing.Online = d.Online
		existing.Simulated = d.Simulated
		existing.Capabilities = *d.Capabilities.clone()
		if d.Versions != (Versions{}) {
			existing.Versions = d.Versions
		}
		existing.LastSeen = now
		stored = existing
	}
	cpy := stored.DeepCopy()
	r.mu.Unlock()

	if !ok {
		r.logger.Info("device registered", "id", cpy.ID, "name", cpy.Name, "model", cpy.Model, "ip", cpy.IP)
	} else {
		r.logger.Debug("device refreshed", "id", cpy.ID, "ip", cpy.IP)
	}
	r.notify(*cpy)
	return cpy, !ok, nil
}

// Get retrieves a device by ID.
// Returns ErrDeviceNotFound if the device does not exist.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) Get(id string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return d.DeepCopy(), nil
}

// List returns all devices as deep copies, sorted by ID so callers that map
// zone colours onto device order get a stable assignment.
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, *d.DeepCopy())
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices
}

// Subset returns copies of the devices with the given IDs, in input order.
// Unknown IDs are skipped, so a sync session survives a device vanishing
// from the registry mid-run.
func (r *Registry) Subset(ids []string) []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]Device, 0, len(ids))
	for _, id := range ids {
		if d, ok := r.devices[id]; ok {
			devices = append(devices, *d.DeepCopy())
		}
	}
	return devices
}

// SetState replaces the cached state of a device, clamping brightness and
// Kelvin so the cache always satisfies the documented ranges. A device that
// reports or accepts a command is by definition reachable, so Online is set.
func (r *Registry) SetState(id string, st State) error {
	st.Brightness = color.ClampBrightness(st.Brightness)
	st.Kelvin = color.ClampKelvin(st.Kelvin)

	r.mu.Lock()
	d, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()
		return ErrDeviceNotFound
	}
	d.State = st
	d.Online = true
	d.LastSeen = time.Now().UTC()
	cpy := d.DeepCopy()
	r.mu.Unlock()

	r.logger.Debug("device state updated", "id", id, "on", st.On, "brightness", st.Brightness)
	r.notify(*cpy)
	return nil
}

// SetCapabilities replaces the capability set of a device. Discovery calls
// this when a status response reveals what the device actually supports.
func (r *Registry) SetCapabilities(id string, caps Capabilities) error {
	r.mu.Lock()
	d, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()
		return ErrDeviceNotFound
	}
	d.Capabilities = *caps.clone()
	r.mu.Unlock()

	r.logger.Debug("device capabilities updated", "id", id)
	return nil
}

// MarkOffline flags a device as unreachable after exhausted command retries.
// The device stays in the registry; a later discovery sighting brings it
// back online.
func (r *Registry) MarkOffline(id string) error {
	r.mu.Lock()
	d, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()
		return ErrDeviceNotFound
	}
	if !d.Online {
		r.mu.Unlock()
		return nil
	}
	d.Online = false
	cpy := d.DeepCopy()
	r.mu.Unlock()

	r.logger.Warn("device marked offline", "id", id, "ip", cpy.IP)
	r.notify(*cpy)
	return nil
}

// Clear removes every device. The registry stays usable; the next discovery
// repopulates it.
func (r *Registry) Clear() {
	r.mu.Lock()
	n := len(r.devices)
	r.devices = make(map[string]*Device)
	r.mu.Unlock()

	r.logger.Info("device registry cleared", "removed", n)
}

// Count returns the number of known devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Stats summarises the registry for monitoring.
type Stats struct {
	Total     int
	Online    int
	Simulated int
	ByModel   map[string]int
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		Total:   len(r.devices),
		ByModel: make(map[string]int),
	}
	for _, d := range r.devices {
		if d.Online {
			stats.Online++
		}
		if d.Simulated {
			stats.Simulated++
		}
		stats.ByModel[d.Model]++
	}
	return stats
}

// notify invokes every change subscriber outside the registry lock.
func (r *Registry) notify(d Device) {
	r.subsMu.Lock()
	fns := make([]func(Device), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.subsMu.Unlock()

	for _, fn := range fns {
		fn(d)
	}
}

// clone returns an independent copy of the capability set.
func (c *Capabilities) clone() *Capabilities {
	cpy := *c
	if c.Modes != nil {
		cpy.Modes = make([]string, len(c.Modes))
		copy(cpy.Modes, c.Modes)
	}
	return &cpy
}
