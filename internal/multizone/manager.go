package multizone

import (
	"fmt"
	"sort"
	"sync"
)

// maskWidth is the bit width of the zone selection mask. The device
// protocol always sends four bits regardless of how many zones are
// configured.
const maskWidth = 4

// MaxZones is the largest supported zone count.
const MaxZones = 4

// Logger is the minimal logging interface the manager needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is set.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Manager tracks zone selection and per-zone status.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Manager struct {
	mu        sync.RWMutex
	zoneCount int
	zones     map[int]*ZoneInfo

	// onStatusChange is invoked after a zone's status changes, outside
	// the lock. Used to publish zone events to the broker.
	onStatusChange func(zone int, status ZoneStatus)

	logger Logger
}

// NewManager creates a manager with zoneCount zones (1..zoneCount), all inactive.
// Zone counts outside 1..MaxZones are clamped.
func NewManager(zoneCount int) *Manager {
	if zoneCount < 1 {
		zoneCount = 1
	}
	if zoneCount > MaxZones {
		zoneCount = MaxZones
	}

	zones := make(map[int]*ZoneInfo, zoneCount)
	for id := 1; id <= zoneCount; id++ {
		zones[id] = &ZoneInfo{ID: id, Status: StatusInactive}
	}

	return &Manager{
		zoneCount: zoneCount,
		zones:     zones,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for zone state changes.
func (m *Manager) SetLogger(logger Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if logger != nil {
		m.logger = logger
	}
}

// SetOnStatusChange sets a callback invoked after every status transition.
// The callback runs outside the manager lock.
func (m *Manager) SetOnStatusChange(callback func(zone int, status ZoneStatus)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStatusChange = callback
}

// ZoneCount returns the number of configured zones.
func (m *Manager) ZoneCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.zoneCount
}

// SetZones replaces the active zone selection.
//
// The selection must be non-empty, contain no duplicates, and every id
// must be within 1..ZoneCount. Selected zones become active, all others
// inactive; previous errors are cleared.
//
// Parameters:
//   - ids: Zone numbers to activate (order is irrelevant)
//
// Returns:
//   - error: ErrNoZones, ErrInvalidZone or ErrDuplicateZone on bad input
func (m *Manager) SetZones(ids []int) error {
	if len(ids) == 0 {
		return ErrNoZones
	}

	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if id < 1 || id > m.zoneCount {
			return fmt.Errorf("%w: %d (valid range 1-%d)", ErrInvalidZone, id, m.zoneCount)
		}
		if seen[id] {
			return fmt.Errorf("%w: %d", ErrDuplicateZone, id)
		}
		seen[id] = true
	}

	m.mu.Lock()
	for id, zone := range m.zones {
		if seen[id] {
			zone.Status = StatusActive
		} else {
			zone.Status = StatusInactive
		}
		zone.Error = ""
	}
	m.mu.Unlock()

	m.logger.Debug("zone selection changed", "zones", ids)
	return nil
}

// ActiveZones returns the selected zone ids in ascending order.
// Zones in executing, completed or error states count as selected; they
// entered those states from the current selection.
func (m *Manager) ActiveZones() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []int
	for id, zone := range m.zones {
		if zone.Status != StatusInactive {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// Mask returns the selection as a bit mask: bit i set iff zone i+1 is selected.
func (m *Manager) Mask() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mask := 0
	for id, zone := range m.zones {
		if zone.Status != StatusInactive {
			mask |= 1 << (id - 1)
		}
	}
	return mask
}

// MaskCommand returns the device command selecting exactly one zone.
//
// The payload is the zone's single bit rendered as a 4-bit binary string:
//
//	MaskCommand(3) == "multizone 0100"
func (m *Manager) MaskCommand(zoneID int) (string, error) {
	if zoneID < 1 || zoneID > m.zoneCount {
		return "", fmt.Errorf("%w: %d (valid range 1-%d)", ErrInvalidZone, zoneID, m.zoneCount)
	}
	return fmt.Sprintf("multizone %0*b", maskWidth, 1<<(zoneID-1)), nil
}

// Zone returns a snapshot of one zone.
func (m *Manager) Zone(zoneID int) (ZoneInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	zone, ok := m.zones[zoneID]
	if !ok {
		return ZoneInfo{}, fmt.Errorf("%w: %d", ErrZoneNotFound, zoneID)
	}
	return *zone, nil
}

// Zones returns a snapshot of every zone in ascending id order.
func (m *Manager) Zones() []ZoneInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]ZoneInfo, 0, len(m.zones))
	for id := 1; id <= m.zoneCount; id++ {
		infos = append(infos, *m.zones[id])
	}
	return infos
}

// SetStatus transitions one zone to a new status.
func (m *Manager) SetStatus(zoneID int, status ZoneStatus) error {
	m.mu.Lock()
	zone, ok := m.zones[zoneID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrZoneNotFound, zoneID)
	}
	zone.Status = status
	if status != StatusError {
		zone.Error = ""
	}
	callback := m.onStatusChange
	m.mu.Unlock()

	m.logger.Debug("zone status changed", "zone", zoneID, "status", string(status))
	if callback != nil {
		callback(zoneID, status)
	}
	return nil
}

// SetError transitions one zone to the error state with a message.
func (m *Manager) SetError(zoneID int, message string) error {
	m.mu.Lock()
	zone, ok := m.zones[zoneID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrZoneNotFound, zoneID)
	}
	zone.Status = StatusError
	zone.Error = message
	callback := m.onStatusChange
	m.mu.Unlock()

	m.logger.Warn("zone error", "zone", zoneID, "message", message)
	if callback != nil {
		callback(zoneID, StatusError)
	}
	return nil
}

// Reset clears the selection: every zone becomes inactive with no error.
func (m *Manager) Reset() {
	m.mu.Lock()
	for _, zone := range m.zones {
		zone.Status = StatusInactive
		zone.Error = ""
	}
	m.mu.Unlock()

	m.logger.Debug("zone selection reset")
}
