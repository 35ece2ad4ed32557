// Package devicestore implements the device-baseline half of C11: a
// persistent map from MAC address to the attributes an operator has pinned
// for that device (a friendly name, an expected role, a trust flag).
package devicestore

import (
	"log/slog"
	"strings"
	"time"

	"github.com/wisbric/nightowl/internal/store"
)

// Baseline is the operator-pinned attribute record for one device.
type Baseline struct {
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role,omitempty"`
	Trusted   bool      `json:"trusted"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the device-baseline persistent map, keyed by uppercase MAC.
type Store struct {
	baselines *store.PersistentMap[string, Baseline]
}

// New creates a Store backed by path.
func New(path string, logger *slog.Logger) *Store {
	return &Store{baselines: store.NewPersistentMap[string, Baseline](path, logger)}
}

func normalizeMAC(mac string) string {
	return strings.ToUpper(strings.TrimSpace(mac))
}

// Set pins a baseline for mac, overwriting any prior one.
func (s *Store) Set(mac string, b Baseline) error {
	b.UpdatedAt = time.Now().UTC()
	return s.baselines.Set(normalizeMAC(mac), b)
}

// Remove deletes the baseline for mac, if any.
func (s *Store) Remove(mac string) error {
	return s.baselines.Delete(normalizeMAC(mac))
}

// Get returns the baseline for mac, if any.
func (s *Store) Get(mac string) (Baseline, bool) {
	return s.baselines.Get(normalizeMAC(mac))
}

// All returns every known device baseline, keyed by uppercase MAC.
func (s *Store) All() map[string]Baseline {
	return s.baselines.All()
}
