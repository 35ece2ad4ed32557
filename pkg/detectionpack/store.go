// Package detectionpack implements the detection-pack half of C11: a
// trivial persisted CRUD registry of installed rule/signature packs.
package detectionpack

import (
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wisbric/nightowl/internal/store"
)

// Pack is one installed detection pack.
type Pack struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Enabled     bool      `json:"enabled"`
	Source      string    `json:"source"`
	InstalledAt time.Time `json:"installed_at"`
	Description string    `json:"description,omitempty"`
}

// Store is the detection-pack registry, keyed by pack ID.
type Store struct {
	packs *store.PersistentMap[string, Pack]
}

// New creates a Store backed by path.
func New(path string, logger *slog.Logger) *Store {
	return &Store{packs: store.NewPersistentMap[string, Pack](path, logger)}
}

// CreateParams describes a new pack's attributes.
type CreateParams struct {
	Name        string
	Version     string
	Source      string
	Description string
	Enabled     bool
}

// Create registers a new detection pack.
func (s *Store) Create(p CreateParams) (Pack, error) {
	pack := Pack{
		ID:          uuid.NewString(),
		Name:        p.Name,
		Version:     p.Version,
		Enabled:     p.Enabled,
		Source:      p.Source,
		InstalledAt: time.Now().UTC(),
		Description: p.Description,
	}
	if err := s.packs.Set(pack.ID, pack); err != nil {
		return Pack{}, err
	}
	return pack, nil
}

// Get returns the pack for id.
func (s *Store) Get(id string) (Pack, bool) {
	return s.packs.Get(id)
}

// List returns every pack, newest-installed first.
func (s *Store) List() []Pack {
	all := s.packs.All()
	out := make([]Pack, 0, len(all))
	for _, pack := range all {
		out = append(out, pack)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstalledAt.After(out[j].InstalledAt) })
	return out
}

// SetEnabled toggles a pack's enabled flag.
func (s *Store) SetEnabled(id string, enabled bool) (Pack, bool, error) {
	var result Pack
	var found bool
	err := s.packs.Mutate(func(m map[string]Pack) {
		pack, ok := m[id]
		if !ok {
			return
		}
		pack.Enabled = enabled
		m[id] = pack
		result, found = pack, true
	})
	return result, found, err
}

// Delete removes a pack.
func (s *Store) Delete(id string) error {
	return s.packs.Delete(id)
}
