// Package investigation implements the investigation-case half of C11: a
// persistent registry of analyst-opened cases that link together alerts,
// devices, and free-form notes.
package investigation

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wisbric/nightowl/internal/store"
)

// Status is the lifecycle state of an investigation.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Severity is the analyst-assigned severity of an investigation.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Note is a single free-form annotation attached to an investigation.
type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Investigation is one analyst-opened case.
type Investigation struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	Severity    Severity  `json:"severity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	AlertIDs    []string  `json:"alert_ids"`
	DeviceIPs   []string  `json:"device_ips"`
	Notes       []Note    `json:"notes"`
	Tags        []string  `json:"tags"`
}

// Store is the investigation registry, keyed by investigation ID.
type Store struct {
	cases *store.PersistentMap[string, Investigation]
}

// New creates a Store backed by path.
func New(path string, logger *slog.Logger) *Store {
	return &Store{cases: store.NewPersistentMap[string, Investigation](path, logger)}
}

// CreateParams describes a new investigation's initial attributes.
type CreateParams struct {
	Title       string
	Description string
	Severity    Severity
	AlertIDs    []string
	DeviceIPs   []string
	Tags        []string
}

// Create opens a new investigation in status "open".
func (s *Store) Create(p CreateParams) (Investigation, error) {
	now := time.Now().UTC()
	inv := Investigation{
		ID:          uuid.NewString(),
		Title:       p.Title,
		Description: p.Description,
		Status:      StatusOpen,
		Severity:    p.Severity,
		CreatedAt:   now,
		UpdatedAt:   now,
		AlertIDs:    dedupe(p.AlertIDs),
		DeviceIPs:   dedupe(p.DeviceIPs),
		Notes:       []Note{},
		Tags:        dedupe(p.Tags),
	}
	if err := s.cases.Set(inv.ID, inv); err != nil {
		return Investigation{}, err
	}
	return inv, nil
}

// Get returns the investigation for id.
func (s *Store) Get(id string) (Investigation, bool) {
	return s.cases.Get(id)
}

// List returns every investigation, newest first.
func (s *Store) List() []Investigation {
	all := s.cases.All()
	out := make([]Investigation, 0, len(all))
	for _, inv := range all {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// SetStatus transitions an investigation's status.
func (s *Store) SetStatus(id string, status Status) (Investigation, error) {
	var result Investigation
	var found bool
	err := s.cases.Mutate(func(m map[string]Investigation) {
		inv, ok := m[id]
		if !ok {
			return
		}
		inv.Status = status
		inv.UpdatedAt = time.Now().UTC()
		m[id] = inv
		result, found = inv, true
	})
	if err != nil {
		return Investigation{}, err
	}
	if !found {
		return Investigation{}, fmt.Errorf("investigation not found: %s", id)
	}
	return result, nil
}

// LinkAlert appends alertID to the investigation's deduplicated alert list.
func (s *Store) LinkAlert(id, alertID string) (Investigation, error) {
	return s.mutateLinked(id, func(inv *Investigation) { inv.AlertIDs = dedupe(append(inv.AlertIDs, alertID)) })
}

// LinkDevice appends deviceIP to the investigation's deduplicated device list.
func (s *Store) LinkDevice(id, deviceIP string) (Investigation, error) {
	return s.mutateLinked(id, func(inv *Investigation) { inv.DeviceIPs = dedupe(append(inv.DeviceIPs, deviceIP)) })
}

// AddNote appends a timestamped note to the investigation.
func (s *Store) AddNote(id, content string) (Investigation, error) {
	now := time.Now().UTC()
	note := Note{ID: uuid.NewString(), Content: content, CreatedAt: now, UpdatedAt: now}
	return s.mutateLinked(id, func(inv *Investigation) { inv.Notes = append(inv.Notes, note) })
}

func (s *Store) mutateLinked(id string, fn func(*Investigation)) (Investigation, error) {
	var result Investigation
	var found bool
	err := s.cases.Mutate(func(m map[string]Investigation) {
		inv, ok := m[id]
		if !ok {
			return
		}
		fn(&inv)
		inv.UpdatedAt = time.Now().UTC()
		m[id] = inv
		result, found = inv, true
	})
	if err != nil {
		return Investigation{}, err
	}
	if !found {
		return Investigation{}, fmt.Errorf("investigation not found: %s", id)
	}
	return result, nil
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
