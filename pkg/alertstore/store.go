// Package alertstore implements the alert-acknowledgment half of C11: a
// persistent map from alert ID to who acknowledged it and when.
package alertstore

import (
	"log/slog"
	"time"

	"github.com/wisbric/nightowl/internal/store"
)

// Ack is the acknowledgment record attached to one alert ID.
type Ack struct {
	AckedBy   string    `json:"acked_by"`
	Note      string    `json:"note,omitempty"`
	AckedAt   time.Time `json:"acked_at"`
}

// Store is the alert-ack persistent map, keyed by alert ID.
type Store struct {
	acks *store.PersistentMap[string, Ack]
}

// New creates a Store backed by path.
func New(path string, logger *slog.Logger) *Store {
	return &Store{acks: store.NewPersistentMap[string, Ack](path, logger)}
}

// Acknowledge records an ack for alertID, overwriting any prior one.
func (s *Store) Acknowledge(alertID, ackedBy, note string) error {
	return s.acks.Set(alertID, Ack{AckedBy: ackedBy, Note: note, AckedAt: time.Now().UTC()})
}

// Unacknowledge removes the ack for alertID, if any.
func (s *Store) Unacknowledge(alertID string) error {
	return s.acks.Delete(alertID)
}

// Get returns the ack for alertID, if any.
func (s *Store) Get(alertID string) (Ack, bool) {
	return s.acks.Get(alertID)
}

// All returns every acknowledged alert ID and its ack record.
func (s *Store) All() map[string]Ack {
	return s.acks.All()
}

// IsAcked reports whether alertID has an ack recorded.
func (s *Store) IsAcked(alertID string) bool {
	_, ok := s.acks.Get(alertID)
	return ok
}
