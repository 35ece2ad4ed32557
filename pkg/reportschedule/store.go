// Package reportschedule implements the recurring-report half of C11: a
// persistent registry of scheduled report generation jobs.
package reportschedule

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wisbric/nightowl/internal/store"
)

// Frequency is how often a schedule fires.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Format is the output format of a generated report.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

// Section is one content block a report may include.
type Section string

const (
	SectionTrafficSummary Section = "traffic_summary"
	SectionAlerts         Section = "alerts"
	SectionDevices        Section = "devices"
	SectionCompliance     Section = "compliance"
	SectionRisk           Section = "risk"
)

// Schedule is one recurring report definition.
type Schedule struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Frequency  Frequency  `json:"frequency"`
	Format     Format     `json:"format"`
	Sections   []Section  `json:"sections"`
	Recipients []string   `json:"recipients"`
	Enabled    bool       `json:"enabled"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	NextRun    *time.Time `json:"next_run,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Store is the report-schedule registry, keyed by schedule ID.
type Store struct {
	schedules *store.PersistentMap[string, Schedule]
}

// New creates a Store backed by path.
func New(path string, logger *slog.Logger) *Store {
	return &Store{schedules: store.NewPersistentMap[string, Schedule](path, logger)}
}

// CreateParams describes a new schedule's attributes.
type CreateParams struct {
	Name       string
	Frequency  Frequency
	Format     Format
	Sections   []Section
	Recipients []string
	Enabled    bool
}

// nextRunAfter computes the next fire time for a frequency from a reference
// instant, matching the invariant that next_run >= created_at when enabled.
func nextRunAfter(freq Frequency, from time.Time) time.Time {
	switch freq {
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return from.AddDate(0, 1, 0)
	default:
		return from.AddDate(0, 0, 1)
	}
}

// Create registers a new schedule. If enabled, NextRun is set relative to
// CreatedAt.
func (s *Store) Create(p CreateParams) (Schedule, error) {
	now := time.Now().UTC()
	sched := Schedule{
		ID:         uuid.NewString(),
		Name:       p.Name,
		Frequency:  p.Frequency,
		Format:     p.Format,
		Sections:   p.Sections,
		Recipients: p.Recipients,
		Enabled:    p.Enabled,
		CreatedAt:  now,
	}
	if sched.Enabled {
		next := nextRunAfter(sched.Frequency, now)
		sched.NextRun = &next
	}
	if err := s.schedules.Set(sched.ID, sched); err != nil {
		return Schedule{}, err
	}
	return sched, nil
}

// Get returns the schedule for id.
func (s *Store) Get(id string) (Schedule, bool) {
	return s.schedules.Get(id)
}

// List returns every schedule, most recently created first.
func (s *Store) List() []Schedule {
	all := s.schedules.All()
	out := make([]Schedule, 0, len(all))
	for _, sched := range all {
		out = append(out, sched)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Delete removes a schedule.
func (s *Store) Delete(id string) error {
	return s.schedules.Delete(id)
}

// MarkRun records that a schedule fired at now, advancing NextRun when enabled.
func (s *Store) MarkRun(id string, now time.Time) (Schedule, error) {
	var result Schedule
	var found bool
	err := s.schedules.Mutate(func(m map[string]Schedule) {
		sched, ok := m[id]
		if !ok {
			return
		}
		sched.LastRun = &now
		if sched.Enabled {
			next := nextRunAfter(sched.Frequency, now)
			sched.NextRun = &next
		} else {
			sched.NextRun = nil
		}
		m[id] = sched
		result, found = sched, true
	})
	if err != nil {
		return Schedule{}, err
	}
	if !found {
		return Schedule{}, fmt.Errorf("schedule not found: %s", id)
	}
	return result, nil
}

// Due returns every enabled schedule whose NextRun has passed as of now.
func (s *Store) Due(now time.Time) []Schedule {
	var due []Schedule
	for _, sched := range s.schedules.All() {
		if sched.Enabled && sched.NextRun != nil && !sched.NextRun.After(now) {
			due = append(due, sched)
		}
	}
	return due
}
