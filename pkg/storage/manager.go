// Package storage implements C3: disk-usage sampling and tiered/emergency
// pruning of OpenSearch indices.
package storage

import (
	"context"
	"log/slog"
	"sort"
	"syscall"
	"time"

	"github.com/wisbric/nightowl/internal/platform"
	"github.com/wisbric/nightowl/internal/telemetry"
	"github.com/wisbric/nightowl/pkg/indexclassifier"
)

// RetentionConfig mirrors the data model's Retention Config: per-tier
// windows plus the two disk-pressure thresholds that choose between tiered
// and emergency pruning.
type RetentionConfig struct {
	CheckPath           string
	HotDays             int
	WarmDays            int
	ColdDays            int
	DiskThreshold       float64
	EmergencyThreshold  float64
}

// IndexEntry is the enriched view of a single index returned by ListIndices.
type IndexEntry struct {
	Name         string     `json:"name"`
	SizeBytes    int64      `json:"size_bytes"`
	Tier         indexclassifier.Tier `json:"tier"`
	ParsedDate   *time.Time `json:"parsed_date"`
}

// Status is the snapshot returned by GET /api/storage/status.
type Status struct {
	DiskUsageFraction float64         `json:"disk_usage_fraction"`
	Retention         RetentionConfig `json:"retention"`
	IndexCount        int             `json:"index_count"`
	TotalSizeBytes    int64           `json:"total_size_bytes"`
}

// indexClient is the slice of the C1 Search Client that the storage manager
// needs; satisfied by *platform.SearchClient and, in tests, by a fake.
type indexClient interface {
	CatIndices(ctx context.Context) ([]platform.IndexStat, error)
	DeleteIndex(ctx context.Context, name string) error
}

// Manager owns the retention configuration and drives pruning cycles.
type Manager struct {
	client indexClient
	logger *slog.Logger
	config RetentionConfig
}

// NewManager creates a Manager.
func NewManager(client indexClient, logger *slog.Logger, cfg RetentionConfig) *Manager {
	return &Manager{client: client, logger: logger, config: cfg}
}

// CheckDiskUsage samples the fraction of disk used at the configured check
// path. Returns -1 on failure — a sentinel the caller must not treat as 0%
// full.
func (m *Manager) CheckDiskUsage() float64 {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(m.config.CheckPath, &stat); err != nil {
		m.logger.Error("checking disk usage", "path", m.config.CheckPath, "error", err)
		return -1
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bfree * uint64(stat.Bsize)
	if total == 0 {
		return -1
	}
	used := total - free
	fraction := float64(used) / float64(total)
	telemetry.DiskUsageFraction.Set(fraction)
	return fraction
}

// ListIndices returns every non-system index enriched with tier and parsed
// date, via C1's CatIndices.
func (m *Manager) ListIndices(ctx context.Context) ([]IndexEntry, error) {
	stats, err := m.client.CatIndices(ctx)
	if err != nil {
		m.logger.Error("listing indices", "error", err)
		return nil, err
	}

	out := make([]IndexEntry, 0, len(stats))
	for _, s := range stats {
		if indexclassifier.IsSystemIndex(s.Name) {
			continue
		}
		entry := IndexEntry{
			Name:      s.Name,
			SizeBytes: s.SizeBytes,
			Tier:      indexclassifier.ClassifyTier(s.Name),
		}
		if d, ok := indexclassifier.ParseIndexDate(s.Name); ok {
			entry.ParsedDate = &d
		}
		out = append(out, entry)
	}
	return out, nil
}

func (m *Manager) retentionDays(tier indexclassifier.Tier) int {
	switch tier {
	case indexclassifier.TierHot:
		return m.config.HotDays
	case indexclassifier.TierWarm:
		return m.config.WarmDays
	case indexclassifier.TierCold:
		return m.config.ColdDays
	default:
		return 0
	}
}

// PruneTiered deletes indices older than their tier's retention cutoff,
// processing cold, then warm, then hot (cheapest to re-ingest first) and
// re-sampling disk usage after each delete so it can stop as soon as
// pressure is relieved. Returns the number of indices deleted.
func (m *Manager) PruneTiered(ctx context.Context) int {
	entries, err := m.ListIndices(ctx)
	if err != nil {
		return 0
	}

	deleted := 0
	now := time.Now().UTC()

	for _, tier := range []indexclassifier.Tier{indexclassifier.TierCold, indexclassifier.TierWarm, indexclassifier.TierHot} {
		candidates := make([]IndexEntry, 0)
		for _, e := range entries {
			if e.Tier != tier || e.ParsedDate == nil {
				continue
			}
			candidates = append(candidates, e)
		}
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].ParsedDate.Before(*candidates[j].ParsedDate)
		})

		cutoff := now.AddDate(0, 0, -m.retentionDays(tier))

		for _, e := range candidates {
			if !e.ParsedDate.Before(cutoff) {
				break // this tier's remaining indices are newer than the cutoff
			}
			if err := m.client.DeleteIndex(ctx, e.Name); err != nil {
				m.logger.Warn("failed to delete index during tiered prune", "index", e.Name, "error", err)
				continue
			}
			m.logger.Info("deleted index", "index", e.Name, "tier", tier)
			telemetry.IndicesDeletedTotal.WithLabelValues(string(tier)).Inc()
			deleted++

			if frac := m.CheckDiskUsage(); frac >= 0 && frac < m.config.DiskThreshold {
				telemetry.PruneCyclesTotal.WithLabelValues("tiered").Inc()
				return deleted
			}
		}
	}

	telemetry.PruneCyclesTotal.WithLabelValues("tiered").Inc()
	return deleted
}

// PruneEmergency ignores tier boundaries and deletes the globally oldest
// indices first until disk usage falls back below the normal threshold.
func (m *Manager) PruneEmergency(ctx context.Context) int {
	m.logger.Warn("emergency prune triggered", "check_path", m.config.CheckPath)

	entries, err := m.ListIndices(ctx)
	if err != nil {
		return 0
	}

	candidates := make([]IndexEntry, 0)
	for _, e := range entries {
		if e.Tier == indexclassifier.TierUnknown || e.ParsedDate == nil {
			continue
		}
		candidates = append(candidates, e)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ParsedDate.Before(*candidates[j].ParsedDate)
	})

	deleted := 0
	for _, e := range candidates {
		if err := m.client.DeleteIndex(ctx, e.Name); err != nil {
			m.logger.Warn("failed to delete index during emergency prune", "index", e.Name, "error", err)
			continue
		}
		m.logger.Info("deleted index (emergency)", "index", e.Name, "tier", e.Tier)
		telemetry.IndicesDeletedTotal.WithLabelValues(string(e.Tier)).Inc()
		deleted++

		if frac := m.CheckDiskUsage(); frac >= 0 && frac < m.config.DiskThreshold {
			break
		}
	}

	telemetry.PruneCyclesTotal.WithLabelValues("emergency").Inc()
	return deleted
}

// RunCycle samples disk usage once and dispatches to emergency, tiered, or
// no-op pruning accordingly. Never returns an error — a disk-read failure is
// logged and treated as a no-op.
func (m *Manager) RunCycle(ctx context.Context) {
	frac := m.CheckDiskUsage()
	if frac < 0 {
		telemetry.PruneCyclesTotal.WithLabelValues("noop").Inc()
		return
	}

	switch {
	case frac >= m.config.EmergencyThreshold:
		m.PruneEmergency(ctx)
	case frac >= m.config.DiskThreshold:
		m.PruneTiered(ctx)
	default:
		telemetry.PruneCyclesTotal.WithLabelValues("noop").Inc()
	}
}

// GetStatus returns the current storage status snapshot.
func (m *Manager) GetStatus(ctx context.Context) Status {
	entries, _ := m.ListIndices(ctx)
	var total int64
	for _, e := range entries {
		total += e.SizeBytes
	}
	return Status{
		DiskUsageFraction: m.CheckDiskUsage(),
		Retention:         m.config,
		IndexCount:        len(entries),
		TotalSizeBytes:    total,
	}
}
