package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wisbric/nightowl/internal/telemetry"
	"github.com/wisbric/nightowl/pkg/alertstore"
	"github.com/wisbric/nightowl/pkg/detectionpack"
	"github.com/wisbric/nightowl/pkg/devicestore"
	"github.com/wisbric/nightowl/pkg/investigation"
	"github.com/wisbric/nightowl/pkg/reportschedule"
)

var migrateDataCmd = &cobra.Command{
	Use:   "migrate-data <old-dir> <new-dir>",
	Short: "Re-key the legacy JSON-backed stores from old-dir into new-dir's layout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		oldDir, newDir := args[0], args[1]
		logger := telemetry.NewLogger("text", "info")

		if err := os.MkdirAll(newDir, 0o755); err != nil {
			return fmt.Errorf("creating new-dir: %w", err)
		}

		migrateAlertAcks(oldDir, newDir, logger)
		migrateDeviceBaselines(oldDir, newDir, logger)
		migrateInvestigations(oldDir, newDir, logger)
		migrateReportSchedules(oldDir, newDir, logger)
		migrateDetectionPacks(oldDir, newDir, logger)
		return nil
	},
}

// readLegacy loads a JSON object file from the old layout, tolerating a
// missing file the same way the stores themselves do.
func readLegacy(oldDir, name string, dst any) bool {
	path := filepath.Join(oldDir, name)
	raw, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func migrateAlertAcks(oldDir, newDir string, logger *slog.Logger) {
	var legacy map[string]alertstore.Ack
	if !readLegacy(oldDir, "alert_acks.json", &legacy) {
		return
	}
	store := alertstore.New(filepath.Join(newDir, "alert_acks.json"), logger)
	for alertID, ack := range legacy {
		_ = store.Acknowledge(alertID, ack.AckedBy, ack.Note)
	}
	logger.Info("migrated alert acks", "count", len(legacy))
}

func migrateDeviceBaselines(oldDir, newDir string, logger *slog.Logger) {
	var legacy map[string]devicestore.Baseline
	if !readLegacy(oldDir, "device_baseline.json", &legacy) {
		return
	}
	store := devicestore.New(filepath.Join(newDir, "device_baseline.json"), logger)
	for mac, baseline := range legacy {
		// Set upper-cases the key, so MACs recorded in any case by the
		// previous implementation land on one canonical key.
		_ = store.Set(mac, baseline)
	}
	logger.Info("migrated device baselines", "count", len(legacy))
}

func migrateInvestigations(oldDir, newDir string, logger *slog.Logger) {
	var legacy map[string]investigation.Investigation
	if !readLegacy(oldDir, "investigations.json", &legacy) {
		return
	}
	store := investigation.New(filepath.Join(newDir, "investigations.json"), logger)
	migrated := 0
	for _, inv := range legacy {
		created, err := store.Create(investigation.CreateParams{
			Title:       inv.Title,
			Description: inv.Description,
			Severity:    inv.Severity,
			AlertIDs:    inv.AlertIDs,
			DeviceIPs:   inv.DeviceIPs,
			Tags:        inv.Tags,
		})
		if err != nil {
			continue
		}
		if inv.Status != "" && inv.Status != created.Status {
			_, _ = store.SetStatus(created.ID, inv.Status)
		}
		for _, note := range inv.Notes {
			_, _ = store.AddNote(created.ID, note.Content)
		}
		migrated++
	}
	logger.Info("migrated investigations", "count", migrated)
}

func migrateReportSchedules(oldDir, newDir string, logger *slog.Logger) {
	var legacy map[string]reportschedule.Schedule
	if !readLegacy(oldDir, "report_schedules.json", &legacy) {
		return
	}
	store := reportschedule.New(filepath.Join(newDir, "report_schedules.json"), logger)
	migrated := 0
	for _, sched := range legacy {
		if _, err := store.Create(reportschedule.CreateParams{
			Name:       sched.Name,
			Frequency:  sched.Frequency,
			Format:     sched.Format,
			Sections:   sched.Sections,
			Recipients: sched.Recipients,
			Enabled:    sched.Enabled,
		}); err == nil {
			migrated++
		}
	}
	logger.Info("migrated report schedules", "count", migrated)
}

func migrateDetectionPacks(oldDir, newDir string, logger *slog.Logger) {
	var legacy map[string]detectionpack.Pack
	if !readLegacy(oldDir, "detection_packs.json", &legacy) {
		return
	}
	store := detectionpack.New(filepath.Join(newDir, "detection_packs.json"), logger)
	migrated := 0
	for _, pack := range legacy {
		if _, err := store.Create(detectionpack.CreateParams{
			Name:        pack.Name,
			Version:     pack.Version,
			Source:      pack.Source,
			Description: pack.Description,
			Enabled:     pack.Enabled,
		}); err == nil {
			migrated++
		}
	}
	logger.Info("migrated detection packs", "count", migrated)
}
