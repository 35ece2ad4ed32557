// Package updateexec applies and rolls back component updates -- Docker
// image pulls, Suricata rule refreshes, and GeoIP database downloads --
// with pre-update backups for safety.
package updateexec

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/wisbric/nightowl/internal/platform"
	"github.com/wisbric/nightowl/internal/store"
	"github.com/wisbric/nightowl/pkg/sysversion"
)

const (
	updateTimeout  = 5 * time.Minute
	maxOutputBytes = 256 * 1024
	maxHistory     = 50
)

var dockerComponents = map[string]bool{
	"zeek": true, "suricata": true, "arkime": true, "opensearch": true,
	"dashboards": true, "logstash": true, "file-monitor": true,
	"pcap-capture": true, "freq": true, "htadmin": true, "nginx-proxy": true,
}

var dockerBackupComponents = map[string]bool{
	"zeek": true, "suricata": true, "arkime": true, "opensearch": true,
	"dashboards": true, "logstash": true,
}

// Result is the outcome of a single component update.
type Result struct {
	Component         string `json:"component"`
	Success           bool   `json:"success"`
	OldVersion        string `json:"old_version"`
	NewVersion        string `json:"new_version"`
	StartedAt         string `json:"started_at"`
	CompletedAt       string `json:"completed_at"`
	Error             string `json:"error,omitempty"`
	RollbackAvailable bool   `json:"rollback_available"`
}

// BatchResult is the outcome of an ApplyUpdate call across all requested
// components.
type BatchResult struct {
	Results   []Result `json:"results"`
	Success   bool     `json:"success"`
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Message   string   `json:"message,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// InProgress describes an update batch currently running.
type InProgress struct {
	StartedAt  string   `json:"started_at"`
	Components []string `json:"components"`
	Status     string   `json:"status"`
}

// Status is the current state of the executor.
type Status struct {
	Status        string       `json:"status"`
	CurrentUpdate *InProgress  `json:"current_update"`
	LastCompleted *BatchRecord `json:"last_completed"`
}

// BatchRecord is a historical batch result with its timing.
type BatchRecord struct {
	BatchResult
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at"`
}

// RollbackResult is the outcome of a Rollback call.
type RollbackResult struct {
	Success   bool   `json:"success"`
	Component string `json:"component"`
	Message   string `json:"message"`
}

// Executor applies component updates with pre-update backups and
// best-effort rollback.
type Executor struct {
	composeFile string
	backupDir   string
	geoIPPath   string
	versions    *sysversion.Manager
	logger      *slog.Logger

	mu            sync.Mutex
	currentUpdate *InProgress
	history       *store.BoundedHistory[BatchRecord]
}

// NewExecutor creates an update Executor.
func NewExecutor(composeFile, backupDir, geoIPPath string, versions *sysversion.Manager, logger *slog.Logger) *Executor {
	return &Executor{
		composeFile: composeFile,
		backupDir:   backupDir,
		geoIPPath:   geoIPPath,
		versions:    versions,
		logger:      logger,
		history:     store.NewBoundedHistory[BatchRecord](maxHistory),
	}
}

// ApplyUpdate applies updates to the given components. At most one batch
// runs at a time; a second call while one is in progress returns
// immediately with an error and a snapshot of the running batch.
func (e *Executor) ApplyUpdate(ctx context.Context, components []string) BatchResult {
	e.mu.Lock()
	if e.currentUpdate != nil {
		inProgress := *e.currentUpdate
		e.mu.Unlock()
		return BatchResult{
			Error:   "An update is already in progress",
			Results: []Result{},
			Message: fmt.Sprintf("update already running for %v since %s", inProgress.Components, inProgress.StartedAt),
		}
	}
	if len(components) == 0 {
		e.mu.Unlock()
		return BatchResult{Results: []Result{}, Success: true, Message: "No components specified for update"}
	}

	started := time.Now().UTC().Format(time.RFC3339)
	e.currentUpdate = &InProgress{StartedAt: started, Components: components, Status: "in_progress"}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.currentUpdate = nil
		e.mu.Unlock()
	}()

	var results []Result
	var dockerComps, ruleComps, geoipComps, otherComps []string

	for _, comp := range components {
		switch {
		case dockerComponents[comp]:
			dockerComps = append(dockerComps, comp)
		case comp == "suricata-rules":
			ruleComps = append(ruleComps, comp)
		case comp == "geoip-db":
			geoipComps = append(geoipComps, comp)
		default:
			otherComps = append(otherComps, comp)
		}
	}

	if len(dockerComps) > 0 {
		results = append(results, e.updateDockerImages(ctx, dockerComps)...)
	}
	if len(ruleComps) > 0 {
		results = append(results, e.updateSuricataRules(ctx))
	}
	if len(geoipComps) > 0 {
		results = append(results, e.updateGeoIP(ctx))
	}
	for _, comp := range otherComps {
		now := time.Now().UTC().Format(time.RFC3339)
		results = append(results, Result{
			Component: comp, Success: false, OldVersion: "unknown", NewVersion: "unknown",
			StartedAt: started, CompletedAt: now,
			Error: fmt.Sprintf("Unsupported component for update: %s", comp),
		})
	}

	succeeded, failed := 0, 0
	for _, r := range results {
		if r.Success {
			succeeded++
		} else {
			failed++
		}
	}

	batch := BatchResult{Results: results, Success: failed == 0, Total: len(results), Succeeded: succeeded, Failed: failed}
	completed := time.Now().UTC().Format(time.RFC3339)
	e.history.Append(BatchRecord{BatchResult: batch, StartedAt: started, CompletedAt: completed})

	e.logger.Info("update batch complete", "succeeded", succeeded, "failed", failed)
	return batch
}

// GetStatus reports whether a batch is in progress and the last completed
// batch, if any.
func (e *Executor) GetStatus() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	var lastCompleted *BatchRecord
	snapshot := e.history.Snapshot()
	if len(snapshot) > 0 {
		last := snapshot[len(snapshot)-1]
		lastCompleted = &last
	}

	if e.currentUpdate != nil {
		cur := *e.currentUpdate
		return Status{Status: "in_progress", CurrentUpdate: &cur, LastCompleted: lastCompleted}
	}
	return Status{Status: "idle", LastCompleted: lastCompleted}
}

// GetHistory returns past batch results, newest first.
func (e *Executor) GetHistory() []BatchRecord {
	return e.history.SnapshotReversed()
}

// Rollback restores a component to its pre-update state from the most
// recent backup.
func (e *Executor) Rollback(ctx context.Context, component string) RollbackResult {
	backupPath := filepath.Join(e.backupDir, component)
	if _, err := os.Stat(backupPath); err != nil {
		return RollbackResult{Success: false, Component: component, Message: fmt.Sprintf("No backup available for component: %s", component)}
	}

	switch {
	case dockerBackupComponents[component]:
		return e.rollbackDocker(ctx, component, backupPath)
	case component == "suricata-rules":
		return e.rollbackFile(component, backupPath, "/var/lib/suricata/rules/suricata.rules")
	case component == "geoip-db":
		return e.rollbackFile(component, backupPath, e.geoIPPath)
	default:
		return RollbackResult{Success: false, Component: component, Message: fmt.Sprintf("Rollback not supported for: %s", component)}
	}
}

func (e *Executor) updateDockerImages(ctx context.Context, components []string) []Result {
	var results []Result
	for _, component := range components {
		started := time.Now().UTC().Format(time.RFC3339)
		oldVersion, newVersion := "unknown", "unknown"

		if e.versions != nil {
			if comp, found, _ := e.versions.GetComponent(ctx, component); found {
				oldVersion = comp.CurrentVersion
			}
		}

		e.createBackup(ctx, component)

		pullResult, err := platform.RunCommand(ctx, updateTimeout, maxOutputBytes,
			"docker", "compose", "-f", e.composeFile, "pull", component)
		if err != nil {
			results = append(results, Result{
				Component: component, Success: false, OldVersion: oldVersion, NewVersion: oldVersion,
				StartedAt: started, CompletedAt: nowRFC3339(),
				Error: fmt.Sprintf("Docker pull failed: %s", pullResult.Stdout+pullResult.Stderr),
				RollbackAvailable: true,
			})
			continue
		}

		upResult, err := platform.RunCommand(ctx, updateTimeout, maxOutputBytes,
			"docker", "compose", "-f", e.composeFile, "up", "-d", "--no-deps", component)
		if err != nil {
			results = append(results, Result{
				Component: component, Success: false, OldVersion: oldVersion, NewVersion: oldVersion,
				StartedAt: started, CompletedAt: nowRFC3339(),
				Error: fmt.Sprintf("Container restart failed: %s", upResult.Stdout+upResult.Stderr),
				RollbackAvailable: true,
			})
			continue
		}

		if e.versions != nil {
			if _, err := e.versions.ScanVersions(ctx); err == nil {
				if comp, found, _ := e.versions.GetComponent(ctx, component); found {
					newVersion = comp.CurrentVersion
				}
			}
		}

		results = append(results, Result{
			Component: component, Success: true, OldVersion: oldVersion, NewVersion: newVersion,
			StartedAt: started, CompletedAt: nowRFC3339(), RollbackAvailable: true,
		})
	}
	return results
}

func (e *Executor) updateSuricataRules(ctx context.Context) Result {
	started := time.Now().UTC().Format(time.RFC3339)
	oldVersion := "unknown"

	rulePaths := []string{
		"/var/lib/suricata/rules/suricata.rules",
		"/opt/nettap/config/suricata/rules/suricata.rules",
	}
	for _, rulePath := range rulePaths {
		if info, err := os.Stat(rulePath); err == nil {
			oldVersion = info.ModTime().UTC().Format("2006-01-02")
			break
		}
	}

	e.createBackup(ctx, "suricata-rules")

	result, err := platform.RunCommand(ctx, updateTimeout, maxOutputBytes, "suricata-update", "update")
	if err != nil {
		return Result{
			Component: "suricata-rules", Success: false, OldVersion: oldVersion, NewVersion: oldVersion,
			StartedAt: started, CompletedAt: nowRFC3339(),
			Error: fmt.Sprintf("suricata-update failed: %s", result.Stdout+result.Stderr),
			RollbackAvailable: true,
		}
	}

	newVersion := time.Now().UTC().Format("2006-01-02")
	_, _ = platform.RunCommand(ctx, updateTimeout, maxOutputBytes, "suricatasc", "-c", "reload-rules")

	return Result{
		Component: "suricata-rules", Success: true, OldVersion: oldVersion, NewVersion: newVersion,
		StartedAt: started, CompletedAt: nowRFC3339(), RollbackAvailable: true,
	}
}

func (e *Executor) updateGeoIP(ctx context.Context) Result {
	started := time.Now().UTC().Format(time.RFC3339)
	oldVersion := "unknown"

	if info, err := os.Stat(e.geoIPPath); err == nil {
		oldVersion = info.ModTime().UTC().Format("2006-01-02")
	}

	e.createBackup(ctx, "geoip-db")

	result, err := platform.RunCommand(ctx, updateTimeout, maxOutputBytes, "geoipupdate", "-v")
	if err != nil {
		return Result{
			Component: "geoip-db", Success: false, OldVersion: oldVersion, NewVersion: oldVersion,
			StartedAt: started, CompletedAt: nowRFC3339(),
			Error: fmt.Sprintf("geoipupdate failed: %s", result.Stdout+result.Stderr),
			RollbackAvailable: true,
		}
	}

	newVersion := time.Now().UTC().Format("2006-01-02")
	return Result{
		Component: "geoip-db", Success: true, OldVersion: oldVersion, NewVersion: newVersion,
		StartedAt: started, CompletedAt: nowRFC3339(), RollbackAvailable: true,
	}
}

// createBackup writes a timestamped backup directory for component.
// Backup failures are logged but never block the update itself.
func (e *Executor) createBackup(ctx context.Context, component string) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	backupPath := filepath.Join(e.backupDir, component, timestamp)

	if err := os.MkdirAll(backupPath, 0o755); err != nil {
		e.logger.Warn("could not create backup directory", "component", component, "error", err)
		return backupPath
	}

	var artifact string
	switch component {
	case "suricata-rules":
		rulePaths := []string{
			"/var/lib/suricata/rules/suricata.rules",
			"/opt/nettap/config/suricata/rules/suricata.rules",
		}
		for _, rulePath := range rulePaths {
			dst := filepath.Join(backupPath, filepath.Base(rulePath))
			if copyFile(rulePath, dst) == nil {
				artifact = dst
				break
			}
		}
	case "geoip-db":
		if e.geoIPPath != "" {
			dst := filepath.Join(backupPath, filepath.Base(e.geoIPPath))
			if copyFile(e.geoIPPath, dst) == nil {
				artifact = dst
			}
		}
	default:
		if dockerBackupComponents[component] {
			result, err := platform.RunCommand(ctx, 10*time.Second, maxOutputBytes, "docker", "inspect", "--format", "{{.Image}}", component)
			if err == nil && result.Stdout != "" {
				dst := filepath.Join(backupPath, "image_id.txt")
				if os.WriteFile(dst, []byte(strings.TrimSpace(result.Stdout)), 0o644) == nil {
					artifact = dst
				}
			}
		}
	}

	metadata := map[string]string{
		"component":   component,
		"backup_time": time.Now().UTC().Format(time.RFC3339),
		"type":        "pre_update",
	}
	if artifact != "" {
		if hash, err := blake2bChecksum(artifact); err == nil {
			metadata["content_hash"] = hash
		} else {
			e.logger.Warn("could not checksum backup artifact", "component", component, "error", err)
		}
	}
	if data, err := json.MarshalIndent(metadata, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(backupPath, "metadata.json"), data, 0o644)
	}

	e.logger.Info("backup created", "component", component, "path", backupPath)
	return backupPath
}

// blake2bChecksum hashes a backup artifact so a rollback can be verified
// against the metadata recorded at backup time.
func blake2bChecksum(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (e *Executor) rollbackDocker(ctx context.Context, component, backupPath string) RollbackResult {
	var imageID string
	entries, err := os.ReadDir(backupPath)
	if err == nil {
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() {
				names = append(names, entry.Name())
			}
		}
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
		for _, ts := range names {
			imageFile := filepath.Join(backupPath, ts, "image_id.txt")
			if data, err := os.ReadFile(imageFile); err == nil {
				imageID = strings.TrimSpace(string(data))
				break
			}
		}
	}

	if imageID == "" {
		return RollbackResult{Success: false, Component: component, Message: "No backed-up image ID found"}
	}

	result, err := platform.RunCommand(ctx, updateTimeout, maxOutputBytes,
		"docker", "compose", "-f", e.composeFile, "up", "-d", "--no-deps", component)
	if err != nil {
		return RollbackResult{Success: false, Component: component, Message: fmt.Sprintf("Rollback failed: %s", result.Stdout+result.Stderr)}
	}

	shortID := imageID
	if len(shortID) > 12 {
		shortID = shortID[:12]
	}
	return RollbackResult{Success: true, Component: component, Message: fmt.Sprintf("Rolled back %s to image %s", component, shortID)}
}

func (e *Executor) rollbackFile(component, backupPath, targetPath string) RollbackResult {
	entries, err := os.ReadDir(backupPath)
	if err != nil {
		return RollbackResult{Success: false, Component: component, Message: fmt.Sprintf("File restore failed: %v", err)}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	targetName := filepath.Base(targetPath)
	for _, ts := range names {
		backupFile := filepath.Join(backupPath, ts, targetName)
		if _, err := os.Stat(backupFile); err == nil {
			if err := copyFile(backupFile, targetPath); err != nil {
				return RollbackResult{Success: false, Component: component, Message: fmt.Sprintf("File restore failed: %v", err)}
			}
			return RollbackResult{Success: true, Component: component, Message: fmt.Sprintf("Restored %s from backup %s", targetPath, ts)}
		}
	}

	return RollbackResult{Success: false, Component: component, Message: "No backup file found to restore"}
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return errors.New("refusing to copy a directory")
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
