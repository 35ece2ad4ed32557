package sysversion

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/wisbric/nightowl/internal/platform"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScanCoreReportsDaemonVersion(t *testing.T) {
	dir := t.TempDir()
	compose := filepath.Join(dir, "docker-compose.yml")
	if err := os.WriteFile(compose, []byte("services: {}\n"), 0o644); err != nil {
		t.Fatalf("writing compose file: %v", err)
	}

	m := NewManager(compose, "", "http://localhost:9200", nil, discardLogger())
	results := m.scanCore(context.Background(), "2026-07-31T00:00:00Z")

	var daemon *Component
	for i := range results {
		if results[i].Name == "nettap-daemon" {
			daemon = &results[i]
		}
	}
	if daemon == nil {
		t.Fatal("expected nettap-daemon entry")
	}
	if daemon.CurrentVersion != NettapVersion {
		t.Errorf("expected daemon version %q, got %q", NettapVersion, daemon.CurrentVersion)
	}
	if daemon.Status != "ok" {
		t.Errorf("expected ok status, got %q", daemon.Status)
	}
}

func TestScanCoreConfigVersionFromMtime(t *testing.T) {
	dir := t.TempDir()
	compose := filepath.Join(dir, "docker-compose.yml")
	if err := os.WriteFile(compose, []byte("services: {}\n"), 0o644); err != nil {
		t.Fatalf("writing compose file: %v", err)
	}

	m := NewManager(compose, "", "http://localhost:9200", nil, discardLogger())
	results := m.scanCore(context.Background(), "2026-07-31T00:00:00Z")

	var config *Component
	for i := range results {
		if results[i].Name == "nettap-config" {
			config = &results[i]
		}
	}
	if config == nil {
		t.Fatal("expected nettap-config entry")
	}
	if config.Status != "ok" || config.CurrentVersion == "unknown" {
		t.Errorf("expected resolved config version, got %+v", config)
	}
}

func TestScanCoreMissingComposeFileIsUnknownNotError(t *testing.T) {
	m := NewManager("/nonexistent/compose.yml", "", "http://localhost:9200", nil, discardLogger())
	results := m.scanCore(context.Background(), "2026-07-31T00:00:00Z")

	var config *Component
	for i := range results {
		if results[i].Name == "nettap-config" {
			config = &results[i]
		}
	}
	if config == nil {
		t.Fatal("expected nettap-config entry")
	}
	if config.Status != "unknown" || config.CurrentVersion != "unknown" {
		t.Errorf("expected unknown config version for missing compose file, got %+v", config)
	}
}

func TestScanDatabasesGeoIPFromMtime(t *testing.T) {
	dir := t.TempDir()
	geoipPath := filepath.Join(dir, "GeoLite2-City.mmdb")
	if err := os.WriteFile(geoipPath, []byte("fake"), 0o644); err != nil {
		t.Fatalf("writing geoip file: %v", err)
	}

	m := NewManager("/nonexistent/compose.yml", geoipPath, "http://localhost:9200", nil, discardLogger())
	results := m.scanDatabases(context.Background(), "2026-07-31T00:00:00Z")

	var geoip *Component
	for i := range results {
		if results[i].Name == "geoip-db" {
			geoip = &results[i]
		}
	}
	if geoip == nil {
		t.Fatal("expected geoip-db entry")
	}
	if geoip.Status != "ok" {
		t.Errorf("expected ok status for present geoip file, got %+v", geoip)
	}
}

func TestGetComponentNotFound(t *testing.T) {
	cache := platform.NewTTLCache(nil, "sysversion-test:")
	m := NewManager("/nonexistent/compose.yml", "", "http://localhost:9200", cache, discardLogger())

	// Seed the cache directly so the lookup never shells out to real
	// subprocess tools.
	seeded := Inventory{
		Versions: []Component{{Name: "zeek", Category: "system", CurrentVersion: "6.0.4", Status: "ok"}},
		LastScan: "2026-07-31T00:00:00Z",
		Count:    1,
	}
	if err := cache.Set(context.Background(), cacheKey, seeded, cacheTTL); err != nil {
		t.Fatalf("seeding cache: %v", err)
	}

	_, found, err := m.GetComponent(context.Background(), "definitely-not-a-real-component")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected component not to be found")
	}

	zeek, found, err := m.GetComponent(context.Background(), "zeek")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || zeek.CurrentVersion != "6.0.4" {
		t.Errorf("expected seeded zeek entry, got found=%v %+v", found, zeek)
	}
}
