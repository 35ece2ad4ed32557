// Package sysversion inventories the running versions of every NetTap
// component: the daemon itself, its Docker containers, system packages,
// databases/rulesets, and the underlying OS.
package sysversion

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/wisbric/nightowl/internal/platform"
)

// NettapVersion is the daemon's own release version.
const NettapVersion = "0.4.0"

const (
	cacheTTL       = 600 * time.Second
	cacheKey       = "versions"
	scanTimeout    = 15 * time.Second
	maxScanOutput  = 256 * 1024
)

// Component is the version state of one NetTap component.
type Component struct {
	Name           string         `json:"name"`
	Category       string         `json:"category"`
	CurrentVersion string         `json:"current_version"`
	InstallType    string         `json:"install_type"`
	LastChecked    string         `json:"last_checked"`
	Status         string         `json:"status"`
	Details        map[string]any `json:"details"`
}

// Inventory is the result of a full scan (or a cached one).
type Inventory struct {
	Versions []Component `json:"versions"`
	LastScan string      `json:"last_scan"`
	Count    int         `json:"count"`
}

var knownContainers = []string{
	"zeek", "suricata", "arkime", "opensearch", "dashboards", "logstash",
	"file-monitor", "pcap-capture", "freq", "htadmin", "nginx-proxy",
}

type packageCheck struct {
	name       string
	argv       []string
	versionPat *regexp.Regexp
}

var systemPackages = []packageCheck{
	{"zeek", []string{"zeek", "--version"}, regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?)`)},
	{"suricata", []string{"suricata", "--build-info"}, regexp.MustCompile(`Suricata\s+(\d+\.\d+(?:\.\d+)?)`)},
	{"tshark", []string{"tshark", "--version"}, regexp.MustCompile(`TShark.*?(\d+\.\d+(?:\.\d+)?)`)},
	{"python3", []string{"python3", "--version"}, regexp.MustCompile(`Python\s+(\d+\.\d+(?:\.\d+)?)`)},
	{"node", []string{"node", "--version"}, regexp.MustCompile(`v?(\d+\.\d+(?:\.\d+)?)`)},
	{"docker", []string{"docker", "--version"}, regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?)`)},
	{"docker-compose", []string{"docker", "compose", "version"}, regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?)`)},
}

// Manager scans and caches the component inventory.
type Manager struct {
	composeFile string
	geoIPPath   string
	openSearchURL string
	webPackageJSON []string
	suricataRulePaths []string
	logger *slog.Logger
	cache  *platform.TTLCache

	scanMu sync.Mutex
}

// NewManager creates a version Manager.
func NewManager(composeFile, geoIPPath, openSearchURL string, cache *platform.TTLCache, logger *slog.Logger) *Manager {
	return &Manager{
		composeFile:   composeFile,
		geoIPPath:     geoIPPath,
		openSearchURL: openSearchURL,
		webPackageJSON: []string{
			"/opt/nettap/web/package.json",
			filepath.Join(filepath.Dir(composeFile), "..", "web", "package.json"),
		},
		suricataRulePaths: []string{
			"/var/lib/suricata/rules/suricata.rules",
			"/opt/nettap/config/suricata/rules/suricata.rules",
		},
		logger: logger,
		cache:  cache,
	}
}

func (m *Manager) run(ctx context.Context, argv ...string) string {
	result, err := platform.RunCommand(ctx, scanTimeout, maxScanOutput, argv...)
	if err != nil && result.Stdout == "" {
		return ""
	}
	return result.Stdout
}

// ScanVersions runs every scan category and atomically replaces the cache.
// A second call while a scan is already underway blocks until it finishes
// and then runs its own scan -- there is no collapsing of concurrent scans,
// matching the best-effort nature of the inventory.
func (m *Manager) ScanVersions(ctx context.Context) (Inventory, error) {
	m.scanMu.Lock()
	defer m.scanMu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	var versions []Component
	versions = append(versions, m.scanCore(ctx, now)...)
	versions = append(versions, m.scanDockerImages(ctx, now)...)
	versions = append(versions, m.scanSystemPackages(ctx, now)...)
	versions = append(versions, m.scanDatabases(ctx, now)...)
	versions = append(versions, m.scanOSInfo(ctx, now)...)

	inventory := Inventory{Versions: versions, LastScan: now, Count: len(versions)}
	if m.cache != nil {
		if err := m.cache.Set(ctx, cacheKey, inventory, cacheTTL); err != nil {
			m.logger.Warn("failed to cache version scan", "error", err)
		}
	}
	m.logger.Info("version scan complete", "components", len(versions))
	return inventory, nil
}

// GetVersions returns the cached inventory, scanning first when the cache
// is empty or has expired.
func (m *Manager) GetVersions(ctx context.Context) (Inventory, error) {
	if m.cache != nil {
		var cached Inventory
		if ok, err := m.cache.Get(ctx, cacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}
	return m.ScanVersions(ctx)
}

// GetComponent returns one component's version info, scanning first if the
// cache is cold.
func (m *Manager) GetComponent(ctx context.Context, name string) (Component, bool, error) {
	inventory, err := m.GetVersions(ctx)
	if err != nil {
		return Component{}, false, err
	}
	for _, c := range inventory.Versions {
		if c.Name == name {
			return c, true, nil
		}
	}
	return Component{}, false, nil
}

func (m *Manager) scanCore(ctx context.Context, now string) []Component {
	results := []Component{{
		Name: "nettap-daemon", Category: "core", CurrentVersion: NettapVersion,
		InstallType: "pip", LastChecked: now, Status: "ok",
		Details: map[string]any{"source": "module_constant"},
	}}

	webVersion, webStatus, webDetails := "unknown", "unknown", map[string]any{}
	for _, pkgPath := range m.webPackageJSON {
		raw, err := os.ReadFile(pkgPath)
		if err != nil {
			continue
		}
		var pkg struct {
			Version string `json:"version"`
		}
		if err := json.Unmarshal(raw, &pkg); err != nil {
			continue
		}
		webVersion = pkg.Version
		if webVersion == "" {
			webVersion = "unknown"
		}
		webStatus = "ok"
		webDetails = map[string]any{"package_json": pkgPath}
		break
	}
	results = append(results, Component{
		Name: "nettap-web", Category: "core", CurrentVersion: webVersion,
		InstallType: "npm", LastChecked: now, Status: webStatus, Details: webDetails,
	})

	configVersion, configStatus, configDetails := "unknown", "unknown", map[string]any{}
	if info, err := os.Stat(m.composeFile); err == nil {
		configVersion = info.ModTime().UTC().Format("20060102")
		configStatus = "ok"
		configDetails = map[string]any{"compose_file": m.composeFile}
	}
	results = append(results, Component{
		Name: "nettap-config", Category: "core", CurrentVersion: configVersion,
		InstallType: "builtin", LastChecked: now, Status: configStatus, Details: configDetails,
	})

	return results
}

func (m *Manager) scanDockerImages(ctx context.Context, now string) []Component {
	output := m.run(ctx, "docker", "ps", "--format", "{{.Names}}\t{{.Image}}\t{{.ID}}")
	if strings.TrimSpace(output) == "" {
		return []Component{{
			Name: "docker", Category: "docker", CurrentVersion: "unknown",
			InstallType: "docker", LastChecked: now, Status: "error",
			Details: map[string]any{"error": "docker ps produced no output"},
		}}
	}

	var results []Component
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		containerName := strings.TrimSpace(parts[0])
		image := strings.TrimSpace(parts[1])
		containerID := ""
		if len(parts) > 2 {
			containerID = strings.TrimSpace(parts[2])
		}

		tag := "latest"
		if idx := strings.LastIndex(image, ":"); idx != -1 {
			tag = image[idx+1:]
		}

		componentName := containerName
		lower := strings.ToLower(containerName)
		for _, known := range knownContainers {
			if strings.Contains(lower, known) {
				componentName = known
				break
			}
		}

		results = append(results, Component{
			Name: componentName, Category: "docker", CurrentVersion: tag,
			InstallType: "docker", LastChecked: now, Status: "ok",
			Details: map[string]any{"image": image, "container_name": containerName, "container_id": containerID},
		})
	}
	return results
}

func (m *Manager) scanSystemPackages(ctx context.Context, now string) []Component {
	results := make([]Component, 0, len(systemPackages))
	for _, pkg := range systemPackages {
		version, status := "unknown", "unknown"
		details := map[string]any{}

		output := m.run(ctx, pkg.argv...)
		if output != "" {
			if match := pkg.versionPat.FindStringSubmatch(output); match != nil {
				version = match[1]
				status = "ok"
			}
			details = map[string]any{"raw_output": truncate(strings.TrimSpace(output), 200)}
		}

		results = append(results, Component{
			Name: pkg.name, Category: "system", CurrentVersion: version,
			InstallType: "apt", LastChecked: now, Status: status, Details: details,
		})
	}
	return results
}

func (m *Manager) scanDatabases(ctx context.Context, now string) []Component {
	var results []Component

	rulesVersion, rulesStatus, rulesDetails := "unknown", "unknown", map[string]any{}
	for _, rulePath := range m.suricataRulePaths {
		info, err := os.Stat(rulePath)
		if err != nil {
			continue
		}
		rulesVersion = info.ModTime().UTC().Format("2006-01-02")
		rulesStatus = "ok"
		rulesDetails = map[string]any{"rule_file": rulePath}
		break
	}
	results = append(results, Component{
		Name: "suricata-rules", Category: "database", CurrentVersion: rulesVersion,
		InstallType: "builtin", LastChecked: now, Status: rulesStatus, Details: rulesDetails,
	})

	geoipVersion, geoipStatus, geoipDetails := "unknown", "unknown", map[string]any{}
	geoipPaths := []string{m.geoIPPath, "/usr/share/GeoIP/GeoLite2-City.mmdb", "/opt/nettap/data/GeoLite2-City.mmdb"}
	for _, geoipPath := range geoipPaths {
		if geoipPath == "" {
			continue
		}
		info, err := os.Stat(geoipPath)
		if err != nil {
			continue
		}
		geoipVersion = info.ModTime().UTC().Format("2006-01-02")
		geoipStatus = "ok"
		geoipDetails = map[string]any{"db_file": geoipPath}
		break
	}
	results = append(results, Component{
		Name: "geoip-db", Category: "database", CurrentVersion: geoipVersion,
		InstallType: "builtin", LastChecked: now, Status: geoipStatus, Details: geoipDetails,
	})

	osVersion, osStatus, osDetails := "unknown", "unknown", map[string]any{}
	output := m.run(ctx, "curl", "-sk", m.openSearchURL, "--connect-timeout", "5")
	if output != "" {
		var info struct {
			ClusterName string `json:"cluster_name"`
			Version     struct {
				Number       string `json:"number"`
				Distribution string `json:"distribution"`
			} `json:"version"`
		}
		if err := json.Unmarshal([]byte(output), &info); err == nil {
			osVersion = info.Version.Number
			if osVersion == "" {
				osVersion = "unknown"
			}
			osStatus = "ok"
			distribution := info.Version.Distribution
			if distribution == "" {
				distribution = "opensearch"
			}
			osDetails = map[string]any{"cluster_name": info.ClusterName, "distribution": distribution}
		}
	}
	results = append(results, Component{
		Name: "opensearch", Category: "database", CurrentVersion: osVersion,
		InstallType: "docker", LastChecked: now, Status: osStatus, Details: osDetails,
	})

	return results
}

var osReleaseVersionRe = regexp.MustCompile(`^VERSION_ID="?([^"\n]*)"?$`)
var osReleaseNameRe = regexp.MustCompile(`^PRETTY_NAME="?([^"\n]*)"?$`)

func (m *Manager) scanOSInfo(ctx context.Context, now string) []Component {
	var results []Component

	osVersion, prettyName, osStatus := "unknown", "unknown", "unknown"
	osDetails := map[string]any{}
	if raw, err := os.ReadFile("/etc/os-release"); err == nil {
		for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
			if v := match1(osReleaseVersionRe, line); v != "" {
				osVersion = v
			}
			if v := match1(osReleaseNameRe, line); v != "" {
				prettyName = v
			}
		}
		osStatus = "ok"
		osDetails = map[string]any{"pretty_name": prettyName}
	}
	results = append(results, Component{
		Name: "os", Category: "os", CurrentVersion: osVersion,
		InstallType: "builtin", LastChecked: now, Status: osStatus, Details: osDetails,
	})

	kernelVersion, kernelStatus := "unknown", "unknown"
	if output := strings.TrimSpace(m.run(ctx, "uname", "-r")); output != "" {
		kernelVersion = output
		kernelStatus = "ok"
	}
	results = append(results, Component{
		Name: "kernel", Category: "os", CurrentVersion: kernelVersion,
		InstallType: "builtin", LastChecked: now, Status: kernelStatus, Details: map[string]any{},
	})

	return results
}

func match1(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return ""
	}
	return m[1]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
