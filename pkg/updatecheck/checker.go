// Package updatecheck compares the locally detected component versions
// (pkg/sysversion) against upstream sources -- GitHub Releases, Docker Hub,
// and file-age heuristics for rule/GeoIP data -- to surface available
// updates.
package updatecheck

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/wisbric/nightowl/internal/platform"
	"github.com/wisbric/nightowl/pkg/sysversion"
)

const (
	cacheKey           = "updates"
	defaultCacheTTL    = 6 * time.Hour
	fetchTimeout       = 15 * time.Second
	ruleStaleDays      = 1
	geoIPStaleDays     = 7
	approxRulesSizeMB  = 15.0
	approxGeoIPSizeMB  = 65.0
	defaultReleaseSize = 50.0
)

var dockerImages = map[string]string{
	"zeek":         "malcolm/zeek",
	"suricata":     "malcolm/suricata",
	"arkime":       "malcolm/arkime",
	"opensearch":   "opensearchproject/opensearch",
	"dashboards":   "opensearchproject/opensearch-dashboards",
	"logstash":     "malcolm/logstash-oss",
	"file-monitor": "malcolm/file-monitor",
	"pcap-capture": "malcolm/pcap-capture",
}

// Update describes one available upgrade for a component.
type Update struct {
	Component       string  `json:"component"`
	CurrentVersion  string  `json:"current_version"`
	LatestVersion   string  `json:"latest_version"`
	UpdateType      string  `json:"update_type"`
	ReleaseURL      string  `json:"release_url"`
	ReleaseDate     string  `json:"release_date"`
	Changelog       string  `json:"changelog"`
	SizeMB          float64 `json:"size_mb"`
	RequiresRestart bool    `json:"requires_restart"`
}

// Result is the outcome of an update check (fresh or cached).
type Result struct {
	Updates    []Update `json:"updates"`
	LastCheck  string   `json:"last_check"`
	Count      int      `json:"count"`
	HasUpdates bool     `json:"has_updates"`
}

// Checker checks upstream sources for available component updates.
type Checker struct {
	githubRepo        string
	cacheTTL          time.Duration
	geoIPPath         string
	suricataRulePaths []string
	versions          *sysversion.Manager
	cache             *platform.TTLCache
	httpClient        *http.Client
	logger            *slog.Logger

	checkMu sync.Mutex
}

// NewChecker creates an update Checker.
func NewChecker(githubRepo, geoIPPath string, versions *sysversion.Manager, cache *platform.TTLCache, logger *slog.Logger) *Checker {
	return &Checker{
		githubRepo: githubRepo,
		cacheTTL:   defaultCacheTTL,
		geoIPPath:  geoIPPath,
		suricataRulePaths: []string{
			"/var/lib/suricata/rules/suricata.rules",
			"/opt/nettap/config/suricata/rules/suricata.rules",
		},
		versions:   versions,
		cache:      cache,
		httpClient: &http.Client{Timeout: fetchTimeout},
		logger:     logger,
	}
}

// CheckUpdates queries every upstream source and replaces the cache. A
// second call made while one is already running blocks on the same mutex
// and then performs its own fresh check.
func (c *Checker) CheckUpdates(ctx context.Context) (Result, error) {
	c.checkMu.Lock()
	defer c.checkMu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	var updates []Update

	currentVersions := map[string]string{}
	if c.versions != nil {
		if inventory, err := c.versions.GetVersions(ctx); err == nil {
			for _, v := range inventory.Versions {
				currentVersions[v.Name] = v.CurrentVersion
			}
		} else {
			c.logger.Debug("could not get current versions", "error", err)
		}
	}

	updates = append(updates, c.checkGitHubReleases(ctx, currentVersions["nettap-daemon"])...)
	updates = append(updates, c.checkDockerUpdates(ctx, currentVersions)...)
	if rules := c.checkSuricataRules(); rules != nil {
		updates = append(updates, *rules)
	}
	if geoip := c.checkGeoIPUpdate(); geoip != nil {
		updates = append(updates, *geoip)
	}

	result := Result{Updates: updates, LastCheck: now, Count: len(updates), HasUpdates: len(updates) > 0}
	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, result, c.cacheTTL); err != nil {
			c.logger.Warn("failed to cache update check", "error", err)
		}
	}
	c.logger.Info("update check complete", "updates", len(updates))
	return result, nil
}

// GetAvailable returns the cached result, or runs a fresh check when the
// cache is cold.
func (c *Checker) GetAvailable(ctx context.Context) (Result, error) {
	if c.cache != nil {
		var cached Result
		if ok, err := c.cache.Get(ctx, cacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}
	return c.CheckUpdates(ctx)
}

// GetUpdateFor returns the update entry for one component, if any.
func (c *Checker) GetUpdateFor(ctx context.Context, component string) (Update, bool, error) {
	result, err := c.GetAvailable(ctx)
	if err != nil {
		return Update{}, false, err
	}
	for _, u := range result.Updates {
		if u.Component == component {
			return u, true, nil
		}
	}
	return Update{}, false, nil
}

func (c *Checker) fetchJSON(ctx context.Context, url string) map[string]any {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("http request failed", "url", url, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("unexpected status from upstream", "url", url, "status", resp.StatusCode)
		return nil
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		c.logger.Debug("failed to decode upstream json", "url", url, "error", err)
		return nil
	}
	return data
}

func (c *Checker) checkGitHubReleases(ctx context.Context, currentVersion string) []Update {
	if currentVersion == "" {
		currentVersion = sysversion.NettapVersion
	}
	url := fmt.Sprintf("https://api.github.com/repos/%s/releases/latest", c.githubRepo)
	data := c.fetchJSON(ctx, url)
	return c.checkGitHubReleasesFromData(data, currentVersion)
}

// checkGitHubReleasesFromData applies the update comparison to an
// already-fetched release payload, separated out from checkGitHubReleases
// so it can be exercised without a live HTTP round trip.
func (c *Checker) checkGitHubReleasesFromData(data map[string]any, currentVersion string) []Update {
	tagName, _ := data["tag_name"].(string)
	if tagName == "" {
		return nil
	}
	latestVersion := strings.TrimPrefix(tagName, "v")

	updateType := sysversion.Diff(currentVersion, latestVersion)
	if updateType == "same" {
		return nil
	}

	htmlURL, _ := data["html_url"].(string)
	publishedAt, _ := data["published_at"].(string)
	body, _ := data["body"].(string)

	return []Update{{
		Component:       "nettap-daemon",
		CurrentVersion:  currentVersion,
		LatestVersion:   latestVersion,
		UpdateType:      updateType,
		ReleaseURL:      htmlURL,
		ReleaseDate:     publishedAt,
		Changelog:       truncateString(body, 500),
		SizeMB:          estimateReleaseSize(data),
		RequiresRestart: true,
	}}
}

func (c *Checker) checkDockerUpdates(ctx context.Context, currentVersions map[string]string) []Update {
	var results []Update
	for component, image := range dockerImages {
		current, ok := currentVersions[component]
		if !ok || current == "" || current == "unknown" || current == "latest" {
			continue
		}

		url := fmt.Sprintf("https://hub.docker.com/v2/repositories/%s/tags/?page_size=5&ordering=last_updated", image)
		data := c.fetchJSON(ctx, url)
		rawResults, _ := data["results"].([]any)

		for _, r := range rawResults {
			tagInfo, ok := r.(map[string]any)
			if !ok {
				continue
			}
			tagName, _ := tagInfo["name"].(string)
			if tagName == "" || tagName == "latest" {
				continue
			}

			latestVersion := strings.TrimPrefix(tagName, "v")
			currentClean := strings.TrimPrefix(current, "v")
			updateType := sysversion.Diff(currentClean, latestVersion)
			if updateType == "same" || updateType == "unknown" {
				continue
			}

			var totalSize float64
			if v, ok := tagInfo["full_size"].(float64); ok {
				totalSize = v
			}
			lastUpdated, _ := tagInfo["last_updated"].(string)

			results = append(results, Update{
				Component:       component,
				CurrentVersion:  current,
				LatestVersion:   tagName,
				UpdateType:      updateType,
				ReleaseURL:      fmt.Sprintf("https://hub.docker.com/r/%s/tags", image),
				ReleaseDate:     lastUpdated,
				Changelog:       fmt.Sprintf("Docker image %s updated", image),
				SizeMB:          round1(totalSize / (1024 * 1024)),
				RequiresRestart: true,
			})
			break // only report the latest newer tag
		}
	}
	return results
}

func (c *Checker) checkSuricataRules() *Update {
	for _, rulePath := range c.suricataRulePaths {
		info, err := os.Stat(rulePath)
		if err != nil {
			continue
		}
		now := time.Now().UTC()
		ruleDate := info.ModTime().UTC()
		ageDays := int(now.Sub(ruleDate).Hours() / 24)
		if ageDays < ruleStaleDays {
			return nil
		}
		return &Update{
			Component:       "suricata-rules",
			CurrentVersion:  ruleDate.Format("2006-01-02"),
			LatestVersion:   now.Format("2006-01-02"),
			UpdateType:      "patch",
			ReleaseURL:      "https://rules.emergingthreats.net/",
			ReleaseDate:     now.Format(time.RFC3339),
			Changelog:       fmt.Sprintf("Suricata rules are %d day(s) old", ageDays),
			SizeMB:          approxRulesSizeMB,
			RequiresRestart: true,
		}
	}
	return nil
}

func (c *Checker) checkGeoIPUpdate() *Update {
	geoipPaths := []string{c.geoIPPath, "/usr/share/GeoIP/GeoLite2-City.mmdb", "/opt/nettap/data/GeoLite2-City.mmdb"}
	for _, geoipPath := range geoipPaths {
		if geoipPath == "" {
			continue
		}
		info, err := os.Stat(geoipPath)
		if err != nil {
			continue
		}
		now := time.Now().UTC()
		dbDate := info.ModTime().UTC()
		ageDays := int(now.Sub(dbDate).Hours() / 24)
		if ageDays < geoIPStaleDays {
			return nil
		}
		return &Update{
			Component:       "geoip-db",
			CurrentVersion:  dbDate.Format("2006-01-02"),
			LatestVersion:   now.Format("2006-01-02"),
			UpdateType:      "patch",
			ReleaseURL:      "https://dev.maxmind.com/geoip/updating-databases",
			ReleaseDate:     now.Format(time.RFC3339),
			Changelog:       fmt.Sprintf("GeoIP database is %d day(s) old", ageDays),
			SizeMB:          approxGeoIPSizeMB,
			RequiresRestart: false,
		}
	}
	return nil
}

func estimateReleaseSize(data map[string]any) float64 {
	assets, _ := data["assets"].([]any)
	var total float64
	for _, a := range assets {
		asset, ok := a.(map[string]any)
		if !ok {
			continue
		}
		if size, ok := asset["size"].(float64); ok {
			total += size
		}
	}
	if total > 0 {
		return round1(total / (1024 * 1024))
	}
	return defaultReleaseSize
}

func truncateString(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
