// Package app wires every NetTap component together and drives both the
// HTTP surface and the background periodic loop from one Run call.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/wisbric/nightowl/internal/config"
	"github.com/wisbric/nightowl/internal/httpserver"
	"github.com/wisbric/nightowl/internal/platform"
	"github.com/wisbric/nightowl/internal/telemetry"
	"github.com/wisbric/nightowl/pkg/alertnotify"
	"github.com/wisbric/nightowl/pkg/alertstore"
	"github.com/wisbric/nightowl/pkg/bridgehealth"
	"github.com/wisbric/nightowl/pkg/detectionpack"
	"github.com/wisbric/nightowl/pkg/devicestore"
	"github.com/wisbric/nightowl/pkg/ilm"
	"github.com/wisbric/nightowl/pkg/inethealth"
	"github.com/wisbric/nightowl/pkg/investigation"
	"github.com/wisbric/nightowl/pkg/reportschedule"
	"github.com/wisbric/nightowl/pkg/risk"
	"github.com/wisbric/nightowl/pkg/searchquery"
	"github.com/wisbric/nightowl/pkg/smart"
	"github.com/wisbric/nightowl/pkg/storage"
	"github.com/wisbric/nightowl/pkg/sysversion"
	"github.com/wisbric/nightowl/pkg/tshark"
	"github.com/wisbric/nightowl/pkg/updatecheck"
	"github.com/wisbric/nightowl/pkg/updateexec"
)

// upstreamGitHubRepo is the repository update checks compare the running
// daemon version against.
const upstreamGitHubRepo = "nettap-project/nettap"

const historySize = 500

// components holds every constructed domain object Run needs, so wiring and
// the periodic driver can both see them without threading a long argument
// list through every function.
type components struct {
	cfg    *config.Config
	logger *slog.Logger

	search *platform.SearchClient

	storageMgr    *storage.Manager
	bridgeMonitor *bridgehealth.Monitor
	inetMonitor   *inethealth.Monitor
	versions      *sysversion.Manager
	updateChecker *updatecheck.Checker
	updateExec    *updateexec.Executor
	ilmApplier    *ilm.Applier
	smartMonitor  *smart.Monitor
	notifier      *alertnotify.Notifier

	investigations *investigation.Store
	schedules      *reportschedule.Store
}

// Run builds every NetTap component, starts the HTTP server, and runs the
// periodic driver until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	metricsReg := telemetry.NewMetricsRegistry(telemetry.All()...)

	search, err := platform.NewSearchClient(cfg.OpenSearchURL, cfg.OpenSearchTimeout)
	if err != nil {
		return fmt.Errorf("creating opensearch client: %w", err)
	}

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, falling back to in-process cache", "error", err)
		rdb = nil
	}
	cache := platform.NewTTLCache(rdb, "nettap:")

	retention := storage.RetentionConfig{
		CheckPath:          cfg.StorageCheckPath,
		HotDays:            cfg.StorageHotDays,
		WarmDays:           cfg.StorageWarmDays,
		ColdDays:           cfg.StorageColdDays,
		DiskThreshold:      cfg.StorageDiskThreshold,
		EmergencyThreshold: cfg.StorageEmergencyThreshold,
	}

	versions := sysversion.NewManager(cfg.ComposeFile, cfg.GeoIPDBPath, cfg.OpenSearchURL, cache, logger)

	c := &components{
		cfg:    cfg,
		logger: logger,
		search: search,

		storageMgr:    storage.NewManager(search, logger, retention),
		bridgeMonitor: bridgehealth.New(cfg.BridgeIface, cfg.WANIface, cfg.LANIface, historySize, logger),
		inetMonitor:   inethealth.New(cfg.InternetPingTargets, cfg.InternetDNSTargets, historySize, logger),
		versions:      versions,
		updateChecker: updatecheck.NewChecker(upstreamGitHubRepo, cfg.GeoIPDBPath, versions, cache, logger),
		updateExec:    updateexec.NewExecutor(cfg.ComposeFile, cfg.UpdateBackupDir, cfg.GeoIPDBPath, versions, logger),
		ilmApplier:    ilm.New(search, retention, logger),
		smartMonitor:  smart.New(cfg.SMARTDevices, logger),
		notifier:      alertnotify.New(cfg.SlackWebhookURL, logger),

		investigations: investigation.New(cfg.InvestigationsFile, logger),
		schedules:      reportschedule.New(cfg.ReportSchedulesFile, logger),
	}

	srv := httpserver.NewServer(cfg.CORSAllowedOrigins, logger, metricsReg)
	mountRoutes(srv, c)

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: srv,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}
		errCh <- nil
	}()

	go runDriver(ctx, c)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down http server", "error", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// mountRoutes attaches every domain handler to the server's /api sub-router.
func mountRoutes(srv *httpserver.Server, c *components) {
	storageHandler := storage.NewHandler(c.storageMgr, c.logger)
	srv.APIRouter.Mount("/storage", storageHandler.Routes())
	srv.APIRouter.Mount("/indices", storageHandler.IndicesRoutes())

	srv.APIRouter.Mount("/risk", risk.NewHandler(c.search, c.logger).Routes())
	srv.APIRouter.Mount("/bridge-health", bridgehealth.NewHandler(c.bridgeMonitor).Routes())
	srv.APIRouter.Mount("/internet-health", inethealth.NewHandler(c.inetMonitor).Routes())
	srv.APIRouter.Mount("/tshark", tshark.NewHandler(tshark.New(c.cfg.PCAPBaseDir, c.logger)).Routes())
	srv.APIRouter.Mount("/versions", sysversion.NewHandler(c.versions).Routes())
	// The checker and the executor share the /updates prefix and chi allows
	// one Mount per path, so the executor's routes hang off the checker's router.
	updatesRouter := updatecheck.NewHandler(c.updateChecker).Routes()
	execRouter := updateexec.NewHandler(c.updateExec).Routes()
	for _, p := range []string{"/apply", "/status", "/history", "/rollback/*"} {
		updatesRouter.Handle(p, execRouter)
	}
	srv.APIRouter.Mount("/updates", updatesRouter)
	srv.APIRouter.Mount("/ilm", ilm.NewHandler(c.ilmApplier).Routes())
	srv.APIRouter.Mount("/smart", smart.NewHandler(c.smartMonitor).Routes())

	srv.APIRouter.Mount("/alerts/acks", alertstore.NewHandler(alertstore.New(c.cfg.AlertAckFile, c.logger)).Routes())
	srv.APIRouter.Mount("/devices/baseline", devicestore.NewHandler(devicestore.New(c.cfg.DeviceBaselineFile, c.logger)).Routes())
	srv.APIRouter.Mount("/investigations", investigation.NewHandler(c.investigations).Routes())
	srv.APIRouter.Mount("/reports/schedules", reportschedule.NewHandler(c.schedules).Routes())
	srv.APIRouter.Mount("/detection-packs", detectionpack.NewHandler(detectionpack.New(c.cfg.DetectionPacksFile, c.logger)).Routes())
}

// runDriver is the periodic background loop: tiered/emergency storage
// pruning, bridge/internet health sampling, and a critical-alert watch, each
// on their own ticker and each error-isolated from the others so one tick
// failing never stops the others from running again, grounded on
// pkg/escalation's single-select-loop shape.
func runDriver(ctx context.Context, c *components) {
	pruneTicker := time.NewTicker(c.cfg.StoragePruneInterval)
	defer pruneTicker.Stop()

	healthTicker := time.NewTicker(c.cfg.BridgeSampleInterval)
	defer healthTicker.Stop()

	internetTicker := time.NewTicker(c.cfg.InternetSampleInterval)
	defer internetTicker.Stop()

	alertTicker := time.NewTicker(c.cfg.BridgeSampleInterval)
	defer alertTicker.Stop()

	var lastAlertScan time.Time
	notified := make(map[string]bool)

	c.logger.Info("periodic driver started",
		"prune_interval", c.cfg.StoragePruneInterval,
		"bridge_interval", c.cfg.BridgeSampleInterval,
		"internet_interval", c.cfg.InternetSampleInterval,
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("periodic driver stopped")
			return
		case <-pruneTicker.C:
			c.storageMgr.RunCycle(ctx)
		case <-healthTicker.C:
			c.bridgeMonitor.CheckHealth(ctx)
		case <-internetTicker.C:
			c.inetMonitor.CheckHealth(ctx)
		case <-alertTicker.C:
			lastAlertScan = scanCriticalAlerts(ctx, c, lastAlertScan, notified)
		}
	}
}

// scanCriticalAlerts queries for Suricata alerts at severity 1 seen since
// the last scan and posts a Slack notification for any not already notified
// this process's lifetime. Returns the timestamp to use as the next scan's
// lower bound.
func scanCriticalAlerts(ctx context.Context, c *components, since time.Time, notified map[string]bool) time.Time {
	if !c.notifier.IsEnabled() {
		return since
	}

	from := since
	if from.IsZero() {
		from = time.Now().UTC().Add(-5 * time.Minute)
	}
	now := time.Now().UTC()

	query := searchquery.Query(50, 0, searchquery.Bool([]searchquery.M{
		searchquery.TimeRange("timestamp", from.Format(time.RFC3339), now.Format(time.RFC3339)),
		searchquery.Term("alert.severity", 1),
	}, nil, nil, nil), []searchquery.M{{"timestamp": "asc"}}, nil)

	result, err := c.search.Search(ctx, "suricata-*", query)
	if err != nil {
		c.logger.Warn("critical alert scan failed", "error", err)
		return since
	}

	hits := extractHits(result)
	newest := since
	for _, hit := range hits {
		id, _ := hit["_id"].(string)
		if id == "" || notified[id] {
			continue
		}
		source, _ := hit["_source"].(map[string]any)
		info := alertInfoFromSource(id, source)
		if err := c.notifier.NotifyCritical(ctx, info); err == nil {
			notified[id] = true
		}
		if ts, ok := parseHitTime(source); ok && ts.After(newest) {
			newest = ts
		}
	}
	if newest.IsZero() {
		return now
	}
	return newest
}

func extractHits(result map[string]any) []map[string]any {
	hitsObj, _ := result["hits"].(map[string]any)
	rawHits, _ := hitsObj["hits"].([]any)
	out := make([]map[string]any, 0, len(rawHits))
	for _, h := range rawHits {
		if m, ok := h.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func alertInfoFromSource(id string, source map[string]any) alertnotify.AlertInfo {
	alert, _ := source["alert"].(map[string]any)
	signature, _ := alert["signature"].(string)
	srcIP, _ := source["src_ip"].(string)
	destIP, _ := source["dest_ip"].(string)
	timestamp, _ := source["timestamp"].(string)
	return alertnotify.AlertInfo{
		AlertID:    id,
		Signature:  signature,
		Severity:   1,
		SourceIP:   srcIP,
		DestIP:     destIP,
		DetectedAt: timestamp,
	}
}

func parseHitTime(source map[string]any) (time.Time, bool) {
	raw, _ := source["timestamp"].(string)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
