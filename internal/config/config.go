package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration, loaded from environment variables.
type Config struct {
	// Mode selects the runtime mode: "serve" (default).
	Mode string `env:"NETTAP_MODE" envDefault:"serve"`

	// Server
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port int    `env:"PORT" envDefault:"8880"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Telemetry
	MetricsPath string `env:"METRICS_PATH" envDefault:"/metrics"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// OpenSearch
	OpenSearchURL     string        `env:"OPENSEARCH_URL" envDefault:"http://localhost:9200"`
	OpenSearchTimeout time.Duration `env:"OPENSEARCH_TIMEOUT" envDefault:"30s"`

	// Redis (optional — falls back to an in-process cache when unset)
	RedisURL string `env:"REDIS_URL"`

	// Enrichment data sources
	GeoIPDBPath                string `env:"GEOIP_DB_PATH" envDefault:"/opt/nettap/data/GeoLite2-City.mmdb"`
	OUIDBPath                  string `env:"OUI_DB_PATH" envDefault:"/opt/nettap/data/oui.txt"`
	SuricataDescriptionsPath   string `env:"SURICATA_DESCRIPTIONS_PATH" envDefault:"/opt/nettap/data/suricata_descriptions.json"`

	// Persistent JSON stores
	AlertAckFile        string `env:"ALERT_ACK_FILE" envDefault:"/opt/nettap/data/alert_acks.json"`
	DeviceBaselineFile  string `env:"DEVICE_BASELINE_FILE" envDefault:"/opt/nettap/data/device_baseline.json"`
	InvestigationsFile  string `env:"INVESTIGATIONS_FILE" envDefault:"/opt/nettap/data/investigations.json"`
	ReportSchedulesFile string `env:"REPORT_SCHEDULES_FILE" envDefault:"/opt/nettap/data/report_schedules.json"`
	DetectionPacksFile  string `env:"DETECTION_PACKS_FILE" envDefault:"/opt/nettap/data/detection_packs.json"`

	// Bridge health
	BridgeIface         string        `env:"BRIDGE_IFACE" envDefault:"br0"`
	WANIface            string        `env:"WAN_IFACE" envDefault:"eth0"`
	LANIface            string        `env:"LAN_IFACE" envDefault:"eth1"`
	BypassSentinelFile  string        `env:"BYPASS_SENTINEL_FILE" envDefault:"/var/run/nettap-bypass-active"`
	WatchdogService     string        `env:"WATCHDOG_SERVICE" envDefault:"nettap-watchdog"`
	BridgeSampleInterval time.Duration `env:"BRIDGE_SAMPLE_INTERVAL" envDefault:"30s"`

	// Internet health
	InternetSampleInterval time.Duration `env:"INTERNET_SAMPLE_INTERVAL" envDefault:"30s"`
	InternetPingTargets    []string      `env:"INTERNET_PING_TARGETS" envDefault:"1.1.1.1,8.8.8.8" envSeparator:","`
	InternetDNSTargets     []string      `env:"INTERNET_DNS_TARGETS" envDefault:"cloudflare.com,google.com" envSeparator:","`

	// Storage / retention
	StorageCheckPath          string        `env:"STORAGE_CHECK_PATH" envDefault:"/"`
	StorageHotDays            int           `env:"STORAGE_HOT_DAYS" envDefault:"90"`
	StorageWarmDays           int           `env:"STORAGE_WARM_DAYS" envDefault:"180"`
	StorageColdDays           int           `env:"STORAGE_COLD_DAYS" envDefault:"365"`
	StorageDiskThreshold      float64       `env:"STORAGE_DISK_THRESHOLD" envDefault:"0.80"`
	StorageEmergencyThreshold float64       `env:"STORAGE_EMERGENCY_THRESHOLD" envDefault:"0.90"`
	StoragePruneInterval      time.Duration `env:"STORAGE_PRUNE_INTERVAL" envDefault:"15m"`

	// TShark subprocess gateway
	TSharkContainer string `env:"TSHARK_CONTAINER" envDefault:"nettap-tshark"`
	PCAPBaseDir     string `env:"PCAP_BASE_DIR" envDefault:"/opt/nettap/pcap"`

	// Version / update / rollback
	ComposeFile      string `env:"COMPOSE_FILE" envDefault:"/opt/nettap/docker-compose.yml"`
	UpdateBackupDir  string `env:"UPDATE_BACKUP_DIR" envDefault:"/opt/nettap/backups"`

	// SMART
	SMARTDevices []string `env:"SMART_DEVICES" envSeparator:","`

	// Slack alert notification (optional)
	SlackWebhookURL string `env:"SLACK_WEBHOOK_URL"`

	NettapVersion string `env:"NETTAP_VERSION" envDefault:"0.4.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config from env: %w", err)
	}
	return cfg, nil
}

// ListenAddr returns the address the HTTP server should listen on.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
