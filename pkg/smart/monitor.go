// Package smart implements C13: an opaque shell-out to smartctl for
// per-device drive health, parsing the subset of its output the daemon
// actually surfaces.
package smart

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wisbric/nightowl/internal/platform"
)

const (
	smartctlTimeout = 10 * time.Second
	maxOutputBytes  = 64 * 1024
)

var (
	healthRe  = regexp.MustCompile(`SMART overall-health self-assessment test result:\s*(\w+)`)
	tempRe    = regexp.MustCompile(`(?i)^194\s+Temperature_Celsius.*?(\d+)\s*(?:\(.*\))?$`)
	hoursRe   = regexp.MustCompile(`(?i)^9\s+Power_On_Hours.*?(\d+)\s*$`)
	sectorsRe = regexp.MustCompile(`(?i)^5\s+Reallocated_Sector_Ct.*?(\d+)\s*$`)
)

// DriveStatus is the parsed health of a single device.
type DriveStatus struct {
	Device              string `json:"device"`
	Healthy             bool   `json:"healthy"`
	TemperatureC        *int   `json:"temperature_c,omitempty"`
	PowerOnHours        *int   `json:"power_on_hours,omitempty"`
	ReallocatedSectors  *int   `json:"reallocated_sectors,omitempty"`
	RawOutput           string `json:"raw_output,omitempty"`
	Error               string `json:"error,omitempty"`
}

// Report aggregates the health of every configured device.
type Report struct {
	Healthy bool          `json:"healthy"`
	Drives  []DriveStatus `json:"drives"`
}

// Monitor polls smartctl for a fixed set of device paths.
type Monitor struct {
	devices []string
	logger  *slog.Logger
}

// New creates a Monitor for the given device paths (e.g. /dev/sda).
func New(devices []string, logger *slog.Logger) *Monitor {
	return &Monitor{devices: devices, logger: logger}
}

// Status runs smartctl against every configured device. A device whose
// invocation fails contributes {healthy: false, error} without aborting the
// others; the report's Healthy is AND across drives.
func (m *Monitor) Status(ctx context.Context) Report {
	report := Report{Healthy: true, Drives: make([]DriveStatus, 0, len(m.devices))}
	for _, device := range m.devices {
		status := m.checkDevice(ctx, device)
		if !status.Healthy {
			report.Healthy = false
		}
		report.Drives = append(report.Drives, status)
	}
	return report
}

func (m *Monitor) checkDevice(ctx context.Context, device string) DriveStatus {
	result, err := platform.RunCommand(ctx, smartctlTimeout, maxOutputBytes, "smartctl", "-H", "-A", device)
	if err != nil && result.Stdout == "" {
		m.logger.Warn("smartctl invocation failed", "device", device, "error", err)
		return DriveStatus{Device: device, Healthy: false, Error: err.Error()}
	}

	status := DriveStatus{Device: device, RawOutput: result.Stdout}
	if match := healthRe.FindStringSubmatch(result.Stdout); match != nil {
		status.Healthy = strings.EqualFold(match[1], "PASSED")
	} else {
		status.Healthy = false
		status.Error = "no SMART health line found"
	}

	for _, line := range strings.Split(result.Stdout, "\n") {
		trimmed := strings.TrimSpace(line)
		if v, ok := matchInt(tempRe, trimmed); ok {
			status.TemperatureC = &v
		}
		if v, ok := matchInt(hoursRe, trimmed); ok {
			status.PowerOnHours = &v
		}
		if v, ok := matchInt(sectorsRe, trimmed); ok {
			status.ReallocatedSectors = &v
		}
	}
	return status
}

func matchInt(re *regexp.Regexp, line string) (int, bool) {
	match := re.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	v, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return v, true
}
