// Package oui resolves a device's manufacturer from the OUI (first three
// octets) of its MAC address.
package oui

import (
	"bufio"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
)

var macPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2})[:\-.]([0-9A-Fa-f]{2})[:\-.]([0-9A-Fa-f]{2})[:\-.]([0-9A-Fa-f]{2})[:\-.]([0-9A-Fa-f]{2})[:\-.]([0-9A-Fa-f]{2})$`)

// Database is a MAC-prefix-to-manufacturer lookup table loaded from a
// tab-separated OUI file (one "AA:BB:CC\tManufacturer" entry per line).
type Database struct {
	mu      sync.RWMutex
	entries map[string]string
}

// Load reads an OUI database file. A missing file is not an error: the
// returned Database simply resolves every MAC to "Unknown", logged once here
// so the operator knows why manufacturer fields are empty.
func Load(path string, logger *slog.Logger) *Database {
	db := &Database{entries: make(map[string]string)}

	f, err := os.Open(path)
	if err != nil {
		logger.Warn("oui database not found, manufacturer lookups will return Unknown", "path", path, "error", err)
		return db
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		prefix := strings.ToUpper(strings.TrimSpace(parts[0]))
		manufacturer := strings.TrimSpace(parts[1])
		if prefix != "" && manufacturer != "" {
			db.entries[prefix] = manufacturer
		}
	}
	logger.Info("loaded oui database", "entries", len(db.entries), "path", path)
	return db
}

// Manufacturer resolves mac's OUI prefix to a manufacturer name, accepting
// colon-, dash-, or dot-separated addresses. Returns "Unknown" for malformed
// or unrecognized addresses.
func (d *Database) Manufacturer(mac string) string {
	if mac == "" {
		return "Unknown"
	}

	normalized := strings.ToUpper(strings.TrimSpace(mac))
	normalized = strings.NewReplacer("-", ":", ".", ":").Replace(normalized)

	var prefix string
	if m := macPattern.FindStringSubmatch(normalized); m != nil {
		prefix = m[1] + ":" + m[2] + ":" + m[3]
	} else {
		parts := strings.Split(normalized, ":")
		if len(parts) < 3 {
			return "Unknown"
		}
		ok := true
		for _, p := range parts[:3] {
			if len(p) > 2 {
				ok = false
				break
			}
		}
		if !ok {
			return "Unknown"
		}
		padded := make([]string, 3)
		for i, p := range parts[:3] {
			if len(p) == 1 {
				p = "0" + p
			}
			padded[i] = p
		}
		prefix = strings.Join(padded, ":")
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if name, ok := d.entries[prefix]; ok {
		return name
	}
	return "Unknown"
}

// Len reports how many OUI entries were loaded.
func (d *Database) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}
