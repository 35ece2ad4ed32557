// Package fingerprint passively identifies devices from Zeek logs: OUI
// manufacturer lookup, MAC/hostname correlation via DHCP and DNS, and OS
// hints from HTTP User-Agent strings (TLS JA3 fingerprints are not
// consulted). It never performs active probing and never opens its own
// OpenSearch connection.
package fingerprint

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/wisbric/nightowl/pkg/searchquery"
)

// searcher is the slice of the C1 Search Client this package needs.
type searcher interface {
	Search(ctx context.Context, index string, body map[string]any) (map[string]any, error)
}

// osPattern maps a compiled User-Agent regex to a human-readable OS label.
type osPattern struct {
	re    *regexp.Regexp
	label string
}

var osPatterns = []osPattern{
	{regexp.MustCompile(`(?i)Windows NT 10\.0`), "Windows 10/11"},
	{regexp.MustCompile(`(?i)Windows NT 6\.3`), "Windows 8.1"},
	{regexp.MustCompile(`(?i)Windows NT 6\.2`), "Windows 8"},
	{regexp.MustCompile(`(?i)Windows NT 6\.1`), "Windows 7"},
	{regexp.MustCompile(`(?i)Windows`), "Windows"},
	{regexp.MustCompile(`(?i)iPhone|iPad|iPod`), "iOS"},
	{regexp.MustCompile(`(?i)Macintosh|Mac OS X`), "macOS"},
	{regexp.MustCompile(`(?i)Android`), "Android"},
	{regexp.MustCompile(`(?i)Linux`), "Linux"},
	{regexp.MustCompile(`(?i)CrOS`), "ChromeOS"},
	{regexp.MustCompile(`(?i)PlayStation`), "PlayStation"},
	{regexp.MustCompile(`(?i)Xbox`), "Xbox"},
	{regexp.MustCompile(`(?i)Nintendo`), "Nintendo"},
	{regexp.MustCompile(`(?i)SmartTV|Tizen|webOS`), "Smart TV"},
}

// Fingerprinter correlates passive Zeek observations into device identity
// hints: hostname, MAC address, and OS guess for a given IP over a time
// window.
type Fingerprinter struct {
	client searcher
	logger *slog.Logger
}

// New creates a Fingerprinter over the given C1 search client.
func New(client searcher, logger *slog.Logger) *Fingerprinter {
	return &Fingerprinter{client: client, logger: logger}
}

// HostnameForIP returns the most frequently resolved DNS hostname pointing
// at ip within [from, to], or "" if none was observed.
func (f *Fingerprinter) HostnameForIP(ctx context.Context, ip, from, to string) string {
	query := searchquery.Query(0, 0,
		searchquery.Bool([]searchquery.M{
			searchquery.TimeRange("ts", from, to),
			searchquery.Term("answers", ip),
		}, nil, nil, nil),
		nil,
		searchquery.M{"top_hostname": searchquery.TermsAgg("query", 1)},
	)

	result, err := f.client.Search(ctx, "zeek-dns-*", query)
	if err != nil {
		f.logger.Debug("hostname lookup failed", "ip", ip, "error", err)
		return ""
	}
	return firstBucketKey(result, "top_hostname")
}

// MACForIP looks up the MAC address associated with ip, checking DHCP logs
// first (most reliable) and falling back to the connection log's
// orig_l2_addr field.
func (f *Fingerprinter) MACForIP(ctx context.Context, ip, from, to string) string {
	dhcpQuery := searchquery.M{
		"size": 1,
		"query": searchquery.Bool([]searchquery.M{
			searchquery.TimeRange("ts", from, to),
			searchquery.Term("client_addr", ip),
		}, nil, nil, nil),
		"sort":    []searchquery.M{{"ts": searchquery.M{"order": "desc"}}},
		"_source": []string{"mac"},
	}
	if result, err := f.client.Search(ctx, "zeek-dhcp-*", dhcpQuery); err == nil {
		if mac := firstHitField(result, "mac"); mac != "" {
			return mac
		}
	} else {
		f.logger.Debug("dhcp mac lookup failed", "ip", ip, "error", err)
	}

	connQuery := searchquery.M{
		"size": 1,
		"query": searchquery.Bool([]searchquery.M{
			searchquery.TimeRange("ts", from, to),
			searchquery.Term("id.orig_h", ip),
			searchquery.Exists("orig_l2_addr"),
		}, nil, nil, nil),
		"sort":    []searchquery.M{{"ts": searchquery.M{"order": "desc"}}},
		"_source": []string{"orig_l2_addr"},
	}
	if result, err := f.client.Search(ctx, "zeek-conn-*", connQuery); err == nil {
		if mac := firstHitField(result, "orig_l2_addr"); mac != "" {
			return mac
		}
	} else {
		f.logger.Debug("conn mac lookup failed", "ip", ip, "error", err)
	}

	return ""
}

// OSHint infers an operating system label from the HTTP User-Agent strings
// seen for ip, or returns "" when none matches. JA3 fingerprints are not
// queried.
func (f *Fingerprinter) OSHint(ctx context.Context, ip, from, to string) string {
	uaQuery := searchquery.Query(0, 0,
		searchquery.Bool([]searchquery.M{
			searchquery.TimeRange("ts", from, to),
			searchquery.Term("id.orig_h", ip),
			searchquery.Exists("user_agent"),
		}, nil, nil, nil),
		nil,
		searchquery.M{"top_ua": searchquery.TermsAgg("user_agent", 5)},
	)

	if result, err := f.client.Search(ctx, "zeek-http-*", uaQuery); err == nil {
		for _, ua := range bucketKeys(result, "top_ua") {
			for _, p := range osPatterns {
				if p.re.MatchString(ua) {
					return p.label
				}
			}
		}
	} else {
		f.logger.Debug("user-agent lookup failed", "ip", ip, "error", err)
	}

	// No JA3 lookup is made: without a User-Agent match there is no OS hint.
	return ""
}

func firstBucketKey(result map[string]any, aggName string) string {
	keys := bucketKeys(result, aggName)
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

func bucketKeys(result map[string]any, aggName string) []string {
	aggs, _ := result["aggregations"].(map[string]any)
	if aggs == nil {
		return nil
	}
	agg, _ := aggs[aggName].(map[string]any)
	if agg == nil {
		return nil
	}
	buckets, _ := agg["buckets"].([]any)
	out := make([]string, 0, len(buckets))
	for _, b := range buckets {
		bucket, ok := b.(map[string]any)
		if !ok {
			continue
		}
		if key, ok := bucket["key"].(string); ok {
			out = append(out, key)
		}
	}
	return out
}

func firstHitField(result map[string]any, field string) string {
	hitsWrapper, _ := result["hits"].(map[string]any)
	if hitsWrapper == nil {
		return ""
	}
	hits, _ := hitsWrapper["hits"].([]any)
	if len(hits) == 0 {
		return ""
	}
	hit, ok := hits[0].(map[string]any)
	if !ok {
		return ""
	}
	source, _ := hit["_source"].(map[string]any)
	if source == nil {
		return ""
	}
	value, _ := source[field].(string)
	return value
}
