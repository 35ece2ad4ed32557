package risk

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/nightowl/internal/httpserver"
	"github.com/wisbric/nightowl/pkg/searchquery"
)

const (
	zeekConnIndex  = "zeek-conn-*"
	suricataIndex  = "suricata-*"
)

// searcher is the slice of the C1 Search Client this package needs.
type searcher interface {
	Search(ctx context.Context, index string, body map[string]any) (map[string]any, error)
}

// Handler exposes device risk scoring over HTTP.
type Handler struct {
	client searcher
	logger *slog.Logger
}

// NewHandler creates a risk scoring Handler.
func NewHandler(client searcher, logger *slog.Logger) *Handler {
	return &Handler{client: client, logger: logger}
}

// Routes mounts /api/risk.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/scores", h.handleScores)
	r.Get("/scores/{ip}", h.handleScoreSingle)
	return r
}

func externalConnsFilter() searchquery.M {
	return searchquery.M{
		"filter": searchquery.M{
			"bool": searchquery.M{
				"must_not": []searchquery.M{
					searchquery.Term("id.resp_h", "10.0.0.0/8"),
					searchquery.Term("id.resp_h", "172.16.0.0/12"),
					searchquery.Term("id.resp_h", "192.168.0.0/16"),
				},
			},
		},
	}
}

func (h *Handler) handleScores(w http.ResponseWriter, r *http.Request) {
	tr := httpserver.ParseTimeRange(r)
	limit := httpserver.ParseLimitParam(r, "limit", 100, 500)

	ctx := r.Context()
	connQuery := searchquery.M{
		"size": 0,
		"query": searchquery.Bool([]searchquery.M{
			searchquery.TimeRange("ts", tr.FromRFC3339(), tr.ToRFC3339()),
		}, nil, nil, nil),
		"aggs": searchquery.M{
			"devices": searchquery.M{
				"terms": searchquery.M{"field": "id.orig_h", "size": limit},
				"aggs": searchquery.M{
					"total_orig_bytes": searchquery.SumScript("doc.containsKey('orig_bytes') && !doc['orig_bytes'].empty ? doc['orig_bytes'].value : 0"),
					"total_resp_bytes": searchquery.SumScript("doc.containsKey('resp_bytes') && !doc['resp_bytes'].empty ? doc['resp_bytes'].value : 0"),
					"ports_used":       searchquery.TermsAgg("id.resp_p", 50),
					"external_conns":   externalConnsFilter(),
				},
			},
		},
	}

	connResult, err := h.client.Search(ctx, zeekConnIndex, connQuery)
	if err != nil {
		h.logger.Error("risk scores connection query failed", "error", err)
		httpserver.RespondError(w, http.StatusBadGateway, "opensearch query failed: "+err.Error())
		return
	}

	deviceBuckets := deviceBuckets(connResult)
	networkAvg, networkStddev := networkStats(deviceBuckets)

	ips := make([]string, 0, len(deviceBuckets))
	for _, b := range deviceBuckets {
		ips = append(ips, b.ip)
	}
	alertCounts := h.alertCountsFor(ctx, ips, tr)

	type scoredDevice struct {
		IP              string  `json:"ip"`
		ConnectionCount int64   `json:"connection_count"`
		AlertCount      int     `json:"alert_count"`
		Score           int     `json:"score"`
		Level           Level   `json:"level"`
		Factors         []Factor `json:"factors"`
	}

	devices := make([]scoredDevice, 0, len(deviceBuckets))
	for _, b := range deviceBuckets {
		stats := buildDeviceStats(b, alertCounts[b.ip], networkAvg, networkStddev)
		result := Compute(stats)
		devices = append(devices, scoredDevice{
			IP:              b.ip,
			ConnectionCount: b.docCount,
			AlertCount:      alertCounts[b.ip],
			Score:           result.Score,
			Level:           result.Level,
			Factors:         result.Factors,
		})
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Score > devices[j].Score })

	httpserver.Respond(w, http.StatusOK, map[string]any{
		"from":                        tr.FromRFC3339(),
		"to":                          tr.ToRFC3339(),
		"device_count":                len(devices),
		"network_avg_connections":     round2(networkAvg),
		"network_stddev_connections":  round2(networkStddev),
		"devices":                     devices,
	})
}

func (h *Handler) handleScoreSingle(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")
	tr := httpserver.ParseTimeRange(r)
	ctx := r.Context()

	connQuery := searchquery.Query(0, 0,
		searchquery.Bool([]searchquery.M{
			searchquery.TimeRange("ts", tr.FromRFC3339(), tr.ToRFC3339()),
			searchquery.Term("id.orig_h", ip),
		}, nil, nil, nil),
		nil,
		searchquery.M{
			"total_orig_bytes": searchquery.SumScript("doc.containsKey('orig_bytes') && !doc['orig_bytes'].empty ? doc['orig_bytes'].value : 0"),
			"total_resp_bytes": searchquery.SumScript("doc.containsKey('resp_bytes') && !doc['resp_bytes'].empty ? doc['resp_bytes'].value : 0"),
			"ports_used":       searchquery.TermsAgg("id.resp_p", 50),
			"external_conns":   externalConnsFilter(),
		},
	)

	connResult, err := h.client.Search(ctx, zeekConnIndex, connQuery)
	if err != nil {
		h.logger.Error("single risk score query failed", "ip", ip, "error", err)
		httpserver.RespondError(w, http.StatusBadGateway, "opensearch query failed: "+err.Error())
		return
	}

	totalConn := totalHits(connResult)
	if totalConn == 0 {
		httpserver.RespondError(w, http.StatusNotFound, "no connection data found for "+ip)
		return
	}

	aggs, _ := connResult["aggregations"].(map[string]any)
	pseudoBucket := deviceBucket{
		ip:       ip,
		docCount: totalConn,
		aggs:     aggs,
	}

	networkQuery := searchquery.Query(0, 0,
		searchquery.Bool([]searchquery.M{
			searchquery.TimeRange("ts", tr.FromRFC3339(), tr.ToRFC3339()),
		}, nil, nil, nil),
		nil,
		searchquery.M{"devices": searchquery.TermsAgg("id.orig_h", 500)},
	)

	var networkAvg, networkStddev float64
	if networkResult, err := h.client.Search(ctx, zeekConnIndex, networkQuery); err == nil {
		networkAvg, networkStddev = networkStats(deviceBuckets(networkResult))
	} else {
		h.logger.Warn("network stats query failed", "error", err)
	}

	alertCounts := h.alertCountsFor(ctx, []string{ip}, tr)
	stats := buildDeviceStats(pseudoBucket, alertCounts[ip], networkAvg, networkStddev)
	result := Compute(stats)

	httpserver.Respond(w, http.StatusOK, map[string]any{
		"ip":                ip,
		"from":              tr.FromRFC3339(),
		"to":                tr.ToRFC3339(),
		"connection_count":  totalConn,
		"alert_count":       alertCounts[ip],
		"score":             result.Score,
		"level":             result.Level,
		"factors":           result.Factors,
	})
}

func (h *Handler) alertCountsFor(ctx context.Context, ips []string, tr httpserver.TimeRange) map[string]int {
	counts := make(map[string]int)
	if len(ips) == 0 {
		return counts
	}

	values := make([]any, len(ips))
	for i, ip := range ips {
		values[i] = ip
	}

	alertQuery := searchquery.Query(0, 0,
		searchquery.Bool([]searchquery.M{
			searchquery.TimeRange("timestamp", tr.FromRFC3339(), tr.ToRFC3339()),
			searchquery.Terms("src_ip", values),
		}, nil, nil, nil),
		nil,
		searchquery.M{"by_ip": searchquery.TermsAgg("src_ip", len(ips))},
	)

	result, err := h.client.Search(ctx, suricataIndex, alertQuery)
	if err != nil {
		h.logger.Warn("alert count query failed", "error", err)
		return counts
	}

	aggs, _ := result["aggregations"].(map[string]any)
	byIP, _ := aggs["by_ip"].(map[string]any)
	buckets, _ := byIP["buckets"].([]any)
	for _, b := range buckets {
		bucket, ok := b.(map[string]any)
		if !ok {
			continue
		}
		key, _ := bucket["key"].(string)
		count := toInt(bucket["doc_count"])
		counts[key] = count
	}
	return counts
}

type deviceBucket struct {
	ip       string
	docCount int64
	aggs     map[string]any
}

func deviceBuckets(result map[string]any) []deviceBucket {
	aggs, _ := result["aggregations"].(map[string]any)
	if aggs == nil {
		return nil
	}
	devices, _ := aggs["devices"].(map[string]any)
	if devices == nil {
		return nil
	}
	buckets, _ := devices["buckets"].([]any)
	out := make([]deviceBucket, 0, len(buckets))
	for _, b := range buckets {
		bucket, ok := b.(map[string]any)
		if !ok {
			continue
		}
		ip, _ := bucket["key"].(string)
		out = append(out, deviceBucket{
			ip:       ip,
			docCount: toInt64(bucket["doc_count"]),
			aggs:     bucket,
		})
	}
	return out
}

func networkStats(buckets []deviceBucket) (avg, stddev float64) {
	if len(buckets) == 0 {
		return 0, 0
	}
	total := 0.0
	for _, b := range buckets {
		total += float64(b.docCount)
	}
	avg = total / float64(len(buckets))
	if len(buckets) <= 1 {
		return avg, 0
	}
	variance := 0.0
	for _, b := range buckets {
		d := float64(b.docCount) - avg
		variance += d * d
	}
	variance /= float64(len(buckets))
	return avg, math.Sqrt(variance)
}

func buildDeviceStats(b deviceBucket, alertCount int, networkAvg, networkStddev float64) DeviceStats {
	origBytes := int64(aggValue(b.aggs["total_orig_bytes"]))
	respBytes := int64(aggValue(b.aggs["total_resp_bytes"]))
	externalCount := int64(aggDocCount(b.aggs["external_conns"]))
	ports := aggBucketKeys(b.aggs["ports_used"])

	return DeviceStats{
		AlertCount:               alertCount,
		ConnectionCount:          int(b.docCount),
		NetworkAvgConnections:    networkAvg,
		NetworkStddevConnections: networkStddev,
		ExternalConnectionCount:  int(externalCount),
		TotalConnectionCount:     int(b.docCount),
		PortsUsed:                ports,
		OrigBytes:                origBytes,
		RespBytes:                respBytes,
	}
}

func aggValue(v any) float64 {
	m, ok := v.(map[string]any)
	if !ok {
		return 0
	}
	return toFloat(m["value"])
}

func aggDocCount(v any) float64 {
	m, ok := v.(map[string]any)
	if !ok {
		return 0
	}
	return toFloat(m["doc_count"])
}

func aggBucketKeys(v any) []int {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	buckets, _ := m["buckets"].([]any)
	out := make([]int, 0, len(buckets))
	for _, b := range buckets {
		bucket, ok := b.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, toInt(bucket["key"]))
	}
	return out
}

func totalHits(result map[string]any) int64 {
	hits, _ := result["hits"].(map[string]any)
	if hits == nil {
		return 0
	}
	switch total := hits["total"].(type) {
	case map[string]any:
		return toInt64(total["value"])
	default:
		return toInt64(total)
	}
}

func toInt(v any) int {
	return int(toFloat(v))
}

func toInt64(v any) int64 {
	return int64(toFloat(v))
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
