package fingerprint

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

type fakeSearcher struct {
	response map[string]any
	err      error
}

func (f *fakeSearcher) Search(ctx context.Context, index string, body map[string]any) (map[string]any, error) {
	return f.response, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHostnameForIP(t *testing.T) {
	client := &fakeSearcher{response: map[string]any{
		"aggregations": map[string]any{
			"top_hostname": map[string]any{
				"buckets": []any{
					map[string]any{"key": "example.com", "doc_count": float64(5)},
				},
			},
		},
	}}
	f := New(client, discardLogger())
	if got := f.HostnameForIP(context.Background(), "10.0.0.5", "now-1h", "now"); got != "example.com" {
		t.Errorf("HostnameForIP() = %q, want example.com", got)
	}
}

func TestHostnameForIPNoBuckets(t *testing.T) {
	client := &fakeSearcher{response: map[string]any{}}
	f := New(client, discardLogger())
	if got := f.HostnameForIP(context.Background(), "10.0.0.5", "now-1h", "now"); got != "" {
		t.Errorf("expected empty hostname, got %q", got)
	}
}

func TestMACForIPFallsBackToConnLog(t *testing.T) {
	calls := 0
	client := &fakeSearcherSeq{
		responses: []map[string]any{
			{"hits": map[string]any{"hits": []any{}}}, // DHCP: no hits
			{"hits": map[string]any{"hits": []any{
				map[string]any{"_source": map[string]any{"orig_l2_addr": "aa:bb:cc:dd:ee:ff"}},
			}}},
		},
		calls: &calls,
	}
	f := New(client, discardLogger())
	if got := f.MACForIP(context.Background(), "10.0.0.5", "now-1h", "now"); got != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("MACForIP() = %q, want aa:bb:cc:dd:ee:ff", got)
	}
}

func TestOSHintMatchesUserAgent(t *testing.T) {
	client := &fakeSearcher{response: map[string]any{
		"aggregations": map[string]any{
			"top_ua": map[string]any{
				"buckets": []any{
					map[string]any{"key": "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"},
				},
			},
		},
	}}
	f := New(client, discardLogger())
	if got := f.OSHint(context.Background(), "10.0.0.5", "now-1h", "now"); got != "Windows 10/11" {
		t.Errorf("OSHint() = %q, want Windows 10/11", got)
	}
}

type fakeSearcherSeq struct {
	responses []map[string]any
	calls     *int
}

func (f *fakeSearcherSeq) Search(ctx context.Context, index string, body map[string]any) (map[string]any, error) {
	i := *f.calls
	*f.calls++
	if i >= len(f.responses) {
		return map[string]any{}, nil
	}
	return f.responses[i], nil
}
