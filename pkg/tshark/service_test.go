package tshark

import (
	"io"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService() *Service {
	return New("/opt/nettap/pcap", discardLogger())
}

func TestValidatePCAPPathAbsoluteUnderBase(t *testing.T) {
	s := newTestService()
	got, err := s.validatePCAPPath("/opt/nettap/pcap/capture.pcap")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/pcap/capture.pcap" {
		t.Errorf("expected /pcap/capture.pcap, got %q", got)
	}
}

func TestValidatePCAPPathAbsoluteOutsideBaseRejected(t *testing.T) {
	s := newTestService()
	if _, err := s.validatePCAPPath("/etc/passwd.pcap"); err == nil {
		t.Error("expected error for path outside base dir")
	}
}

func TestValidatePCAPPathRelativeTraversalRejected(t *testing.T) {
	s := newTestService()
	if _, err := s.validatePCAPPath("../../etc/passwd.pcap"); err == nil {
		t.Error("expected error for relative traversal")
	}
}

func TestValidatePCAPPathRelativeOK(t *testing.T) {
	s := newTestService()
	got, err := s.validatePCAPPath("subdir/capture.pcapng")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/pcap/subdir/capture.pcapng" {
		t.Errorf("unexpected container path: %q", got)
	}
}

func TestValidatePCAPPathBadExtensionRejected(t *testing.T) {
	s := newTestService()
	if _, err := s.validatePCAPPath("capture.txt"); err == nil {
		t.Error("expected error for invalid extension")
	}
}

func TestValidateDisplayFilterRejectsShellMetachars(t *testing.T) {
	tests := []string{"tcp; rm -rf /", "tcp`whoami`", "tcp$(whoami)", "tcp\"quoted\"", "tcp'quoted'"}
	for _, filter := range tests {
		if _, err := validateDisplayFilter(filter); err == nil {
			t.Errorf("expected rejection for filter %q", filter)
		}
	}
}

func TestValidateDisplayFilterAllowsAmpersandAndPipe(t *testing.T) {
	filter, err := validateDisplayFilter("tcp.port==80 && ip.addr==10.0.0.1 || udp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filter == "" {
		t.Error("expected filter to be preserved")
	}
}

func TestValidateDisplayFilterLengthLimit(t *testing.T) {
	long := make([]byte, maxDisplayFilter+1)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := validateDisplayFilter(string(long)); err == nil {
		t.Error("expected error for over-length filter")
	}
}

func TestValidateFieldsRejectsBadPattern(t *testing.T) {
	if _, err := validateFields([]string{"ip.addr", "BAD-FIELD"}); err == nil {
		t.Error("expected error for uppercase/hyphenated field name")
	}
}

func TestValidateFieldsRejectsTooMany(t *testing.T) {
	fields := make([]string, maxFields+1)
	for i := range fields {
		fields[i] = "ip.addr"
	}
	if _, err := validateFields(fields); err == nil {
		t.Error("expected error for too many fields")
	}
}

func TestClampMaxPackets(t *testing.T) {
	if got := clampMaxPackets(0); got != 1 {
		t.Errorf("expected clamp to 1, got %d", got)
	}
	if got := clampMaxPackets(5000); got != maxPackets {
		t.Errorf("expected clamp to %d, got %d", maxPackets, got)
	}
	if got := clampMaxPackets(250); got != 250 {
		t.Errorf("expected 250 unchanged, got %d", got)
	}
}

func TestBuildCommandWithFieldsOverridesOutputFormat(t *testing.T) {
	req := Request{PCAPPath: "/pcap/a.pcap", MaxPackets: 10, OutputFormat: "json", Fields: []string{"ip.addr", "tcp.port"}}
	cmd := buildCommand(req)
	joined := join(cmd)
	if !contains(cmd, "-T") || !contains(cmd, "fields") {
		t.Errorf("expected -T fields in command: %v", joined)
	}
	if contains(cmd, "json") {
		t.Errorf("fields request should not also request json output: %v", joined)
	}
}

func TestBuildCommandJSONDefault(t *testing.T) {
	req := Request{PCAPPath: "/pcap/a.pcap", MaxPackets: 10, OutputFormat: "json"}
	cmd := buildCommand(req)
	if !contains(cmd, "json") {
		t.Errorf("expected json output flag: %v", join(cmd))
	}
}

func TestParseTextOutput(t *testing.T) {
	packets := parseTextOutput("line one\nline two\n\n")
	if len(packets) != 2 {
		t.Fatalf("expected 2 packets, got %d", len(packets))
	}
	if packets[0]["no"] != 1 || packets[0]["raw"] != "line one" {
		t.Errorf("unexpected first packet: %+v", packets[0])
	}
}

func TestParseJSONOutputArray(t *testing.T) {
	packets := parseJSONOutput(`[{"a":1},{"b":2}]`, discardLogger())
	if len(packets) != 2 {
		t.Fatalf("expected 2 packets, got %d", len(packets))
	}
}

func TestParseJSONOutputEmpty(t *testing.T) {
	if got := parseJSONOutput("   ", discardLogger()); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}

func contains(items []string, target string) bool {
	for _, i := range items {
		if i == target {
			return true
		}
	}
	return false
}

func join(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}
