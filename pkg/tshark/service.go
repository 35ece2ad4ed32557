// Package tshark wraps a containerized TShark binary for on-demand packet
// analysis. It never links against any Wireshark library directly -- every
// interaction goes through "docker exec" as an argv list, never a shell.
package tshark

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/wisbric/nightowl/internal/platform"
)

const (
	containerName      = "nettap-tshark"
	mountPath          = "/pcap"
	maxPackets         = 1000
	defaultMaxPackets  = 100
	executionTimeout   = 30 * time.Second
	inspectTimeout     = 5 * time.Second
	maxOutputBytes     = 5 * 1024 * 1024
	maxDisplayFilter   = 500
	maxFields          = 50
)

var (
	allowedFieldPattern   = regexp.MustCompile(`^[a-z0-9_.]+$`)
	shellMetacharPattern  = regexp.MustCompile(`[;` + "`" + `$"'\n\r\x00]`)
	allowedOutputFormats  = map[string]bool{"json": true, "text": true, "pdml": true}
	allowedPCAPExtensions = map[string]bool{".pcap": true, ".pcapng": true, ".cap": true}
)

// ValidationError marks a request that failed input validation -- the
// caller should surface it as a 4xx response, never retry it as-is.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// Request is a packet-analysis request against one PCAP file.
type Request struct {
	PCAPPath      string   `json:"pcap_path"`
	DisplayFilter string   `json:"display_filter"`
	MaxPackets    int      `json:"max_packets"`
	OutputFormat  string   `json:"output_format"`
	Fields        []string `json:"fields"`
}

// Result is the structured outcome of one analysis run.
type Result struct {
	Packets       []map[string]any `json:"packets"`
	PacketCount   int              `json:"packet_count"`
	Truncated     bool             `json:"truncated"`
	TSharkVersion string           `json:"tshark_version"`
	Error         string           `json:"error,omitempty"`
}

// Protocol describes one TShark dissector (from "tshark -G protocols").
type Protocol struct {
	Name       string `json:"name"`
	ShortName  string `json:"short_name"`
	FilterName string `json:"filter_name"`
}

// Field describes one display-filter field (from "tshark -G fields").
type Field struct {
	Name        string `json:"name"`
	FilterName  string `json:"filter_name"`
	Type        string `json:"type"`
	Protocol    string `json:"protocol"`
	Description string `json:"description"`
}

// Availability reports whether the TShark container can be reached.
type Availability struct {
	Available        bool   `json:"available"`
	Version          string `json:"version"`
	ContainerRunning bool   `json:"container_running"`
	ContainerName    string `json:"container_name"`
	Error            string `json:"error,omitempty"`
}

// Service runs validated TShark analyses inside a fixed container.
type Service struct {
	pcapBaseDir string
	logger      *slog.Logger

	mu             sync.Mutex
	versionCache   string
	protocolsCache []Protocol
	fieldsCache    map[string][]Field
}

// New creates a Service rooted at pcapBaseDir (the host directory that is
// bind-mounted into the tshark container at mountPath).
func New(pcapBaseDir string, logger *slog.Logger) *Service {
	return &Service{
		pcapBaseDir: pcapBaseDir,
		logger:      logger,
		fieldsCache: make(map[string][]Field),
	}
}

// validatePCAPPath normalizes pcapPath and returns the container-internal
// path, rejecting anything that would escape the pcap mount.
func (s *Service) validatePCAPPath(pcapPath string) (string, error) {
	clean := path.Clean(pcapPath)
	var containerPath string

	if strings.HasPrefix(pcapPath, "/") {
		base := path.Clean(s.pcapBaseDir)
		if clean != base && !strings.HasPrefix(clean, base+"/") {
			return "", validationErrorf("PCAP path must be under %s", s.pcapBaseDir)
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(clean, base), "/")
		containerPath = path.Join(mountPath, rel)
	} else {
		for _, part := range strings.Split(pcapPath, "/") {
			if part == ".." {
				return "", validationErrorf("path traversal detected in pcap_path")
			}
		}
		containerPath = path.Join(mountPath, pcapPath)
	}

	if containerPath != mountPath && !strings.HasPrefix(containerPath, mountPath+"/") {
		return "", validationErrorf("path traversal detected after normalization")
	}

	ext := strings.ToLower(path.Ext(clean))
	if !allowedPCAPExtensions[ext] {
		return "", validationErrorf("invalid PCAP file extension: %q", ext)
	}
	return containerPath, nil
}

// validateDisplayFilter rejects shell metacharacters; & and | are allowed
// since TShark treats them as native filter operators and argv-list
// execution never reaches a shell.
func validateDisplayFilter(filter string) (string, error) {
	if filter == "" {
		return "", nil
	}
	if shellMetacharPattern.MatchString(filter) {
		return "", validationErrorf("display filter contains forbidden characters")
	}
	if len(filter) > maxDisplayFilter {
		return "", validationErrorf("display filter too long (max %d chars)", maxDisplayFilter)
	}
	return filter, nil
}

func validateFields(fields []string) ([]string, error) {
	if len(fields) > maxFields {
		return nil, validationErrorf("too many fields (max %d)", maxFields)
	}
	for _, f := range fields {
		if !allowedFieldPattern.MatchString(f) {
			return nil, validationErrorf("invalid field name %q (must match [a-z0-9_.]+)", f)
		}
	}
	return fields, nil
}

func clampMaxPackets(n int) int {
	if n < 1 {
		return 1
	}
	if n > maxPackets {
		return maxPackets
	}
	return n
}

// validateRequest runs every validation rule and returns a request with
// normalized fields, or the first validation failure.
func (s *Service) validateRequest(req Request) (Request, error) {
	containerPath, err := s.validatePCAPPath(req.PCAPPath)
	if err != nil {
		return Request{}, err
	}
	req.PCAPPath = containerPath

	filter, err := validateDisplayFilter(req.DisplayFilter)
	if err != nil {
		return Request{}, err
	}
	req.DisplayFilter = filter

	fields, err := validateFields(req.Fields)
	if err != nil {
		return Request{}, err
	}
	req.Fields = fields

	if req.MaxPackets == 0 {
		req.MaxPackets = defaultMaxPackets
	}
	req.MaxPackets = clampMaxPackets(req.MaxPackets)
	if req.OutputFormat == "" {
		req.OutputFormat = "json"
	}
	if !allowedOutputFormats[req.OutputFormat] {
		return Request{}, validationErrorf("invalid output format: %q", req.OutputFormat)
	}
	return req, nil
}

func buildCommand(req Request) []string {
	cmd := []string{"docker", "exec", containerName, "tshark", "-r", req.PCAPPath, "-c", fmt.Sprintf("%d", req.MaxPackets)}
	if req.DisplayFilter != "" {
		cmd = append(cmd, "-Y", req.DisplayFilter)
	}

	switch {
	case len(req.Fields) > 0:
		cmd = append(cmd, "-T", "fields")
		for _, f := range req.Fields {
			cmd = append(cmd, "-e", f)
		}
		cmd = append(cmd, "-E", "header=y", "-E", "separator=,")
	case req.OutputFormat == "json":
		cmd = append(cmd, "-T", "json")
	case req.OutputFormat == "pdml":
		cmd = append(cmd, "-T", "pdml")
		// "text" is the default output -- no -T flag needed.
	}
	return cmd
}

func (s *Service) run(ctx context.Context, argv []string) (platform.CommandResult, error) {
	return platform.RunCommand(ctx, executionTimeout, maxOutputBytes, argv...)
}

func parseJSONOutput(stdout string, logger *slog.Logger) []map[string]any {
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		return nil
	}
	var packets []map[string]any
	if err := json.Unmarshal([]byte(trimmed), &packets); err == nil {
		return packets
	}
	var single map[string]any
	if err := json.Unmarshal([]byte(trimmed), &single); err == nil {
		return []map[string]any{single}
	}
	logger.Warn("failed to parse tshark json output")
	return nil
}

func parseTextOutput(stdout string) []map[string]any {
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		return nil
	}
	lines := strings.Split(trimmed, "\n")
	packets := make([]map[string]any, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		packets = append(packets, map[string]any{"no": i + 1, "raw": line})
	}
	return packets
}

// Analyze validates req, runs TShark inside the container, and returns the
// structured result. A ValidationError is returned as-is for the caller to
// map onto a 4xx response.
func (s *Service) Analyze(ctx context.Context, req Request) (Result, error) {
	req, err := s.validateRequest(req)
	if err != nil {
		return Result{}, err
	}

	cmd := buildCommand(req)
	result, err := s.run(ctx, cmd)
	if err != nil && result.TimedOut {
		return Result{}, validationErrorf("tshark execution timed out after %s", executionTimeout)
	}

	if result.ExitCode != 0 && result.Stdout == "" {
		msg := strings.TrimSpace(result.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("tshark exited with code %d", result.ExitCode)
		}
		return Result{
			Packets:       nil,
			PacketCount:   0,
			Truncated:     false,
			TSharkVersion: s.Version(ctx),
			Error:         msg,
		}, nil
	}

	var packets []map[string]any
	if len(req.Fields) == 0 && req.OutputFormat == "json" {
		packets = parseJSONOutput(result.Stdout, s.logger)
	} else {
		packets = parseTextOutput(result.Stdout)
	}

	return Result{
		Packets:       packets,
		PacketCount:   len(packets),
		Truncated:     int64(len(result.Stdout)) >= maxOutputBytes,
		TSharkVersion: s.Version(ctx),
	}, nil
}

// Version returns the cached TShark version string, fetching it on first
// use. Failures degrade to "unknown" rather than propagating an error.
func (s *Service) Version(ctx context.Context) string {
	s.mu.Lock()
	if s.versionCache != "" {
		cached := s.versionCache
		s.mu.Unlock()
		return cached
	}
	s.mu.Unlock()

	result, err := s.run(ctx, []string{"docker", "exec", containerName, "tshark", "--version"})
	if err != nil || result.ExitCode != 0 || result.Stdout == "" {
		return "unknown"
	}
	firstLine := strings.SplitN(result.Stdout, "\n", 2)[0]
	version := strings.TrimSpace(firstLine)

	s.mu.Lock()
	s.versionCache = version
	s.mu.Unlock()
	return version
}

// Protocols returns the cached list of TShark dissectors.
func (s *Service) Protocols(ctx context.Context) []Protocol {
	s.mu.Lock()
	if s.protocolsCache != nil {
		cached := s.protocolsCache
		s.mu.Unlock()
		return cached
	}
	s.mu.Unlock()

	result, err := s.run(ctx, []string{"docker", "exec", containerName, "tshark", "-G", "protocols"})
	if err != nil || result.ExitCode != 0 {
		return nil
	}

	var protocols []Protocol
	for _, line := range strings.Split(strings.TrimSpace(result.Stdout), "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) >= 3 {
			protocols = append(protocols, Protocol{Name: parts[0], ShortName: parts[1], FilterName: parts[2]})
		}
	}

	s.mu.Lock()
	s.protocolsCache = protocols
	s.mu.Unlock()
	return protocols
}

// Fields returns the cached list of display-filter fields, optionally
// filtered to one protocol.
func (s *Service) Fields(ctx context.Context, protocol string) []Field {
	cacheKey := protocol
	if cacheKey == "" {
		cacheKey = "__all__"
	}

	s.mu.Lock()
	if cached, ok := s.fieldsCache[cacheKey]; ok {
		s.mu.Unlock()
		return cached
	}
	s.mu.Unlock()

	result, err := s.run(ctx, []string{"docker", "exec", containerName, "tshark", "-G", "fields"})
	if err != nil || result.ExitCode != 0 {
		return nil
	}

	var fields []Field
	for _, line := range strings.Split(strings.TrimSpace(result.Stdout), "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) < 4 {
			continue
		}
		entry := Field{
			Name:        parts[2],
			FilterName:  parts[2],
			Type:        parts[3],
			Protocol:    parts[1],
			Description: parts[0],
		}
		if protocol == "" || strings.EqualFold(entry.Protocol, protocol) {
			fields = append(fields, entry)
		}
	}

	s.mu.Lock()
	s.fieldsCache[cacheKey] = fields
	s.mu.Unlock()
	return fields
}

// IsAvailable checks whether the tshark container is running, using a
// short inspect timeout so an unhealthy container degrades cleanly.
func (s *Service) IsAvailable(ctx context.Context) Availability {
	result, err := platform.RunCommand(ctx, inspectTimeout, 4096, "docker", "inspect", "--format", "{{.State.Running}}", containerName)
	if err != nil && result.Stdout == "" {
		return Availability{
			Available:        false,
			Version:          "unknown",
			ContainerRunning: false,
			ContainerName:    containerName,
			Error:            err.Error(),
		}
	}

	running := strings.EqualFold(strings.TrimSpace(result.Stdout), "true")
	version := "unknown"
	if running {
		version = s.Version(ctx)
	}
	return Availability{
		Available:        running,
		Version:          version,
		ContainerRunning: running,
		ContainerName:    containerName,
	}
}

// ValidateFilterDryRun checks filter syntax by running it against
// /dev/null inside the container -- TShark exits 0 for syntactically
// valid filters even when no packets match.
func (s *Service) ValidateFilterDryRun(ctx context.Context, filter string) bool {
	if _, err := validateDisplayFilter(filter); err != nil {
		return false
	}
	result, err := s.run(ctx, []string{"docker", "exec", containerName, "tshark", "-Y", filter, "-r", "/dev/null"})
	if err != nil {
		return false
	}
	return result.ExitCode == 0
}

// DefaultMaxPackets is the packet count applied when a request omits one.
const DefaultMaxPackets = defaultMaxPackets
