// Package alertenrich translates Suricata signature names into plain
// English descriptions, risk context, and recommendations.
package alertenrich

import (
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type prefixRule struct {
	prefix      string
	category    string
	description string // %s placeholder for the detail suffix
}

var prefixRules = []prefixRule{
	{"ET MALWARE", "malware", "Potential malware activity detected: %s"},
	{"ET SCAN", "scan", "Network scanning activity detected: %s"},
	{"ET TROJAN", "trojan", "Trojan horse communication detected: %s"},
	{"ET EXPLOIT", "exploit", "Exploit attempt detected: %s"},
	{"ET POLICY", "policy", "Network policy violation: %s"},
	{"ET INFO", "info", "Informational network event: %s"},
	{"ET DNS", "dns", "Suspicious DNS activity: %s"},
	{"ET WEB_SERVER", "web_server", "Web server attack detected: %s"},
	{"ET WEB_CLIENT", "web_client", "Web client vulnerability activity: %s"},
	{"ET HUNTING", "hunting", "Threat hunting indicator detected: %s"},
	{"ET CURRENT_EVENTS", "current_events", "Current threat campaign activity: %s"},
	{"ET ATTACK_RESPONSE", "attack_response", "Attack response or successful compromise indicator: %s"},
	{"ET DOS", "dos", "Denial of service activity detected: %s"},
	{"ET DROP", "drop", "Traffic from known malicious source: %s"},
	{"GPL", "gpl", "Known threat signature matched: %s"},
}

var recommendations = map[string]string{
	"malware": "Investigate the affected device for malware infection. Consider isolating it from the network and running a full antivirus scan.",
	"scan":    "This may indicate reconnaissance activity. Monitor for follow-up connection attempts and verify the scanning source is authorized.",
	"trojan":  "A device may be communicating with a command-and-control server. Immediately isolate the device and perform a thorough malware scan.",
	"exploit": "An exploit attempt was detected. Ensure all devices and software are updated to the latest versions. Check for signs of compromise.",
	"policy":  "Review your network usage policies. This may be legitimate activity that violates organizational guidelines, or it may indicate shadow IT.",
	"info":    "This is an informational alert and may not require immediate action. Review the details to determine if the activity is expected.",
	"dns":     "Suspicious DNS activity can indicate malware, data exfiltration, or tunneling. Investigate the queried domains for known threats.",
	"web_server": "A web server on your network may be under attack. Review server logs, ensure web applications are patched, and consider WAF protection.",
	"web_client": "A device may have visited a malicious website or downloaded harmful content. Check browser history and scan the device for threats.",
	"hunting":        "This is a threat hunting indicator that may warrant investigation. Correlate with other alerts to determine if this is part of a broader attack.",
	"current_events": "This alert matches a known active threat campaign. Prioritize investigation and check for indicators of compromise across your network.",
	"attack_response": "This may indicate a successful compromise. Investigate immediately for data exfiltration, lateral movement, or persistent access.",
	"dos":  "Denial of service activity detected. Monitor bandwidth and service availability. Consider rate limiting or upstream filtering.",
	"drop": "Traffic from a known malicious source was detected. Block this IP at your firewall and investigate any devices that communicated with it.",
	"gpl":  "A well-known threat signature was matched. Review the specific signature details and investigate the affected devices.",
	"unknown": "Review this alert and investigate the network activity. Check the source and destination for any signs of suspicious behavior.",
}

var categoryRiskNotes = map[string]map[int]string{
	"malware": {
		1: "This is a critical threat. Malware with high severity often indicates active infection with data theft or ransomware capabilities.",
		2: "This is a moderate threat. The malware variant detected may be attempting to establish persistence or download additional payloads.",
		3: "This is a low-severity malware indicator. It may be adware or a potentially unwanted program (PUP).",
	},
	"trojan": {
		1: "Critical risk. An active trojan communication channel suggests the device is compromised and under remote control.",
		2: "Moderate risk. Trojan-like behavior was detected but may not yet have established a full command-and-control channel.",
		3: "Low risk. This may be a false positive or an older trojan variant with limited capabilities.",
	},
	"exploit": {
		1: "Critical risk. A high-severity exploit attempt may lead to immediate system compromise if successful.",
		2: "Moderate risk. The exploit attempt targets a known vulnerability. Verify that affected systems are patched.",
		3: "Low risk. The exploit attempt is unlikely to succeed against properly patched systems.",
	},
	"scan": {
		1: "Aggressive scanning from this source. This often precedes a targeted attack.",
		2: "Moderate scanning activity. May be automated vulnerability assessment or reconnaissance.",
		3: "Light scanning detected. This is common internet background noise but worth monitoring.",
	},
}

var defaultRiskNotes = map[int]string{
	1: "This is a high-severity alert requiring immediate attention. Investigate promptly to prevent potential damage.",
	2: "This is a medium-severity alert. Investigate when possible to determine if action is needed.",
	3: "This is a low-severity alert. Review during routine security monitoring.",
}

// sidInfo is one curated entry keyed by Suricata signature_id.
type sidInfo struct {
	Description    string `json:"description"`
	RiskContext    string `json:"risk_context"`
	Recommendation string `json:"recommendation"`
}

type descriptionsFile struct {
	Descriptions       map[string]sidInfo `json:"descriptions"`
	PrefixDescriptions map[string]string  `json:"prefix_descriptions"`
}

// Enricher adds plain-English context to raw Suricata alert fields. It loads
// a curated SID-to-description file and falls back to prefix-pattern
// generation for anything unmapped.
type Enricher struct {
	logger             *slog.Logger
	sidDescriptions    map[string]sidInfo
	prefixDescriptions map[string]string
}

// New loads the curated descriptions file at path, if it exists, and
// returns an Enricher ready to enrich alerts. A missing or malformed file
// degrades to pure pattern-based generation rather than failing startup.
func New(path string, logger *slog.Logger) *Enricher {
	e := &Enricher{
		logger:             logger,
		sidDescriptions:    make(map[string]sidInfo),
		prefixDescriptions: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("suricata descriptions file not found, using pattern-based fallback", "path", path, "error", err)
		return e
	}

	var parsed descriptionsFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		logger.Warn("failed to parse suricata descriptions file, using pattern-based fallback", "path", path, "error", err)
		return e
	}
	e.sidDescriptions = parsed.Descriptions
	e.prefixDescriptions = parsed.PrefixDescriptions
	logger.Info("loaded suricata descriptions", "sids", len(e.sidDescriptions), "prefixes", len(e.prefixDescriptions))
	return e
}

// Enrichment holds the fields added to a raw alert.
type Enrichment struct {
	PlainDescription string `json:"plain_description"`
	RiskContext      string `json:"risk_context"`
	Recommendation   string `json:"recommendation"`
}

// Enrich derives plain-English context for a Suricata signature. It tries
// the curated SID lookup first, then falls back to prefix-pattern matching
// on the signature text.
func (e *Enricher) Enrich(signatureID, signature string, severity int) Enrichment {
	category := categoryFromSignature(signature)

	if signatureID != "" {
		if info, ok := e.sidDescriptions[signatureID]; ok {
			enrichment := Enrichment{
				PlainDescription: info.Description,
				RiskContext:      info.RiskContext,
				Recommendation:   info.Recommendation,
			}
			if enrichment.RiskContext == "" {
				enrichment.RiskContext = RiskContext(severity, category)
			}
			if enrichment.Recommendation == "" {
				enrichment.Recommendation = Recommendation(category)
			}
			return enrichment
		}
	}

	return Enrichment{
		PlainDescription: GenerateDescription(signature),
		RiskContext:      RiskContext(severity, category),
		Recommendation:   Recommendation(category),
	}
}

// GenerateDescription produces a plain-English description from a raw
// Suricata signature string by matching known ET/GPL prefixes.
func GenerateDescription(signature string) string {
	if signature == "" {
		return "Network security event detected."
	}

	upper := strings.ToUpper(signature)
	for _, rule := range prefixRules {
		if strings.HasPrefix(upper, rule.prefix) {
			detail := strings.TrimSpace(signature[len(rule.prefix):])
			if detail == "" {
				detail = signature
			}
			return strings.Replace(rule.description, "%s", detail, 1)
		}
	}
	return "Network security event detected: " + signature
}

// Recommendation returns an actionable recommendation for the given
// category key, falling back to a generic one for unknown categories.
func Recommendation(category string) string {
	if r, ok := recommendations[category]; ok {
		return r
	}
	return recommendations["unknown"]
}

// RiskContext returns category- and severity-specific risk context,
// falling back to a generic severity-based note.
func RiskContext(severity int, category string) string {
	if notes, ok := categoryRiskNotes[category]; ok {
		if note, ok := notes[severity]; ok {
			return note
		}
	}
	if note, ok := defaultRiskNotes[severity]; ok {
		return note
	}
	return "Severity " + strconv.Itoa(severity) + " alert detected. Review the alert details for more information."
}

func categoryFromSignature(signature string) string {
	if signature == "" {
		return "unknown"
	}
	upper := strings.ToUpper(signature)
	for _, rule := range prefixRules {
		if strings.HasPrefix(upper, rule.prefix) {
			return rule.category
		}
	}
	return "unknown"
}
