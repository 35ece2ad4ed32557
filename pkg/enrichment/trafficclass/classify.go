// Package trafficclass maps raw protocol names, domains, and ports into
// human-readable traffic categories (Streaming, Gaming, Social Media, ...)
// for consumer-friendly traffic breakdowns.
package trafficclass

import (
	"path"
	"strings"
)

// Categories maps a category key to its display label.
var Categories = map[string]string{
	"streaming":      "Streaming",
	"gaming":         "Gaming",
	"social":         "Social Media",
	"communication":  "Communication",
	"work":           "Work & Productivity",
	"iot":            "IoT & Smart Home",
	"cloud":          "Cloud Services",
	"file_transfer":  "File Transfer",
	"dns":            "DNS",
	"email":          "Email",
	"web":            "Web Browsing",
	"security":       "Security & VPN",
	"suspicious":     "Suspicious",
	"other":          "Other",
}

type domainRule struct {
	pattern  string
	category string
}

// domainRules is checked in order; the first glob match wins.
var domainRules = []domainRule{
	{"*.netflix.com", "streaming"}, {"*.nflxvideo.net", "streaming"}, {"*.youtube.com", "streaming"},
	{"*.googlevideo.com", "streaming"}, {"*.hulu.com", "streaming"}, {"*.disneyplus.com", "streaming"},
	{"*.hbomax.com", "streaming"}, {"*.max.com", "streaming"}, {"*.plex.tv", "streaming"},
	{"*.plexapp.com", "streaming"}, {"*.spotify.com", "streaming"}, {"*.scdn.co", "streaming"},
	{"*.twitch.tv", "streaming"}, {"*.ttvnw.net", "streaming"}, {"*.crunchyroll.com", "streaming"},
	{"*.peacocktv.com", "streaming"}, {"*.paramountplus.com", "streaming"},

	{"*.steampowered.com", "gaming"}, {"*.steamcontent.com", "gaming"}, {"*.valvesoftware.com", "gaming"},
	{"*.epicgames.com", "gaming"}, {"*.unrealengine.com", "gaming"}, {"*.xboxlive.com", "gaming"},
	{"*.xbox.com", "gaming"}, {"*.playstation.com", "gaming"}, {"*.playstation.net", "gaming"},
	{"*.nintendo.com", "gaming"}, {"*.riotgames.com", "gaming"}, {"*.blizzard.com", "gaming"},
	{"*.battle.net", "gaming"}, {"*.ea.com", "gaming"},

	{"*.facebook.com", "social"}, {"*.fbcdn.net", "social"}, {"*.instagram.com", "social"},
	{"*.twitter.com", "social"}, {"*.x.com", "social"}, {"*.tiktok.com", "social"},
	{"*.tiktokcdn.com", "social"}, {"*.snapchat.com", "social"}, {"*.reddit.com", "social"},
	{"*.redditmedia.com", "social"}, {"*.linkedin.com", "social"}, {"*.pinterest.com", "social"},

	{"*.zoom.us", "communication"}, {"*.zoom.com", "communication"}, {"*.teams.microsoft.com", "communication"},
	{"*.skype.com", "communication"}, {"*.discord.com", "communication"}, {"*.discordapp.com", "communication"},
	{"*.slack.com", "communication"}, {"*.slack-msgs.com", "communication"}, {"*.webex.com", "communication"},
	{"*.whatsapp.com", "communication"}, {"*.whatsapp.net", "communication"}, {"*.signal.org", "communication"},
	{"*.facetime.apple.com", "communication"},

	{"*.github.com", "work"}, {"*.githubusercontent.com", "work"}, {"*.gitlab.com", "work"},
	{"*.atlassian.com", "work"}, {"*.jira.com", "work"}, {"*.confluence.com", "work"},
	{"*.notion.so", "work"}, {"*.notion.com", "work"}, {"*.figma.com", "work"}, {"*.canva.com", "work"},
	{"*.office.com", "work"}, {"*.office365.com", "work"}, {"*.sharepoint.com", "work"},
	{"*.onedrive.com", "work"}, {"*.docs.google.com", "work"}, {"*.drive.google.com", "work"},

	{"*.ring.com", "iot"}, {"*.nest.com", "iot"}, {"*.home.nest.com", "iot"}, {"*.wyze.com", "iot"},
	{"*.tp-link.com", "iot"}, {"*.kasa.com", "iot"}, {"*.philips-hue.com", "iot"}, {"*.meethue.com", "iot"},
	{"*.sonos.com", "iot"}, {"*.ecobee.com", "iot"}, {"*.smartthings.com", "iot"}, {"*.tuya.com", "iot"},
	{"*.hubitat.com", "iot"},

	{"*.amazonaws.com", "cloud"}, {"*.aws.amazon.com", "cloud"}, {"*.azure.com", "cloud"},
	{"*.azure.net", "cloud"}, {"*.googleapis.com", "cloud"}, {"*.gstatic.com", "cloud"},
	{"*.cloudflare.com", "cloud"}, {"*.cloudflare-dns.com", "cloud"}, {"*.akamai.com", "cloud"},
	{"*.akamaized.net", "cloud"}, {"*.fastly.net", "cloud"},

	{"*.dropbox.com", "file_transfer"}, {"*.wetransfer.com", "file_transfer"}, {"*.mega.nz", "file_transfer"},
	{"*.box.com", "file_transfer"},

	{"*.nordvpn.com", "security"}, {"*.expressvpn.com", "security"}, {"*.wireguard.com", "security"},
	{"*.torproject.org", "security"}, {"*.protonvpn.com", "security"}, {"*.protonmail.com", "security"},

	{"*.gmail.com", "email"}, {"*.outlook.com", "email"}, {"*.yahoo.com", "email"}, {"*.mail.com", "email"},

	{"*.onion", "suspicious"}, {"*.mining.*", "suspicious"}, {"*.coinhive.com", "suspicious"},
}

// portRules is a port-based classification fallback.
var portRules = map[int]string{
	80: "web", 443: "web", 53: "dns", 22: "security", 25: "email", 465: "email",
	587: "email", 993: "email", 143: "email", 21: "file_transfer", 3389: "work",
	5060: "communication", 5061: "communication",
}

// serviceRules maps a Zeek `service` field to a category.
var serviceRules = map[string]string{
	"http": "web", "ssl": "web", "dns": "dns", "ssh": "security", "smtp": "email",
	"ftp": "file_transfer", "imap": "email", "pop3": "email", "sip": "communication",
	"rdp": "work", "dhcp": "other", "ntp": "other",
}

// ByDomain matches domain against the curated glob rule list, case
// insensitively, returning "other" if nothing matches.
func ByDomain(domain string) string {
	if domain == "" {
		return "other"
	}
	lower := strings.ToLower(strings.TrimSpace(domain))
	for _, rule := range domainRules {
		if ok, _ := path.Match(strings.ToLower(rule.pattern), lower); ok {
			return rule.category
		}
	}
	return "other"
}

// ByService looks up a Zeek `service` field, returning "other" if unmapped.
func ByService(service string) string {
	if service == "" {
		return "other"
	}
	if cat, ok := serviceRules[strings.ToLower(strings.TrimSpace(service))]; ok {
		return cat
	}
	return "other"
}

// ByPort looks up a port number, returning "other" if unmapped.
func ByPort(port int) string {
	if cat, ok := portRules[port]; ok {
		return cat
	}
	return "other"
}

// Connection classifies a connection using the best available signal,
// preferring domain (most specific), then service, then port.
func Connection(service, domain string, port int) string {
	if domain != "" {
		if cat := ByDomain(domain); cat != "other" {
			return cat
		}
	}
	if service != "" {
		if cat := ByService(service); cat != "other" {
			return cat
		}
	}
	if port != 0 {
		if cat := ByPort(port); cat != "other" {
			return cat
		}
	}
	return "other"
}

// Label converts a category key to its display name, title-casing unknown
// keys rather than failing.
func Label(key string) string {
	if label, ok := Categories[key]; ok {
		return label
	}
	return strings.Title(strings.ReplaceAll(key, "_", " "))
}
