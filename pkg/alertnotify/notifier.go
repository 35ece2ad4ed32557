// Package alertnotify posts an outbound Slack notification when a
// critical-severity alert is ingested, adapted from the teacher's bot-token
// Slack notifier to the appliance's simpler incoming-webhook configuration
// (SLACK_WEBHOOK_URL) since there is no OAuth app install step on a LAN
// appliance.
package alertnotify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
)

// AlertInfo is the minimal set of fields needed to render a notification.
type AlertInfo struct {
	AlertID    string
	Signature  string
	Severity   int // 1 (highest) through 4, per Suricata/Arkime convention
	SourceIP   string
	DestIP     string
	DetectedAt string
}

// Notifier posts critical alerts to a Slack incoming webhook.
type Notifier struct {
	webhookURL string
	logger     *slog.Logger
}

// New creates a Notifier. If webhookURL is empty, the notifier is a noop.
func New(webhookURL string, logger *slog.Logger) *Notifier {
	return &Notifier{webhookURL: webhookURL, logger: logger}
}

// IsEnabled reports whether a webhook URL is configured.
func (n *Notifier) IsEnabled() bool {
	return n.webhookURL != ""
}

// severityLabel maps the Suricata/Arkime 1-4 severity scale to a word, with
// 1 treated as critical.
func severityLabel(severity int) string {
	switch severity {
	case 1:
		return "critical"
	case 2:
		return "high"
	case 3:
		return "medium"
	default:
		return "low"
	}
}

// NotifyCritical posts a notification for alerts at severity 1. Callers
// decide which alerts qualify; this only guards on IsEnabled.
func (n *Notifier) NotifyCritical(ctx context.Context, alert AlertInfo) error {
	if !n.IsEnabled() {
		n.logger.Debug("slack notifier disabled, skipping critical alert", "alert_id", alert.AlertID)
		return nil
	}

	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf("[%s] %s", severityLabel(alert.Severity), alert.Signature),
		Attachments: []slack.Attachment{
			{
				Color: "danger",
				Fields: []slack.AttachmentField{
					{Title: "Alert ID", Value: alert.AlertID, Short: true},
					{Title: "Source", Value: alert.SourceIP, Short: true},
					{Title: "Destination", Value: alert.DestIP, Short: true},
					{Title: "Detected", Value: alert.DetectedAt, Short: true},
				},
			},
		},
	}

	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		n.logger.Warn("failed to post critical alert to slack", "alert_id", alert.AlertID, "error", err)
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	n.logger.Info("posted critical alert to slack", "alert_id", alert.AlertID)
	return nil
}
