// Package ilm implements C14: applying OpenSearch Index Lifecycle
// Management policies for the three index families the daemon manages,
// with each policy's phase transitions derived from the Storage Manager's
// retention windows.
package ilm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wisbric/nightowl/pkg/storage"
)

// policyClient is the slice of the C1 Search Client this package needs.
type policyClient interface {
	PutILMPolicy(ctx context.Context, name string, policy map[string]any) error
}

// PolicyResult is the outcome of applying one named policy.
type PolicyResult struct {
	Policy  string `json:"policy"`
	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}

// Applier issues the daemon's fixed set of ILM policies.
type Applier struct {
	client policyClient
	config storage.RetentionConfig
	logger *slog.Logger
}

// New creates an Applier.
func New(client policyClient, config storage.RetentionConfig, logger *slog.Logger) *Applier {
	return &Applier{client: client, config: config, logger: logger}
}

// ApplyAll issues one PUT per known policy name. A failed PUT records
// {applied: false, error} for that policy and the call continues to the
// next one.
func (a *Applier) ApplyAll(ctx context.Context) map[string]PolicyResult {
	results := make(map[string]PolicyResult)
	for name, body := range a.policies() {
		result := PolicyResult{Policy: name, Applied: true}
		if err := a.client.PutILMPolicy(ctx, name, body); err != nil {
			result.Applied = false
			result.Error = err.Error()
			a.logger.Warn("failed to apply ilm policy", "policy", name, "error", err)
		}
		results[name] = result
	}
	return results
}

func (a *Applier) policies() map[string]map[string]any {
	return map[string]map[string]any{
		"zeek-hot-warm-cold":    hotWarmColdPolicy(a.config.HotDays, a.config.WarmDays, a.config.ColdDays),
		"suricata-hot-warm":     hotWarmPolicy(a.config.HotDays, a.config.WarmDays),
		"arkime-cold":           coldOnlyPolicy(a.config.ColdDays),
	}
}

func hotWarmColdPolicy(hotDays, warmDays, coldDays int) map[string]any {
	return map[string]any{
		"policy": map[string]any{
			"phases": map[string]any{
				"hot": map[string]any{
					"min_age": "0ms",
					"actions": map[string]any{},
				},
				"warm": map[string]any{
					"min_age": fmt.Sprintf("%dd", hotDays),
					"actions": map[string]any{"warm": map[string]any{}},
				},
				"cold": map[string]any{
					"min_age": fmt.Sprintf("%dd", hotDays+warmDays),
					"actions": map[string]any{"cold": map[string]any{}},
				},
				"delete": map[string]any{
					"min_age": fmt.Sprintf("%dd", hotDays+warmDays+coldDays),
					"actions": map[string]any{"delete": map[string]any{}},
				},
			},
		},
	}
}

func hotWarmPolicy(hotDays, warmDays int) map[string]any {
	return map[string]any{
		"policy": map[string]any{
			"phases": map[string]any{
				"hot": map[string]any{
					"min_age": "0ms",
					"actions": map[string]any{},
				},
				"warm": map[string]any{
					"min_age": fmt.Sprintf("%dd", hotDays),
					"actions": map[string]any{"warm": map[string]any{}},
				},
				"delete": map[string]any{
					"min_age": fmt.Sprintf("%dd", hotDays+warmDays),
					"actions": map[string]any{"delete": map[string]any{}},
				},
			},
		},
	}
}

func coldOnlyPolicy(coldDays int) map[string]any {
	return map[string]any{
		"policy": map[string]any{
			"phases": map[string]any{
				"cold": map[string]any{
					"min_age": "0ms",
					"actions": map[string]any{"cold": map[string]any{}},
				},
				"delete": map[string]any{
					"min_age": fmt.Sprintf("%dd", coldDays),
					"actions": map[string]any{"delete": map[string]any{}},
				},
			},
		},
	}
}
