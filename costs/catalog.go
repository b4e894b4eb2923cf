// Package costs tracks model pricing and the spend incurred by agent
// executions. The catalog prices tokens per model; execution records
// accumulate actual spend against agents and tasks.
package costs

import (
	"strings"
	"time"

	"github.com/GoCodeAlone/foreman/errs"
)

// PerformanceTier classifies a model's capability class.
type PerformanceTier string

const (
	TierBasic      PerformanceTier = "basic"
	TierStandard   PerformanceTier = "standard"
	TierPremium    PerformanceTier = "premium"
	TierEnterprise PerformanceTier = "enterprise"
)

// Valid reports whether t is a known tier.
func (t PerformanceTier) Valid() bool {
	switch t {
	case TierBasic, TierStandard, TierPremium, TierEnterprise:
		return true
	}
	return false
}

// tierMultipliers discount the efficiency score for higher tiers: a premium
// model buys more capability per dollar than its raw token price suggests.
var tierMultipliers = map[PerformanceTier]float64{
	TierBasic:      1.0,
	TierStandard:   0.8,
	TierPremium:    0.6,
	TierEnterprise: 0.4,
}

// Model is one catalog entry. Name is unique; Capabilities are stored
// lowercase without duplicates.
type Model struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	Provider           string          `json:"provider"`
	CostPerInputToken  float64         `json:"cost_per_input_token"`
	CostPerOutputToken float64         `json:"cost_per_output_token"`
	ContextLimit       int             `json:"context_limit"`
	PerformanceTier    PerformanceTier `json:"performance_tier"`
	Capabilities       []string        `json:"capabilities"`
	IsActive           bool            `json:"is_active"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// NewModel returns an active catalog entry.
func NewModel(name, provider string, inputCost, outputCost float64, contextLimit int, tier PerformanceTier) *Model {
	now := time.Now().UTC()
	return &Model{
		Name:               name,
		Provider:           provider,
		CostPerInputToken:  inputCost,
		CostPerOutputToken: outputCost,
		ContextLimit:       contextLimit,
		PerformanceTier:    tier,
		Capabilities:       []string{},
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// normalizeCapabilities lowercases, trims, and de-duplicates while keeping
// first-seen order. Unlike skill labels, capabilities are stored folded, so
// insertion order is the only order worth preserving.
func normalizeCapabilities(caps []string) []string {
	seen := make(map[string]struct{}, len(caps))
	out := make([]string, 0, len(caps))
	for _, c := range caps {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Validate checks the catalog invariants, trims the name, lowercases the
// provider, and normalizes capabilities. All-or-nothing.
func (m *Model) Validate() error {
	v := &errs.ValidationError{}

	name := strings.TrimSpace(m.Name)
	if len(name) < 2 {
		v.Add("name", "must be at least 2 characters")
	}
	provider := strings.ToLower(strings.TrimSpace(m.Provider))
	if provider == "" {
		v.Add("provider", "cannot be empty")
	}
	if m.CostPerInputToken <= 0 {
		v.Add("cost_per_input_token", "must be positive")
	}
	if m.CostPerOutputToken <= 0 {
		v.Add("cost_per_output_token", "must be positive")
	}
	if m.ContextLimit <= 0 {
		v.Add("context_limit", "must be positive")
	}
	if !m.PerformanceTier.Valid() {
		v.Add("performance_tier", "unknown tier %q", m.PerformanceTier)
	}

	if err := v.Err(); err != nil {
		return err
	}

	m.Name = name
	m.Provider = provider
	m.Capabilities = normalizeCapabilities(m.Capabilities)
	return nil
}

// CalculateCost prices an execution of the given token counts.
func (m *Model) CalculateCost(inputTokens, outputTokens int) (float64, error) {
	if inputTokens < 0 {
		return 0, errs.Validation("input_tokens", "cannot be negative")
	}
	if outputTokens < 0 {
		return 0, errs.Validation("output_tokens", "cannot be negative")
	}
	return float64(inputTokens)*m.CostPerInputToken + float64(outputTokens)*m.CostPerOutputToken, nil
}

// HasCapability reports whether the model lists the capability,
// case-insensitively.
func (m *Model) HasCapability(capability string) bool {
	want := strings.ToLower(strings.TrimSpace(capability))
	for _, c := range m.Capabilities {
		if c == want {
			return true
		}
	}
	return false
}

// CostEfficiencyScore scores the model's price per unit of capability;
// lower is better. The average token price is discounted by the tier
// multiplier, so a premium model can beat a cheaper basic one.
func (m *Model) CostEfficiencyScore() float64 {
	avg := (m.CostPerInputToken + m.CostPerOutputToken) / 2
	mult, ok := tierMultipliers[m.PerformanceTier]
	if !ok {
		mult = 1.0
	}
	return avg * mult
}
