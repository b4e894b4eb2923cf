package costs

import (
	"math"
	"testing"

	"github.com/GoCodeAlone/foreman/errs"
)

func TestModelValidate_Normalizes(t *testing.T) {
	m := NewModel("  claude-sonnet  ", "  Anthropic  ", 0.003, 0.015, 200000, TierPremium)
	m.Capabilities = []string{" Code ", "reasoning", "code", "", "Vision"}

	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if m.Name != "claude-sonnet" {
		t.Errorf("Name = %q, want trimmed", m.Name)
	}
	if m.Provider != "anthropic" {
		t.Errorf("Provider = %q, want lowercase", m.Provider)
	}
	want := []string{"code", "reasoning", "vision"}
	if len(m.Capabilities) != len(want) {
		t.Fatalf("Capabilities = %v, want %v", m.Capabilities, want)
	}
	for i, c := range want {
		if m.Capabilities[i] != c {
			t.Errorf("Capabilities[%d] = %q, want %q", i, m.Capabilities[i], c)
		}
	}
	if !m.IsActive {
		t.Error("new models should be active")
	}
}

func TestModelValidate_CollectsAllFailures(t *testing.T) {
	m := &Model{
		Name:               "x",
		Provider:           "  ",
		CostPerInputToken:  0,
		CostPerOutputToken: -1,
		ContextLimit:       0,
		PerformanceTier:    "galactic",
	}

	err := m.Validate()
	if !errs.IsValidation(err) {
		t.Fatalf("Validate() error = %v, want validation error", err)
	}
	v := err.(*errs.ValidationError)
	if len(v.Fields) != 6 {
		t.Errorf("got %d field errors, want 6: %v", len(v.Fields), v.Fields)
	}
}

func TestCalculateCost(t *testing.T) {
	m := NewModel("gpt-test", "openai", 0.001, 0.002, 8192, TierStandard)

	got, err := m.CalculateCost(1000, 500)
	if err != nil {
		t.Fatalf("CalculateCost() error = %v", err)
	}
	if math.Abs(got-2.0) > 1e-9 {
		t.Errorf("CalculateCost(1000, 500) = %v, want 2.0", got)
	}

	if _, err := m.CalculateCost(-1, 0); !errs.IsValidation(err) {
		t.Errorf("negative input tokens: error = %v, want validation", err)
	}
	if _, err := m.CalculateCost(0, -1); !errs.IsValidation(err) {
		t.Errorf("negative output tokens: error = %v, want validation", err)
	}
}

func TestHasCapability(t *testing.T) {
	m := NewModel("claude-haiku", "anthropic", 0.0008, 0.004, 200000, TierBasic)
	m.Capabilities = []string{"Code", "Summarization"}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if !m.HasCapability("  CODE ") {
		t.Error("HasCapability should fold case and whitespace")
	}
	if m.HasCapability("vision") {
		t.Error("HasCapability(vision) = true, want false")
	}
}

func TestCostEfficiencyScore(t *testing.T) {
	basic := NewModel("small", "acme", 1.0, 1.0, 4096, TierBasic)
	premium := NewModel("large", "acme", 1.5, 1.5, 128000, TierPremium)

	// Premium is 50% pricier per token but its tier discount still makes it
	// the better buy.
	if premium.CostEfficiencyScore() >= basic.CostEfficiencyScore() {
		t.Errorf("premium score %v should beat basic score %v",
			premium.CostEfficiencyScore(), basic.CostEfficiencyScore())
	}
	if got := basic.CostEfficiencyScore(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("basic score = %v, want 1.0", got)
	}
	if got := premium.CostEfficiencyScore(); math.Abs(got-0.9) > 1e-9 {
		t.Errorf("premium score = %v, want 0.9", got)
	}
}

func TestExecutionValidate(t *testing.T) {
	e := NewExecution(1, "  claude-sonnet ", "  Task_Execution ")
	e.InputTokens = 1200
	e.OutputTokens = 300
	e.TotalCost = 0.0081

	if err := e.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if e.ModelName != "claude-sonnet" {
		t.Errorf("ModelName = %q, want trimmed", e.ModelName)
	}
	if e.ExecutionType != "task_execution" {
		t.Errorf("ExecutionType = %q, want lowercase", e.ExecutionType)
	}
}

func TestExecutionValidate_RequiresUsageOrCost(t *testing.T) {
	e := NewExecution(1, "claude-sonnet", ExecTaskExecution)

	err := e.Validate()
	if !errs.IsDomain(err) {
		t.Fatalf("empty record: error = %v, want domain error", err)
	}

	// Token usage with a zero cost is an unpriced call.
	e.InputTokens = 100
	if err := e.Validate(); !errs.IsDomain(err) {
		t.Fatalf("tokens without cost: error = %v, want domain error", err)
	}

	// A flat cost with no token counts is fine (externally metered call).
	e.InputTokens = 0
	e.TotalCost = 0.25
	if err := e.Validate(); err != nil {
		t.Fatalf("cost without tokens: error = %v", err)
	}
}

func TestExecutionCostPerToken(t *testing.T) {
	e := NewExecution(1, "m", ExecTaskExecution)
	e.TotalCost = 0.5

	if e.CostPerToken() != nil {
		t.Error("CostPerToken without tokens should be nil")
	}

	e.InputTokens = 800
	e.OutputTokens = 200
	cpt := e.CostPerToken()
	if cpt == nil {
		t.Fatal("CostPerToken = nil, want value")
	}
	if math.Abs(*cpt-0.0005) > 1e-12 {
		t.Errorf("CostPerToken = %v, want 0.0005", *cpt)
	}
}

func TestExecutionEfficiencyScore(t *testing.T) {
	e := NewExecution(1, "m", ExecTaskExecution)
	e.TotalCost = 0.5

	if e.EfficiencyScore() != nil {
		t.Error("EfficiencyScore without tokens should be nil")
	}

	e.InputTokens = 800
	e.OutputTokens = 200
	ms := 2000
	e.ExecutionTimeMS = &ms

	score := e.EfficiencyScore()
	if score == nil {
		t.Fatal("EfficiencyScore = nil, want value")
	}
	// 0.0005 per token plus a 0.02 latency penalty for the two seconds.
	if math.Abs(*score-0.0205) > 1e-9 {
		t.Errorf("EfficiencyScore = %v, want 0.0205", *score)
	}
}

func TestExecutionIsConsensus(t *testing.T) {
	e := NewExecution(1, "m", ExecTaskExecution)
	e.TotalCost = 1
	if e.IsConsensus() {
		t.Error("plain first-round execution should not be consensus")
	}

	e.ConsensusRound = 2
	if !e.IsConsensus() {
		t.Error("round 2 should be consensus")
	}

	e.ConsensusRound = 1
	e.ExecutionType = ExecConsensusVote
	if !e.IsConsensus() {
		t.Error("consensus_vote should be consensus")
	}
	e.ExecutionType = ExecHiringDecision
	if !e.IsConsensus() {
		t.Error("hiring_decision should be consensus")
	}
}

func TestExecutionMetadata(t *testing.T) {
	e := NewExecution(1, "m", ExecTaskExecution)

	if got := e.MetadataValue("attempt", 1); got != 1 {
		t.Errorf("MetadataValue default = %v, want 1", got)
	}
	e.SetMetadataValue("attempt", 3)
	if got := e.MetadataValue("attempt", 1); got != 3 {
		t.Errorf("MetadataValue = %v, want 3", got)
	}
}
