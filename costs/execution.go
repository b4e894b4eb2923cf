package costs

import (
	"strings"
	"time"

	"github.com/GoCodeAlone/foreman/errs"
)

// Common execution types. ExecutionType is an open set; these are the ones
// the rest of the system produces itself.
const (
	ExecTaskExecution  = "task_execution"
	ExecConsensusVote  = "consensus_vote"
	ExecHiringDecision = "hiring_decision"
)

// Execution records the spend of a single model call made by an agent,
// optionally against a task. Records are immutable once written.
type Execution struct {
	ID              int64          `json:"id"`
	AgentID         int64          `json:"agent_id"`
	TaskID          *int64         `json:"task_id,omitempty"`
	ModelName       string         `json:"model_name"`
	ExecutionType   string         `json:"execution_type"`
	InputTokens     int            `json:"input_tokens"`
	OutputTokens    int            `json:"output_tokens"`
	TotalCost       float64        `json:"total_cost"`
	ExecutionTimeMS *int           `json:"execution_time_ms,omitempty"`
	ConsensusRound  int            `json:"consensus_round"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// NewExecution returns an execution record for a first-round call.
func NewExecution(agentID int64, modelName, executionType string) *Execution {
	return &Execution{
		AgentID:        agentID,
		ModelName:      modelName,
		ExecutionType:  executionType,
		ConsensusRound: 1,
		CreatedAt:      time.Now().UTC(),
	}
}

// Validate checks the record's invariants and normalizes the model name and
// execution type. A record must carry token usage, a cost, or both; token
// usage without a cost is rejected as an unpriced call.
func (e *Execution) Validate() error {
	v := &errs.ValidationError{}

	if e.AgentID <= 0 {
		v.Add("agent_id", "is required")
	}
	model := strings.TrimSpace(e.ModelName)
	if model == "" {
		v.Add("model_name", "cannot be empty")
	}
	execType := strings.ToLower(strings.TrimSpace(e.ExecutionType))
	if execType == "" {
		v.Add("execution_type", "cannot be empty")
	}
	if e.InputTokens < 0 {
		v.Add("input_tokens", "cannot be negative")
	}
	if e.OutputTokens < 0 {
		v.Add("output_tokens", "cannot be negative")
	}
	if e.TotalCost < 0 {
		v.Add("total_cost", "cannot be negative")
	}
	if e.ExecutionTimeMS != nil && *e.ExecutionTimeMS < 0 {
		v.Add("execution_time_ms", "cannot be negative")
	}
	if e.ConsensusRound < 1 {
		v.Add("consensus_round", "must be at least 1")
	}

	if err := v.Err(); err != nil {
		return err
	}

	if e.TotalCost == 0 && e.InputTokens == 0 && e.OutputTokens == 0 {
		return errs.Domain("execution must have either token usage or cost information")
	}
	if (e.InputTokens > 0 || e.OutputTokens > 0) && e.TotalCost <= 0 {
		return errs.Domain("executions with token usage must have positive cost")
	}

	e.ModelName = model
	e.ExecutionType = execType
	return nil
}

// CostPerToken returns the blended price per token, or nil when the record
// carries no token counts.
func (e *Execution) CostPerToken() *float64 {
	total := e.InputTokens + e.OutputTokens
	if total == 0 {
		return nil
	}
	cpt := e.TotalCost / float64(total)
	return &cpt
}

// EfficiencyScore combines price per token with a latency penalty; lower is
// better. Nil when no token counts were recorded.
func (e *Execution) EfficiencyScore() *float64 {
	cpt := e.CostPerToken()
	if cpt == nil {
		return nil
	}
	score := *cpt
	if e.ExecutionTimeMS != nil {
		score += float64(*e.ExecutionTimeMS) / 1000 / 100
	}
	return &score
}

// IsConsensus reports whether the record belongs to a multi-agent decision,
// either by round number or by type.
func (e *Execution) IsConsensus() bool {
	if e.ConsensusRound > 1 {
		return true
	}
	return e.ExecutionType == ExecConsensusVote || e.ExecutionType == ExecHiringDecision
}

// MetadataValue returns the named metadata entry, or def when absent.
func (e *Execution) MetadataValue(key string, def any) any {
	if e.Metadata == nil {
		return def
	}
	if v, ok := e.Metadata[key]; ok {
		return v
	}
	return def
}

// SetMetadataValue records a metadata entry, allocating the map on first use.
func (e *Execution) SetMetadataValue(key string, value any) {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
}
