package prompts

import (
	"strings"
	"time"

	"github.com/GoCodeAlone/foreman/errs"
)

// PersonaType names the built-in persona profiles. Resume prompts may use
// custom types too; those fall back to a generic profile.
type PersonaType string

const (
	PersonaAnalytical     PersonaType = "analytical"
	PersonaCreative       PersonaType = "creative"
	PersonaDetailOriented PersonaType = "detail_oriented"
	PersonaCollaborative  PersonaType = "collaborative"
	PersonaLeadership     PersonaType = "leadership"
	PersonaTechnical      PersonaType = "technical"
	PersonaProblemSolver  PersonaType = "problem_solver"
	PersonaCommunicator   PersonaType = "communicator"
	PersonaInnovator      PersonaType = "innovator"
	PersonaMentor         PersonaType = "mentor"
)

// Valid reports whether t is one of the built-in personas.
func (t PersonaType) Valid() bool {
	_, ok := personaAttributes[t]
	return ok
}

// PersonaAttributes describes the behavioral profile a persona type implies.
type PersonaAttributes struct {
	DecisionStyle      string   `json:"decision_style"`
	CommunicationStyle string   `json:"communication_style"`
	WorkApproach       string   `json:"work_approach"`
	Strengths          []string `json:"strengths"`
	Preferences        []string `json:"preferences"`
}

var personaAttributes = map[PersonaType]PersonaAttributes{
	PersonaAnalytical: {
		DecisionStyle:      "data_driven",
		CommunicationStyle: "precise",
		WorkApproach:       "systematic",
		Strengths:          []string{"logical_reasoning", "pattern_recognition", "risk_assessment"},
		Preferences:        []string{"detailed_specifications", "clear_metrics", "structured_processes"},
	},
	PersonaCreative: {
		DecisionStyle:      "intuitive",
		CommunicationStyle: "expressive",
		WorkApproach:       "experimental",
		Strengths:          []string{"innovation", "ideation", "design_thinking"},
		Preferences:        []string{"flexible_deadlines", "brainstorming", "iterative_development"},
	},
	PersonaDetailOriented: {
		DecisionStyle:      "thorough",
		CommunicationStyle: "comprehensive",
		WorkApproach:       "methodical",
		Strengths:          []string{"quality_assurance", "documentation", "process_improvement"},
		Preferences:        []string{"complete_requirements", "testing", "verification"},
	},
	PersonaCollaborative: {
		DecisionStyle:      "consensus_driven",
		CommunicationStyle: "inclusive",
		WorkApproach:       "team_oriented",
		Strengths:          []string{"facilitation", "conflict_resolution", "knowledge_sharing"},
		Preferences:        []string{"group_work", "feedback_loops", "cross_functional_teams"},
	},
	PersonaLeadership: {
		DecisionStyle:      "strategic",
		CommunicationStyle: "inspiring",
		WorkApproach:       "goal_oriented",
		Strengths:          []string{"vision_setting", "delegation", "performance_management"},
		Preferences:        []string{"autonomy", "ownership", "results_tracking"},
	},
	PersonaTechnical: {
		DecisionStyle:      "evidence_based",
		CommunicationStyle: "technical",
		WorkApproach:       "solution_focused",
		Strengths:          []string{"problem_solving", "architecture", "optimization"},
		Preferences:        []string{"technical_depth", "best_practices", "code_quality"},
	},
	PersonaProblemSolver: {
		DecisionStyle:      "pragmatic",
		CommunicationStyle: "direct",
		WorkApproach:       "solution_oriented",
		Strengths:          []string{"root_cause_analysis", "troubleshooting", "critical_thinking"},
		Preferences:        []string{"clear_problems", "quick_feedback", "practical_solutions"},
	},
	PersonaCommunicator: {
		DecisionStyle:      "consultative",
		CommunicationStyle: "engaging",
		WorkApproach:       "relationship_focused",
		Strengths:          []string{"presentation", "documentation", "stakeholder_management"},
		Preferences:        []string{"interaction", "feedback", "clarity"},
	},
	PersonaInnovator: {
		DecisionStyle:      "experimental",
		CommunicationStyle: "visionary",
		WorkApproach:       "disruptive",
		Strengths:          []string{"creativity", "research", "prototyping"},
		Preferences:        []string{"exploration", "learning", "cutting_edge_tech"},
	},
	PersonaMentor: {
		DecisionStyle:      "developmental",
		CommunicationStyle: "supportive",
		WorkApproach:       "teaching_focused",
		Strengths:          []string{"coaching", "knowledge_transfer", "skill_development"},
		Preferences:        []string{"guidance_opportunities", "learning_culture", "growth_mindset"},
	},
}

// genericPersona covers custom persona types with no built-in profile.
var genericPersona = PersonaAttributes{
	DecisionStyle:      "balanced",
	CommunicationStyle: "adaptive",
	WorkApproach:       "flexible",
	Strengths:          []string{"adaptability", "learning", "collaboration"},
	Preferences:        []string{"clear_expectations", "feedback", "growth_opportunities"},
}

// ResumePrompt is a versioned template for generating an agent persona.
type ResumePrompt struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Template    string    `json:"prompt_template"`
	Variables   []string  `json:"variables"`
	PersonaType string    `json:"persona_type"`
	Version     int       `json:"version"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewResumePrompt returns an active version-1 template.
func NewResumePrompt(name, template, personaType string) *ResumePrompt {
	now := time.Now().UTC()
	return &ResumePrompt{
		Name:        name,
		Template:    template,
		PersonaType: personaType,
		Variables:   []string{},
		Version:     1,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate checks the template's invariants and normalizes its fields.
// Unlike task types, persona types also fold hyphens, so "detail-oriented"
// and "detail oriented" both store as detail_oriented.
func (p *ResumePrompt) Validate() error {
	v := &errs.ValidationError{}

	name := validateName(v, p.Name)
	personaType := validateTypeName(v, "persona_type", strings.ReplaceAll(p.PersonaType, "-", "_"))
	template := strings.TrimSpace(p.Template)
	if template == "" {
		v.Add("prompt_template", "cannot be empty")
	}
	vars := validateVariables(v, p.Variables)
	if p.Version < 1 {
		v.Add("version", "must be positive")
	}

	if template != "" {
		checkDeclared(v, template, vars)
	}

	if err := v.Err(); err != nil {
		return err
	}

	p.Name = name
	p.PersonaType = personaType
	p.Template = template
	p.Variables = vars
	return nil
}

// Render substitutes the provided values into the template. Every declared
// variable must be provided and nothing else.
func (p *ResumePrompt) Render(values map[string]string) (string, error) {
	if err := checkRenderArgs(p.Variables, values); err != nil {
		return "", err
	}
	return render(p.Template, values)
}

// Attributes returns the behavioral profile for the prompt's persona type,
// or the generic profile for custom types.
func (p *ResumePrompt) Attributes() PersonaAttributes {
	if attrs, ok := personaAttributes[PersonaType(p.PersonaType)]; ok {
		return attrs
	}
	return genericPersona
}
