// Package prompts manages the reusable prompt templates agents are driven
// with: task prompts keyed by task type, and resume prompts that generate
// agent personas. Templates substitute {name} placeholders and declare their
// variables up front so a bad call fails before it reaches a model.
package prompts

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/GoCodeAlone/foreman/errs"
)

var (
	nameRE  = regexp.MustCompile(`^[a-zA-Z0-9_\-\s]+$`)
	typeRE  = regexp.MustCompile(`^[a-z0-9_]+$`)
	identRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// TaskPrompt is a versioned template for one kind of task work, e.g.
// code_review or documentation.
type TaskPrompt struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Template    string    `json:"prompt_template"`
	Variables   []string  `json:"variables"`
	TaskType    string    `json:"task_type"`
	Version     int       `json:"version"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTaskPrompt returns an active version-1 template.
func NewTaskPrompt(name, template, taskType string) *TaskPrompt {
	now := time.Now().UTC()
	return &TaskPrompt{
		Name:      name,
		Template:  template,
		TaskType:  taskType,
		Variables: []string{},
		Version:   1,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the template's invariants and normalizes its fields.
// Placeholders used by the template must all be declared in Variables.
func (p *TaskPrompt) Validate() error {
	v := &errs.ValidationError{}

	name := validateName(v, p.Name)
	taskType := validateTypeName(v, "task_type", p.TaskType)
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
	p.TaskType = taskType
	p.Template = template
	p.Variables = vars
	return nil
}

// Render substitutes the provided values into the template. Every declared
// variable must be provided and nothing else.
func (p *TaskPrompt) Render(values map[string]string) (string, error) {
	if err := checkRenderArgs(p.Variables, values); err != nil {
		return "", err
	}
	return render(p.Template, values)
}

func validateName(v *errs.ValidationError, raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		v.Add("name", "cannot be empty")
		return name
	}
	if !nameRE.MatchString(name) {
		v.Add("name", "contains invalid characters")
	}
	return name
}

// validateTypeName normalizes a type label to lowercase snake case, then
// checks the result against the allowed charset.
func validateTypeName(v *errs.ValidationError, field, raw string) string {
	t := strings.TrimSpace(raw)
	if t == "" {
		v.Add(field, "cannot be empty")
		return t
	}
	t = strings.ToLower(t)
	t = strings.ReplaceAll(t, " ", "_")
	if !typeRE.MatchString(t) {
		v.Add(field, "contains invalid characters")
	}
	return t
}

func validateVariables(v *errs.ValidationError, raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			v.Add("variables", "variable names cannot be empty")
			continue
		}
		if !identRE.MatchString(name) {
			v.Add("variables", "invalid variable name %q", name)
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// checkDeclared verifies the template only uses declared variables.
func checkDeclared(v *errs.ValidationError, template string, declared []string) {
	fields, err := templateFields(template)
	if err != nil {
		var ve *errs.ValidationError
		if errs.IsValidation(err) {
			ve = err.(*errs.ValidationError)
			v.Fields = append(v.Fields, ve.Fields...)
		} else {
			v.Add("prompt_template", "invalid template: %v", err)
		}
		return
	}

	declaredSet := make(map[string]struct{}, len(declared))
	for _, d := range declared {
		declaredSet[d] = struct{}{}
	}
	var undeclared []string
	for _, f := range fields {
		if _, ok := declaredSet[f]; !ok {
			undeclared = append(undeclared, f)
		}
	}
	if len(undeclared) > 0 {
		slices.Sort(undeclared)
		v.Add("prompt_template", "template uses undeclared variables: %s", strings.Join(undeclared, ", "))
	}
}
