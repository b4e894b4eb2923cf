package prompts

import (
	"slices"
	"strings"

	"github.com/GoCodeAlone/foreman/errs"
)

// segment is one parsed piece of a template: literal text, or a placeholder
// to be filled at render time.
type segment struct {
	text    string
	isField bool
}

// parseSegments splits a template on {name} placeholders. Doubled braces
// escape a literal brace; a lone closing brace or an unclosed placeholder is
// an error.
func parseSegments(tpl string) ([]segment, error) {
	var segs []segment
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(tpl); {
		switch tpl[i] {
		case '{':
			if i+1 < len(tpl) && tpl[i+1] == '{' {
				lit.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(tpl[i+1:], '}')
			if end < 0 {
				return nil, errs.Validation("prompt_template", "unclosed placeholder")
			}
			name := tpl[i+1 : i+1+end]
			// Strip any conversion or format spec; only the name matters.
			if j := strings.IndexAny(name, ":!"); j >= 0 {
				name = name[:j]
			}
			flush()
			segs = append(segs, segment{text: name, isField: true})
			i += end + 2
		case '}':
			if i+1 < len(tpl) && tpl[i+1] == '}' {
				lit.WriteByte('}')
				i += 2
				continue
			}
			return nil, errs.Validation("prompt_template", "unmatched '}'")
		default:
			lit.WriteByte(tpl[i])
			i++
		}
	}
	flush()
	return segs, nil
}

// templateFields returns the placeholder names used by the template, first
// occurrence order, without duplicates.
func templateFields(tpl string) ([]string, error) {
	segs, err := parseSegments(tpl)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var fields []string
	for _, s := range segs {
		if !s.isField {
			continue
		}
		if _, dup := seen[s.text]; dup {
			continue
		}
		seen[s.text] = struct{}{}
		fields = append(fields, s.text)
	}
	return fields, nil
}

// render substitutes values into the template. Every placeholder must have a
// value; callers check that before rendering.
func render(tpl string, values map[string]string) (string, error) {
	segs, err := parseSegments(tpl)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	for _, s := range segs {
		if s.isField {
			out.WriteString(values[s.text])
			continue
		}
		out.WriteString(s.text)
	}
	return out.String(), nil
}

// checkRenderArgs compares provided values against declared variables and
// rejects both gaps and extras, each reported sorted for stable messages.
func checkRenderArgs(declared []string, values map[string]string) error {
	declaredSet := make(map[string]struct{}, len(declared))
	for _, v := range declared {
		declaredSet[v] = struct{}{}
	}

	var missing []string
	for _, v := range declared {
		if _, ok := values[v]; !ok {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return errs.Validation("variables", "missing required variables: %s", strings.Join(missing, ", "))
	}

	var extra []string
	for k := range values {
		if _, ok := declaredSet[k]; !ok {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		slices.Sort(extra)
		return errs.Validation("variables", "unknown variables provided: %s", strings.Join(extra, ", "))
	}
	return nil
}
