// Package skills normalizes and compares sets of skill labels. Comparison is
// case-insensitive using Unicode case folding, so labels that differ only in
// case (or in folded forms such as "ß"/"ss") count as the same skill.
package skills

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// fold returns the case-folded form of s for comparison.
// cases.Caser is stateful, so a fresh one is built per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// Normalize trims each label, drops empty entries, removes duplicates, and
// returns the result sorted. Label case is preserved; only exact duplicates
// collapse. Normalizing an already-normalized list returns an equal list.
func Normalize(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

// MatchScore returns the fraction of required skills present in candidate,
// in [0, 1]. An empty required list matches vacuously (1.0); a non-empty
// required list against an empty candidate scores 0. Extra candidate skills
// beyond the requirement do not raise the score.
func MatchScore(required, candidate []string) float64 {
	if len(required) == 0 {
		return 1.0
	}
	if len(candidate) == 0 {
		return 0.0
	}

	have := make(map[string]struct{}, len(candidate))
	for _, c := range candidate {
		have[fold(strings.TrimSpace(c))] = struct{}{}
	}

	matched := 0
	for _, r := range required {
		if _, ok := have[fold(strings.TrimSpace(r))]; ok {
			matched++
		}
	}

	score := float64(matched) / float64(len(required))
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// MatchScoreWithBonus extends MatchScore with a heuristic: each candidate
// skill that is not itself required but is related to a required skill by
// substring containment (either direction) adds 0.1, once per candidate
// skill. The result is capped at 1.0. This rewards adjacent skills such as
// "postgresql" against a "sql" requirement without guaranteeing anything
// about relatedness.
func MatchScoreWithBonus(required, candidate []string) float64 {
	score := MatchScore(required, candidate)
	if len(required) == 0 || len(candidate) == 0 {
		return score
	}

	reqFolded := make([]string, 0, len(required))
	reqSet := make(map[string]struct{}, len(required))
	for _, r := range required {
		f := fold(strings.TrimSpace(r))
		reqFolded = append(reqFolded, f)
		reqSet[f] = struct{}{}
	}

	for _, c := range candidate {
		cf := fold(strings.TrimSpace(c))
		if _, exact := reqSet[cf]; exact || cf == "" {
			continue
		}
		for _, rf := range reqFolded {
			if strings.Contains(rf, cf) || strings.Contains(cf, rf) {
				score += 0.1
				break
			}
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// Contains reports whether labels includes skill under case folding.
func Contains(labels []string, skill string) bool {
	want := fold(strings.TrimSpace(skill))
	for _, l := range labels {
		if fold(l) == want {
			return true
		}
	}
	return false
}

// Remove deletes every label equal to skill under case folding and reports
// whether anything was removed.
func Remove(labels []string, skill string) ([]string, bool) {
	want := fold(strings.TrimSpace(skill))
	out := labels[:0]
	removed := false
	for _, l := range labels {
		if fold(l) == want {
			removed = true
			continue
		}
		out = append(out, l)
	}
	return out, removed
}
