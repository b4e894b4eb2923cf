package skills

import (
	"slices"
	"testing"
)

func TestNormalize(t *testing.T) {
	got := Normalize([]string{"  Go ", "python", "Go", "", "   ", "sql"})
	want := []string{"Go", "python", "sql"}
	if !slices.Equal(got, want) {
		t.Errorf("Normalize = %v, want %v", got, want)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	first := Normalize([]string{"docker", "go", "api design", "go"})
	second := Normalize(first)
	if !slices.Equal(first, second) {
		t.Errorf("re-normalizing changed the list: %v vs %v", first, second)
	}
}

func TestMatchScore_EmptyRequired(t *testing.T) {
	if got := MatchScore(nil, []string{"go"}); got != 1.0 {
		t.Errorf("empty required: got %v, want 1.0", got)
	}
	if got := MatchScore([]string{}, nil); got != 1.0 {
		t.Errorf("both empty: got %v, want 1.0", got)
	}
}

func TestMatchScore_EmptyCandidate(t *testing.T) {
	if got := MatchScore([]string{"go"}, nil); got != 0.0 {
		t.Errorf("empty candidate: got %v, want 0.0", got)
	}
}

func TestMatchScore_Partial(t *testing.T) {
	required := []string{"go", "sql", "docker", "kubernetes"}
	candidate := []string{"Go", "SQL"}
	if got := MatchScore(required, candidate); got != 0.5 {
		t.Errorf("got %v, want 0.5", got)
	}
}

func TestMatchScore_CaseInsensitive(t *testing.T) {
	if got := MatchScore([]string{"PostgreSQL"}, []string{"postgresql"}); got != 1.0 {
		t.Errorf("case difference should still match, got %v", got)
	}
}

func TestMatchScore_ExtraCandidateSkillsNoBoost(t *testing.T) {
	required := []string{"go"}
	candidate := []string{"go", "rust", "haskell", "zig"}
	if got := MatchScore(required, candidate); got != 1.0 {
		t.Errorf("got %v, want 1.0", got)
	}
}

func TestMatchScoreWithBonus_SubstringRelation(t *testing.T) {
	// "postgresql" is not required but contains required "sql": +0.1 over base 0.5.
	required := []string{"sql", "go"}
	candidate := []string{"go", "postgresql"}
	got := MatchScoreWithBonus(required, candidate)
	if got < 0.59 || got > 0.61 {
		t.Errorf("got %v, want 0.6", got)
	}
}

func TestMatchScoreWithBonus_CappedAtOne(t *testing.T) {
	required := []string{"sql"}
	candidate := []string{"sql", "mysql", "postgresql", "sqlite"}
	if got := MatchScoreWithBonus(required, candidate); got != 1.0 {
		t.Errorf("got %v, want capped 1.0", got)
	}
}

func TestMatchScoreWithBonus_NoRelationNoBonus(t *testing.T) {
	required := []string{"go", "sql"}
	candidate := []string{"go", "painting"}
	if got := MatchScoreWithBonus(required, candidate); got != 0.5 {
		t.Errorf("got %v, want 0.5", got)
	}
}

func TestContains(t *testing.T) {
	labels := []string{"Go", "SQL"}
	if !Contains(labels, "go") {
		t.Error("expected case-insensitive hit for go")
	}
	if Contains(labels, "rust") {
		t.Error("unexpected hit for rust")
	}
}

func TestRemove(t *testing.T) {
	labels := []string{"Go", "go", "sql"}
	out, removed := Remove(labels, "GO")
	if !removed {
		t.Fatal("expected removal")
	}
	if !slices.Equal(out, []string{"sql"}) {
		t.Errorf("got %v, want [sql]", out)
	}

	out2, removed2 := Remove(out, "go")
	if removed2 {
		t.Error("second removal should report false")
	}
	if !slices.Equal(out2, []string{"sql"}) {
		t.Errorf("got %v, want [sql]", out2)
	}
}
