package scoring

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soteria/soteria/internal/domain/activity"
)

func answers(pairs ...any) *activity.AnswerSet {
	as := activity.NewAnswerSet()
	for i := 0; i+1 < len(pairs); i += 2 {
		as.Set(pairs[i].(string), pairs[i+1])
	}
	return as
}

func completeRatings(overall int) *activity.AnswerSet {
	return answers(
		"rate_psych", 2, "rate_stress", 2, "rate_agitation", 2,
		"rate_hopeless", 2, "rate_self_hate", 2,
		"suicide_risk", overall,
		"wish_live", 4, "wish_die", 1,
	)
}

func TestComputeFull(t *testing.T) {
	res := Compute(DefaultRules(), completeRatings(2))
	if res.Score == nil || *res.Score != 10 {
		t.Fatalf("score = %v, want 10", res.Score)
	}
	if res.RiskLabel != "low" {
		t.Errorf("risk = %s, want low", res.RiskLabel)
	}
	if res.SuicideIndex == nil || *res.SuicideIndex != 3 {
		t.Fatalf("index = %v, want 3", res.SuicideIndex)
	}
	if res.Typology != TypologyWishToLive {
		t.Errorf("typology = %s, want %s", res.Typology, TypologyWishToLive)
	}
}

func TestComputeRiskLadder(t *testing.T) {
	rules := DefaultRules()
	cases := []struct {
		name    string
		ratings []int
		overall int
		want    string
	}{
		{"low needs both bounds", []int{2, 2, 2, 2, 2}, 2, "low"},
		{"low score but elevated overall", []int{2, 2, 2, 2, 2}, 3, "moderate"},
		{"mid score", []int{3, 3, 3, 3, 3}, 2, "moderate"},
		{"high everything", []int{5, 5, 5, 5, 4}, 4, "high"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			as := answers(
				"rate_psych", tc.ratings[0], "rate_stress", tc.ratings[1],
				"rate_agitation", tc.ratings[2], "rate_hopeless", tc.ratings[3],
				"rate_self_hate", tc.ratings[4], "suicide_risk", tc.overall,
			)
			res := Compute(rules, as)
			if res.RiskLabel != tc.want {
				t.Errorf("risk = %s, want %s (score=%v)", res.RiskLabel, tc.want, res.Score)
			}
		})
	}
}

func TestComputeDegradesIndependently(t *testing.T) {
	// Only the wish items are present: no score, no risk label, but the
	// suicide index still computes.
	res := Compute(DefaultRules(), answers("wish_live", 1, "wish_die", 4))
	if res.Score != nil {
		t.Errorf("score = %v, want nil", *res.Score)
	}
	if res.RiskLabel != "" {
		t.Errorf("risk = %q, want empty", res.RiskLabel)
	}
	if res.SuicideIndex == nil || *res.SuicideIndex != -3 {
		t.Fatalf("index = %v, want -3", res.SuicideIndex)
	}
	if res.Typology != TypologyWishToDie {
		t.Errorf("typology = %s, want %s", res.Typology, TypologyWishToDie)
	}

	// Equal wishes are ambivalent.
	res = Compute(DefaultRules(), answers("wish_live", 3, "wish_die", 3))
	if res.Typology != TypologyAmbivalent {
		t.Errorf("typology = %s, want %s", res.Typology, TypologyAmbivalent)
	}
}

func TestComputeFloatAnswers(t *testing.T) {
	// JSON decoding stores numbers as float64.
	res := Compute(DefaultRules(), answers(
		"rate_psych", 2.0, "rate_stress", 2.0, "rate_agitation", 2.0,
		"rate_hopeless", 2.0, "rate_self_hate", 2.0,
	))
	if res.Score == nil || *res.Score != 10 {
		t.Fatalf("score = %v, want 10", res.Score)
	}
}

func TestNarrativeNoteIdempotent(t *testing.T) {
	r, err := NewNoteRenderer(DefaultRules())
	if err != nil {
		t.Fatal(err)
	}
	as := completeRatings(2)
	as.Set("suicidal_yes_no", "no")
	as.Set("reasons_live", []any{"family", "music"})

	first, err := r.NarrativeNote(as)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	second, err := r.NarrativeNote(as)
	if err != nil {
		t.Fatalf("re-render: %v", err)
	}
	if first != second {
		t.Error("same answers rendered different notes")
	}
	if !strings.Contains(first, "Composite distress score (5-25): 10") {
		t.Errorf("note missing score:\n%s", first)
	}
	if !strings.Contains(first, "family, music") {
		t.Errorf("note missing reasons for living:\n%s", first)
	}
}

func TestNarrativeNotePlaceholders(t *testing.T) {
	r, err := NewNoteRenderer(DefaultRules())
	if err != nil {
		t.Fatal(err)
	}
	note, err := r.NarrativeNote(answers("rate_psych", 3))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(note, MissingPlaceholder) {
		t.Errorf("note for sparse answers missing placeholder:\n%s", note)
	}
}

func TestStabilityPlanNote(t *testing.T) {
	r, err := NewNoteRenderer(DefaultRules())
	if err != nil {
		t.Fatal(err)
	}
	as := answers(
		"distress0", 8,
		"distress1", 4,
		"ws_thoughts", []any{"racing thoughts"},
		"supportive_people", []any{
			map[string]any{"name": "Sam", "phone": "555-0100"},
			map[string]any{"name": "", "phone": "555-0199"},
		},
	)
	note, err := r.StabilityPlanNote(as)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(note, "Distress at start (0-10): 8") {
		t.Errorf("note missing distress0:\n%s", note)
	}
	if !strings.Contains(note, "Sam (555-0100); 555-0199") {
		t.Errorf("note missing supportive people:\n%s", note)
	}
	if !strings.Contains(note, MissingPlaceholder) {
		t.Errorf("unanswered fields should carry the placeholder:\n%s", note)
	}
}

func TestLoadRulesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	raw := `
levels:
  - label: low
    max_score: 9
    max_overall: 1
    require_both: true
  - label: elevated
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}
	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if len(rules.Levels) != 2 || rules.Levels[1].Label != "elevated" {
		t.Fatalf("levels = %+v", rules.Levels)
	}
	// Untouched fields keep their defaults.
	if rules.OverallKey != "suicide_risk" {
		t.Errorf("overall_key = %s", rules.OverallKey)
	}

	res := Compute(rules, completeRatings(2))
	if res.RiskLabel != "elevated" {
		t.Errorf("risk = %s, want elevated under tightened cutoffs", res.RiskLabel)
	}
}

func TestLoadRulesMissingFile(t *testing.T) {
	if _, err := LoadRules("/nonexistent/rules.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	rules, err := LoadRules("")
	if err != nil {
		t.Fatalf("empty path: %v", err)
	}
	if len(rules.RatingKeys) != 5 {
		t.Errorf("rating keys = %v", rules.RatingKeys)
	}
}
