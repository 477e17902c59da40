// Package scoring turns raw assessment answers into the composite distress
// score, risk label, and suicide index, and renders the clinician-facing
// narrative notes. Thresholds live in an injectable rule table so sites can
// tune cutoffs without a rebuild.
package scoring

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RiskLevel is one band of the risk ladder. Levels are evaluated in order;
// the first level whose bounds admit the inputs wins. A bound of zero means
// "no bound on this axis".
type RiskLevel struct {
	Label       string `yaml:"label"`
	MaxScore    int    `yaml:"max_score"`
	MaxOverall  int    `yaml:"max_overall"`
	RequireBoth bool   `yaml:"require_both"`
}

// Rules holds every tunable threshold in the pipeline.
type Rules struct {
	// RatingKeys are the answer keys summed into the composite score, each
	// expected on the 1..5 scale.
	RatingKeys []string `yaml:"rating_keys"`
	// OverallKey is the single-item overall risk rating consulted by the
	// risk ladder.
	OverallKey string `yaml:"overall_key"`

	Levels []RiskLevel `yaml:"levels"`

	// Suicide index typology cutoffs: index >= WishLiveMin classifies as
	// wish-to-live, index <= WishDieMax as wish-to-die, anything between as
	// ambivalent.
	WishLiveMin int `yaml:"wish_live_min"`
	WishDieMax  int `yaml:"wish_die_max"`
}

// DefaultRules returns the standard clinical thresholds.
func DefaultRules() Rules {
	return Rules{
		RatingKeys: []string{
			"rate_psych", "rate_stress", "rate_agitation",
			"rate_hopeless", "rate_self_hate",
		},
		OverallKey: "suicide_risk",
		Levels: []RiskLevel{
			{Label: "low", MaxScore: 11, MaxOverall: 2, RequireBoth: true},
			{Label: "moderate", MaxScore: 18, MaxOverall: 3},
			{Label: "high"},
		},
		WishLiveMin: 1,
		WishDieMax:  -1,
	}
}

// LoadRules reads a rule table from a YAML file, filling gaps with
// defaults. An empty path yields the defaults unchanged.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read scoring rules: %w", err)
	}
	var loaded Rules
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return rules, fmt.Errorf("parse scoring rules: %w", err)
	}
	if len(loaded.RatingKeys) > 0 {
		rules.RatingKeys = loaded.RatingKeys
	}
	if loaded.OverallKey != "" {
		rules.OverallKey = loaded.OverallKey
	}
	if len(loaded.Levels) > 0 {
		rules.Levels = loaded.Levels
	}
	if loaded.WishLiveMin != 0 {
		rules.WishLiveMin = loaded.WishLiveMin
	}
	if loaded.WishDieMax != 0 {
		rules.WishDieMax = loaded.WishDieMax
	}
	if err := rules.validate(); err != nil {
		return DefaultRules(), err
	}
	return rules, nil
}

func (r Rules) validate() error {
	if len(r.RatingKeys) == 0 {
		return fmt.Errorf("scoring rules: rating_keys is empty")
	}
	if len(r.Levels) == 0 {
		return fmt.Errorf("scoring rules: levels is empty")
	}
	last := r.Levels[len(r.Levels)-1]
	if last.MaxScore != 0 || last.MaxOverall != 0 {
		return fmt.Errorf("scoring rules: final level %q must be unbounded", last.Label)
	}
	return nil
}
