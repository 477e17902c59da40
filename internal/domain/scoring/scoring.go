package scoring

import (
	"github.com/soteria/soteria/internal/domain/activity"
)

// Result is the computed metadata attached to an assessment's answers.
// Nil pointers mark metrics whose inputs are missing; they are never
// zero-filled, since a zero score and an uncomputed score mean different
// things clinically.
type Result struct {
	Score        *int   `json:"score,omitempty"`
	RiskLabel    string `json:"risk_label,omitempty"`
	SuicideIndex *int   `json:"suicide_index,omitempty"`
	Typology     string `json:"typology,omitempty"`
}

// Typology labels for the suicide index.
const (
	TypologyWishToLive = "wish_to_live"
	TypologyWishToDie  = "wish_to_die"
	TypologyAmbivalent = "ambivalent"
)

// Compute derives every metric the answers support. Each metric degrades
// independently: a missing rating only suppresses the composite score, not
// the suicide index, and vice versa.
func Compute(rules Rules, answers *activity.AnswerSet) Result {
	var res Result
	if answers == nil {
		return res
	}

	if score, ok := compositeScore(rules, answers); ok {
		res.Score = &score
		if overall, ok := intAnswer(answers, rules.OverallKey); ok {
			res.RiskLabel = riskLabel(rules, score, overall)
		}
	}

	wishLive, okLive := intAnswer(answers, "wish_live")
	wishDie, okDie := intAnswer(answers, "wish_die")
	if okLive && okDie {
		idx := wishLive - wishDie
		res.SuicideIndex = &idx
		res.Typology = typology(rules, idx)
	}
	return res
}

// compositeScore sums the rating keys; all must be present.
func compositeScore(rules Rules, answers *activity.AnswerSet) (int, bool) {
	sum := 0
	for _, k := range rules.RatingKeys {
		v, ok := intAnswer(answers, k)
		if !ok {
			return 0, false
		}
		sum += v
	}
	return sum, true
}

// riskLabel walks the ladder in order and returns the first admitting
// level. The final level is unbounded, so the walk always terminates with a
// label.
func riskLabel(rules Rules, score, overall int) string {
	for _, lvl := range rules.Levels {
		scoreOK := lvl.MaxScore == 0 || score <= lvl.MaxScore
		overallOK := lvl.MaxOverall == 0 || overall <= lvl.MaxOverall
		if lvl.RequireBoth {
			if scoreOK && overallOK {
				return lvl.Label
			}
			continue
		}
		if scoreOK || overallOK {
			return lvl.Label
		}
	}
	return ""
}

func typology(rules Rules, idx int) string {
	switch {
	case idx >= rules.WishLiveMin:
		return TypologyWishToLive
	case idx <= rules.WishDieMax:
		return TypologyWishToDie
	default:
		return TypologyAmbivalent
	}
}

// intAnswer coerces a stored answer to int. JSON decoding produces
// float64; direct Go callers may store int.
func intAnswer(answers *activity.AnswerSet, key string) (int, bool) {
	v, ok := answers.Get(key)
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}
