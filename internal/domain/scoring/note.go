package scoring

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/soteria/soteria/internal/domain/activity"
)

// MissingPlaceholder stands in for any metric or answer the note template
// needs but the record does not hold. Rendering is a pure function of the
// stored answers, so re-rendering after new saves simply produces a fresher
// note.
const MissingPlaceholder = "not calculated due to missing answers"

const narrativeTemplate = `Suicide Risk Assessment Summary

Composite distress score (5-25): {{.Score}}
Overall risk level: {{.RiskLabel}}
Suicide index (wish to live minus wish to die): {{.SuicideIndex}}
Index typology: {{.Typology}}

Suicidal ideation reported: {{.SuicidalYesNo}}
Most painful concern: {{.MostPainful}}
Current intent: {{.CurrentIntent}}
Access to means: {{.MeansAccess}}
Prior attempts: {{.TimesTried}}

Reasons for living: {{.ReasonsLive}}
One thing worth staying for: {{.OneThing}}
`

const stabilityPlanTemplate = `Stability Plan

Distress at start (0-10): {{.Distress0}}
Distress at finish (0-10): {{.Distress1}}

Warning signs: {{.WarningSigns}}
Top warning sign: {{.WsTop}}
Coping strategies: {{.CopingStrategies}}
Top coping strategy: {{.CopingTop}}
Reasons for living: {{.ReasonsLive}}
Supportive people: {{.SupportivePeople}}

Plan rehearsed: {{.Rehearsal}}
Confidence after rehearsal: {{.Confidence}}
`

// NoteRenderer renders the clinician-facing narrative notes from answers
// and computed scores.
type NoteRenderer struct {
	rules     Rules
	narrative *template.Template
	stability *template.Template
}

func NewNoteRenderer(rules Rules) (*NoteRenderer, error) {
	nar, err := template.New("narrative").Parse(narrativeTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse narrative template: %w", err)
	}
	stab, err := template.New("stability").Parse(stabilityPlanTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse stability plan template: %w", err)
	}
	return &NoteRenderer{rules: rules, narrative: nar, stability: stab}, nil
}

// NarrativeNote renders the assessment summary. Missing inputs degrade to
// the placeholder instead of failing the render.
func (r *NoteRenderer) NarrativeNote(answers *activity.AnswerSet) (string, error) {
	res := Compute(r.rules, answers)
	data := map[string]string{
		"Score":         intOrPlaceholder(res.Score),
		"RiskLabel":     orPlaceholder(res.RiskLabel),
		"SuicideIndex":  intOrPlaceholder(res.SuicideIndex),
		"Typology":      orPlaceholder(res.Typology),
		"SuicidalYesNo": answerText(answers, "suicidal_yes_no"),
		"MostPainful":   answerText(answers, "most_painful"),
		"CurrentIntent": answerText(answers, "current_yes_no"),
		"MeansAccess":   answerText(answers, "means_yes_no"),
		"TimesTried":    answerText(answers, "times_tried"),
		"ReasonsLive":   answerText(answers, "reasons_live"),
		"OneThing":      answerText(answers, "one_thing"),
	}
	return r.render(r.narrative, data)
}

// StabilityPlanNote renders the plan summary.
func (r *NoteRenderer) StabilityPlanNote(answers *activity.AnswerSet) (string, error) {
	data := map[string]string{
		"Distress0":        answerText(answers, "distress0"),
		"Distress1":        answerText(answers, "distress1"),
		"WarningSigns":     joinedText(answers, "ws_stressors", "ws_thoughts", "ws_feelings", "ws_actions"),
		"WsTop":            answerText(answers, "ws_top"),
		"CopingStrategies": joinedText(answers, "coping_body", "coping_distract", "coping_help_others", "coping_courage", "coping_senses"),
		"CopingTop":        answerText(answers, "coping_top"),
		"ReasonsLive":      answerText(answers, "reasons_live"),
		"SupportivePeople": peopleText(answers, "supportive_people"),
		"Rehearsal":        answerText(answers, "stability_rehearsal"),
		"Confidence":       answerText(answers, "stability_confidence"),
	}
	return r.render(r.stability, data)
}

func (r *NoteRenderer) render(tpl *template.Template, data map[string]string) (string, error) {
	var b strings.Builder
	if err := tpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render note: %w", err)
	}
	return b.String(), nil
}

func orPlaceholder(s string) string {
	if s == "" {
		return MissingPlaceholder
	}
	return s
}

func intOrPlaceholder(n *int) string {
	if n == nil {
		return MissingPlaceholder
	}
	return fmt.Sprintf("%d", *n)
}

// answerText flattens a stored answer into note text.
func answerText(answers *activity.AnswerSet, key string) string {
	if answers == nil {
		return MissingPlaceholder
	}
	v, ok := answers.Get(key)
	if !ok || v == nil {
		return MissingPlaceholder
	}
	return flatten(v)
}

// joinedText merges several list answers into one comma separated run,
// skipping keys with no answer.
func joinedText(answers *activity.AnswerSet, keys ...string) string {
	var parts []string
	for _, k := range keys {
		v, ok := answers.Get(k)
		if !ok || v == nil {
			continue
		}
		if s := flatten(v); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return MissingPlaceholder
	}
	return strings.Join(parts, ", ")
}

// peopleText renders supportive_people entries as "name (phone)" pairs.
func peopleText(answers *activity.AnswerSet, key string) string {
	v, ok := answers.Get(key)
	if !ok {
		return MissingPlaceholder
	}
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return MissingPlaceholder
	}
	var parts []string
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := entry["name"].(string)
		phone, _ := entry["phone"].(string)
		switch {
		case name != "" && phone != "":
			parts = append(parts, fmt.Sprintf("%s (%s)", name, phone))
		case name != "":
			parts = append(parts, name)
		case phone != "":
			parts = append(parts, phone)
		}
	}
	if len(parts) == 0 {
		return MissingPlaceholder
	}
	return strings.Join(parts, "; ")
}

func flatten(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "yes"
		}
		return "no"
	case float64:
		if t == float64(int(t)) {
			return fmt.Sprintf("%d", int(t))
		}
		return fmt.Sprintf("%g", t)
	case int:
		return fmt.Sprintf("%d", t)
	case []any:
		var parts []string
		for _, item := range t {
			if s := flatten(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", t)
	}
}
