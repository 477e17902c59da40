package activity

// Question is one navigable interview section contributed by an activity
// type: a stable section identifier plus the answer keys collected there.
type Question struct {
	SectionUID string
	AnswerKeys []string
}

// Schema declares, per activity type, the accepted answer keys, the keys
// required for completion, and the sections the type contributes to the
// interview flow. Keys submitted outside the accepted set are silently
// ignored to tolerate schema drift between client and server.
type Schema struct {
	Type      Type
	Required  []string
	Sections  []Question
	ExtraKeys []string // accepted keys that appear in no section

	fields map[string]bool
}

// Accepts reports whether the schema accepts the given answer key.
func (s *Schema) Accepts(key string) bool {
	return s.fields[key]
}

// Fields returns the full accepted key set.
func (s *Schema) Fields() []string {
	out := make([]string, 0, len(s.fields))
	for _, q := range s.Sections {
		out = append(out, q.AnswerKeys...)
	}
	out = append(out, s.ExtraKeys...)
	return out
}

func (s *Schema) buildFieldSet() {
	s.fields = make(map[string]bool)
	for _, q := range s.Sections {
		for _, k := range q.AnswerKeys {
			s.fields[k] = true
		}
	}
	for _, k := range s.ExtraKeys {
		s.fields[k] = true
	}
}

// sharedFields are canonical on the suicide assessment and mirrored onto the
// stability plan so that assigning a plan after an assessment auto-populates
// it (and vice versa for later writes).
var sharedFields = map[string]bool{
	"reasons_live":       true,
	"supportive_people":  true,
	"coping_body":        true,
	"coping_distract":    true,
	"coping_help_others": true,
	"coping_courage":     true,
	"coping_senses":      true,
	"coping_top":         true,
	"ws_stressors":       true,
	"ws_thoughts":        true,
	"ws_feelings":        true,
	"ws_actions":         true,
	"ws_top":             true,
}

// IsShared reports whether the key is mirrored between the suicide
// assessment and the stability plan.
func IsShared(key string) bool {
	return sharedFields[key]
}

// CounterpartType returns the activity type a shared-field write propagates
// to.
func CounterpartType(t Type) (Type, bool) {
	switch t {
	case TypeSuicideAssessment:
		return TypeStabilityPlan, true
	case TypeStabilityPlan:
		return TypeSuicideAssessment, true
	}
	return "", false
}

var schemas = map[Type]*Schema{
	TypeIntro: {
		Type:     TypeIntro,
		Required: []string{"tour_done"},
		Sections: []Question{
			{SectionUID: "intro", AnswerKeys: []string{"tour_done"}},
			{SectionUID: "intro_check_in", AnswerKeys: []string{"check_in_time0"}},
		},
	},
	TypeSuicideAssessment: {
		Type: TypeSuicideAssessment,
		Required: []string{
			"rate_psych", "rate_stress", "rate_agitation", "rate_hopeless",
			"rate_self_hate", "suicide_risk", "suicidal_yes_no",
			"wish_live", "wish_die",
		},
		Sections: []Question{
			{SectionUID: "rate_psych", AnswerKeys: []string{"rate_psych"}},
			{SectionUID: "most_painful", AnswerKeys: []string{"most_painful"}},
			{SectionUID: "rate_stress", AnswerKeys: []string{"rate_stress"}},
			{SectionUID: "most_stress", AnswerKeys: []string{"most_stress"}},
			{SectionUID: "rate_agitation", AnswerKeys: []string{"rate_agitation"}},
			{SectionUID: "rate_hopeless", AnswerKeys: []string{"rate_hopeless"}},
			{SectionUID: "rate_self_hate", AnswerKeys: []string{"rate_self_hate"}},
			{SectionUID: "suicide_risk", AnswerKeys: []string{"suicide_risk"}},
			{SectionUID: "suicidal_describe", AnswerKeys: []string{"suicidal_yes_no", "suicidal_yes_no_describe"}},
			{SectionUID: "suicidal_freq", AnswerKeys: []string{"suicidal_freq", "suicidal_freq_units"}},
			{SectionUID: "length_suicidal_thought", AnswerKeys: []string{"length_suicidal_thought"}},
			{SectionUID: "plans_to_kill", AnswerKeys: []string{"plans_to_kill"}},
			{SectionUID: "current_intent", AnswerKeys: []string{"current_yes_no", "current_yes_no_describe"}},
			{SectionUID: "practiced", AnswerKeys: []string{"practiced_yes_no", "practiced_yes_no_describe"}},
			{SectionUID: "means_access", AnswerKeys: []string{"means_yes_no", "means_yes_no_describe"}},
			{SectionUID: "nssi", AnswerKeys: []string{"nssi_yes_no", "nssi_yes_no_describe"}},
			{SectionUID: "times_tried", AnswerKeys: []string{"times_tried", "times_tried_describe"}},
			{SectionUID: "wish_live", AnswerKeys: []string{"wish_live"}},
			{SectionUID: "wish_die", AnswerKeys: []string{"wish_die"}},
			{SectionUID: "reasons_live", AnswerKeys: []string{"reasons_live"}},
			{SectionUID: "one_thing", AnswerKeys: []string{"one_thing"}},
			{SectionUID: "skip_reason", AnswerKeys: []string{"skip_reason"}},
		},
		ExtraKeys: []string{
			"supportive_people", "coping_body", "coping_distract",
			"coping_help_others", "coping_courage", "coping_senses",
			"coping_top", "ws_stressors", "ws_thoughts", "ws_feelings",
			"ws_actions", "ws_top",
		},
	},
	TypeStabilityPlan: {
		Type: TypeStabilityPlan,
		Required: []string{
			"distress0", "reasons_live", "supportive_people",
			"stability_rehearsal", "distress1",
		},
		Sections: []Question{
			{SectionUID: "distress0", AnswerKeys: []string{"distress0"}},
			{SectionUID: "warning_signs", AnswerKeys: []string{"ws_stressors", "ws_thoughts", "ws_feelings", "ws_actions"}},
			{SectionUID: "ws_top", AnswerKeys: []string{"ws_top"}},
			{SectionUID: "coping_strategies", AnswerKeys: []string{"coping_body", "coping_distract", "coping_help_others", "coping_courage", "coping_senses"}},
			{SectionUID: "coping_top", AnswerKeys: []string{"coping_top"}},
			{SectionUID: "reasons_live", AnswerKeys: []string{"reasons_live"}},
			{SectionUID: "supportive_people", AnswerKeys: []string{"supportive_people"}},
			{SectionUID: "stability_rehearsal", AnswerKeys: []string{"stability_rehearsal", "stability_confidence"}},
			{SectionUID: "distress1", AnswerKeys: []string{"distress1"}},
		},
	},
	TypeComfortAndSkills: {
		Type: TypeComfortAndSkills,
		// No navigable sections and no completion bar: the module is open
		// ended, so its status is pinned in-progress.
		ExtraKeys: []string{"comfort_skills_viewed", "cs_favorites"},
	},
	TypeLethalMeans: {
		Type:     TypeLethalMeans,
		Required: []string{"strategies_general", "means_willing"},
		Sections: []Question{
			{SectionUID: "means_safe", AnswerKeys: []string{"strategies_general", "strategies_firearm", "strategies_medicine", "strategies_places"}},
			{SectionUID: "means_support", AnswerKeys: []string{"means_support_yes_no", "means_support_who"}},
			{SectionUID: "means_willing", AnswerKeys: []string{"means_willing"}},
		},
	},
	TypeOutro: {
		Type:     TypeOutro,
		Required: []string{"outro_done"},
		Sections: []Question{
			{SectionUID: "outro_check_in", AnswerKeys: []string{"check_in_time1"}},
			{SectionUID: "outro_survey", AnswerKeys: []string{"overall_er_care", "quality_of_care"}},
			{SectionUID: "outro_done", AnswerKeys: []string{"outro_done"}},
		},
	},
}

func init() {
	for _, s := range schemas {
		s.buildFieldSet()
	}
}

// SchemaFor returns the fixed schema for an activity type, or nil for an
// unknown type.
func SchemaFor(t Type) *Schema {
	return schemas[t]
}

// progressLabels are the client-facing names per type.
var progressLabels = map[Type]string{
	TypeIntro:             "Welcome",
	TypeSuicideAssessment: "Suicide Risk Assessment",
	TypeStabilityPlan:     "Stability Plan",
	TypeComfortAndSkills:  "Comfort & Skills",
	TypeLethalMeans:       "Lethal Means Counseling",
	TypeOutro:             "Wrap Up",
}
