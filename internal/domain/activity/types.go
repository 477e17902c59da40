package activity

// Type identifies one of the six interview activities. The set is closed:
// activity types and their field sets are fixed at design time.
type Type string

const (
	TypeIntro             Type = "intro"
	TypeSuicideAssessment Type = "suicide_assessment"
	TypeStabilityPlan     Type = "stability_plan"
	TypeComfortAndSkills  Type = "comfort_and_skills"
	TypeLethalMeans       Type = "lethal_means"
	TypeOutro             Type = "outro"
)

// routingOrder is the fixed precedence used when more than one activity
// could structurally receive a submission: assessment-type activities win
// over onboarding/outro modules.
var routingOrder = []Type{
	TypeSuicideAssessment,
	TypeStabilityPlan,
	TypeLethalMeans,
	TypeIntro,
	TypeOutro,
	TypeComfortAndSkills,
}

// RoutingOrder returns the dispatcher precedence, highest priority first.
func RoutingOrder() []Type {
	out := make([]Type, len(routingOrder))
	copy(out, routingOrder)
	return out
}

func (t Type) Valid() bool {
	switch t {
	case TypeIntro, TypeSuicideAssessment, TypeStabilityPlan,
		TypeComfortAndSkills, TypeLethalMeans, TypeOutro:
		return true
	}
	return false
}

// Recurring reports whether the type is revisited after completion. Only
// recurring types move to updated when edited post-completion; the others
// stay completed.
func (t Type) Recurring() bool {
	return t == TypeSuicideAssessment || t == TypeStabilityPlan
}

// Status is the activity progress state, recomputed as a pure function of
// the answer set against the type's required-key schema.
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusUpdated    Status = "updated"
	StatusCompleted  Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusUpdated, StatusCompleted:
		return true
	}
	return false
}
