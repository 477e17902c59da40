package activity

import (
	"time"

	"github.com/google/uuid"
)

// Activity is the behavior common to every interview module. Each concrete
// type wraps a Record and layers type-specific validation on top.
type Activity interface {
	// ID returns the stable identity of this activity instance.
	ID() uuid.UUID
	// ActivityType returns the discriminant for dispatch.
	ActivityType() Type
	// CurrentStatus returns the stored lifecycle status.
	CurrentStatus() Status
	// Answers returns the stored answer set in save order.
	Answers() *AnswerSet
	// Validate checks a proposed batch of answers before it is applied.
	Validate(in *AnswerSet) error
	// ApplyAnswers merges accepted keys from in, recomputes status, and
	// reports whether anything changed.
	ApplyAnswers(in *AnswerSet, now time.Time) bool
	// ProgressLabel is the client-facing display name.
	ProgressLabel() string
	// Snapshot exposes the underlying persisted record.
	Snapshot() *Record
}

// Record is the persisted core shared by all activity variants.
type Record struct {
	RecordID    uuid.UUID  `json:"id"`
	EncounterID uuid.UUID  `json:"encounter_id"`
	Type        Type       `json:"activity_type"`
	Status      Status     `json:"status"`
	AnswerData  *AnswerSet `json:"answers"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (r *Record) ID() uuid.UUID         { return r.RecordID }
func (r *Record) ActivityType() Type    { return r.Type }
func (r *Record) CurrentStatus() Status { return r.Status }
func (r *Record) Snapshot() *Record     { return r }

func (r *Record) Answers() *AnswerSet {
	if r.AnswerData == nil {
		r.AnswerData = NewAnswerSet()
	}
	return r.AnswerData
}

func (r *Record) ProgressLabel() string {
	return progressLabels[r.Type]
}

// applyAnswers merges the accepted subset of in and recomputes status.
// Unknown keys are dropped rather than rejected. Returns true when any
// stored value changed.
func (r *Record) applyAnswers(in *AnswerSet, now time.Time) bool {
	schema := SchemaFor(r.Type)
	if schema == nil || in == nil {
		return false
	}
	stored := r.Answers()
	changed := false
	for _, k := range in.Keys() {
		if !schema.Accepts(k) {
			continue
		}
		v, _ := in.Get(k)
		if stored.Set(k, v) {
			changed = true
		}
	}
	if changed {
		r.UpdatedAt = now
	}
	r.recomputeStatus(changed)
	return changed
}

// recomputeStatus derives the lifecycle status from the stored answers.
// Status is a pure function of the answer set except for the updated
// transition, which additionally requires that this write changed data
// after the activity had already reached completion.
func (r *Record) recomputeStatus(changed bool) {
	if r.Type == TypeComfortAndSkills {
		// Open-ended module, never completes.
		r.Status = StatusInProgress
		return
	}
	schema := SchemaFor(r.Type)
	stored := r.Answers()
	if stored.Len() == 0 {
		r.Status = StatusNotStarted
		return
	}
	complete := true
	for _, k := range schema.Required {
		if _, ok := stored.Get(k); !ok {
			complete = false
			break
		}
	}
	switch {
	case !complete:
		r.Status = StatusInProgress
	case (r.Status == StatusCompleted || r.Status == StatusUpdated) && changed && r.Type.Recurring():
		r.Status = StatusUpdated
	case r.Status == StatusUpdated && !changed:
		// A no-op write never moves updated back to completed.
	default:
		r.Status = StatusCompleted
	}
}

// Intro is the orientation and check-in module.
type Intro struct{ Record }

// SuicideAssessment is the structured suicide risk interview.
type SuicideAssessment struct{ Record }

// StabilityPlan is the patient safety-planning module.
type StabilityPlan struct{ Record }

// ComfortAndSkills is the open-ended coping content module.
type ComfortAndSkills struct{ Record }

// LethalMeans is the means-restriction counseling module.
type LethalMeans struct{ Record }

// Outro is the wrap-up and survey module.
type Outro struct{ Record }

func (a *Intro) ApplyAnswers(in *AnswerSet, now time.Time) bool {
	return a.applyAnswers(in, now)
}
func (a *SuicideAssessment) ApplyAnswers(in *AnswerSet, now time.Time) bool {
	return a.applyAnswers(in, now)
}
func (a *StabilityPlan) ApplyAnswers(in *AnswerSet, now time.Time) bool {
	return a.applyAnswers(in, now)
}
func (a *ComfortAndSkills) ApplyAnswers(in *AnswerSet, now time.Time) bool {
	return a.applyAnswers(in, now)
}
func (a *LethalMeans) ApplyAnswers(in *AnswerSet, now time.Time) bool {
	return a.applyAnswers(in, now)
}
func (a *Outro) ApplyAnswers(in *AnswerSet, now time.Time) bool {
	return a.applyAnswers(in, now)
}

func (a *Intro) Validate(in *AnswerSet) error             { return validateCommon(&a.Record, in) }
func (a *SuicideAssessment) Validate(in *AnswerSet) error { return validateCommon(&a.Record, in) }
func (a *StabilityPlan) Validate(in *AnswerSet) error     { return validateCommon(&a.Record, in) }
func (a *ComfortAndSkills) Validate(in *AnswerSet) error  { return validateCommon(&a.Record, in) }
func (a *LethalMeans) Validate(in *AnswerSet) error       { return validateCommon(&a.Record, in) }
func (a *Outro) Validate(in *AnswerSet) error             { return validateCommon(&a.Record, in) }

// New constructs an activity of the given type with a fresh identity.
func New(t Type, encounterID uuid.UUID, now time.Time) (Activity, error) {
	if !t.Valid() {
		return nil, &InvalidStateError{Reason: "unknown activity type " + string(t)}
	}
	rec := Record{
		RecordID:    uuid.New(),
		EncounterID: encounterID,
		Type:        t,
		Status:      StatusNotStarted,
		AnswerData:  NewAnswerSet(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return FromRecord(rec)
}

// FromRecord wraps a persisted record in its concrete variant. Status is
// recomputed from the stored answers so a stale stored status self-heals on
// load.
func FromRecord(rec Record) (Activity, error) {
	var a Activity
	switch rec.Type {
	case TypeIntro:
		a = &Intro{Record: rec}
	case TypeSuicideAssessment:
		a = &SuicideAssessment{Record: rec}
	case TypeStabilityPlan:
		a = &StabilityPlan{Record: rec}
	case TypeComfortAndSkills:
		a = &ComfortAndSkills{Record: rec}
	case TypeLethalMeans:
		a = &LethalMeans{Record: rec}
	case TypeOutro:
		a = &Outro{Record: rec}
	default:
		return nil, &InvalidStateError{Reason: "unknown activity type " + string(rec.Type)}
	}
	a.Snapshot().recomputeStatus(false)
	return a, nil
}
