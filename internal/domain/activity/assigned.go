package activity

import (
	"time"

	"github.com/google/uuid"
)

// AssignedActivity is the tagged union handed around by the encounter
// service: the type discriminant plus exactly one populated payload. A
// union whose payload does not match its tag is a data fault, so every
// accessor refuses to dispatch on it.
type AssignedActivity struct {
	Type              Type               `json:"activity_type"`
	Intro             *Intro             `json:"intro,omitempty"`
	SuicideAssessment *SuicideAssessment `json:"suicide_assessment,omitempty"`
	StabilityPlan     *StabilityPlan     `json:"stability_plan,omitempty"`
	ComfortAndSkills  *ComfortAndSkills  `json:"comfort_and_skills,omitempty"`
	LethalMeans       *LethalMeans       `json:"lethal_means,omitempty"`
	Outro             *Outro             `json:"outro,omitempty"`

	Locks []LockRecord `json:"locks,omitempty"`
}

// Wrap builds the union around a concrete activity.
func Wrap(a Activity) (*AssignedActivity, error) {
	if a == nil {
		return nil, &InvalidStateError{Reason: "nil activity"}
	}
	aa := &AssignedActivity{Type: a.ActivityType()}
	switch v := a.(type) {
	case *Intro:
		aa.Intro = v
	case *SuicideAssessment:
		aa.SuicideAssessment = v
	case *StabilityPlan:
		aa.StabilityPlan = v
	case *ComfortAndSkills:
		aa.ComfortAndSkills = v
	case *LethalMeans:
		aa.LethalMeans = v
	case *Outro:
		aa.Outro = v
	default:
		return nil, &InvalidStateError{Reason: "unknown activity variant"}
	}
	return aa, nil
}

// Activity resolves the payload the tag names. A missing payload yields
// InvalidStateError rather than a nil dereference downstream.
func (aa *AssignedActivity) Activity() (Activity, error) {
	var a Activity
	switch aa.Type {
	case TypeIntro:
		if aa.Intro != nil {
			a = aa.Intro
		}
	case TypeSuicideAssessment:
		if aa.SuicideAssessment != nil {
			a = aa.SuicideAssessment
		}
	case TypeStabilityPlan:
		if aa.StabilityPlan != nil {
			a = aa.StabilityPlan
		}
	case TypeComfortAndSkills:
		if aa.ComfortAndSkills != nil {
			a = aa.ComfortAndSkills
		}
	case TypeLethalMeans:
		if aa.LethalMeans != nil {
			a = aa.LethalMeans
		}
	case TypeOutro:
		if aa.Outro != nil {
			a = aa.Outro
		}
	default:
		return nil, &InvalidStateError{Reason: "unknown activity type " + string(aa.Type)}
	}
	if a == nil {
		return nil, &InvalidStateError{Reason: "no payload for activity type " + string(aa.Type)}
	}
	return a, nil
}

// ID returns the payload's identity, or uuid.Nil for a malformed union.
func (aa *AssignedActivity) ID() uuid.UUID {
	a, err := aa.Activity()
	if err != nil {
		return uuid.Nil
	}
	return a.ID()
}

// Status returns the payload's status, or not-started for a malformed
// union.
func (aa *AssignedActivity) Status() Status {
	a, err := aa.Activity()
	if err != nil {
		return StatusNotStarted
	}
	return a.CurrentStatus()
}

// LockRecord is one entry in an activity's append-only lock history. A
// clinician locks an activity to gate further subject edits; the patient
// acknowledges the lock from their device. Unlocking appends a new record
// rather than mutating the old one, so the history reads as an audit trail.
type LockRecord struct {
	ID                 uuid.UUID `json:"id"`
	AssignedActivityID uuid.UUID `json:"assigned_activity_id"`
	Locked             bool      `json:"locked"`
	Acknowledged       bool      `json:"acknowledged"`
	CreatedAt          time.Time `json:"created_at"`
}

// CurrentLock returns the most recent lock record, if any.
func (aa *AssignedActivity) CurrentLock() *LockRecord {
	if len(aa.Locks) == 0 {
		return nil
	}
	return &aa.Locks[len(aa.Locks)-1]
}

// IsLocked reports whether the latest lock record holds the activity
// locked.
func (aa *AssignedActivity) IsLocked() bool {
	cur := aa.CurrentLock()
	return cur != nil && cur.Locked
}

// Lock appends a locked record. Only privileged users may lock; locking an
// already locked activity is a no-op that returns the current record.
func (aa *AssignedActivity) Lock(privileged bool, now time.Time) (*LockRecord, error) {
	if !privileged {
		return nil, ErrNotPermitted
	}
	if aa.IsLocked() {
		return aa.CurrentLock(), nil
	}
	rec := LockRecord{
		ID:                 uuid.New(),
		AssignedActivityID: aa.ID(),
		Locked:             true,
		CreatedAt:          now,
	}
	aa.Locks = append(aa.Locks, rec)
	return &aa.Locks[len(aa.Locks)-1], nil
}

// Unlock appends an unlocked record. Only privileged users may unlock;
// unlocking an unlocked activity is a no-op.
func (aa *AssignedActivity) Unlock(privileged bool, now time.Time) (*LockRecord, error) {
	if !privileged {
		return nil, ErrNotPermitted
	}
	if !aa.IsLocked() {
		return aa.CurrentLock(), nil
	}
	rec := LockRecord{
		ID:                 uuid.New(),
		AssignedActivityID: aa.ID(),
		Locked:             false,
		CreatedAt:          now,
	}
	aa.Locks = append(aa.Locks, rec)
	return &aa.Locks[len(aa.Locks)-1], nil
}

// Acknowledge marks the current lock as seen by the patient. Acknowledging
// when no lock is active is an invalid state.
func (aa *AssignedActivity) Acknowledge() (*LockRecord, error) {
	cur := aa.CurrentLock()
	if cur == nil || !cur.Locked {
		return nil, &InvalidStateError{Reason: "no active lock to acknowledge"}
	}
	cur.Acknowledged = true
	return cur, nil
}
