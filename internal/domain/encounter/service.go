package encounter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/soteria/soteria/internal/domain/activity"
	"github.com/soteria/soteria/internal/domain/scoring"
	"github.com/soteria/soteria/internal/domain/section"
)

// TxRunner executes fn inside a database transaction. The production runner
// wraps db.RunInTx; tests substitute a passthrough.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// PassthroughTx runs fn on the bare context, for wiring without a database.
func PassthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type Service struct {
	encounters Repository
	activities activity.Repository
	rules      scoring.Rules
	notes      *scoring.NoteRenderer
	runTx      TxRunner
	now        func() time.Time
}

func NewService(encounters Repository, activities activity.Repository, rules scoring.Rules, notes *scoring.NoteRenderer, runTx TxRunner) *Service {
	return &Service{
		encounters: encounters,
		activities: activities,
		rules:      rules,
		notes:      notes,
		runTx:      runTx,
		now:        time.Now,
	}
}

// SetClock overrides the service clock, for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// -- Encounters --

func (s *Service) CreateEncounter(ctx context.Context, patientID uuid.UUID) (*Encounter, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	now := s.now()
	e := &Encounter{
		ID:        uuid.New(),
		PatientID: patientID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.encounters.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) GetEncounter(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return s.encounters.GetByID(ctx, id)
}

func (s *Service) ListEncountersByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	return s.encounters.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ArchiveEncounter(ctx context.Context, id uuid.UUID, privileged bool) error {
	if !privileged {
		return activity.ErrNotPermitted
	}
	return s.encounters.Archive(ctx, id)
}

// -- Assignment --

// AssignActivities adds the given activity types to an encounter.
// Singleton types already assigned are skipped, so re-assigning them is
// idempotent; assessment and plan always append a fresh instance, with the
// newest one taking over as current and older instances kept as history.
// When an assessment or plan joins an encounter whose counterpart has
// already collected shared answers, the new activity inherits them. If the
// new content inserts sections ahead of the current pointer, the pointer
// rewinds to the first unanswered section.
func (s *Service) AssignActivities(ctx context.Context, encounterID uuid.UUID, types []activity.Type, privileged bool) ([]activity.Type, error) {
	if !privileged {
		return nil, activity.ErrNotPermitted
	}
	for _, t := range types {
		if !t.Valid() {
			return nil, &activity.InvalidStateError{Reason: "unknown activity type " + string(t)}
		}
	}

	var added []activity.Type
	err := s.runTx(ctx, func(ctx context.Context) error {
		enc, err := s.encounters.GetByIDForUpdate(ctx, encounterID)
		if err != nil {
			return err
		}
		records, err := s.activities.ListByEncounter(ctx, encounterID)
		if err != nil {
			return err
		}
		existing := make(map[activity.Type]activity.Activity, len(records))
		for _, rec := range records {
			a, err := activity.FromRecord(*rec)
			if err != nil {
				return err
			}
			existing[rec.Type] = a
		}

		now := s.now()
		added = added[:0]
		for _, t := range types {
			if _, ok := existing[t]; ok && !t.Recurring() {
				continue
			}
			a, err := activity.New(t, encounterID, now)
			if err != nil {
				return err
			}
			if counter, ok := activity.CounterpartType(t); ok {
				if src, ok := existing[counter]; ok {
					activity.InheritShared(src, a)
				}
			}
			if err := s.activities.Create(ctx, a.Snapshot()); err != nil {
				return err
			}
			existing[t] = a
			added = append(added, t)
		}
		if len(added) == 0 {
			return nil
		}

		assigned := make([]activity.Type, 0, len(existing))
		for t := range existing {
			assigned = append(assigned, t)
		}
		nav := section.NewNavigator(section.BuildCatalog(assigned))
		ptr := nav.AfterAssign(enc.CurrentSectionUID, added, answeredFn(existing))
		if ptr != enc.CurrentSectionUID {
			enc.CurrentSectionUID = ptr
		}
		enc.UpdatedAt = now
		return s.encounters.Update(ctx, enc)
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// -- Saving answers --

// SaveAnswers routes a batch of answers to the assigned activities that
// accept them and advances the shared section pointer. The whole batch is
// one transaction holding the encounter row lock, so concurrent saves from
// the clinician console and the patient device serialize rather than
// interleave.
//
// Routing precedence for keys accepted by more than one assigned type runs
// assessment, plan, lethal means, intro, outro, then comfort and skills.
// Keys no assigned activity accepts are reported back as skipped. A save
// from a non-privileged caller silently skips keys routed to a locked
// activity; a validation failure anywhere aborts the whole batch.
//
// takeawayKit marks answers captured offline from the printed kit: they
// merge and recompute status like any other save but never move the
// section pointer, so the device resumes where the patient actually is.
func (s *Service) SaveAnswers(ctx context.Context, encounterID uuid.UUID, in *activity.AnswerSet, takeawayKit, privileged bool) (*SaveResult, error) {
	if in == nil || in.Len() == 0 {
		return nil, fmt.Errorf("answers are required")
	}

	var result *SaveResult
	err := s.runTx(ctx, func(ctx context.Context) error {
		enc, err := s.encounters.GetByIDForUpdate(ctx, encounterID)
		if err != nil {
			return err
		}
		if enc.SessionLocked && !privileged {
			return activity.ErrNotPermitted
		}

		records, err := s.activities.ListByEncounter(ctx, encounterID)
		if err != nil {
			return err
		}
		locks, err := s.activities.ListLocksByEncounter(ctx, encounterID)
		if err != nil {
			return err
		}
		assigned := make(map[activity.Type]*activity.AssignedActivity, len(records))
		for _, rec := range records {
			a, err := activity.FromRecord(*rec)
			if err != nil {
				return err
			}
			aa, err := activity.Wrap(a)
			if err != nil {
				return err
			}
			aa.Locks = locks[rec.RecordID]
			assigned[rec.Type] = aa
		}

		// Route each key to the first assigned type, in precedence order,
		// whose schema accepts it.
		routed := make(map[activity.Type]*activity.AnswerSet)
		var skipped []string
		lastAccepted := ""
		for _, key := range in.Keys() {
			target, ok := routeKey(key, assigned)
			if !ok {
				skipped = append(skipped, key)
				continue
			}
			if assigned[target].IsLocked() && !privileged {
				skipped = append(skipped, key)
				continue
			}
			v, _ := in.Get(key)
			if routed[target] == nil {
				routed[target] = activity.NewAnswerSet()
			}
			routed[target].Set(key, v)
			lastAccepted = key
		}

		result = &SaveResult{
			Accepted: make(map[activity.Type][]string),
			Skipped:  skipped,
			Statuses: make(map[activity.Type]activity.Status),
		}

		now := s.now()
		dirty := make(map[activity.Type]bool)
		for t, batch := range routed {
			aa := assigned[t]
			a, err := aa.Activity()
			if err != nil {
				return err
			}
			if err := a.Validate(batch); err != nil {
				return err
			}
			if a.ApplyAnswers(batch, now) {
				dirty[t] = true
			}
			result.Accepted[t] = batch.Keys()

			// Mirror shared answers onto the counterpart activity.
			shared := activity.SharedSubset(batch)
			if shared.Len() == 0 {
				continue
			}
			counter, ok := activity.CounterpartType(t)
			if !ok {
				continue
			}
			if caa, ok := assigned[counter]; ok {
				ca, err := caa.Activity()
				if err != nil {
					return err
				}
				if ca.ApplyAnswers(shared, now) {
					dirty[counter] = true
				}
			}
		}

		for t := range dirty {
			a, err := assigned[t].Activity()
			if err != nil {
				return err
			}
			if err := s.activities.UpdateAnswers(ctx, a.Snapshot()); err != nil {
				return err
			}
		}

		prevPtr := enc.CurrentSectionUID
		if lastAccepted != "" && !takeawayKit {
			nav := s.navigatorFor(assigned)
			enc.CurrentSectionUID = nav.Advance(prevPtr, lastAccepted)
		}
		if enc.CurrentSectionUID != prevPtr || len(dirty) > 0 {
			enc.UpdatedAt = now
			if err := s.encounters.Update(ctx, enc); err != nil {
				return err
			}
		}
		result.CurrentSectionUID = enc.CurrentSectionUID
		for t, aa := range assigned {
			result.Statuses[t] = aa.Status()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// -- Reads --

// GetActivity returns one assigned activity with its lock history.
func (s *Service) GetActivity(ctx context.Context, encounterID uuid.UUID, t activity.Type) (*activity.AssignedActivity, error) {
	rec, err := s.activities.GetByEncounterAndType(ctx, encounterID, t)
	if err != nil {
		return nil, err
	}
	a, err := activity.FromRecord(*rec)
	if err != nil {
		return nil, err
	}
	aa, err := activity.Wrap(a)
	if err != nil {
		return nil, err
	}
	aa.Locks, err = s.activities.ListLocks(ctx, rec.RecordID)
	if err != nil {
		return nil, err
	}
	return aa, nil
}

// ListActivities returns every assigned activity on the encounter.
func (s *Service) ListActivities(ctx context.Context, encounterID uuid.UUID) ([]*activity.AssignedActivity, error) {
	records, err := s.activities.ListByEncounter(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	locks, err := s.activities.ListLocksByEncounter(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	out := make([]*activity.AssignedActivity, 0, len(records))
	for _, rec := range records {
		a, err := activity.FromRecord(*rec)
		if err != nil {
			return nil, err
		}
		aa, err := activity.Wrap(a)
		if err != nil {
			return nil, err
		}
		aa.Locks = locks[rec.RecordID]
		out = append(out, aa)
	}
	return out, nil
}

// GetAnswers merges answers from every assigned activity into one view.
// Where a shared key appears on both assessment and plan, the canonical
// activity (routing precedence order) supplies the value. Metadata carries
// the computed scores, the current section pointer, and per-type status
// and lock state.
func (s *Service) GetAnswers(ctx context.Context, encounterID uuid.UUID) (*EncounterAnswers, error) {
	enc, err := s.encounters.GetByID(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	activities, err := s.ListActivities(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	current := make(map[activity.Type]*activity.AssignedActivity, len(activities))
	for _, aa := range activities {
		current[aa.Type] = aa
	}

	out := &EncounterAnswers{
		Answers: activity.NewAnswerSet(),
		Metadata: EncounterMetadata{
			CurrentSectionUID: enc.CurrentSectionUID,
			Statuses:          make(map[activity.Type]activity.Status, len(current)),
			Locked:            make(map[activity.Type]bool, len(current)),
		},
	}
	order := activity.RoutingOrder()
	for i := len(order) - 1; i >= 0; i-- {
		aa, ok := current[order[i]]
		if !ok {
			continue
		}
		a, err := aa.Activity()
		if err != nil {
			return nil, err
		}
		for _, key := range a.Answers().Keys() {
			v, _ := a.Answers().Get(key)
			out.Answers.Set(key, v)
		}
	}
	for t, aa := range current {
		out.Metadata.Statuses[t] = aa.Status()
		out.Metadata.Locked[t] = aa.IsLocked()
	}
	if aa, ok := current[activity.TypeSuicideAssessment]; ok {
		a, err := aa.Activity()
		if err != nil {
			return nil, err
		}
		r := scoring.Compute(s.rules, a.Answers())
		out.Metadata.Scoring = &r
	}
	return out, nil
}

// GetActivityAnswers returns one activity's answers. Assessment answers
// carry the computed score metadata; everything else returns answers alone.
func (s *Service) GetActivityAnswers(ctx context.Context, encounterID uuid.UUID, t activity.Type) (*ActivityAnswers, error) {
	aa, err := s.GetActivity(ctx, encounterID, t)
	if err != nil {
		return nil, err
	}
	a, err := aa.Activity()
	if err != nil {
		return nil, err
	}
	out := &ActivityAnswers{
		Type:    t,
		Status:  a.CurrentStatus(),
		Locked:  aa.IsLocked(),
		Answers: a.Answers(),
	}
	if t == activity.TypeSuicideAssessment {
		out.Metadata = scoring.Compute(s.rules, a.Answers())
	}
	return out, nil
}

// Sections returns the encounter's section list and current pointer.
func (s *Service) Sections(ctx context.Context, encounterID uuid.UUID) ([]section.Section, string, error) {
	enc, err := s.encounters.GetByID(ctx, encounterID)
	if err != nil {
		return nil, "", err
	}
	records, err := s.activities.ListByEncounter(ctx, encounterID)
	if err != nil {
		return nil, "", err
	}
	types := make([]activity.Type, 0, len(records))
	for _, rec := range records {
		types = append(types, rec.Type)
	}
	cat := section.BuildCatalog(types)
	return cat.Sections(), enc.CurrentSectionUID, nil
}

// -- Locks --

// LockActivity locks an activity for clinician review and moves the
// pointer past its sections so the patient device lands on the next
// activity's content.
func (s *Service) LockActivity(ctx context.Context, encounterID uuid.UUID, t activity.Type, privileged bool) (*activity.LockRecord, error) {
	var lock *activity.LockRecord
	err := s.runTx(ctx, func(ctx context.Context) error {
		enc, err := s.encounters.GetByIDForUpdate(ctx, encounterID)
		if err != nil {
			return err
		}
		aa, err := s.lockedView(ctx, encounterID, t)
		if err != nil {
			return err
		}
		wasLocked := aa.IsLocked()
		lock, err = aa.Lock(privileged, s.now())
		if err != nil {
			return err
		}
		if wasLocked {
			return nil
		}
		if err := s.activities.AppendLock(ctx, lock); err != nil {
			return err
		}

		records, err := s.activities.ListByEncounter(ctx, encounterID)
		if err != nil {
			return err
		}
		types := make([]activity.Type, 0, len(records))
		for _, rec := range records {
			types = append(types, rec.Type)
		}
		nav := section.NewNavigator(section.BuildCatalog(types))
		enc.CurrentSectionUID = nav.LockTarget(t)
		enc.UpdatedAt = s.now()
		return s.encounters.Update(ctx, enc)
	})
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// UnlockActivity releases a lock. The pointer stays where it is; the
// patient resumes from wherever the lock left them.
func (s *Service) UnlockActivity(ctx context.Context, encounterID uuid.UUID, t activity.Type, privileged bool) (*activity.LockRecord, error) {
	var lock *activity.LockRecord
	err := s.runTx(ctx, func(ctx context.Context) error {
		aa, err := s.lockedView(ctx, encounterID, t)
		if err != nil {
			return err
		}
		wasLocked := aa.IsLocked()
		lock, err = aa.Unlock(privileged, s.now())
		if err != nil {
			return err
		}
		if !wasLocked {
			return nil
		}
		return s.activities.AppendLock(ctx, lock)
	})
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// AcknowledgeLock records that the patient device has seen the active
// lock. Any caller may acknowledge.
func (s *Service) AcknowledgeLock(ctx context.Context, encounterID uuid.UUID, t activity.Type) (*activity.LockRecord, error) {
	var lock *activity.LockRecord
	err := s.runTx(ctx, func(ctx context.Context) error {
		aa, err := s.lockedView(ctx, encounterID, t)
		if err != nil {
			return err
		}
		lock, err = aa.Acknowledge()
		if err != nil {
			return err
		}
		return s.activities.UpdateLock(ctx, lock)
	})
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// LockSession flips the encounter-wide lock that freezes all patient
// saves at once.
func (s *Service) LockSession(ctx context.Context, encounterID uuid.UUID, locked, privileged bool) error {
	if !privileged {
		return activity.ErrNotPermitted
	}
	return s.runTx(ctx, func(ctx context.Context) error {
		enc, err := s.encounters.GetByIDForUpdate(ctx, encounterID)
		if err != nil {
			return err
		}
		if enc.SessionLocked == locked {
			return nil
		}
		enc.SessionLocked = locked
		enc.UpdatedAt = s.now()
		return s.encounters.Update(ctx, enc)
	})
}

// -- Notes --

// NarrativeNote renders the assessment summary note from the current
// answers. Missing inputs degrade to placeholders, so the note is always
// renderable.
func (s *Service) NarrativeNote(ctx context.Context, encounterID uuid.UUID) (string, error) {
	rec, err := s.activities.GetByEncounterAndType(ctx, encounterID, activity.TypeSuicideAssessment)
	if err != nil {
		return "", err
	}
	return s.notes.NarrativeNote(rec.Answers())
}

// StabilityPlanNote renders the plan summary note.
func (s *Service) StabilityPlanNote(ctx context.Context, encounterID uuid.UUID) (string, error) {
	rec, err := s.activities.GetByEncounterAndType(ctx, encounterID, activity.TypeStabilityPlan)
	if err != nil {
		return "", err
	}
	return s.notes.StabilityPlanNote(rec.Answers())
}

// -- helpers --

func (s *Service) lockedView(ctx context.Context, encounterID uuid.UUID, t activity.Type) (*activity.AssignedActivity, error) {
	rec, err := s.activities.GetByEncounterAndTypeForUpdate(ctx, encounterID, t)
	if err != nil {
		return nil, err
	}
	a, err := activity.FromRecord(*rec)
	if err != nil {
		return nil, err
	}
	aa, err := activity.Wrap(a)
	if err != nil {
		return nil, err
	}
	aa.Locks, err = s.activities.ListLocks(ctx, rec.RecordID)
	if err != nil {
		return nil, err
	}
	return aa, nil
}

func (s *Service) navigatorFor(assigned map[activity.Type]*activity.AssignedActivity) *section.Navigator {
	types := make([]activity.Type, 0, len(assigned))
	for t := range assigned {
		types = append(types, t)
	}
	return section.NewNavigator(section.BuildCatalog(types))
}

// answeredFn reports whether any assigned activity holds an answer for key.
func answeredFn(existing map[activity.Type]activity.Activity) func(key string) bool {
	return func(key string) bool {
		for _, a := range existing {
			if _, ok := a.Answers().Get(key); ok {
				return true
			}
		}
		return false
	}
}

// routeKey finds the highest-precedence assigned type that accepts key.
func routeKey(key string, assigned map[activity.Type]*activity.AssignedActivity) (activity.Type, bool) {
	for _, t := range activity.RoutingOrder() {
		if _, ok := assigned[t]; !ok {
			continue
		}
		if activity.SchemaFor(t).Accepts(key) {
			return t, true
		}
	}
	return "", false
}
