package activity

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

var testNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func newTestActivity(t *testing.T, typ Type) Activity {
	t.Helper()
	a, err := New(typ, uuid.New(), testNow)
	if err != nil {
		t.Fatalf("New(%s): %v", typ, err)
	}
	return a
}

func answers(pairs ...any) *AnswerSet {
	as := NewAnswerSet()
	for i := 0; i+1 < len(pairs); i += 2 {
		as.Set(pairs[i].(string), pairs[i+1])
	}
	return as
}

func TestAnswerSetPreservesSaveOrder(t *testing.T) {
	as := NewAnswerSet()
	as.Set("b", 1)
	as.Set("a", 2)
	as.Set("c", 3)
	as.Set("a", 4) // re-save keeps original position

	got := as.Keys()
	want := []string{"b", "a", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys = %v, want %v", got, want)
		}
	}
	if v, _ := as.Get("a"); v != 4 {
		t.Errorf("a = %v, want 4", v)
	}
}

func TestAnswerSetJSONRoundTrip(t *testing.T) {
	var as AnswerSet
	raw := `{"wish_die":3,"rate_psych":5,"wish_live":1}`
	if err := json.Unmarshal([]byte(raw), &as); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	keys := as.Keys()
	want := []string{"wish_die", "rate_psych", "wish_live"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}
	out, err := json.Marshal(&as)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != raw {
		t.Errorf("marshal = %s, want %s", out, raw)
	}
}

func TestStatusLifecycleIntro(t *testing.T) {
	a := newTestActivity(t, TypeIntro)
	if a.CurrentStatus() != StatusNotStarted {
		t.Fatalf("fresh status = %s", a.CurrentStatus())
	}

	a.ApplyAnswers(answers("check_in_time0", "10:00"), testNow)
	if a.CurrentStatus() != StatusInProgress {
		t.Errorf("partial status = %s, want in-progress", a.CurrentStatus())
	}

	a.ApplyAnswers(answers("tour_done", true), testNow)
	if a.CurrentStatus() != StatusCompleted {
		t.Errorf("complete status = %s, want completed", a.CurrentStatus())
	}

	// Intro never moves to updated: a post-completion edit stays completed.
	a.ApplyAnswers(answers("check_in_time0", "11:00"), testNow)
	if a.CurrentStatus() != StatusCompleted {
		t.Errorf("post-completion edit status = %s, want completed", a.CurrentStatus())
	}
}

func TestStatusUpdatedAfterCompletion(t *testing.T) {
	a := newTestActivity(t, TypeSuicideAssessment)
	complete := answers(
		"rate_psych", 3, "rate_stress", 3, "rate_agitation", 3,
		"rate_hopeless", 3, "rate_self_hate", 3, "suicide_risk", 2,
		"suicidal_yes_no", "no", "wish_live", 4, "wish_die", 1,
	)
	a.ApplyAnswers(complete, testNow)
	if a.CurrentStatus() != StatusCompleted {
		t.Fatalf("status = %s, want completed", a.CurrentStatus())
	}

	// Re-saving identical values changes nothing.
	if changed := a.ApplyAnswers(answers("rate_psych", 3), testNow); changed {
		t.Error("identical save reported a change")
	}
	if a.CurrentStatus() != StatusCompleted {
		t.Errorf("status after no-op = %s, want completed", a.CurrentStatus())
	}

	a.ApplyAnswers(answers("rate_psych", 5), testNow)
	if a.CurrentStatus() != StatusUpdated {
		t.Errorf("status after edit = %s, want updated", a.CurrentStatus())
	}

	// A later no-op save does not drop updated back to completed.
	a.ApplyAnswers(answers("rate_psych", 5), testNow)
	if a.CurrentStatus() != StatusUpdated {
		t.Errorf("status after second no-op = %s, want updated", a.CurrentStatus())
	}
}

func TestComfortAndSkillsPinnedInProgress(t *testing.T) {
	a := newTestActivity(t, TypeComfortAndSkills)
	a.ApplyAnswers(answers("comfort_skills_viewed", []any{"breathing"}), testNow)
	if a.CurrentStatus() != StatusInProgress {
		t.Errorf("status = %s, want in-progress", a.CurrentStatus())
	}
}

func TestApplyAnswersDropsUnknownKeys(t *testing.T) {
	a := newTestActivity(t, TypeIntro)
	changed := a.ApplyAnswers(answers("bogus_key", "x"), testNow)
	if changed {
		t.Error("unknown key reported a change")
	}
	if a.Answers().Len() != 0 {
		t.Errorf("stored %d answers, want 0", a.Answers().Len())
	}
}

func TestFromRecordUnknownType(t *testing.T) {
	_, err := FromRecord(Record{Type: "ouija_board"})
	var ise *InvalidStateError
	if !errors.As(err, &ise) {
		t.Fatalf("err = %v, want InvalidStateError", err)
	}
}

func TestAssignedActivityDispatch(t *testing.T) {
	a := newTestActivity(t, TypeStabilityPlan)
	aa, err := Wrap(a)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	got, err := aa.Activity()
	if err != nil {
		t.Fatalf("Activity: %v", err)
	}
	if got.ID() != a.ID() {
		t.Error("dispatch returned a different activity")
	}

	// Tag without payload must refuse to dispatch.
	broken := &AssignedActivity{Type: TypeIntro}
	if _, err := broken.Activity(); err == nil {
		t.Error("expected error for missing payload")
	}
	var ise *InvalidStateError
	if _, err := broken.Activity(); !errors.As(err, &ise) {
		t.Errorf("err = %v, want InvalidStateError", err)
	}
}

func TestLockProtocol(t *testing.T) {
	a := newTestActivity(t, TypeSuicideAssessment)
	aa, _ := Wrap(a)

	if _, err := aa.Lock(false, testNow); !errors.Is(err, ErrNotPermitted) {
		t.Fatalf("patient lock err = %v, want ErrNotPermitted", err)
	}

	rec, err := aa.Lock(true, testNow)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if !rec.Locked || !aa.IsLocked() {
		t.Fatal("activity not locked after Lock")
	}

	// Locking again is a no-op returning the same record.
	again, _ := aa.Lock(true, testNow.Add(time.Minute))
	if again.ID != rec.ID {
		t.Error("re-lock appended a new record")
	}

	ack, err := aa.Acknowledge()
	if err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	if !ack.Acknowledged {
		t.Error("lock not acknowledged")
	}

	if _, err := aa.Unlock(false, testNow); !errors.Is(err, ErrNotPermitted) {
		t.Fatalf("patient unlock err = %v, want ErrNotPermitted", err)
	}
	un, err := aa.Unlock(true, testNow.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if un.Locked || aa.IsLocked() {
		t.Error("activity still locked after Unlock")
	}
	// History is append-only: lock then unlock leaves two records.
	if len(aa.Locks) != 2 {
		t.Errorf("lock history length = %d, want 2", len(aa.Locks))
	}

	if _, err := aa.Acknowledge(); err == nil {
		t.Error("expected error acknowledging without an active lock")
	}
}

func TestInheritShared(t *testing.T) {
	assess := newTestActivity(t, TypeSuicideAssessment)
	assess.ApplyAnswers(answers(
		"reasons_live", []any{"family"},
		"supportive_people", []any{map[string]any{"name": "Sam", "phone": ""}},
		"rate_psych", 4,
	), testNow)

	plan := newTestActivity(t, TypeStabilityPlan)
	plan.ApplyAnswers(answers("reasons_live", []any{"dog"}), testNow)

	if !InheritShared(assess, plan) {
		t.Fatal("expected inheritance to copy supportive_people")
	}
	v, ok := plan.Answers().Get("reasons_live")
	if !ok {
		t.Fatal("reasons_live missing on plan")
	}
	list := v.([]any)
	if list[0] != "dog" {
		t.Errorf("reasons_live = %v, inheritance overwrote an existing answer", list)
	}
	if _, ok := plan.Answers().Get("supportive_people"); !ok {
		t.Error("supportive_people not inherited")
	}
	// Non-shared assessment keys never cross over.
	if _, ok := plan.Answers().Get("rate_psych"); ok {
		t.Error("rate_psych leaked onto the plan")
	}
}

func TestValidateSupportivePeople(t *testing.T) {
	plan := newTestActivity(t, TypeStabilityPlan)

	err := plan.Validate(answers("supportive_people", []any{
		map[string]any{"name": "", "phone": "  "},
	}))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if ve.Code != CodeNotAllBlank {
		t.Errorf("code = %s, want %s", ve.Code, CodeNotAllBlank)
	}

	// Name-only and phone-only entries are both fine.
	err = plan.Validate(answers("supportive_people", []any{
		map[string]any{"name": "Sam", "phone": ""},
		map[string]any{"name": "", "phone": "555-0100"},
	}))
	if err != nil {
		t.Errorf("valid entries rejected: %v", err)
	}
}

func TestValidateTopPicksRequireList(t *testing.T) {
	plan := newTestActivity(t, TypeStabilityPlan)
	err := plan.Validate(answers("ws_top", []any{}))
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Code != CodeListRequired {
		t.Fatalf("err = %v, want ValidationError %s", err, CodeListRequired)
	}
	if err := plan.Validate(answers("ws_top", []any{"racing thoughts"})); err != nil {
		t.Errorf("non-empty list rejected: %v", err)
	}
}

func TestStructuredValidationFollowsKeys(t *testing.T) {
	// supportive_people is shared, so it can arrive on the assessment
	// first. The shape rules must hold regardless of which variant
	// receives the value.
	assessment := newTestActivity(t, TypeSuicideAssessment)

	err := assessment.Validate(answers("supportive_people", []any{
		map[string]any{"name": "", "phone": ""},
	}))
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Code != CodeNotAllBlank {
		t.Fatalf("err = %v, want ValidationError %s", err, CodeNotAllBlank)
	}

	if err := assessment.Validate(answers("coping_top", []any{})); err == nil {
		t.Error("empty coping_top accepted by the assessment")
	}
}

func TestCurrentLockSameTimestampKeepsInsertionOrder(t *testing.T) {
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	a := newTestActivity(t, TypeSuicideAssessment)
	aa, err := Wrap(a)
	if err != nil {
		t.Fatal(err)
	}

	// Lock then unlock within the same clock tick: the later-appended
	// record decides the current state.
	aa.Locks = []LockRecord{
		{ID: uuid.New(), AssignedActivityID: a.ID(), Locked: true, CreatedAt: now},
		{ID: uuid.New(), AssignedActivityID: a.ID(), Locked: false, CreatedAt: now},
	}
	if aa.IsLocked() {
		t.Error("tie resolved to the earlier record")
	}
	cur := aa.CurrentLock()
	if cur == nil || cur.Locked {
		t.Errorf("current lock = %+v, want the unlocked record", cur)
	}
}
