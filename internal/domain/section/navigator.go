package section

import (
	"github.com/soteria/soteria/internal/domain/activity"
)

// Navigator moves the encounter's shared section pointer. The pointer is a
// resume point for the patient device, so ordinary saves only ever move it
// forward; jumping backward happens only through assignment of earlier
// content or an explicit lock.
type Navigator struct {
	catalog *Catalog
}

func NewNavigator(c *Catalog) *Navigator {
	return &Navigator{catalog: c}
}

// Advance returns the pointer after a save whose last accepted key was
// lastSavedKey. The target is the section that owns the key; the pointer
// moves only when the target sits at or past the current position. An
// unknown key, or a current pointer past the target, leaves the pointer
// where it was. An empty current pointer adopts the target unconditionally.
func (n *Navigator) Advance(currentUID, lastSavedKey string) string {
	target, ok := n.catalog.SectionForKey(lastSavedKey)
	if !ok {
		return currentUID
	}
	if currentUID == "" {
		return target.UID
	}
	cur, ok := n.catalog.Position(currentUID)
	if !ok {
		// Stale pointer from a section no longer in the catalog.
		return target.UID
	}
	tgt, _ := n.catalog.Position(target.UID)
	if tgt >= cur {
		return target.UID
	}
	return currentUID
}

// AfterAssign recomputes the pointer after new activities join the
// encounter. When the new content inserts sections ahead of the current
// position the pointer rewinds to the first unanswered section, so the
// patient is not routed past material they have never seen. Otherwise the
// pointer holds.
func (n *Navigator) AfterAssign(currentUID string, added []activity.Type, answered func(key string) bool) string {
	if currentUID == "" {
		return currentUID
	}
	cur, ok := n.catalog.Position(currentUID)
	if !ok {
		return n.FirstUnanswered(answered)
	}
	for _, t := range added {
		first, _, ok := n.catalog.Range(t)
		if ok && first < cur {
			return n.FirstUnanswered(answered)
		}
	}
	return currentUID
}

// LockTarget returns where the pointer lands when the given activity is
// locked: the first section contributed by a later activity. Locking the
// last section-bearing activity returns "", which sends the device to its
// default resting screen.
func (n *Navigator) LockTarget(locked activity.Type) string {
	_, end, ok := n.catalog.Range(locked)
	if !ok {
		return ""
	}
	if end < len(n.catalog.sections) {
		return n.catalog.sections[end].UID
	}
	return ""
}

// FirstUnanswered returns the first section with no answered key, or ""
// when every section has at least one answer.
func (n *Navigator) FirstUnanswered(answered func(key string) bool) string {
	for _, s := range n.catalog.sections {
		any := false
		for _, k := range s.AnswerKeys {
			if answered(k) {
				any = true
				break
			}
		}
		if !any {
			return s.UID
		}
	}
	return ""
}
