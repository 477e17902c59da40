// Package section derives the interview's navigable section list from the
// activities assigned to an encounter and decides where the shared section
// pointer moves after each save.
package section

import (
	"github.com/soteria/soteria/internal/domain/activity"
)

// Section is one navigable interview step with the answer keys it collects.
type Section struct {
	UID          string        `json:"uid"`
	ActivityType activity.Type `json:"activity_type"`
	AnswerKeys   []string      `json:"answer_keys"`
}

// displayOrder is the order activity sections appear in the interview.
// Routing precedence for ambiguous answer keys is a separate concern; this
// order is purely positional.
var displayOrder = []activity.Type{
	activity.TypeIntro,
	activity.TypeSuicideAssessment,
	activity.TypeStabilityPlan,
	activity.TypeLethalMeans,
	activity.TypeOutro,
	activity.TypeComfortAndSkills,
}

// Catalog is the ordered section list for one encounter, built from the
// assigned activity types. Section UIDs repeat across activity schemas for
// mirrored content; the first occurrence in display order wins and later
// duplicates are dropped, so every UID resolves to exactly one position.
type Catalog struct {
	sections []Section
	position map[string]int
	keyToUID map[string]string
}

// BuildCatalog assembles the catalog for the given assigned types.
// Unassigned types contribute nothing; assignment order is irrelevant.
func BuildCatalog(assigned []activity.Type) *Catalog {
	present := make(map[activity.Type]bool, len(assigned))
	for _, t := range assigned {
		present[t] = true
	}

	c := &Catalog{
		position: make(map[string]int),
		keyToUID: make(map[string]string),
	}
	for _, t := range displayOrder {
		if !present[t] {
			continue
		}
		schema := activity.SchemaFor(t)
		if schema == nil {
			continue
		}
		for _, q := range schema.Sections {
			if _, dup := c.position[q.SectionUID]; dup {
				continue
			}
			c.position[q.SectionUID] = len(c.sections)
			c.sections = append(c.sections, Section{
				UID:          q.SectionUID,
				ActivityType: t,
				AnswerKeys:   q.AnswerKeys,
			})
			for _, k := range q.AnswerKeys {
				if _, dup := c.keyToUID[k]; !dup {
					c.keyToUID[k] = q.SectionUID
				}
			}
		}
	}
	return c
}

// Sections returns the ordered section list.
func (c *Catalog) Sections() []Section {
	out := make([]Section, len(c.sections))
	copy(out, c.sections)
	return out
}

// Position returns the index of a section UID in the list.
func (c *Catalog) Position(uid string) (int, bool) {
	p, ok := c.position[uid]
	return p, ok
}

// SectionForKey maps an answer key to its owning section. Unknown keys
// resolve to nothing, which callers treat as "pointer unchanged".
func (c *Catalog) SectionForKey(key string) (Section, bool) {
	uid, ok := c.keyToUID[key]
	if !ok {
		return Section{}, false
	}
	return c.sections[c.position[uid]], true
}

// Range returns the half-open index range [first, last+1) of the sections an
// activity type contributes, or ok=false when it contributes none.
func (c *Catalog) Range(t activity.Type) (first, end int, ok bool) {
	first = -1
	for i, s := range c.sections {
		if s.ActivityType != t {
			continue
		}
		if first < 0 {
			first = i
		}
		end = i + 1
	}
	return first, end, first >= 0
}
