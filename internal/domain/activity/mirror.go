package activity

// SharedSubset extracts the keys from in that mirror between the suicide
// assessment and the stability plan, preserving save order.
func SharedSubset(in *AnswerSet) *AnswerSet {
	if in == nil {
		return NewAnswerSet()
	}
	return in.Filter(IsShared)
}

// InheritShared copies shared answers already stored on src into dst for
// any shared key dst has not answered yet. Used when an assessment or plan
// is assigned after its counterpart has collected shared data. Returns
// whether dst changed.
func InheritShared(src, dst Activity) bool {
	if src == nil || dst == nil {
		return false
	}
	from := SharedSubset(src.Answers())
	stored := dst.Answers()
	changed := false
	for _, k := range from.Keys() {
		if _, ok := stored.Get(k); ok {
			continue
		}
		v, _ := from.Get(k)
		if stored.Set(k, v) {
			changed = true
		}
	}
	if changed {
		dst.Snapshot().recomputeStatus(false)
	}
	return changed
}
