package activity

import "strings"

// validateCommon rejects a save against a malformed record and enforces
// the structured answer shapes. The structured checks hang off the keys,
// not the activity type: shared plan fields are accepted by the assessment
// too, and a malformed value must be rejected before it can mirror across.
func validateCommon(r *Record, in *AnswerSet) error {
	if !r.Type.Valid() {
		return &InvalidStateError{Reason: "unknown activity type " + string(r.Type)}
	}
	return validateStructured(in)
}

// listRequiredKeys must arrive as non-empty lists when present.
var listRequiredKeys = map[string]bool{
	"ws_top":     true,
	"coping_top": true,
}

// validateStructured enforces the list-shaped answers: supportive_people
// entries may omit either name or phone but not both, and top-pick lists
// must be non-empty lists.
func validateStructured(in *AnswerSet) error {
	if in == nil {
		return nil
	}
	if v, ok := in.Get("supportive_people"); ok {
		if err := validateSupportivePeople(v); err != nil {
			return err
		}
	}
	for k := range listRequiredKeys {
		v, ok := in.Get(k)
		if !ok {
			continue
		}
		list, isList := v.([]any)
		if !isList || len(list) == 0 {
			return &ValidationError{Field: k, Code: CodeListRequired}
		}
	}
	return nil
}

func validateSupportivePeople(v any) error {
	list, ok := v.([]any)
	if !ok {
		return &ValidationError{Field: "supportive_people", Code: CodeListRequired}
	}
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return &ValidationError{Field: "supportive_people", Code: CodeNotAllBlank}
		}
		if blankString(entry["name"]) && blankString(entry["phone"]) {
			return &ValidationError{Field: "supportive_people", Code: CodeNotAllBlank}
		}
	}
	return nil
}

func blankString(v any) bool {
	s, ok := v.(string)
	if !ok {
		return v == nil
	}
	return strings.TrimSpace(s) == ""
}
