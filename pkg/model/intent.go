package model

import "strings"

// Intent is the purpose assigned to an incoming query
type Intent string

const (
	IntentPersonal    Intent = "personal"
	IntentWebSearch   Intent = "web_search"
	IntentLocation    Intent = "location"
	IntentRecall      Intent = "recall"
	IntentSelfReflect Intent = "self_reflect"
	IntentGeneral     Intent = "general"
)

// Intents lists every intent label in a stable order
func Intents() []Intent {
	return []Intent{
		IntentPersonal,
		IntentWebSearch,
		IntentLocation,
		IntentRecall,
		IntentSelfReflect,
		IntentGeneral,
	}
}

// LookupIntent resolves a classifier label. ok is false when the label is not
// one of the known intents.
func LookupIntent(label string) (intent Intent, ok bool) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	normalized = strings.Trim(normalized, "\"'`.,:;!?* ")
	normalized = strings.ReplaceAll(normalized, "-", "_")

	for _, intent := range Intents() {
		if normalized == string(intent) {
			return intent, true
		}
	}
	return IntentGeneral, false
}

// ParseIntent converts a classifier label into an Intent. Unrecognized labels
// become IntentGeneral.
func ParseIntent(label string) Intent {
	intent, _ := LookupIntent(label)
	return intent
}
