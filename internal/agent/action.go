package agent

import (
	"encoding/json"
	"strings"
)

// ActionKind is the closed set of live-call directives the agent may emit.
// Adding a kind means extending this set and the router switch together.
type ActionKind string

const (
	ActionTransfer     ActionKind = "transfer"
	ActionSchedule     ActionKind = "schedule"
	ActionLookupStatus ActionKind = "lookup_status"
	ActionEndCall      ActionKind = "end_call"
	ActionVoicemail    ActionKind = "voicemail"
)

// ParseActionKind validates a wire string against the closed set.
func ParseActionKind(s string) (ActionKind, bool) {
	switch ActionKind(s) {
	case ActionTransfer, ActionSchedule, ActionLookupStatus, ActionEndCall, ActionVoicemail:
		return ActionKind(s), true
	default:
		return "", false
	}
}

// AgentAction is a structured directive parsed from agent output.
// Consumed exactly once by the action router.
type AgentAction struct {
	Kind   ActionKind
	Params map[string]string
}

// Param returns a named parameter or a fallback.
func (a AgentAction) Param(key, fallback string) string {
	if v, ok := a.Params[key]; ok && v != "" {
		return v
	}
	return fallback
}

type wireAction struct {
	Action string            `json:"action"`
	Params map[string]string `json:"params"`
}

// ExtractAction scans agent response text for an embedded JSON object with an
// "action" key. Malformed or absent JSON yields no action and no error: the
// remote side speaks free text, and this is a best-effort compatibility shim
// until the transport grows a structured tool-calling contract.
func ExtractAction(text string) (AgentAction, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		var w wireAction
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		if err := dec.Decode(&w); err != nil {
			continue
		}
		kind, ok := ParseActionKind(w.Action)
		if !ok {
			continue
		}
		if w.Params == nil {
			w.Params = map[string]string{}
		}
		return AgentAction{Kind: kind, Params: w.Params}, true
	}
	return AgentAction{}, false
}
