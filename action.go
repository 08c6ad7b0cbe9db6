package statecore

import (
	"strings"

	"github.com/google/uuid"
)

// Action describes an intended state transition.
//
// Type is the discriminant and must be non-empty. Payload carries
// free-form data; reducers read it, nothing in the store inspects it.
type Action struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// NewAction creates an Action with the given type and payload.
func NewAction(actionType string, payload map[string]any) Action {
	return Action{Type: actionType, Payload: payload}
}

// Get returns the payload value stored under key.
func (a Action) Get(key string) (any, bool) {
	v, ok := a.Payload[key]
	return v, ok
}

// GetInt returns the integer payload value under key. Any signed or unsigned
// integer kind is accepted, since payloads decoded from the action log
// carry int64 where the original dispatch carried int.
func (a Action) GetInt(key string) (int, bool) {
	switch n := a.Payload[key].(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	}
	return 0, false
}

// GetString returns the string payload value under key.
func (a Action) GetString(key string) (string, bool) {
	s, ok := a.Payload[key].(string)
	return s, ok
}

// reservedPrefix is the namespace for action types private to the store.
// Reducers must never match these types explicitly.
const reservedPrefix = "@@statecore/"

// actionTypeInit is generated once per process so that no application can
// guess and special-case it.
var actionTypeInit = reservedPrefix + "INIT." + randomSuffix()

// InitAction returns the private action dispatched when a store is created
// and when its reducer is replaced.
//
// It is exported for tests and tooling that need to drive a reducer through
// initialization; reducers must not branch on its type.
func InitAction() Action {
	return Action{Type: actionTypeInit}
}

// IsReservedType reports whether actionType belongs to the store's private namespace.
func IsReservedType(actionType string) bool {
	return strings.HasPrefix(actionType, reservedPrefix)
}

// TypeGenerator produces action-type suffixes for Combine's unknown-action probe.
// Implemented by UUIDGenerator (production) and testutil.FixedTypeGenerator (tests).
type TypeGenerator interface {
	Generate() string
}

// UUIDGenerator generates random UUIDv4 strings.
//
// Probe types must not be guessable, so these are random version 4 UUIDs,
// not time-ordered version 7.
//
// Thread-safety: UUIDGenerator is stateless and safe for concurrent use.
type UUIDGenerator struct{}

// Generate returns a new random UUID string.
func (UUIDGenerator) Generate() string {
	return randomSuffix()
}

func randomSuffix() string {
	return uuid.NewString()
}

// probePrefix starts Combine's unknown-action probe types. It sits outside
// the reserved namespace, so a reducer that handles every reserved type
// still has to fall through to its default branch for a probe.
const probePrefix = "PROBE_UNKNOWN_ACTION."

func probeActionType(gen TypeGenerator) string {
	return probePrefix + gen.Generate()
}

// asAction checks that v is an Action value with a discriminant.
func asAction(v any) (Action, error) {
	action, ok := v.(Action)
	if !ok {
		return Action{}, newError(ErrCodeInvalidAction,
			"actions must be statecore.Action values, got %T; use a middleware to dispatch other values", v)
	}
	if action.Type == "" {
		return Action{}, newError(ErrCodeMissingType,
			"actions may not have an empty Type; have you misspelled a constant?")
	}
	return action, nil
}
