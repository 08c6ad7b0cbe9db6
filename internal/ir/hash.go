package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainAction = "statecore/action/v1"
	DomainState  = "statecore/state/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ActionID computes the content-addressed ID of a logged action.
// The ID is stable across restarts and replays given the same inputs.
func ActionID(session string, seq int64, actionType string, payload map[string]any) (string, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	canonical, err := MarshalCanonical(map[string]any{
		"session": session,
		"seq":     seq,
		"type":    actionType,
		"payload": payload,
	})
	if err != nil {
		return "", fmt.Errorf("ActionID: %w", err)
	}
	return hashWithDomain(DomainAction, canonical), nil
}

// StateHash computes a digest of a state value. Two states with the same
// canonical encoding have the same hash.
func StateHash(state any) (string, error) {
	canonical, err := MarshalCanonical(state)
	if err != nil {
		return "", fmt.Errorf("StateHash: %w", err)
	}
	return hashWithDomain(DomainState, canonical), nil
}
