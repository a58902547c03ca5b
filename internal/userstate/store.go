// Package userstate persists the durable funnel state of each candidate.
package userstate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/metalagman/coopfunnel/internal/funnel"
)

// KeyPrefix namespaces the per-user records.
const KeyPrefix = "coop_agent:userstate:"

// Store loads and saves durable state keyed by user id.
//
// Load never fails: a missing, expired or unreadable record yields an empty state.
// Save reports every failure to the caller.
type Store interface {
	Load(ctx context.Context, userID string) funnel.State
	Save(ctx context.Context, userID string, st funnel.State) error
}

// Key returns the storage key for a user.
func Key(userID string) string {
	return KeyPrefix + userID
}

func encode(st funnel.State) ([]byte, error) {
	raw, err := json.Marshal(st.Map())
	if err != nil {
		return nil, fmt.Errorf("encode user state: %w", err)
	}
	return raw, nil
}

// decode keeps only the durable namespace of a stored payload.
func decode(raw []byte) (funnel.State, error) {
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return funnel.State{}, fmt.Errorf("decode user state: %w", err)
	}
	st, _ := funnel.Split(values)
	return st, nil
}
