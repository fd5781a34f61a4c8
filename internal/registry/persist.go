// Persistence strategies for the registry snapshot.
//
// Two implementations exist and both must keep working against the same
// database: the blob strategy serializes the whole user map into a single
// key/value entry, the table strategy normalizes it into one row per user.
// The active strategy is chosen once at startup from configuration.
package registry

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tbourn/go-js8call-bridge/internal/store"
)

// usersKey is the well-known key/value slot holding the serialized user map.
const usersKey = "users"

// State is the persisted shape of one user's subscriptions.
type State struct {
	Groups      []string `json:"groups"`
	MutedGroups []string `json:"muted_groups"`
}

// UserStore persists the full registry snapshot. Save always writes the
// complete state; there are no delta writes.
type UserStore interface {
	Load() (map[string]State, error)
	Save(map[string]State) error
}

// NewUserStore selects a persistence strategy by name ("blob" or "table").
func NewUserStore(strategy string, s *store.Store) (UserStore, error) {
	switch strategy {
	case "blob":
		return &BlobUserStore{Store: s}, nil
	case "table":
		return &TableUserStore{Store: s}, nil
	default:
		return nil, fmt.Errorf("unknown user store strategy %q", strategy)
	}
}

// BlobUserStore keeps the whole user map as one JSON blob in the key/value
// table.
type BlobUserStore struct {
	Store *store.Store
}

// Load deserializes the blob. An absent blob is an empty registry.
func (b *BlobUserStore) Load() (map[string]State, error) {
	raw := b.Store.Get(usersKey, "")
	if raw == "" {
		return map[string]State{}, nil
	}
	out := map[string]State{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode users blob: %w", err)
	}
	return out, nil
}

// Save overwrites the blob with the full snapshot.
func (b *BlobUserStore) Save(users map[string]State) error {
	raw, err := json.Marshal(normalize(users))
	if err != nil {
		return fmt.Errorf("encode users blob: %w", err)
	}
	return b.Store.Set(usersKey, string(raw))
}

// TableUserStore keeps one users-table row per user, with the group sets
// JSON-encoded per column.
type TableUserStore struct {
	Store *store.Store
}

// Load rebuilds the map from the users table.
func (t *TableUserStore) Load() (map[string]State, error) {
	rows, err := t.Store.Users()
	if err != nil {
		return nil, err
	}
	out := make(map[string]State, len(rows))
	for _, r := range rows {
		var st State
		if err := json.Unmarshal([]byte(r.Groups), &st.Groups); err != nil {
			return nil, fmt.Errorf("decode groups for %s: %w", r.UserHash, err)
		}
		if err := json.Unmarshal([]byte(r.MutedGroups), &st.MutedGroups); err != nil {
			return nil, fmt.Errorf("decode muted groups for %s: %w", r.UserHash, err)
		}
		out[r.UserHash] = st
	}
	return out, nil
}

// Save upserts a row per user and removes rows for users no longer present.
func (t *TableUserStore) Save(users map[string]State) error {
	users = normalize(users)

	existing, err := t.Store.Users()
	if err != nil {
		return err
	}
	for _, r := range existing {
		if _, ok := users[r.UserHash]; !ok {
			if err := t.Store.RemoveUser(r.UserHash); err != nil {
				return err
			}
		}
	}

	for hash, st := range users {
		groups, err := json.Marshal(st.Groups)
		if err != nil {
			return err
		}
		muted, err := json.Marshal(st.MutedGroups)
		if err != nil {
			return err
		}
		if err := t.Store.SaveUser(hash, string(groups), string(muted)); err != nil {
			return err
		}
	}
	return nil
}

// normalize sorts group slices and replaces nils with empty slices so that a
// persist/reload round-trip is byte-stable.
func normalize(users map[string]State) map[string]State {
	out := make(map[string]State, len(users))
	for hash, st := range users {
		g := append([]string(nil), st.Groups...)
		m := append([]string(nil), st.MutedGroups...)
		if g == nil {
			g = []string{}
		}
		if m == nil {
			m = []string{}
		}
		sort.Strings(g)
		sort.Strings(m)
		out[hash] = State{Groups: g, MutedGroups: m}
	}
	return out
}
