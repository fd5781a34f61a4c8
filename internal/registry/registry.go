// Package registry owns the authoritative in-memory view of the
// distribution list: which users are opted in, which groups they subscribe
// to, and which they have muted. Every mutation pushes a full snapshot to
// durable storage through a UserStore; the registry is the write-through
// cache, storage is the backing.
//
// Mutators return the user-visible reply text. The exact wording is a
// contract with existing users of the bridge, so it is kept verbatim.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// MuteAll is the sentinel group name (case-insensitive) meaning every group
// in both catalogs.
const MuteAll = "ALL"

// Registry tracks presence, subscriptions, and mutes. All methods are safe
// for concurrent use: command handlers mutate while the fan-out dispatcher
// reads recipients.
type Registry struct {
	mu     sync.RWMutex
	distro map[string]struct{}
	groups map[string]map[string]struct{}
	muted  map[string]map[string]struct{}

	// Catalogs, in configuration order.
	ordinary []string
	urgent   []string

	defaults []string
	store    UserStore
}

// New builds an empty registry over the given catalogs and persistence
// strategy. Call Load to rebuild state from storage.
func New(ordinary, urgent, defaults []string, store UserStore) *Registry {
	return &Registry{
		distro:   map[string]struct{}{},
		groups:   map[string]map[string]struct{}{},
		muted:    map[string]map[string]struct{}{},
		ordinary: append([]string(nil), ordinary...),
		urgent:   append([]string(nil), urgent...),
		defaults: append([]string(nil), defaults...),
		store:    store,
	}
}

// Load rebuilds the in-memory view from the persisted snapshot. Called once
// at startup before any mutation.
func (r *Registry) Load() error {
	users, err := r.store.Load()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.distro = make(map[string]struct{}, len(users))
	r.groups = make(map[string]map[string]struct{}, len(users))
	r.muted = make(map[string]map[string]struct{}, len(users))
	for hash, st := range users {
		r.distro[hash] = struct{}{}
		r.groups[hash] = toSet(st.Groups)
		r.muted[hash] = toSet(st.MutedGroups)
	}
	log.Info().Int("users", len(r.distro)).Msg("registry: loaded users from storage")
	return nil
}

// Join adds user to the distribution list, seeding the configured default
// groups. Joining twice is a no-op with an "already joined" notice.
func (r *Registry) Join(user string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.distro[user]; ok {
		return "You are already in the JS8Call message group.", nil
	}

	r.distro[user] = struct{}{}
	r.groups[user] = toSet(r.defaults)
	r.muted[user] = map[string]struct{}{}
	if err := r.persistLocked(); err != nil {
		return "", err
	}

	msg := "You have been added to the JS8Call message group"
	if len(r.defaults) > 0 {
		msg += " and the following default groups: " + strings.Join(r.defaults, ", ")
	}
	msg += ". You will receive messages when they are available."
	log.Info().Str("user", user).Msg("registry: added to distribution list")
	return msg, nil
}

// Leave removes user from presence, subscriptions, and mutes at once.
func (r *Registry) Leave(user string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.distro[user]; !ok {
		return "You are not in the JS8Call message group.", nil
	}

	delete(r.distro, user)
	delete(r.groups, user)
	delete(r.muted, user)
	if err := r.persistLocked(); err != nil {
		return "", err
	}
	log.Info().Str("user", user).Msg("registry: removed from distribution list")
	return "You have been removed from the JS8Call message group and all groups.", nil
}

// AddToGroups subscribes user to the requested groups. Names not found in
// either catalog are silently ignored, but the confirmation echoes the full
// requested list as given.
func (r *Registry) AddToGroups(user string, requested []string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.distro[user]; !ok {
		return "You need to join the JS8Call message group first. Use /add command.", nil
	}

	for _, g := range requested {
		if r.inCatalogLocked(g) {
			r.groups[user][g] = struct{}{}
		}
	}
	if err := r.persistLocked(); err != nil {
		return "", err
	}
	log.Info().Str("user", user).Strs("groups", requested).Msg("registry: added to groups")
	return "You have been added to the following groups: " + strings.Join(requested, ", "), nil
}

// RemoveFromGroup unsubscribes user from one group they are subscribed to.
func (r *Registry) RemoveFromGroup(user, group string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.distro[user]; ok {
		if _, subscribed := r.groups[user][group]; subscribed {
			delete(r.groups[user], group)
			if err := r.persistLocked(); err != nil {
				return "", err
			}
			log.Info().Str("user", user).Str("group", group).Msg("registry: removed from group")
			return "You have been removed from the group: " + group, nil
		}
	}
	return "You are not in the group: " + group, nil
}

// MuteGroups mutes the requested groups, or every catalog group when the
// ALL sentinel is present (case-insensitive).
func (r *Registry) MuteGroups(user string, requested []string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.distro[user]; !ok {
		return "You need to join the JS8Call message group first. Use /add command.", nil
	}

	reply := "No valid groups to mute."
	if containsAll(requested) {
		for _, g := range r.ordinary {
			r.muted[user][g] = struct{}{}
		}
		for _, g := range r.urgent {
			r.muted[user][g] = struct{}{}
		}
		reply = "You have muted all available groups."
		log.Info().Str("user", user).Msg("registry: muted all groups")
	} else {
		var muted []string
		for _, g := range requested {
			if r.inCatalogLocked(g) {
				r.muted[user][g] = struct{}{}
				muted = append(muted, g)
			}
		}
		if len(muted) > 0 {
			reply = "You have muted the following groups: " + strings.Join(muted, ", ")
			log.Info().Str("user", user).Strs("groups", muted).Msg("registry: muted groups")
		}
	}
	if err := r.persistLocked(); err != nil {
		return "", err
	}
	return reply, nil
}

// UnmuteGroups clears mutes for the requested groups, or all mutes when the
// ALL sentinel is present.
func (r *Registry) UnmuteGroups(user string, requested []string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.distro[user]; !ok {
		return "You need to join the JS8Call message group first. Use /add command.", nil
	}

	reply := "No valid groups to unmute or they were not muted."
	if containsAll(requested) {
		r.muted[user] = map[string]struct{}{}
		reply = "You have unmuted all groups."
		log.Info().Str("user", user).Msg("registry: unmuted all groups")
	} else {
		var unmuted []string
		for _, g := range requested {
			if _, ok := r.muted[user][g]; ok {
				delete(r.muted[user], g)
				unmuted = append(unmuted, g)
			}
		}
		if len(unmuted) > 0 {
			reply = "You have unmuted the following groups: " + strings.Join(unmuted, ", ")
			log.Info().Str("user", user).Strs("groups", unmuted).Msg("registry: unmuted groups")
		}
	}
	if err := r.persistLocked(); err != nil {
		return "", err
	}
	return reply, nil
}

// ListGroups renders every catalog group with the user's subscription and
// mute status, in catalog order (ordinary first, then urgent).
func (r *Registry) ListGroups(user string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	b.WriteString("Available groups:\n")
	for _, g := range append(append([]string(nil), r.ordinary...), r.urgent...) {
		status := "[Not subscribed]"
		if _, ok := r.groups[user][g]; ok {
			status = "[Subscribed]"
		}
		if _, ok := r.muted[user][g]; ok {
			status += " [Muted]"
		}
		fmt.Fprintf(&b, "%s %s\n", g, status)
	}
	return b.String()
}

// Recipients returns the users eligible to receive a message. An empty
// group means a broadcast to the whole distribution list; otherwise a user
// must subscribe to the group and not mute it. The result is sorted so
// fan-out order is deterministic.
func (r *Registry) Recipients(group string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.distro))
	for user := range r.distro {
		if group != "" {
			if _, subscribed := r.groups[user][group]; !subscribed {
				continue
			}
			if _, mutedGroup := r.muted[user][group]; mutedGroup {
				continue
			}
		}
		out = append(out, user)
	}
	sort.Strings(out)
	return out
}

// Has reports whether user is on the distribution list.
func (r *Registry) Has(user string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.distro[user]
	return ok
}

// Count returns the distribution-list size.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.distro)
}

// Snapshot returns a deep copy of the persisted shape of the registry.
func (r *Registry) Snapshot() map[string]State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// Catalogs returns the configured ordinary and urgent group lists.
func (r *Registry) Catalogs() (ordinary, urgent []string) {
	return append([]string(nil), r.ordinary...), append([]string(nil), r.urgent...)
}

// persistLocked pushes a full snapshot through the UserStore. Callers hold
// the write lock. Failures propagate so the triggering command fails.
func (r *Registry) persistLocked() error {
	if err := r.store.Save(r.snapshotLocked()); err != nil {
		log.Error().Err(err).Msg("registry: persist snapshot")
		return err
	}
	return nil
}

func (r *Registry) snapshotLocked() map[string]State {
	out := make(map[string]State, len(r.distro))
	for user := range r.distro {
		out[user] = State{
			Groups:      fromSet(r.groups[user]),
			MutedGroups: fromSet(r.muted[user]),
		}
	}
	return out
}

// inCatalogLocked reports whether name exists in either catalog.
func (r *Registry) inCatalogLocked(name string) bool {
	for _, g := range r.ordinary {
		if g == name {
			return true
		}
	}
	for _, g := range r.urgent {
		if g == name {
			return true
		}
	}
	return false
}

func containsAll(groups []string) bool {
	for _, g := range groups {
		if strings.EqualFold(g, MuteAll) {
			return true
		}
	}
	return false
}

func toSet(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

func fromSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
