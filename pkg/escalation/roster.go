package escalation

import (
	"context"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"kinship-hq/sentinel/pkg/store"
)

const rosterKey = "reviewers"

// Roster resolves the users who receive reviewer notifications. Results are
// cached for ttl; a ttl <= 0 disables caching.
type Roster struct {
	store store.Store
	roles []string
	ttl   time.Duration
	cache *gocache.Cache
}

// NewRoster creates a roster over the holders of roles.
func NewRoster(st store.Store, roles []string, ttl time.Duration) *Roster {
	r := &Roster{
		store: st,
		roles: append([]string(nil), roles...),
		ttl:   ttl,
	}
	if ttl > 0 {
		r.cache = gocache.New(ttl, 2*ttl)
	}
	return r
}

// Reviewers returns the distinct users holding any reviewer role, sorted.
// A failure to list any single role fails the whole lookup.
func (r *Roster) Reviewers(ctx context.Context) ([]string, error) {
	if r.cache != nil {
		if v, ok := r.cache.Get(rosterKey); ok {
			return append([]string(nil), v.([]string)...), nil
		}
	}

	seen := make(map[string]struct{})
	ids := []string{}
	for _, role := range r.roles {
		users, err := r.store.ListUsersWithRole(ctx, role)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			ids = append(ids, u)
		}
	}
	sort.Strings(ids)

	if r.cache != nil {
		r.cache.SetDefault(rosterKey, append([]string(nil), ids...))
	}
	return ids, nil
}

// Invalidate drops the cached roster. Role changes call this.
func (r *Roster) Invalidate() {
	if r.cache != nil {
		r.cache.Delete(rosterKey)
	}
}

// Roles returns the reviewer roles.
func (r *Roster) Roles() []string {
	return append([]string(nil), r.roles...)
}
