package cache

import "sync"

type invalidator interface {
	invalidate(keys []string)
}

// Registry maps tags to cache keys across every loader that shares it.
// Invalidating a tag invalidates the key of the same name and every key
// registered under it.
type Registry struct {
	mu      sync.Mutex
	tags    map[string]map[string]struct{}
	members []invalidator
}

func NewRegistry() *Registry {
	return &Registry{tags: make(map[string]map[string]struct{})}
}

func (r *Registry) join(m invalidator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = append(r.members, m)
}

// Tag records that key depends on each of tags.
func (r *Registry) Tag(key string, tags ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tags {
		set, ok := r.tags[t]
		if !ok {
			set = make(map[string]struct{})
			r.tags[t] = set
		}
		set[key] = struct{}{}
	}
}

// Invalidate marks every key named by or tagged with tags as invalid in all
// member loaders and returns the keys it touched.
func (r *Registry) Invalidate(tags ...string) []string {
	r.mu.Lock()
	seen := make(map[string]struct{})
	keys := make([]string, 0, len(tags))
	add := func(k string) {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	for _, t := range tags {
		add(t)
		for k := range r.tags[t] {
			add(k)
		}
		delete(r.tags, t)
	}
	members := append([]invalidator(nil), r.members...)
	r.mu.Unlock()

	for _, m := range members {
		m.invalidate(keys)
	}
	return keys
}
