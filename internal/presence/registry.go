// Package presence tracks which clients are connected so the server can
// broadcast a live online count.
package presence

// Registry is a membership set. It is not safe for concurrent use; the
// signaling hub owns it from a single goroutine.
type Registry struct {
	members   map[string]struct{}
	broadcast func(count int)
}

// NewRegistry creates an empty registry. broadcast, if non-nil, is called
// with the new count after every membership change.
func NewRegistry(broadcast func(count int)) *Registry {
	return &Registry{
		members:   make(map[string]struct{}),
		broadcast: broadcast,
	}
}

// Add records id as connected and returns the count. Adding an id that is
// already present is not a change and does not broadcast.
func (r *Registry) Add(id string) int {
	if _, ok := r.members[id]; ok {
		return len(r.members)
	}
	r.members[id] = struct{}{}
	r.notify()
	return len(r.members)
}

// Remove forgets id and returns the count. Removing an absent id does not
// broadcast.
func (r *Registry) Remove(id string) int {
	if _, ok := r.members[id]; !ok {
		return len(r.members)
	}
	delete(r.members, id)
	r.notify()
	return len(r.members)
}

// Count returns the number of connected clients.
func (r *Registry) Count() int { return len(r.members) }

func (r *Registry) notify() {
	if r.broadcast != nil {
		r.broadcast(len(r.members))
	}
}
