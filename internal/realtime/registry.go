package realtime

import (
	"sync"
)

// Conn is one live client connection. Push must not block for long; a
// connection that cannot take the event returns an error and the event is
// dropped for it.
type Conn interface {
	ID() string
	Push(Event) error
}

// Registry maps users to their live connections (presence).
type Registry interface {
	// Join binds conn to userID. A connection belongs to at most one user;
	// joining again under another id moves it.
	Join(userID uint64, conn Conn)
	// Leave removes conn from whichever user holds it.
	Leave(conn Conn)
	// ConnectionsFor returns a snapshot of userID's connections.
	ConnectionsFor(userID uint64) []Conn
}

// MemoryRegistry is the process-local Registry.
type MemoryRegistry struct {
	mu     sync.RWMutex
	byUser map[uint64]map[string]Conn
	owner  map[string]uint64
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		byUser: make(map[uint64]map[string]Conn),
		owner:  make(map[string]uint64),
	}
}

func (r *MemoryRegistry) Join(userID uint64, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.ID()
	if prev, ok := r.owner[id]; ok && prev != userID {
		r.removeLocked(prev, id)
	}

	set, ok := r.byUser[userID]
	if !ok {
		set = make(map[string]Conn)
		r.byUser[userID] = set
	}
	set[id] = conn
	r.owner[id] = userID
}

func (r *MemoryRegistry) Leave(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.ID()
	userID, ok := r.owner[id]
	if !ok {
		return
	}
	r.removeLocked(userID, id)
}

// removeLocked drops the handle and the user entry once it is empty.
func (r *MemoryRegistry) removeLocked(userID uint64, connID string) {
	delete(r.owner, connID)
	set := r.byUser[userID]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.byUser, userID)
	}
}

func (r *MemoryRegistry) ConnectionsFor(userID uint64) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byUser[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// Online reports whether userID has at least one connection.
func (r *MemoryRegistry) Online(userID uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// Users returns how many users are present.
func (r *MemoryRegistry) Users() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
