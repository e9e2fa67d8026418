// Package subscription holds the registry mapping clients to their declared
// interests and back, and the payload scanner used to resolve object-class
// events to recipients.
package subscription

import (
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ivankia/aeternal/internal/logging"
	"github.com/ivankia/aeternal/pkg/domain"
)

// Registry is the single shared aggregate of the distribution core. It owns
// one subscriber set per vanilla category plus the bidirectional
// client/object index, all guarded by one lock so that recipient resolution
// observes a consistent snapshot.
//
// Invariant: a (client, object) pair is present in the forward index iff it
// is present in the reverse index. Both are mutated together, never apart.
type Registry struct {
	mu      sync.RWMutex
	vanilla map[domain.Category]mapset.Set[domain.ClientID]
	forward map[domain.ClientID]mapset.Set[string]
	reverse map[string]mapset.Set[domain.ClientID]
	clients map[domain.ClientID]domain.Client
	logger  *logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *logging.Logger) *Registry {
	vanilla := make(map[domain.Category]mapset.Set[domain.ClientID], len(domain.VanillaCategories))
	for _, category := range domain.VanillaCategories {
		vanilla[category] = mapset.NewThreadUnsafeSet[domain.ClientID]()
	}

	return &Registry{
		vanilla: vanilla,
		forward: make(map[domain.ClientID]mapset.Set[string]),
		reverse: make(map[string]mapset.Set[domain.ClientID]),
		clients: make(map[domain.ClientID]domain.Client),
		logger:  logger,
	}
}

// Attach records the client handle so resolved recipients can be delivered
// to. Called once when a connection opens.
func (r *Registry) Attach(client domain.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[client.ID()] = client
}

// Subscribe idempotently adds the client to a vanilla category's set.
// Non-vanilla categories are a no-op.
func (r *Registry) Subscribe(category domain.Category, id domain.ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.vanilla[category]; ok {
		set.Add(id)
	}
}

// Unsubscribe idempotently removes the client from a vanilla category's set.
func (r *Registry) Unsubscribe(category domain.Category, id domain.ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.vanilla[category]; ok {
		set.Remove(id)
	}
}

// SubscribeObject idempotently adds the (client, object) pair to both the
// forward and reverse index.
func (r *Registry) SubscribeObject(id domain.ClientID, object string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	objects, ok := r.forward[id]
	if !ok {
		objects = mapset.NewThreadUnsafeSet[string]()
		r.forward[id] = objects
	}
	objects.Add(object)

	subscribers, ok := r.reverse[object]
	if !ok {
		subscribers = mapset.NewThreadUnsafeSet[domain.ClientID]()
		r.reverse[object] = subscribers
	}
	subscribers.Add(id)
}

// UnsubscribeObject idempotently removes the (client, object) pair from both
// indices. Emptied index entries are pruned.
func (r *Registry) UnsubscribeObject(id domain.ClientID, object string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeObjectPair(id, object)
}

// removeObjectPair mutates both indices together. Callers hold the lock.
func (r *Registry) removeObjectPair(id domain.ClientID, object string) {
	if objects, ok := r.forward[id]; ok {
		objects.Remove(object)
		if objects.IsEmpty() {
			delete(r.forward, id)
		}
	}

	if subscribers, ok := r.reverse[object]; ok {
		subscribers.Remove(id)
		if subscribers.IsEmpty() {
			delete(r.reverse, object)
		}
	}
}

// Subscriptions returns the client's full subscription list: vanilla
// category names in declaration order, then object identifiers sorted
// lexically. Always non-nil.
func (r *Registry) Subscriptions(id domain.ClientID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]string, 0)
	for _, category := range domain.VanillaCategories {
		if r.vanilla[category].Contains(id) {
			subs = append(subs, category.String())
		}
	}

	if objects, ok := r.forward[id]; ok {
		ids := objects.ToSlice()
		sort.Strings(ids)
		subs = append(subs, ids...)
	}

	return subs
}

// Disconnect purges every trace of the client: all four vanilla sets, the
// forward index, and each reverse index entry that referenced it. Safe to
// call any number of times, in any interleaving with other operations on the
// same client.
func (r *Registry) Disconnect(id domain.ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if objects, ok := r.forward[id]; ok {
		for _, object := range objects.ToSlice() {
			r.removeObjectPair(id, object)
		}
	}

	for _, category := range domain.VanillaCategories {
		r.vanilla[category].Remove(id)
	}

	delete(r.clients, id)

	r.logger.Debug("client disconnected from registry", "client_id", string(id))
}

// Recipients resolves the clients interested in a candidate. Vanilla
// categories resolve to a copy of their subscriber set; object candidates
// are scanned for embedded identifiers and resolved through the reverse
// index. Anything else resolves to nothing. Never blocks on I/O.
func (r *Registry) Recipients(candidate domain.Candidate) []domain.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if candidate.Category.IsVanilla() {
		return r.collect(r.vanilla[candidate.Category])
	}

	if candidate.Category != domain.CategoryObject {
		return nil
	}

	matched := mapset.NewThreadUnsafeSet[domain.ClientID]()
	for _, object := range ScanObjects(string(candidate.Payload)).ToSlice() {
		if subscribers, ok := r.reverse[object]; ok {
			matched = matched.Union(subscribers)
		}
	}

	return r.collect(matched)
}

// collect maps a set of client IDs to live client handles. Callers hold at
// least the read lock.
func (r *Registry) collect(ids mapset.Set[domain.ClientID]) []domain.Client {
	recipients := make([]domain.Client, 0, ids.Cardinality())
	for _, id := range ids.ToSlice() {
		if client, ok := r.clients[id]; ok {
			recipients = append(recipients, client)
		}
	}
	return recipients
}

// ClientCount returns the number of attached clients.
func (r *Registry) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.clients)
}
