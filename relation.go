package mman

import "container/list"

// relationConfig mirrors spec.md §4.1: a Relation is configured as
// one-to-one or many-to-one, and may or may not admit null (zero-value)
// keys or values.
type relationConfig struct {
	oneToOne   bool
	nullKeys   bool
	nullValues bool
}

// relationEntry is the payload stored at each node of the recency list.
type relationEntry[K comparable, V any] struct {
	key K
	val V
}

// relation is the general-purpose, integrity-checked, LRU-ordered
// bidirectional map backing path_index, region_index and cursor_index
// (spec.md §3, §4.1). It is deliberately generic so the same
// implementation serves all three indexes.
//
// Ordering: the list is kept in least-recently-used order, most-recently
// touched at the tail. Every successful Put and Hit moves its key to the
// tail; this ordering is the sole determinant of eviction victims
// (spec.md §5, "Ordering").
type relation[K comparable, V comparable] struct {
	cfg relationConfig

	forward map[K]*list.Element // key -> node in order
	reverse map[V]K             // only populated when cfg.oneToOne
	order   *list.List          // list of *relationEntry[K, V], LRU order

	isNullKey   func(K) bool
	isNullValue func(V) bool
}

func newRelation[K comparable, V comparable](cfg relationConfig, isNullKey func(K) bool, isNullValue func(V) bool) *relation[K, V] {
	return &relation[K, V]{
		cfg:         cfg,
		forward:     make(map[K]*list.Element),
		reverse:     make(map[V]K),
		order:       list.New(),
		isNullKey:   isNullKey,
		isNullValue: isNullValue,
	}
}

// snapshot captures enough state to revert Put/Take/Hit/Clear. Scoped
// transactions (txn below) use it to implement the "the map snapshots
// itself on entry; on failure it reverts; otherwise the snapshot is
// discarded" contract of spec.md §4.1.
type relationSnapshot[K comparable, V comparable] struct {
	forward map[K]*list.Element
	reverse map[V]K
	order   *list.List
}

func (r *relation[K, V]) snapshot() relationSnapshot[K, V] {
	fwd := make(map[K]*list.Element, len(r.forward))
	rev := make(map[V]K, len(r.reverse))
	order := list.New()
	for e := r.order.Front(); e != nil; e = e.Next() {
		entry := e.Value.(*relationEntry[K, V])
		cp := &relationEntry[K, V]{key: entry.key, val: entry.val}
		el := order.PushBack(cp)
		fwd[entry.key] = el
	}
	for k, v := range r.reverse {
		rev[k] = v
	}
	return relationSnapshot[K, V]{forward: fwd, reverse: rev, order: order}
}

func (r *relation[K, V]) restore(s relationSnapshot[K, V]) {
	r.forward = s.forward
	r.reverse = s.reverse
	r.order = s.order
}

// txn runs fn under a snapshot: if fn returns an error, the relation is
// reverted to its pre-call state before the error is returned to the
// caller, so higher-level state (e.g. the Manager's counters) remains
// coherent (spec.md §7, "IndexIntegrity errors are transactional").
func (r *relation[K, V]) txn(fn func() error) error {
	snap := r.snapshot()
	if err := fn(); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

// Put inserts k -> v. Fails if k is already present, or (when one-to-one)
// if v is already present bound to a different key. Null keys/values are
// rejected unless the corresponding flag permits them.
func (r *relation[K, V]) Put(k K, v V) error {
	if !r.cfg.nullKeys && r.isNullKey != nil && r.isNullKey(k) {
		return newError(KindIndexIntegrity, "relation: null key not permitted")
	}
	if !r.cfg.nullValues && r.isNullValue != nil && r.isNullValue(v) {
		return newError(KindIndexIntegrity, "relation: null value not permitted")
	}
	if _, ok := r.forward[k]; ok {
		return newError(KindIndexIntegrity, "relation: put of duplicate key")
	}
	if r.cfg.oneToOne {
		if _, ok := r.reverse[v]; ok {
			return newError(KindIndexIntegrity, "relation: put of duplicate value in one-to-one relation")
		}
	}
	el := r.order.PushBack(&relationEntry[K, V]{key: k, val: v})
	r.forward[k] = el
	if r.cfg.oneToOne {
		r.reverse[v] = k
	}
	return nil
}

// Take removes and returns the value bound to k. Fails if k is absent, or
// (when one-to-one) if the inverse mapping for v does not point back to
// exactly k.
func (r *relation[K, V]) Take(k K) (V, error) {
	var zero V
	el, ok := r.forward[k]
	if !ok {
		return zero, newError(KindIndexIntegrity, "relation: take of missing key")
	}
	entry := el.Value.(*relationEntry[K, V])
	if r.cfg.oneToOne {
		if rk, ok := r.reverse[entry.val]; !ok || rk != k {
			return zero, newError(KindIndexIntegrity, "relation: one-to-one inverse mismatch on take")
		}
		delete(r.reverse, entry.val)
	}
	r.order.Remove(el)
	delete(r.forward, k)
	return entry.val, nil
}

// Get returns the value bound to k, if any.
func (r *relation[K, V]) Get(k K) (V, bool) {
	el, ok := r.forward[k]
	if !ok {
		var zero V
		return zero, false
	}
	return el.Value.(*relationEntry[K, V]).val, true
}

// Len reports the number of bindings currently held.
func (r *relation[K, V]) Len() int { return len(r.forward) }

// Clear empties the relation.
func (r *relation[K, V]) Clear() {
	r.forward = make(map[K]*list.Element)
	r.reverse = make(map[V]K)
	r.order = list.New()
}

// Hit moves k to the most-recently-used end of the ordering. Fails if k is
// absent. Used to maintain LRU on region_index.
func (r *relation[K, V]) Hit(k K) error {
	el, ok := r.forward[k]
	if !ok {
		return newError(KindIndexIntegrity, "relation: hit of missing key")
	}
	r.order.MoveToBack(el)
	return nil
}

// Keys returns all keys in LRU order, oldest first.
func (r *relation[K, V]) Keys() []K {
	out := make([]K, 0, r.order.Len())
	for e := r.order.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*relationEntry[K, V]).key)
	}
	return out
}

// Do iterates all bindings in LRU order, oldest first, calling fn for
// each. Iteration stops early if fn returns false.
func (r *relation[K, V]) Do(fn func(k K, v V) bool) {
	for e := r.order.Front(); e != nil; e = e.Next() {
		entry := e.Value.(*relationEntry[K, V])
		if !fn(entry.key, entry.val) {
			return
		}
	}
}

// CountValue reports how many keys currently map to v. General-purpose
// cardinality query over the value side of a many-to-one relation.
func (r *relation[K, V]) CountValue(v V) int {
	n := 0
	r.Do(func(_ K, val V) bool {
		if val == v {
			n++
		}
		return true
	})
	return n
}
