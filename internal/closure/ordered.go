package closure

// OrderedMap is an insertion-ordered string map with first-seen-wins
// semantics. Re-inserting an existing key is silently absorbed: the original
// value and position are kept. This reproduces the dedup contract closures
// need without any language-level ordered-set primitive.
type OrderedMap struct {
	keys   []string
	values map[string]string
}

// NewOrderedMap creates an empty OrderedMap.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]string)}
}

// Put inserts key→value if key has not been seen before. Returns true if the
// entry was inserted, false if an earlier entry already owns the key.
func (m *OrderedMap) Put(key, value string) bool {
	if _, ok := m.values[key]; ok {
		return false
	}
	m.keys = append(m.keys, key)
	m.values[key] = value
	return true
}

// Get returns the value for key and whether it exists.
func (m *OrderedMap) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Len returns the number of entries.
func (m *OrderedMap) Len() int {
	return len(m.keys)
}

// Keys returns the keys in insertion order. The returned slice is a copy.
func (m *OrderedMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Entries returns all key/value pairs in insertion order.
func (m *OrderedMap) Entries() []Entry {
	out := make([]Entry, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, Entry{Key: k, Value: m.values[k]})
	}
	return out
}

// Clone returns an independent copy preserving order.
func (m *OrderedMap) Clone() *OrderedMap {
	c := NewOrderedMap()
	for _, k := range m.keys {
		c.Put(k, m.values[k])
	}
	return c
}

// Entry is a single key/value pair of an OrderedMap.
type Entry struct {
	Key   string
	Value string
}
